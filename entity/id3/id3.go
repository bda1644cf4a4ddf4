// Package id3 wraps bogem/id3v2 tags with the custom
// TXXX frames carrying track identity and the values
// auto-tagging last wrote, so user edits survive resyncs.
package id3

import (
	"strconv"

	"github.com/bogem/id3v2/v2"
)

const (
	frameVideoID    = "PLSYNC_VIDEO_ID"
	frameAutoTitle  = "PLSYNC_AUTO_TITLE"
	frameAutoArtist = "PLSYNC_AUTO_ARTIST"
)

type File struct {
	*id3v2.Tag
}

func Open(path string, options id3v2.Options) (*File, error) {
	tag, err := id3v2.Open(path, options)
	if err != nil {
		return nil, err
	}
	return &File{tag}, nil
}

func (file *File) VideoID() string {
	return file.userText(frameVideoID)
}

func (file *File) SetVideoID(id string) {
	file.setUserText(frameVideoID, id)
}

// AutoTitle is the title value the last sync wrote;
// a differing Title() means the user edited it
func (file *File) AutoTitle() string {
	return file.userText(frameAutoTitle)
}

func (file *File) SetAutoTitle(title string) {
	file.setUserText(frameAutoTitle, title)
}

func (file *File) AutoArtist() string {
	return file.userText(frameAutoArtist)
}

func (file *File) SetAutoArtist(artist string) {
	file.setUserText(frameAutoArtist, artist)
}

func (file *File) TrackNumber() int {
	number, err := strconv.Atoi(file.GetTextFrame(file.CommonID("Track number/Position in set")).Text)
	if err != nil {
		return 0
	}
	return number
}

func (file *File) SetTrackNumber(number int) {
	file.AddTextFrame(file.CommonID("Track number/Position in set"), id3v2.EncodingUTF8, strconv.Itoa(number))
}

func (file *File) SetAttachedPicture(data []byte) {
	file.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    "image/jpeg",
		PictureType: id3v2.PTFrontCover,
		Picture:     data,
	})
}

func (file *File) userText(description string) string {
	for _, framer := range file.GetFrames(file.CommonID("User defined text information frame")) {
		if frame, ok := framer.(id3v2.UserDefinedTextFrame); ok && frame.Description == description {
			return frame.Value
		}
	}
	return ""
}

func (file *File) setUserText(description, value string) {
	id := file.CommonID("User defined text information frame")

	var kept []id3v2.UserDefinedTextFrame
	for _, framer := range file.GetFrames(id) {
		if frame, ok := framer.(id3v2.UserDefinedTextFrame); ok && frame.Description != description {
			kept = append(kept, frame)
		}
	}

	file.DeleteFrames(id)
	for _, frame := range kept {
		file.AddUserDefinedTextFrame(frame)
	}
	file.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
		Encoding:    id3v2.EncodingUTF8,
		Description: description,
		Value:       value,
	})
}
