package entity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/plsync/plsync/util"
)

const (
	TrackFormat   = "mp3"
	ArtworkFormat = "jpg"
)

// RemoteTrack is one entry of the remote playlist,
// recomputed on every run and never persisted
type RemoteTrack struct {
	ID           string // stable across playlist reorders
	Title        string
	Artist       string
	Position     int // 0-based index in remote order
	ThumbnailURL string
	Duration     int // in seconds
}

// LocalTrack is a tracked file on disk; identity and
// position are recovered from the filename convention,
// with the embedded ID3 frame as identity fallback
type LocalTrack struct {
	ID         string
	Position   int
	Path       string
	Title      string
	Artist     string
	ValidAudio bool
}

// Tags is what auto-tagging writes on a synced file
type Tags struct {
	Title       string
	Artist      string
	VideoID     string
	TrackNumber int
	Artwork     []byte
}

// filename convention: "NNN [VIDEOID] Artist - Title.mp3",
// artist segment omitted when unknown
var filenamePattern = regexp.MustCompile(`^(\d+) \[([0-9A-Za-z_-]+)\] (.+)\.` + TrackFormat + `$`)

func (track RemoteTrack) Filename() string {
	return Filename(track.Position, track.ID, track.Artist, track.Title)
}

func (track RemoteTrack) Tags() Tags {
	return Tags{
		Title:       track.Title,
		Artist:      track.Artist,
		VideoID:     track.ID,
		TrackNumber: track.Position + 1,
	}
}

func (track LocalTrack) Filename() string {
	return Filename(track.Position, track.ID, track.Artist, track.Title)
}

func Filename(position int, id, artist, title string) string {
	var stem string
	if artist == "" {
		stem = fmt.Sprintf("%03d [%s] %s", position, id, title)
	} else {
		stem = fmt.Sprintf("%03d [%s] %s - %s", position, id, artist, title)
	}
	return util.LegalizeFilename(stem) + "." + TrackFormat
}

// ParseFilename recovers position, id, artist and title
// from a filename following the convention; ok is false
// for files not produced by a previous sync
func ParseFilename(name string) (position int, id, artist, title string, ok bool) {
	groups := filenamePattern.FindStringSubmatch(name)
	if groups == nil {
		return 0, "", "", "", false
	}

	position, err := strconv.Atoi(groups[1])
	if err != nil {
		return 0, "", "", "", false
	}
	id = groups[2]

	// the payload reads "Artist - Title", or a bare
	// title when the artist could not be determined
	payload := groups[3]
	if before, after, found := strings.Cut(payload, " - "); found {
		artist, title = before, after
	} else {
		title = payload
	}
	return position, id, artist, title, true
}

// ParseVideoTitle splits an upstream "<artist> - <title>"
// video title, stripping bracketed junk and parenthesized
// qualifiers like "(Official Audio)" beforehand
func ParseVideoTitle(videoTitle string) (artist, title string) {
	cleaned := squareBrackets.ReplaceAllString(videoTitle, "")
	cleaned = parentheses.ReplaceAllStringFunc(cleaned, func(group string) string {
		lower := strings.ToLower(group)
		for _, junk := range []string{"audio", "lyric", "video", "hq"} {
			if strings.Contains(lower, junk) {
				return ""
			}
		}
		return group
	})

	if before, after, found := strings.Cut(cleaned, " - "); found {
		artist, title = strings.TrimSpace(before), strings.TrimSpace(after)
	} else {
		title = strings.TrimSpace(cleaned)
	}
	return artist, title
}

var (
	squareBrackets = regexp.MustCompile(`\[.*?\]`)
	parentheses    = regexp.MustCompile(`\(.*?\)`)
)
