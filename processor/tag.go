package processor

import (
	"fmt"

	"github.com/bogem/id3v2/v2"
	"github.com/plsync/plsync/entity"
	"github.com/plsync/plsync/entity/id3"
)

// ID3 writes metadata frames on synced files
type ID3 struct{}

// WriteTags applies auto-tagging to the file. A title or
// artist frame whose current value differs from the one
// recorded at the previous write was edited by the user
// and is left alone; identity and track number are
// always maintained.
func (ID3) WriteTags(path string, tags entity.Tags) error {
	file, err := id3.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("%w: %s", ErrTagWrite, err)
	}
	defer file.Close()

	if current := file.Title(); current == "" || current == file.AutoTitle() {
		file.SetTitle(tags.Title)
		file.SetAutoTitle(tags.Title)
	}
	if current := file.Artist(); current == "" || current == file.AutoArtist() {
		file.SetArtist(tags.Artist)
		file.SetAutoArtist(tags.Artist)
	}

	file.SetVideoID(tags.VideoID)
	file.SetTrackNumber(tags.TrackNumber)
	if len(tags.Artwork) > 0 {
		file.SetAttachedPicture(tags.Artwork)
	}

	if err := file.Save(); err != nil {
		return fmt.Errorf("%w: %s", ErrTagWrite, err)
	}
	return nil
}
