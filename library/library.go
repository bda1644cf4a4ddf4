// Package library scans the target directory and
// recovers the set of tracked local tracks from the
// filename convention and the embedded identity frames.
package library

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/plsync/plsync/entity"
	"github.com/plsync/plsync/entity/id3"
)

// bare position prefix without the bracketed id; the
// identity frame is the fallback for such files
var bareFilenamePattern = regexp.MustCompile(`^(\d+) (.+)\.` + entity.TrackFormat + `$`)

// Scan reads dir (creating it when missing) and returns
// the tracked local tracks plus the names of MP3 files
// that carry no recoverable identity. Untracked files
// are never touched by a sync.
func Scan(dir string) (tracks []entity.LocalTrack, untracked []string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), "."+entity.TrackFormat) {
			continue
		}

		track, ok := scanFile(dir, entry.Name())
		if !ok {
			untracked = append(untracked, entry.Name())
			continue
		}
		tracks = append(tracks, track)
	}
	return tracks, untracked, nil
}

func scanFile(dir, name string) (entity.LocalTrack, bool) {
	track := entity.LocalTrack{Path: filepath.Join(dir, name)}

	position, id, artist, title, ok := entity.ParseFilename(name)
	if !ok {
		position, artist, title, ok = parseBareFilename(name)
		if !ok {
			return entity.LocalTrack{}, false
		}
	}
	track.Position, track.ID, track.Artist, track.Title = position, id, artist, title

	if tag, err := id3.Open(track.Path, id3v2.Options{Parse: true}); err == nil {
		track.ValidAudio = true
		if track.ID == "" {
			track.ID = tag.VideoID()
		}
		if tagged := tag.Title(); tagged != "" {
			track.Title = tagged
		}
		if tagged := tag.Artist(); tagged != "" {
			track.Artist = tagged
		}
		tag.Close()
	}

	if track.ID == "" {
		return entity.LocalTrack{}, false
	}
	return track, true
}

func parseBareFilename(name string) (position int, artist, title string, ok bool) {
	groups := bareFilenamePattern.FindStringSubmatch(name)
	if groups == nil {
		return 0, "", "", false
	}
	position, err := strconv.Atoi(groups[1])
	if err != nil {
		return 0, "", "", false
	}
	if before, after, found := strings.Cut(groups[2], " - "); found {
		artist, title = before, after
	} else {
		title = groups[2]
	}
	return position, artist, title, true
}
