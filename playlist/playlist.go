// Package playlist reads the remote playlist through
// yt-dlp's JSON dump, producing the ordered track list
// the diff engine consumes.
package playlist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	jsoniter "github.com/json-iterator/go"
	"github.com/plsync/plsync/entity"
)

var ErrUnreachable = errors.New("playlist unreachable")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Playlist struct {
	ID     string
	Title  string
	Tracks []entity.RemoteTrack
}

type dumpEntry struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Duration   float64 `json:"duration"`
	Thumbnails []struct {
		URL string `json:"url"`
	} `json:"thumbnails"`
}

type dumpPlaylist struct {
	ID      string       `json:"id"`
	Title   string       `json:"title"`
	Entries []*dumpEntry `json:"entries"`
}

// Fetch resolves a playlist URL to its ordered track
// descriptors. Unavailable entries (private or removed
// videos) are skipped; positions number the remaining
// tracks contiguously.
func Fetch(ctx context.Context, url string) (*Playlist, error) {
	data, err := dump(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnreachable, err)
	}
	return parse(data)
}

func parse(data []byte) (*Playlist, error) {
	var dumped dumpPlaylist
	if err := json.Unmarshal(data, &dumped); err != nil {
		return nil, fmt.Errorf("%w: malformed metadata: %s", ErrUnreachable, err)
	}
	if dumped.Entries == nil {
		return nil, fmt.Errorf("%w: no playlist entries in metadata for %s", ErrUnreachable, dumped.ID)
	}

	playlist := &Playlist{ID: dumped.ID, Title: dumped.Title}
	for _, entry := range dumped.Entries {
		if entry == nil || entry.ID == "" {
			continue
		}

		artist, title := entity.ParseVideoTitle(entry.Title)
		track := entity.RemoteTrack{
			ID:       entry.ID,
			Title:    title,
			Artist:   artist,
			Position: len(playlist.Tracks),
			Duration: int(entry.Duration),
		}
		if len(entry.Thumbnails) > 0 {
			track.ThumbnailURL = entry.Thumbnails[len(entry.Thumbnails)-1].URL
		}
		playlist.Tracks = append(playlist.Tracks, track)
	}
	return playlist, nil
}

func dump(ctx context.Context, url string) ([]byte, error) {
	var (
		stdout bytes.Buffer
		stderr bytes.Buffer
		cmd    = exec.CommandContext(ctx, "yt-dlp",
			"--dump-single-json",
			"--flat-playlist",
			"--ignore-errors",
			"--no-warnings",
			url,
		)
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, errors.New(stderr.String())
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
