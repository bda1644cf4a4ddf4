// Package downloader pulls remote audio and artwork
// blobs. Audio retrieval shells out to yt-dlp; only the
// staging area is ever written to, never the playlist
// directory.
package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/plsync/plsync/util"
)

var ErrDownload = errors.New("download failed")

// YouTubeDL fetches audio through the yt-dlp binary
type YouTubeDL struct{}

// Fetch downloads the best audio stream for a video id
// to the staging stem and returns the resulting path
// (the container extension is upstream's choice).
func (YouTubeDL) Fetch(ctx context.Context, id, stem string) (string, error) {
	var (
		output bytes.Buffer
		cmd    = exec.CommandContext(ctx, "yt-dlp",
			"--format", "bestaudio",
			"--no-playlist",
			"--output", stem+".%(ext)s",
			"--continue",
			"--no-overwrites",
			"--retry-sleep", "exp=1::2",
			"--no-warnings",
			id,
		)
	)
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %s", ErrDownload, ctx.Err())
		}
		return "", fmt.Errorf("%w: %s", ErrDownload, util.Excerpt(output.String()))
	}

	path, err := resolveStem(stem)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrDownload, err)
	}
	return path, nil
}

// resolveStem locates the file yt-dlp produced for the
// given stem, whatever extension it picked
func resolveStem(stem string) (string, error) {
	matches, err := filepath.Glob(escapeGlob(stem) + ".*")
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no file produced for %s", filepath.Base(stem))
	}
	return matches[0], nil
}

func escapeGlob(path string) string {
	var escaped strings.Builder
	for _, r := range path {
		if strings.ContainsRune(`*?[\`, r) {
			escaped.WriteByte('\\')
		}
		escaped.WriteRune(r)
	}
	return escaped.String()
}
