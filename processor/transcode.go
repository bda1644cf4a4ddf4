// Package processor turns a fetched audio blob into a
// tagged, loudness-normalized MP3. Transcoding and
// normalization shell out to ffmpeg; tagging goes
// through the id3 wrapper.
package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/plsync/plsync/util"
)

var (
	ErrTranscode = errors.New("transcode failed")
	ErrTagWrite  = errors.New("tag write failed")
)

// FFmpeg implements transcoding and loudness
// normalization over the ffmpeg binary
type FFmpeg struct{}

func (FFmpeg) ToMP3(ctx context.Context, src, dst string) error {
	var (
		output bytes.Buffer
		cmd    = exec.CommandContext(ctx, "ffmpeg",
			"-y",
			"-hide_banner",
			"-loglevel", "error",
			"-i", src,
			"-vn",
			"-codec:a", "libmp3lame",
			"-qscale:a", "2",
			dst,
		)
	)
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s", ErrTranscode, ctx.Err())
		}
		return fmt.Errorf("%w: %s", ErrTranscode, util.Excerpt(output.String()))
	}
	return nil
}
