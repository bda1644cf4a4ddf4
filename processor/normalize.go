package processor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/plsync/plsync/util"
)

// Normalize adjusts loudness in place to the target
// LUFS. ffmpeg writes to a sibling temp file which then
// replaces the original, so an interrupted run never
// leaves a half-encoded file under the final name.
func (FFmpeg) Normalize(ctx context.Context, path string, lufs float64) error {
	temp := path + ".norm.tmp.mp3"

	var (
		output bytes.Buffer
		cmd    = exec.CommandContext(ctx, "ffmpeg",
			"-y",
			"-hide_banner",
			"-loglevel", "error",
			"-i", path,
			"-af", fmt.Sprintf("loudnorm=I=%g:TP=-1.5:LRA=11", lufs),
			"-ar", "44100",
			"-codec:a", "libmp3lame",
			"-qscale:a", "2",
			temp,
		)
	)
	cmd.Stdout = &output
	cmd.Stderr = &output
	if err := cmd.Run(); err != nil {
		os.Remove(temp)
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %s", ErrTranscode, ctx.Err())
		}
		return fmt.Errorf("%w: %s", ErrTranscode, util.Excerpt(output.String()))
	}
	return os.Rename(temp, path)
}
