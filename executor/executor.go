// Package executor applies an accepted sync plan.
// Removes and repositions touch the shared directory
// namespace and run sequenced; adds operate on distinct
// target files and run on a bounded worker pool. Every
// operation is isolated: one failing item never aborts
// the rest of the plan.
package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/arunsworld/nursery"
	"github.com/bogem/id3v2/v2"
	"github.com/charmbracelet/log"
	"github.com/gosimple/slug"
	"github.com/plsync/plsync/engine"
	"github.com/plsync/plsync/entity"
	"github.com/plsync/plsync/entity/id3"
	"github.com/plsync/plsync/util"
	"github.com/plsync/plsync/util/anchor"
	"github.com/thanhpk/randstr"
)

var ErrFilesystem = errors.New("filesystem operation failed")

// media pipeline collaborators, invoked strictly in
// fetch, transcode, normalize, tag order per add

type Fetcher interface {
	Fetch(ctx context.Context, id, stem string) (string, error)
}

type Transcoder interface {
	ToMP3(ctx context.Context, src, dst string) error
}

type Normalizer interface {
	Normalize(ctx context.Context, path string, lufs float64) error
}

type Tagger interface {
	WriteTags(path string, tags entity.Tags) error
}

type ArtworkFetcher interface {
	Artwork(ctx context.Context, url string) ([]byte, error)
}

type ArtworkScaler interface {
	Scale(data []byte) ([]byte, error)
}

type Pipeline struct {
	Fetcher    Fetcher
	Transcoder Transcoder
	Normalizer Normalizer
	Tagger     Tagger
	Artwork    ArtworkFetcher // optional, failures degrade to a warning
	Scaler     ArtworkScaler  // optional
}

type Config struct {
	Concurrency int
	Loudness    float64
	Timeout     time.Duration // per external call
	Logger      *log.Logger
	Status      *anchor.Anchor
}

// Apply executes the plan in dependency order and
// reports per-item outcomes. It performs no side effects
// beyond the plan's directory and the staging area.
func Apply(ctx context.Context, plan *engine.Plan, pipeline Pipeline, cfg Config) *Report {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr)
	}
	if cfg.Status == nil {
		cfg.Status = anchor.New()
	}
	defer cfg.Status.Close()

	report := &Report{}
	applyRemoves(plan, cfg, report)
	applyRepositions(plan, cfg, report)
	applyAdds(ctx, plan, pipeline, cfg, report)
	return report
}

func applyRemoves(plan *engine.Plan, cfg Config, report *Report) {
	for _, remove := range plan.Removes {
		name := filepath.Base(remove.Local.Path)
		if remove.Preserve {
			cfg.Status.Printf("keeping %s on disk", name)
			report.kept()
			continue
		}

		cfg.Status.Status("deleting %s", name)
		if err := os.Remove(remove.Local.Path); err != nil {
			report.failure("remove", name, fmt.Errorf("%w: %s", ErrFilesystem, err))
			continue
		}
		cfg.Status.Printf("deleted %s", name)
		report.success("remove")
	}
}

func applyRepositions(plan *engine.Plan, cfg Config, report *Report) {
	type stagedMove struct {
		temp string
		move engine.Reposition
	}
	var staged []stagedMove

	for _, move := range plan.Repositions {
		name := filepath.Base(move.Local.Path)
		cfg.Status.Status("renaming %s", name)

		if move.Staged {
			temp := filepath.Join(filepath.Dir(move.Local.Path), "."+randstr.Hex(8)+".plsync.tmp")
			if err := os.Rename(move.Local.Path, temp); err != nil {
				report.failure("reposition", name, fmt.Errorf("%w: %s", ErrFilesystem, err))
				continue
			}
			staged = append(staged, stagedMove{temp: temp, move: move})
			continue
		}

		if err := finishRename(move.Local.Path, filepath.Join(plan.Dir, move.NewName)); err != nil {
			report.failure("reposition", name, err)
			continue
		}
		completeRename(plan.Dir, move, cfg, report)
	}

	// second phase: cycle members leave their temporary
	// names once every slot in the cycle is vacated
	for _, pending := range staged {
		name := filepath.Base(pending.move.Local.Path)
		if err := finishRename(pending.temp, filepath.Join(plan.Dir, pending.move.NewName)); err != nil {
			report.failure("reposition", name, err)
			continue
		}
		completeRename(plan.Dir, pending.move, cfg, report)
	}
}

// the file already sits at its new name here, so a failed
// frame rewrite degrades to a warning instead of
// misreporting the rename itself
func completeRename(dir string, move engine.Reposition, cfg Config, report *Report) {
	if err := renumberTrack(filepath.Join(dir, move.NewName), move.To); err != nil {
		cfg.Logger.Warn("track number not updated", "file", move.NewName, "err", err)
	}
	cfg.Status.Printf("renamed %s to %s", filepath.Base(move.Local.Path), move.NewName)
	report.success("reposition")
}

// finishRename moves a file onto its final slot name,
// refusing to clobber whatever else already holds it
func finishRename(src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%w: %s already exists", ErrFilesystem, filepath.Base(dst))
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("%w: %s", ErrFilesystem, err)
	}
	return nil
}

func renumberTrack(path string, position int) error {
	tag, err := id3.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer tag.Close()
	tag.SetTrackNumber(position + 1)
	return tag.Save()
}

func applyAdds(ctx context.Context, plan *engine.Plan, pipeline Pipeline, cfg Config, report *Report) {
	if len(plan.Adds) == 0 {
		return
	}

	queue := make(chan engine.Add, len(plan.Adds))
	for _, add := range plan.Adds {
		queue <- add
	}
	close(queue)

	util.ErrSuppress(nursery.RunMultipleCopiesConcurrentlyWithContext(ctx, cfg.Concurrency,
		func(ctx context.Context, _ chan error) {
			for add := range queue {
				if ctx.Err() != nil {
					cfg.Logger.Warn("cancelled before item", "file", add.Filename)
					return
				}

				cfg.Status.Status("downloading %s", add.Filename)
				if err := applyAdd(ctx, plan.Dir, add, pipeline, cfg); err != nil {
					cfg.Logger.Error("add failed", "file", add.Filename, "err", err)
					report.failure("add", add.Filename, err)
					continue
				}
				cfg.Status.Printf("added %s", add.Filename)
				report.success("add")
			}
		}))
}

// applyAdd runs the media pipeline for one remote track.
// All intermediate files live in the staging area and
// are swept on failure; the final name appears in the
// playlist directory only after every stage succeeded.
func applyAdd(ctx context.Context, dir string, add engine.Add, pipeline Pipeline, cfg Config) (err error) {
	var (
		stem   = util.CacheFile(slug.Make(add.Remote.ID))
		staged = stem + ".synced." + entity.TrackFormat
		raw    string
	)
	defer func() {
		if raw != "" {
			os.Remove(raw)
		}
		if err != nil {
			os.Remove(staged)
		}
	}()

	err = stage(ctx, cfg.Timeout, func(ctx context.Context) error {
		raw, err = pipeline.Fetcher.Fetch(ctx, add.Remote.ID, stem+"-src")
		return err
	})
	if err != nil {
		return err
	}

	if err = stage(ctx, cfg.Timeout, func(ctx context.Context) error {
		return pipeline.Transcoder.ToMP3(ctx, raw, staged)
	}); err != nil {
		return err
	}

	if err = stage(ctx, cfg.Timeout, func(ctx context.Context) error {
		return pipeline.Normalizer.Normalize(ctx, staged, cfg.Loudness)
	}); err != nil {
		return err
	}

	tags := add.Remote.Tags()
	tags.Artwork = fetchArtwork(ctx, add.Remote, pipeline, cfg)
	if err = pipeline.Tagger.WriteTags(staged, tags); err != nil {
		return err
	}

	target := filepath.Join(dir, add.Filename)
	if _, statErr := os.Stat(target); statErr == nil {
		return fmt.Errorf("%w: %s already exists", ErrFilesystem, add.Filename)
	}
	if err = util.FileMoveOrCopy(staged, target, false); err != nil {
		return fmt.Errorf("%w: %s", ErrFilesystem, err)
	}
	return nil
}

func fetchArtwork(ctx context.Context, track entity.RemoteTrack, pipeline Pipeline, cfg Config) []byte {
	if pipeline.Artwork == nil || track.ThumbnailURL == "" {
		return nil
	}

	var data []byte
	err := stage(ctx, cfg.Timeout, func(ctx context.Context) (err error) {
		data, err = pipeline.Artwork.Artwork(ctx, track.ThumbnailURL)
		return err
	})
	if err == nil && pipeline.Scaler != nil {
		data, err = pipeline.Scaler.Scale(data)
	}
	if err != nil {
		cfg.Logger.Warn("skipping artwork", "track", track.Title, "err", err)
		return nil
	}
	return data
}

// stage bounds one external call; a stalled binary fails
// that item only
func stage(ctx context.Context, timeout time.Duration, call func(context.Context) error) error {
	if timeout <= 0 {
		return call(ctx)
	}
	bounded, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return call(bounded)
}
