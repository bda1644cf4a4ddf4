package executor

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/bogem/id3v2/v2"
	"github.com/charmbracelet/log"
	"github.com/plsync/plsync/engine"
	"github.com/plsync/plsync/entity"
	"github.com/plsync/plsync/entity/id3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// an empty ID3v2.4 tag followed by audio payload, the
// smallest file real tag parsing accepts
var trackStub = append([]byte("ID3\x04\x00\x00\x00\x00\x00\x00"), "audio"...)

type fakeFetcher struct {
	mu       sync.Mutex
	failFor  string
	rawPaths []string
}

func (fetcher *fakeFetcher) Fetch(_ context.Context, id, stem string) (string, error) {
	if id == fetcher.failFor {
		return "", errors.New("video unavailable")
	}
	raw := stem + ".webm"
	if err := os.WriteFile(raw, []byte("raw audio"), 0o644); err != nil {
		return "", err
	}
	fetcher.mu.Lock()
	fetcher.rawPaths = append(fetcher.rawPaths, raw)
	fetcher.mu.Unlock()
	return raw, nil
}

type fakeTranscoder struct{}

func (fakeTranscoder) ToMP3(_ context.Context, src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

type fakeNormalizer struct{ err error }

func (normalizer fakeNormalizer) Normalize(_ context.Context, path string, _ float64) error {
	if normalizer.err != nil {
		return normalizer.err
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}
	return nil
}

type fakeTagger struct {
	mu   sync.Mutex
	tags map[string]entity.Tags
}

func (tagger *fakeTagger) WriteTags(path string, tags entity.Tags) error {
	tagger.mu.Lock()
	defer tagger.mu.Unlock()
	if tagger.tags == nil {
		tagger.tags = map[string]entity.Tags{}
	}
	tagger.tags[tags.VideoID] = tags
	_, err := os.Stat(path)
	return err
}

type fakeArtwork struct{ err error }

func (artwork fakeArtwork) Artwork(_ context.Context, _ string) ([]byte, error) {
	if artwork.err != nil {
		return nil, artwork.err
	}
	return []byte("image"), nil
}

type fakeScaler struct{}

func (fakeScaler) Scale(data []byte) ([]byte, error) {
	return append(data, " scaled"...), nil
}

func testConfig() Config {
	return Config{Concurrency: 2, Logger: log.New(io.Discard)}
}

func testPipeline(fetcher *fakeFetcher, tagger *fakeTagger) Pipeline {
	return Pipeline{
		Fetcher:    fetcher,
		Transcoder: fakeTranscoder{},
		Normalizer: fakeNormalizer{},
		Tagger:     tagger,
		Artwork:    fakeArtwork{},
		Scaler:     fakeScaler{},
	}
}

func useTempStaging(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	xdg.Reload()
}

func addFor(id string, position int, title string) engine.Add {
	remote := entity.RemoteTrack{
		ID:           id,
		Title:        title,
		Artist:       "Artist",
		Position:     position,
		ThumbnailURL: "https://thumbs.example/" + id,
	}
	return engine.Add{Remote: remote, Position: position, Filename: remote.Filename()}
}

func TestApplyAdds(t *testing.T) {
	useTempStaging(t)
	dir := t.TempDir()

	fetcher := &fakeFetcher{}
	tagger := &fakeTagger{}
	plan := &engine.Plan{
		Dir:  dir,
		Adds: []engine.Add{addFor("videoA", 0, "SongA"), addFor("videoB", 1, "SongB")},
	}

	report := Apply(context.Background(), plan, testPipeline(fetcher, tagger), testConfig())

	assert.Equal(t, 2, report.Added)
	assert.Zero(t, report.Failed())
	for _, add := range plan.Adds {
		assert.FileExists(t, filepath.Join(dir, add.Filename))
	}
	for _, raw := range fetcher.rawPaths {
		assert.NoFileExists(t, raw, "raw downloads must be swept")
	}
	assert.Equal(t, 1, tagger.tags["videoA"].TrackNumber)
	assert.Equal(t, []byte("image scaled"), tagger.tags["videoA"].Artwork)
}

func TestApplyAddFailureIsolated(t *testing.T) {
	useTempStaging(t)
	dir := t.TempDir()

	fetcher := &fakeFetcher{failFor: "videoA"}
	tagger := &fakeTagger{}
	plan := &engine.Plan{
		Dir:  dir,
		Adds: []engine.Add{addFor("videoA", 0, "SongA"), addFor("videoB", 1, "SongB")},
	}

	report := Apply(context.Background(), plan, testPipeline(fetcher, tagger), testConfig())

	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 1, report.AddFailed)
	assert.NoFileExists(t, filepath.Join(dir, plan.Adds[0].Filename))
	assert.FileExists(t, filepath.Join(dir, plan.Adds[1].Filename))
	if assert.Len(t, report.Failures, 1) {
		assert.Equal(t, "add", report.Failures[0].Kind)
	}
}

func TestApplyAddRefusesOccupiedTarget(t *testing.T) {
	useTempStaging(t)
	dir := t.TempDir()

	add := addFor("videoA", 0, "SongA")
	squatter := filepath.Join(dir, add.Filename)
	assert.NoError(t, os.WriteFile(squatter, []byte("not ours"), 0o644))

	report := Apply(context.Background(), &engine.Plan{Dir: dir, Adds: []engine.Add{add}},
		testPipeline(&fakeFetcher{}, &fakeTagger{}), testConfig())

	assert.Equal(t, 1, report.AddFailed)
	if assert.Len(t, report.Failures, 1) {
		assert.ErrorIs(t, report.Failures[0].Err, ErrFilesystem)
	}
	data, err := os.ReadFile(squatter)
	assert.NoError(t, err)
	assert.Equal(t, []byte("not ours"), data)
}

func TestApplyAddArtworkFailureDegrades(t *testing.T) {
	useTempStaging(t)
	dir := t.TempDir()

	tagger := &fakeTagger{}
	pipeline := testPipeline(&fakeFetcher{}, tagger)
	pipeline.Artwork = fakeArtwork{err: errors.New("thumbnail gone")}

	report := Apply(context.Background(), &engine.Plan{Dir: dir, Adds: []engine.Add{addFor("videoA", 0, "SongA")}},
		pipeline, testConfig())

	assert.Equal(t, 1, report.Added)
	assert.Zero(t, report.Failed())
	assert.Nil(t, tagger.tags["videoA"].Artwork)
}

func TestApplyRemoves(t *testing.T) {
	dir := t.TempDir()

	deleted := filepath.Join(dir, entity.Filename(2, "videoC", "Artist", "Gone"))
	preserved := filepath.Join(dir, entity.Filename(3, "videoD", "Artist", "Kept"))
	require.NoError(t, os.WriteFile(deleted, trackStub, 0o644))
	require.NoError(t, os.WriteFile(preserved, trackStub, 0o644))

	plan := &engine.Plan{
		Dir: dir,
		Removes: []engine.Remove{
			{Local: entity.LocalTrack{ID: "videoC", Path: deleted}},
			{Local: entity.LocalTrack{ID: "videoD", Path: preserved}, Preserve: true},
		},
	}

	report := Apply(context.Background(), plan, Pipeline{}, testConfig())

	assert.Equal(t, 1, report.Removed)
	assert.Equal(t, 1, report.Kept)
	assert.NoFileExists(t, deleted)
	assert.FileExists(t, preserved)
}

func TestApplyRepositionsSwap(t *testing.T) {
	dir := t.TempDir()

	nameA := entity.Filename(0, "videoA", "Artist", "SongA")
	nameB := entity.Filename(1, "videoB", "Artist", "SongB")
	require.NoError(t, os.WriteFile(filepath.Join(dir, nameA), trackStub, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, nameB), trackStub, 0o644))

	trackA := entity.LocalTrack{ID: "videoA", Position: 0, Path: filepath.Join(dir, nameA)}
	trackB := entity.LocalTrack{ID: "videoB", Position: 1, Path: filepath.Join(dir, nameB)}
	plan := &engine.Plan{
		Dir: dir,
		Repositions: []engine.Reposition{
			{Local: trackA, From: 0, To: 1, NewName: entity.Filename(1, "videoA", "Artist", "SongA"), Staged: true},
			{Local: trackB, From: 1, To: 0, NewName: entity.Filename(0, "videoB", "Artist", "SongB")},
		},
	}

	report := Apply(context.Background(), plan, Pipeline{}, testConfig())

	assert.Equal(t, 2, report.Renamed)
	assert.Zero(t, report.Failed())
	assert.FileExists(t, filepath.Join(dir, entity.Filename(1, "videoA", "Artist", "SongA")))
	assert.FileExists(t, filepath.Join(dir, entity.Filename(0, "videoB", "Artist", "SongB")))
	assert.NoFileExists(t, filepath.Join(dir, nameA))

	entries, err := os.ReadDir(dir)
	assert.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files left behind")

	tag, err := id3.Open(filepath.Join(dir, entity.Filename(0, "videoB", "Artist", "SongB")), id3v2.Options{Parse: true})
	require.NoError(t, err)
	defer tag.Close()
	assert.Equal(t, 1, tag.TrackNumber())
}

func TestApplyRepositionRefusesOccupiedSlot(t *testing.T) {
	dir := t.TempDir()

	nameA := entity.Filename(0, "videoA", "Artist", "SongA")
	target := entity.Filename(1, "videoA", "Artist", "SongA")
	require.NoError(t, os.WriteFile(filepath.Join(dir, nameA), trackStub, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, target), []byte("not ours"), 0o644))

	plan := &engine.Plan{
		Dir: dir,
		Repositions: []engine.Reposition{
			{
				Local:   entity.LocalTrack{ID: "videoA", Position: 0, Path: filepath.Join(dir, nameA)},
				From:    0,
				To:      1,
				NewName: target,
			},
		},
	}

	report := Apply(context.Background(), plan, Pipeline{}, testConfig())

	assert.Equal(t, 1, report.RenameFailed)
	if assert.Len(t, report.Failures, 1) {
		assert.ErrorIs(t, report.Failures[0].Err, ErrFilesystem)
	}
	assert.FileExists(t, filepath.Join(dir, nameA))
}

func TestApplyRepositionTagFailureStillCountsRename(t *testing.T) {
	dir := t.TempDir()

	nameA := entity.Filename(0, "videoA", "Artist", "SongA")
	newName := entity.Filename(1, "videoA", "Artist", "SongA")
	// too short to carry a parsable tag: the rename lands,
	// only the frame rewrite can fail
	require.NoError(t, os.WriteFile(filepath.Join(dir, nameA), []byte("x"), 0o644))

	plan := &engine.Plan{
		Dir: dir,
		Repositions: []engine.Reposition{
			{
				Local:   entity.LocalTrack{ID: "videoA", Position: 0, Path: filepath.Join(dir, nameA)},
				From:    0,
				To:      1,
				NewName: newName,
			},
		},
	}

	report := Apply(context.Background(), plan, Pipeline{}, testConfig())

	assert.Equal(t, 1, report.Renamed, "the file sits at its new name, the report must say so")
	assert.Zero(t, report.Failed())
	assert.FileExists(t, filepath.Join(dir, newName))
	assert.NoFileExists(t, filepath.Join(dir, nameA))
}

type blockingFetcher struct{}

func (blockingFetcher) Fetch(ctx context.Context, _, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestApplyAddTimeoutFailsItemOnly(t *testing.T) {
	useTempStaging(t)
	dir := t.TempDir()

	pipeline := testPipeline(&fakeFetcher{}, &fakeTagger{})
	pipeline.Fetcher = blockingFetcher{}
	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond

	add := addFor("videoA", 0, "SongA")
	report := Apply(context.Background(), &engine.Plan{Dir: dir, Adds: []engine.Add{add}}, pipeline, cfg)

	assert.Equal(t, 1, report.AddFailed)
	assert.Zero(t, report.Added)
	assert.NoFileExists(t, filepath.Join(dir, add.Filename))
}

type cancellingFetcher struct {
	inner  *fakeFetcher
	cancel context.CancelFunc
}

func (fetcher cancellingFetcher) Fetch(ctx context.Context, id, stem string) (string, error) {
	defer fetcher.cancel()
	return fetcher.inner.Fetch(ctx, id, stem)
}

func TestApplyCancelledBetweenAdds(t *testing.T) {
	useTempStaging(t)
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the first fetch pulls the plug; with a single worker
	// the second item must be skipped, not half-done
	pipeline := testPipeline(&fakeFetcher{}, &fakeTagger{})
	pipeline.Fetcher = cancellingFetcher{inner: &fakeFetcher{}, cancel: cancel}
	cfg := testConfig()
	cfg.Concurrency = 1

	plan := &engine.Plan{
		Dir:  dir,
		Adds: []engine.Add{addFor("videoA", 0, "SongA"), addFor("videoB", 1, "SongB")},
	}
	report := Apply(ctx, plan, pipeline, cfg)

	assert.Equal(t, 1, report.Added)
	assert.Zero(t, report.Failed())
	assert.FileExists(t, filepath.Join(dir, plan.Adds[0].Filename))
	assert.NoFileExists(t, filepath.Join(dir, plan.Adds[1].Filename))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no partial or staged file may reach the directory")
}

func TestReportPartial(t *testing.T) {
	report := &Report{}
	report.success("add")
	report.failure("remove", "003 [x] a - b.mp3", errors.New("permission denied"))

	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, 1, report.RemoveFailed)
	assert.Contains(t, report.String(), "003 [x] a - b.mp3")
	assert.Contains(t, report.String(), "added 1 (0 failed)")
}
