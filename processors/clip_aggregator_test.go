package processors

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videoSearch/core"
	"videoSearch/storage"
)

func hit(video string, start, end int64, score float64) core.ScoredResult {
	return core.ScoredResult{VideoName: video, StartTime: start, EndTime: end, Score: score}
}

func TestAggregateClipResultsPicksBestAverage(t *testing.T) {
	frames := [][]core.ScoredResult{
		{hit("A", 1000, 2000, 0.9), hit("B", 5000, 6000, 0.76)},
		{hit("B", 6000, 7000, 0.8)},
		{hit("B", 7000, 8000, 0.9), hit("A", 2000, 3000, 0.8)},
		{hit("A", 3000, 4000, 0.85), hit("B", 8000, 9000, 0.77)},
	}

	matches := AggregateClipResults(frames, core.DefaultSearchPolicy())

	require.Len(t, matches, 1)
	m := matches[0]
	assert.Equal(t, "B", m.VideoName)
	assert.InDelta(t, 0.8075, m.Score, 1e-9)
	assert.Equal(t, 4, m.OccurrenceCount)
	assert.Equal(t, int64(5000), m.StartTime)
	assert.Equal(t, int64(9000), m.EndTime)
}

func TestAggregateClipResultsBelowThreshold(t *testing.T) {
	frames := [][]core.ScoredResult{
		{hit("A", 0, 1000, 0.9)},
		{},
		{hit("A", 1000, 2000, 0.8)},
		{hit("A", 2000, 3000, 0.85)},
	}

	matches := AggregateClipResults(frames, core.DefaultSearchPolicy())

	// (0.9+0+0.8+0.85)/4 = 0.6375
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestAggregateClipResultsFirstHitPerFrameWins(t *testing.T) {
	frames := [][]core.ScoredResult{
		{hit("A", 0, 1000, 0.9), hit("A", 50000, 60000, 0.1)},
	}

	matches := AggregateClipResults(frames, core.DefaultSearchPolicy())

	require.Len(t, matches, 1)
	assert.Equal(t, 0.9, matches[0].Score)
	assert.Equal(t, int64(1000), matches[0].EndTime)
}

func TestAggregateClipResultsTieBreaksByName(t *testing.T) {
	frames := [][]core.ScoredResult{
		{hit("zebra", 0, 1000, 0.8), hit("apple", 0, 1000, 0.8)},
	}

	matches := AggregateClipResults(frames, core.DefaultSearchPolicy())

	require.Len(t, matches, 1)
	assert.Equal(t, "apple", matches[0].VideoName)
}

func TestAggregateClipResultsNoFrames(t *testing.T) {
	matches := AggregateClipResults(nil, core.DefaultSearchPolicy())
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

// fakeExtractor 写出固定内容的帧文件
type fakeExtractor struct {
	frames    []string
	err       error
	framesDir string
	fps       int
	maxFrames int
}

func (f *fakeExtractor) ExtractFrames(ctx context.Context, videoPath, framesDir string, fps, maxFrames int) ([]string, error) {
	f.framesDir, f.fps, f.maxFrames = framesDir, fps, maxFrames
	if f.err != nil {
		return nil, f.err
	}
	if _, err := os.Stat(videoPath); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(framesDir, 0755); err != nil {
		return nil, err
	}
	var paths []string
	for i, content := range f.frames {
		p := filepath.Join(framesDir, fmt.Sprintf("%03d.png", i+1))
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// fakeImageSearcher 按帧内容返回结果，并发安全
type fakeImageSearcher struct {
	mu      sync.Mutex
	results map[string][]core.ScoredResult
	fail    map[string]bool
	calls   int
}

func (f *fakeImageSearcher) SearchImage(ctx context.Context, index, payload string) ([]core.ScoredResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, err
	}
	if f.fail[string(raw)] {
		return nil, errBoom
	}
	return f.results[string(raw)], nil
}

func newClipFixture(t *testing.T, extractor FrameExtractor, images ImageSearcher) (*ClipSearcher, string) {
	t.Helper()
	blobs := storage.NewFileBlobStore(t.TempDir())
	require.NoError(t, blobs.Put(context.Background(), "clips", "sample.mp4", []byte("fake video"), "video/mp4"))

	tmp := t.TempDir()
	return NewClipSearcher(ClipSearcherOptions{
		Blobs:     blobs,
		Bucket:    "clips",
		Extractor: extractor,
		Images:    images,
		TmpDir:    tmp,
		Policy:    core.DefaultSearchPolicy(),
		Log:       quietLogger(),
	}), tmp
}

func TestSearchClipAggregatesFrames(t *testing.T) {
	extractor := &fakeExtractor{frames: []string{"f1", "f2"}}
	images := &fakeImageSearcher{results: map[string][]core.ScoredResult{
		"f1": {hit("B", 1000, 2000, 0.9)},
		"f2": {hit("B", 2000, 3000, 0.8)},
	}}
	s, tmp := newClipFixture(t, extractor, images)

	matches, err := s.SearchClip(context.Background(), "shots", "sample.mp4")
	require.NoError(t, err)

	require.Len(t, matches, 1)
	assert.Equal(t, "B", matches[0].VideoName)
	assert.InDelta(t, 0.85, matches[0].Score, 1e-9)
	assert.Equal(t, 2, matches[0].OccurrenceCount)
	assert.Equal(t, 2, images.calls)
	assert.Equal(t, 1, extractor.fps)
	assert.Equal(t, 10, extractor.maxFrames)

	// 临时目录已清理
	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoDirExists(t, extractor.framesDir)
}

func TestSearchClipPartialFrameFailureScoresZero(t *testing.T) {
	extractor := &fakeExtractor{frames: []string{"ok", "bad"}}
	images := &fakeImageSearcher{
		results: map[string][]core.ScoredResult{"ok": {hit("A", 0, 1000, 0.9)}},
		fail:    map[string]bool{"bad": true},
	}
	s, _ := newClipFixture(t, extractor, images)

	matches, err := s.SearchClip(context.Background(), "shots", "sample.mp4")
	require.NoError(t, err)
	// 0.9 / 2 = 0.45 < 0.75
	assert.Empty(t, matches)
}

func TestSearchClipAllFramesFail(t *testing.T) {
	extractor := &fakeExtractor{frames: []string{"bad1", "bad2"}}
	images := &fakeImageSearcher{fail: map[string]bool{"bad1": true, "bad2": true}}
	s, tmp := newClipFixture(t, extractor, images)

	_, err := s.SearchClip(context.Background(), "shots", "sample.mp4")
	assert.ErrorIs(t, err, errBoom)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSearchClipNoFrames(t *testing.T) {
	images := &fakeImageSearcher{}
	s, _ := newClipFixture(t, &fakeExtractor{}, images)

	matches, err := s.SearchClip(context.Background(), "shots", "sample.mp4")
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
	assert.Zero(t, images.calls)
}

func TestSearchClipMissingObject(t *testing.T) {
	s, tmp := newClipFixture(t, &fakeExtractor{}, &fakeImageSearcher{})

	_, err := s.SearchClip(context.Background(), "shots", "missing.mp4")
	assert.ErrorIs(t, err, core.ErrInvalidQuery)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSearchClipExtractorFailure(t *testing.T) {
	s, _ := newClipFixture(t, &fakeExtractor{err: errBoom}, &fakeImageSearcher{})

	_, err := s.SearchClip(context.Background(), "shots", "sample.mp4")
	assert.ErrorIs(t, err, errBoom)
}
