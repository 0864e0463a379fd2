package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videoSearch/core"
)

func TestDeduplicateMergesNearbySegments(t *testing.T) {
	a := result("v1", 0, 10000, 0.9)
	a.Description = "a man walks"
	a.Transcript = "hello"
	b := result("v1", 15000, 20000, 0.85)
	b.Description = "a man runs"
	b.Transcript = "world"
	far := result("v1", 100000, 110000, 0.89)

	out := DeduplicateByVideo([]core.ScoredResult{a, b, far}, core.DefaultSearchPolicy())

	require.Len(t, out, 1)
	assert.Equal(t, int64(0), out[0].StartTime)
	assert.Equal(t, int64(20000), out[0].EndTime)
	assert.Equal(t, 0.9, out[0].Score)
	assert.Equal(t, "a man walks | a man runs", out[0].Description)
	assert.Equal(t, "hello world", out[0].Transcript)
}

func TestDeduplicateDropsLowScoreNeighbour(t *testing.T) {
	best := result("v1", 0, 10000, 1.0)
	weak := result("v1", 12000, 14000, 0.79)

	out := DeduplicateByVideo([]core.ScoredResult{weak, best}, core.DefaultSearchPolicy())

	require.Len(t, out, 1)
	assert.Equal(t, int64(0), out[0].StartTime)
	assert.Equal(t, int64(10000), out[0].EndTime)
}

func TestDeduplicateOneResultPerVideoSortedByScore(t *testing.T) {
	in := []core.ScoredResult{
		result("v1", 0, 1000, 0.6),
		result("v2", 0, 1000, 0.95),
		result("v1", 2000, 3000, 0.7),
		result("v3", 0, 1000, 0.8),
	}

	out := DeduplicateByVideo(in, core.DefaultSearchPolicy())

	require.Len(t, out, 3)
	assert.Equal(t, []string{"v2", "v3", "v1"}, []string{out[0].VideoName, out[1].VideoName, out[2].VideoName})
	assert.Equal(t, 0.7, out[2].Score)
	assert.Equal(t, int64(0), out[2].StartTime)
	assert.Equal(t, int64(3000), out[2].EndTime)
}

func TestDeduplicateKeepsTranscriptFromNonEmptySide(t *testing.T) {
	a := result("v1", 0, 1000, 0.9)
	b := result("v1", 1000, 2000, 0.9)
	b.Transcript = "only here"

	out := DeduplicateByVideo([]core.ScoredResult{a, b}, core.DefaultSearchPolicy())

	require.Len(t, out, 1)
	assert.Equal(t, "only here", out[0].Transcript)
	// 相同描述不重复拼接
	assert.Equal(t, "", out[0].Description)
}

func TestDeduplicateDoesNotMutateInput(t *testing.T) {
	in := []core.ScoredResult{
		result("v1", 15000, 20000, 0.85),
		result("v1", 0, 10000, 0.9),
	}
	snapshot := append([]core.ScoredResult(nil), in...)

	DeduplicateByVideo(in, core.DefaultSearchPolicy())

	assert.Equal(t, snapshot, in)
}

func TestDeduplicateEmpty(t *testing.T) {
	out := DeduplicateByVideo(nil, core.DefaultSearchPolicy())
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestTimeGap(t *testing.T) {
	assert.Equal(t, int64(5000), timeGap(0, 10000, 15000, 20000))
	assert.Equal(t, int64(5000), timeGap(15000, 20000, 0, 10000))
	assert.Equal(t, int64(0), timeGap(0, 1000, 1000, 2000))
}
