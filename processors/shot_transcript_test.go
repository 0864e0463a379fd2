package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"videoSearch/core"
)

func TestShotTranscriptOverlap(t *testing.T) {
	segments := []core.SubtitleSegment{
		{StartTime: 0, EndTime: 1200, Sentence: "before"},     // 200ms 重叠
		{StartTime: 1000, EndTime: 3000, Sentence: "inside"},  // 完全覆盖
		{StartTime: 4500, EndTime: 6000, Sentence: "edge"},    // 500ms 重叠
		{StartTime: 5000, EndTime: 7000, Sentence: "after"},   // 开始于镜头结束
		{StartTime: 9000, EndTime: 9500, Sentence: "too late"},
	}

	got := ShotTranscript(1000, 5000, segments)

	assert.Equal(t, "inside; edge; ", got)
}

func TestShotTranscriptNoSegments(t *testing.T) {
	assert.Equal(t, "", ShotTranscript(0, 1000, nil))
}

func TestNormalizeFigureNames(t *testing.T) {
	assert.Equal(t, "Alice, Bob", NormalizeFigureNames("Bob, Alice,,  ", " Alice"))
	assert.Equal(t, "", NormalizeFigureNames(" , ,"))
	assert.Equal(t, "Carol", NormalizeFigureNames("Carol"))
}
