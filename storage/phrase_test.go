package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videoSearch/core"
)

func TestPhraseTokens(t *testing.T) {
	assert.Equal(t, []string{"alice", "cooper", "s", "band"}, phraseTokens("Alice Cooper's band!"))
	assert.Equal(t, []string{"50", "off"}, phraseTokens("50%_off"))
	assert.Equal(t, []string{"小", "猫", "cat"}, phraseTokens("小猫cat"))
	assert.Empty(t, phraseTokens(" ?! "))
}

func TestContainsPhraseIsWordBounded(t *testing.T) {
	tests := []struct {
		text   string
		phrase string
		want   bool
	}{
		{"a category of toys", "cat", false},
		{"Alice Cooper", "Al", false},
		{"the black cat sleeps", "cat", true},
		{"the black cat sleeps", "Black Cat", true},
		{"black, cat", "black cat", true},
		{"black dog cat", "black cat", false},
		{"一只小猫在睡觉", "小猫", true},
		{"一只小狗", "小猫", false},
		{"anything", "?!", false},
	}
	for _, tt := range tests {
		got := containsPhrase(tt.text, phraseTokens(tt.phrase))
		assert.Equal(t, tt.want, got, "%q in %q", tt.phrase, tt.text)
	}
}

func TestMemoryIndexPhraseRejectsPartialWords(t *testing.T) {
	idx := NewMemoryShotIndex()
	_, err := idx.Upsert(context.Background(), "shots", []core.Shot{
		{VideoName: "v1", ShotID: "1", Description: "a category of toys", DescVector: []float32{1, 0}},
		{VideoName: "v2", ShotID: "1", Description: "Alice Cooper on stage", DescVector: []float32{1, 0}},
		{VideoName: "v3", ShotID: "1", Description: "a cat on stage", DescVector: []float32{1, 0}},
	})
	require.NoError(t, err)

	q := textQuery([]float32{1, 0})
	q.Must = []core.PhraseClause{{Phrase: "cat", Fields: core.PhraseFields}}
	hits, err := idx.Search(context.Background(), "shots", q)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "v3", hits[0].VideoName)

	q.Must = []core.PhraseClause{{Phrase: "Al", Fields: core.PhraseFields}}
	hits, err = idx.Search(context.Background(), "shots", q)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFilterPhrases(t *testing.T) {
	hits := []core.ScoredResult{
		{VideoName: "v1", Description: "category"},
		{VideoName: "v2", Transcript: "my cat"},
	}
	must := []core.PhraseClause{{Phrase: "cat", Fields: core.PhraseFields}}

	out := filterPhrases(hits, must)
	require.Len(t, out, 1)
	assert.Equal(t, "v2", out[0].VideoName)
	assert.Len(t, filterPhrases([]core.ScoredResult{{VideoName: "v1"}}, nil), 1)
}

func TestPgPhrasePattern(t *testing.T) {
	assert.Equal(t, `(^|[^[:alnum:]])black[^[:alnum:]]+cat([^[:alnum:]]|$)`, pgPhrasePattern([]string{"black", "cat"}))
	assert.Equal(t, `小[^[:alnum:]]*猫`, pgPhrasePattern([]string{"小", "猫"}))
	assert.Equal(t, `小[^[:alnum:]]*cat([^[:alnum:]]|$)`, pgPhrasePattern([]string{"小", "cat"}))
}
