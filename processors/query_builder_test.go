package processors

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videoSearch/core"
)

func TestBuildTextQueryWithPhrase(t *testing.T) {
	emb := &fakeEmbedder{fallback: []float32{1, 0, 0}}
	b := NewQueryBuilder(emb, core.DefaultSearchPolicy())

	q, err := b.BuildTextQuery(context.Background(), `"Alice" likes cats`)
	require.NoError(t, err)

	assert.False(t, q.IsKNN())
	assert.Equal(t, 100, q.Size)
	assert.Equal(t, 1, q.MinimumShouldMatch)
	require.Len(t, q.Should, 2)
	assert.Equal(t, core.FieldDescVector, q.Should[0].Field)
	assert.Equal(t, 3.0, q.Should[0].Boost)
	assert.Equal(t, core.FieldTranscriptVector, q.Should[1].Field)
	assert.Equal(t, 1.0, q.Should[1].Boost)
	assert.Equal(t, q.Should[0].Vector, q.Should[1].Vector)

	require.Len(t, q.Must, 1)
	assert.Equal(t, "Alice", q.Must[0].Phrase)
	assert.Equal(t, core.PhraseFields, q.Must[0].Fields)

	// 整个查询文本（含引号）参与向量化
	assert.Equal(t, []string{`"Alice" likes cats`}, emb.texts)
}

func TestBuildTextQueryWithoutPhrase(t *testing.T) {
	b := NewQueryBuilder(&fakeEmbedder{fallback: []float32{1}}, core.DefaultSearchPolicy())

	q, err := b.BuildTextQuery(context.Background(), "a dog on the beach")
	require.NoError(t, err)
	assert.Empty(t, q.Must)
}

func TestBuildTextQueryEmpty(t *testing.T) {
	emb := &fakeEmbedder{}
	b := NewQueryBuilder(emb, core.DefaultSearchPolicy())

	_, err := b.BuildTextQuery(context.Background(), "   ")
	assert.ErrorIs(t, err, core.ErrInvalidQuery)
	assert.Empty(t, emb.texts)
}

func TestBuildTextQueryTruncatesLongInput(t *testing.T) {
	emb := &fakeEmbedder{fallback: []float32{1}}
	policy := core.DefaultSearchPolicy()
	policy.MaxEmbeddingInputChars = 10
	b := NewQueryBuilder(emb, policy)

	_, err := b.BuildTextQuery(context.Background(), strings.Repeat("猫", 25))
	require.NoError(t, err)
	require.Len(t, emb.texts, 1)
	assert.Equal(t, strings.Repeat("猫", 10), emb.texts[0])
}

func TestBuildTextQueryEmbedFailure(t *testing.T) {
	b := NewQueryBuilder(&fakeEmbedder{err: errBoom}, core.DefaultSearchPolicy())

	_, err := b.BuildTextQuery(context.Background(), "anything")
	assert.ErrorIs(t, err, errBoom)
}

func TestBuildImageQuery(t *testing.T) {
	png := base64.StdEncoding.EncodeToString([]byte("\x89PNG fake image bytes"))
	emb := &fakeEmbedder{image: map[string][]float32{png: {0, 1}}}
	b := NewQueryBuilder(emb, core.DefaultSearchPolicy())

	q, err := b.BuildImageQuery(context.Background(), "data:image/png;base64,"+png)
	require.NoError(t, err)

	require.True(t, q.IsKNN())
	assert.Equal(t, core.FieldImageVector, q.KNN.Field)
	assert.Equal(t, 50, q.KNN.K)
	assert.Equal(t, 50, q.Size)
	assert.Equal(t, []float32{0, 1}, q.KNN.Vector)
	assert.Empty(t, q.Should)
	assert.Empty(t, q.Must)
	assert.Equal(t, []string{png}, emb.images)
}

func TestBuildImageQueryInvalidBase64(t *testing.T) {
	emb := &fakeEmbedder{}
	b := NewQueryBuilder(emb, core.DefaultSearchPolicy())

	_, err := b.BuildImageQuery(context.Background(), "not base64 at all!!")
	assert.ErrorIs(t, err, core.ErrInvalidImage)
	assert.Empty(t, emb.images)
}

func TestExtractQuotedPhrases(t *testing.T) {
	assert.Equal(t, []string{"Alice", "Bob Smith"}, ExtractQuotedPhrases(`"Alice" meets "Bob Smith" today`))
	assert.Empty(t, ExtractQuotedPhrases(`no quotes here`))
	assert.Empty(t, ExtractQuotedPhrases(`empty "" and "  " phrases`))
	assert.Empty(t, ExtractQuotedPhrases(`unbalanced "quote`))
}

func TestDecodeImagePayload(t *testing.T) {
	raw := []byte{0xff, 0xfe, 0xfd, 0x01}
	std := base64.StdEncoding.EncodeToString(raw)

	got, err := DecodeImagePayload(std)
	require.NoError(t, err)
	assert.Equal(t, std, got)

	got, err = DecodeImagePayload(base64.RawURLEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, std, got)

	// 缺少填充的标准编码，含 '+' 和 '/'
	got, err = DecodeImagePayload("+//+AQ")
	require.NoError(t, err)
	assert.Equal(t, "+//+AQ==", got)

	_, err = DecodeImagePayload("data:image/png;base64")
	assert.ErrorIs(t, err, core.ErrInvalidImage)

	_, err = DecodeImagePayload("")
	assert.ErrorIs(t, err, core.ErrInvalidImage)
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "abc", TruncateText("abcdef", 3))
	assert.Equal(t, "abc", TruncateText("abc", 3))
	assert.Equal(t, "abcdef", TruncateText("abcdef", 0))
	assert.Equal(t, "视频", TruncateText("视频搜索", 2))
}
