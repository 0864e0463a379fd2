package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videoSearch/core"
)

func TestHTTPReranker(t *testing.T) {
	var got rerankRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"results":[{"index":1,"relevance_score":0.9},{"index":0,"relevance_score":0.2}]}`)
	}))
	defer srv.Close()

	rr := NewHTTPReranker(srv.URL, "key", "rerank-v1", time.Second)
	docs := []core.RerankDocument{
		{Description: "a cat", Transcript: "meow"},
		{Description: "a dog", PublicFigures: "Bob"},
	}

	results, err := rr.Rerank(context.Background(), "dog", docs, 2)
	require.NoError(t, err)

	assert.Equal(t, []core.RerankResult{{Index: 1, RelevanceScore: 0.9}, {Index: 0, RelevanceScore: 0.2}}, results)
	assert.Equal(t, "rerank-v1", got.Model)
	assert.Equal(t, "dog", got.Query)
	assert.Equal(t, 2, got.TopN)
	assert.False(t, got.ReturnDocuments)
	require.Len(t, got.Documents, 2)
	assert.JSONEq(t, `{"shot_description":"a cat","shot_publicFigures":"","shot_privateFigures":"","shot_transcript":"meow"}`, got.Documents[0])
}

func TestHTTPRerankerEmptyDocsSkipsCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	results, err := NewHTTPReranker(srv.URL, "", "m", 0).Rerank(context.Background(), "q", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.False(t, called)
}

func TestHTTPRerankerStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewHTTPReranker(srv.URL, "", "m", time.Second).Rerank(context.Background(), "q",
		[]core.RerankDocument{{Description: "x"}}, 1)
	assert.ErrorIs(t, err, core.ErrUpstream)
	assert.Contains(t, err.Error(), "429")
}
