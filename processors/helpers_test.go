package processors

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"videoSearch/core"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// fakeEmbedder 按输入返回固定向量，未登记的输入返回 fallback
type fakeEmbedder struct {
	mu       sync.Mutex
	text     map[string][]float32
	image    map[string][]float32
	fallback []float32
	err      error
	texts    []string
	images   []string
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.text[text]; ok {
		return v, nil
	}
	return f.fallback, nil
}

func (f *fakeEmbedder) EmbedImage(ctx context.Context, b64 string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images = append(f.images, b64)
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.image[b64]; ok {
		return v, nil
	}
	return f.fallback, nil
}

type fakeReranker struct {
	results []core.RerankResult
	err     error
	calls   int
	topN    int
	docs    []core.RerankDocument
	query   string
}

func (f *fakeReranker) Rerank(ctx context.Context, query string, docs []core.RerankDocument, topN int) ([]core.RerankResult, error) {
	f.calls++
	f.topN = topN
	f.docs = docs
	f.query = query
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

var errBoom = errors.New("boom")

func result(video string, start, end int64, score float64) core.ScoredResult {
	return core.ScoredResult{
		VideoName: video,
		ShotID:    video + "-" + string(rune('a'+start/1000%26)),
		StartTime: start,
		EndTime:   end,
		Score:     score,
	}
}
