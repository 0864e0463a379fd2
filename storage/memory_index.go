package storage

import (
	"context"
	"sync"

	"videoSearch/core"
)

// ---------------- Memory implementation ----------------

type MemoryShotIndex struct {
	mu          sync.RWMutex
	collections map[string]map[string]core.Shot // collection -> docID -> shot
}

func NewMemoryShotIndex() *MemoryShotIndex {
	return &MemoryShotIndex{collections: map[string]map[string]core.Shot{}}
}

func (s *MemoryShotIndex) Upsert(ctx context.Context, collection string, shots []core.Shot) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.collections[collection]
	if !ok {
		docs = map[string]core.Shot{}
		s.collections[collection] = docs
	}
	for _, shot := range shots {
		docs[shot.DocumentID()] = shot
	}
	return len(shots), nil
}

func (s *MemoryShotIndex) Search(ctx context.Context, collection string, q *core.ShotQuery) ([]core.ScoredResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collections[collection]
	hits := make([]core.ScoredResult, 0, len(docs))

	if q.IsKNN() {
		for _, shot := range docs {
			v := shotVector(shot, q.KNN.Field)
			if len(v) == 0 {
				continue
			}
			hits = append(hits, shot.Result(core.KNNScore(cosineSimilarity(q.KNN.Vector, v))))
		}
		sortHits(hits)
		hits = truncateHits(hits, q.KNN.K)
		return truncateHits(hits, q.Size), nil
	}

	for _, shot := range docs {
		r := shot.Result(0)
		if !matchesPhrases(r, q.Must) {
			continue
		}
		matched := 0
		for _, c := range q.Should {
			v := shotVector(shot, c.Field)
			if len(v) == 0 {
				continue
			}
			matched++
			r.Score += c.Boost * core.ScriptScore(cosineSimilarity(c.Vector, v))
		}
		if matched < q.MinimumShouldMatch {
			continue
		}
		hits = append(hits, r)
	}
	sortHits(hits)
	return truncateHits(hits, q.Size), nil
}

func (s *MemoryShotIndex) Close() error { return nil }
