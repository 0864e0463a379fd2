package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// CachedEmbedder 以 Redis 缓存 embedding 结果
// 缓存读写失败只记录日志，不影响主流程
type CachedEmbedder struct {
	next  Embedder
	rdb   redis.Cmdable
	ttl   time.Duration
	model string
	log   logrus.FieldLogger
}

func NewCachedEmbedder(next Embedder, rdb redis.Cmdable, ttl time.Duration, model string, log logrus.FieldLogger) *CachedEmbedder {
	return &CachedEmbedder{next: next, rdb: rdb, ttl: ttl, model: model, log: log}
}

func (c *CachedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return c.cached(ctx, "text", text, func() ([]float32, error) {
		return c.next.EmbedText(ctx, text)
	})
}

func (c *CachedEmbedder) EmbedImage(ctx context.Context, base64Image string) ([]float32, error) {
	return c.cached(ctx, "image", base64Image, func() ([]float32, error) {
		return c.next.EmbedImage(ctx, base64Image)
	})
}

func (c *CachedEmbedder) cached(ctx context.Context, kind, input string, compute func() ([]float32, error)) ([]float32, error) {
	key := c.key(kind, input)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var vec []float32
		if jerr := json.Unmarshal(raw, &vec); jerr == nil {
			return vec, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.log.WithError(err).Warn("embedding cache read failed")
	}

	vec, err := compute()
	if err != nil {
		return nil, err
	}

	if payload, jerr := json.Marshal(vec); jerr == nil {
		if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.log.WithError(err).Warn("embedding cache write failed")
		}
	}
	return vec, nil
}

func (c *CachedEmbedder) key(kind, input string) string {
	sum := sha256.Sum256([]byte(input))
	return "emb:" + kind + ":" + c.model + ":" + hex.EncodeToString(sum[:])
}
