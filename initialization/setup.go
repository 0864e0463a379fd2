package initialization

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"videoSearch/config"
	"videoSearch/processors"
	"videoSearch/storage"
)

// SystemInitializer 按配置组装检索服务的各个组件
type SystemInitializer struct {
	config *config.Config
	log    logrus.FieldLogger
}

// InitializationResult 初始化结果
type InitializationResult struct {
	Config   *config.Config
	Index    storage.ShotIndex
	Embedder storage.Embedder
	Reranker storage.Reranker
	Blobs    storage.BlobStore
	Engine   *processors.SearchEngine
	Indexer  *processors.ShotIndexer

	redis *redis.Client
}

func NewSystemInitializer(cfg *config.Config, log logrus.FieldLogger) *SystemInitializer {
	return &SystemInitializer{config: cfg, log: log}
}

// Initialize 依次初始化目录、存储、向量化、重排序和检索引擎
func (si *SystemInitializer) Initialize(ctx context.Context) (*InitializationResult, error) {
	cfg := si.config
	result := &InitializationResult{Config: cfg}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// 1. 临时目录
	if err := si.CreateDirectories(); err != nil {
		return nil, fmt.Errorf("创建目录失败: %w", err)
	}

	// 2. 对象存储
	blobs, err := storage.NewBlobStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("初始化对象存储失败: %w", err)
	}
	result.Blobs = blobs

	// 3. 向量索引
	index, err := storage.NewShotIndex(ctx, cfg, si.log)
	if err != nil {
		return nil, fmt.Errorf("初始化向量索引失败: %w", err)
	}
	result.Index = index
	si.log.WithField("store", cfg.Store).Info("向量索引初始化完成")

	// 4. 向量化服务（可选 Redis 缓存）
	result.Embedder = si.InitializeEmbedder(ctx, result)

	// 5. 重排序服务
	if cfg.HasReranker() {
		result.Reranker = storage.NewHTTPReranker(cfg.RerankURL, cfg.RerankAPIKey, cfg.RerankModel, cfg.HTTPTimeout())
	} else {
		si.log.Warn("未配置 rerank_url，文本结果保持向量排序")
	}

	result.Engine = processors.NewSearchEngine(processors.EngineOptions{
		Embedder:  result.Embedder,
		Index:     result.Index,
		Reranker:  result.Reranker,
		Blobs:     result.Blobs,
		Bucket:    cfg.ClipBucket,
		Extractor: &processors.FFmpegFrameExtractor{FFmpegPath: cfg.FFmpegPath},
		TmpDir:    cfg.TmpDir,
		Policy:    cfg.Search,
		Log:       si.log,
	})
	result.Indexer = processors.NewShotIndexer(processors.IndexerOptions{
		Blobs:            result.Blobs,
		Embedder:         result.Embedder,
		Index:            result.Index,
		ShotBucket:       cfg.ShotBucket,
		TranscriptBucket: cfg.TranscriptBucket,
		MaxChars:         cfg.Search.MaxEmbeddingInputChars,
		Log:              si.log,
	})

	si.log.Info("系统初始化完成")
	return result, nil
}

// CreateDirectories 创建临时目录
func (si *SystemInitializer) CreateDirectories() error {
	dirs := []string{si.config.TmpDir}
	if si.config.BlobBackend == "file" {
		dirs = append(dirs, si.config.BlobRoot)
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建目录 %s 失败: %w", dir, err)
		}
	}
	return nil
}

// InitializeEmbedder Redis 不可用时退回到直连
func (si *SystemInitializer) InitializeEmbedder(ctx context.Context, result *InitializationResult) storage.Embedder {
	cfg := si.config
	var embedder storage.Embedder = storage.NewOpenAIEmbedder(storage.EmbedderOptions{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		TextModel:  cfg.EmbeddingModel,
		ImageModel: cfg.ImageEmbeddingModel,
		Dim:        cfg.EmbeddingDim,
		Timeout:    cfg.HTTPTimeout(),
	})

	if cfg.RedisAddr == "" {
		return embedder
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		si.log.WithError(err).Warn("Redis 不可用，已禁用向量缓存")
		rdb.Close()
		return embedder
	}
	result.redis = rdb
	si.log.WithField("addr", cfg.RedisAddr).Info("已启用向量缓存")
	return storage.NewCachedEmbedder(embedder, rdb, cfg.CacheTTL(), cfg.EmbeddingModel, si.log)
}

// Cleanup 释放连接
func (r *InitializationResult) Cleanup() error {
	var first error
	if r.Index != nil {
		if err := r.Index.Close(); err != nil {
			first = err
		}
	}
	if r.redis != nil {
		if err := r.redis.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
