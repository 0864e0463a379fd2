package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/sirupsen/logrus"

	"videoSearch/core"
)

const (
	milvusDocID         = "doc_id"
	milvusMaxTextLength = 65535
	defaultHNSWEf       = 74
)

// MilvusOptions Milvus / Zilliz Cloud 连接参数
type MilvusOptions struct {
	Address  string
	Username string
	Password string
	APIKey   string // Zilliz Cloud
	Dim      int
}

// ---------------- Milvus implementation ----------------

// MilvusShotIndex 每个检索集合对应一个 Milvus collection，三个向量字段各建 HNSW/COSINE 索引
type MilvusShotIndex struct {
	mc  client.Client
	dim int
	log logrus.FieldLogger

	mu    sync.Mutex
	ready map[string]bool
}

func NewMilvusShotIndex(ctx context.Context, opts MilvusOptions, log logrus.FieldLogger) (*MilvusShotIndex, error) {
	if opts.Address == "" {
		opts.Address = "localhost:19530"
	}
	mc, err := client.NewClient(ctx, client.Config{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		APIKey:   opts.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus: %w", err)
	}
	return &MilvusShotIndex{mc: mc, dim: opts.Dim, log: log, ready: map[string]bool{}}, nil
}

// ensureCollection 首次使用时创建 collection 和索引并加载
func (s *MilvusShotIndex) ensureCollection(ctx context.Context, coll string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready[coll] {
		return nil
	}

	has, err := s.mc.HasCollection(ctx, coll)
	if err != nil {
		return core.Upstream("milvus", err)
	}
	if !has {
		schema := entity.NewSchema().WithName(coll).WithDescription("video shots")
		schema.WithField(entity.NewField().WithName(milvusDocID).WithIsPrimaryKey(true).WithDataType(entity.FieldTypeVarChar).WithMaxLength(512))
		for _, name := range []string{core.FieldJobID, core.FieldVideoName, core.FieldShotID} {
			schema.WithField(entity.NewField().WithName(name).WithDataType(entity.FieldTypeVarChar).WithMaxLength(512))
		}
		schema.WithField(entity.NewField().WithName(core.FieldStartTime).WithDataType(entity.FieldTypeInt64))
		schema.WithField(entity.NewField().WithName(core.FieldEndTime).WithDataType(entity.FieldTypeInt64))
		for _, name := range []string{core.FieldDescription, core.FieldPublicFigures, core.FieldPrivateFigures, core.FieldTranscript} {
			schema.WithField(entity.NewField().WithName(name).WithDataType(entity.FieldTypeVarChar).WithMaxLength(milvusMaxTextLength))
		}
		for _, name := range []string{core.FieldDescVector, core.FieldImageVector, core.FieldTranscriptVector} {
			schema.WithField(entity.NewField().WithName(name).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(s.dim)))
		}

		if err := s.mc.CreateCollection(ctx, schema, int32(2)); err != nil {
			return core.Upstream("milvus", fmt.Errorf("create collection %s: %w", coll, err))
		}

		for _, name := range []string{core.FieldDescVector, core.FieldImageVector, core.FieldTranscriptVector} {
			idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 200)
			if err != nil {
				return fmt.Errorf("new hnsw index: %w", err)
			}
			if err := s.mc.CreateIndex(ctx, coll, name, idx, false, client.WithIndexName("idx_"+name)); err != nil {
				return core.Upstream("milvus", fmt.Errorf("create index %s: %w", name, err))
			}
		}
		s.log.WithField("collection", coll).Info("milvus collection created")
	}

	if err := s.mc.LoadCollection(ctx, coll, false); err != nil {
		return core.Upstream("milvus", fmt.Errorf("load collection: %w", err))
	}
	s.ready[coll] = true
	return nil
}

func (s *MilvusShotIndex) Upsert(ctx context.Context, collection string, shots []core.Shot) (int, error) {
	if len(shots) == 0 {
		return 0, nil
	}
	if err := s.ensureCollection(ctx, collection); err != nil {
		return 0, err
	}

	n := len(shots)
	ids := make([]string, 0, n)
	jobIDs := make([]string, 0, n)
	videos := make([]string, 0, n)
	shotIDs := make([]string, 0, n)
	starts := make([]int64, 0, n)
	ends := make([]int64, 0, n)
	descs := make([]string, 0, n)
	publics := make([]string, 0, n)
	privates := make([]string, 0, n)
	transcripts := make([]string, 0, n)
	descVecs := make([][]float32, 0, n)
	imageVecs := make([][]float32, 0, n)
	transcriptVecs := make([][]float32, 0, n)

	for _, shot := range shots {
		ids = append(ids, shot.DocumentID())
		jobIDs = append(jobIDs, shot.JobID)
		videos = append(videos, shot.VideoName)
		shotIDs = append(shotIDs, shot.ShotID)
		starts = append(starts, shot.StartTime)
		ends = append(ends, shot.EndTime)
		descs = append(descs, shot.Description)
		publics = append(publics, shot.PublicFigures)
		privates = append(privates, shot.PrivateFigures)
		transcripts = append(transcripts, shot.Transcript)
		descVecs = append(descVecs, s.fitDim(shot.DescVector))
		imageVecs = append(imageVecs, s.fitDim(shot.ImageVector))
		transcriptVecs = append(transcriptVecs, s.fitDim(shot.TranscriptVector))
	}

	_, err := s.mc.Upsert(ctx, collection, "",
		entity.NewColumnVarChar(milvusDocID, ids),
		entity.NewColumnVarChar(core.FieldJobID, jobIDs),
		entity.NewColumnVarChar(core.FieldVideoName, videos),
		entity.NewColumnVarChar(core.FieldShotID, shotIDs),
		entity.NewColumnInt64(core.FieldStartTime, starts),
		entity.NewColumnInt64(core.FieldEndTime, ends),
		entity.NewColumnVarChar(core.FieldDescription, descs),
		entity.NewColumnVarChar(core.FieldPublicFigures, publics),
		entity.NewColumnVarChar(core.FieldPrivateFigures, privates),
		entity.NewColumnVarChar(core.FieldTranscript, transcripts),
		entity.NewColumnFloatVector(core.FieldDescVector, s.dim, descVecs),
		entity.NewColumnFloatVector(core.FieldImageVector, s.dim, imageVecs),
		entity.NewColumnFloatVector(core.FieldTranscriptVector, s.dim, transcriptVecs),
	)
	if err != nil {
		return 0, core.Upstream("milvus", fmt.Errorf("upsert: %w", err))
	}
	return n, nil
}

// fitDim 缺失的向量以零向量占位
func (s *MilvusShotIndex) fitDim(v []float32) []float32 {
	if len(v) == s.dim {
		return v
	}
	out := make([]float32, s.dim)
	copy(out, v)
	return out
}

// Search 每个相似度子句单独检索一次，再按文档ID在本地求和
// 某子句未召回的文档该子句记0分
func (s *MilvusShotIndex) Search(ctx context.Context, collection string, q *core.ShotQuery) ([]core.ScoredResult, error) {
	if err := s.ensureCollection(ctx, collection); err != nil {
		return nil, err
	}
	if q.IsKNN() {
		sp, err := hnswSearchParam(q.KNN.K)
		if err != nil {
			return nil, err
		}
		rows, err := s.searchField(ctx, collection, "", q.KNN.Field, q.KNN.Vector, q.KNN.K, sp)
		if err != nil {
			return nil, err
		}
		hits := make([]core.ScoredResult, 0, len(rows))
		for _, row := range rows {
			hits = append(hits, row.result.withScore(core.KNNScore(row.cosine)))
		}
		sortHits(hits)
		return truncateHits(hits, q.Size), nil
	}

	if hasEmptyPhrase(q.Must) {
		return []core.ScoredResult{}, nil
	}
	sp, err := hnswSearchParam(q.Size)
	if err != nil {
		return nil, err
	}
	expr := milvusPhraseExpr(q.Must)
	combined := map[string]*milvusRow{}
	var order []string
	for _, c := range q.Should {
		rows, err := s.searchField(ctx, collection, expr, c.Field, c.Vector, q.Size, sp)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			acc, ok := combined[row.id]
			if !ok {
				acc = &milvusRow{id: row.id, result: row.result}
				combined[row.id] = acc
				order = append(order, row.id)
			}
			acc.score += c.Boost * core.ScriptScore(row.cosine)
		}
	}

	hits := make([]core.ScoredResult, 0, len(order))
	for _, id := range order {
		acc := combined[id]
		hits = append(hits, acc.result.withScore(acc.score))
	}
	// like 只做粗筛，词边界在本地校验
	hits = filterPhrases(hits, q.Must)
	sortHits(hits)
	return truncateHits(hits, q.Size), nil
}

// hnswSearchParam HNSW 要求 ef 不小于 topK
func hnswSearchParam(topK int) (*entity.IndexHNSWSearchParam, error) {
	return entity.NewIndexHNSWSearchParam(max(defaultHNSWEf, topK))
}

type milvusRow struct {
	id     string
	cosine float64
	score  float64
	result milvusResult
}

type milvusResult core.ScoredResult

func (r milvusResult) withScore(score float64) core.ScoredResult {
	out := core.ScoredResult(r)
	out.Score = score
	return out
}

func (s *MilvusShotIndex) searchField(ctx context.Context, coll, expr, field string, vector []float32, topK int, sp entity.SearchParam) ([]milvusRow, error) {
	res, err := s.mc.Search(ctx, coll, []string{}, expr, core.SourceFields,
		[]entity.Vector{entity.FloatVector(vector)}, field, entity.COSINE, topK, sp)
	if err != nil {
		return nil, core.Upstream("milvus", fmt.Errorf("search %s: %w", field, err))
	}

	var rows []milvusRow
	for _, r := range res {
		cols := map[string]entity.Column{}
		for _, c := range r.Fields {
			cols[c.Name()] = c
		}
		ids, _ := r.IDs.(*entity.ColumnVarChar)
		for i := 0; i < r.ResultCount; i++ {
			row := milvusRow{cosine: float64(r.Scores[i])}
			if ids != nil && i < len(ids.Data()) {
				row.id = ids.Data()[i]
			}
			row.result = milvusResult{
				JobID:          varcharAt(cols, core.FieldJobID, i),
				VideoName:      varcharAt(cols, core.FieldVideoName, i),
				ShotID:         varcharAt(cols, core.FieldShotID, i),
				StartTime:      int64At(cols, core.FieldStartTime, i),
				EndTime:        int64At(cols, core.FieldEndTime, i),
				Description:    varcharAt(cols, core.FieldDescription, i),
				PublicFigures:  varcharAt(cols, core.FieldPublicFigures, i),
				PrivateFigures: varcharAt(cols, core.FieldPrivateFigures, i),
				Transcript:     varcharAt(cols, core.FieldTranscript, i),
			}
			if row.id == "" {
				row.id = row.result.VideoName + "-" + row.result.ShotID
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func varcharAt(cols map[string]entity.Column, name string, i int) string {
	if c, ok := cols[name].(*entity.ColumnVarChar); ok {
		if data := c.Data(); i < len(data) {
			return data[i]
		}
	}
	return ""
}

func int64At(cols map[string]entity.Column, name string, i int) int64 {
	if c, ok := cols[name].(*entity.ColumnInt64); ok {
		if data := c.Data(); i < len(data) {
			return data[i]
		}
	}
	return 0
}

// milvusPhraseExpr 短语中每个词都要以 like 命中同一字段（区分大小写）
func milvusPhraseExpr(must []core.PhraseClause) string {
	var clauses []string
	for _, p := range must {
		words := splitWords(p.Phrase)
		if len(words) == 0 {
			continue
		}
		var ors []string
		for _, f := range p.Fields {
			likes := make([]string, 0, len(words))
			for _, w := range words {
				likes = append(likes, fmt.Sprintf(`%s like "%%%s%%"`, f, w))
			}
			ors = append(ors, strings.Join(likes, " && "))
		}
		if len(ors) > 0 {
			clauses = append(clauses, "(("+strings.Join(ors, ") || (")+"))")
		}
	}
	return strings.Join(clauses, " && ")
}

func (s *MilvusShotIndex) Close() error {
	return s.mc.Close()
}
