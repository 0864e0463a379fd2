package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"

	"videoSearch/core"
)

// ---------------- PgVector implementation ----------------

// PgVectorShotIndex 所有集合共用 video_shots 表，按 collection 列隔离
type PgVectorShotIndex struct {
	pool *pgxpool.Pool
	dim  int
	log  logrus.FieldLogger
}

var pgColumns = map[string]string{
	core.FieldJobID:            "job_id",
	core.FieldVideoName:        "video_name",
	core.FieldShotID:           "shot_id",
	core.FieldStartTime:        "start_time",
	core.FieldEndTime:          "end_time",
	core.FieldDescription:      "description",
	core.FieldPublicFigures:    "public_figures",
	core.FieldPrivateFigures:   "private_figures",
	core.FieldTranscript:       "transcript",
	core.FieldDescVector:       "desc_vector",
	core.FieldImageVector:      "image_vector",
	core.FieldTranscriptVector: "transcript_vector",
}

const pgSelectFields = "job_id, video_name, shot_id, start_time, end_time, description, public_figures, private_figures, transcript"

func NewPgVectorShotIndex(ctx context.Context, dbURL string, dim int, log logrus.FieldLogger) (*PgVectorShotIndex, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PgVectorShotIndex{pool: pool, dim: dim, log: log}
	if err := s.ensureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PgVectorShotIndex) ensureTable(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector;"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	tableQuery := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS video_shots (
			collection VARCHAR(255) NOT NULL,
			doc_id VARCHAR(512) NOT NULL,
			job_id VARCHAR(255) NOT NULL,
			video_name VARCHAR(500) NOT NULL,
			shot_id VARCHAR(255) NOT NULL,
			start_time BIGINT NOT NULL,
			end_time BIGINT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			public_figures TEXT NOT NULL DEFAULT '',
			private_figures TEXT NOT NULL DEFAULT '',
			transcript TEXT NOT NULL DEFAULT '',
			desc_vector vector(%[1]d),
			image_vector vector(%[1]d),
			transcript_vector vector(%[1]d),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (collection, doc_id)
		);
	`, s.dim)
	if _, err := s.pool.Exec(ctx, tableQuery); err != nil {
		return fmt.Errorf("failed to create video_shots table: %w", err)
	}

	for _, col := range []string{"desc_vector", "image_vector", "transcript_vector"} {
		q := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_video_shots_%[1]s ON video_shots USING hnsw (%[1]s vector_cosine_ops);", col)
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", col, err)
		}
	}
	return nil
}

func (s *PgVectorShotIndex) Upsert(ctx context.Context, collection string, shots []core.Shot) (int, error) {
	if len(shots) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, shot := range shots {
		batch.Queue(`
			INSERT INTO video_shots (collection, doc_id, job_id, video_name, shot_id, start_time, end_time,
				description, public_figures, private_figures, transcript, desc_vector, image_vector, transcript_vector)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (collection, doc_id) DO UPDATE SET
				job_id = EXCLUDED.job_id, video_name = EXCLUDED.video_name, shot_id = EXCLUDED.shot_id,
				start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time,
				description = EXCLUDED.description, public_figures = EXCLUDED.public_figures,
				private_figures = EXCLUDED.private_figures, transcript = EXCLUDED.transcript,
				desc_vector = EXCLUDED.desc_vector, image_vector = EXCLUDED.image_vector,
				transcript_vector = EXCLUDED.transcript_vector`,
			collection, shot.DocumentID(), shot.JobID, shot.VideoName, shot.ShotID, shot.StartTime, shot.EndTime,
			shot.Description, shot.PublicFigures, shot.PrivateFigures, shot.Transcript,
			nullableVector(shot.DescVector), nullableVector(shot.ImageVector), nullableVector(shot.TranscriptVector),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	n := 0
	for range shots {
		if _, err := br.Exec(); err != nil {
			return n, core.Upstream("pgvector", fmt.Errorf("upsert shot: %w", err))
		}
		n++
	}
	return n, nil
}

func nullableVector(v []float32) *pgvector.Vector {
	if len(v) == 0 {
		return nil
	}
	vec := pgvector.NewVector(v)
	return &vec
}

// Search 相似度: 1 + cos = 2 - (a <=> q)
func (s *PgVectorShotIndex) Search(ctx context.Context, collection string, q *core.ShotQuery) ([]core.ScoredResult, error) {
	sql, args, err := buildPgSearch(collection, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, core.Upstream("pgvector", fmt.Errorf("search: %w", err))
	}
	defer rows.Close()

	var hits []core.ScoredResult
	for rows.Next() {
		var r core.ScoredResult
		if err := rows.Scan(&r.JobID, &r.VideoName, &r.ShotID, &r.StartTime, &r.EndTime,
			&r.Description, &r.PublicFigures, &r.PrivateFigures, &r.Transcript, &r.Score); err != nil {
			return nil, fmt.Errorf("scan shot: %w", err)
		}
		hits = append(hits, r)
	}
	if err := rows.Err(); err != nil {
		return nil, core.Upstream("pgvector", err)
	}
	return hits, nil
}

// buildPgSearch 把结构化查询翻译为 SQL
func buildPgSearch(collection string, q *core.ShotQuery) (string, []any, error) {
	args := []any{collection}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.IsKNN() {
		col, ok := pgColumns[q.KNN.Field]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown vector field %s", core.ErrInvalidQuery, q.KNN.Field)
		}
		vec := arg(pgvector.NewVector(q.KNN.Vector))
		limit := q.KNN.K
		if q.Size > 0 && q.Size < limit {
			limit = q.Size
		}
		sql := fmt.Sprintf(`SELECT %s, (2 - (%s <=> %s)) / 2 AS score FROM video_shots
			WHERE collection = $1 AND %s IS NOT NULL
			ORDER BY %s <=> %s, doc_id LIMIT %s`,
			pgSelectFields, col, vec, col, col, vec, arg(limit))
		return sql, args, nil
	}

	var terms, present []string
	for _, c := range q.Should {
		col, ok := pgColumns[c.Field]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown vector field %s", core.ErrInvalidQuery, c.Field)
		}
		vec := arg(pgvector.NewVector(c.Vector))
		terms = append(terms, fmt.Sprintf("%s * COALESCE(2 - (%s <=> %s), 0)", arg(c.Boost), col, vec))
		present = append(present, col+" IS NOT NULL")
	}
	if len(terms) == 0 {
		return "", nil, fmt.Errorf("%w: no similarity clause", core.ErrInvalidQuery)
	}

	where := []string{"collection = $1"}
	if q.MinimumShouldMatch > 0 {
		where = append(where, "("+strings.Join(present, " OR ")+")")
	}
	for _, p := range q.Must {
		tokens := phraseTokens(p.Phrase)
		if len(tokens) == 0 {
			where = append(where, "FALSE")
			continue
		}
		pattern := arg(pgPhrasePattern(tokens))
		var ors []string
		for _, f := range p.Fields {
			if col, ok := pgColumns[f]; ok {
				ors = append(ors, fmt.Sprintf("%s ~* %s", col, pattern))
			}
		}
		if len(ors) > 0 {
			where = append(where, "("+strings.Join(ors, " OR ")+")")
		}
	}

	sql := fmt.Sprintf(`SELECT %s, (%s) AS score FROM video_shots
		WHERE %s
		ORDER BY score DESC, doc_id LIMIT %s`,
		pgSelectFields, strings.Join(terms, " + "), strings.Join(where, " AND "), arg(q.Size))
	return sql, args, nil
}

func (s *PgVectorShotIndex) Close() error {
	s.pool.Close()
	return nil
}
