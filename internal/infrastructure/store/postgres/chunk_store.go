package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Yashshah0502/Expense-AI/internal/core/domain"
)

// ChunkStore reads the policy_chunks table the ingestion pipeline maintains.
// It never writes; both search modes share one filter builder so a filtered
// keyword search and a filtered vector search see the same slice of the
// corpus.
type ChunkStore struct {
	db *sql.DB
}

func NewChunkStore(db *sql.DB) *ChunkStore {
	return &ChunkStore{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

const chunkColumns = `doc_name, chunk_index, content, COALESCE(page, 0), COALESCE(org, ''), COALESCE(policy_type, ''), COALESCE(section, '')`

// Search runs tsvector full-text search. Scores are ts_rank values, higher
// is better.
func (s *ChunkStore) Search(ctx context.Context, query string, f domain.Filters, k int) ([]domain.Candidate, error) {
	args := []any{query}
	where := []string{"content_tsv @@ plainto_tsquery('english', $1)"}
	where, args = appendFilters(where, args, f)
	args = append(args, k)

	stmt := fmt.Sprintf(`
SELECT %s,
	ts_rank(content_tsv, plainto_tsquery('english', $1)) AS score
FROM policy_chunks
WHERE %s
ORDER BY score DESC, doc_name, chunk_index
LIMIT $%d
`, chunkColumns, strings.Join(where, " AND "), len(args))

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows, "keyword search")
}

// Nearest runs pgvector cosine search over embedded chunks. The reported
// score is 1 - cosine distance so that, like keyword scores, higher is
// better.
func (s *ChunkStore) Nearest(ctx context.Context, vector []float32, f domain.Filters, k int) ([]domain.Candidate, error) {
	args := []any{vectorLiteral(vector)}
	where := []string{"embedding IS NOT NULL"}
	where, args = appendFilters(where, args, f)
	args = append(args, k)

	stmt := fmt.Sprintf(`
SELECT %s,
	1 - (embedding <=> $1::vector) AS score
FROM policy_chunks
WHERE %s
ORDER BY embedding <=> $1::vector ASC
LIMIT $%d
`, chunkColumns, strings.Join(where, " AND "), len(args))

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows, "vector search")
}

func (s *ChunkStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	return nil
}

func appendFilters(where []string, args []any, f domain.Filters) ([]string, []any) {
	if f.Org != "" {
		args = append(args, f.Org)
		where = append(where, fmt.Sprintf("org = $%d", len(args)))
	}
	if f.PolicyType != "" {
		args = append(args, f.PolicyType)
		where = append(where, fmt.Sprintf("policy_type = $%d", len(args)))
	}
	if f.DocName != "" {
		args = append(args, f.DocName)
		where = append(where, fmt.Sprintf("doc_name = $%d", len(args)))
	}
	return where, args
}

func scanCandidates(rows *sql.Rows, operation string) ([]domain.Candidate, error) {
	var out []domain.Candidate
	for rows.Next() {
		var c domain.Candidate
		if err := rows.Scan(
			&c.DocName, &c.ChunkIndex, &c.Content, &c.Page, &c.Org, &c.PolicyType, &c.Section,
			&c.Score,
		); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", operation, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", operation, err)
	}
	return out, nil
}

// vectorLiteral renders a pgvector input literal, e.g. [0.1,0.2,0.3].
func vectorLiteral(vector []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
