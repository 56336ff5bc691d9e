package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Yashshah0502/Expense-AI/internal/core/domain"
)

func newStoreWithMock(t *testing.T) (*ChunkStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ChunkStore{db: db}, mock, func() { _ = db.Close() }
}

func chunkRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"doc_name", "chunk_index", "content", "page", "org", "policy_type", "section", "score"})
}

func TestSearchAppliesFilters(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("content_tsv @@").
		WithArgs("per diem", "ASU", "travel", 30).
		WillReturnRows(chunkRows().
			AddRow("ASU.pdf", 4, "Meal per diem is $59 per day.", 12, "ASU", "travel", "5.2", 0.31).
			AddRow("ASU.pdf", 5, "Lodging requires receipts.", 13, "ASU", "travel", "5.3", 0.12))

	got, err := store.Search(context.Background(), "per diem", domain.Filters{Org: "ASU", PolicyType: "travel"}, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	first := got[0]
	if first.DocName != "ASU.pdf" || first.ChunkIndex != 4 || first.Page != 12 || first.Org != "ASU" {
		t.Fatalf("unexpected candidate: %+v", first)
	}
	if first.Score != 0.31 {
		t.Fatalf("expected ts_rank score 0.31, got %v", first.Score)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchWithoutFilters(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("content_tsv @@").
		WithArgs("per diem", 5).
		WillReturnRows(chunkRows())

	got, err := store.Search(context.Background(), "per diem", domain.Filters{}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %d", len(got))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestNearestAppliesSameFilters(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("embedding <=>").
		WithArgs("[0.1,0.2,0.3]", "ASU", "travel", 30).
		WillReturnRows(chunkRows().
			AddRow("ASU.pdf", 4, "Meal per diem is $59 per day.", 12, "ASU", "travel", "5.2", 0.83))

	got, err := store.Nearest(context.Background(), []float32{0.1, 0.2, 0.3}, domain.Filters{Org: "ASU", PolicyType: "travel"}, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	// The query reports 1 - cosine distance, so the scanned score is already
	// a similarity.
	if got[0].Score != 0.83 {
		t.Fatalf("expected similarity 0.83, got %v", got[0].Score)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestNearestRequiresEmbeddedRows(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("embedding IS NOT NULL").
		WithArgs("[1]", 5).
		WillReturnRows(chunkRows())

	if _, err := store.Nearest(context.Background(), []float32{1}, domain.Filters{}, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchWrapsQueryError(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("content_tsv @@").
		WithArgs("per diem", 5).
		WillReturnError(errors.New("connection refused"))

	_, err := store.Search(context.Background(), "per diem", domain.Filters{}, 5)
	if err == nil || !strings.Contains(err.Error(), "keyword search") {
		t.Fatalf("expected wrapped keyword search error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestVectorLiteral(t *testing.T) {
	got := vectorLiteral([]float32{0.1, -0.25, 1})
	if got != "[0.1,-0.25,1]" {
		t.Fatalf("unexpected literal: %q", got)
	}
	if empty := vectorLiteral(nil); empty != "[]" {
		t.Fatalf("unexpected empty literal: %q", empty)
	}
}
