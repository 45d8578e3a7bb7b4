package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"visit-dashboard-service/internal/documents/core/domain"
	"visit-dashboard-service/internal/documents/core/ports"
)

// fakeResult implements sql.Result for tests.
type fakeResult struct {
	rowsAffected int64
}

func (f *fakeResult) LastInsertId() (int64, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeResult) RowsAffected() (int64, error) {
	return f.rowsAffected, nil
}

// fakeRowScanner implements RowScanner for tests.
type fakeRowScanner struct {
	rows [][]any
	i    int
	err  error
}

func (f *fakeRowScanner) Next() bool {
	return f.i < len(f.rows)
}

func (f *fakeRowScanner) Scan(dest ...any) error {
	if f.i >= len(f.rows) {
		return errors.New("no more rows")
	}
	row := f.rows[f.i]
	if len(dest) != len(row) {
		return errors.New("dest length mismatch")
	}
	for i := range dest {
		switch d := dest[i].(type) {
		case *string:
			*d = row[i].(string)
		case *[]byte:
			*d = row[i].([]byte)
		case *time.Time:
			*d = row[i].(time.Time)
		case *int64:
			*d = row[i].(int64)
		case *bool:
			*d = row[i].(bool)
		default:
			return errors.New("unsupported dest type")
		}
	}
	f.i++
	return nil
}

func (f *fakeRowScanner) Err() error {
	return f.err
}

func (f *fakeRowScanner) Close() error {
	return nil
}

// fakeDB implements DB interface for tests.
type fakeDB struct {
	ExecFn    func(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryFn   func(ctx context.Context, query string, args ...any) (RowScanner, error)
	lastQuery string
	lastArgs  []any
}

func (f *fakeDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f.lastQuery = query
	f.lastArgs = args
	if f.ExecFn != nil {
		return f.ExecFn(ctx, query, args...)
	}
	return &fakeResult{rowsAffected: 1}, nil
}

func (f *fakeDB) QueryContext(ctx context.Context, query string, args ...any) (RowScanner, error) {
	f.lastQuery = query
	f.lastArgs = args
	if f.QueryFn != nil {
		return f.QueryFn(ctx, query, args...)
	}
	return &fakeRowScanner{}, nil
}

func wishlistCollection(t *testing.T) domain.Collection {
	t.Helper()
	c, ok := domain.LookupCollection("wishlist")
	if !ok {
		t.Fatalf("wishlist collection not registered")
	}
	return c
}

// ------------------------------------------------------------
// INSERT
// ------------------------------------------------------------

func TestDocumentRepository_Insert(t *testing.T) {
	db := &fakeDB{}
	repo := NewDocumentRepository(db)

	now := time.Now().UTC()
	d := &domain.Document{
		ID:         "doc-1",
		Collection: "wishlist",
		Fields:     map[string]any{"title": "Central Park", "completed": false},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := repo.Insert(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(db.lastQuery, "INSERT INTO documents") {
		t.Fatalf("unexpected query: %s", db.lastQuery)
	}
	if len(db.lastArgs) != 5 {
		t.Fatalf("expected 5 args, got %d", len(db.lastArgs))
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(db.lastArgs[2].(string)), &data); err != nil {
		t.Fatalf("data arg is not json: %v", err)
	}
	if data["title"] != "Central Park" {
		t.Fatalf("unexpected data: %v", data)
	}
}

func TestDocumentRepository_InsertBatchSingleStatement(t *testing.T) {
	calls := 0
	db := &fakeDB{
		ExecFn: func(ctx context.Context, query string, args ...any) (sql.Result, error) {
			calls++
			return &fakeResult{rowsAffected: int64(len(args) / 5)}, nil
		},
	}
	repo := NewDocumentRepository(db)

	now := time.Now().UTC()
	docs := []*domain.Document{
		{ID: "a", Collection: "wishlist", Fields: map[string]any{"title": "Pizza"}, CreatedAt: now, UpdatedAt: now},
		{ID: "b", Collection: "wishlist", Fields: map[string]any{"title": "Bagels"}, CreatedAt: now, UpdatedAt: now},
		{ID: "c", Collection: "wishlist", Fields: map[string]any{"title": "Coffee"}, CreatedAt: now, UpdatedAt: now},
	}
	if err := repo.Insert(context.Background(), docs...); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one statement, got %d", calls)
	}
	if len(db.lastArgs) != 15 {
		t.Fatalf("expected 15 args, got %d", len(db.lastArgs))
	}
	if !strings.Contains(db.lastQuery, "($11, $12, $13::jsonb, $14, $15)") {
		t.Fatalf("missing third values tuple: %s", db.lastQuery)
	}
	if db.lastArgs[10] != "c" {
		t.Fatalf("unexpected args: %v", db.lastArgs)
	}
}

func TestDocumentRepository_InsertEmpty(t *testing.T) {
	db := &fakeDB{}
	repo := NewDocumentRepository(db)

	if err := repo.Insert(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if db.lastQuery != "" {
		t.Fatalf("expected no statement, got %s", db.lastQuery)
	}
}

// ------------------------------------------------------------
// TOGGLE
// ------------------------------------------------------------

func TestDocumentRepository_ToggleBool(t *testing.T) {
	db := &fakeDB{
		QueryFn: func(ctx context.Context, query string, args ...any) (RowScanner, error) {
			return &fakeRowScanner{rows: [][]any{{"true"}}}, nil
		},
	}
	repo := NewDocumentRepository(db)

	v, err := repo.ToggleBool(context.Background(), "wishlist", "w1", "completed", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v {
		t.Fatalf("expected true")
	}
	if !strings.Contains(db.lastQuery, "NOT COALESCE((data ->> $3::text)::boolean, false)") {
		t.Fatalf("expected single-statement flip, got: %s", db.lastQuery)
	}
	if !strings.Contains(db.lastQuery, "AND (NOT data ? $3::text OR jsonb_typeof(data -> $3::text) IN ('boolean', 'null'))") {
		t.Fatalf("type guard must be parenthesised: %s", db.lastQuery)
	}
	if db.lastArgs[2] != "completed" {
		t.Fatalf("unexpected args: %v", db.lastArgs)
	}
}

func TestDocumentRepository_ToggleBool_NotBoolean(t *testing.T) {
	created := time.Date(2024, 9, 12, 14, 0, 0, 0, time.UTC)
	db := &fakeDB{
		QueryFn: func(ctx context.Context, query string, args ...any) (RowScanner, error) {
			if strings.Contains(query, "UPDATE documents") {
				return &fakeRowScanner{}, nil
			}
			return &fakeRowScanner{rows: [][]any{
				{"d1", "diaryEntries", []byte(`{"favorite":"yes"}`), created, created},
			}}, nil
		},
	}
	repo := NewDocumentRepository(db)

	_, err := repo.ToggleBool(context.Background(), "diaryEntries", "d1", "favorite", time.Now())
	if !errors.Is(err, ports.ErrNotBoolean) {
		t.Fatalf("expected ErrNotBoolean, got %v", err)
	}
}

func TestDocumentRepository_ToggleBool_NotFound(t *testing.T) {
	repo := NewDocumentRepository(&fakeDB{})

	_, err := repo.ToggleBool(context.Background(), "wishlist", "missing", "completed", time.Now())
	if !errors.Is(err, ports.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

// ------------------------------------------------------------
// MERGE / DELETE
// ------------------------------------------------------------

func TestDocumentRepository_Merge_NotFound(t *testing.T) {
	db := &fakeDB{
		ExecFn: func(ctx context.Context, query string, args ...any) (sql.Result, error) {
			return &fakeResult{rowsAffected: 0}, nil
		},
	}
	repo := NewDocumentRepository(db)

	err := repo.Merge(context.Background(), "wishlist", "missing", map[string]any{"completed": true}, time.Now())
	if !errors.Is(err, ports.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if !strings.Contains(db.lastQuery, "data || $3::jsonb") {
		t.Fatalf("expected jsonb merge, got: %s", db.lastQuery)
	}
}

func TestDocumentRepository_Delete_Error(t *testing.T) {
	db := &fakeDB{
		ExecFn: func(ctx context.Context, query string, args ...any) (sql.Result, error) {
			return nil, errors.New("db error")
		},
	}
	repo := NewDocumentRepository(db)

	if err := repo.Delete(context.Background(), "contacts", "c1"); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

// ------------------------------------------------------------
// LIST
// ------------------------------------------------------------

func TestDocumentRepository_List_ScansRows(t *testing.T) {
	created := time.Date(2024, 9, 12, 14, 0, 0, 0, time.UTC)
	db := &fakeDB{
		QueryFn: func(ctx context.Context, query string, args ...any) (RowScanner, error) {
			return &fakeRowScanner{rows: [][]any{
				{"a", "wishlist", []byte(`{"title":"Pizza","order":0}`), created, created},
				{"b", "wishlist", []byte(`{"title":"Coffee","order":1}`), created, created.Add(time.Hour)},
			}}, nil
		},
	}
	repo := NewDocumentRepository(db)

	docs, err := repo.List(context.Background(), ports.ListFilter{Collection: wishlistCollection(t)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[1].Fields["title"] != "Coffee" {
		t.Fatalf("unexpected fields: %v", docs[1].Fields)
	}
	if !strings.Contains(db.lastQuery, "ORDER BY NULLIF(data -> $2::text, 'null'::jsonb) ASC NULLS LAST") {
		t.Fatalf("expected order clause, got: %s", db.lastQuery)
	}
	if db.lastArgs[1] != domain.FieldOrder {
		t.Fatalf("expected order field arg, got %v", db.lastArgs[1])
	}
}

func TestBuildListQuery_FilterWithDefault(t *testing.T) {
	query, args, err := buildListQuery(ports.ListFilter{
		Collection: wishlistCollection(t),
		Field:      "type",
		Value:      "wishlist",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(query, "COALESCE(NULLIF(data -> $2::text, 'null'::jsonb), $3::jsonb) = $4::jsonb") {
		t.Fatalf("unexpected filter clause: %s", query)
	}
	if len(args) != 5 {
		t.Fatalf("expected 5 args, got %d (%v)", len(args), args)
	}
	if args[2] != `"wishlist"` || args[3] != `"wishlist"` {
		t.Fatalf("unexpected filter args: %v", args)
	}
	if !strings.Contains(query, "NULLIF(data -> $5::text, 'null'::jsonb) ASC NULLS LAST") {
		t.Fatalf("order param index should follow filter params: %s", query)
	}
}

func TestBuildListQuery_DescendingWithoutDefault(t *testing.T) {
	diary, _ := domain.LookupCollection("diaryEntries")

	query, args, err := buildListQuery(ports.ListFilter{
		Collection: diary,
		Field:      "favorite",
		Value:      true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args[2] != nil {
		t.Fatalf("expected NULL fallback, got %v", args[2])
	}
	if args[3] != "true" {
		t.Fatalf("expected json true, got %v", args[3])
	}
	if !strings.Contains(query, "DESC NULLS LAST") {
		t.Fatalf("expected descending order: %s", query)
	}
}

// ------------------------------------------------------------
// GET / COUNT
// ------------------------------------------------------------

func TestDocumentRepository_Get_NotFound(t *testing.T) {
	repo := NewDocumentRepository(&fakeDB{})

	_, err := repo.Get(context.Background(), "contacts", "nope")
	if !errors.Is(err, ports.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestDocumentRepository_Count(t *testing.T) {
	db := &fakeDB{
		QueryFn: func(ctx context.Context, query string, args ...any) (RowScanner, error) {
			return &fakeRowScanner{rows: [][]any{{int64(6)}}}, nil
		},
	}
	repo := NewDocumentRepository(db)

	n, err := repo.Count(context.Background(), "wishlist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 6 {
		t.Fatalf("expected 6, got %d", n)
	}
}

// ------------------------------------------------------------
// ARRAY FIELDS
// ------------------------------------------------------------

func TestDocumentRepository_AppendToArray(t *testing.T) {
	db := &fakeDB{}
	repo := NewDocumentRepository(db)

	err := repo.AppendToArray(context.Background(), "diaryEntries", "d1", "photos",
		map[string]any{"key": "media/diaryEntries/d1/x.jpg"}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(db.lastQuery, "jsonb_build_array($4::jsonb)") {
		t.Fatalf("unexpected query: %s", db.lastQuery)
	}
	if db.lastArgs[2] != "photos" {
		t.Fatalf("expected field arg photos, got %v", db.lastArgs[2])
	}
}

func TestDocumentRepository_RemoveFromArray_NoMatch(t *testing.T) {
	db := &fakeDB{
		ExecFn: func(ctx context.Context, query string, args ...any) (sql.Result, error) {
			return &fakeResult{rowsAffected: 0}, nil
		},
	}
	repo := NewDocumentRepository(db)

	removed, err := repo.RemoveFromArray(context.Background(), "diaryEntries", "d1", "photos", "key", "k", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed {
		t.Fatalf("expected removed=false")
	}
}

func TestMigrate_ExecutesSchema(t *testing.T) {
	db := &fakeDB{}

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(db.lastQuery, "CREATE TABLE IF NOT EXISTS documents") {
		t.Fatalf("unexpected schema: %s", db.lastQuery)
	}
	if !strings.Contains(db.lastQuery, "pg_notify('"+NotifyChannel+"'") {
		t.Fatalf("schema must notify on %s", NotifyChannel)
	}
}
