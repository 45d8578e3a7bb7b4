package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"visit-dashboard-service/internal/documents/core/domain"
	"visit-dashboard-service/internal/documents/core/ports"
)

type DocumentRepository struct {
	db DB
}

func NewDocumentRepository(db DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

var (
	_ ports.DocumentRepositoryPort = (*DocumentRepository)(nil)
	_ ports.ArrayFieldPort         = (*DocumentRepository)(nil)
)

const selectDocumentsSQL = `
SELECT id, collection, data, created_at, updated_at
FROM documents
WHERE collection = $1`

const getDocumentSQL = selectDocumentsSQL + ` AND id = $2`

const insertDocumentsSQL = `
INSERT INTO documents (
    id,
    collection,
    data,
    created_at,
    updated_at
) VALUES `

const toggleBoolSQL = `
UPDATE documents
SET data = jsonb_set(
        data,
        ARRAY[$3::text],
        to_jsonb(NOT COALESCE((data ->> $3::text)::boolean, false)),
        true
    ),
    updated_at = $4
WHERE collection = $1
  AND id = $2
  AND (NOT data ? $3::text OR jsonb_typeof(data -> $3::text) IN ('boolean', 'null'))
RETURNING data ->> $3::text;
`

const mergeDocumentSQL = `
UPDATE documents
SET data = data || $3::jsonb,
    updated_at = $4
WHERE collection = $1 AND id = $2;
`

const deleteDocumentSQL = `
DELETE FROM documents
WHERE collection = $1 AND id = $2;
`

const countDocumentsSQL = `
SELECT COUNT(*) FROM documents WHERE collection = $1`

const appendToArraySQL = `
UPDATE documents
SET data = jsonb_set(
        data,
        ARRAY[$3::text],
        CASE WHEN jsonb_typeof(data -> $3::text) = 'array'
             THEN data -> $3::text
             ELSE '[]'::jsonb
        END || jsonb_build_array($4::jsonb),
        true
    ),
    updated_at = $5
WHERE collection = $1 AND id = $2;
`

const removeFromArraySQL = `
UPDATE documents
SET data = jsonb_set(
        data,
        ARRAY[$3::text],
        COALESCE(
            (SELECT jsonb_agg(e)
             FROM jsonb_array_elements(data -> $3::text) AS e
             WHERE e ->> $4::text IS DISTINCT FROM $5::text),
            '[]'::jsonb
        )
    ),
    updated_at = $6
WHERE collection = $1
  AND id = $2
  AND jsonb_typeof(data -> $3::text) = 'array'
  AND EXISTS (
      SELECT 1 FROM jsonb_array_elements(data -> $3::text) AS e
      WHERE e ->> $4::text = $5::text
  );
`

func (r *DocumentRepository) List(ctx context.Context, f ports.ListFilter) ([]domain.Document, error) {
	query, args, err := buildListQuery(f)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", f.Collection.Name, err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return docs, nil
}

// buildListQuery only ever interpolates ASC/DESC; field names travel as
// parameters.
func buildListQuery(f ports.ListFilter) (string, []any, error) {
	query := selectDocumentsSQL
	args := []any{f.Collection.Name}
	argIndex := 2

	if f.Field != "" {
		value, err := json.Marshal(f.Value)
		if err != nil {
			return "", nil, fmt.Errorf("encode filter value: %w", err)
		}

		var fallback any
		if def, ok := f.Collection.Defaults[f.Field]; ok {
			b, err := json.Marshal(def)
			if err != nil {
				return "", nil, fmt.Errorf("encode filter default: %w", err)
			}
			fallback = string(b)
		}

		query += fmt.Sprintf(
			" AND COALESCE(NULLIF(data -> $%d::text, 'null'::jsonb), $%d::jsonb) = $%d::jsonb",
			argIndex, argIndex+1, argIndex+2)
		args = append(args, f.Field, fallback, string(value))
		argIndex += 3
	}

	query += "\nORDER BY "
	if f.Collection.OrderBy != "" {
		dir := "ASC"
		if f.Collection.OrderDesc {
			dir = "DESC"
		}
		// JSON null sorts with missing values
		query += fmt.Sprintf("NULLIF(data -> $%d::text, 'null'::jsonb) %s NULLS LAST, ", argIndex, dir)
		args = append(args, f.Collection.OrderBy)
	}
	query += "created_at ASC, id ASC"

	return query, args, nil
}

func (r *DocumentRepository) Get(ctx context.Context, collection, id string) (*domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, getDocumentSQL, collection, id)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ports.ErrDocumentNotFound
	}
	return scanDocument(rows)
}

// Insert writes all documents with one multi-row statement, so the batch
// commits or fails as a whole.
func (r *DocumentRepository) Insert(ctx context.Context, docs ...*domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(insertDocumentsSQL)
	args := make([]any, 0, len(docs)*5)

	for i, d := range docs {
		data, err := json.Marshal(d.Fields)
		if err != nil {
			return fmt.Errorf("encode document %s: %w", d.ID, err)
		}
		if i > 0 {
			sb.WriteString(",\n")
		}
		n := i * 5
		fmt.Fprintf(&sb, "($%d, $%d, $%d::jsonb, $%d, $%d)", n+1, n+2, n+3, n+4, n+5)
		args = append(args, d.ID, d.Collection, string(data), d.CreatedAt, d.UpdatedAt)
	}
	sb.WriteString(";")

	if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert %s: %w", docs[0].Collection, err)
	}
	return nil
}

func (r *DocumentRepository) Merge(ctx context.Context, collection, id string, fields map[string]any, updatedAt time.Time) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}
	return r.execOne(ctx, mergeDocumentSQL, collection, id, string(patch), updatedAt)
}

func (r *DocumentRepository) ToggleBool(ctx context.Context, collection, id, field string, updatedAt time.Time) (bool, error) {
	rows, err := r.db.QueryContext(ctx, toggleBoolSQL, collection, id, field, updatedAt)
	if err != nil {
		return false, fmt.Errorf("toggle %s/%s.%s: %w", collection, id, field, err)
	}
	defer rows.Close()

	if rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return false, err
		}
		return v == "true", nil
	}
	if err := rows.Err(); err != nil {
		return false, err
	}

	// no row: the document is missing or the field is not a boolean
	if _, err := r.Get(ctx, collection, id); err != nil {
		return false, err
	}
	return false, ports.ErrNotBoolean
}

func (r *DocumentRepository) Delete(ctx context.Context, collection, id string) error {
	return r.execOne(ctx, deleteDocumentSQL, collection, id)
}

func (r *DocumentRepository) Count(ctx context.Context, collection string) (int64, error) {
	rows, err := r.db.QueryContext(ctx, countDocumentsSQL, collection)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	defer rows.Close()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}

func (r *DocumentRepository) AppendToArray(ctx context.Context, collection, id, field string, value any, updatedAt time.Time) error {
	el, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode array element: %w", err)
	}
	return r.execOne(ctx, appendToArraySQL, collection, id, field, string(el), updatedAt)
}

func (r *DocumentRepository) RemoveFromArray(ctx context.Context, collection, id, field, matchKey, matchValue string, updatedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, removeFromArraySQL, collection, id, field, matchKey, matchValue, updatedAt)
	if err != nil {
		return false, fmt.Errorf("remove from %s.%s: %w", collection, field, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// execOne runs a single-row write.
//
//	rows == 0 -> ErrDocumentNotFound
func (r *DocumentRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ports.ErrDocumentNotFound
	}
	return nil
}

func scanDocument(rows RowScanner) (*domain.Document, error) {
	var (
		d    domain.Document
		data []byte
	)
	if err := rows.Scan(&d.ID, &d.Collection, &data, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Fields = map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &d.Fields); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", d.ID, err)
		}
	}
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	return &d, nil
}
