package postgres

import (
	"context"
	"fmt"

	docpg "visit-dashboard-service/internal/documents/adapters/postgres"
	"visit-dashboard-service/internal/summary/core/domain"
	"visit-dashboard-service/internal/summary/core/ports"
)

type RowScanner = docpg.RowScanner

// DB is the read half of the documents store connection; docpg.NewSQLDB
// satisfies it.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (RowScanner, error)
}

type SummaryRepository struct {
	db DB
}

func NewSummaryRepository(db DB) *SummaryRepository {
	return &SummaryRepository{db: db}
}

var _ ports.SummaryReaderPort = (*SummaryRepository)(nil)

func (r *SummaryRepository) QuerySummary(ctx context.Context, f ports.SummaryFilter) (*domain.Summary, error) {
	result := &domain.Summary{
		Collection: f.Collection.Name,
		GroupBy:    f.GroupBy,
		Flag:       f.Flag,
	}

	if f.GroupBy == "" {
		return r.queryNoGroup(ctx, f, result)
	}
	return r.queryGrouped(ctx, f, result)
}

func (r *SummaryRepository) queryNoGroup(
	ctx context.Context,
	f ports.SummaryFilter,
	res *domain.Summary,
) (*domain.Summary, error) {
	query := `
SELECT
    COUNT(*) AS total,
    COUNT(*) FILTER (WHERE data -> $2::text = 'true'::jsonb) AS flagged
FROM documents
WHERE collection = $1`

	rows, err := r.db.QueryContext(ctx, query, f.Collection.Name, f.Flag)
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", f.Collection.Name, err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&res.Total, &res.Flagged); err != nil {
			return nil, err
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return res, nil
}

func (r *SummaryRepository) queryGrouped(
	ctx context.Context,
	f ports.SummaryFilter,
	res *domain.Summary,
) (*domain.Summary, error) {
	query := `
SELECT
    COALESCE(data ->> $3::text, $4::text, '') AS grp,
    COUNT(*) AS total,
    COUNT(*) FILTER (WHERE data -> $2::text = 'true'::jsonb) AS flagged
FROM documents
WHERE collection = $1
GROUP BY grp
ORDER BY grp`

	var fallback any
	if def, ok := f.Collection.Defaults[f.GroupBy]; ok {
		fallback = fmt.Sprint(def)
	}

	rows, err := r.db.QueryContext(ctx, query, f.Collection.Name, f.Flag, f.GroupBy, fallback)
	if err != nil {
		return nil, fmt.Errorf("summarize %s by %s: %w", f.Collection.Name, f.GroupBy, err)
	}
	defer rows.Close()

	var groups []domain.SummaryGroup
	for rows.Next() {
		var g domain.SummaryGroup
		if err := rows.Scan(&g.Key, &g.Total, &g.Flagged); err != nil {
			return nil, err
		}
		groups = append(groups, g)
		res.Total += g.Total
		res.Flagged += g.Flagged
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	res.Groups = groups
	return res, nil
}
