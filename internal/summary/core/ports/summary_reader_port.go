package ports

import (
	"context"

	docdomain "visit-dashboard-service/internal/documents/core/domain"
	"visit-dashboard-service/internal/summary/core/domain"
)

type SummaryFilter struct {
	Collection docdomain.Collection
	GroupBy    string // "" or a validated field name
	Flag       string // validated field name
}

type SummaryReaderPort interface {
	QuerySummary(ctx context.Context, f SummaryFilter) (*domain.Summary, error)
}
