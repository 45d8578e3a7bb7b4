package usecase

import (
	"context"
	"errors"

	docdomain "visit-dashboard-service/internal/documents/core/domain"
	"visit-dashboard-service/internal/summary/core/domain"
	"visit-dashboard-service/internal/summary/core/ports"
)

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrInvalidField      = errors.New("invalid field name")
)

// DefaultFlag is the progress field of wishlist and shopping items.
const DefaultFlag = "completed"

type GetSummaryInput struct {
	Collection string
	GroupBy    string
	Flag       string // defaults to DefaultFlag
}

type GetSummaryUseCase struct {
	reader ports.SummaryReaderPort
}

func NewGetSummaryUseCase(reader ports.SummaryReaderPort) *GetSummaryUseCase {
	return &GetSummaryUseCase{reader: reader}
}

// Execute validates the input, turns it into a filter and asks the reader.
func (uc *GetSummaryUseCase) Execute(ctx context.Context, in GetSummaryInput) (*domain.Summary, error) {
	col, ok := docdomain.LookupCollection(in.Collection)
	if !ok {
		return nil, ErrUnknownCollection
	}

	if in.Flag == "" {
		in.Flag = DefaultFlag
	}
	if !docdomain.ValidFieldName(in.Flag) {
		return nil, ErrInvalidField
	}
	if in.GroupBy != "" && !docdomain.ValidFieldName(in.GroupBy) {
		return nil, ErrInvalidField
	}

	filter := ports.SummaryFilter{
		Collection: col,
		GroupBy:    in.GroupBy,
		Flag:       in.Flag,
	}

	result, err := uc.reader.QuerySummary(ctx, filter)
	if err != nil {
		return nil, err
	}

	return result, nil
}
