// Package memory computes summaries from in-process documents for the
// memory store driver.
package memory

import (
	"context"
	"fmt"
	"sort"

	docdomain "visit-dashboard-service/internal/documents/core/domain"
	docports "visit-dashboard-service/internal/documents/core/ports"
	"visit-dashboard-service/internal/summary/core/domain"
	"visit-dashboard-service/internal/summary/core/ports"
)

type DocumentLister interface {
	List(ctx context.Context, f docports.ListFilter) ([]docdomain.Document, error)
}

type SummaryReader struct {
	docs DocumentLister
}

func NewSummaryReader(docs DocumentLister) *SummaryReader {
	return &SummaryReader{docs: docs}
}

var _ ports.SummaryReaderPort = (*SummaryReader)(nil)

func (r *SummaryReader) QuerySummary(ctx context.Context, f ports.SummaryFilter) (*domain.Summary, error) {
	docs, err := r.docs.List(ctx, docports.ListFilter{Collection: f.Collection})
	if err != nil {
		return nil, err
	}

	res := &domain.Summary{
		Collection: f.Collection.Name,
		GroupBy:    f.GroupBy,
		Flag:       f.Flag,
	}

	groups := map[string]*domain.SummaryGroup{}
	for _, d := range docs {
		flagged := d.Bool(f.Flag)
		res.Total++
		if flagged {
			res.Flagged++
		}
		if f.GroupBy == "" {
			continue
		}

		key := groupKey(d, f)
		g, ok := groups[key]
		if !ok {
			g = &domain.SummaryGroup{Key: key}
			groups[key] = g
		}
		g.Total++
		if flagged {
			g.Flagged++
		}
	}

	if f.GroupBy != "" {
		res.Groups = make([]domain.SummaryGroup, 0, len(groups))
		for _, g := range groups {
			res.Groups = append(res.Groups, *g)
		}
		sort.Slice(res.Groups, func(i, j int) bool { return res.Groups[i].Key < res.Groups[j].Key })
	}

	return res, nil
}

func groupKey(d docdomain.Document, f ports.SummaryFilter) string {
	v, ok := d.Fields[f.GroupBy]
	if !ok || v == nil {
		v, ok = f.Collection.Defaults[f.GroupBy]
		if !ok {
			return ""
		}
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
