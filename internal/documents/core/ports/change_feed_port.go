package ports

import (
	"context"

	"visit-dashboard-service/internal/documents/core/domain"
)

// ChangeFeedPort streams store writes until ctx is done. The returned channel
// is closed when the feed stops.
type ChangeFeedPort interface {
	Changes(ctx context.Context) (<-chan domain.Change, error)
}
