package http

import (
	"context"
	"time"

	"hinosemi/internal/index"
	"hinosemi/internal/operations"
)

// IndexServiceInterface defines what the index handler needs from the service layer.
type IndexServiceInterface interface {
	Snapshot(ctx context.Context) (index.Snapshot, error)
	Series(ctx context.Context, since time.Time, limit int) (index.IndexSeries, error)
	Chart(ctx context.Context) ([]byte, error)
	Status() operations.StateView
	Refresh(ctx context.Context) (*operations.RunSummary, error)
}
