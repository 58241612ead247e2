package runlog

import (
	"context"

	"github.com/aegean-labs/stockroom/internal/model"
)

// Repository records the outcome of sync and import runs.
type Repository interface {
	Append(ctx context.Context, entry *model.RunLogEntry) error
	Recent(ctx context.Context, limit int) ([]model.RunLogEntry, error)
	Last(ctx context.Context) (*model.RunLogEntry, error)
}
