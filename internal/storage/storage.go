package storage

import (
	"context"

	"farmScope/internal/model"
)

// Sink receives every published snapshot.
type Sink interface {
	Publish(ctx context.Context, snapshot *model.Snapshot) error
}
