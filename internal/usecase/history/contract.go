package history

import (
	"context"

	domhist "github.com/kailas-cloud/ragquery/internal/domain/history"
)

// Repository persists history entries.
type Repository interface {
	Save(ctx context.Context, e domhist.Entry) error
	Get(ctx context.Context, id string) (domhist.Entry, error)
	List(ctx context.Context, userID string, offset, limit int) (domhist.Page, error)
	Delete(ctx context.Context, userID, id string) error
}
