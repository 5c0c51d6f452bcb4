package ragquery

import (
	"context"
	"time"
)

// HistoryService reads and deletes a user's stored answers.
type HistoryService struct {
	svc historyUseCase
	obs *observer
}

// List returns a page of the user's entries, newest first.
// Zero limit uses the default page size; oversized limits are clamped.
func (s *HistoryService) List(ctx context.Context, userID string, limit, offset int) (page HistoryPage, err error) {
	start := time.Now()
	defer func() { s.obs.observe("history_list", start, err) }()

	p, err := s.svc.List(ctx, userID, limit, offset)
	if err != nil {
		return HistoryPage{}, err
	}
	entries := make([]HistoryEntry, len(p.Entries))
	for i := range p.Entries {
		entries[i] = entryFromDomain(&p.Entries[i])
	}
	return HistoryPage{Entries: entries, Total: p.Total, Limit: p.Limit, Offset: p.Offset}, nil
}

// Get returns one entry. Entries of other users are reported as ErrNotFound.
func (s *HistoryService) Get(ctx context.Context, userID, id string) (entry HistoryEntry, err error) {
	start := time.Now()
	defer func() { s.obs.observe("history_get", start, err) }()

	e, err := s.svc.Get(ctx, userID, id)
	if err != nil {
		return HistoryEntry{}, err
	}
	return entryFromDomain(&e), nil
}

// Delete removes one entry.
func (s *HistoryService) Delete(ctx context.Context, userID, id string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("history_delete", start, err) }()

	return s.svc.Delete(ctx, userID, id)
}
