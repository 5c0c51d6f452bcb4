// Package history persists answered queries as JSON documents indexed per user
// by a sorted set scored with the creation time.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/ragquery/internal/db"
	"github.com/kailas-cloud/ragquery/internal/domain"
	domhist "github.com/kailas-cloud/ragquery/internal/domain/history"
)

// store is the consumer interface for history (ISP).
//
//nolint:interfacebloat // documents plus the per-user listing set
type store interface {
	JSONSet(ctx context.Context, key, path string, data []byte) error
	JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error)
	Del(ctx context.Context, key string) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZRem(ctx context.Context, key string, members ...string) error
	ZCard(ctx context.Context, key string) (int64, error)
}

// Repo implements usecase/history.Repository.
type Repo struct {
	store store
	ttl   time.Duration
}

// New creates a history repository. ttl of zero keeps entries forever.
func New(s store, ttl time.Duration) *Repo {
	return &Repo{store: s, ttl: ttl}
}

func entryKey(id string) string {
	return domain.KeyPrefix + "history:" + id
}

func userKey(userID string) string {
	return domain.KeyPrefix + "history:user:" + userID
}

// Save writes the entry document and indexes it under its user.
func (r *Repo) Save(ctx context.Context, e domhist.Entry) error {
	data, err := entryToJSON(e)
	if err != nil {
		return err
	}

	key := entryKey(e.ID)
	if err := r.store.JSONSet(ctx, key, "$", data); err != nil {
		return fmt.Errorf("json.set history %s: %w", e.ID, err)
	}

	uk := userKey(e.UserID)
	if err := r.store.ZAdd(ctx, uk, float64(e.CreatedAt.UnixMilli()), e.ID); err != nil {
		cleanupErr := r.store.Del(ctx, key)
		return errors.Join(fmt.Errorf("zadd history %s: %w", e.UserID, err), cleanupErr)
	}

	if r.ttl > 0 {
		if err := r.store.Expire(ctx, key, r.ttl, false); err != nil {
			return fmt.Errorf("expire history %s: %w", e.ID, err)
		}
		// The listing set lives as long as its newest entry.
		if err := r.store.Expire(ctx, uk, r.ttl, false); err != nil {
			return fmt.Errorf("expire history index %s: %w", e.UserID, err)
		}
	}
	return nil
}

// Get loads one entry. Missing entries yield domain.ErrNotFound.
func (r *Repo) Get(ctx context.Context, id string) (domhist.Entry, error) {
	data, err := r.store.JSONGet(ctx, entryKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domhist.Entry{}, domain.ErrNotFound
		}
		return domhist.Entry{}, fmt.Errorf("json.get history %s: %w", id, err)
	}
	return entryFromJSON(data)
}

// List returns a user's entries newest first. Ids whose documents expired are
// pruned from the listing set and skipped.
func (r *Repo) List(ctx context.Context, userID string, offset, limit int) (domhist.Page, error) {
	uk := userKey(userID)

	total, err := r.store.ZCard(ctx, uk)
	if err != nil {
		return domhist.Page{}, fmt.Errorf("zcard history %s: %w", userID, err)
	}
	if total == 0 || limit <= 0 || int64(offset) >= total {
		return domhist.Page{Entries: []domhist.Entry{}, Total: int(total)}, nil
	}

	ids, err := r.store.ZRevRange(ctx, uk, int64(offset), int64(offset+limit-1))
	if err != nil {
		return domhist.Page{}, fmt.Errorf("zrange history %s: %w", userID, err)
	}

	entries := make([]domhist.Entry, 0, len(ids))
	var stale []string
	for _, id := range ids {
		e, err := r.Get(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			stale = append(stale, id)
			continue
		}
		if err != nil {
			return domhist.Page{}, err
		}
		entries = append(entries, e)
	}

	if len(stale) > 0 {
		if err := r.store.ZRem(ctx, uk, stale...); err != nil {
			return domhist.Page{}, fmt.Errorf("prune history %s: %w", userID, err)
		}
		total -= int64(len(stale))
	}

	return domhist.Page{Entries: entries, Total: int(total)}, nil
}

// Delete removes an entry and its listing membership.
func (r *Repo) Delete(ctx context.Context, userID, id string) error {
	if err := r.store.Del(ctx, entryKey(id)); err != nil {
		return fmt.Errorf("del history %s: %w", id, err)
	}
	if err := r.store.ZRem(ctx, userKey(userID), id); err != nil {
		return fmt.Errorf("zrem history %s: %w", id, err)
	}
	return nil
}
