// Package history records answered queries and serves them back per user.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/ragquery/internal/domain"
	"github.com/kailas-cloud/ragquery/internal/domain/answer"
	domhist "github.com/kailas-cloud/ragquery/internal/domain/history"
)

// Paging defaults.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Service manages query history.
type Service struct {
	repo        Repository
	defaultSize int
	maxSize     int
	now         func() time.Time
	newID       func() string
}

// Option configures the Service.
type Option func(*Service)

// WithPageSizes overrides the default and maximum page sizes.
func WithPageSizes(def, maxSize int) Option {
	return func(s *Service) {
		if def > 0 {
			s.defaultSize = def
		}
		if maxSize > 0 {
			s.maxSize = maxSize
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides query id generation.
func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

// New creates a history service.
func New(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		defaultSize: DefaultPageSize,
		maxSize:     MaxPageSize,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Record stores a pipeline result and returns the new query id.
func (s *Service) Record(ctx context.Context, userID, query string, r *answer.Result) (string, error) {
	if userID == "" {
		userID = domhist.DefaultUserID
	}
	id := s.newID()
	e := domhist.FromResult(id, userID, query, r, s.now())
	if err := s.repo.Save(ctx, e); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrHistoryStore, err)
	}
	return id, nil
}

// Get returns an entry owned by userID. Entries of other users are reported as not found.
func (s *Service) Get(ctx context.Context, userID, id string) (domhist.Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domhist.Entry{}, domain.ErrNotFound
	}
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domhist.Entry{}, domain.ErrNotFound
		}
		return domhist.Entry{}, fmt.Errorf("%w: %w", domain.ErrHistoryStore, err)
	}
	if e.UserID != userID {
		return domhist.Entry{}, domain.ErrNotFound
	}
	return e, nil
}

// List returns a page of the user's entries, newest first. limit 0 selects the default.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) (domhist.Page, error) {
	if limit < 0 {
		return domhist.Page{}, domain.NewValidationError("limit", "must be non-negative")
	}
	if offset < 0 {
		return domhist.Page{}, domain.NewValidationError("offset", "must be non-negative")
	}
	if limit == 0 {
		limit = s.defaultSize
	}
	limit = min(limit, s.maxSize)

	page, err := s.repo.List(ctx, userID, offset, limit)
	if err != nil {
		return domhist.Page{}, fmt.Errorf("%w: %w", domain.ErrHistoryStore, err)
	}
	page.Limit, page.Offset = limit, offset
	return page, nil
}

// Delete removes an entry owned by userID.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrHistoryStore, err)
	}
	return nil
}
