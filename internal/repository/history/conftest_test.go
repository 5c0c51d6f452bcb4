package history

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/kailas-cloud/ragquery/internal/db"
)

// memStore is an in-memory implementation of the consumer interface.
type memStore struct {
	docs    map[string][]byte
	sets    map[string]map[string]float64
	ttls    map[string]time.Duration
	zaddErr error
	getErr  error
	dels    []string
}

func newMemStore() *memStore {
	return &memStore{
		docs: map[string][]byte{},
		sets: map[string]map[string]float64{},
		ttls: map[string]time.Duration{},
	}
}

func (m *memStore) JSONSet(_ context.Context, key, _ string, data []byte) error {
	m.docs[key] = slices.Clone(data)
	return nil
}

func (m *memStore) JSONGet(_ context.Context, key string, _ ...string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	d, ok := m.docs[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return d, nil
}

func (m *memStore) Del(_ context.Context, key string) error {
	m.dels = append(m.dels, key)
	delete(m.docs, key)
	return nil
}

func (m *memStore) Expire(_ context.Context, key string, ttl time.Duration, _ bool) error {
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) ZAdd(_ context.Context, key string, score float64, member string) error {
	if m.zaddErr != nil {
		return m.zaddErr
	}
	if m.sets[key] == nil {
		m.sets[key] = map[string]float64{}
	}
	m.sets[key][member] = score
	return nil
}

func (m *memStore) ZRevRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	set := m.sets[key]
	members := make([]string, 0, len(set))
	for k := range set {
		members = append(members, k)
	}
	sort.Slice(members, func(i, j int) bool { return set[members[i]] > set[members[j]] })
	if start >= int64(len(members)) {
		return nil, nil
	}
	end := min(stop+1, int64(len(members)))
	return members[start:end], nil
}

func (m *memStore) ZRem(_ context.Context, key string, members ...string) error {
	for _, mem := range members {
		delete(m.sets[key], mem)
	}
	return nil
}

func (m *memStore) ZCard(_ context.Context, key string) (int64, error) {
	return int64(len(m.sets[key])), nil
}
