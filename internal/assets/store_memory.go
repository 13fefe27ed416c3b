package assets

import (
	"context"
	"sync"

	"github.com/StreetCred/SC-Backend/internal/geo"
)

// MemoryStore is a linear-scan Store for tests and small seeded data sets.
type MemoryStore struct {
	mu     sync.RWMutex
	assets map[string]Asset
}

func NewMemoryStore(seed ...Asset) *MemoryStore {
	s := &MemoryStore{assets: make(map[string]Asset, len(seed))}
	for _, a := range seed {
		s.Put(a)
	}
	return s
}

func (s *MemoryStore) Put(a Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.Geohash = geo.Geohash(a.Coordinate(), 9)
	s.assets[a.ID] = a
}

func (s *MemoryStore) WithinBoxes(ctx context.Context, boxes []geo.Box, assetType AssetType) ([]Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Asset
	for _, a := range s.assets {
		if assetType != "" && a.Type != assetType {
			continue
		}
		if geo.AnyContains(boxes, a.Coordinate()) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Asset, error) {
	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[id]
	if !ok {
		return Asset{}, ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, batch []Asset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, a := range batch {
		s.Put(a)
	}
	return nil
}
