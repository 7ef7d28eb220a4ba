package store

import (
	"context"
	"sort"
	"sync"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/model"
)

// MemoryStore implements BatchStore in process. Values are cloned on the
// way in and out so callers never share milestone slices with the store.
type MemoryStore struct {
	mu         sync.RWMutex
	batches    map[string]model.Batch
	byContract map[string]string // contract id -> batch id
	writes     int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		batches:    make(map[string]model.Batch),
		byContract: make(map[string]string),
	}
}

func (s *MemoryStore) Create(ctx context.Context, b model.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byContract[b.ContractID]; ok {
		return ErrDuplicateContract
	}
	s.batches[b.ID] = b.Clone()
	s.byContract[b.ContractID] = b.ID
	s.writes++
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (model.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.batches[id]
	if !ok {
		return model.Batch{}, ErrNotFound
	}
	return b.Clone(), nil
}

func (s *MemoryStore) FindByContractID(ctx context.Context, contractID string) (model.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byContract[contractID]
	if !ok {
		return model.Batch{}, ErrNotFound
	}
	return s.batches[id].Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context, filter ListFilter, limit int) ([]model.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []model.Batch
	for _, b := range s.batches {
		if filter.AgencyID != "" && b.AgencyID != filter.AgencyID {
			continue
		}
		if filter.ContractorID != "" && !containsString(b.ContractorIDs, filter.ContractorID) {
			continue
		}
		result = append(result, b.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStore) Update(ctx context.Context, b model.Batch, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.batches[b.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != expectedVersion {
		return ErrVersionConflict
	}
	s.batches[b.ID] = b.Clone()
	s.writes++
	return nil
}

// Writes reports how many successful writes the store has accepted.
func (s *MemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *MemoryStore) Close() error { return nil }

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
