package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/model"
)

func testBatch(id, contractID, agency string, contractors ...string) model.Batch {
	b := model.Batch{
		ID:            id,
		ContractID:    contractID,
		AgencyID:      agency,
		Status:        model.BatchStatusPending,
		Version:       1,
		ContractorIDs: contractors,
		CreatedAt:     time.Now().UTC(),
	}
	for _, c := range contractors {
		b.Milestones = append(b.Milestones, model.Milestone{ID: id + "-" + c, ContractorID: c, Heading: "Foundation"})
	}
	return b
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Create(ctx, testBatch("b1", "K-1", "ag1", "c1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Create(ctx, testBatch("b2", "K-1", "ag1", "c1")); !errors.Is(err, ErrDuplicateContract) {
		t.Errorf("Create() duplicate error = %v, want %v", err, ErrDuplicateContract)
	}
	if s.Writes() != 1 {
		t.Errorf("Writes() = %d, want 1", s.Writes())
	}

	got, err := s.Get(ctx, "b1")
	if err != nil || got.ContractID != "K-1" {
		t.Errorf("Get() = %+v, %v", got, err)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v", err)
	}
	if b, err := s.FindByContractID(ctx, "K-1"); err != nil || b.ID != "b1" {
		t.Errorf("FindByContractID() = %+v, %v", b, err)
	}
	if _, err := s.FindByContractID(ctx, "K-2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByContractID(missing) error = %v", err)
	}
}

func TestMemoryStore_Isolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Create(ctx, testBatch("b1", "K-1", "ag1", "c1"))

	got, _ := s.Get(ctx, "b1")
	got.Milestones[0].WorkStatus = model.WorkStatusCompleted

	again, _ := s.Get(ctx, "b1")
	if again.Milestones[0].WorkStatus == model.WorkStatusCompleted {
		t.Error("mutating a returned batch changed the stored copy")
	}
}

func TestMemoryStore_UpdateVersion(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_ = s.Create(ctx, testBatch("b1", "K-1", "ag1", "c1"))

	b, _ := s.Get(ctx, "b1")
	b.Status = model.BatchStatusApproved
	b.Version = 2
	if err := s.Update(ctx, b, 1); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	stale := b
	stale.Version = 2
	if err := s.Update(ctx, stale, 1); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("stale Update() error = %v, want %v", err, ErrVersionConflict)
	}
	if err := s.Update(ctx, testBatch("nope", "K-9", "ag1"), 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want %v", err, ErrNotFound)
	}

	got, _ := s.Get(ctx, "b1")
	if got.Version != 2 || got.Status != model.BatchStatusApproved {
		t.Errorf("stored = %+v", got)
	}
}

func TestMemoryStore_List(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	older := testBatch("b1", "K-1", "ag1", "c1", "c2")
	older.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := testBatch("b2", "K-2", "ag1", "c2")
	newer.CreatedAt = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	other := testBatch("b3", "K-3", "ag2", "c3")
	other.CreatedAt = time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, b := range []model.Batch{older, newer, other} {
		if err := s.Create(ctx, b); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter ListFilter
		limit  int
		want   []string
	}{
		{name: "agency", filter: ListFilter{AgencyID: "ag1"}, want: []string{"b2", "b1"}},
		{name: "contractor", filter: ListFilter{ContractorID: "c2"}, want: []string{"b2", "b1"}},
		{name: "contractor single", filter: ListFilter{ContractorID: "c3"}, want: []string{"b3"}},
		{name: "all limited", limit: 1, want: []string{"b2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.filter, tt.limit)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() returned %d batches, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("List()[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}
