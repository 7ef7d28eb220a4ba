//go:build integration

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/milestone"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/model"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/testutil"
	"github.com/google/uuid"
)

func newMongoBatch(t *testing.T, contractors ...string) model.Batch {
	t.Helper()
	req := testutil.BatchRequest(testutil.UniqueID("NH48"), "ag1", "100000", contractors...)
	b, _, err := milestone.NewBatch(req, model.Actor{ID: "adm1", Role: model.RoleAdmin}, uuid.NewString, time.Now().UTC().Truncate(time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestMongoBatchStore(t *testing.T) {
	m := testutil.NewMongoTestContainer(t)
	ctx := context.Background()

	s := NewMongoBatchStore(m.Client, m.DBName)
	if err := s.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes() error = %v", err)
	}

	b := newMongoBatch(t, "c1", "c2")
	if err := s.Create(ctx, b); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	dup := newMongoBatch(t)
	dup.ContractID = b.ContractID
	if err := s.Create(ctx, dup); !errors.Is(err, ErrDuplicateContract) {
		t.Errorf("Create(duplicate) error = %v, want %v", err, ErrDuplicateContract)
	}

	got, err := s.FindByContractID(ctx, b.ContractID)
	if err != nil || got.ID != b.ID {
		t.Fatalf("FindByContractID() = %v, %v", got.ID, err)
	}

	next := got.Clone()
	next.Status = model.BatchStatusApproved
	next.Version = got.Version + 1
	if err := s.Update(ctx, next, got.Version); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := s.Update(ctx, next, got.Version); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("Update(stale) error = %v, want %v", err, ErrVersionConflict)
	}
	missing := next
	missing.ID = "missing"
	if err := s.Update(ctx, missing, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want %v", err, ErrNotFound)
	}

	stored, err := s.Get(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != model.BatchStatusApproved || stored.Version != 2 || len(stored.Milestones) != 2 {
		t.Errorf("stored = %+v", stored)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v", err)
	}

	list, err := s.List(ctx, ListFilter{ContractorID: "c2"}, 10)
	if err != nil || len(list) != 1 {
		t.Errorf("List(c2) = %d, %v", len(list), err)
	}
	list, err = s.List(ctx, ListFilter{AgencyID: "other"}, 10)
	if err != nil || len(list) != 0 {
		t.Errorf("List(other agency) = %d, %v", len(list), err)
	}
}
