package store

import (
	"context"
	"errors"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/model"
)

var (
	ErrNotFound          = errors.New("batch not found")
	ErrDuplicateContract = errors.New("contract id already exists")
	ErrVersionConflict   = errors.New("batch version conflict")
)

// ListFilter scopes List. Empty fields match everything.
type ListFilter struct {
	AgencyID     string
	ContractorID string
}

// BatchStore persists whole batches. Every write is atomic per document;
// Update only succeeds when the stored version equals expectedVersion.
type BatchStore interface {
	Create(ctx context.Context, b model.Batch) error
	Get(ctx context.Context, id string) (model.Batch, error)
	FindByContractID(ctx context.Context, contractID string) (model.Batch, error)
	List(ctx context.Context, filter ListFilter, limit int) ([]model.Batch, error)
	Update(ctx context.Context, b model.Batch, expectedVersion int64) error
	Close() error
}
