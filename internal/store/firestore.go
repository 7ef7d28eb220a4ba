package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/Shashank-765/NhaiTrackingSystem/internal/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore keeps one document per batch plus a contract-id marker
// document that enforces contract uniqueness inside the create transaction.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	contracts  string
}

func NewFirestoreStore(ctx context.Context, projectID, collection string) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &FirestoreStore{
		client:     client,
		collection: collection,
		contracts:  collection + "_contract_ids",
	}, nil
}

type contractMarker struct {
	BatchID string `firestore:"batch_id"`
}

func (s *FirestoreStore) Create(ctx context.Context, b model.Batch) error {
	batchRef := s.client.Collection(s.collection).Doc(b.ID)
	markerRef := s.client.Collection(s.contracts).Doc(b.ContractID)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(markerRef); err == nil {
			return ErrDuplicateContract
		} else if status.Code(err) != codes.NotFound {
			return err
		}
		if err := tx.Create(markerRef, contractMarker{BatchID: b.ID}); err != nil {
			return err
		}
		return tx.Create(batchRef, b)
	})
	if errors.Is(err, ErrDuplicateContract) || status.Code(err) == codes.AlreadyExists {
		return ErrDuplicateContract
	}
	if err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

func (s *FirestoreStore) Get(ctx context.Context, id string) (model.Batch, error) {
	doc, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return model.Batch{}, ErrNotFound
		}
		return model.Batch{}, fmt.Errorf("get batch: %w", err)
	}
	return decodeBatch(doc)
}

func (s *FirestoreStore) FindByContractID(ctx context.Context, contractID string) (model.Batch, error) {
	doc, err := s.client.Collection(s.contracts).Doc(contractID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return model.Batch{}, ErrNotFound
		}
		return model.Batch{}, fmt.Errorf("get contract marker: %w", err)
	}
	var marker contractMarker
	if err := doc.DataTo(&marker); err != nil {
		return model.Batch{}, fmt.Errorf("decode contract marker: %w", err)
	}
	return s.Get(ctx, marker.BatchID)
}

func (s *FirestoreStore) List(ctx context.Context, filter ListFilter, limit int) ([]model.Batch, error) {
	query := s.client.Collection(s.collection).Query
	if filter.AgencyID != "" {
		query = query.Where("agency_id", "==", filter.AgencyID)
	}
	if filter.ContractorID != "" {
		query = query.Where("contractor_ids", "array-contains", filter.ContractorID)
	}
	query = query.OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var batches []model.Batch
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate batches: %w", err)
		}
		b, err := decodeBatch(doc)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, nil
}

func (s *FirestoreStore) Update(ctx context.Context, b model.Batch, expectedVersion int64) error {
	ref := s.client.Collection(s.collection).Doc(b.ID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return err
		}
		cur, err := decodeBatch(doc)
		if err != nil {
			return err
		}
		if cur.Version != expectedVersion {
			return ErrVersionConflict
		}
		return tx.Set(ref, b)
	})
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrVersionConflict) {
		return err
	}
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	return nil
}

func decodeBatch(doc *firestore.DocumentSnapshot) (model.Batch, error) {
	var b model.Batch
	if err := doc.DataTo(&b); err != nil {
		return model.Batch{}, fmt.Errorf("decode batch: %w", err)
	}
	return b, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
