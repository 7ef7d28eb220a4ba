package store

import (
	"context"
	"errors"
	"time"

	"github.com/Shashank-765/NhaiTrackingSystem/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoBatchStore struct {
	batches *mongo.Collection
}

func NewMongoBatchStore(client *mongo.Client, dbName string) *MongoBatchStore {
	return &MongoBatchStore{
		batches: client.Database(dbName).Collection("batches"),
	}
}

func (s *MongoBatchStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.batches.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "contract_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "agency_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "contractor_ids", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

func (s *MongoBatchStore) Create(ctx context.Context, b model.Batch) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.batches.InsertOne(ctx, b)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateContract
	}
	return err
}

func (s *MongoBatchStore) Get(ctx context.Context, id string) (model.Batch, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoBatchStore) FindByContractID(ctx context.Context, contractID string) (model.Batch, error) {
	return s.findOne(ctx, bson.M{"contract_id": contractID})
}

func (s *MongoBatchStore) findOne(ctx context.Context, filter bson.M) (model.Batch, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var b model.Batch
	err := s.batches.FindOne(ctx, filter).Decode(&b)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Batch{}, ErrNotFound
		}
		return model.Batch{}, err
	}
	return b, nil
}

func (s *MongoBatchStore) List(ctx context.Context, filter ListFilter, limit int) ([]model.Batch, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	q := bson.M{}
	if filter.AgencyID != "" {
		q["agency_id"] = filter.AgencyID
	}
	if filter.ContractorID != "" {
		q["contractor_ids"] = filter.ContractorID
	}

	cur, err := s.batches.Find(ctx, q, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var batches []model.Batch
	if err := cur.All(ctx, &batches); err != nil {
		return nil, err
	}
	return batches, nil
}

// Update replaces the document only if its version still matches, which
// makes the read-validate-write cycle in the service safe without locks.
func (s *MongoBatchStore) Update(ctx context.Context, b model.Batch, expectedVersion int64) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.batches.ReplaceOne(ctx, bson.M{"_id": b.ID, "version": expectedVersion}, b)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateContract
		}
		return err
	}
	if res.MatchedCount == 0 {
		n, err := s.batches.CountDocuments(ctx, bson.M{"_id": b.ID})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

func (s *MongoBatchStore) Close() error {
	// MongoDB client is shared, no need to close here
	return nil
}
