//go:build integration

package integration

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DatabaseCleaner removes batches created by integration runs.
type DatabaseCleaner struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewDatabaseCleaner(mongoURI, dbName string) (*DatabaseCleaner, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return &DatabaseCleaner{client: client, db: client.Database(dbName)}, nil
}

func (d *DatabaseCleaner) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// CleanContracts deletes batches whose contract id starts with prefix.
func (d *DatabaseCleaner) CleanContracts(ctx context.Context, prefix string) (int64, error) {
	res, err := d.db.Collection("batches").DeleteMany(ctx, bson.M{
		"contract_id": bson.M{"$regex": "^" + prefix},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
