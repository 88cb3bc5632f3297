package status

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Compile-time check that MongoRepository implements Repository.
var _ Repository = (*MongoRepository)(nil)

// MongoRepository stores records in a MongoDB collection.
type MongoRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// ConnectMongo connects to url, verifies the connection with a ping and
// returns a repository bound to dbName.collection.
func ConnectMongo(ctx context.Context, url, dbName, collection string) (*MongoRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return NewMongoRepository(client, dbName, collection), nil
}

// NewMongoRepository wraps an existing client.
func NewMongoRepository(client *mongo.Client, dbName, collection string) *MongoRepository {
	return &MongoRepository{
		client:     client,
		collection: client.Database(dbName).Collection(collection),
	}
}

// Insert stores r as a new document.
func (m *MongoRepository) Insert(ctx context.Context, r *Record) error {
	if _, err := m.collection.InsertOne(ctx, r); err != nil {
		return fmt.Errorf("insert status record: %w", err)
	}
	return nil
}

// List returns up to limit records in natural order.
func (m *MongoRepository) List(ctx context.Context, limit int) ([]*Record, error) {
	opts := options.Find().SetLimit(int64(normalizeLimit(limit)))

	cursor, err := m.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find status records: %w", err)
	}

	records := make([]*Record, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode status records: %w", err)
	}
	return records, nil
}

// Ping checks that the database is reachable.
func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (m *MongoRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
