package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const eventsCollection = "integration_events"

// EnsureMongoIndexes creates the indexes the event sink and its readers rely
// on. The collection itself is created on first insert.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection(eventsCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_integration_events_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "type", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_integration_events_type_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "endpoint_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_integration_events_endpoint_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_integration_events_tenant_timestamp"),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
