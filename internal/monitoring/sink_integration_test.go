//go:build integration

package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"conduit/internal/constants"
	"conduit/internal/testinfra"
	"conduit/pkg/models"
)

func sampleEvents(now time.Time) []models.Event {
	return []models.Event{
		{
			ID: "ev-1", TenantID: "acme", Type: models.EventMessageDelivered,
			EndpointID: "crm", MessageID: "m1", Queue: "orders", Protocol: "http",
			Success: true, Duration: 42 * time.Millisecond, Timestamp: now,
			Attributes: map[string]string{"attempt": "1"},
		},
		{
			ID: "ev-2", Type: models.EventMessageFailed,
			EndpointID: "crm", MessageID: "m2", Error: "status 503",
			Duration: 10 * time.Millisecond, Timestamp: now,
		},
	}
}

func TestPostgresSink_WritesIdempotently(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Postgres: true})
	sink := NewPostgresSink(infra.PostgresDB)
	ctx := context.Background()
	events := sampleEvents(time.Now().UTC())

	require.NoError(t, sink.Write(ctx, events))
	require.NoError(t, sink.Write(ctx, events))

	var count int
	require.NoError(t, infra.PostgresDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+constants.EventsTable).Scan(&count))
	assert.Equal(t, 2, count)

	var durationMs int64
	var errText *string
	require.NoError(t, infra.PostgresDB.QueryRowContext(ctx,
		`SELECT duration_ms, error FROM `+constants.EventsTable+` WHERE id = $1`, "ev-2").Scan(&durationMs, &errText))
	assert.Equal(t, int64(10), durationMs)
	require.NotNil(t, errText)
	assert.Equal(t, "status 503", *errText)
}

func TestMongoSink_WritesIdempotently(t *testing.T) {
	infra := testinfra.Setup(t, testinfra.Options{Mongo: true})
	sink := NewMongoSink(infra.MongoDB)
	ctx := context.Background()
	events := sampleEvents(time.Now().UTC())

	require.NoError(t, sink.Write(ctx, events))
	require.NoError(t, sink.Write(ctx, events[:1]))

	coll := infra.MongoDB.Collection(constants.EventsCollection)
	count, err := coll.CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	var got models.Event
	require.NoError(t, coll.FindOne(ctx, bson.M{"_id": "ev-1"}).Decode(&got))
	assert.Equal(t, "acme", got.TenantID)
	assert.Equal(t, "1", got.Attributes["attempt"])
}
