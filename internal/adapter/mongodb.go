package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"conduit/internal/constants"
	apperrors "conduit/pkg/errors"
	"conduit/pkg/models"
)

// MongoDBAdapter inserts the payload as a document.
//
// Endpoint config: uri (defaults to the shared client), database (defaults
// to the shared database name), collection (required).
type MongoDBAdapter struct {
	shared        *mongo.Client
	sharedDB      string
	clients       *clientCache[*mongo.Client]
	healthTimeout time.Duration
}

func NewMongoDBAdapter(shared *mongo.Client, sharedDB string, healthTimeout time.Duration) *MongoDBAdapter {
	if healthTimeout <= 0 {
		healthTimeout = constants.DefaultHealthCheckTimeout
	}
	return &MongoDBAdapter{
		shared:   shared,
		sharedDB: sharedDB,
		clients: newClientCache(func(c *mongo.Client) error {
			ctx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			return c.Disconnect(ctx)
		}),
		healthTimeout: healthTimeout,
	}
}

func (a *MongoDBAdapter) Protocol() string { return constants.ProtocolMongoDB }

func (a *MongoDBAdapter) ValidateEndpoint(_ context.Context, endpoint *models.Endpoint) error {
	if err := requireConfig(endpoint, "collection"); err != nil {
		return err
	}
	if endpoint.ConfigString("uri") == "" && a.shared == nil {
		return apperrors.NewValidation("config.uri", "is required when no shared mongodb is configured")
	}
	if endpoint.ConfigString("database") == "" && a.sharedDB == "" {
		return apperrors.NewValidation("config.database", "is required")
	}
	return nil
}

func (a *MongoDBAdapter) client(endpoint *models.Endpoint) (*mongo.Client, error) {
	uri := endpoint.ConfigString("uri")
	if uri == "" {
		if a.shared == nil {
			return nil, fmt.Errorf("no mongodb uri for endpoint %s", endpoint.ID)
		}
		return a.shared, nil
	}
	return a.clients.get(uri, func() (*mongo.Client, error) {
		return mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	})
}

func (a *MongoDBAdapter) collection(endpoint *models.Endpoint) (*mongo.Collection, error) {
	client, err := a.client(endpoint)
	if err != nil {
		return nil, err
	}
	db := endpoint.ConfigString("database")
	if db == "" {
		db = a.sharedDB
	}
	return client.Database(db).Collection(endpoint.ConfigString("collection")), nil
}

func (a *MongoDBAdapter) Send(ctx context.Context, req *models.Request, endpoint *models.Endpoint) (*models.Response, error) {
	if err := checkContract(a.Protocol(), req, endpoint); err != nil {
		return nil, err
	}
	if err := a.ValidateEndpoint(ctx, endpoint); err != nil {
		return nil, err
	}
	started := time.Now()

	coll, err := a.collection(endpoint)
	if err != nil {
		return remoteFailure(ctx, req, endpoint, started, err)
	}

	doc := payloadDocument(req)
	result, err := coll.InsertOne(ctx, doc)
	if err != nil {
		return remoteFailure(ctx, req, endpoint, started, err)
	}

	resp := models.SuccessResponse(req, endpoint, started)
	resp.Payload = []byte(fmt.Sprint(result.InsertedID))
	return resp, nil
}

// payloadDocument stores JSON objects field by field and any other payload
// as a raw string under "payload". Gateway metadata goes under "_gateway".
func payloadDocument(req *models.Request) bson.M {
	doc := bson.M{}
	var fields map[string]interface{}
	if json.Unmarshal(req.Payload, &fields) == nil && fields != nil {
		for k, v := range fields {
			doc[k] = v
		}
	} else {
		doc["payload"] = string(req.Payload)
	}

	meta := bson.M{"received_at": time.Now().UTC()}
	for k, v := range requestHeaders(req) {
		meta[k] = v
	}
	doc["_gateway"] = meta
	return doc
}

func (a *MongoDBAdapter) CheckHealth(ctx context.Context, endpoint *models.Endpoint) models.HealthStatus {
	client, err := a.client(endpoint)
	if err != nil {
		return models.HealthUnhealthy
	}
	return probe(ctx, a.healthTimeout, func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	})
}

func (a *MongoDBAdapter) Close() error {
	return a.clients.closeAll()
}
