package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"conduit/internal/constants"
	apperrors "conduit/pkg/errors"
	"conduit/pkg/models"
)

const (
	redisModeStream  = "stream"
	redisModePublish = "publish"
	redisModeList    = "list"
)

// RedisAdapter writes the payload to a stream (XADD), a pub/sub channel or
// a list.
//
// Endpoint config: addr (defaults to the shared client), password, db,
// mode (stream|publish|list, default stream), key (stream/channel/list
// name, required), maxlen (approximate stream cap).
type RedisAdapter struct {
	shared        redis.UniversalClient
	clients       *clientCache[*redis.Client]
	healthTimeout time.Duration
}

// NewRedisAdapter uses shared for endpoints that do not set addr. shared may
// be nil, in which case addr becomes mandatory.
func NewRedisAdapter(shared redis.UniversalClient, healthTimeout time.Duration) *RedisAdapter {
	if healthTimeout <= 0 {
		healthTimeout = constants.DefaultHealthCheckTimeout
	}
	return &RedisAdapter{
		shared:        shared,
		clients:       newClientCache(func(c *redis.Client) error { return c.Close() }),
		healthTimeout: healthTimeout,
	}
}

func (a *RedisAdapter) Protocol() string { return constants.ProtocolRedis }

func (a *RedisAdapter) ValidateEndpoint(_ context.Context, endpoint *models.Endpoint) error {
	if err := requireConfig(endpoint, "key"); err != nil {
		return err
	}
	if a.shared == nil && endpoint.ConfigString("addr") == "" {
		return apperrors.NewValidation("config.addr", "is required when no shared redis is configured")
	}
	switch mode := endpoint.ConfigString("mode"); mode {
	case "", redisModeStream, redisModePublish, redisModeList:
	default:
		return apperrors.NewValidation("config.mode", "unsupported mode "+mode)
	}
	return nil
}

func (a *RedisAdapter) client(endpoint *models.Endpoint) (redis.UniversalClient, error) {
	addr := endpoint.ConfigString("addr")
	if addr == "" {
		if a.shared == nil {
			return nil, fmt.Errorf("no redis address for endpoint %s", endpoint.ID)
		}
		return a.shared, nil
	}

	db := endpoint.ConfigInt("db", 0)
	password := endpoint.ConfigString("password")
	key := fmt.Sprintf("%s/%d/%s", addr, db, password)

	return a.clients.get(key, func() (*redis.Client, error) {
		return redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}), nil
	})
}

func (a *RedisAdapter) Send(ctx context.Context, req *models.Request, endpoint *models.Endpoint) (*models.Response, error) {
	if err := checkContract(a.Protocol(), req, endpoint); err != nil {
		return nil, err
	}
	if err := a.ValidateEndpoint(ctx, endpoint); err != nil {
		return nil, err
	}
	started := time.Now()

	client, err := a.client(endpoint)
	if err != nil {
		return remoteFailure(ctx, req, endpoint, started, err)
	}

	key := endpoint.ConfigString("key")
	var result string
	switch endpoint.ConfigString("mode") {
	case redisModePublish:
		var receivers int64
		receivers, err = client.Publish(ctx, key, req.Payload).Result()
		result = fmt.Sprintf("%d", receivers)
	case redisModeList:
		var length int64
		length, err = client.LPush(ctx, key, req.Payload).Result()
		result = fmt.Sprintf("%d", length)
	default:
		values := map[string]interface{}{"payload": req.Payload}
		for k, v := range requestHeaders(req) {
			values[k] = v
		}
		if req.Format != "" {
			values["format"] = req.Format
		}
		args := &redis.XAddArgs{Stream: key, Values: values}
		if maxLen := endpoint.ConfigInt("maxlen", 0); maxLen > 0 {
			args.MaxLen = int64(maxLen)
			args.Approx = true
		}
		result, err = client.XAdd(ctx, args).Result()
	}
	if err != nil {
		return remoteFailure(ctx, req, endpoint, started, err)
	}

	resp := models.SuccessResponse(req, endpoint, started)
	resp.Payload = []byte(result)
	return resp, nil
}

func (a *RedisAdapter) CheckHealth(ctx context.Context, endpoint *models.Endpoint) models.HealthStatus {
	client, err := a.client(endpoint)
	if err != nil {
		return models.HealthUnhealthy
	}
	return probe(ctx, a.healthTimeout, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

func (a *RedisAdapter) Close() error {
	return a.clients.closeAll()
}
