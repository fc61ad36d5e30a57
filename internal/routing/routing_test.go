package routing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/adapter"
	"conduit/internal/logger"
	"conduit/internal/registry"
	apperrors "conduit/pkg/errors"
	"conduit/pkg/models"
)

type stubAdapter struct {
	protocol string
	ok       bool
	health   models.HealthStatus
}

func (s *stubAdapter) Protocol() string { return s.protocol }

func (s *stubAdapter) Send(_ context.Context, req *models.Request, ep *models.Endpoint) (*models.Response, error) {
	if s.ok {
		resp := models.SuccessResponse(req, ep, time.Now())
		resp.StatusCode = 200
		return resp, nil
	}
	return models.FailureResponse(req, ep, time.Now(), apperrors.ErrTimeout, true), nil
}

func (s *stubAdapter) ValidateEndpoint(context.Context, *models.Endpoint) error { return nil }

func (s *stubAdapter) CheckHealth(context.Context, *models.Endpoint) models.HealthStatus {
	return s.health
}

type recordingEvents struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recordingEvents) LogEvent(_ context.Context, e models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEvents) all() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Event(nil), r.events...)
}

func newRegistry(t *testing.T, adapters *adapter.Set, endpoints ...models.Endpoint) *registry.Registry {
	t.Helper()
	reg := registry.New(adapters)
	for _, ep := range endpoints {
		_, err := reg.Register(context.Background(), ep)
		require.NoError(t, err)
	}
	return reg
}

func TestGateway_Route(t *testing.T) {
	set, err := adapter.NewSet(&stubAdapter{protocol: "http", ok: true}, &stubAdapter{protocol: "kafka", ok: false})
	require.NoError(t, err)
	reg := newRegistry(t, set,
		models.Endpoint{ID: "crm", Protocol: "http", Enabled: true},
		models.Endpoint{ID: "bus", Protocol: "kafka", Enabled: true},
		models.Endpoint{ID: "off", Protocol: "http", Enabled: false},
		models.Endpoint{ID: "ftp", Protocol: "ftp", Enabled: true},
	)
	events := &recordingEvents{}
	gw := New(reg, set, WithEventLogger(events))
	ctx := context.Background()

	resp, err := gw.Route(ctx, &models.Request{EndpointID: "crm", Payload: []byte(`{}`)})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = gw.Route(ctx, &models.Request{EndpointID: "bus"})
	require.NoError(t, err, "remote failures are reported in the response")
	assert.False(t, resp.Success)
	assert.True(t, resp.Retryable)

	_, err = gw.Route(ctx, &models.Request{EndpointID: "missing"})
	assert.True(t, apperrors.IsNotFound(err))

	_, err = gw.Route(ctx, &models.Request{})
	assert.True(t, apperrors.IsNotFound(err))

	_, err = gw.Route(ctx, &models.Request{EndpointID: "off"})
	assert.True(t, apperrors.IsEndpointDisabled(err))

	_, err = gw.Route(ctx, &models.Request{EndpointID: "ftp"})
	assert.True(t, apperrors.IsAdapterUnavailable(err))

	_, err = gw.Route(ctx, nil)
	assert.True(t, apperrors.IsValidation(err))

	recorded := events.all()
	require.Len(t, recorded, 6, "every routed request is recorded, nil request excepted")
	for _, e := range recorded {
		assert.Equal(t, models.EventRequestRouted, e.Type)
		assert.NotEmpty(t, e.RequestID)
	}
	assert.True(t, recorded[0].Success)
	assert.Equal(t, "http", recorded[0].Protocol)
	assert.False(t, recorded[1].Success)
	assert.NotEmpty(t, recorded[2].Error)
}

func TestGateway_RouteDoesNotMutateRequest(t *testing.T) {
	set, err := adapter.NewSet(&stubAdapter{protocol: "http", ok: true})
	require.NoError(t, err)
	reg := newRegistry(t, set, models.Endpoint{ID: "crm", Protocol: "http", Enabled: true})
	gw := New(reg, set)

	req := &models.Request{EndpointID: "crm"}
	_, err = gw.Route(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, req.ID)
}

func TestGateway_RouteCancelled(t *testing.T) {
	set, err := adapter.NewSet(&stubAdapter{protocol: "http", ok: true})
	require.NoError(t, err)
	reg := newRegistry(t, set, models.Endpoint{ID: "crm", Protocol: "http", Enabled: true})
	gw := New(reg, set)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gw.Route(ctx, &models.Request{EndpointID: "crm"})
	assert.True(t, apperrors.IsCanceled(err))
}

func TestRuleResolver(t *testing.T) {
	set, err := adapter.NewSet(&stubAdapter{protocol: "http", ok: true})
	require.NoError(t, err)
	reg := newRegistry(t, set,
		models.Endpoint{ID: "orders-primary", Protocol: "http", Enabled: false},
		models.Endpoint{ID: "orders-backup", Protocol: "http", Enabled: true},
		models.Endpoint{ID: "billing", Protocol: "http", Enabled: true},
	)

	rules, err := NewRuleResolver([]Rule{
		{Name: "orders", Expression: `request.operation == "order.create"`, EndpointID: "orders-primary"},
		{Name: "orders-fallback", Expression: `request.operation == "order.create"`, EndpointID: "orders-backup"},
		{Name: "eu-billing", Expression: `request.metadata.region == "eu"`, EndpointID: "billing"},
		{Name: "big", Expression: `request.payload.amount > 1000.0`, EndpointID: "billing"},
	}, logger.NopLogger())
	require.NoError(t, err)

	gw := New(reg, set, WithResolver(ChainResolver{ExplicitResolver{}, rules}))
	ctx := context.Background()

	tests := []struct {
		name string
		req  *models.Request
		want string
	}{
		{"explicit wins", &models.Request{EndpointID: "billing", Operation: "order.create"}, "billing"},
		{"disabled target falls through", &models.Request{Operation: "order.create"}, "orders-backup"},
		{"metadata", &models.Request{Metadata: map[string]string{"region": "eu"}}, "billing"},
		{"payload", &models.Request{Payload: []byte(`{"amount": 5000}`)}, "billing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := gw.ResolveEndpoint(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}

	_, err = gw.ResolveEndpoint(ctx, &models.Request{Operation: "unknown"})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestNewRuleResolver_RejectsBadRules(t *testing.T) {
	_, err := NewRuleResolver([]Rule{{Name: "bad", Expression: `request.operation ==`, EndpointID: "e"}}, nil)
	assert.Error(t, err)

	_, err = NewRuleResolver([]Rule{{Name: "not-bool", Expression: `1 + 2`, EndpointID: "e"}}, nil)
	assert.Error(t, err)

	_, err = NewRuleResolver([]Rule{{Name: "no-target", Expression: `true`}}, nil)
	assert.Error(t, err)
}

func TestGateway_CheckHealth(t *testing.T) {
	healthy := &stubAdapter{protocol: "http", health: models.HealthHealthy}
	sick := &stubAdapter{protocol: "kafka", health: models.HealthUnhealthy}
	set, err := adapter.NewSet(healthy, sick)
	require.NoError(t, err)

	empty := New(newRegistry(t, set), set)
	assert.True(t, empty.CheckHealth(context.Background()).Healthy)

	reg := newRegistry(t, set,
		models.Endpoint{ID: "a", Protocol: "http", Enabled: true},
		models.Endpoint{ID: "b", Protocol: "http", Enabled: true},
		models.Endpoint{ID: "c", Protocol: "http", Enabled: true},
		models.Endpoint{ID: "d", Protocol: "kafka", Enabled: true},
	)

	strict := New(reg, set).CheckHealth(context.Background())
	assert.False(t, strict.Healthy)
	assert.Equal(t, 4, strict.Total)
	assert.Equal(t, 1, strict.Failing)
	assert.InDelta(t, 0.25, strict.FailureFraction, 1e-9)
	assert.Len(t, strict.Endpoints, 4)

	tolerant := New(reg, set, WithFailureThreshold(0.25)).CheckHealth(context.Background())
	assert.True(t, tolerant.Healthy)
}
