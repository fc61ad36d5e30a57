package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conduit/internal/adapter"
	"conduit/internal/logger"
	"conduit/internal/monitoring"
	"conduit/internal/queue"
	"conduit/internal/registry"
	"conduit/internal/routing"
	"conduit/internal/transform"
	apperrors "conduit/pkg/errors"
	"conduit/pkg/models"
)

type stubAdapter struct {
	protocol string
	ok       bool
}

func (s *stubAdapter) Protocol() string { return s.protocol }

func (s *stubAdapter) Send(_ context.Context, req *models.Request, ep *models.Endpoint) (*models.Response, error) {
	if s.ok {
		return models.SuccessResponse(req, ep, time.Now()), nil
	}
	return models.FailureResponse(req, ep, time.Now(), apperrors.NewTransportFailure(context.DeadlineExceeded), true), nil
}

func (s *stubAdapter) ValidateEndpoint(context.Context, *models.Endpoint) error { return nil }

func (s *stubAdapter) CheckHealth(context.Context, *models.Endpoint) models.HealthStatus {
	return models.HealthHealthy
}

type testServer struct {
	engine *gin.Engine
	queue  *queue.Orchestrator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	set, err := adapter.NewSet(&stubAdapter{protocol: "http", ok: true}, &stubAdapter{protocol: "kafka"})
	require.NoError(t, err)

	mon, err := monitoring.NewService(logger.NopLogger())
	require.NoError(t, err)

	reg := registry.New(set, registry.WithEventLogger(mon))
	gw := routing.New(reg, set, routing.WithEventLogger(mon))
	orch := queue.New(reg, set,
		queue.WithQueues("orders"),
		queue.WithTransformer(transform.NewDefaultRegistry()),
		queue.WithEventLogger(mon),
	)

	engine := gin.New()
	NewHandler(reg, gw, orch, mon, nil).RegisterRoutes(engine)
	return &testServer{engine: engine, queue: orch}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	code, _ := body["error_code"].(string)
	return code
}

func (s *testServer) register(t *testing.T, id, protocol string) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/endpoints", map[string]interface{}{"id": id, "protocol": protocol})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "crm", "http")

	w := s.do(t, http.MethodPost, "/api/v1/endpoints", map[string]interface{}{"id": "crm", "protocol": "http"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.CodeDuplicate, errorCode(t, w))

	w = s.do(t, http.MethodPost, "/api/v1/endpoints", map[string]interface{}{"id": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/endpoints/crm", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ep models.Endpoint
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ep))
	assert.True(t, ep.Enabled)

	w = s.do(t, http.MethodPatch, "/api/v1/endpoints/crm/enabled", map[string]interface{}{"enabled": false})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ep))
	assert.False(t, ep.Enabled)

	w = s.do(t, http.MethodGet, "/api/v1/endpoints/crm/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"healthy"`)

	w = s.do(t, http.MethodGet, "/api/v1/endpoints", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Endpoint
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/v1/endpoints/crm", nil).Code)
	w = s.do(t, http.MethodGet, "/api/v1/endpoints/crm", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.CodeNotFound, errorCode(t, w))
}

func TestRoute(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "crm", "http")
	s.register(t, "bus", "kafka")

	w := s.do(t, http.MethodPost, "/api/v1/route", map[string]interface{}{"endpoint_id": "crm", "payload": map[string]int{"n": 1}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "crm", resp.EndpointID)
	assert.NotEmpty(t, resp.RequestID)

	w = s.do(t, http.MethodPost, "/api/v1/route", map[string]interface{}{"endpoint_id": "bus", "payload": map[string]int{}})
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.True(t, resp.Retryable)

	w = s.do(t, http.MethodPost, "/api/v1/route", map[string]interface{}{"endpoint_id": "nope", "payload": map[string]int{}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueueLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "crm", "http")

	w := s.do(t, http.MethodPost, "/api/v1/queues/orders/messages", map[string]interface{}{
		"endpoint_id": "crm",
		"priority":    "high",
		"payload":     map[string]int{"n": 1},
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var enq EnqueueResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &enq))
	require.NotEmpty(t, enq.ID)
	assert.Equal(t, "orders", enq.Queue)

	w = s.do(t, http.MethodGet, "/api/v1/messages/"+enq.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.Equal(t, "queued", msg["state"])
	assert.Equal(t, "high", msg["priority"])

	w = s.do(t, http.MethodPost, "/api/v1/messages/"+enq.ID+"/transform", map[string]string{"target_format": "yaml"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tr TransformResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tr))
	assert.Equal(t, "yaml", tr.Format)
	assert.Equal(t, "n: 1\n", tr.Payload)

	w = s.do(t, http.MethodPost, "/api/v1/messages/"+enq.ID+"/transform", map[string]string{"target_format": "csv"})
	assert.Equal(t, apperrors.CodeUnsupportedFormat, errorCode(t, w))

	w = s.do(t, http.MethodGet, "/api/v1/queues", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var statuses []models.QueueStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &statuses))
	require.NotEmpty(t, statuses)
	for _, st := range statuses {
		if st.Queue == "orders" {
			assert.Equal(t, 1, st.Depth)
		}
	}

	w = s.do(t, http.MethodPost, "/api/v1/messages/missing/retry", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/queues/orders/dead-letters", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestEnqueue_Rejects(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/queues/orders/messages", map[string]interface{}{"endpoint_id": "crm"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/queues/orders/messages", map[string]interface{}{
		"endpoint_id": "crm", "payload": map[string]int{}, "max_retries": -1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeValidation, errorCode(t, w))

	w = s.do(t, http.MethodPost, "/api/v1/queues/orders/messages", map[string]interface{}{
		"id": "m1", "endpoint_id": "crm", "payload": map[string]int{},
	})
	require.Equal(t, http.StatusAccepted, w.Code)
	w = s.do(t, http.MethodPost, "/api/v1/queues/orders/messages", map[string]interface{}{
		"id": "m1", "endpoint_id": "crm", "payload": map[string]int{},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestMetricsAndEvents(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "crm", "http")
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/api/v1/route", map[string]interface{}{"endpoint_id": "crm", "payload": map[string]int{}}).Code)

	now := time.Now().UTC()
	w := s.do(t, http.MethodGet, "/api/v1/metrics?to="+now.Add(time.Minute).Format(time.RFC3339), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var m models.Metrics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, 1, m.Total)
	assert.Equal(t, 1, m.Succeeded)

	w = s.do(t, http.MethodGet, "/api/v1/metrics?from="+now.Format(time.RFC3339)+"&to="+now.Add(-time.Hour).Format(time.RFC3339), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeInvalidRange, errorCode(t, w))

	w = s.do(t, http.MethodGet, "/api/v1/metrics?from=yesterday", nil)
	assert.Equal(t, apperrors.CodeValidation, errorCode(t, w))

	w = s.do(t, http.MethodGet, "/api/v1/events?type=request.routed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var events []models.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "crm", events[0].EndpointID)
}

func TestAlertRules(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/alerts/rules", map[string]interface{}{
		"id": "r1", "name": "errors", "metric": "error_rate", "operator": ">", "threshold": 0.1, "window": "5m",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/alerts/rules", map[string]interface{}{
		"id": "r1", "name": "errors", "metric": "error_rate", "operator": ">", "window": "5m",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/alerts/rules", map[string]interface{}{
		"name": "bad", "metric": "error_rate", "operator": ">", "window": "soon",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/alerts/rules", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rules []models.AlertRule
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rules))
	require.Len(t, rules, 1)
	assert.Equal(t, 5*time.Minute, rules[0].Window)
	assert.True(t, rules[0].Enabled)

	w = s.do(t, http.MethodGet, "/api/v1/alerts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/v1/alerts/rules/r1", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/v1/alerts/rules/r1", nil).Code)
}

func TestDashboardAndHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health models.GatewayHealth
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.True(t, health.Healthy)
	assert.Equal(t, 0, health.Total)

	w = s.do(t, http.MethodGet, "/api/v1/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var d models.HealthDashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.True(t, d.Healthy)
}
