package adapter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"conduit/internal/constants"
	apperrors "conduit/pkg/errors"
	"conduit/pkg/models"
	"conduit/pkg/tracing"
)

const maxHTTPResponseBytes = 1 << 20

// HTTPAdapter delivers the payload as the body of an HTTP call.
//
// Endpoint config: url (required), method (default POST), headers (map),
// timeout (duration), health_url, health_method (default GET).
type HTTPAdapter struct {
	client        *http.Client
	healthTimeout time.Duration
}

func NewHTTPAdapter(client *http.Client, healthTimeout time.Duration) *HTTPAdapter {
	if client == nil {
		client = &http.Client{Timeout: constants.DefaultHTTPTimeout}
	}
	if healthTimeout <= 0 {
		healthTimeout = constants.DefaultHealthCheckTimeout
	}
	return &HTTPAdapter{client: client, healthTimeout: healthTimeout}
}

func (a *HTTPAdapter) Protocol() string { return constants.ProtocolHTTP }

func (a *HTTPAdapter) ValidateEndpoint(_ context.Context, endpoint *models.Endpoint) error {
	if err := requireConfig(endpoint, "url"); err != nil {
		return err
	}
	u, err := url.Parse(endpoint.ConfigString("url"))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperrors.NewValidation("config.url", "must be an absolute http(s) URL")
	}
	if method := endpoint.ConfigString("method"); method != "" {
		switch strings.ToUpper(method) {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodGet, http.MethodDelete:
		default:
			return apperrors.NewValidation("config.method", "unsupported method "+method)
		}
	}
	return nil
}

func (a *HTTPAdapter) Send(ctx context.Context, req *models.Request, endpoint *models.Endpoint) (*models.Response, error) {
	if err := checkContract(a.Protocol(), req, endpoint); err != nil {
		return nil, err
	}
	started := time.Now()

	if timeout := endpoint.ConfigDuration("timeout", 0); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	method := strings.ToUpper(endpoint.ConfigString("method"))
	if method == "" {
		method = http.MethodPost
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint.ConfigString("url"), bytes.NewReader(req.Payload))
	if err != nil {
		return nil, apperrors.NewValidation("config.url", err.Error())
	}
	httpReq.Header.Set("Content-Type", contentType(req.Format))
	if req.CorrelationID != "" {
		httpReq.Header.Set(constants.HeaderCorrelationID, req.CorrelationID)
	}
	if req.ID != "" {
		httpReq.Header.Set(constants.HeaderMessageID, req.ID)
	}
	if req.TenantID != "" {
		httpReq.Header.Set(constants.HeaderTenantID, req.TenantID)
	}
	if headers, ok := endpoint.Config["headers"].(map[string]interface{}); ok {
		for k, v := range headers {
			httpReq.Header.Set(k, fmt.Sprint(v))
		}
	}
	tracing.InjectHTTPHeaders(ctx, httpReq.Header)

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return remoteFailure(ctx, req, endpoint, started, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxHTTPResponseBytes))
	if err != nil {
		return remoteFailure(ctx, req, endpoint, started, err)
	}

	resp := &models.Response{
		RequestID:  req.ID,
		EndpointID: endpoint.ID,
		Protocol:   endpoint.Protocol,
		StatusCode: httpResp.StatusCode,
		Payload:    body,
		Headers:    flattenHeaders(httpResp.Header),
		StartedAt:  started,
		Duration:   time.Since(started),
	}

	if httpResp.StatusCode >= constants.HTTPStatusOKMin && httpResp.StatusCode < constants.HTTPStatusOKMax {
		resp.Success = true
		return resp, nil
	}

	resp.Error = fmt.Sprintf("remote returned status %d", httpResp.StatusCode)
	resp.Retryable = retryableStatus(httpResp.StatusCode)
	return resp, nil
}

func (a *HTTPAdapter) CheckHealth(ctx context.Context, endpoint *models.Endpoint) models.HealthStatus {
	target := endpoint.ConfigString("health_url")
	if target == "" {
		target = endpoint.ConfigString("url")
	}
	method := strings.ToUpper(endpoint.ConfigString("health_method"))
	if method == "" {
		method = http.MethodGet
	}

	var status int
	result := probe(ctx, a.healthTimeout, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, target, nil)
		if err != nil {
			return err
		}
		resp, err := a.client.Do(req)
		if err != nil {
			return err
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxHTTPResponseBytes))
		resp.Body.Close()
		status = resp.StatusCode
		return nil
	})
	if result != models.HealthHealthy {
		return result
	}

	switch {
	case status >= 500:
		return models.HealthUnhealthy
	case status >= 400:
		return models.HealthDegraded
	default:
		return models.HealthHealthy
	}
}

func retryableStatus(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

func contentType(format string) string {
	switch strings.ToLower(format) {
	case "", "json":
		return "application/json"
	case "yaml":
		return "application/yaml"
	case "xml":
		return "application/xml"
	case "text":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}
