// Package adapter holds the protocol adapters that carry requests to
// external systems and the set that selects them by protocol tag.
package adapter

import (
	"context"
	"errors"
	"time"

	apperrors "conduit/pkg/errors"
	"conduit/pkg/models"
)

// Adapter is the capability set every protocol implements.
//
// Send reports ordinary remote failures (refused connections, non-success
// replies, timeouts) through Response.Success=false and a nil error. It
// returns an error only for contract violations and for cancellation of ctx,
// which surfaces as a CANCELED error.
type Adapter interface {
	Protocol() string
	Send(ctx context.Context, req *models.Request, endpoint *models.Endpoint) (*models.Response, error)
	ValidateEndpoint(ctx context.Context, endpoint *models.Endpoint) error
	CheckHealth(ctx context.Context, endpoint *models.Endpoint) models.HealthStatus
}

// checkContract validates the arguments every Send receives.
func checkContract(protocol string, req *models.Request, endpoint *models.Endpoint) error {
	if req == nil {
		return apperrors.NewValidation("request", "request is nil")
	}
	if endpoint == nil {
		return apperrors.NewValidation("endpoint", "endpoint is nil")
	}
	if endpoint.Protocol != protocol {
		return apperrors.NewValidation("endpoint.protocol",
			"endpoint protocol "+endpoint.Protocol+" sent to "+protocol+" adapter")
	}
	return nil
}

// remoteFailure maps a transport error into the Send result. Cancellation
// of ctx is surfaced as an error, anything else becomes a retryable failure
// response.
func remoteFailure(ctx context.Context, req *models.Request, endpoint *models.Endpoint, started time.Time, err error) (*models.Response, error) {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.Canceled) {
		return nil, apperrors.FromContext(ctxErr)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.FailureResponse(req, endpoint, started, apperrors.ErrTimeout.WithCause(err), true), nil
	}
	return models.FailureResponse(req, endpoint, started, apperrors.NewTransportFailure(err), true), nil
}

// probe runs check with a bounded timeout and maps the outcome to a status.
// A probe that exceeds its deadline reports degraded rather than hanging.
func probe(ctx context.Context, timeout time.Duration, check func(ctx context.Context) error) models.HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- check(ctx) }()

	select {
	case err := <-done:
		if err == nil {
			return models.HealthHealthy
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return models.HealthDegraded
		}
		return models.HealthUnhealthy
	case <-ctx.Done():
		return models.HealthDegraded
	}
}

func requireConfig(endpoint *models.Endpoint, keys ...string) error {
	if endpoint == nil {
		return apperrors.NewValidation("endpoint", "endpoint is nil")
	}
	for _, key := range keys {
		if endpoint.ConfigString(key) == "" {
			return apperrors.NewValidation("config."+key, "is required for protocol "+endpoint.Protocol)
		}
	}
	return nil
}

func requestHeaders(req *models.Request) map[string]string {
	headers := make(map[string]string, len(req.Metadata)+4)
	for k, v := range req.Metadata {
		headers[k] = v
	}
	if req.ID != "" {
		headers["message_id"] = req.ID
	}
	if req.CorrelationID != "" {
		headers["correlation_id"] = req.CorrelationID
	}
	if req.TenantID != "" {
		headers["tenant_id"] = req.TenantID
	}
	if req.Operation != "" {
		headers["operation"] = req.Operation
	}
	return headers
}
