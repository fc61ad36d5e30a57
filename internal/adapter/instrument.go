package adapter

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"conduit/internal/logger"
	apperrors "conduit/pkg/errors"
	"conduit/pkg/metrics"
	"conduit/pkg/models"
	"conduit/pkg/tracing"
)

// InstrumentedAdapter bounds every Send by a deadline, recovers adapter
// panics and records metrics and a trace span per call.
type InstrumentedAdapter struct {
	next    Adapter
	timeout time.Duration
	logger  logger.Logger
	tracer  trace.Tracer
}

func Instrument(a Adapter, timeout time.Duration, log logger.Logger) *InstrumentedAdapter {
	if log == nil {
		log = logger.NopLogger()
	}
	return &InstrumentedAdapter{
		next:    a,
		timeout: timeout,
		logger:  log,
		tracer:  tracing.GetTracer("conduit-adapter"),
	}
}

func (i *InstrumentedAdapter) Protocol() string { return i.next.Protocol() }

func (i *InstrumentedAdapter) ValidateEndpoint(ctx context.Context, endpoint *models.Endpoint) error {
	return apperrors.SafeCall(func() error {
		return i.next.ValidateEndpoint(ctx, endpoint)
	})
}

func (i *InstrumentedAdapter) CheckHealth(ctx context.Context, endpoint *models.Endpoint) (status models.HealthStatus) {
	defer func() {
		if r := recover(); r != nil {
			i.logger.ErrorwCtx(ctx, "Adapter health check panicked",
				"protocol", i.Protocol(),
				"error", apperrors.RecoverPanic(r),
			)
			status = models.HealthUnhealthy
		}
	}()
	return i.next.CheckHealth(ctx, endpoint)
}

type sendResult struct {
	resp *models.Response
	err  error
}

func (i *InstrumentedAdapter) Send(ctx context.Context, req *models.Request, endpoint *models.Endpoint) (*models.Response, error) {
	if err := checkContract(i.Protocol(), req, endpoint); err != nil {
		return nil, err
	}
	started := time.Now()

	ctx, span := i.tracer.Start(ctx, "adapter.send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.DeliveryAttributes(req.TenantID, endpoint.ID, endpoint.Protocol, req.ID)...),
	)

	sendCtx := ctx
	if i.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	done := make(chan sendResult, 1)
	go func() {
		var res sendResult
		res.err = apperrors.SafeCall(func() error {
			var err error
			res.resp, err = i.next.Send(sendCtx, req, endpoint)
			return err
		})
		done <- res
	}()

	var res sendResult
	select {
	case res = <-done:
	case <-sendCtx.Done():
		// The adapter ignored its deadline; report and move on.
		res.resp, res.err = remoteFailure(sendCtx, req, endpoint, started, sendCtx.Err())
		if ctx.Err() != nil {
			res.resp, res.err = nil, apperrors.FromContext(ctx.Err())
		}
	}

	if res.err == nil && res.resp == nil {
		res.err = apperrors.ErrInternal.WithMessage("adapter returned neither response nor error")
	}

	switch {
	case res.err != nil:
		tracing.EndSpan(span, res.err)
		metrics.ObserveAdapterRequest(endpoint.Protocol, false, time.Since(started))
		if !apperrors.IsCanceled(res.err) {
			i.logger.WarnwCtx(ctx, "Adapter send failed",
				"protocol", endpoint.Protocol,
				"endpoint_id", endpoint.ID,
				"error", res.err,
			)
		}
		return nil, res.err
	case !res.resp.Success:
		span.SetAttributes(
			tracing.AttrRetryable.Bool(res.resp.Retryable),
			tracing.AttrStatusCode.Int(res.resp.StatusCode),
		)
		tracing.EndSpan(span, apperrors.ErrTransportFailure.WithMessage(res.resp.Error))
	default:
		span.SetAttributes(tracing.AttrStatusCode.Int(res.resp.StatusCode))
		tracing.EndSpan(span, nil)
	}

	metrics.ObserveAdapterRequest(endpoint.Protocol, res.resp.Success, time.Since(started))
	return res.resp, nil
}

func (i *InstrumentedAdapter) ReleaseEndpoint(endpointID string) {
	releaseEndpoint(i.next, endpointID)
}

func (i *InstrumentedAdapter) Close() error {
	if c, ok := i.next.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
