package models

import (
	"time"
)

// Request is a protocol-agnostic integration request. EndpointID is optional;
// when empty the routing strategy resolves the target.
type Request struct {
	ID            string            `json:"id"`
	TenantID      string            `json:"tenant_id,omitempty"`
	EndpointID    string            `json:"endpoint_id,omitempty"`
	Operation     string            `json:"operation,omitempty"`
	Payload       []byte            `json:"payload,omitempty"`
	Format        string            `json:"format,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Response carries the adapter outcome. Ordinary remote failures are
// reported through Success=false rather than an error.
type Response struct {
	RequestID  string            `json:"request_id"`
	EndpointID string            `json:"endpoint_id"`
	Protocol   string            `json:"protocol"`
	Success    bool              `json:"success"`
	StatusCode int               `json:"status_code,omitempty"`
	Payload    []byte            `json:"payload,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Error      string            `json:"error,omitempty"`
	Retryable  bool              `json:"retryable"`
	StartedAt  time.Time         `json:"started_at"`
	Duration   time.Duration     `json:"duration"`
}

func SuccessResponse(req *Request, ep *Endpoint, started time.Time) *Response {
	return &Response{
		RequestID:  req.ID,
		EndpointID: ep.ID,
		Protocol:   ep.Protocol,
		Success:    true,
		StartedAt:  started,
		Duration:   time.Since(started),
	}
}

func FailureResponse(req *Request, ep *Endpoint, started time.Time, err error, retryable bool) *Response {
	resp := &Response{
		RequestID:  req.ID,
		EndpointID: ep.ID,
		Protocol:   ep.Protocol,
		Success:    false,
		Retryable:  retryable,
		StartedAt:  started,
		Duration:   time.Since(started),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}
