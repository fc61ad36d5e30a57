package cel

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/cel-go/cel"
	"google.golang.org/protobuf/types/known/structpb"

	"conduit/pkg/models"
)

var jsonValueType = reflect.TypeOf(&structpb.Value{})

// Evaluator compiles and runs CEL expressions against one declared set of
// variables. Compiled programs are cached by expression text.
type Evaluator struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

func newEvaluator(opts ...cel.EnvOption) (*Evaluator, error) {
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Evaluator{env: env, programs: make(map[string]cel.Program)}, nil
}

// NewRequestEvaluator declares a single `request` map used by routing rules:
// id, tenant_id, endpoint_id, operation, format, correlation_id, metadata and
// payload (the decoded JSON body, or an empty map).
func NewRequestEvaluator() (*Evaluator, error) {
	return newEvaluator(
		cel.Variable("request", cel.MapType(cel.StringType, cel.DynType)),
	)
}

// NewMetricsEvaluator declares one double per alert metric.
func NewMetricsEvaluator() (*Evaluator, error) {
	opts := make([]cel.EnvOption, 0, len(metricNames))
	for _, name := range metricNames {
		opts = append(opts, cel.Variable(string(name), cel.DoubleType))
	}
	return newEvaluator(opts...)
}

// NewPayloadEvaluator declares `payload` (decoded JSON), `value` (the
// field being mapped) and `metadata` for payload mapping expressions.
func NewPayloadEvaluator() (*Evaluator, error) {
	return newEvaluator(
		cel.Variable("payload", cel.DynType),
		cel.Variable("value", cel.DynType),
		cel.Variable("metadata", cel.MapType(cel.StringType, cel.StringType)),
	)
}

var metricNames = []models.AlertMetric{
	models.MetricErrorRate,
	models.MetricFailureCount,
	models.MetricEventCount,
	models.MetricAvgLatencyMs,
	models.MetricP95LatencyMs,
	models.MetricDeadLetterCount,
}

func (e *Evaluator) ValidateExpression(expression string) error {
	_, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}
	return nil
}

// ValidateBoolExpression rejects expressions whose static type is not bool.
// Dyn is accepted and checked at evaluation time.
func (e *Evaluator) ValidateBoolExpression(expression string) error {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}
	if out := ast.OutputType(); out != cel.BoolType && out != cel.DynType {
		return fmt.Errorf("expression must return bool, got %v", out)
	}
	return nil
}

func (e *Evaluator) program(expression string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[expression]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	e.mu.Lock()
	e.programs[expression] = prg
	e.mu.Unlock()
	return prg, nil
}

func (e *Evaluator) EvaluateBool(ctx context.Context, expression string, vars map[string]interface{}) (bool, error) {
	prg, err := e.program(expression)
	if err != nil {
		return false, err
	}

	result, _, err := prg.ContextEval(ctx, vars)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	b, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}
	return b, nil
}

// Evaluate returns the result converted to plain Go JSON values
// (map[string]interface{}, []interface{}, float64, string, bool, nil).
func (e *Evaluator) Evaluate(ctx context.Context, expression string, vars map[string]interface{}) (interface{}, error) {
	prg, err := e.program(expression)
	if err != nil {
		return nil, err
	}

	result, _, err := prg.ContextEval(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	native, err := result.ConvertToNative(jsonValueType)
	if err != nil {
		return nil, fmt.Errorf("CEL result is not JSON compatible: %w", err)
	}
	return native.(*structpb.Value).AsInterface(), nil
}

// RequestVars builds the `request` variable for a routing decision.
func RequestVars(req *models.Request) map[string]interface{} {
	metadata := make(map[string]interface{}, len(req.Metadata))
	for k, v := range req.Metadata {
		metadata[k] = v
	}

	return map[string]interface{}{
		"request": map[string]interface{}{
			"id":             req.ID,
			"tenant_id":      req.TenantID,
			"endpoint_id":    req.EndpointID,
			"operation":      req.Operation,
			"format":         req.Format,
			"correlation_id": req.CorrelationID,
			"metadata":       metadata,
			"payload":        DecodePayload(req.Payload),
		},
	}
}

// MetricsVars exposes every alert metric of m as a double.
func MetricsVars(m *models.Metrics) map[string]interface{} {
	vars := make(map[string]interface{}, len(metricNames))
	for _, name := range metricNames {
		vars[string(name)] = m.Value(name)
	}
	return vars
}

// DecodePayload returns the JSON object in payload or an empty map.
func DecodePayload(payload []byte) map[string]interface{} {
	var out map[string]interface{}
	if len(payload) == 0 || json.Unmarshal(payload, &out) != nil || out == nil {
		return map[string]interface{}{}
	}
	return out
}
