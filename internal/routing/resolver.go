package routing

import (
	"context"
	"fmt"
	"iter"

	"conduit/internal/config"
	"conduit/internal/logger"
	"conduit/pkg/cel"
	"conduit/pkg/models"
)

// Resolver picks the endpoint a request goes to. It returns "" when it has
// no opinion, letting a ChainResolver try the next strategy.
type Resolver interface {
	Resolve(ctx context.Context, req *models.Request, endpoints iter.Seq[models.Endpoint]) (string, error)
}

type ResolverFunc func(ctx context.Context, req *models.Request, endpoints iter.Seq[models.Endpoint]) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context, req *models.Request, endpoints iter.Seq[models.Endpoint]) (string, error) {
	return f(ctx, req, endpoints)
}

// ExplicitResolver routes to the endpoint named on the request.
type ExplicitResolver struct{}

func (ExplicitResolver) Resolve(_ context.Context, req *models.Request, _ iter.Seq[models.Endpoint]) (string, error) {
	return req.EndpointID, nil
}

// ChainResolver asks each resolver in turn and returns the first non-empty
// answer or the first error.
type ChainResolver []Resolver

func (c ChainResolver) Resolve(ctx context.Context, req *models.Request, endpoints iter.Seq[models.Endpoint]) (string, error) {
	for _, r := range c {
		id, err := r.Resolve(ctx, req, endpoints)
		if err != nil {
			return "", err
		}
		if id != "" {
			return id, nil
		}
	}
	return "", nil
}

type Rule struct {
	Name       string
	Expression string
	EndpointID string
}

// RuleResolver evaluates CEL rules over the `request` variable in order. The
// first matching rule whose endpoint is registered and enabled wins, so a
// later rule can act as a fallback for a disabled target.
type RuleResolver struct {
	rules     []Rule
	evaluator *cel.Evaluator
	logger    logger.Logger
}

func NewRuleResolver(rules []Rule, log logger.Logger) (*RuleResolver, error) {
	evaluator, err := cel.NewRequestEvaluator()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NopLogger()
	}

	for i, r := range rules {
		if r.Expression == "" || r.EndpointID == "" {
			return nil, fmt.Errorf("routing rule %d (%s): expression and endpoint_id are required", i, r.Name)
		}
		if err := evaluator.ValidateBoolExpression(r.Expression); err != nil {
			return nil, fmt.Errorf("routing rule %d (%s): %w", i, r.Name, err)
		}
	}

	return &RuleResolver{rules: append([]Rule(nil), rules...), evaluator: evaluator, logger: log}, nil
}

func RulesFromConfig(cfg []config.RouteRule) []Rule {
	rules := make([]Rule, 0, len(cfg))
	for _, r := range cfg {
		rules = append(rules, Rule{Name: r.Name, Expression: r.Expression, EndpointID: r.EndpointID})
	}
	return rules
}

func (r *RuleResolver) Resolve(ctx context.Context, req *models.Request, endpoints iter.Seq[models.Endpoint]) (string, error) {
	if len(r.rules) == 0 {
		return "", nil
	}

	usable := make(map[string]bool)
	for ep := range endpoints {
		usable[ep.ID] = ep.Enabled
	}

	vars := cel.RequestVars(req)
	for _, rule := range r.rules {
		matched, err := r.evaluator.EvaluateBool(ctx, rule.Expression, vars)
		if err != nil {
			// A rule referencing absent fields does not match.
			r.logger.DebugwCtx(ctx, "Routing rule evaluation failed", "rule", rule.Name, "error", err)
			continue
		}
		if !matched {
			continue
		}
		if !usable[rule.EndpointID] {
			r.logger.DebugwCtx(ctx, "Routing rule target unavailable", "rule", rule.Name, "endpoint_id", rule.EndpointID)
			continue
		}
		return rule.EndpointID, nil
	}
	return "", nil
}
