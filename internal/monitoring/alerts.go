package monitoring

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"conduit/pkg/cel"
	apperrors "conduit/pkg/errors"
	"conduit/pkg/metrics"
	"conduit/pkg/models"
)

func (s *Service) validateRule(rule *models.AlertRule) error {
	if rule.Name == "" {
		return apperrors.NewValidation("name", "rule name is required")
	}
	if rule.Window <= 0 {
		return apperrors.NewValidation("window", "window must be positive")
	}

	if rule.Expression != "" {
		if err := s.evaluator.ValidateBoolExpression(rule.Expression); err != nil {
			return apperrors.NewValidation("expression", err.Error())
		}
		if rule.Metric != "" && !rule.Metric.Valid() {
			return apperrors.NewValidation("metric", fmt.Sprintf("unknown metric %q", rule.Metric))
		}
		return nil
	}

	if !rule.Metric.Valid() {
		return apperrors.NewValidation("metric", fmt.Sprintf("unknown metric %q", rule.Metric))
	}
	if _, err := rule.Operator.Compare(0, 0); err != nil {
		return apperrors.NewValidation("operator", err.Error())
	}
	return nil
}

// CreateAlertRule registers a rule. The rule is evaluated from the next
// evaluator tick on.
func (s *Service) CreateAlertRule(ctx context.Context, rule models.AlertRule) (*models.AlertRule, error) {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if rule.Severity == "" {
		rule.Severity = models.SeverityWarning
	}
	if err := s.validateRule(&rule); err != nil {
		return nil, err
	}
	rule.TenantID = s.tenantOf(ctx, rule.TenantID)
	rule.CreatedAt = s.now()

	s.alertsMu.Lock()
	if _, exists := s.rules[rule.ID]; exists {
		s.alertsMu.Unlock()
		return nil, apperrors.NewDuplicate("alert rule", rule.ID).WithDetail("rule_id", rule.ID)
	}
	stored := rule
	s.rules[rule.ID] = &stored
	s.alertsMu.Unlock()

	s.logger.InfowCtx(ctx, "Alert rule created", "rule_id", rule.ID, "name", rule.Name)
	return &rule, nil
}

// DeleteAlertRule removes a rule and resolves its active alert.
func (s *Service) DeleteAlertRule(ctx context.Context, id string) error {
	now := s.now()

	s.alertsMu.Lock()
	if _, ok := s.rules[id]; !ok {
		s.alertsMu.Unlock()
		return apperrors.NewNotFound("alert rule", id)
	}
	delete(s.rules, id)
	resolved := s.resolveLocked(id, now)
	s.alertsMu.Unlock()

	if resolved != nil {
		s.announce(ctx, resolved)
	}
	s.logger.InfowCtx(ctx, "Alert rule deleted", "rule_id", id)
	return nil
}

func (s *Service) AlertRules(_ context.Context) []models.AlertRule {
	s.alertsMu.RLock()
	out := make([]models.AlertRule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, *r)
	}
	s.alertsMu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// GetActiveAlerts returns the currently firing alerts, oldest first.
func (s *Service) GetActiveAlerts(_ context.Context) []models.Alert {
	s.alertsMu.RLock()
	out := make([]models.Alert, 0, len(s.active))
	for _, a := range s.active {
		out = append(out, *a)
	}
	s.alertsMu.RUnlock()

	sortAlerts(out)
	return out
}

// AlertHistory returns resolved alerts, most recent last.
func (s *Service) AlertHistory(_ context.Context) []models.Alert {
	s.alertsMu.RLock()
	defer s.alertsMu.RUnlock()
	return append([]models.Alert(nil), s.history...)
}

func sortAlerts(alerts []models.Alert) {
	sort.Slice(alerts, func(i, j int) bool {
		if !alerts[i].FiredAt.Equal(alerts[j].FiredAt) {
			return alerts[i].FiredAt.Before(alerts[j].FiredAt)
		}
		return alerts[i].RuleID < alerts[j].RuleID
	})
}

// EvaluateAlerts checks every enabled rule over its trailing window. A
// breach without an active alert fires one; an active alert whose rule no
// longer breaches is resolved.
func (s *Service) EvaluateAlerts(ctx context.Context) {
	now := s.now()

	s.alertsMu.RLock()
	rules := make([]models.AlertRule, 0, len(s.rules))
	for _, r := range s.rules {
		if r.Enabled {
			rules = append(rules, *r)
		}
	}
	s.alertsMu.RUnlock()

	for _, rule := range rules {
		if ctx.Err() != nil {
			return
		}
		breached, value, err := s.evaluateRule(ctx, rule, now)
		if err != nil {
			s.logger.WarnwCtx(ctx, "Alert rule evaluation failed", "rule_id", rule.ID, "error", err)
			continue
		}
		if changed := s.transition(rule, breached, value, now); changed != nil {
			s.announce(ctx, changed)
		}
	}
}

func (s *Service) evaluateRule(ctx context.Context, rule models.AlertRule, now time.Time) (bool, float64, error) {
	from := now.Add(-rule.Window)
	events := s.log.window(from, now.Add(time.Nanosecond), func(e *models.Event) bool {
		return rule.EndpointID == "" || e.EndpointID == rule.EndpointID
	})
	m := aggregate(events, from, now)

	value := 0.0
	if rule.Metric != "" {
		value = m.Value(rule.Metric)
	}
	if rule.Expression != "" {
		breached, err := s.evaluator.EvaluateBool(ctx, rule.Expression, cel.MetricsVars(m))
		return breached, value, err
	}
	breached, err := rule.Operator.Compare(value, rule.Threshold)
	return breached, value, err
}

// transition applies a rule outcome and returns the alert that changed
// state, if any.
func (s *Service) transition(rule models.AlertRule, breached bool, value float64, now time.Time) *models.Alert {
	s.alertsMu.Lock()
	defer s.alertsMu.Unlock()

	if _, ok := s.rules[rule.ID]; !ok {
		return nil
	}

	active, firing := s.active[rule.ID]
	switch {
	case breached && !firing:
		alert := &models.Alert{
			ID:        uuid.New().String(),
			RuleID:    rule.ID,
			RuleName:  rule.Name,
			TenantID:  rule.TenantID,
			Severity:  rule.Severity,
			State:     models.AlertActive,
			Value:     value,
			Threshold: rule.Threshold,
			Message:   alertMessage(rule, value),
			FiredAt:   now,
		}
		s.active[rule.ID] = alert
		metrics.ActiveAlerts.Set(float64(len(s.active)))
		out := *alert
		return &out
	case breached && firing:
		active.Value = value
		return nil
	case !breached && firing:
		return s.resolveLocked(rule.ID, now)
	}
	return nil
}

func (s *Service) resolveLocked(ruleID string, now time.Time) *models.Alert {
	alert, ok := s.active[ruleID]
	if !ok {
		return nil
	}
	delete(s.active, ruleID)
	metrics.ActiveAlerts.Set(float64(len(s.active)))

	resolvedAt := now
	alert.State = models.AlertResolved
	alert.ResolvedAt = &resolvedAt

	s.history = append(s.history, *alert)
	if s.historySize > 0 && len(s.history) > s.historySize {
		s.history = append([]models.Alert(nil), s.history[len(s.history)-s.historySize:]...)
	}
	out := *alert
	return &out
}

func alertMessage(rule models.AlertRule, value float64) string {
	if rule.Expression != "" {
		return fmt.Sprintf("%s: %s", rule.Name, rule.Expression)
	}
	return fmt.Sprintf("%s: %s %.4g %s %.4g", rule.Name, rule.Metric, value, rule.Operator, rule.Threshold)
}

// announce logs an alert transition and records it as an event.
func (s *Service) announce(ctx context.Context, alert *models.Alert) {
	eventType := models.EventAlertFired
	if alert.State == models.AlertResolved {
		eventType = models.EventAlertResolved
	}
	metrics.IncAlertTransition(alert.RuleID, string(alert.State))

	if alert.State == models.AlertActive {
		s.logger.WarnwCtx(ctx, "Alert fired",
			"rule_id", alert.RuleID,
			"severity", string(alert.Severity),
			"value", alert.Value,
			"message", alert.Message,
		)
	} else {
		s.logger.InfowCtx(ctx, "Alert resolved", "rule_id", alert.RuleID)
	}

	s.LogEvent(ctx, models.Event{
		Type:      eventType,
		TenantID:  alert.TenantID,
		Success:   alert.State == models.AlertResolved,
		Timestamp: s.now(),
		Attributes: map[string]string{
			"alert_id": alert.ID,
			"rule_id":  alert.RuleID,
			"severity": string(alert.Severity),
			"value":    fmt.Sprintf("%g", alert.Value),
		},
	})
}

// RunEvaluator evaluates alert rules every interval until ctx is done.
func (s *Service) RunEvaluator(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.EvaluateAlerts(ctx)
		}
	}
}
