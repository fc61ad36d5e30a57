package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"conduit/internal/monitoring"
	apperrors "conduit/pkg/errors"
	"conduit/pkg/models"
)

const defaultMetricsWindow = 15 * time.Minute

func parseTime(c *gin.Context, key string, fallback time.Time) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, apperrors.NewValidation(key, "must be an RFC 3339 timestamp")
	}
	return t, nil
}

// GetMetrics godoc
// @Summary      Aggregate metrics over a time range
// @Description  from is inclusive and to exclusive. Defaults to the last 15 minutes.
// @Tags         monitoring
// @Produce      json
// @Param        from  query     string  false  "Range start (RFC 3339)"
// @Param        to    query     string  false  "Range end (RFC 3339)"
// @Success      200   {object}  models.Metrics
// @Failure      400   {object}  errors.ErrorResponse
// @Router       /metrics [get]
func (h *Handler) GetMetrics(c *gin.Context) {
	to, err := parseTime(c, "to", time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	from, err := parseTime(c, "from", to.Add(-defaultMetricsWindow))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	m, err := h.monitor.GetMetrics(c.Request.Context(), from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// ListEvents godoc
// @Summary      Query the event log
// @Tags         monitoring
// @Produce      json
// @Param        from         query  string  false  "Range start (RFC 3339)"
// @Param        to           query  string  false  "Range end (RFC 3339)"
// @Param        type         query  string  false  "Event type"
// @Param        endpoint_id  query  string  false  "Endpoint ID"
// @Param        message_id   query  string  false  "Message ID"
// @Param        limit        query  int     false  "Maximum events"
// @Success      200  {array}   models.Event
// @Failure      400  {object}  errors.ErrorResponse
// @Router       /events [get]
func (h *Handler) ListEvents(c *gin.Context) {
	from, err := parseTime(c, "from", time.Time{})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	to, err := parseTime(c, "to", time.Time{})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	events, err := h.monitor.Events(c.Request.Context(), monitoring.EventFilter{
		From:       from,
		To:         to,
		Type:       models.EventType(c.Query("type")),
		EndpointID: c.Query("endpoint_id"),
		MessageID:  c.Query("message_id"),
		Limit:      parseLimit(c.Query("limit")),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// ActiveAlerts godoc
// @Summary      Currently firing alerts
// @Tags         alerts
// @Produce      json
// @Success      200  {array}  models.Alert
// @Router       /alerts [get]
func (h *Handler) ActiveAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.GetActiveAlerts(c.Request.Context()))
}

// AlertHistory godoc
// @Summary      Resolved alerts
// @Tags         alerts
// @Produce      json
// @Success      200  {array}  models.Alert
// @Router       /alerts/history [get]
func (h *Handler) AlertHistory(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.AlertHistory(c.Request.Context()))
}

// ListAlertRules godoc
// @Summary      List alert rules
// @Tags         alerts
// @Produce      json
// @Success      200  {array}  models.AlertRule
// @Router       /alerts/rules [get]
func (h *Handler) ListAlertRules(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.AlertRules(c.Request.Context()))
}

// CreateAlertRule godoc
// @Summary      Create an alert rule
// @Tags         alerts
// @Accept       json
// @Produce      json
// @Param        rule  body      CreateAlertRuleRequest  true  "Rule"
// @Success      201   {object}  models.AlertRule
// @Failure      400   {object}  errors.ErrorResponse
// @Failure      409   {object}  errors.ErrorResponse
// @Router       /alerts/rules [post]
func (h *Handler) CreateAlertRule(c *gin.Context) {
	var req CreateAlertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	rule, err := req.toRule()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	created, err := h.monitor.CreateAlertRule(c.Request.Context(), rule)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// DeleteAlertRule godoc
// @Summary      Delete an alert rule
// @Description  An active alert for the rule is resolved
// @Tags         alerts
// @Param        id   path  string  true  "Rule ID"
// @Success      204  "No Content"
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /alerts/rules/{id} [delete]
func (h *Handler) DeleteAlertRule(c *gin.Context) {
	if err := h.monitor.DeleteAlertRule(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Dashboard godoc
// @Summary      Health dashboard
// @Description  Endpoint health, recent metrics, active alerts and queue status. Sections that fail are listed in warnings.
// @Tags         monitoring
// @Produce      json
// @Success      200  {object}  models.HealthDashboard
// @Router       /dashboard [get]
func (h *Handler) Dashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.GetHealthDashboard(c.Request.Context()))
}

// GatewayHealth godoc
// @Summary      Gateway health
// @Description  Probes every endpoint. 503 when the share of unhealthy endpoints exceeds the configured threshold.
// @Tags         routing
// @Produce      json
// @Success      200  {object}  models.GatewayHealth
// @Failure      503  {object}  models.GatewayHealth
// @Router       /health [get]
func (h *Handler) GatewayHealth(c *gin.Context) {
	health := h.router.CheckHealth(c.Request.Context())
	status := http.StatusOK
	if !health.Healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}
