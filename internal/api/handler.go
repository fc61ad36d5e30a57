// Package api exposes the registry, routing, queue and monitoring
// operations over HTTP.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"conduit/internal/constants"
	"conduit/internal/logger"
	apperrors "conduit/pkg/errors"
	"conduit/pkg/models"
)

type Handler struct {
	registry Registry
	router   Router
	queue    Queue
	monitor  Monitor
	logger   logger.Logger
}

func NewHandler(registry Registry, router Router, queue Queue, monitor Monitor, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NopLogger()
	}
	return &Handler{
		registry: registry,
		router:   router,
		queue:    queue,
		monitor:  monitor,
		logger:   log,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		endpoints := v1.Group("/endpoints")
		{
			endpoints.GET("", h.ListEndpoints)
			endpoints.POST("", h.RegisterEndpoint)
			endpoints.GET("/:id", h.GetEndpoint)
			endpoints.DELETE("/:id", h.UnregisterEndpoint)
			endpoints.PATCH("/:id/enabled", h.SetEndpointEnabled)
			endpoints.GET("/:id/health", h.CheckEndpointHealth)
		}

		v1.POST("/route", h.Route)

		queues := v1.Group("/queues")
		{
			queues.GET("", h.QueueStatus)
			queues.POST("/:queue/messages", h.Enqueue)
			queues.GET("/:queue/dead-letters", h.DeadLetters)
		}

		messages := v1.Group("/messages")
		{
			messages.GET("/:id", h.GetMessage)
			messages.POST("/:id/retry", h.RetryMessage)
			messages.POST("/:id/transform", h.TransformMessage)
		}

		v1.GET("/metrics", h.GetMetrics)
		v1.GET("/events", h.ListEvents)

		alerts := v1.Group("/alerts")
		{
			alerts.GET("", h.ActiveAlerts)
			alerts.GET("/history", h.AlertHistory)
			alerts.GET("/rules", h.ListAlertRules)
			alerts.POST("/rules", h.CreateAlertRule)
			alerts.DELETE("/rules/:id", h.DeleteAlertRule)
		}

		v1.GET("/dashboard", h.Dashboard)
		v1.GET("/health", h.GatewayHealth)
	}
}

// HandleError writes err as a JSON error body with the status of its code.
func (h *Handler) HandleError(c *gin.Context, err error) {
	status := apperrors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	} else {
		h.logger.DebugwCtx(c.Request.Context(), "Request rejected", "error", err, "path", c.Request.URL.Path)
	}
	c.JSON(status, apperrors.ToErrorResponse(err))
}

func (h *Handler) bindError(c *gin.Context, err error) {
	h.HandleError(c, apperrors.ErrValidation.WithCause(err))
}

// asValidation maps a model validation failure onto the error taxonomy.
func asValidation(err error) error {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return apperrors.NewValidation(ve.Field, ve.Message)
	}
	return apperrors.ErrValidation.WithCause(err)
}

func parseLimit(s string) int {
	if s == "" {
		return constants.DefaultLimit
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return constants.DefaultLimit
	}
	if n > constants.MaxLimit {
		return constants.MaxLimit
	}
	return n
}
