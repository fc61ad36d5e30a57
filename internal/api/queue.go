package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"conduit/pkg/models"
)

// Route godoc
// @Summary      Route a request synchronously
// @Description  Resolves the target endpoint and sends through its adapter. A failed delivery is reported in the body with status 502.
// @Tags         routing
// @Accept       json
// @Produce      json
// @Param        request  body      RouteRequest  true  "Request"
// @Success      200      {object}  models.Response
// @Failure      404      {object}  errors.ErrorResponse
// @Failure      409      {object}  errors.ErrorResponse
// @Failure      422      {object}  errors.ErrorResponse
// @Failure      502      {object}  models.Response
// @Router       /route [post]
func (h *Handler) Route(c *gin.Context) {
	var req RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	resp, err := h.router.Route(c.Request.Context(), req.toRequest())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	status := http.StatusOK
	if !resp.Success {
		status = http.StatusBadGateway
	}
	c.JSON(status, resp)
}

// Enqueue godoc
// @Summary      Enqueue a message
// @Description  Returns as soon as the message is queued; delivery happens asynchronously
// @Tags         queues
// @Accept       json
// @Produce      json
// @Param        queue    path      string          true  "Queue name"
// @Param        message  body      EnqueueRequest  true  "Message"
// @Success      202      {object}  EnqueueResponse
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      409      {object}  errors.ErrorResponse
// @Router       /queues/{queue}/messages [post]
func (h *Handler) Enqueue(c *gin.Context) {
	var req EnqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	env := req.envelope(c.Param("queue"))
	if err := models.ValidateInboundEnvelope(env); err != nil {
		h.HandleError(c, asValidation(err))
		return
	}

	msg := env.ToMessage()
	id, err := h.queue.Enqueue(c.Request.Context(), *msg, req.Priority)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, EnqueueResponse{ID: id, Queue: env.Queue})
}

// QueueStatus godoc
// @Summary      Queue status
// @Tags         queues
// @Produce      json
// @Success      200  {array}  models.QueueStatus
// @Router       /queues [get]
func (h *Handler) QueueStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.queue.QueueStatus(c.Request.Context()))
}

// DeadLetters godoc
// @Summary      List dead-lettered messages
// @Tags         queues
// @Produce      json
// @Param        queue  path   string  true  "Queue name"
// @Success      200    {array}  models.Message
// @Router       /queues/{queue}/dead-letters [get]
func (h *Handler) DeadLetters(c *gin.Context) {
	c.JSON(http.StatusOK, h.queue.DeadLetters(c.Request.Context(), c.Param("queue")))
}

// GetMessage godoc
// @Summary      Get a message
// @Tags         messages
// @Produce      json
// @Param        id   path      string  true  "Message ID"
// @Success      200  {object}  models.Message
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /messages/{id} [get]
func (h *Handler) GetMessage(c *gin.Context) {
	msg, err := h.queue.Message(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// RetryMessage godoc
// @Summary      Retry a failed or dead-lettered message
// @Description  Resets the retry count and requeues the message immediately
// @Tags         messages
// @Param        id   path  string  true  "Message ID"
// @Success      202  "Accepted"
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /messages/{id}/retry [post]
func (h *Handler) RetryMessage(c *gin.Context) {
	if err := h.queue.RetryFailed(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// TransformMessage godoc
// @Summary      Preview a payload transformation
// @Description  The queued message is left unchanged
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        id       path      string            true  "Message ID"
// @Param        request  body      TransformRequest  true  "Target format"
// @Success      200      {object}  TransformResponse
// @Failure      404      {object}  errors.ErrorResponse
// @Failure      422      {object}  errors.ErrorResponse
// @Router       /messages/{id}/transform [post]
func (h *Handler) TransformMessage(c *gin.Context) {
	var req TransformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	ctx := c.Request.Context()
	msg, err := h.queue.Message(ctx, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out, err := h.queue.Transform(ctx, msg, req.TargetFormat)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, TransformResponse{MessageID: out.ID, Format: out.Format, Payload: string(out.Payload)})
}
