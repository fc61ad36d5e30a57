package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ListEndpoints godoc
// @Summary      List endpoints
// @Tags         endpoints
// @Produce      json
// @Success      200  {array}   models.Endpoint
// @Router       /endpoints [get]
func (h *Handler) ListEndpoints(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.List(c.Request.Context()))
}

// RegisterEndpoint godoc
// @Summary      Register an endpoint
// @Description  Validates the configuration with the protocol adapter and stores the endpoint
// @Tags         endpoints
// @Accept       json
// @Produce      json
// @Param        endpoint  body      RegisterEndpointRequest  true  "Endpoint"
// @Success      201       {object}  models.Endpoint
// @Failure      400       {object}  errors.ErrorResponse
// @Failure      409       {object}  errors.ErrorResponse
// @Router       /endpoints [post]
func (h *Handler) RegisterEndpoint(c *gin.Context) {
	var req RegisterEndpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	endpoint, err := h.registry.Register(c.Request.Context(), req.toEndpoint())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, endpoint)
}

// GetEndpoint godoc
// @Summary      Get an endpoint
// @Tags         endpoints
// @Produce      json
// @Param        id   path      string  true  "Endpoint ID"
// @Success      200  {object}  models.Endpoint
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /endpoints/{id} [get]
func (h *Handler) GetEndpoint(c *gin.Context) {
	endpoint, err := h.registry.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, endpoint)
}

// UnregisterEndpoint godoc
// @Summary      Unregister an endpoint
// @Description  In-flight deliveries to the endpoint are not cancelled
// @Tags         endpoints
// @Param        id   path  string  true  "Endpoint ID"
// @Success      204  "No Content"
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /endpoints/{id} [delete]
func (h *Handler) UnregisterEndpoint(c *gin.Context) {
	if err := h.registry.Unregister(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetEndpointEnabled godoc
// @Summary      Enable or disable an endpoint
// @Tags         endpoints
// @Accept       json
// @Produce      json
// @Param        id     path      string             true  "Endpoint ID"
// @Param        state  body      SetEnabledRequest  true  "Desired state"
// @Success      200    {object}  models.Endpoint
// @Failure      400    {object}  errors.ErrorResponse
// @Failure      404    {object}  errors.ErrorResponse
// @Router       /endpoints/{id}/enabled [patch]
func (h *Handler) SetEndpointEnabled(c *gin.Context) {
	var req SetEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	endpoint, err := h.registry.SetEnabled(c.Request.Context(), c.Param("id"), *req.Enabled)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, endpoint)
}

// CheckEndpointHealth godoc
// @Summary      Probe an endpoint
// @Tags         endpoints
// @Produce      json
// @Param        id   path      string  true  "Endpoint ID"
// @Success      200  {object}  EndpointHealthResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      422  {object}  errors.ErrorResponse
// @Router       /endpoints/{id}/health [get]
func (h *Handler) CheckEndpointHealth(c *gin.Context) {
	id := c.Param("id")
	status, err := h.registry.CheckEndpointHealth(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, EndpointHealthResponse{EndpointID: id, Status: status})
}
