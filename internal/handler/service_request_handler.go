package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

var allRoles = []string{model.RoleClient, model.RoleTechnician, model.RoleConstructor, model.RoleAdmin}

type ServiceRequestHandler struct {
	services service.ServiceRequestService
}

func NewServiceRequestHandler(services service.ServiceRequestService) *ServiceRequestHandler {
	return &ServiceRequestHandler{services: services}
}

func (h *ServiceRequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/service-requests")
	requests.Use(middleware.RequireRole(allRoles...))
	{
		requests.POST("", h.Create)
		requests.GET("", h.List)
		requests.GET("/:id", h.Get)
		requests.PUT("/:id/assign", h.AssignTechnician)
		requests.PUT("/:id/status", h.UpdateStatus)
		requests.PUT("/:id/cancel", h.Cancel)
		requests.DELETE("/:id", h.RequestDeletion)
		requests.PUT("/:id/deletion", h.ApproveDeletion)
		requests.GET("/:id/history", h.History)
		requests.GET("/:id/activity", h.ActivityLog)
	}
}

// Create opens a new service request
// @Summary      Create service request
// @Description  Clients create for themselves; admins and constructing companies create on a client's behalf
// @Tags         service-requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.CreateServiceRequestDTO  true  "Service request"
// @Success      201      {object}  response.Response{data=service.ServiceRequestResponse}
// @Router       /api/service-requests [post]
func (h *ServiceRequestHandler) Create(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid credentials"))
		return
	}

	var req service.CreateServiceRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	result, err := h.services.Create(c.Request.Context(), actor, req)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// List returns the service requests visible to the caller's role
// @Summary      List service requests
// @Tags         service-requests
// @Security     BearerAuth
// @Produce      json
// @Param        status  query  string  false  "Filter by status"
// @Param        pool    query  bool    false  "Technicians: list the unassigned pending pool"
// @Param        page    query  int     false  "Page number (default 1)"
// @Param        limit   query  int     false  "Items per page (default 20)"
// @Success      200  {object}  response.Response
// @Router       /api/service-requests [get]
func (h *ServiceRequestHandler) List(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid credentials"))
		return
	}

	params := pagination.Parse(c)
	filter := service.ServiceRequestListFilter{
		Status:   c.Query("status"),
		OpenPool: c.Query("pool") == "true",
		Page:     params.Page,
		Limit:    params.Limit,
	}

	services, total, err := h.services.List(c.Request.Context(), actor, filter)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, services, total, params.Page, params.Limit))
}

// Get returns one service request
// @Summary      Get service request
// @Tags         service-requests
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Service request ID"
// @Success      200  {object}  response.Response{data=service.ServiceRequestResponse}
// @Router       /api/service-requests/{id} [get]
func (h *ServiceRequestHandler) Get(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid credentials"))
		return
	}

	result, err := h.services.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// AssignTechnician assigns a technician to a pending request
// @Summary      Assign technician
// @Description  Promotes the request from PENDING to SCHEDULED in one atomic step
// @Tags         service-requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                       true  "Service request ID"
// @Param        request  body  service.AssignTechnicianDTO  true  "Assignment"
// @Success      200  {object}  response.Response{data=service.ServiceRequestResponse}
// @Router       /api/service-requests/{id}/assign [put]
func (h *ServiceRequestHandler) AssignTechnician(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid credentials"))
		return
	}

	var req service.AssignTechnicianDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	result, err := h.services.AssignTechnician(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// UpdateStatus moves the request along its lifecycle
// @Summary      Update status
// @Tags         service-requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                   true  "Service request ID"
// @Param        request  body  service.UpdateStatusDTO  true  "Target status"
// @Success      200  {object}  response.Response{data=service.ServiceRequestResponse}
// @Router       /api/service-requests/{id}/status [put]
func (h *ServiceRequestHandler) UpdateStatus(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid credentials"))
		return
	}

	var req service.UpdateStatusDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	result, err := h.services.UpdateStatus(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Cancel cancels a non-terminal request
// @Summary      Cancel service request
// @Tags         service-requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string             true   "Service request ID"
// @Param        request  body  service.CancelDTO  false  "Optional note"
// @Success      200  {object}  response.Response{data=service.ServiceRequestResponse}
// @Router       /api/service-requests/{id}/cancel [put]
func (h *ServiceRequestHandler) Cancel(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid credentials"))
		return
	}

	var req service.CancelDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		// Empty body allowed — the note is optional
		req.Note = ""
	}

	result, err := h.services.Cancel(c.Request.Context(), actor, c.Param("id"), req.Note)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// RequestDeletion deletes immediately or opens the approval sub-workflow
// @Summary      Request deletion
// @Description  Hard delete when work has not started; otherwise the assigned technician must approve
// @Tags         service-requests
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Service request ID"
// @Success      200  {object}  response.Response
// @Router       /api/service-requests/{id} [delete]
func (h *ServiceRequestHandler) RequestDeletion(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid credentials"))
		return
	}

	result, err := h.services.RequestDeletion(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	if result == nil {
		c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ApproveDeletion resolves a pending deletion request
// @Summary      Approve or reject deletion
// @Tags         service-requests
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                      true  "Service request ID"
// @Param        request  body  service.ApproveDeletionDTO  true  "Decision"
// @Success      200  {object}  response.Response
// @Router       /api/service-requests/{id}/deletion [put]
func (h *ServiceRequestHandler) ApproveDeletion(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid credentials"))
		return
	}

	var req service.ApproveDeletionDTO
	if err := c.ShouldBindJSON(&req); err != nil || req.Approved == nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "approved (boolean) is required"))
		return
	}

	result, err := h.services.ApproveDeletion(c.Request.Context(), actor, c.Param("id"), *req.Approved)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	if result == nil {
		c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": true}))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// History returns the status history in commit order
// @Summary      Get status history
// @Tags         service-requests
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Service request ID"
// @Success      200  {object}  response.Response{data=[]service.StatusHistoryResponse}
// @Router       /api/service-requests/{id}/history [get]
func (h *ServiceRequestHandler) History(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid credentials"))
		return
	}

	result, err := h.services.History(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ActivityLog returns the structured activity log in commit order
// @Summary      Get activity log
// @Tags         service-requests
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Service request ID"
// @Success      200  {object}  response.Response{data=[]service.ActivityLogResponse}
// @Router       /api/service-requests/{id}/activity [get]
func (h *ServiceRequestHandler) ActivityLog(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid credentials"))
		return
	}

	result, err := h.services.ActivityLog(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
