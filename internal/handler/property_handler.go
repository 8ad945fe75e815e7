package handler

import (
	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"
	"net/http"

	"github.com/gin-gonic/gin"
)

type PropertyHandler struct {
	propertyService service.PropertyService
}

func NewPropertyHandler(propertyService service.PropertyService) *PropertyHandler {
	return &PropertyHandler{propertyService: propertyService}
}

func (h *PropertyHandler) RegisterRoutes(router *gin.RouterGroup) {
	developments := router.Group("/api/developments")
	developments.Use(middleware.RequireRole(model.RoleConstructor, model.RoleAdmin))
	{
		developments.GET("", h.ListDevelopments)
		developments.POST("", h.CreateDevelopment)
	}

	units := router.Group("/api/units")
	units.Use(middleware.RequireRole(model.RoleConstructor, model.RoleAdmin))
	{
		units.POST("", h.CreateUnit)
		units.PUT("/:id/owner", h.AssignUnitOwner)
	}
}

// ListDevelopments lists developments visible to the actor
// @Summary      List developments
// @Tags         properties
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number (default 1)"
// @Param        limit  query  int  false  "Items per page (default 20)"
// @Success      200  {object}  response.Response
// @Router       /api/developments [get]
func (h *PropertyHandler) ListDevelopments(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid credentials"))
		return
	}

	params := pagination.Parse(c)

	developments, total, err := h.propertyService.ListDevelopments(c.Request.Context(), actor, params.Page, params.Limit)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, developments, total, params.Page, params.Limit))
}

// CreateDevelopment registers a development under a constructing company
// @Summary      Create development
// @Tags         properties
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.CreateDevelopmentDTO  true  "Development"
// @Success      201      {object}  response.Response{data=service.DevelopmentResponse}
// @Router       /api/developments [post]
func (h *PropertyHandler) CreateDevelopment(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid credentials"))
		return
	}

	var req service.CreateDevelopmentDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	development, err := h.propertyService.CreateDevelopment(c.Request.Context(), actor, req)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, development))
}

// CreateUnit registers a unit inside a development
// @Summary      Create unit
// @Tags         properties
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.CreateUnitDTO  true  "Unit"
// @Success      201      {object}  response.Response{data=service.UnitResponse}
// @Router       /api/units [post]
func (h *PropertyHandler) CreateUnit(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid credentials"))
		return
	}

	var req service.CreateUnitDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	unit, err := h.propertyService.CreateUnit(c.Request.Context(), actor, req)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, unit))
}

// AssignUnitOwner links a client account to a unit
// @Summary      Assign unit owner
// @Tags         properties
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                      true  "Unit ID"
// @Param        request  body  service.AssignUnitOwnerDTO  true  "Owner"
// @Success      200  {object}  response.Response
// @Router       /api/units/{id}/owner [put]
func (h *PropertyHandler) AssignUnitOwner(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid credentials"))
		return
	}

	var req service.AssignUnitOwnerDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	if err := h.propertyService.AssignUnitOwner(c.Request.Context(), actor, c.Param("id"), req); err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Owner assigned"}))
}
