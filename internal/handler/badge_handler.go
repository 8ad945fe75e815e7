package handler

import (
	"backend/internal/middleware"
	"backend/internal/repository"
	"backend/pkg/response"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BadgeHandler struct {
	badgeRepo repository.BadgeRepository
}

func NewBadgeHandler(badgeRepo repository.BadgeRepository) *BadgeHandler {
	return &BadgeHandler{badgeRepo: badgeRepo}
}

func (h *BadgeHandler) RegisterRoutes(router *gin.RouterGroup) {
	badges := router.Group("/api/badges")
	badges.Use(middleware.RequireRole(allRoles...))
	{
		badges.GET("/me", h.ListMine)
		badges.GET("/user/:id", h.ListByUser)
	}
}

// ListMine returns the authenticated user's badges
// @Summary      My badges
// @Tags         badges
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/badges/me [get]
func (h *BadgeHandler) ListMine(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid credentials"))
		return
	}

	badges, err := h.badgeRepo.ListByUser(c.Request.Context(), actor.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, badges))
}

// ListByUser returns another user's badges (public profile data)
// @Summary      User badges
// @Tags         badges
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  response.Response
// @Router       /api/badges/user/{id} [get]
func (h *BadgeHandler) ListByUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid user id"))
		return
	}

	badges, err := h.badgeRepo.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, badges))
}
