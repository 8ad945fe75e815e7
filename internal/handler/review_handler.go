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

type ReviewHandler struct {
	reviewService service.ReviewService
}

func NewReviewHandler(reviewService service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

func (h *ReviewHandler) RegisterRoutes(router *gin.RouterGroup) {
	reviews := router.Group("/api/reviews")
	{
		reviews.POST("", middleware.RequireRole(model.RoleClient), h.Create)
		reviews.GET("/technician/:id", middleware.RequireRole(allRoles...), h.ListByTechnician)
	}
}

// Create records a review for a completed service request
// @Summary      Create review
// @Description  Clients review their own completed requests; one review per request
// @Tags         reviews
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      service.CreateReviewDTO  true  "Review"
// @Success      201      {object}  response.Response{data=service.ReviewResponse}
// @Router       /api/reviews [post]
func (h *ReviewHandler) Create(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid credentials"))
		return
	}

	var req service.CreateReviewDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	review, err := h.reviewService.Create(c.Request.Context(), actor, req)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, review))
}

// ListByTechnician returns the reviews received by a technician
// @Summary      List technician reviews
// @Tags         reviews
// @Security     BearerAuth
// @Produce      json
// @Param        id     path   string  true   "Technician ID"
// @Param        page   query  int     false  "Page number (default 1)"
// @Param        limit  query  int     false  "Items per page (default 20)"
// @Success      200  {object}  response.Response
// @Router       /api/reviews/technician/{id} [get]
func (h *ReviewHandler) ListByTechnician(c *gin.Context) {
	params := pagination.Parse(c)

	reviews, total, err := h.reviewService.ListByTechnician(c.Request.Context(), c.Param("id"), params.Page, params.Limit)
	if err != nil {
		status := statusFor(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Paginated(http.StatusOK, reviews, total, params.Page, params.Limit))
}
