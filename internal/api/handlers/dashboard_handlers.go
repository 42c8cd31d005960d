package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/danu-shop/insights/internal/analytics"
	"github.com/danu-shop/insights/internal/application"
	"github.com/danu-shop/insights/internal/dataset"
	"github.com/danu-shop/insights/pkg/logging"
	"github.com/danu-shop/insights/pkg/middleware"
)

// DashboardService is the dashboard application service used by the handlers
type DashboardService interface {
	DeliveryKPIs(ctx context.Context, query application.DeliveryKPIQuery) (*application.DeliveryDashboardDTO, error)
	ProjectionKPIs(ctx context.Context, query application.ProjectionKPIQuery) (*application.ProjectionDashboardDTO, error)
	Profile(ctx context.Context, query application.ProfileQuery) (*dataset.Profile, error)
	FilterOptions(ctx context.Context) (*analytics.FilterOptions, error)
}

// DashboardHandlers contains handlers for the BI dashboards
type DashboardHandlers struct {
	service DashboardService
	logger  *logging.Logger
}

// NewDashboardHandlers creates a new DashboardHandlers
func NewDashboardHandlers(service DashboardService, logger *logging.Logger) *DashboardHandlers {
	return &DashboardHandlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers dashboard routes on the router
func (h *DashboardHandlers) RegisterRoutes(router *gin.RouterGroup) {
	dashboard := router.Group("/dashboard")
	{
		dashboard.GET("/delivery", h.GetDeliveryKPIs)
		dashboard.GET("/projection", h.GetProjectionKPIs)
		dashboard.GET("/filters", h.GetFilterOptions)
	}
	router.GET("/datasets/:dataset/profile", h.GetProfile)
}

func (h *DashboardHandlers) responder(c *gin.Context) *middleware.ErrorResponder {
	return middleware.NewErrorResponder(c, h.logger, application.ToAppError)
}

// GetDeliveryKPIs handles the delivery dashboard
func (h *DashboardHandlers) GetDeliveryKPIs(c *gin.Context) {
	var query application.DeliveryKPIQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.responder(c).RespondBadRequest("invalid query parameters")
		return
	}

	dto, err := h.service.DeliveryKPIs(c.Request.Context(), query)
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// GetProjectionKPIs handles the projection dashboard
func (h *DashboardHandlers) GetProjectionKPIs(c *gin.Context) {
	var query application.ProjectionKPIQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.responder(c).RespondBadRequest("invalid query parameters")
		return
	}

	dto, err := h.service.ProjectionKPIs(c.Request.Context(), query)
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// GetFilterOptions lists the selector values of both dashboards
func (h *DashboardHandlers) GetFilterOptions(c *gin.Context) {
	options, err := h.service.FilterOptions(c.Request.Context())
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, options)
}

// GetProfile handles the data exploration summary of a dataset
func (h *DashboardHandlers) GetProfile(c *gin.Context) {
	query := application.ProfileQuery{Dataset: c.Param("dataset")}

	profile, err := h.service.Profile(c.Request.Context(), query)
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
