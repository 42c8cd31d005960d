package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/danu-shop/insights/internal/application"
	"github.com/danu-shop/insights/pkg/logging"
	"github.com/danu-shop/insights/pkg/middleware"
)

// MaxUploadBytes bounds the size of a prediction upload
const MaxUploadBytes = 32 << 20

// ResultFilename is the attachment name of a labelled upload
const ResultFilename = "predicciones.csv"

// PipelineService is the training and inference application service used by the handlers
type PipelineService interface {
	TrainModel(ctx context.Context, cmd application.TrainModelCommand) (*application.ModelDTO, error)
	ModelStatus(ctx context.Context) (*application.ModelDTO, error)
	Predict(ctx context.Context, cmd application.PredictCommand) (*application.PredictionDTO, error)
	PredictUpload(ctx context.Context, cmd application.PredictUploadCommand) (*application.UploadResultDTO, error)
	ListBatches(ctx context.Context, query application.ListBatchesQuery) ([]application.BatchDTO, error)
}

// PipelineHandlers contains handlers for model training and predictions
type PipelineHandlers struct {
	service PipelineService
	logger  *logging.Logger
}

// NewPipelineHandlers creates a new PipelineHandlers
func NewPipelineHandlers(service PipelineService, logger *logging.Logger) *PipelineHandlers {
	return &PipelineHandlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers model and prediction routes on the router
func (h *PipelineHandlers) RegisterRoutes(router *gin.RouterGroup) {
	model := router.Group("/model")
	{
		model.GET("", h.GetModel)
		model.POST("/train", h.TrainModel)
	}

	predictions := router.Group("/predictions")
	{
		predictions.POST("", h.Predict)
		predictions.POST("/upload", h.PredictUpload)
		predictions.GET("/batches", h.ListBatches)
	}
}

func (h *PipelineHandlers) responder(c *gin.Context) *middleware.ErrorResponder {
	return middleware.NewErrorResponder(c, h.logger, application.ToAppError)
}

// GetModel reports the model lifecycle state
func (h *PipelineHandlers) GetModel(c *gin.Context) {
	dto, err := h.service.ModelStatus(c.Request.Context())
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// TrainModel handles a training request. An empty body trains with the service defaults.
func (h *PipelineHandlers) TrainModel(c *gin.Context) {
	var cmd application.TrainModelCommand
	if c.Request.ContentLength != 0 {
		if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
			h.responder(c).RespondWithAppError(appErr)
			return
		}
	}

	dto, err := h.service.TrainModel(c.Request.Context(), cmd)
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	status := http.StatusCreated
	if dto.Cached {
		status = http.StatusOK
	}
	c.JSON(status, dto)
}

// Predict classifies one order from the manual form
func (h *PipelineHandlers) Predict(c *gin.Context) {
	var cmd application.PredictCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		h.responder(c).RespondWithAppError(appErr)
		return
	}

	dto, err := h.service.Predict(c.Request.Context(), cmd)
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

// PredictUpload labels an uploaded csv or xlsx file
func (h *PipelineHandlers) PredictUpload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		h.responder(c).RespondValidationError("file is required", map[string]string{"file": "is required"})
		return
	}
	if header.Size > MaxUploadBytes {
		h.responder(c).RespondValidationError("file is too large",
			map[string]string{"file": fmt.Sprintf("must be at most %d bytes", MaxUploadBytes)})
		return
	}

	f, err := header.Open()
	if err != nil {
		h.responder(c).RespondBadRequest("uploaded file could not be opened")
		return
	}
	defer f.Close()
	content, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes))
	if err != nil {
		h.responder(c).RespondBadRequest("uploaded file could not be read")
		return
	}

	trace.SpanFromContext(c.Request.Context()).SetAttributes(
		attribute.String("upload.name", header.Filename),
		attribute.Int64("upload.size", header.Size),
	)

	result, err := h.service.PredictUpload(c.Request.Context(), application.PredictUploadCommand{
		Filename: header.Filename,
		Content:  content,
	})
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}

	if wantsCSV(c) {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ResultFilename))
		c.Header("X-Batch-ID", result.Batch.BatchID)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", result.CSV)
		return
	}
	c.JSON(http.StatusOK, result)
}

func wantsCSV(c *gin.Context) bool {
	if strings.EqualFold(c.Query("format"), "csv") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "text/csv")
}

// ListBatches lists recent labelled uploads
func (h *PipelineHandlers) ListBatches(c *gin.Context) {
	query := application.ListBatchesQuery{}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 100 {
			h.responder(c).RespondValidationError("invalid limit", map[string]string{"limit": "must be between 1 and 100"})
			return
		}
		query.Limit = limit
	}

	batches, err := h.service.ListBatches(c.Request.Context(), query)
	if err != nil {
		h.responder(c).RespondWithError(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batches": batches})
}
