package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ml-pipeline-nodes/internal/core/domain"
)

func mapDomainError(c *gin.Context, err error) {
	switch {
	// Bad request / validation errors
	case errors.Is(err, domain.ErrBaseModelRequired),
		errors.Is(err, domain.ErrDatasetRequired),
		errors.Is(err, domain.ErrItemRequired),
		errors.Is(err, domain.ErrModelRequired),
		errors.Is(err, domain.ErrInvalidNodeConfig),
		errors.Is(err, domain.ErrNoGroups),
		errors.Is(err, domain.ErrInvalidGroupName),
		errors.Is(err, domain.ErrInvalidDistribution),
		errors.Is(err, domain.ErrInvalidCompareMode),
		errors.Is(err, domain.ErrInvalidCheck),
		errors.Is(err, domain.ErrPreModelMismatch),
		errors.Is(err, domain.ErrEmptyMetricTable),
		errors.Is(err, domain.ErrPlatformBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	// Not found errors
	case errors.Is(err, domain.ErrModelNotFound),
		errors.Is(err, domain.ErrDatasetNotFound),
		errors.Is(err, domain.ErrItemNotFound),
		errors.Is(err, domain.ErrExecutionNotFound),
		errors.Is(err, domain.ErrPipelineNotFound),
		errors.Is(err, domain.ErrNodeRunNotFound),
		errors.Is(err, domain.ErrMetricNotFound),
		errors.Is(err, domain.ErrInferenceServiceMissing):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	// Conflict errors
	case errors.Is(err, domain.ErrCloneAttemptsExhausted),
		errors.Is(err, domain.ErrModelNameConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	// Upstream errors
	case errors.Is(err, domain.ErrPlatformRequest),
		errors.Is(err, domain.ErrPredictionFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})

	// Service unavailable errors
	case errors.Is(err, domain.ErrAdapterNotAvailable),
		errors.Is(err, domain.ErrInferenceServiceNotReady),
		errors.Is(err, domain.ErrJournalDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
