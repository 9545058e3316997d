package domain

import "errors"

// ============================================================================
// Entity Errors
// ============================================================================

var (
	ErrModelNotFound      = errors.New("model not found")
	ErrDatasetNotFound    = errors.New("dataset not found")
	ErrItemNotFound       = errors.New("item not found")
	ErrExecutionNotFound  = errors.New("execution not found")
	ErrPipelineNotFound   = errors.New("pipeline not found")
	ErrNodeRunNotFound    = errors.New("node run not found")
	ErrModelNameConflict  = errors.New("model with this name already exists in the project")
	ErrPlatformRequest    = errors.New("platform request failed")
	ErrPlatformBadRequest = errors.New("platform rejected the request")
)

// ============================================================================
// Validation Errors
// ============================================================================

var (
	ErrBaseModelRequired   = errors.New("base model is required")
	ErrDatasetRequired     = errors.New("dataset is required")
	ErrItemRequired        = errors.New("item is required")
	ErrModelRequired       = errors.New("model is required")
	ErrInvalidNodeConfig   = errors.New("invalid node configuration")
	ErrNoGroups            = errors.New("data split requires at least one group")
	ErrInvalidGroupName    = errors.New("group name is required")
	ErrInvalidDistribution = errors.New("group distributions must be non-negative and sum to more than zero")
	ErrInvalidCompareMode  = errors.New("unknown compare mode")
	ErrInvalidCheck        = errors.New("compare check requires figure and legend")
)

// ============================================================================
// Create Model Errors
// ============================================================================

var (
	ErrCloneAttemptsExhausted = errors.New("could not find a free model name")
)

// ============================================================================
// Compare Errors
// ============================================================================

var (
	ErrMetricNotFound   = errors.New("metric not found")
	ErrPreModelMismatch = errors.New("non-matching pre-models detected")
	ErrEmptyMetricTable = errors.New("metric table is empty after filtering")
)

// ============================================================================
// Prediction Errors
// ============================================================================

var (
	ErrAdapterNotAvailable      = errors.New("model adapter backend not available")
	ErrInferenceServiceMissing  = errors.New("inference service not found for model")
	ErrInferenceServiceNotReady = errors.New("inference service is not ready")
	ErrPredictionFailed         = errors.New("prediction request failed")
)

// ============================================================================
// Journal Errors
// ============================================================================

var (
	ErrJournalDisabled = errors.New("node run journal is disabled")
)
