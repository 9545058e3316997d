package ports

import (
	"context"

	"ml-pipeline-nodes/internal/core/domain"
)

// PredictOptions are read from the model configuration before each batch.
type PredictOptions struct {
	UploadAnnotations bool
	ConfThreshold     float64
	BatchSize         int
}

// Prediction holds the annotations produced for one item.
type Prediction struct {
	Item        *domain.Item
	Annotations []*domain.Annotation
}

// ModelAdapter runs inference for one loaded model.
type ModelAdapter interface {
	PredictItems(ctx context.Context, items []*domain.Item, opts PredictOptions) ([]Prediction, error)
}

// AdapterBuilder loads the adapter of a model.
type AdapterBuilder interface {
	Build(ctx context.Context, model *domain.Model) (ModelAdapter, error)

	// IsAvailable checks if the backend is enabled and configured
	IsAvailable() bool
}
