package ports

import (
	"context"

	"ml-pipeline-nodes/internal/core/domain"
)

// ModelRepository reads, clones and updates platform models.
type ModelRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Model, error)
	// Clone returns domain.ErrModelNameConflict when the name is taken.
	Clone(ctx context.Context, baseID string, opts domain.CloneOptions) (*domain.Model, error)
	// Update writes the model back; system allows writing metadata.system.
	Update(ctx context.Context, model *domain.Model, system bool) (*domain.Model, error)
}

type DatasetRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Dataset, error)
}

type ItemRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	Update(ctx context.Context, item *domain.Item, system bool) (*domain.Item, error)
}

type AnnotationRepository interface {
	Upload(ctx context.Context, itemID string, annotations []*domain.Annotation) ([]*domain.Annotation, error)
}

// ExecutionRepository sets the routing action of a running node execution.
type ExecutionRepository interface {
	UpdateAction(ctx context.Context, executionID, action string) error
}

// PipelineRepository writes pipeline variables of a running pipeline.
type PipelineRepository interface {
	UpdateVariables(ctx context.Context, pipelineID string, variables map[string]interface{}) error
}

// MetricsSource exposes metrics computed by external services.
type MetricsSource interface {
	// ListTrainingSamples returns the training curves logged by the model.
	ListTrainingSamples(ctx context.Context, modelID string) ([]domain.MetricSample, error)
	// ListItemScores returns per-annotation evaluation scores of the model on the dataset.
	ListItemScores(ctx context.Context, datasetID, modelID string) ([]domain.ItemScore, error)
	// ListMetricRows returns the precision/recall table of the model on the dataset.
	ListMetricRows(ctx context.Context, datasetID, modelID string) ([]domain.MetricRow, error)
}
