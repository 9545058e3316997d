package platform

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"ml-pipeline-nodes/internal/core/domain"
	ports "ml-pipeline-nodes/internal/core/ports/output"
)

// ============================================================================
// Models
// ============================================================================

type modelRepository struct {
	client *Client
}

func NewModelRepository(client *Client) ports.ModelRepository {
	return &modelRepository{client: client}
}

func (r *modelRepository) GetByID(ctx context.Context, id string) (*domain.Model, error) {
	var model domain.Model
	if err := r.client.get(ctx, "/models/"+escape(id), nil, &model); err != nil {
		return nil, notFoundAs(err, domain.ErrModelNotFound, id)
	}
	return &model, nil
}

// Clone creates a copy of the base model. The platform answers 400 when the
// name is already taken in the target project.
func (r *modelRepository) Clone(ctx context.Context, baseID string, opts domain.CloneOptions) (*domain.Model, error) {
	var model domain.Model
	err := r.client.post(ctx, "/models/"+escape(baseID)+"/clone", opts, &model)
	if errors.Is(err, domain.ErrPlatformBadRequest) {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrModelNameConflict, opts.Name, err)
	}
	if err != nil {
		return nil, notFoundAs(err, domain.ErrModelNotFound, baseID)
	}
	return &model, nil
}

func (r *modelRepository) Update(ctx context.Context, model *domain.Model, system bool) (*domain.Model, error) {
	var updated domain.Model
	if err := r.client.patch(ctx, "/models/"+escape(model.ID), systemQuery(system), model, &updated); err != nil {
		return nil, notFoundAs(err, domain.ErrModelNotFound, model.ID)
	}
	return &updated, nil
}

// ============================================================================
// Datasets
// ============================================================================

type datasetRepository struct {
	client *Client
}

func NewDatasetRepository(client *Client) ports.DatasetRepository {
	return &datasetRepository{client: client}
}

func (r *datasetRepository) GetByID(ctx context.Context, id string) (*domain.Dataset, error) {
	var dataset domain.Dataset
	if err := r.client.get(ctx, "/datasets/"+escape(id), nil, &dataset); err != nil {
		return nil, notFoundAs(err, domain.ErrDatasetNotFound, id)
	}
	return &dataset, nil
}

// ============================================================================
// Items and annotations
// ============================================================================

type itemRepository struct {
	client *Client
}

func NewItemRepository(client *Client) ports.ItemRepository {
	return &itemRepository{client: client}
}

func (r *itemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	var item domain.Item
	if err := r.client.get(ctx, "/items/"+escape(id), nil, &item); err != nil {
		return nil, notFoundAs(err, domain.ErrItemNotFound, id)
	}
	return &item, nil
}

func (r *itemRepository) Update(ctx context.Context, item *domain.Item, system bool) (*domain.Item, error) {
	var updated domain.Item
	if err := r.client.patch(ctx, "/items/"+escape(item.ID), systemQuery(system), item, &updated); err != nil {
		return nil, notFoundAs(err, domain.ErrItemNotFound, item.ID)
	}
	return &updated, nil
}

type annotationRepository struct {
	client *Client
}

func NewAnnotationRepository(client *Client) ports.AnnotationRepository {
	return &annotationRepository{client: client}
}

type uploadAnnotationsRequest struct {
	Annotations []*domain.Annotation `json:"annotations"`
}

func (r *annotationRepository) Upload(ctx context.Context, itemID string, annotations []*domain.Annotation) ([]*domain.Annotation, error) {
	if len(annotations) == 0 {
		return []*domain.Annotation{}, nil
	}
	var uploaded []*domain.Annotation
	err := r.client.post(ctx, "/items/"+escape(itemID)+"/annotations", uploadAnnotationsRequest{Annotations: annotations}, &uploaded)
	if err != nil {
		return nil, notFoundAs(err, domain.ErrItemNotFound, itemID)
	}
	return uploaded, nil
}

// ============================================================================
// Executions and pipelines
// ============================================================================

type executionRepository struct {
	client *Client
}

func NewExecutionRepository(client *Client) ports.ExecutionRepository {
	return &executionRepository{client: client}
}

type progressRequest struct {
	Action string `json:"action"`
}

func (r *executionRepository) UpdateAction(ctx context.Context, executionID, action string) error {
	err := r.client.patch(ctx, "/executions/"+escape(executionID)+"/progress", nil, progressRequest{Action: action}, nil)
	return notFoundAs(err, domain.ErrExecutionNotFound, executionID)
}

type pipelineRepository struct {
	client *Client
}

func NewPipelineRepository(client *Client) ports.PipelineRepository {
	return &pipelineRepository{client: client}
}

type variablesRequest struct {
	Variables map[string]interface{} `json:"variables"`
}

func (r *pipelineRepository) UpdateVariables(ctx context.Context, pipelineID string, variables map[string]interface{}) error {
	err := r.client.patch(ctx, "/pipelines/"+escape(pipelineID)+"/variables", nil, variablesRequest{Variables: variables}, nil)
	return notFoundAs(err, domain.ErrPipelineNotFound, pipelineID)
}

// ============================================================================
// Metrics
// ============================================================================

type metricsSource struct {
	client *Client
}

func NewMetricsSource(client *Client) ports.MetricsSource {
	return &metricsSource{client: client}
}

func (s *metricsSource) ListTrainingSamples(ctx context.Context, modelID string) ([]domain.MetricSample, error) {
	samples, err := listAll[domain.MetricSample](ctx, s.client, "/models/"+escape(modelID)+"/metrics", nil)
	if err != nil {
		return nil, notFoundAs(err, domain.ErrModelNotFound, modelID)
	}
	return samples, nil
}

func (s *metricsSource) ListItemScores(ctx context.Context, datasetID, modelID string) ([]domain.ItemScore, error) {
	scores, err := listAll[domain.ItemScore](ctx, s.client, "/datasets/"+escape(datasetID)+"/scores", modelQuery(modelID))
	if err != nil {
		return nil, notFoundAs(err, domain.ErrDatasetNotFound, datasetID)
	}
	return scores, nil
}

func (s *metricsSource) ListMetricRows(ctx context.Context, datasetID, modelID string) ([]domain.MetricRow, error) {
	rows, err := listAll[domain.MetricRow](ctx, s.client, "/datasets/"+escape(datasetID)+"/precision-recall", modelQuery(modelID))
	if err != nil {
		return nil, notFoundAs(err, domain.ErrDatasetNotFound, datasetID)
	}
	return rows, nil
}

func systemQuery(system bool) url.Values {
	return url.Values{"system": []string{strconv.FormatBool(system)}}
}

func modelQuery(modelID string) url.Values {
	return url.Values{"modelId": []string{modelID}}
}

// Ensure interface compliance
var (
	_ ports.ModelRepository      = (*modelRepository)(nil)
	_ ports.DatasetRepository    = (*datasetRepository)(nil)
	_ ports.ItemRepository       = (*itemRepository)(nil)
	_ ports.AnnotationRepository = (*annotationRepository)(nil)
	_ ports.ExecutionRepository  = (*executionRepository)(nil)
	_ ports.PipelineRepository   = (*pipelineRepository)(nil)
	_ ports.MetricsSource        = (*metricsSource)(nil)
)
