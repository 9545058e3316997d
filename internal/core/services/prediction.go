package services

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"ml-pipeline-nodes/internal/core/domain"
	ports "ml-pipeline-nodes/internal/core/ports/output"
)

const (
	defaultUploadAnnotations = true
	defaultConfThreshold     = 0.1
	defaultBatchSize         = 16
)

type PredictRequest struct {
	ItemIDs []string
	// ModelID may be empty to reuse the model that is already loaded.
	ModelID string
	Context domain.NodeContext
}

type PredictResult struct {
	Items       []*domain.Item
	Annotations [][]*domain.Annotation
}

// PredictionService keeps one loaded model adapter and swaps it when a request
// names a different model.
type PredictionService struct {
	models  ports.ModelRepository
	items   ports.ItemRepository
	builder ports.AdapterBuilder
	runs    *NodeRunService

	mu      sync.Mutex
	adapter ports.ModelAdapter
	model   *domain.Model
}

func NewPredictionService(
	models ports.ModelRepository,
	items ports.ItemRepository,
	builder ports.AdapterBuilder,
	runs *NodeRunService,
) *PredictionService {
	return &PredictionService{
		models:  models,
		items:   items,
		builder: builder,
		runs:    runs,
	}
}

func (s *PredictionService) PredictItems(ctx context.Context, req PredictRequest) (*PredictResult, error) {
	adapter, model, err := s.loadAdapter(ctx, req.ModelID)
	if err != nil {
		return nil, err
	}

	result := &PredictResult{
		Items:       make([]*domain.Item, 0, len(req.ItemIDs)),
		Annotations: make([][]*domain.Annotation, 0, len(req.ItemIDs)),
	}
	if len(req.ItemIDs) == 0 {
		return result, nil
	}

	opts := predictOptions(model)
	items := make([]*domain.Item, 0, len(req.ItemIDs))
	for _, id := range req.ItemIDs {
		item, err := s.items.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get item %s: %w", id, err)
		}
		items = append(items, item)
	}

	predictions, err := adapter.PredictItems(ctx, items, opts)
	if err != nil {
		return nil, fmt.Errorf("predict with model %s: %w", model.Name, err)
	}

	annotationCount := 0
	for _, p := range predictions {
		result.Items = append(result.Items, p.Item)
		result.Annotations = append(result.Annotations, p.Annotations)
		annotationCount += len(p.Annotations)
	}

	run := domain.NewNodeRun(domain.NodeTypePredictItems, req.Context)
	run.InputIDs = append([]string{model.ID}, req.ItemIDs...)
	run.OutputID = model.ID
	run.Details["items"] = len(result.Items)
	run.Details["annotations"] = annotationCount
	run.Details["conf_threshold"] = opts.ConfThreshold
	s.runs.Record(ctx, run)

	return result, nil
}

// loadAdapter returns the cached adapter, building a new one when modelID
// names a different model than the loaded one.
func (s *PredictionService) loadAdapter(ctx context.Context, modelID string) (ports.ModelAdapter, *domain.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if modelID == "" {
		if s.adapter == nil {
			return nil, nil, domain.ErrModelRequired
		}
		return s.adapter, s.model, nil
	}
	if s.adapter != nil && s.model.ID == modelID {
		return s.adapter, s.model, nil
	}

	if s.builder == nil || !s.builder.IsAvailable() {
		return nil, nil, domain.ErrAdapterNotAvailable
	}
	model, err := s.models.GetByID(ctx, modelID)
	if err != nil {
		return nil, nil, fmt.Errorf("get model: %w", err)
	}
	adapter, err := s.builder.Build(ctx, model)
	if err != nil {
		return nil, nil, fmt.Errorf("load model adapter: %w", err)
	}

	if s.model != nil {
		log.WithFields(log.Fields{
			"model":     model.Name,
			"model_id":  model.ID,
			"replacing": s.model.Name,
			"old_id":    s.model.ID,
		}).Info("received a new model, replacing loaded adapter")
	}
	s.adapter, s.model = adapter, model
	log.WithField("model_id", model.ID).Info("model loaded and ready to predict")
	return adapter, model, nil
}

func predictOptions(model *domain.Model) ports.PredictOptions {
	opts := ports.PredictOptions{
		UploadAnnotations: defaultUploadAnnotations,
		ConfThreshold:     defaultConfThreshold,
		BatchSize:         defaultBatchSize,
	}
	if v, err := cast.ToBoolE(model.ConfigValue("upload_annotations", defaultUploadAnnotations)); err == nil {
		opts.UploadAnnotations = v
	}
	if v, err := cast.ToFloat64E(model.ConfigValue("conf_threshold", defaultConfThreshold)); err == nil {
		opts.ConfThreshold = v
	}
	if v, err := cast.ToIntE(model.ConfigValue("batch_size", defaultBatchSize)); err == nil && v > 0 {
		opts.BatchSize = v
	}
	return opts
}
