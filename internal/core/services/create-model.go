package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"ml-pipeline-nodes/internal/core/domain"
	ports "ml-pipeline-nodes/internal/core/ports/output"
)

const defaultCloneMaxAttempts = 50

type CreateModelRequest struct {
	BaseModelID        string
	DatasetID          string
	TrainSubset        domain.Filter
	ValidationSubset   domain.Filter
	ModelConfiguration map[string]interface{}
	Context            domain.NodeContext
}

type CreateModelResult struct {
	NewModel  *domain.Model
	BaseModel *domain.Model
}

// CreateModelService clones a base model into a new model version ready for
// training.
type CreateModelService struct {
	models      ports.ModelRepository
	datasets    ports.DatasetRepository
	pipelines   ports.PipelineRepository
	runs        *NodeRunService
	maxAttempts int
	now         func() time.Time
}

func NewCreateModelService(
	models ports.ModelRepository,
	datasets ports.DatasetRepository,
	pipelines ports.PipelineRepository,
	runs *NodeRunService,
	maxAttempts int,
) *CreateModelService {
	if maxAttempts <= 0 {
		maxAttempts = defaultCloneMaxAttempts
	}
	return &CreateModelService{
		models:      models,
		datasets:    datasets,
		pipelines:   pipelines,
		runs:        runs,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

func (s *CreateModelService) CreateModel(ctx context.Context, req CreateModelRequest) (*CreateModelResult, error) {
	if req.BaseModelID == "" {
		return nil, domain.ErrBaseModelRequired
	}
	if req.DatasetID == "" {
		return nil, domain.ErrDatasetRequired
	}

	base, err := s.models.GetByID(ctx, req.BaseModelID)
	if err != nil {
		return nil, fmt.Errorf("get base model: %w", err)
	}
	dataset, err := s.datasets.GetByID(ctx, req.DatasetID)
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}

	configuration := mergeConfiguration(base.Configuration, req.ModelConfiguration)

	log.WithFields(log.Fields{
		"base_model": base.Name,
		"dataset":    dataset.Name,
	}).Info("creating new model")

	name, err := s.modelName(req.Context, base, dataset)
	if err != nil {
		return nil, err
	}

	trainSubset := req.TrainSubset
	if trainSubset.IsEmpty() {
		trainSubset = base.Subset("train")
	}
	validationSubset := req.ValidationSubset
	if validationSubset.IsEmpty() {
		validationSubset = base.Subset("validation")
	}

	s.updatePipelineVariables(ctx, req.Context.PipelineID, map[string]interface{}{
		"train_subset":        trainSubset,
		"validation_subset":   validationSubset,
		"model_configuration": configuration,
	})

	opts := domain.CloneOptions{
		ProjectID:        dataset.ProjectID,
		DatasetID:        dataset.ID,
		Configuration:    configuration,
		TrainFilter:      trainSubset,
		ValidationFilter: validationSubset,
		Status:           domain.ModelStatusCreated,
	}
	newModel, err := s.cloneWithFreeName(ctx, base, name, opts)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"base_model": base.Name,
		"new_model":  newModel.Name,
		"model_id":   newModel.ID,
	}).Info("new model created")

	run := domain.NewNodeRun(domain.NodeTypeCreateModel, req.Context)
	run.Action = string(domain.ModelStatusCreated)
	run.InputIDs = []string{base.ID, dataset.ID}
	run.OutputID = newModel.ID
	run.Details["name"] = newModel.Name
	s.runs.Record(ctx, run)

	return &CreateModelResult{NewModel: newModel, BaseModel: base}, nil
}

func (s *CreateModelService) modelName(nodeCtx domain.NodeContext, base *domain.Model, dataset *domain.Dataset) (string, error) {
	now := s.now()
	var cfg domain.CreateModelNodeConfig
	if raw := nodeCtx.CustomConfig(); raw != nil {
		if err := domain.DecodeConfig(raw, &cfg); err != nil {
			return "", err
		}
	}
	if cfg.ModelName == "" {
		return fmt.Sprintf("%s_%s", base.Name, now.Format(defaultNameTimeLayout)), nil
	}
	return RenderModelName(cfg.ModelName, NameTemplateData{Model: base, Dataset: dataset, Now: now})
}

// cloneWithFreeName retries the clone with name_v1, name_v2, ... while the
// platform reports a name conflict.
func (s *CreateModelService) cloneWithFreeName(ctx context.Context, base *domain.Model, name string, opts domain.CloneOptions) (*domain.Model, error) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		opts.Name = name
		if attempt > 0 {
			opts.Name = fmt.Sprintf("%s_v%d", name, attempt)
		}
		created, err := s.models.Clone(ctx, base.ID, opts)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, domain.ErrModelNameConflict) {
			return nil, fmt.Errorf("clone model %s: %w", base.Name, err)
		}
		log.WithField("name", opts.Name).Debug("model name taken, retrying")
	}
	return nil, fmt.Errorf("%w: %s after %d attempts", domain.ErrCloneAttemptsExhausted, name, s.maxAttempts)
}

func (s *CreateModelService) updatePipelineVariables(ctx context.Context, pipelineID string, vars map[string]interface{}) {
	if pipelineID == "" || s.pipelines == nil {
		return
	}
	if err := s.pipelines.UpdateVariables(ctx, pipelineID, vars); err != nil {
		log.WithError(err).WithField("pipeline_id", pipelineID).Warn("update pipeline variables failed")
	}
}

func mergeConfiguration(base, overrides map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
