package dto

import (
	"time"

	"github.com/google/uuid"

	"ml-pipeline-nodes/internal/core/domain"
	"ml-pipeline-nodes/internal/core/services"
)

// ============================================================================
// Request DTOs
// ============================================================================

// NodeContextRequest identifies the pipeline node invocation.
type NodeContextRequest struct {
	NodeID       string                 `json:"node_id" yaml:"node_id"`
	PipelineID   string                 `json:"pipeline_id" yaml:"pipeline_id"`
	ExecutionID  string                 `json:"execution_id" yaml:"execution_id"`
	ProjectID    string                 `json:"project_id" yaml:"project_id"`
	NodeMetadata map[string]interface{} `json:"node_metadata" yaml:"node_metadata"`
}

// CreateModelRequest represents a create-model node invocation
type CreateModelRequest struct {
	BaseModelID        string                 `json:"base_model_id" yaml:"base_model_id"`
	DatasetID          string                 `json:"dataset_id" yaml:"dataset_id"`
	TrainSubset        map[string]interface{} `json:"train_subset" yaml:"train_subset"`
	ValidationSubset   map[string]interface{} `json:"validation_subset" yaml:"validation_subset"`
	ModelConfiguration map[string]interface{} `json:"model_configuration" yaml:"model_configuration"`
	Context            NodeContextRequest     `json:"context" yaml:"context"`
}

// DataSplitRequest represents a data-split node invocation
type DataSplitRequest struct {
	ItemID  string             `json:"item_id" yaml:"item_id" binding:"required"`
	Context NodeContextRequest `json:"context" yaml:"context"`
}

// CompareModelsRequest represents a compare-models node invocation
type CompareModelsRequest struct {
	PreviousModelID string                 `json:"previous_model_id" yaml:"previous_model_id"`
	NewModelID      string                 `json:"new_model_id" yaml:"new_model_id"`
	DatasetID       string                 `json:"dataset_id" yaml:"dataset_id"`
	CompareConfig   map[string]interface{} `json:"compare_config" yaml:"compare_config"`
	Context         NodeContextRequest     `json:"context" yaml:"context"`
}

// PredictItemsRequest represents a predict-items node invocation
type PredictItemsRequest struct {
	ItemIDs []string           `json:"item_ids" yaml:"item_ids"`
	ModelID string             `json:"model_id" yaml:"model_id"`
	Context NodeContextRequest `json:"context" yaml:"context"`
}

// ListRunsQuery holds the query parameters of GET /runs
type ListRunsQuery struct {
	NodeType    string `form:"node_type"`
	PipelineID  string `form:"pipeline_id"`
	ExecutionID string `form:"execution_id"`
	Action      string `form:"action"`
	Limit       int    `form:"limit"`
	Offset      int    `form:"offset"`
}

// ============================================================================
// Response DTOs
// ============================================================================

type CreateModelResponse struct {
	Model     *domain.Model `json:"model"`
	BaseModel *domain.Model `json:"base_model"`
	Action    string        `json:"action"`
}

type DataSplitResponse struct {
	Item   *domain.Item `json:"item"`
	Action string       `json:"action"`
}

type CompareModelsResponse struct {
	Model  *domain.Model         `json:"model"`
	Action string                `json:"action"`
	Result *domain.CompareResult `json:"result"`
}

type PredictedItem struct {
	Item        *domain.Item         `json:"item"`
	Annotations []*domain.Annotation `json:"annotations"`
}

type PredictItemsResponse struct {
	Items []PredictedItem `json:"items"`
}

type NodeRunResponse struct {
	ID          uuid.UUID              `json:"id"`
	CreatedAt   time.Time              `json:"created_at"`
	NodeType    string                 `json:"node_type"`
	NodeID      string                 `json:"node_id,omitempty"`
	PipelineID  string                 `json:"pipeline_id,omitempty"`
	ExecutionID string                 `json:"execution_id,omitempty"`
	Action      string                 `json:"action"`
	InputIDs    []string               `json:"input_ids"`
	OutputID    string                 `json:"output_id,omitempty"`
	Details     map[string]interface{} `json:"details"`
}

type ListNodeRunsResponse struct {
	Items []NodeRunResponse `json:"items"`
	Total int               `json:"total"`
}

// ============================================================================
// Converters
// ============================================================================

func (r NodeContextRequest) ToDomain() domain.NodeContext {
	return domain.NodeContext{
		NodeID:       r.NodeID,
		PipelineID:   r.PipelineID,
		ExecutionID:  r.ExecutionID,
		ProjectID:    r.ProjectID,
		NodeMetadata: domain.Metadata(r.NodeMetadata),
	}
}

func (r *CreateModelRequest) ToService() services.CreateModelRequest {
	return services.CreateModelRequest{
		BaseModelID:        r.BaseModelID,
		DatasetID:          r.DatasetID,
		TrainSubset:        domain.Filter(r.TrainSubset),
		ValidationSubset:   domain.Filter(r.ValidationSubset),
		ModelConfiguration: r.ModelConfiguration,
		Context:            r.Context.ToDomain(),
	}
}

func (r *CompareModelsRequest) ToService() services.CompareRequest {
	return services.CompareRequest{
		PreviousModelID: r.PreviousModelID,
		NewModelID:      r.NewModelID,
		DatasetID:       r.DatasetID,
		Config:          r.CompareConfig,
		Context:         r.Context.ToDomain(),
	}
}

func (r *PredictItemsRequest) ToService() services.PredictRequest {
	return services.PredictRequest{
		ItemIDs: r.ItemIDs,
		ModelID: r.ModelID,
		Context: r.Context.ToDomain(),
	}
}

func ToCreateModelResponse(res *services.CreateModelResult) CreateModelResponse {
	return CreateModelResponse{
		Model:     res.NewModel,
		BaseModel: res.BaseModel,
		Action:    string(domain.ModelStatusCreated),
	}
}

func ToCompareModelsResponse(out *services.CompareOutcome) CompareModelsResponse {
	return CompareModelsResponse{
		Model:  out.Winner,
		Action: out.Action,
		Result: out.Result,
	}
}

func ToPredictItemsResponse(res *services.PredictResult) PredictItemsResponse {
	items := make([]PredictedItem, 0, len(res.Items))
	for i, item := range res.Items {
		anns := []*domain.Annotation{}
		if i < len(res.Annotations) && res.Annotations[i] != nil {
			anns = res.Annotations[i]
		}
		items = append(items, PredictedItem{Item: item, Annotations: anns})
	}
	return PredictItemsResponse{Items: items}
}

func ToNodeRunResponse(run *domain.NodeRun) NodeRunResponse {
	return NodeRunResponse{
		ID:          run.ID,
		CreatedAt:   run.CreatedAt,
		NodeType:    string(run.NodeType),
		NodeID:      run.NodeID,
		PipelineID:  run.PipelineID,
		ExecutionID: run.ExecutionID,
		Action:      run.Action,
		InputIDs:    run.InputIDs,
		OutputID:    run.OutputID,
		Details:     run.Details,
	}
}
