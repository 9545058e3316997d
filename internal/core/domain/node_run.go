package domain

import (
	"time"

	"github.com/google/uuid"
)

type NodeType string

const (
	NodeTypeCreateModel   NodeType = "create-model"
	NodeTypeDataSplit     NodeType = "data-split"
	NodeTypeCompareModels NodeType = "compare-models"
	NodeTypePredictItems  NodeType = "predict-items"
)

func (t NodeType) IsValid() bool {
	switch t {
	case NodeTypeCreateModel, NodeTypeDataSplit, NodeTypeCompareModels, NodeTypePredictItems:
		return true
	}
	return false
}

// NodeRun is the journal record of one node execution handled by this service.
type NodeRun struct {
	ID          uuid.UUID              `json:"id"`
	CreatedAt   time.Time              `json:"created_at"`
	NodeType    NodeType               `json:"node_type"`
	NodeID      string                 `json:"node_id"`
	PipelineID  string                 `json:"pipeline_id"`
	ExecutionID string                 `json:"execution_id"`
	Action      string                 `json:"action"`
	InputIDs    []string               `json:"input_ids"`
	OutputID    string                 `json:"output_id"`
	Details     map[string]interface{} `json:"details"`
}

func NewNodeRun(nodeType NodeType, nodeCtx NodeContext) *NodeRun {
	return &NodeRun{
		ID:          uuid.New(),
		CreatedAt:   time.Now(),
		NodeType:    nodeType,
		NodeID:      nodeCtx.NodeID,
		PipelineID:  nodeCtx.PipelineID,
		ExecutionID: nodeCtx.ExecutionID,
		InputIDs:    []string{},
		Details:     map[string]interface{}{},
	}
}
