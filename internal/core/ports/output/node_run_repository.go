package ports

import (
	"context"

	"github.com/google/uuid"

	"ml-pipeline-nodes/internal/core/domain"
)

type NodeRunListFilter struct {
	NodeType    domain.NodeType
	PipelineID  string
	ExecutionID string
	Action      string
	Limit       int
	Offset      int
}

type NodeRunRepository interface {
	Create(ctx context.Context, run *domain.NodeRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.NodeRun, error)
	List(ctx context.Context, filter NodeRunListFilter) ([]*domain.NodeRun, int, error)
}
