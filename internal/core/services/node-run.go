package services

import (
	"context"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"ml-pipeline-nodes/internal/core/domain"
	ports "ml-pipeline-nodes/internal/core/ports/output"
)

// NodeRunService journals node executions. A nil repository disables it.
type NodeRunService struct {
	repo ports.NodeRunRepository
}

func NewNodeRunService(repo ports.NodeRunRepository) *NodeRunService {
	return &NodeRunService{repo: repo}
}

func (s *NodeRunService) Enabled() bool {
	return s != nil && s.repo != nil
}

// Record stores run. Failures are logged only: the node result has already
// been applied on the platform.
func (s *NodeRunService) Record(ctx context.Context, run *domain.NodeRun) {
	if !s.Enabled() {
		return
	}
	if err := s.repo.Create(ctx, run); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"node_type":    run.NodeType,
			"execution_id": run.ExecutionID,
		}).Warn("record node run failed")
	}
}

func (s *NodeRunService) Get(ctx context.Context, id uuid.UUID) (*domain.NodeRun, error) {
	if !s.Enabled() {
		return nil, domain.ErrJournalDisabled
	}
	return s.repo.GetByID(ctx, id)
}

func (s *NodeRunService) List(ctx context.Context, filter ports.NodeRunListFilter) ([]*domain.NodeRun, int, error) {
	if !s.Enabled() {
		return nil, 0, domain.ErrJournalDisabled
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}
