package services

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"ml-pipeline-nodes/internal/core/domain"
	ports "ml-pipeline-nodes/internal/core/ports/output"
)

type CompareRequest struct {
	PreviousModelID string
	NewModelID      string
	// DatasetID is optional; when set the default mode is dataset evaluation.
	DatasetID string
	Config    map[string]interface{}
	Context   domain.NodeContext
}

type CompareOutcome struct {
	Winner *domain.Model
	Loser  *domain.Model
	Action string
	Result *domain.CompareResult
}

// ModelCompareService decides whether a newly trained model should replace
// the previous one.
type ModelCompareService struct {
	models     ports.ModelRepository
	metrics    ports.MetricsSource
	executions ports.ExecutionRepository
	runs       *NodeRunService
}

func NewModelCompareService(
	models ports.ModelRepository,
	metrics ports.MetricsSource,
	executions ports.ExecutionRepository,
	runs *NodeRunService,
) *ModelCompareService {
	return &ModelCompareService{
		models:     models,
		metrics:    metrics,
		executions: executions,
		runs:       runs,
	}
}

func (s *ModelCompareService) Compare(ctx context.Context, req CompareRequest) (*CompareOutcome, error) {
	if req.PreviousModelID == "" || req.NewModelID == "" {
		return nil, domain.ErrModelRequired
	}

	log.WithField("compare_config", req.Config).Info("comparing models")
	cfg, err := domain.ParseCompareConfig(req.Config)
	if err != nil {
		return nil, err
	}

	mode := cfg.Mode
	if mode == "" {
		mode = domain.CompareModeTraining
		if req.DatasetID != "" {
			mode = domain.CompareModeEvaluation
		}
	}
	if mode != domain.CompareModeTraining && req.DatasetID == "" {
		return nil, fmt.Errorf("%w: compare mode %s", domain.ErrDatasetRequired, mode)
	}

	wins := domain.WinCriterion{Kind: domain.WinAny}
	if cfg.Wins != nil {
		wins = *cfg.Wins
	} else {
		log.Warn("no wins specified in compare configuration, using 'any'")
	}

	previous, err := s.models.GetByID(ctx, req.PreviousModelID)
	if err != nil {
		return nil, fmt.Errorf("get previous model: %w", err)
	}
	next, err := s.models.GetByID(ctx, req.NewModelID)
	if err != nil {
		return nil, fmt.Errorf("get new model: %w", err)
	}

	checks, err := s.runChecks(ctx, mode, cfg, req.DatasetID, previous, next)
	if err != nil {
		return nil, err
	}
	// An empty outcome list must never promote the new model.
	if len(checks) == 0 {
		return nil, fmt.Errorf("%w: %s comparison produced no checks", domain.ErrEmptyMetricTable, mode)
	}

	result := &domain.CompareResult{
		Mode:   mode,
		Wins:   wins.String(),
		Checks: checks,
	}
	result.NewModelWins = wins.Decide(result.Outcomes())

	log.WithFields(log.Fields{
		"mode":           mode,
		"wins":           result.Wins,
		"outcomes":       result.Outcomes(),
		"new_model_wins": result.NewModelWins,
	}).Info("finished comparing")

	outcome := &CompareOutcome{Winner: previous, Loser: next, Action: domain.ActionDiscard, Result: result}
	if result.NewModelWins {
		outcome.Winner, outcome.Loser, outcome.Action = next, previous, domain.ActionUpdateModel
	}

	if req.Context.ExecutionID != "" && s.executions != nil {
		if err := s.executions.UpdateAction(ctx, req.Context.ExecutionID, outcome.Action); err != nil {
			return nil, fmt.Errorf("update execution action: %w", err)
		}
	}

	var nodeCfg domain.CompareNodeConfig
	if raw := req.Context.CustomConfig(); raw != nil {
		if err := domain.DecodeConfig(raw, &nodeCfg); err != nil {
			return nil, err
		}
	}
	if nodeCfg.ItemMetadata {
		if outcome.Winner.Metadata == nil {
			outcome.Winner.Metadata = domain.Metadata{}
		}
		outcome.Winner.Metadata.SetSystemTag(domain.ActionUpdateModel)
		updated, err := s.models.Update(ctx, outcome.Winner, true)
		if err != nil {
			return nil, fmt.Errorf("tag winning model: %w", err)
		}
		outcome.Winner = updated
	}

	run := domain.NewNodeRun(domain.NodeTypeCompareModels, req.Context)
	run.Action = outcome.Action
	run.InputIDs = []string{previous.ID, next.ID}
	if req.DatasetID != "" {
		run.InputIDs = append(run.InputIDs, req.DatasetID)
	}
	run.OutputID = outcome.Winner.ID
	run.Details["mode"] = string(mode)
	run.Details["wins"] = result.Wins
	run.Details["checks"] = result.Checks
	s.runs.Record(ctx, run)

	return outcome, nil
}

func (s *ModelCompareService) runChecks(
	ctx context.Context,
	mode domain.CompareMode,
	cfg *domain.CompareConfig,
	datasetID string,
	previous, next *domain.Model,
) ([]domain.CheckResult, error) {
	switch mode {
	case domain.CompareModeTraining:
		prev, err := s.metrics.ListTrainingSamples(ctx, previous.ID)
		if err != nil {
			return nil, fmt.Errorf("list metrics of %s: %w", previous.Name, err)
		}
		cur, err := s.metrics.ListTrainingSamples(ctx, next.ID)
		if err != nil {
			return nil, fmt.Errorf("list metrics of %s: %w", next.Name, err)
		}
		return compareTraining(prev, cur, cfg.Checks, cfg.Verbose)

	case domain.CompareModeEvaluation:
		prev, err := s.metrics.ListItemScores(ctx, datasetID, previous.ID)
		if err != nil {
			return nil, fmt.Errorf("list scores of %s: %w", previous.Name, err)
		}
		cur, err := s.metrics.ListItemScores(ctx, datasetID, next.ID)
		if err != nil {
			return nil, fmt.Errorf("list scores of %s: %w", next.Name, err)
		}
		return compareEvaluation(prev, cur)

	case domain.CompareModePrecisionRecall, domain.CompareModeAUCPR:
		prev, err := s.metrics.ListMetricRows(ctx, datasetID, previous.ID)
		if err != nil {
			return nil, fmt.Errorf("list precision/recall of %s: %w", previous.Name, err)
		}
		cur, err := s.metrics.ListMetricRows(ctx, datasetID, next.ID)
		if err != nil {
			return nil, fmt.Errorf("list precision/recall of %s: %w", next.Name, err)
		}
		if mode == domain.CompareModeAUCPR {
			aucCfg := domain.AUCPRConfig{}
			if cfg.AUCPR != nil {
				aucCfg = *cfg.AUCPR
			}
			return compareAUCPR(prev, cur, aucCfg)
		}
		return comparePrecisionRecall(prev, cur, cfg.Metrics, cfg.Verbose)
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrInvalidCompareMode, mode)
}
