package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	log "github.com/sirupsen/logrus"

	"ml-pipeline-nodes/internal/core/domain"
	ports "ml-pipeline-nodes/internal/core/ports/output"
)

// DefaultClearModelMetadataGroups are the groups whose items lose stale model
// prediction metadata when none is configured on the node.
var DefaultClearModelMetadataGroups = []string{"train", "validation"}

type DataSplitResult struct {
	Item   *domain.Item
	Action string
}

// DataSplitService assigns an item to one of the node's groups at random,
// weighted by each group's distribution.
type DataSplitService struct {
	items         ports.ItemRepository
	executions    ports.ExecutionRepository
	runs          *NodeRunService
	clearDefaults []string
	intN          func(n int) int
}

func NewDataSplitService(
	items ports.ItemRepository,
	executions ports.ExecutionRepository,
	runs *NodeRunService,
	clearDefaults []string,
) *DataSplitService {
	if clearDefaults == nil {
		clearDefaults = DefaultClearModelMetadataGroups
	}
	return &DataSplitService{
		items:         items,
		executions:    executions,
		runs:          runs,
		clearDefaults: clearDefaults,
		intN:          rand.Intn,
	}
}

func (s *DataSplitService) Split(ctx context.Context, itemID string, nodeCtx domain.NodeContext) (*DataSplitResult, error) {
	if itemID == "" {
		return nil, domain.ErrItemRequired
	}

	raw := nodeCtx.CustomConfig()
	if raw == nil {
		return nil, fmt.Errorf("%w: customNodeConfig is missing", domain.ErrInvalidNodeConfig)
	}
	var cfg domain.DataSplitNodeConfig
	if err := domain.DecodeConfig(raw, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	action := s.pick(cfg.Groups)
	log.WithFields(log.Fields{
		"item_id": item.ID,
		"group":   action,
	}).Info("item assigned to group")

	if err := s.setAction(ctx, nodeCtx.ExecutionID, action); err != nil {
		return nil, err
	}

	changed := false
	if cfg.ItemMetadata {
		item.EnsureMetadata().SetSystemTag(action)
		changed = true
	}
	clearGroups := cfg.ClearModelMetadata
	if clearGroups == nil {
		clearGroups = s.clearDefaults
	}
	if containsFold(clearGroups, action) && clearModelMetadata(item) {
		log.WithField("item_id", item.ID).Debug("cleared stale model metadata")
		changed = true
	}
	if changed {
		if item, err = s.items.Update(ctx, item, true); err != nil {
			return nil, fmt.Errorf("update item: %w", err)
		}
	}

	run := domain.NewNodeRun(domain.NodeTypeDataSplit, nodeCtx)
	run.Action = action
	run.InputIDs = []string{itemID}
	run.OutputID = item.ID
	s.runs.Record(ctx, run)

	return &DataSplitResult{Item: item, Action: action}, nil
}

// pick draws a group name with probability distribution/sum(distributions).
// groups must have passed Validate.
func (s *DataSplitService) pick(groups []domain.SplitGroup) string {
	total := 0
	for _, g := range groups {
		total += g.Distribution
	}
	r := s.intN(total)
	for _, g := range groups {
		if r < g.Distribution {
			return g.Name
		}
		r -= g.Distribution
	}
	return groups[len(groups)-1].Name
}

func (s *DataSplitService) setAction(ctx context.Context, executionID, action string) error {
	if executionID == "" || s.executions == nil {
		return nil
	}
	if err := s.executions.UpdateAction(ctx, executionID, action); err != nil {
		return fmt.Errorf("update execution action: %w", err)
	}
	return nil
}

// clearModelMetadata drops predictions metadata left by an earlier model.
func clearModelMetadata(item *domain.Item) bool {
	if item.Metadata == nil {
		return false
	}
	system := item.Metadata.Delete("system", "model")
	user := item.Metadata.Delete("user", "model")
	return system || user
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
