package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// NodeContext identifies the pipeline node invocation and carries the node's
// metadata as configured in the pipeline editor.
type NodeContext struct {
	NodeID       string   `json:"node_id" yaml:"node_id"`
	PipelineID   string   `json:"pipeline_id" yaml:"pipeline_id"`
	ExecutionID  string   `json:"execution_id" yaml:"execution_id"`
	ProjectID    string   `json:"project_id" yaml:"project_id"`
	NodeMetadata Metadata `json:"node_metadata" yaml:"node_metadata"`
}

// CustomConfig returns node_metadata.customNodeConfig, or nil when the node
// has no custom configuration.
func (c NodeContext) CustomConfig() map[string]interface{} {
	if c.NodeMetadata == nil {
		return nil
	}
	return c.NodeMetadata.LookupMap("customNodeConfig")
}

// DecodeConfig decodes a loosely typed JSON document (node config, compare
// config) into out. Numbers given as strings and scalars given where a list is
// expected are accepted.
func DecodeConfig(raw map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook:       winCriterionHook,
	})
	if err != nil {
		return fmt.Errorf("build config decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNodeConfig, err)
	}
	return nil
}

// ============================================================================
// Node configurations
// ============================================================================

type CreateModelNodeConfig struct {
	ModelName string `json:"modelName"`
}

type SplitGroup struct {
	Name         string `json:"name"`
	Distribution int    `json:"distribution"`
}

type DataSplitNodeConfig struct {
	Groups       []SplitGroup `json:"groups"`
	ItemMetadata bool         `json:"itemMetadata"`
	// nil means the service default applies.
	ClearModelMetadata []string `json:"clearModelMetadata"`
}

func (c *DataSplitNodeConfig) Validate() error {
	if len(c.Groups) == 0 {
		return ErrNoGroups
	}
	total := 0
	for _, g := range c.Groups {
		if g.Name == "" {
			return ErrInvalidGroupName
		}
		if g.Distribution < 0 {
			return ErrInvalidDistribution
		}
		total += g.Distribution
	}
	if total <= 0 {
		return ErrInvalidDistribution
	}
	return nil
}

type CompareNodeConfig struct {
	ItemMetadata bool `json:"itemMetadata"`
}
