package domain

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Compare node routing actions.
const (
	ActionUpdateModel = "update model"
	ActionDiscard     = "discard"
)

type CompareMode string

const (
	CompareModeTraining        CompareMode = "training"
	CompareModeEvaluation      CompareMode = "evaluation"
	CompareModePrecisionRecall CompareMode = "precision_recall"
	CompareModeAUCPR           CompareMode = "auc_pr"
)

func (m CompareMode) IsValid() bool {
	switch m {
	case CompareModeTraining, CompareModeEvaluation, CompareModePrecisionRecall, CompareModeAUCPR:
		return true
	}
	return false
}

// ============================================================================
// Win criterion
// ============================================================================

type WinKind string

const (
	WinAll     WinKind = "all"
	WinAny     WinKind = "any"
	WinRatio   WinKind = "ratio"
	WinUnknown WinKind = "unknown"
)

// WinCriterion aggregates per-check outcomes into a single decision. It is
// configured as "all", "any" or a ratio such as 0.6.
type WinCriterion struct {
	Kind  WinKind `json:"kind"`
	Ratio float64 `json:"ratio,omitempty"`
	Raw   string  `json:"raw,omitempty"`
}

func ParseWinCriterion(v interface{}) WinCriterion {
	switch t := v.(type) {
	case nil:
		return WinCriterion{Kind: WinAny}
	case WinCriterion:
		return t
	case float64:
		return ratioCriterion(t)
	case float32:
		return ratioCriterion(float64(t))
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		switch s {
		case "all":
			return WinCriterion{Kind: WinAll}
		case "any":
			return WinCriterion{Kind: WinAny}
		}
		// only float-looking strings count as ratios; "1" is not a ratio
		if strings.Contains(s, ".") {
			if r, err := strconv.ParseFloat(s, 64); err == nil {
				return WinCriterion{Kind: WinRatio, Ratio: r}
			}
		}
		return WinCriterion{Kind: WinUnknown, Raw: t}
	}
	return WinCriterion{Kind: WinUnknown, Raw: fmt.Sprint(v)}
}

// ratioCriterion rejects integral numbers: JSON decodes `"wins": 0` as a
// float64, and a whole number is a count, not a ratio.
func ratioCriterion(r float64) WinCriterion {
	if r == math.Trunc(r) {
		return WinCriterion{Kind: WinUnknown, Raw: strconv.FormatFloat(r, 'f', -1, 64)}
	}
	return WinCriterion{Kind: WinRatio, Ratio: r}
}

// Decide reports whether the new model wins given one outcome per check.
func (w WinCriterion) Decide(wins []bool) bool {
	count := 0
	for _, won := range wins {
		if won {
			count++
		}
	}
	switch w.Kind {
	case WinAll:
		return count == len(wins)
	case WinAny:
		return count > 0
	case WinRatio:
		if len(wins) == 0 {
			return false
		}
		return float64(count)/float64(len(wins)) > w.Ratio
	}
	return false
}

func (w WinCriterion) String() string {
	switch w.Kind {
	case WinRatio:
		return strconv.FormatFloat(w.Ratio, 'f', -1, 64)
	case WinUnknown:
		return w.Raw
	}
	return string(w.Kind)
}

var winCriterionType = reflect.TypeOf(WinCriterion{})

func winCriterionHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != winCriterionType || from == winCriterionType {
		return data, nil
	}
	return ParseWinCriterion(data), nil
}

// ============================================================================
// Compare configuration
// ============================================================================

// TrainingCheck selects one point of a training curve in both models.
type TrainingCheck struct {
	Figure   string   `json:"figure"`
	Legend   string   `json:"legend"`
	XIndex   *int     `json:"x_index"`
	XValue   *float64 `json:"x_value"`
	MinDelta float64  `json:"min_delta"`
	Maximize *bool    `json:"maximize"`
}

func (c TrainingCheck) Name() string {
	return c.Figure + "/" + c.Legend
}

func (c TrainingCheck) Maximizes() bool {
	return c.Maximize == nil || *c.Maximize
}

// MetricCheck filters a precision/recall style table for one metric.
type MetricCheck struct {
	// one value t selects [t, 1), two values select [lo, hi)
	IoUThreshold  []float64 `json:"iou_threshold"`
	SpecificLabel []string  `json:"specific_label"`
	MinDelta      float64   `json:"min_delta"`
	SoftCheck     bool      `json:"soft_check"`
	LowerIsBetter bool      `json:"lower_is_better_metrics"`
	SamePreModel  bool      `json:"same_pre_model"`
	Verbose       bool      `json:"verbose"`
}

// AUCPRConfig compares the area under each label's precision/recall curve.
// Without labels, every label present in either model is compared.
type AUCPRConfig struct {
	MinDelta float64  `json:"min_delta"`
	Labels   []string `json:"labels"`
}

type CompareConfig struct {
	Wins    *WinCriterion          `json:"wins"`
	Mode    CompareMode            `json:"mode"`
	Checks  []TrainingCheck        `json:"checks"`
	Metrics map[string]MetricCheck `json:"metrics"`
	AUCPR   *AUCPRConfig           `json:"auc_pr"`
	Verbose bool                   `json:"verbose"`
}

// ParseCompareConfig decodes the compare_config node input. A nil document is
// an empty configuration.
func ParseCompareConfig(raw map[string]interface{}) (*CompareConfig, error) {
	cfg := &CompareConfig{}
	if raw == nil {
		return cfg, nil
	}
	if err := DecodeConfig(raw, cfg); err != nil {
		return nil, err
	}
	if cfg.Mode != "" && !cfg.Mode.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCompareMode, cfg.Mode)
	}
	for _, c := range cfg.Checks {
		if c.Figure == "" || c.Legend == "" {
			return nil, ErrInvalidCheck
		}
	}
	return cfg, nil
}

// ============================================================================
// Compare results
// ============================================================================

type CheckResult struct {
	Name     string  `json:"name"`
	Previous float64 `json:"previous"`
	New      float64 `json:"new"`
	Won      bool    `json:"won"`
}

type CompareResult struct {
	Mode         CompareMode   `json:"mode"`
	Wins         string        `json:"wins"`
	Checks       []CheckResult `json:"checks"`
	NewModelWins bool          `json:"new_model_wins"`
}

func (r *CompareResult) Outcomes() []bool {
	out := make([]bool, len(r.Checks))
	for i, c := range r.Checks {
		out[i] = c.Won
	}
	return out
}
