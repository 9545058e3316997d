package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWinCriterion(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected WinCriterion
	}{
		{name: "nil", input: nil, expected: WinCriterion{Kind: WinAny}},
		{name: "all", input: "all", expected: WinCriterion{Kind: WinAll}},
		{name: "any upper case", input: " ANY ", expected: WinCriterion{Kind: WinAny}},
		{name: "float", input: 0.6, expected: WinCriterion{Kind: WinRatio, Ratio: 0.6}},
		{name: "float32", input: float32(0.5), expected: WinCriterion{Kind: WinRatio, Ratio: 0.5}},
		{name: "integral zero from json", input: float64(0), expected: WinCriterion{Kind: WinUnknown, Raw: "0"}},
		{name: "integral one from json", input: float64(1), expected: WinCriterion{Kind: WinUnknown, Raw: "1"}},
		{name: "int from yaml", input: 0, expected: WinCriterion{Kind: WinUnknown, Raw: "0"}},
		{name: "float string", input: "0.25", expected: WinCriterion{Kind: WinRatio, Ratio: 0.25}},
		{name: "integer string", input: "1", expected: WinCriterion{Kind: WinUnknown, Raw: "1"}},
		{name: "word", input: "most", expected: WinCriterion{Kind: WinUnknown, Raw: "most"}},
		{name: "bool", input: true, expected: WinCriterion{Kind: WinUnknown, Raw: "true"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseWinCriterion(tt.input))
		})
	}
}

func TestWinCriterion_Decide(t *testing.T) {
	all := WinCriterion{Kind: WinAll}
	anyWin := WinCriterion{Kind: WinAny}
	ratio := WinCriterion{Kind: WinRatio, Ratio: 0.5}
	unknown := WinCriterion{Kind: WinUnknown, Raw: "x"}

	assert.True(t, all.Decide([]bool{true, true}))
	assert.False(t, all.Decide([]bool{true, false}))
	assert.True(t, all.Decide(nil))

	assert.True(t, anyWin.Decide([]bool{false, true}))
	assert.False(t, anyWin.Decide([]bool{false}))
	assert.False(t, anyWin.Decide(nil))

	assert.True(t, ratio.Decide([]bool{true, true, false}))
	assert.False(t, ratio.Decide([]bool{true, false}))
	assert.False(t, ratio.Decide(nil))

	assert.False(t, unknown.Decide([]bool{true}))
}

func TestWinCriterion_String(t *testing.T) {
	assert.Equal(t, "all", WinCriterion{Kind: WinAll}.String())
	assert.Equal(t, "0.75", WinCriterion{Kind: WinRatio, Ratio: 0.75}.String())
	assert.Equal(t, "most", WinCriterion{Kind: WinUnknown, Raw: "most"}.String())
}

func TestParseCompareConfig(t *testing.T) {
	cfg, err := ParseCompareConfig(map[string]interface{}{
		"wins": "0.5",
		"mode": "precision_recall",
		"checks": []interface{}{
			map[string]interface{}{"figure": "loss", "legend": "val", "x_index": "2", "min_delta": 0.01, "maximize": "false"},
		},
		"metrics": map[string]interface{}{
			"recall": map[string]interface{}{
				"iou_threshold":           []interface{}{0.5, 0.9},
				"specific_label":          []interface{}{"car"},
				"lower_is_better_metrics": true,
				"soft_check":              true,
			},
		},
		"auc_pr": map[string]interface{}{"min_delta": 0.05},
	})
	require.NoError(t, err)

	require.NotNil(t, cfg.Wins)
	assert.Equal(t, WinCriterion{Kind: WinRatio, Ratio: 0.5}, *cfg.Wins)
	assert.Equal(t, CompareModePrecisionRecall, cfg.Mode)

	require.Len(t, cfg.Checks, 1)
	check := cfg.Checks[0]
	require.NotNil(t, check.XIndex)
	assert.Equal(t, 2, *check.XIndex)
	assert.Nil(t, check.XValue)
	assert.False(t, check.Maximizes())
	assert.Equal(t, "loss/val", check.Name())

	recall := cfg.Metrics["recall"]
	assert.Equal(t, []float64{0.5, 0.9}, recall.IoUThreshold)
	assert.Equal(t, []string{"car"}, recall.SpecificLabel)
	assert.True(t, recall.LowerIsBetter)
	assert.True(t, recall.SoftCheck)

	require.NotNil(t, cfg.AUCPR)
	assert.Equal(t, 0.05, cfg.AUCPR.MinDelta)
}

func TestParseCompareConfig_Empty(t *testing.T) {
	cfg, err := ParseCompareConfig(nil)
	require.NoError(t, err)
	assert.Nil(t, cfg.Wins)
	assert.Empty(t, cfg.Mode)
}

func TestParseCompareConfig_Invalid(t *testing.T) {
	_, err := ParseCompareConfig(map[string]interface{}{"mode": "best"})
	assert.ErrorIs(t, err, ErrInvalidCompareMode)

	_, err = ParseCompareConfig(map[string]interface{}{"checks": []interface{}{map[string]interface{}{"legend": "val"}}})
	assert.ErrorIs(t, err, ErrInvalidCheck)

	_, err = ParseCompareConfig(map[string]interface{}{"checks": "loss"})
	assert.ErrorIs(t, err, ErrInvalidNodeConfig)
}

func TestCompareResult_Outcomes(t *testing.T) {
	r := &CompareResult{Checks: []CheckResult{{Won: true}, {Won: false}}}
	assert.Equal(t, []bool{true, false}, r.Outcomes())
}
