package services

import (
	"fmt"
	"math"
	"sort"

	log "github.com/sirupsen/logrus"

	"ml-pipeline-nodes/internal/core/domain"
)

// ============================================================================
// Training curves
// ============================================================================

func compareTraining(prev, next []domain.MetricSample, checks []domain.TrainingCheck, verbose bool) ([]domain.CheckResult, error) {
	results := make([]domain.CheckResult, 0, len(checks))
	for _, check := range checks {
		prevVal, err := selectSample(prev, check)
		if err != nil {
			return nil, fmt.Errorf("previous model: %w", err)
		}
		newVal, err := selectSample(next, check)
		if err != nil {
			return nil, fmt.Errorf("new model: %w", err)
		}

		var won bool
		if check.Maximizes() {
			won = newVal > prevVal+check.MinDelta
		} else {
			won = newVal < prevVal-check.MinDelta
		}
		results = append(results, domain.CheckResult{
			Name:     check.Name(),
			Previous: prevVal,
			New:      newVal,
			Won:      won,
		})

		if verbose {
			log.WithFields(log.Fields{
				"figure":    check.Figure,
				"legend":    check.Legend,
				"maximize":  check.Maximizes(),
				"min_delta": check.MinDelta,
				"previous":  prevVal,
				"new":       newVal,
				"won":       won,
			}).Info("training check compared")
		}
	}
	return results, nil
}

// selectSample returns the y value of the curve figure/legend at the point
// addressed by the check: x_value when set, otherwise the x of the x_index-th
// sample (negative indexes count from the end, default last).
func selectSample(samples []domain.MetricSample, check domain.TrainingCheck) (float64, error) {
	var curve []domain.MetricSample
	for _, s := range samples {
		if s.Figure == check.Figure && s.Legend == check.Legend {
			curve = append(curve, s)
		}
	}
	if len(curve) == 0 {
		return 0, fmt.Errorf("%w: figure %q legend %q", domain.ErrMetricNotFound, check.Figure, check.Legend)
	}

	var x float64
	if check.XValue != nil {
		x = *check.XValue
	} else {
		idx := -1
		if check.XIndex != nil {
			idx = *check.XIndex
		}
		if idx < 0 {
			idx += len(curve)
		}
		if idx < 0 || idx >= len(curve) {
			return 0, fmt.Errorf("%w: x_index %d out of range for figure %q legend %q (%d samples)",
				domain.ErrMetricNotFound, idx, check.Figure, check.Legend, len(curve))
		}
		x = curve[idx].X
	}
	for _, s := range curve {
		if s.X == x {
			return s.Y, nil
		}
	}
	return 0, fmt.Errorf("%w: x %v for figure %q legend %q", domain.ErrMetricNotFound, x, check.Figure, check.Legend)
}

// ============================================================================
// Dataset evaluation (per item annotation scores)
// ============================================================================

func compareEvaluation(prev, next []domain.ItemScore) ([]domain.CheckResult, error) {
	prevMeans := meanScoreByItem(prev)
	newMeans := meanScoreByItem(next)

	ids := make([]string, 0, len(newMeans))
	skipped := 0
	for id := range newMeans {
		if _, ok := prevMeans[id]; ok {
			ids = append(ids, id)
		} else {
			skipped++
		}
	}
	for id := range prevMeans {
		if _, ok := newMeans[id]; !ok {
			skipped++
		}
	}
	if skipped > 0 {
		log.WithField("items", skipped).Warn("items scored for only one model are not compared")
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no item is scored for both models", domain.ErrEmptyMetricTable)
	}
	sort.Strings(ids)

	results := make([]domain.CheckResult, 0, len(ids))
	for _, id := range ids {
		results = append(results, domain.CheckResult{
			Name:     id,
			Previous: prevMeans[id],
			New:      newMeans[id],
			Won:      newMeans[id] > prevMeans[id],
		})
	}
	return results, nil
}

func meanScoreByItem(scores []domain.ItemScore) map[string]float64 {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, s := range scores {
		sums[s.ItemID] += s.AnnotationScore
		counts[s.ItemID]++
	}
	means := make(map[string]float64, len(sums))
	for id, sum := range sums {
		means[id] = sum / float64(counts[id])
	}
	return means
}

// ============================================================================
// Precision/recall tables
// ============================================================================

func comparePrecisionRecall(prev, next []domain.MetricRow, metrics map[string]domain.MetricCheck, verbose bool) ([]domain.CheckResult, error) {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]domain.CheckResult, 0, len(names))
	for _, name := range names {
		check := metrics[name]
		if check.SamePreModel && !samePreModels(prev, next) {
			return nil, domain.ErrPreModelMismatch
		}

		prevRows := filterMetricRows(prev, name, check)
		newRows := filterMetricRows(next, name, check)
		if len(prevRows) == 0 || len(newRows) == 0 {
			return nil, fmt.Errorf("%w: metric %q", domain.ErrEmptyMetricTable, name)
		}
		if len(prevRows) != len(newRows) {
			log.WithField("metric", name).Warn("metric tables differ in size, padding the shorter one")
		}
		prevVals, newVals := padToMatch(rowValues(prevRows), rowValues(newRows))

		passed := 0
		for i := range prevVals {
			diff := newVals[i] - prevVals[i]
			if check.LowerIsBetter {
				diff = -diff
			}
			if diff >= check.MinDelta {
				passed++
			}
			if verbose || check.Verbose {
				log.WithFields(log.Fields{
					"metric":    name,
					"threshold": thresholdAt(prevRows, i),
					"previous":  prevVals[i],
					"new":       newVals[i],
				}).Info("metric point compared")
			}
		}

		won := passed == len(prevVals)
		if check.SoftCheck {
			won = passed > 0
		}
		results = append(results, domain.CheckResult{
			Name:     name,
			Previous: mean(prevVals),
			New:      mean(newVals),
			Won:      won,
		})
	}
	return results, nil
}

func filterMetricRows(rows []domain.MetricRow, metric string, check domain.MetricCheck) []domain.MetricRow {
	var thresholds map[float64]bool
	if len(check.IoUThreshold) > 0 {
		thresholds = thresholdRange(check.IoUThreshold)
	}
	var labels map[string]bool
	if len(check.SpecificLabel) > 0 {
		labels = make(map[string]bool, len(check.SpecificLabel))
		for _, l := range check.SpecificLabel {
			labels[l] = true
		}
	}

	var out []domain.MetricRow
	for _, r := range rows {
		if r.Metric != metric {
			continue
		}
		if thresholds != nil && !thresholds[round1(r.Threshold)] {
			continue
		}
		if labels != nil && !labels[r.Label] {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].Threshold < out[j].Threshold
	})
	return out
}

// thresholdRange expands [t] to t, t+0.1, ... below 1 and [lo, hi] to lo,
// lo+0.1, ... below hi, rounded to one decimal.
func thresholdRange(bounds []float64) map[float64]bool {
	lo, hi := bounds[0], 1.0
	if len(bounds) > 1 {
		hi = bounds[1]
	}
	n := int(math.Ceil(math.Round((hi-lo)/0.1*1e6) / 1e6))
	out := make(map[float64]bool, n)
	for i := 0; i < n; i++ {
		out[round1(lo+float64(i)*0.1)] = true
	}
	return out
}

func samePreModels(a, b []domain.MetricRow) bool {
	set := func(rows []domain.MetricRow) map[string]bool {
		s := map[string]bool{}
		for _, r := range rows {
			s[r.PreModel] = true
		}
		return s
	}
	sa, sb := set(a), set(b)
	if len(sa) != len(sb) {
		return false
	}
	for k := range sa {
		if !sb[k] {
			return false
		}
	}
	return true
}

// padToMatch repeats the last value of the shorter series. Both series must be non-empty.
func padToMatch(a, b []float64) ([]float64, []float64) {
	for len(a) < len(b) {
		a = append(a, a[len(a)-1])
	}
	for len(b) < len(a) {
		b = append(b, b[len(b)-1])
	}
	return a, b
}

func rowValues(rows []domain.MetricRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Value
	}
	return out
}

func thresholdAt(rows []domain.MetricRow, i int) float64 {
	if i >= len(rows) {
		i = len(rows) - 1
	}
	return rows[i].Threshold
}

// ============================================================================
// Area under the precision/recall curve
// ============================================================================

func compareAUCPR(prev, next []domain.MetricRow, cfg domain.AUCPRConfig) ([]domain.CheckResult, error) {
	labels := cfg.Labels
	if len(labels) == 0 {
		seen := map[string]bool{}
		for _, rows := range [][]domain.MetricRow{prev, next} {
			for _, r := range rows {
				if (r.Metric == "precision" || r.Metric == "recall") && !seen[r.Label] {
					seen[r.Label] = true
					labels = append(labels, r.Label)
				}
			}
		}
		sort.Strings(labels)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("%w: no precision/recall rows", domain.ErrEmptyMetricTable)
	}

	results := make([]domain.CheckResult, 0, len(labels))
	for _, label := range labels {
		prevAUC := areaUnderPR(prev, label)
		newAUC := areaUnderPR(next, label)
		results = append(results, domain.CheckResult{
			Name:     "auc_pr/" + label,
			Previous: prevAUC,
			New:      newAUC,
			Won:      newAUC-prevAUC > cfg.MinDelta,
		})
	}
	return results, nil
}

type prPoint struct {
	precision float64
	recall    float64
}

// areaUnderPR pairs the precision and recall rows of label by threshold and
// integrates precision over recall with the trapezoidal rule.
func areaUnderPR(rows []domain.MetricRow, label string) float64 {
	precision := map[float64]float64{}
	recall := map[float64]float64{}
	for _, r := range rows {
		if r.Label != label {
			continue
		}
		switch r.Metric {
		case "precision":
			precision[r.Threshold] = r.Value
		case "recall":
			recall[r.Threshold] = r.Value
		}
	}

	points := make([]prPoint, 0, len(precision))
	for th, p := range precision {
		if rc, ok := recall[th]; ok {
			points = append(points, prPoint{precision: p, recall: rc})
		}
	}
	sort.Slice(points, func(i, j int) bool {
		if points[i].recall != points[j].recall {
			return points[i].recall < points[j].recall
		}
		return points[i].precision > points[j].precision
	})

	area := 0.0
	for i := 1; i < len(points); i++ {
		area += (points[i].recall - points[i-1].recall) * (points[i].precision + points[i-1].precision) / 2
	}
	return area
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
