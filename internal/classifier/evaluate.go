package classifier

import (
	"github.com/danu-shop/insights/internal/domain"
)

// Evaluate builds the confusion matrix and per-class scores. Undefined
// precision, recall or F1 (zero division) are reported as 0.
func Evaluate(yTrue, yPred []domain.DeliveryTier) domain.EvaluationReport {
	tiers := domain.AllTiers()
	report := domain.EvaluationReport{
		Labels:   tiers,
		PerClass: make(map[domain.DeliveryTier]domain.ClassMetrics, len(tiers)),
		Samples:  len(yTrue),
	}

	correct := 0
	for i := range yTrue {
		t, p := yTrue[i].Index(), yPred[i].Index()
		if t < 0 || p < 0 {
			continue
		}
		report.Confusion[t][p]++
		if t == p {
			correct++
		}
	}
	if len(yTrue) > 0 {
		report.Accuracy = float64(correct) / float64(len(yTrue))
	}

	var macro, weighted domain.ClassMetrics
	present := 0
	for c, tier := range tiers {
		tp := report.Confusion[c][c]
		predicted, actual := 0, 0
		for k := range tiers {
			predicted += report.Confusion[k][c]
			actual += report.Confusion[c][k]
		}

		m := domain.ClassMetrics{
			Precision: ratio(tp, predicted),
			Recall:    ratio(tp, actual),
			Support:   actual,
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		report.PerClass[tier] = m

		macro.Precision += m.Precision
		macro.Recall += m.Recall
		macro.F1 += m.F1
		w := float64(actual)
		weighted.Precision += w * m.Precision
		weighted.Recall += w * m.Recall
		weighted.F1 += w * m.F1
		present += actual
	}

	n := float64(len(tiers))
	macro.Precision /= n
	macro.Recall /= n
	macro.F1 /= n
	macro.Support = present
	report.MacroAvg = macro

	if present > 0 {
		weighted.Precision /= float64(present)
		weighted.Recall /= float64(present)
		weighted.F1 /= float64(present)
	}
	weighted.Support = present
	report.WeightedAvg = weighted
	return report
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
