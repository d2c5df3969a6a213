package sentiment

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ClassScores holds the per-label figures of a classification report.
type ClassScores struct {
	Label     int     `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
	Support   int     `json:"support"`
}

// AverageScores is a macro or support-weighted average across labels.
type AverageScores struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
	Support   int     `json:"support"`
}

// Report is a per-class precision/recall/F1 breakdown.
// Ratios with a zero denominator are reported as 0.
type Report struct {
	Classes     []ClassScores `json:"classes"`
	Accuracy    float64       `json:"accuracy"`
	MacroAvg    AverageScores `json:"macro_avg"`
	WeightedAvg AverageScores `json:"weighted_avg"`
}

// Accuracy is the share of positions where yPred matches yTrue.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	hit := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			hit++
		}
	}
	return float64(hit) / float64(len(yTrue))
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// ClassificationReport scores yPred against yTrue for every label seen in
// either slice.
func ClassificationReport(yTrue, yPred []int) Report {
	seen := make(map[int]struct{})
	for _, l := range yTrue {
		seen[l] = struct{}{}
	}
	for _, l := range yPred {
		seen[l] = struct{}{}
	}
	labels := make([]int, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	r := Report{Accuracy: Accuracy(yTrue, yPred)}
	total := len(yTrue)
	for _, l := range labels {
		var tp, predicted, actual int
		for i := range yTrue {
			if yPred[i] == l {
				predicted++
			}
			if yTrue[i] == l {
				actual++
				if yPred[i] == l {
					tp++
				}
			}
		}
		cs := ClassScores{
			Label:     l,
			Precision: ratio(tp, predicted),
			Recall:    ratio(tp, actual),
			Support:   actual,
		}
		if cs.Precision+cs.Recall > 0 {
			cs.F1 = 2 * cs.Precision * cs.Recall / (cs.Precision + cs.Recall)
		}
		r.Classes = append(r.Classes, cs)

		r.MacroAvg.Precision += cs.Precision
		r.MacroAvg.Recall += cs.Recall
		r.MacroAvg.F1 += cs.F1
		if total > 0 {
			w := float64(actual) / float64(total)
			r.WeightedAvg.Precision += w * cs.Precision
			r.WeightedAvg.Recall += w * cs.Recall
			r.WeightedAvg.F1 += w * cs.F1
		}
	}
	if k := float64(len(labels)); k > 0 {
		r.MacroAvg.Precision /= k
		r.MacroAvg.Recall /= k
		r.MacroAvg.F1 /= k
	}
	r.MacroAvg.Support = total
	r.WeightedAvg.Support = total
	return r
}

// String renders the report as a fixed-width text table.
func (r Report) String() string {
	const width = len("weighted avg")
	var b strings.Builder

	fmt.Fprintf(&b, "%*s  %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	for _, c := range r.Classes {
		fmt.Fprintf(&b, "%*s  %9.2f %9.2f %9.2f %9d\n", width, strconv.Itoa(c.Label), c.Precision, c.Recall, c.F1, c.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s  %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.MacroAvg.Support)
	for _, row := range []struct {
		name string
		avg  AverageScores
	}{{"macro avg", r.MacroAvg}, {"weighted avg", r.WeightedAvg}} {
		fmt.Fprintf(&b, "%*s  %9.2f %9.2f %9.2f %9d\n", width, row.name, row.avg.Precision, row.avg.Recall, row.avg.F1, row.avg.Support)
	}
	return b.String()
}
