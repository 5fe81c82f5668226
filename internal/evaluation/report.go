package evaluation

import (
	"fmt"
	"strings"
)

// ClassReport holds per-class metrics.
type ClassReport struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report is the held-out evaluation of a binary classifier.
type Report struct {
	Accuracy    float64       `json:"accuracy"`
	Classes     []ClassReport `json:"classes"`
	MacroAvg    ClassReport   `json:"macro_avg"`
	WeightedAvg ClassReport   `json:"weighted_avg"`
	Total       int           `json:"total"`
}

// Evaluate compares predictions with the truth for labels 0 and 1.
// Undefined ratios (no predicted or no actual rows of a class) are 0.
func Evaluate(yTrue, yPred []int) (Report, error) {
	if len(yTrue) != len(yPred) {
		return Report{}, fmt.Errorf("evaluate: %d labels vs %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return Report{}, fmt.Errorf("evaluate: no rows")
	}

	var tp, fp, fn, support [2]int
	correct := 0
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		support[t]++
		if t == p {
			correct++
			tp[t]++
			continue
		}
		fp[p]++
		fn[t]++
	}

	r := Report{Accuracy: float64(correct) / float64(len(yTrue)), Total: len(yTrue)}
	for c := 0; c < 2; c++ {
		prec := ratio(tp[c], tp[c]+fp[c])
		rec := ratio(tp[c], tp[c]+fn[c])
		f1 := 0.0
		if prec+rec > 0 {
			f1 = 2 * prec * rec / (prec + rec)
		}
		r.Classes = append(r.Classes, ClassReport{
			Label:     fmt.Sprint(c),
			Precision: prec,
			Recall:    rec,
			F1:        f1,
			Support:   support[c],
		})
	}

	r.MacroAvg = ClassReport{Label: "macro avg", Support: r.Total}
	r.WeightedAvg = ClassReport{Label: "weighted avg", Support: r.Total}
	for _, c := range r.Classes {
		w := float64(c.Support) / float64(r.Total)
		r.MacroAvg.Precision += c.Precision / 2
		r.MacroAvg.Recall += c.Recall / 2
		r.MacroAvg.F1 += c.F1 / 2
		r.WeightedAvg.Precision += c.Precision * w
		r.WeightedAvg.Recall += c.Recall * w
		r.WeightedAvg.F1 += c.F1 * w
	}
	return r, nil
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

// String renders the report as a fixed-width table.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%12s %10s %10s %10s %10s\n\n", "", "precision", "recall", "f1-score", "support")
	for _, c := range r.Classes {
		writeLine(&b, c)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%12s %10s %10s %10.2f %10d\n", "accuracy", "", "", r.Accuracy, r.Total)
	writeLine(&b, r.MacroAvg)
	writeLine(&b, r.WeightedAvg)
	return b.String()
}

func writeLine(b *strings.Builder, c ClassReport) {
	fmt.Fprintf(b, "%12s %10.2f %10.2f %10.2f %10d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
}
