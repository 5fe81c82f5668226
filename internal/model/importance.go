package model

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
)

// Importance is the mean impurity decrease attributed to one feature.
type Importance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Importances ranks features by importance, highest first. Diagnostic only.
func (p *Pipeline) Importances() []Importance {
	names := p.FeatureNames()
	out := make([]Importance, 0, len(names))
	for i, n := range names {
		v := 0.0
		if i < len(p.Forest.Importances) {
			v = p.Forest.Importances[i]
		}
		out = append(out, Importance{Feature: n, Importance: v})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	return out
}

// WriteImportances writes a Variable,Importance CSV.
func WriteImportances(w io.Writer, imps []Importance) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Variable", "Importance"}); err != nil {
		return err
	}
	for _, imp := range imps {
		if err := cw.Write([]string{imp.Feature, strconv.FormatFloat(imp.Importance, 'g', -1, 64)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
