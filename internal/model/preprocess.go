package model

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"fightcancer/internal/encoding"
)

// Preprocessor turns a raw row into the model's numeric feature vector.
// Output layout: ordinal codes, one-hot indicators, standardized continuous
// values, binary passthrough. Statistics come from the training partition.
type Preprocessor struct {
	Ordinal     []string            `json:"ordinal"`
	Categorical map[string][]string `json:"categorical"` // column -> sorted categories, first dropped on output
	Continuous  []string            `json:"continuous"`
	Means       []float64           `json:"means"`
	Scales      []float64           `json:"scales"`
	Binary      []string            `json:"binary"`
}

// FitPreprocessor learns one-hot categories and scaling statistics from d.
func FitPreprocessor(d *Dataset) (*Preprocessor, error) {
	if d.Len() == 0 {
		return nil, errors.New("fit preprocessor: empty dataset")
	}
	p := &Preprocessor{
		Ordinal:     append([]string(nil), encoding.OrdinalColumns...),
		Categorical: make(map[string][]string, len(encoding.CategoricalColumns)),
		Continuous:  append([]string(nil), encoding.ContinuousColumns...),
		Binary:      append([]string(nil), encoding.BinaryColumns...),
	}

	idx := columnIndex(d.Columns)
	for _, col := range encoding.CategoricalColumns {
		j := idx[col]
		seen := map[string]struct{}{}
		for _, row := range d.Rows {
			if v := row[j]; v.Valid {
				seen[v.String()] = struct{}{}
			}
		}
		cats := make([]string, 0, len(seen))
		for c := range seen {
			cats = append(cats, c)
		}
		sort.Strings(cats)
		p.Categorical[col] = cats
	}

	p.Means = make([]float64, len(p.Continuous))
	p.Scales = make([]float64, len(p.Continuous))
	for k, col := range p.Continuous {
		j := idx[col]
		xs := make([]float64, 0, d.Len())
		for _, row := range d.Rows {
			if v := row[j]; v.Valid {
				xs = append(xs, v.Num)
			}
		}
		if len(xs) == 0 {
			return nil, fmt.Errorf("fit preprocessor: column %s has no values", col)
		}
		mean, std := stat.PopMeanStdDev(xs, nil)
		if std == 0 {
			std = 1
		}
		p.Means[k], p.Scales[k] = mean, std
	}
	return p, nil
}

// FeatureNames lists output columns in vector order.
func (p *Preprocessor) FeatureNames() []string {
	names := append([]string(nil), p.Ordinal...)
	for _, col := range encoding.CategoricalColumns {
		cats := p.Categorical[col]
		for _, c := range cats[min(1, len(cats)):] {
			names = append(names, col+"_"+c)
		}
	}
	names = append(names, p.Continuous...)
	names = append(names, p.Binary...)
	return names
}

// Width is the length of the output vector.
func (p *Preprocessor) Width() int { return len(p.FeatureNames()) }

// Transform maps a raw row to the feature vector. Missing or unknown cells
// are imputed: ordinal -1, indicators all zero, continuous the training mean,
// binary 0.
func (p *Preprocessor) Transform(row encoding.Row) []float64 {
	out := make([]float64, 0, p.Width())
	for _, col := range p.Ordinal {
		v, _ := row.Get(col)
		f, _ := encoding.Lookup(col)
		code := -1
		if v.Valid && !v.IsStr && f.Vocab != nil {
			code = f.Vocab.Index(int(v.Num))
			if float64(int(v.Num)) != v.Num {
				code = -1
			}
		}
		out = append(out, float64(code))
	}
	for _, col := range encoding.CategoricalColumns {
		v, _ := row.Get(col)
		cats := p.Categorical[col]
		for _, c := range cats[min(1, len(cats)):] {
			hit := 0.0
			if v.Valid && v.String() == c {
				hit = 1
			}
			out = append(out, hit)
		}
	}
	for k, col := range p.Continuous {
		v, _ := row.Get(col)
		x := p.Means[k]
		if v.Valid && !v.IsStr {
			x = v.Num
		}
		out = append(out, (x-p.Means[k])/p.Scales[k])
	}
	for _, col := range p.Binary {
		v, _ := row.Get(col)
		x := 0.0
		if v.Valid && !v.IsStr {
			x = v.Num
		}
		out = append(out, x)
	}
	return out
}

// TransformAll transforms every row of d.
func (p *Preprocessor) TransformAll(d *Dataset) [][]float64 {
	X := make([][]float64, d.Len())
	for i := range d.Rows {
		X[i] = p.Transform(d.Row(i))
	}
	return X
}

func columnIndex(cols []string) map[string]int {
	m := make(map[string]int, len(cols))
	for i, c := range cols {
		m[c] = i
	}
	return m
}
