package model

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrUnknownCategory = errors.New("unknown category")
	ErrSchemaMismatch  = errors.New("feature columns do not match preprocessor schema")
)

// ScaledColumn standardises a numeric column: (x - Mean) / Scale.
type ScaledColumn struct {
	Name  string
	Mean  float64
	Scale float64
}

// EncodedColumn one-hot encodes a categorical column. Categories are sorted;
// the first one is dropped and encodes as all zeros.
type EncodedColumn struct {
	Name       string
	Categories []string
}

// Preprocessor is a fitted column transformer. Numeric columns come first in
// the output, followed by the one-hot blocks in Encoded order.
type Preprocessor struct {
	InputColumns []string
	Scaled       []ScaledColumn
	Encoded      []EncodedColumn
}

// FitPreprocessor learns scaling statistics and category sets from ds. Every
// column in features not listed in categorical is treated as numeric.
func FitPreprocessor(ds *Dataset, features, categorical []string) (*Preprocessor, error) {
	if len(features) == 0 {
		return nil, errors.New("preprocessor: no feature columns")
	}
	if ds.Rows == 0 {
		return nil, errors.New("preprocessor: empty dataset")
	}
	p := &Preprocessor{InputColumns: append([]string(nil), features...)}

	for _, name := range features {
		if slices.Contains(categorical, name) {
			continue
		}
		col, ok := ds.Numeric[name]
		if !ok {
			return nil, fmt.Errorf("preprocessor: numeric column %s missing", name)
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		p.Scaled = append(p.Scaled, ScaledColumn{Name: name, Mean: mean, Scale: std})
	}

	for _, name := range categorical {
		if !slices.Contains(features, name) {
			return nil, fmt.Errorf("preprocessor: categorical column %s is not a feature", name)
		}
		col, ok := ds.Categorical[name]
		if !ok {
			return nil, fmt.Errorf("preprocessor: categorical column %s missing", name)
		}
		seen := map[string]struct{}{}
		for _, v := range col {
			seen[v] = struct{}{}
		}
		cats := make([]string, 0, len(seen))
		for v := range seen {
			cats = append(cats, v)
		}
		sort.Strings(cats)
		p.Encoded = append(p.Encoded, EncodedColumn{Name: name, Categories: cats})
	}
	return p, nil
}

// FeatureNames is the exact ordered input schema Transform expects.
func (p *Preprocessor) FeatureNames() []string {
	return append([]string(nil), p.InputColumns...)
}

// OutputWidth is the length of a transformed row.
func (p *Preprocessor) OutputWidth() int {
	n := len(p.Scaled)
	for _, e := range p.Encoded {
		if len(e.Categories) > 0 {
			n += len(e.Categories) - 1
		}
	}
	return n
}

// Transform maps one aligned row to the model's numeric input space.
func (p *Preprocessor) Transform(fv FeatureVector) ([]float64, error) {
	if !slices.Equal(fv.Names(), p.InputColumns) {
		return nil, ErrSchemaMismatch
	}
	byName := make(map[string]Feature, len(fv))
	for _, f := range fv {
		byName[f.Name] = f
	}

	out := make([]float64, 0, p.OutputWidth())
	for _, s := range p.Scaled {
		v, err := byName[s.Name].Numeric()
		if err != nil {
			return nil, err
		}
		out = append(out, (v-s.Mean)/s.Scale)
	}
	for _, e := range p.Encoded {
		label := byName[e.Name].Category()
		idx, found := slices.BinarySearch(e.Categories, label)
		if !found {
			return nil, fmt.Errorf("column %s: %w %q", e.Name, ErrUnknownCategory, label)
		}
		for k := 1; k < len(e.Categories); k++ {
			if k == idx {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		}
	}
	return out, nil
}

// TransformDataset applies Transform to every row of ds.
func (p *Preprocessor) TransformDataset(ds *Dataset) (*mat.Dense, error) {
	width := p.OutputWidth()
	if ds.Rows == 0 || width == 0 {
		return nil, errors.New("preprocessor: nothing to transform")
	}
	x := mat.NewDense(ds.Rows, width, nil)
	for i := 0; i < ds.Rows; i++ {
		fv, err := ds.Row(i, p.InputColumns)
		if err != nil {
			return nil, err
		}
		row, err := p.Transform(fv)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		x.SetRow(i, row)
	}
	return x, nil
}
