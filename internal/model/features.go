package model

import (
	"fmt"
	"strconv"
)

// Feature is one named input column. Categorical features carry Cat,
// numeric ones carry Num.
type Feature struct {
	Name          string
	Num           float64
	Cat           string
	IsCategorical bool
}

// FeatureVector is a single row projected onto a preprocessor's input schema.
type FeatureVector []Feature

// Names returns the column names in order.
func (fv FeatureVector) Names() []string {
	out := make([]string, len(fv))
	for i, f := range fv {
		out[i] = f.Name
	}
	return out
}

// Numeric reads the feature as a number. A categorical value is accepted only
// if it parses as a float.
func (f Feature) Numeric() (float64, error) {
	if !f.IsCategorical {
		return f.Num, nil
	}
	v, err := strconv.ParseFloat(f.Cat, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %q is not numeric", f.Name, f.Cat)
	}
	return v, nil
}

// Category reads the feature as a category label. Numbers are formatted the
// way they would appear in a CSV cell.
func (f Feature) Category() string {
	if f.IsCategorical {
		return f.Cat
	}
	return strconv.FormatFloat(f.Num, 'f', -1, 64)
}

// Dataset is a column-oriented table loaded for training.
type Dataset struct {
	Columns     []string
	Numeric     map[string][]float64
	Categorical map[string][]string
	Rows        int
}

// NewDataset returns an empty dataset ready for column appends.
func NewDataset() *Dataset {
	return &Dataset{
		Numeric:     map[string][]float64{},
		Categorical: map[string][]string{},
	}
}

// Has reports whether the column exists.
func (d *Dataset) Has(name string) bool {
	if _, ok := d.Numeric[name]; ok {
		return true
	}
	_, ok := d.Categorical[name]
	return ok
}

// Subset returns a new dataset holding only the given row indexes.
func (d *Dataset) Subset(rows []int) *Dataset {
	out := NewDataset()
	out.Columns = append([]string(nil), d.Columns...)
	out.Rows = len(rows)
	for name, col := range d.Numeric {
		vals := make([]float64, len(rows))
		for i, r := range rows {
			vals[i] = col[r]
		}
		out.Numeric[name] = vals
	}
	for name, col := range d.Categorical {
		vals := make([]string, len(rows))
		for i, r := range rows {
			vals[i] = col[r]
		}
		out.Categorical[name] = vals
	}
	return out
}

// Row materialises row i as a FeatureVector over the given columns.
func (d *Dataset) Row(i int, columns []string) (FeatureVector, error) {
	fv := make(FeatureVector, 0, len(columns))
	for _, c := range columns {
		if col, ok := d.Numeric[c]; ok {
			fv = append(fv, Feature{Name: c, Num: col[i]})
			continue
		}
		if col, ok := d.Categorical[c]; ok {
			fv = append(fv, Feature{Name: c, Cat: col[i], IsCategorical: true})
			continue
		}
		return nil, fmt.Errorf("dataset: unknown column %s", c)
	}
	return fv, nil
}
