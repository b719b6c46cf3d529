package model

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// MultiOutputRegressor fits one independent ElasticNet per target column.
type MultiOutputRegressor struct {
	Targets    []string
	Params     ElasticNetParams
	Estimators []LinearModel
}

// FitMultiOutput fits y's columns one by one against x.
func FitMultiOutput(x *mat.Dense, y *mat.Dense, targets []string, params ElasticNetParams) (*MultiOutputRegressor, error) {
	rows, outs := y.Dims()
	if xr, _ := x.Dims(); xr != rows {
		return nil, fmt.Errorf("regressor: x has %d rows, y has %d", xr, rows)
	}
	if outs != len(targets) {
		return nil, fmt.Errorf("regressor: %d target names for %d outputs", len(targets), outs)
	}
	reg := &MultiOutputRegressor{
		Targets: append([]string(nil), targets...),
		Params:  params,
	}
	for k := 0; k < outs; k++ {
		est, err := FitElasticNet(x, mat.Col(nil, k, y), params)
		if err != nil {
			return nil, fmt.Errorf("regressor: target %s: %w", targets[k], err)
		}
		reg.Estimators = append(reg.Estimators, est)
	}
	return reg, nil
}

// Predict returns one value per target for a transformed row.
func (r *MultiOutputRegressor) Predict(x []float64) ([]float64, error) {
	if len(r.Estimators) == 0 {
		return nil, errors.New("regressor: not fitted")
	}
	out := make([]float64, len(r.Estimators))
	for k, est := range r.Estimators {
		v, err := est.Predict(x)
		if err != nil {
			return nil, fmt.Errorf("regressor: target %s: %w", r.Targets[k], err)
		}
		out[k] = v
	}
	return out, nil
}

// PredictDense predicts every row of x.
func (r *MultiOutputRegressor) PredictDense(x *mat.Dense) (*mat.Dense, error) {
	rows, _ := x.Dims()
	out := mat.NewDense(rows, len(r.Estimators), nil)
	for i := 0; i < rows; i++ {
		pred, err := r.Predict(mat.Row(nil, i, x))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out.SetRow(i, pred)
	}
	return out, nil
}
