package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ElasticNetParams configures coordinate descent. The objective minimised is
//
//	1/(2n) * ||y - Xw - b||^2 + Alpha*L1Ratio*||w||_1 + 0.5*Alpha*(1-L1Ratio)*||w||^2
type ElasticNetParams struct {
	Alpha   float64
	L1Ratio float64
	MaxIter int
	Tol     float64
}

// DefaultElasticNetParams matches the hyperparameters the production model
// was trained with.
func DefaultElasticNetParams() ElasticNetParams {
	return ElasticNetParams{Alpha: 0.1, L1Ratio: 0.5, MaxIter: 10000, Tol: 1e-4}
}

func (p ElasticNetParams) validate() error {
	switch {
	case p.Alpha < 0:
		return errors.New("elasticnet: alpha must be >= 0")
	case p.L1Ratio < 0 || p.L1Ratio > 1:
		return errors.New("elasticnet: l1 ratio must be in [0, 1]")
	case p.MaxIter <= 0:
		return errors.New("elasticnet: max iter must be > 0")
	case p.Tol <= 0:
		return errors.New("elasticnet: tol must be > 0")
	}
	return nil
}

// LinearModel is a fitted single-output linear estimator.
type LinearModel struct {
	Coef      []float64
	Intercept float64
	Iters     int
	Converged bool
}

// Predict evaluates the model on one transformed row.
func (m LinearModel) Predict(x []float64) (float64, error) {
	if len(x) != len(m.Coef) {
		return 0, fmt.Errorf("linear model: got %d inputs, want %d", len(x), len(m.Coef))
	}
	return floats.Dot(m.Coef, x) + m.Intercept, nil
}

// FitElasticNet fits one target with cyclic coordinate descent on centred
// data, stopping on the duality gap.
func FitElasticNet(x *mat.Dense, y []float64, params ElasticNetParams) (LinearModel, error) {
	if err := params.validate(); err != nil {
		return LinearModel{}, err
	}
	n, d := x.Dims()
	if n != len(y) {
		return LinearModel{}, fmt.Errorf("elasticnet: %d rows but %d targets", n, len(y))
	}

	cols := make([][]float64, d)
	means := make([]float64, d)
	sqNorm := make([]float64, d)
	for j := 0; j < d; j++ {
		c := mat.Col(nil, j, x)
		means[j] = stat.Mean(c, nil)
		floats.AddConst(-means[j], c)
		cols[j] = c
		sqNorm[j] = floats.Dot(c, c)
	}
	yMean := stat.Mean(y, nil)
	yc := make([]float64, n)
	copy(yc, y)
	floats.AddConst(-yMean, yc)

	l1 := params.Alpha * params.L1Ratio * float64(n)
	l2 := params.Alpha * (1 - params.L1Ratio) * float64(n)
	tol := params.Tol * floats.Dot(yc, yc)

	w := make([]float64, d)
	resid := make([]float64, n)
	copy(resid, yc)

	m := LinearModel{}
	for iter := 1; iter <= params.MaxIter; iter++ {
		var wMax, dwMax float64
		for j := 0; j < d; j++ {
			if sqNorm[j] == 0 {
				continue
			}
			old := w[j]
			if old != 0 {
				floats.AddScaled(resid, old, cols[j])
			}
			rho := floats.Dot(cols[j], resid)
			w[j] = softThreshold(rho, l1) / (sqNorm[j] + l2)
			if w[j] != 0 {
				floats.AddScaled(resid, -w[j], cols[j])
			}
			dwMax = math.Max(dwMax, math.Abs(w[j]-old))
			wMax = math.Max(wMax, math.Abs(w[j]))
		}
		m.Iters = iter
		if wMax == 0 || dwMax/wMax < params.Tol || iter == params.MaxIter {
			if dualityGap(cols, yc, resid, w, l1, l2) < tol {
				m.Converged = true
				break
			}
		}
	}

	m.Coef = w
	m.Intercept = yMean - floats.Dot(means, w)
	return m, nil
}

func softThreshold(v, t float64) float64 {
	switch {
	case v > t:
		return v - t
	case v < -t:
		return v + t
	default:
		return 0
	}
}

func dualityGap(cols [][]float64, y, resid, w []float64, l1, l2 float64) float64 {
	var dualNorm float64
	for j, c := range cols {
		v := floats.Dot(c, resid) - l2*w[j]
		dualNorm = math.Max(dualNorm, math.Abs(v))
	}
	rNorm2 := floats.Dot(resid, resid)
	wNorm2 := floats.Dot(w, w)

	scale := 1.0
	gap := rNorm2
	if dualNorm > l1 {
		scale = l1 / dualNorm
		gap = 0.5 * (rNorm2 + rNorm2*scale*scale)
	}
	gap += l1*floats.Norm(w, 1) - scale*floats.Dot(resid, y) + 0.5*l2*(1+scale*scale)*wNorm2
	return gap
}
