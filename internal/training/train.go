// Package training fits the savings model from a labelled CSV and persists
// the two artifacts the prediction service loads.
package training

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/mind-engage/savings-forecast/internal/model"
	"github.com/mind-engage/savings-forecast/internal/predict"
	"github.com/mind-engage/savings-forecast/internal/profile"
	"github.com/mind-engage/savings-forecast/internal/storage"
)

type Options struct {
	DataPath string
	Store    storage.BlobStore
	Params   model.ElasticNetParams
	TestSize float64
	Seed     int64
	Backup   bool
	Now      func() time.Time
}

func DefaultOptions() Options {
	return Options{
		DataPath: "Finance_model/data.csv",
		Params:   model.DefaultElasticNetParams(),
		TestSize: 0.2,
		Seed:     42,
		Backup:   true,
	}
}

type Score struct {
	Target string  `json:"target"`
	MAE    float64 `json:"mae"`
	R2     float64 `json:"r2"`
}

type Report struct {
	Rows        int            `json:"rows"`
	TrainRows   int            `json:"train_rows"`
	TestRows    int            `json:"test_rows"`
	Features    []string       `json:"features"`
	Numeric     []string       `json:"numeric"`
	Categorical []string       `json:"categorical"`
	Scores      []Score        `json:"scores"`
	Total       Score          `json:"total"`
	BackedUp    []string       `json:"backed_up,omitempty"`
	Sample      predict.Result `json:"sample"`
}

// FeatureColumns is every dataset column that is not a savings column,
// sorted by name.
func FeatureColumns(ds *model.Dataset) []string {
	var out []string
	for _, c := range ds.Columns {
		if !profile.IsSavingsColumn(c) {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// Fit splits ds, fits preprocessor and regressor on the training rows and
// scores them on the held-out rows.
func Fit(ds *model.Dataset, opts Options) (*model.Bundle, *Report, error) {
	targets := profile.TargetColumns()
	for _, t := range targets {
		if _, ok := ds.Numeric[t]; !ok {
			return nil, nil, fmt.Errorf("training: target column %s missing", t)
		}
	}
	features := FeatureColumns(ds)
	for _, c := range profile.CategoricalFeatures {
		if _, ok := ds.Categorical[c]; !ok {
			return nil, nil, fmt.Errorf("training: categorical column %s missing", c)
		}
	}

	trainIdx, testIdx := model.TrainTestSplit(ds.Rows, opts.TestSize, opts.Seed)
	if len(trainIdx) < 2 {
		return nil, nil, errors.New("training: not enough rows")
	}
	train, test := ds.Subset(trainIdx), ds.Subset(testIdx)

	pre, err := model.FitPreprocessor(train, features, profile.CategoricalFeatures)
	if err != nil {
		return nil, nil, err
	}
	xTrain, err := pre.TransformDataset(train)
	if err != nil {
		return nil, nil, fmt.Errorf("training: transform train: %w", err)
	}
	reg, err := model.FitMultiOutput(xTrain, targetMatrix(train, targets), targets, opts.Params)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	bundle := &model.Bundle{Preprocessor: pre, Regressor: reg, TrainedAt: now().UTC()}
	rep := &Report{
		Rows:        ds.Rows,
		TrainRows:   train.Rows,
		TestRows:    test.Rows,
		Features:    features,
		Categorical: append([]string(nil), profile.CategoricalFeatures...),
	}
	for _, s := range pre.Scaled {
		rep.Numeric = append(rep.Numeric, s.Name)
	}

	if test.Rows > 0 {
		if err := score(rep, pre, reg, test, targets); err != nil {
			return nil, nil, err
		}
	}
	return bundle, rep, nil
}

func targetMatrix(ds *model.Dataset, targets []string) *mat.Dense {
	y := mat.NewDense(ds.Rows, len(targets), nil)
	for k, t := range targets {
		y.SetCol(k, ds.Numeric[t])
	}
	return y
}

func score(rep *Report, pre *model.Preprocessor, reg *model.MultiOutputRegressor, test *model.Dataset, targets []string) error {
	xTest, err := pre.TransformDataset(test)
	if err != nil {
		// unseen categories in the held-out split
		return fmt.Errorf("training: transform test: %w", err)
	}
	pred, err := reg.PredictDense(xTest)
	if err != nil {
		return err
	}
	sumTrue := make([]float64, test.Rows)
	sumPred := make([]float64, test.Rows)
	for k, t := range targets {
		yTrue := test.Numeric[t]
		yPred := mat.Col(nil, k, pred)
		rep.Scores = append(rep.Scores, Score{
			Target: t,
			MAE:    model.MeanAbsoluteError(yTrue, yPred),
			R2:     model.R2Score(yTrue, yPred),
		})
		for i := range yTrue {
			sumTrue[i] += yTrue[i]
			sumPred[i] += yPred[i]
		}
	}
	rep.Total = Score{
		Target: "Total_Potential_Savings",
		MAE:    model.MeanAbsoluteError(sumTrue, sumPred),
		R2:     model.R2Score(sumTrue, sumPred),
	}
	return nil
}

// Run loads the CSV, fits, saves the artifacts and smoke-tests them by
// reloading and predicting the sample profile.
func Run(ctx context.Context, opts Options, logger *zap.Logger) (*Report, error) {
	if opts.Store == nil {
		return nil, errors.New("training: no artifact store")
	}
	logger.Info("loading dataset", zap.String("path", opts.DataPath))
	f, err := os.Open(opts.DataPath)
	if err != nil {
		return nil, fmt.Errorf("training: %w", err)
	}
	ds, err := LoadCSV(f, profile.CategoricalFeatures)
	f.Close()
	if err != nil {
		return nil, err
	}
	logger.Info("dataset loaded", zap.Int("rows", ds.Rows), zap.Int("columns", len(ds.Columns)))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bundle, rep, err := Fit(ds, opts)
	if err != nil {
		return nil, err
	}
	for _, s := range rep.Scores {
		logger.Info("target score", zap.String("target", s.Target), zap.Float64("mae", s.MAE), zap.Float64("r2", s.R2))
	}
	logger.Info("total score", zap.Float64("mae", rep.Total.MAE), zap.Float64("r2", rep.Total.R2))

	backedUp, err := model.SaveBundle(opts.Store, bundle, opts.Backup)
	rep.BackedUp = backedUp
	for _, b := range backedUp {
		logger.Info("backed up artifact", zap.String("key", b))
	}
	if err != nil {
		return rep, err
	}
	logger.Info("artifacts saved",
		zap.String("preprocessor", opts.Store.URL(model.PreprocessorFile)),
		zap.String("model", opts.Store.URL(model.RegressorFile)))

	loaded, err := model.LoadBundle(opts.Store)
	if err != nil {
		return rep, fmt.Errorf("training: reload: %w", err)
	}
	pipe := predict.NewPipelineFromBundle(loaded, predict.RawPolicy{Categories: profile.ExpenseCategories})
	sample, err := pipe.Predict(ctx, profile.Sample().Fields())
	if err != nil {
		return rep, fmt.Errorf("training: sample prediction: %w", err)
	}
	rep.Sample = sample
	return rep, nil
}
