package training

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mind-engage/savings-forecast/internal/model"
	"github.com/mind-engage/savings-forecast/internal/profile"
	"github.com/mind-engage/savings-forecast/internal/storage"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Params.MaxIter = 2000
	opts.Now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return opts
}

func TestCSVRoundTrip(t *testing.T) {
	ds := Synthetic(20, 1)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ds))

	got, err := LoadCSV(strings.NewReader("\ufeff"+buf.String()), profile.CategoricalFeatures)
	require.NoError(t, err)
	assert.Equal(t, ds.Columns, got.Columns)
	assert.Equal(t, ds.Rows, got.Rows)
	assert.Equal(t, ds.Categorical["Occupation"], got.Categorical["Occupation"])
	assert.InDeltaSlice(t, ds.Numeric["Income"], got.Numeric["Income"], 1e-9)
}

func TestLoadCSV_Errors(t *testing.T) {
	_, err := LoadCSV(strings.NewReader(""), nil)
	assert.Error(t, err)

	_, err = LoadCSV(strings.NewReader("Income,Age\n"), nil)
	assert.ErrorContains(t, err, "no data rows")

	_, err = LoadCSV(strings.NewReader("Income,Age\n100,abc\n"), nil)
	assert.ErrorContains(t, err, "line 2 column Age")

	_, err = LoadCSV(strings.NewReader("Income,Age\n100\n"), nil)
	assert.Error(t, err)
}

func TestSynthetic_Deterministic(t *testing.T) {
	a, b := Synthetic(50, 7), Synthetic(50, 7)
	assert.Equal(t, a.Columns, b.Columns)
	assert.Equal(t, a.Numeric, b.Numeric)
	assert.Equal(t, a.Categorical, b.Categorical)
	for _, c := range profile.TargetColumns() {
		assert.True(t, a.Has(c), c)
	}
	assert.True(t, a.Has("Potential_Savings_Healthcare"))
}

func TestFeatureColumns(t *testing.T) {
	cols := FeatureColumns(Synthetic(5, 1))
	assert.Len(t, cols, 19)
	assert.IsIncreasing(t, cols)
	for _, c := range cols {
		assert.False(t, profile.IsSavingsColumn(c), c)
	}
	assert.Contains(t, cols, "Occupation")
}

func TestFit(t *testing.T) {
	ds := Synthetic(300, 3)
	bundle, rep, err := Fit(ds, testOptions())
	require.NoError(t, err)

	assert.Equal(t, 300, rep.Rows)
	assert.Equal(t, 60, rep.TestRows)
	assert.Equal(t, 240, rep.TrainRows)
	assert.Len(t, rep.Numeric, 17)
	require.Len(t, rep.Scores, len(profile.ExpenseCategories))
	for _, s := range rep.Scores {
		assert.Greater(t, s.R2, 0.5, s.Target)
	}
	assert.Greater(t, rep.Total.R2, 0.5)
	assert.Equal(t, profile.TargetColumns(), bundle.Regressor.Targets)
	assert.Equal(t, 2026, bundle.TrainedAt.Year())
}

func TestFit_MissingTarget(t *testing.T) {
	ds := Synthetic(30, 3)
	delete(ds.Numeric, profile.TargetColumn("Groceries"))
	_, _, err := Fit(ds, testOptions())
	assert.ErrorContains(t, err, "Potential_Savings_Groceries")
}

func TestRun_SavesAndBacksUp(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data.csv")
	f, err := os.Create(data)
	require.NoError(t, err)
	require.NoError(t, WriteCSV(f, Synthetic(300, 5)))
	require.NoError(t, f.Close())

	store, err := storage.NewFSStore(filepath.Join(dir, "model"))
	require.NoError(t, err)
	opts := testOptions()
	opts.DataPath = data
	opts.Store = store

	rep, err := Run(context.Background(), opts, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, rep.BackedUp)
	require.Len(t, rep.Sample.Values, len(profile.ExpenseCategories))

	bundle, err := model.LoadBundle(store)
	require.NoError(t, err)
	assert.True(t, opts.Now().Equal(bundle.TrainedAt))

	rep, err = Run(context.Background(), opts, zap.NewNop())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		model.PreprocessorFile + model.BackupSuffix,
		model.RegressorFile + model.BackupSuffix,
	}, rep.BackedUp)
	ok, err := store.Exists(model.RegressorFile + model.BackupSuffix)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRun_MissingData(t *testing.T) {
	store, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)
	opts := testOptions()
	opts.DataPath = filepath.Join(t.TempDir(), "nope.csv")
	opts.Store = store
	_, err = Run(context.Background(), opts, zap.NewNop())
	assert.Error(t, err)
}
