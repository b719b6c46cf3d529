package predict

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/savings-forecast/internal/model"
	"github.com/mind-engage/savings-forecast/internal/profile"
)

type fakeTransformer struct {
	names []string
	seen  model.FeatureVector
	err   error
}

func (f *fakeTransformer) FeatureNames() []string { return f.names }
func (f *fakeTransformer) Transform(fv model.FeatureVector) ([]float64, error) {
	f.seen = fv
	if f.err != nil {
		return nil, f.err
	}
	out := make([]float64, len(fv))
	for i, ft := range fv {
		out[i] = ft.Num
	}
	return out, nil
}

type fakeRegressor struct {
	out   []float64
	err   error
	calls int
}

func (f *fakeRegressor) Predict([]float64) ([]float64, error) {
	f.calls++
	return f.out, f.err
}

type memCache struct {
	data map[string]Result
	sets int
}

func (m *memCache) Get(_ context.Context, key string) (Result, bool) {
	r, ok := m.data[key]
	return r, ok
}
func (m *memCache) Set(_ context.Context, key string, r Result) error {
	m.sets++
	m.data[key] = r
	return nil
}

func TestPipeline_Predict(t *testing.T) {
	tr := &fakeTransformer{names: []string{"Income", "Groceries", "Extra_Feature"}}
	reg := &fakeRegressor{out: []float64{100, 50, 25, 10, 5, 1}}
	p := NewPipeline(tr, reg, RawPolicy{Categories: profile.ExpenseCategories})

	res, err := p.Predict(context.Background(), profile.Sample().Fields())
	require.NoError(t, err)

	assert.Equal(t, []string{"Income", "Groceries", "Extra_Feature"}, tr.seen.Names())
	assert.Equal(t, 0.0, tr.seen[2].Num)
	assert.Equal(t, 191.0, res.Total)
	assert.Equal(t, PolicyRaw, p.PolicyName())
}

func TestPipeline_ErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	fields := profile.Sample().Fields()

	p := NewPipeline(&fakeTransformer{names: []string{"Income"}, err: boom}, &fakeRegressor{}, RawPolicy{Categories: profile.ExpenseCategories})
	_, err := p.Predict(context.Background(), fields)
	assert.ErrorIs(t, err, boom)

	p = NewPipeline(&fakeTransformer{names: []string{"Income"}}, &fakeRegressor{err: boom}, RawPolicy{Categories: profile.ExpenseCategories})
	_, err = p.Predict(context.Background(), fields)
	assert.ErrorIs(t, err, boom)

	p = NewPipeline(&fakeTransformer{}, &fakeRegressor{}, RawPolicy{Categories: profile.ExpenseCategories})
	_, err = p.Predict(context.Background(), fields)
	assert.ErrorIs(t, err, ErrSchemaUnavailable)

	p = NewPipeline(&fakeTransformer{names: []string{"Income"}}, &fakeRegressor{out: []float64{1, 2}}, RawPolicy{Categories: profile.ExpenseCategories})
	_, err = p.Predict(context.Background(), fields)
	assert.Error(t, err)

	p = NewPipeline(&fakeTransformer{names: []string{"Income"}}, &fakeRegressor{out: []float64{math.NaN(), 0, 0, 0, 0, 0}}, RawPolicy{Categories: profile.ExpenseCategories})
	_, err = p.Predict(context.Background(), fields)
	assert.Error(t, err)
}

func TestPipeline_Cache(t *testing.T) {
	cache := &memCache{data: map[string]Result{}}
	reg := &fakeRegressor{out: []float64{1, 1, 1, 1, 1, 1}}
	p := NewPipeline(&fakeTransformer{names: []string{"Income"}}, reg,
		ClampedPolicy{Categories: profile.ExpenseCategories}, WithCache(cache, "v1"))

	ctx := context.Background()
	first, err := p.Predict(ctx, profile.Sample().Fields())
	require.NoError(t, err)
	second, err := p.Predict(ctx, profile.Sample().Fields())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, reg.calls)
	assert.Equal(t, 1, cache.sets)

	other := profile.Sample()
	other.Income++
	_, err = p.Predict(ctx, other.Fields())
	require.NoError(t, err)
	assert.Equal(t, 2, reg.calls)
}

func TestCacheKey(t *testing.T) {
	a, err := cacheKey("v1", PolicyClamped, map[string]any{"a": 1, "b": "x"})
	require.NoError(t, err)
	b, err := cacheKey("v1", PolicyClamped, map[string]any{"b": "x", "a": 1})
	require.NoError(t, err)
	c, err := cacheKey("v2", PolicyClamped, map[string]any{"a": 1, "b": "x"})
	require.NoError(t, err)
	d, err := cacheKey("v1", PolicyRaw, map[string]any{"a": 1, "b": "x"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Contains(t, a, cachePrefix)
}
