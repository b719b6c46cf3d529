package predict

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mind-engage/savings-forecast/internal/profile"
)

func sampleInputs() map[string]any { return profile.Sample().Fields() }

func TestRawPolicy(t *testing.T) {
	raw := []float64{100.004, 50.126, -3.333, 10, 20.555, 0.001}
	res, err := RawPolicy{Categories: profile.ExpenseCategories}.Shape(raw, nil)
	require.NoError(t, err)

	require.Len(t, res.Values, 6)
	assert.Equal(t, "Potential_Savings_Groceries", res.Values[0].Name)
	assert.Equal(t, 100.0, res.Values[0].Value)
	assert.Equal(t, 50.13, res.Values[1].Value)
	assert.Equal(t, -3.33, res.Values[2].Value)
	assert.Equal(t, 20.56, res.Values[4].Value)
	assert.Equal(t, 0.0, res.Values[5].Value)
	// 177.353 before rounding
	assert.Equal(t, 177.35, res.Total)
}

func TestClampedPolicy_Bounds(t *testing.T) {
	in := sampleInputs()
	raw := []float64{5000, -10, 400.456, 499.999, 1e6, 1000}
	res, err := ClampedPolicy{Categories: profile.ExpenseCategories}.Shape(raw, in)
	require.NoError(t, err)

	var sum float64
	for i, cat := range profile.ExpenseCategories {
		spend, _ := toFloat(in[cat])
		v := res.Values[i].Value
		assert.GreaterOrEqual(t, v, 0.0, cat)
		assert.LessOrEqual(t, v, 0.5*spend, cat)
		sum += v
	}
	assert.Equal(t, 3000.0, res.Values[0].Value) // 0.5 * 6000
	assert.Equal(t, 0.0, res.Values[1].Value)
	assert.Equal(t, 400.46, res.Values[2].Value)
	assert.Equal(t, 500.0, res.Values[3].Value)
	assert.Equal(t, 150.0, res.Values[5].Value) // 0.5 * 300
	assert.InDelta(t, sum, res.Total, 0.01)
}

func TestClampedPolicy_ZeroSpendForcesZero(t *testing.T) {
	in := sampleInputs()
	in["Groceries"] = 0.0
	delete(in, "Transport")
	res, err := ClampedPolicy{Categories: profile.ExpenseCategories}.Shape([]float64{900, 900, 1, 1, 1, 1}, in)
	require.NoError(t, err)

	v, ok := res.Get("Potential_Savings_Groceries")
	require.True(t, ok)
	assert.Equal(t, 0.0, v)
	v, _ = res.Get("Potential_Savings_Transport")
	assert.Equal(t, 0.0, v)
}

func TestClampedPolicy_WarnsFarAboveCap(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := ClampedPolicy{Categories: profile.ExpenseCategories, Logger: zap.New(core)}

	_, err := p.Shape([]float64{12001, 0, 0, 0, 0, 0}, sampleInputs())
	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Groceries", logs.All()[0].ContextMap()["category"])

	// exactly twice the cap is not reported
	_, err = p.Shape([]float64{6000, 0, 0, 0, 0, 0}, sampleInputs())
	require.NoError(t, err)
	assert.Equal(t, 1, logs.Len())
}

func TestPolicy_LengthMismatch(t *testing.T) {
	_, err := RawPolicy{Categories: profile.ExpenseCategories}.Shape([]float64{1}, nil)
	assert.Error(t, err)
	_, err = ClampedPolicy{Categories: profile.ExpenseCategories}.Shape([]float64{1}, nil)
	assert.Error(t, err)
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy("raw", nil)
	require.NoError(t, err)
	assert.Equal(t, PolicyRaw, p.Name())
	p, err = NewPolicy("", nil)
	require.NoError(t, err)
	assert.Equal(t, PolicyClamped, p.Name())
	_, err = NewPolicy("median", nil)
	assert.Error(t, err)
}

func TestResultObjectJSON(t *testing.T) {
	res := Result{Values: []NamedValue{{"Potential_Savings_Groceries", 1.5}, {"Potential_Savings_Transport", 2}}, Total: 3.5}
	b, err := json.Marshal(res.Object())
	require.NoError(t, err)
	assert.JSONEq(t, `{"Potential_Savings_Groceries":1.5,"Potential_Savings_Transport":2,"Total_Predicted_Savings":3.5}`, string(b))
	assert.Equal(t, `{"Potential_Savings_Groceries":1.5,"Potential_Savings_Transport":2,"Total_Predicted_Savings":3.5}`, string(b))
}
