package predict

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mind-engage/savings-forecast/internal/profile"
)

const (
	PolicyRaw     = "raw"
	PolicyClamped = "clamped"

	// clampShare is the largest fraction of a category's spend that may be
	// predicted as savings.
	clampShare = 0.5
)

// NamedValue is one category prediction.
type NamedValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Result is a shaped prediction: per-category values plus their total.
type Result struct {
	Values []NamedValue `json:"values"`
	Total  float64      `json:"total"`
}

// Get returns the value for name.
func (r Result) Get(name string) (float64, bool) {
	if name == profile.TotalKey {
		return r.Total, true
	}
	for _, v := range r.Values {
		if v.Name == name {
			return v.Value, true
		}
	}
	return 0, false
}

// Object renders the result as the flat map returned to clients.
func (r Result) Object() json.Marshaler { return resultObject(r) }

type resultObject Result

// MarshalJSON keeps category order and appends the total last.
func (o resultObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, v := range o.Values {
		if err := writeMember(&buf, v.Name, v.Value); err != nil {
			return nil, err
		}
		buf.WriteByte(',')
	}
	if err := writeMember(&buf, profile.TotalKey, o.Total); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeMember(buf *bytes.Buffer, k string, v float64) error {
	kb, err := json.Marshal(k)
	if err != nil {
		return err
	}
	vb, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(kb)
	buf.WriteByte(':')
	buf.Write(vb)
	return nil
}

// Policy turns a raw model output into a Result. inputs are the request
// fields the prediction was made from.
type Policy interface {
	Name() string
	Shape(raw []float64, inputs map[string]any) (Result, error)
}

// NewPolicy returns the named policy over the standard categories.
func NewPolicy(name string, logger *zap.Logger) (Policy, error) {
	switch name {
	case PolicyRaw:
		return RawPolicy{Categories: profile.ExpenseCategories}, nil
	case PolicyClamped, "":
		return ClampedPolicy{Categories: profile.ExpenseCategories, Logger: logger}, nil
	default:
		return nil, fmt.Errorf("unknown shaper policy %q", name)
	}
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// RawPolicy rounds each prediction; the total is the rounded sum of the
// unrounded predictions.
type RawPolicy struct {
	Categories []string
}

func (RawPolicy) Name() string { return PolicyRaw }

func (p RawPolicy) Shape(raw []float64, _ map[string]any) (Result, error) {
	if len(raw) != len(p.Categories) {
		return Result{}, fmt.Errorf("shape: got %d predictions for %d categories", len(raw), len(p.Categories))
	}
	res := Result{Values: make([]NamedValue, len(raw))}
	sum := decimal.Zero
	for i, v := range raw {
		res.Values[i] = NamedValue{Name: profile.TargetColumn(p.Categories[i]), Value: round2(v)}
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	res.Total = sum.Round(2).InexactFloat64()
	return res, nil
}

// ClampedPolicy bounds each prediction to [0, 0.5 × the category's input
// spend]. A missing or zero input therefore forces that category to 0.
type ClampedPolicy struct {
	Categories []string
	Logger     *zap.Logger
}

func (ClampedPolicy) Name() string { return PolicyClamped }

func (p ClampedPolicy) Shape(raw []float64, inputs map[string]any) (Result, error) {
	if len(raw) != len(p.Categories) {
		return Result{}, fmt.Errorf("shape: got %d predictions for %d categories", len(raw), len(p.Categories))
	}
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	res := Result{Values: make([]NamedValue, len(raw))}
	sum := decimal.Zero
	for i, v := range raw {
		cat := p.Categories[i]
		spend, _ := toFloat(inputs[cat])
		maxAllowed := clampShare * spend
		if v > 2*maxAllowed {
			logger.Warn("prediction far above spend cap",
				zap.String("category", cat),
				zap.Float64("raw", v),
				zap.Float64("max_allowed", maxAllowed))
		}
		clamped := math.Max(0, math.Min(v, maxAllowed))
		rounded := round2(clamped)
		res.Values[i] = NamedValue{Name: profile.TargetColumn(cat), Value: rounded}
		sum = sum.Add(decimal.NewFromFloat(rounded))
	}
	res.Total = sum.Round(2).InexactFloat64()
	return res, nil
}
