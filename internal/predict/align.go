package predict

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mind-engage/savings-forecast/internal/model"
)

var ErrSchemaUnavailable = errors.New("preprocessor schema unavailable")

// Align projects arbitrary fields onto the required columns, in order.
// Columns missing from fields default to 0; extra fields are dropped.
func Align(fields map[string]any, required []string) (model.FeatureVector, error) {
	if len(required) == 0 {
		return nil, ErrSchemaUnavailable
	}
	fv := make(model.FeatureVector, 0, len(required))
	for _, name := range required {
		v, ok := fields[name]
		if !ok || v == nil {
			fv = append(fv, model.Feature{Name: name})
			continue
		}
		f, err := toFeature(name, v)
		if err != nil {
			return nil, err
		}
		fv = append(fv, f)
	}
	return fv, nil
}

func toFeature(name string, v any) (model.Feature, error) {
	switch x := v.(type) {
	case string:
		return model.Feature{Name: name, Cat: x, IsCategorical: true}, nil
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return model.Feature{}, fmt.Errorf("column %s: %w", name, err)
		}
		return model.Feature{Name: name, Num: n}, nil
	}
	n, ok := toFloat(v)
	if !ok {
		return model.Feature{}, fmt.Errorf("column %s: unsupported value type %T", name, v)
	}
	return model.Feature{Name: name, Num: n}, nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}
