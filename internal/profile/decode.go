package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

type kind int

const (
	kindInt kind = iota
	kindFloat
	kindString
)

// schema lists every required request field in declaration order. Spend
// fields are the amounts the clamp bound is derived from and may not be
// negative.
var schema = []struct {
	name  string
	kind  kind
	spend bool
}{
	{"Age", kindInt, false},
	{"City_Tier", kindString, false},
	{"Dependents", kindInt, false},
	{"Desired_Savings", kindFloat, false},
	{"Desired_Savings_Percentage", kindFloat, false},
	{"Disposable_Income", kindFloat, false},
	{"Eating_Out", kindFloat, true},
	{"Education", kindFloat, true},
	{"Entertainment", kindFloat, true},
	{"Groceries", kindFloat, true},
	{"Healthcare", kindFloat, true},
	{"Income", kindFloat, true},
	{"Insurance", kindFloat, true},
	{"Loan_Repayment", kindFloat, true},
	{"Miscellaneous", kindFloat, true},
	{"Occupation", kindString, false},
	{"Rent", kindFloat, true},
	{"Transport", kindFloat, true},
	{"Utilities", kindFloat, true},
}

// FieldNames returns the request schema's field names in order.
func FieldNames() []string {
	out := make([]string, len(schema))
	for i, f := range schema {
		out[i] = f.name
	}
	return out
}

// FieldError describes one schema violation. Loc is ["body", <field>].
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationError collects every FieldError found in a body.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid request body"
	}
	f := e.Fields[0]
	msg := fmt.Sprintf("%v: %s", f.Loc, f.Msg)
	if len(e.Fields) > 1 {
		msg += fmt.Sprintf(" (and %d more)", len(e.Fields)-1)
	}
	return msg
}

// Decode validates body against the schema and returns the profile. Schema
// violations are reported as *ValidationError.
func Decode(body []byte) (UserProfile, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return UserProfile{}, &ValidationError{Fields: []FieldError{{
			Loc: []string{"body"}, Msg: "Input should be a valid JSON object", Type: "model_attributes_type",
		}}}
	}

	var verr ValidationError
	clean := make(map[string]json.RawMessage, len(schema))
	for _, f := range schema {
		v, ok := raw[f.name]
		if !ok {
			verr.Fields = append(verr.Fields, FieldError{Loc: []string{"body", f.name}, Msg: "Field required", Type: "missing"})
			continue
		}
		norm, fe := checkField(f.name, f.kind, f.spend, v)
		if fe != nil {
			verr.Fields = append(verr.Fields, *fe)
			continue
		}
		clean[f.name] = norm
	}
	if len(verr.Fields) > 0 {
		return UserProfile{}, &verr
	}

	b, err := json.Marshal(clean)
	if err != nil {
		return UserProfile{}, fmt.Errorf("decode profile: %w", err)
	}
	var p UserProfile
	if err := json.Unmarshal(b, &p); err != nil {
		return UserProfile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

// checkField validates one value and returns it in the form UserProfile
// decodes: whole-number floats for integer fields become integer literals.
func checkField(name string, k kind, spend bool, v json.RawMessage) (json.RawMessage, *FieldError) {
	loc := []string{"body", name}
	var tok any
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	if err := dec.Decode(&tok); err != nil {
		return nil, &FieldError{Loc: loc, Msg: "Invalid JSON value", Type: "json_invalid"}
	}
	switch k {
	case kindString:
		if _, ok := tok.(string); !ok {
			return nil, &FieldError{Loc: loc, Msg: "Input should be a valid string", Type: "string_type"}
		}
	case kindInt:
		n, ok := tok.(json.Number)
		if !ok {
			return nil, &FieldError{Loc: loc, Msg: "Input should be a valid integer", Type: "int_type"}
		}
		i, fe := parseInt(loc, n)
		if fe != nil {
			return nil, fe
		}
		return json.RawMessage(strconv.FormatInt(i, 10)), nil
	case kindFloat:
		n, ok := tok.(json.Number)
		if !ok {
			return nil, &FieldError{Loc: loc, Msg: "Input should be a valid number", Type: "float_type"}
		}
		f, err := n.Float64()
		if err != nil {
			return nil, &FieldError{Loc: loc, Msg: "Input should be a finite number", Type: "finite_number"}
		}
		if spend && f < 0 {
			return nil, &FieldError{Loc: loc, Msg: "Input should be greater than or equal to 0", Type: "greater_than_equal"}
		}
	}
	return v, nil
}

// parseInt accepts integer literals and floats with no fractional part.
func parseInt(loc []string, n json.Number) (int64, *FieldError) {
	i, err := strconv.ParseInt(n.String(), 10, 64)
	if err == nil {
		return i, nil
	}
	var numErr *strconv.NumError
	if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
		return 0, &FieldError{Loc: loc, Msg: "Input should be a valid integer, got a number out of range", Type: "int_range"}
	}
	f, ferr := n.Float64()
	if ferr != nil || math.IsInf(f, 0) {
		return 0, &FieldError{Loc: loc, Msg: "Input should be a valid integer", Type: "int_parsing"}
	}
	if f != math.Trunc(f) {
		return 0, &FieldError{Loc: loc, Msg: "Input should be a valid integer, got a number with a fractional part", Type: "int_from_float"}
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, &FieldError{Loc: loc, Msg: "Input should be a valid integer, got a number out of range", Type: "int_range"}
	}
	return int64(f), nil
}
