package pricing

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
)

// Maybe holds an optional object that the form configuration switches off
// with a literal false (for example `"coupon": false`).
type Maybe[T any] struct {
	V *T
}

// Some wraps v.
func Some[T any](v T) *Maybe[T] {
	return &Maybe[T]{V: &v}
}

// None returns an explicit "switched off" value.
func None[T any]() *Maybe[T] {
	return &Maybe[T]{}
}

// UnmarshalJSON accepts false, null or an object.
func (m *Maybe[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("false")), bytes.Equal(trimmed, []byte("null")):
		m.V = nil
		return nil
	case len(trimmed) == 0 || trimmed[0] != '{':
		return &json.UnmarshalTypeError{Value: jsonKind(trimmed), Type: reflect.TypeOf(m).Elem()}
	}
	var v T
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return err
	}
	m.V = &v
	return nil
}

// MarshalJSON renders a switched-off value as false.
func (m Maybe[T]) MarshalJSON() ([]byte, error) {
	if m.V == nil {
		return []byte("false"), nil
	}
	return json.Marshal(m.V)
}

// YesNo is a boolean that also accepts the "yes"/"no" strings stored by the
// payment method settings.
type YesNo bool

// UnmarshalJSON accepts true, false, "yes" and "no".
func (y *YesNo) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	var b bool
	if err := json.Unmarshal(trimmed, &b); err == nil {
		*y = YesNo(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "yes":
			*y = true
			return nil
		case "no", "":
			*y = false
			return nil
		}
	}
	return &json.UnmarshalTypeError{Value: jsonKind(trimmed), Type: reflect.TypeOf(y).Elem()}
}

// MarshalJSON renders the settings form.
func (y YesNo) MarshalJSON() ([]byte, error) {
	if y {
		return []byte(`"yes"`), nil
	}
	return []byte(`"no"`), nil
}

func jsonKind(data []byte) string {
	if len(data) == 0 {
		return "empty"
	}
	switch data[0] {
	case '"':
		return "string"
	case '[':
		return "array"
	case '{':
		return "object"
	case 't', 'f':
		return "bool"
	case 'n':
		return "null"
	default:
		return "number"
	}
}
