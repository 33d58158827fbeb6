package types

import "encoding/json"

// Optional is a JSON field that distinguishes "absent" from "null".
// Set is false when the field did not appear in the payload at all.
// When Set is true, a nil Value means the field was an explicit null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// UnmarshalJSON is only invoked for fields present in the payload, so
// Set flips to true exactly when the key was supplied.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// MarshalJSON renders the value, or null when unset or cleared.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// OptionalOf wraps a value as a supplied Optional. Intended for tests
// and internal callers building patches in code.
func OptionalOf[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// OptionalNull is a supplied-but-null Optional, i.e. an explicit clear.
func OptionalNull[T any]() Optional[T] {
	return Optional[T]{Set: true}
}
