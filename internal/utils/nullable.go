package utils

import (
	"bytes"
	"encoding/json"
)

// Nullable distinguishes an absent value (Set false), an explicit null (Set true,
// Valid false) and a concrete value. Absent JSON fields never reach UnmarshalJSON,
// so a zero Nullable decodes as "not supplied".
type Nullable[T any] struct {
	Set   bool
	Valid bool
	Value T
}

func Some[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Valid: true, Value: v}
}

func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Valid = false
		n.Value = *new(T)
		return nil
	}
	if err := json.Unmarshal(data, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Ptr returns nil unless the value is present and non-null.
func (n Nullable[T]) Ptr() *T {
	if !n.Set || !n.Valid {
		return nil
	}
	return Ptr(n.Value)
}
