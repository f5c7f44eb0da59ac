package record

import (
	"encoding/json"
	"strconv"
)

// Missing is the text written for a field that could not be observed.
const Missing = "N/A"

// Opt is a field that is either observed or explicitly missing.
// The zero value is missing.
type Opt[T any] struct {
	V     T
	Valid bool
}

func Some[T any](v T) Opt[T] {
	return Opt[T]{V: v, Valid: true}
}

func None[T any]() Opt[T] {
	return Opt[T]{}
}

// Get returns the value and whether it is present.
func (o Opt[T]) Get() (T, bool) {
	return o.V, o.Valid
}

// MarshalJSON renders a missing value as null.
func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.V)
}

func (o *Opt[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Opt[T]{}
		return nil
	}
	if err := json.Unmarshal(data, &o.V); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

func formatInt(o Opt[int]) string {
	if !o.Valid {
		return Missing
	}
	return strconv.Itoa(o.V)
}

func formatFloat(o Opt[float64]) string {
	if !o.Valid {
		return Missing
	}
	return strconv.FormatFloat(o.V, 'f', -1, 64)
}

func formatString(o Opt[string]) string {
	if !o.Valid || o.V == "" {
		return Missing
	}
	return o.V
}
