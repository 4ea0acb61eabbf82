package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ExtraDataAfterJSONError is returned when a decoder finds more than one JSON value.
type ExtraDataAfterJSONError struct{}

func (e *ExtraDataAfterJSONError) Error() string {
	return "extra data after JSON object"
}

// FromJSON decodes data into T, rejecting unknown fields and trailing values.
// Empty input decodes to the zero value.
//
//nolint:ireturn // Generic functions must return type parameter T
func FromJSON[T any](data []byte) (T, error) {
	var zero T
	if len(data) == 0 {
		return zero, nil
	}

	return FromJSONStream[T](bytes.NewReader(data))
}

// FromJSONStream decodes a single JSON value from r into T.
//
//nolint:ireturn // Generic functions must return type parameter T
func FromJSONStream[T any](r io.Reader) (T, error) {
	return decodeSingle[T](r, true)
}

// FromJSONLenient is FromJSON without the unknown field check. Trailing values are still rejected.
//
//nolint:ireturn // Generic functions must return type parameter T
func FromJSONLenient[T any](data []byte) (T, error) {
	var zero T
	if len(data) == 0 {
		return zero, nil
	}

	return decodeSingle[T](bytes.NewReader(data), false)
}

//nolint:ireturn // Generic functions must return type parameter T
func decodeSingle[T any](r io.Reader, strict bool) (T, error) {
	var result T

	dec := json.NewDecoder(r)
	if strict {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(&result); err != nil {
		return result, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return result, &ExtraDataAfterJSONError{}
	}

	return result, nil
}

// ToJSON encodes v without HTML escaping and without a trailing newline.
func ToJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := ToJSONStream(&buf, v); err != nil {
		return nil, err
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ToJSONIndent is ToJSON with two space indentation.
func ToJSONIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := ToJSONStreamIndent(&buf, v); err != nil {
		return nil, err
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ToJSONStream writes v to w as JSON.
func ToJSONStream(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}

// ToJSONStreamIndent writes v to w as indented JSON.
func ToJSONStreamIndent(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
