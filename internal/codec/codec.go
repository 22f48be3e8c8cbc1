// Package codec serializes settings payloads for storage backends. Decoding
// goes through json.Decoder.UseNumber so numeric values round-trip with stable
// types: integral numbers come back as int64, everything else as float64.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// EncodeValues marshals a settings payload for storage.
func EncodeValues(values map[string]any) ([]byte, error) {
	if values == nil {
		values = map[string]any{}
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("codec: encode values: %w", err)
	}
	return payload, nil
}

// DecodeValues unmarshals a stored payload, normalizing numbers.
func DecodeValues(payload []byte) (map[string]any, error) {
	if len(payload) == 0 {
		return map[string]any{}, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	var out map[string]any
	if err := decoder.Decode(&out); err != nil {
		return nil, fmt.Errorf("codec: decode values: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	for key, value := range out {
		out[key] = normalizeNumbers(value)
	}
	return out, nil
}

// Normalize runs a value through the storage encoding and back, producing the
// shape a backend read would return. Useful when comparing staged values
// against persisted snapshots.
func Normalize(value any) (any, error) {
	wrapped, err := EncodeValues(map[string]any{"v": value})
	if err != nil {
		return nil, err
	}
	decoded, err := DecodeValues(wrapped)
	if err != nil {
		return nil, err
	}
	return decoded["v"], nil
}

func normalizeNumbers(value any) any {
	switch typed := value.(type) {
	case json.Number:
		if !strings.ContainsAny(typed.String(), ".eE") {
			if n, err := typed.Int64(); err == nil {
				return n
			}
		}
		if f, err := typed.Float64(); err == nil {
			return f
		}
		return typed.String()
	case map[string]any:
		for key, nested := range typed {
			typed[key] = normalizeNumbers(nested)
		}
		return typed
	case []any:
		for i, nested := range typed {
			typed[i] = normalizeNumbers(nested)
		}
		return typed
	default:
		return value
	}
}
