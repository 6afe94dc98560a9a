package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	// MaxMetadataDepth bounds nesting of maps and slices.
	MaxMetadataDepth = 16
	// MaxMetadataBytes bounds the encoded size of the metadata.
	MaxMetadataBytes = 16 << 10
)

// Metadata is free-form data attached to a session. Values are limited to
// strings, numbers, booleans, nil, and nested maps and slices of the same.
// Decoded numbers are int64 when integral, uint64 above the int64 range, and
// float64 otherwise, so integers keep their full precision.
type Metadata map[string]any

// UnmarshalJSON decodes metadata without routing integers through float64.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	if raw == nil {
		*m = nil

		return nil
	}

	for k, v := range raw {
		raw[k] = normalizeNumbers(v)
	}

	*m = raw

	return nil
}

func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(val.String(), 10, 64); err == nil {
			return i
		}

		if u, err := strconv.ParseUint(val.String(), 10, 64); err == nil {
			return u
		}

		if f, err := val.Float64(); err == nil {
			return f
		}

		return val.String()
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeNumbers(item)
		}

		return val
	case []any:
		for i, item := range val {
			val[i] = normalizeNumbers(item)
		}

		return val
	default:
		return v
	}
}

// Validate checks value types, nesting depth and encoded size.
func (m Metadata) Validate() error {
	if m == nil {
		return nil
	}

	if err := validateValue(map[string]any(m), 1); err != nil {
		return err
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("%w: metadata: %w", ErrSerialization, err)
	}

	if len(data) > MaxMetadataBytes {
		return fmt.Errorf("%w: metadata is %d bytes, limit %d", ErrSerialization, len(data), MaxMetadataBytes)
	}

	return nil
}

func validateValue(v any, depth int) error {
	if depth > MaxMetadataDepth {
		return fmt.Errorf("%w: metadata nested deeper than %d", ErrSerialization, MaxMetadataDepth)
	}

	switch val := v.(type) {
	case nil, string, bool, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return nil
	case map[string]any:
		for k, item := range val {
			if err := validateValue(item, depth+1); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		}

		return nil
	case Metadata:
		return validateValue(map[string]any(val), depth)
	case []any:
		for i, item := range val {
			if err := validateValue(item, depth+1); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}

		return nil
	default:
		return fmt.Errorf("%w: unsupported metadata value of type %T", ErrSerialization, v)
	}
}
