// Package mapsafe reads typed values out of loosely typed parameter maps,
// such as the backend-specific parameters passed on a load request.
package mapsafe

import "time"

// Get retrieves a typed value from a map[string]any.
// Numeric values are converted between int and float64; durations may be
// given as time.Duration or as a string accepted by time.ParseDuration.
// If the key is missing or the value cannot be converted, defaultValue is returned.
func Get[T any](m map[string]any, key string, defaultValue T) T {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultValue
	}

	var out any
	switch any(defaultValue).(type) {
	case int:
		switch x := val.(type) {
		case int:
			out = x
		case int64:
			out = int(x)
		case float64:
			out = int(x)
		}
	case float64:
		switch x := val.(type) {
		case float64:
			out = x
		case int:
			out = float64(x)
		}
	case time.Duration:
		switch x := val.(type) {
		case time.Duration:
			out = x
		case string:
			if d, err := time.ParseDuration(x); err == nil {
				out = d
			}
		}
	default:
		out = val
	}

	if v, ok := out.(T); ok {
		return v
	}
	return defaultValue
}
