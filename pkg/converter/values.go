// pkg/converter/values.go
package converter

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// missingMarkers are the textual cells read as missing
var missingMarkers = map[string]struct{}{
	"":        {},
	"NaN":     {},
	"nan":     {},
	"-NaN":    {},
	"-nan":    {},
	"NA":      {},
	"N/A":     {},
	"n/a":     {},
	"<NA>":    {},
	"#N/A":    {},
	"#NA":     {},
	"NULL":    {},
	"null":    {},
	"None":    {},
	"nil":     {},
	"NIL":     {},
	"1.#IND":  {},
	"1.#QNAN": {},
}

// IsMissing determines if a value should be treated as missing
func IsMissing(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		_, ok := missingMarkers[strings.TrimSpace(v)]
		return ok
	case float64:
		return math.IsNaN(v)
	case float32:
		return math.IsNaN(float64(v))
	default:
		return false
	}
}

// ParseCell converts a raw text cell to a table value: nil for missing markers,
// the text unchanged otherwise
func ParseCell(raw string) interface{} {
	if IsMissing(raw) {
		return nil
	}
	return raw
}

// ToInt attempts to convert a value to int64.
// Float input is truncated toward zero; NaN, infinities and overflow fail.
func ToInt(v interface{}) (int64, error) {
	if v == nil {
		return 0, errors.New("nil value")
	}

	switch val := v.(type) {
	case int:
		return int64(val), nil
	case int8:
		return int64(val), nil
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case uint:
		return uintToInt(uint64(val))
	case uint8:
		return int64(val), nil
	case uint16:
		return int64(val), nil
	case uint32:
		return int64(val), nil
	case uint64:
		return uintToInt(val)
	case float32:
		return floatToInt(float64(val))
	case float64:
		return floatToInt(val)
	case string:
		return parseIntText(val)
	case []byte:
		return parseIntText(string(val))
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
}

// ToText converts a value to its text form; missing values give ""
func ToText(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// ToNullableText converts a value to a nullable string
func ToNullableText(v interface{}) *string {
	if v == nil {
		return nil
	}
	s := ToText(v)
	return &s
}

func parseIntText(s string) (int64, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return 0, errors.New("empty string")
	}
	if IsMissing(cleaned) {
		return 0, fmt.Errorf("missing value %q", cleaned)
	}

	if i, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
		return i, nil
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse %q as number", cleaned)
	}
	return floatToInt(f)
}

func floatToInt(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value %v", f)
	}
	t := math.Trunc(f)
	if t >= math.MaxInt64 || t < math.MinInt64 {
		return 0, fmt.Errorf("value %v overflows int64", f)
	}
	return int64(t), nil
}

func uintToInt(u uint64) (int64, error) {
	if u > math.MaxInt64 {
		return 0, errors.New("uint64 value overflow for int64")
	}
	return int64(u), nil
}
