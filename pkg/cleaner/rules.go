// pkg/cleaner/rules.go
package cleaner

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/David-Botos/vehicle-cleaner/pkg/converter"
	"github.com/David-Botos/vehicle-cleaner/pkg/model"
)

// Labels written by the categorical pass
const (
	UnknownLabel = "Unknown"
	OtherLabel   = "Other"
)

// DefaultSentinel replaces numeric values that are invalid or out of range
const DefaultSentinel int64 = -1

// DefaultRareThreshold is the fractional frequency at or below which values are
// bucketed into OtherLabel; the comparison is inclusive (count/rows <= threshold)
const DefaultRareThreshold = 0.01

// IntRange is an inclusive range of valid integers
type IntRange struct {
	Min int64
	Max int64
}

// Contains reports whether v lies in the range
func (r IntRange) Contains(v int64) bool {
	return v >= r.Min && v <= r.Max
}

// NumericRule configures the integer coercion of one column
type NumericRule struct {
	Column   string
	Range    *IntRange // nil means conversion only
	Sentinel int64
}

// Validate checks the rule is usable
func (r NumericRule) Validate() error {
	if strings.TrimSpace(r.Column) == "" {
		return errors.New("numeric rule needs a column")
	}
	if r.Range != nil && r.Range.Min > r.Range.Max {
		return fmt.Errorf("column %s: range min %d exceeds max %d", r.Column, r.Range.Min, r.Range.Max)
	}
	return nil
}

// CategoricalRule configures the normalization of one text column
type CategoricalRule struct {
	Column        string
	Mapping       map[string]string    // Normalized variant -> canonical value
	Critical      bool                 // Drop rows with a missing value instead of imputing
	RareThreshold float64              // Fractional frequency; 0 disables bucketing
	Case          converter.CasePolicy // Final casing
}

// Validate checks the rule is usable and that its mapping keys do not collide
// once normalized
func (r CategoricalRule) Validate() error {
	if strings.TrimSpace(r.Column) == "" {
		return errors.New("categorical rule needs a column")
	}
	if r.RareThreshold < 0 || r.RareThreshold >= 1 {
		return fmt.Errorf("column %s: rare threshold %v outside [0, 1)", r.Column, r.RareThreshold)
	}
	if _, err := NormalizeMapping(r.Mapping); err != nil {
		return fmt.Errorf("column %s: %w", r.Column, err)
	}
	return nil
}

// NormalizeMapping folds mapping keys to their lookup form. Keys that collide
// after folding must agree on the canonical value.
func NormalizeMapping(mapping map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(mapping))

	// Sorted so the reported conflict is stable
	keys := make([]string, 0, len(mapping))
	for k := range mapping {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		nk := converter.NormalizeText(k)
		v := mapping[k]
		if prev, ok := out[nk]; ok && prev != v {
			return nil, fmt.Errorf("mapping keys collide on %q with values %q and %q", nk, prev, v)
		}
		out[nk] = v
	}
	return out, nil
}

// TransmissionMapping returns the default transmission corrections
func TransmissionMapping() map[string]string {
	return map[string]string{
		"auto": "automatic",
		"at":   "automatic",
		"6sp":  "automatic",
		"10sp": "automatic",
		"man":  "manual",
		"mt":   "manual",
	}
}

// MakeMapping returns the default make corrections
func MakeMapping() map[string]string {
	return map[string]string{
		"chevy": "Chevrolet",
		"merc":  "Mercedes-Benz",
		"vw":    "Volkswagen",
	}
}

// BodyMapping returns the default body type corrections
func BodyMapping() map[string]string {
	return map[string]string{
		"g sedan":      "sedan",
		"hatchback":    "sedan",
		"crew cab":     "pickup",
		"regular cab":  "pickup",
		"extended cab": "pickup",
		"double cab":   "pickup",
	}
}

// YearRangeDefault is the default valid model year range
func YearRangeDefault() IntRange {
	return IntRange{Min: 1900, Max: 2026}
}

// OdometerRangeDefault is the default valid mileage range
func OdometerRangeDefault() IntRange {
	return IntRange{Min: 0, Max: 999999}
}

// DefaultNumericRules returns the year and odometer rules
func DefaultNumericRules() []NumericRule {
	year := YearRangeDefault()
	odometer := OdometerRangeDefault()
	return []NumericRule{
		{Column: model.ColumnYear, Range: &year, Sentinel: DefaultSentinel},
		{Column: model.ColumnOdometer, Range: &odometer, Sentinel: DefaultSentinel},
	}
}

// DefaultCategoricalRules returns the rules for make, model, trim, transmission and body
func DefaultCategoricalRules() []CategoricalRule {
	return []CategoricalRule{
		{Column: model.ColumnMake, Mapping: MakeMapping(), Critical: true, Case: converter.CaseTitle},
		{Column: model.ColumnModel, Critical: true, Case: converter.CaseTitle},
		{Column: model.ColumnTrim, RareThreshold: DefaultRareThreshold, Case: converter.CaseTitle},
		{Column: model.ColumnTransmission, Mapping: TransmissionMapping(), Case: converter.CaseKeep},
		{Column: model.ColumnBody, Mapping: BodyMapping(), RareThreshold: DefaultRareThreshold, Case: converter.CaseTitle},
	}
}
