// pkg/converter/text.go
package converter

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// CasePolicy selects the final casing of a categorical value
type CasePolicy string

const (
	CaseKeep       CasePolicy = "keep"       // Leave as normalized (lowercase)
	CaseCapitalize CasePolicy = "capitalize" // Upper-case the first letter only
	CaseTitle      CasePolicy = "title"      // Upper-case the first letter of every word
)

// NormalizeText folds a value to its lookup form: NFKC, lowercase, trimmed
func NormalizeText(s string) string {
	return strings.TrimSpace(strings.ToLower(norm.NFKC.String(s)))
}

// ApplyCase returns s cased per policy
func ApplyCase(s string, policy CasePolicy) string {
	switch policy {
	case CaseTitle:
		// A Caser is stateful, so one is built per call
		return cases.Title(language.Und, cases.NoLower).String(s)
	case CaseCapitalize:
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError {
			return s
		}
		return string(unicode.ToUpper(r)) + s[size:]
	default:
		return s
	}
}

// ParseCasePolicy parses a policy name; unknown names give CaseKeep and false
func ParseCasePolicy(name string) (CasePolicy, bool) {
	switch CasePolicy(strings.ToLower(strings.TrimSpace(name))) {
	case CaseKeep:
		return CaseKeep, true
	case CaseCapitalize:
		return CaseCapitalize, true
	case CaseTitle:
		return CaseTitle, true
	default:
		return CaseKeep, false
	}
}
