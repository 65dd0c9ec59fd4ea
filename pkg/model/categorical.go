// pkg/model/categorical.go
package model

import (
	"fmt"
	"sort"
)

// Categorical is a dictionary encoding of a text column: each distinct value is
// stored once in Levels and every row holds an index into it (-1 for missing)
type Categorical struct {
	Levels []string
	Codes  []int32
}

// EncodeCategorical builds a Categorical from row-ordered values.
// Levels are sorted; nil values get code -1.
func EncodeCategorical(values []interface{}) *Categorical {
	seen := make(map[string]struct{})
	for _, v := range values {
		if v == nil {
			continue
		}
		seen[levelString(v)] = struct{}{}
	}

	levels := make([]string, 0, len(seen))
	for l := range seen {
		levels = append(levels, l)
	}
	sort.Strings(levels)

	lookup := make(map[string]int32, len(levels))
	for i, l := range levels {
		lookup[l] = int32(i)
	}

	codes := make([]int32, len(values))
	for i, v := range values {
		if v == nil {
			codes[i] = -1
			continue
		}
		codes[i] = lookup[levelString(v)]
	}

	return &Categorical{Levels: levels, Codes: codes}
}

// Len returns the number of encoded rows
func (c *Categorical) Len() int {
	return len(c.Codes)
}

// Value returns the level for row i, or nil when the row is missing
func (c *Categorical) Value(i int) interface{} {
	code := c.Codes[i]
	if code < 0 {
		return nil
	}
	return c.Levels[code]
}

// Counts returns the number of rows per level
func (c *Categorical) Counts() map[string]int {
	counts := make(map[string]int, len(c.Levels))
	for _, code := range c.Codes {
		if code >= 0 {
			counts[c.Levels[code]]++
		}
	}
	return counts
}

func levelString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
