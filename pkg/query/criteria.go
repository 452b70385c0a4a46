// Package query defines the value-matching criteria a store evaluates over
// record data: numeric and lexicographic ranges for scalar and string
// payloads, and set-membership predicates over homogeneous list payloads.
// The document model guarantees list payloads are never mixed-type, so a
// criterion never has to compare scalars with strings.
package query

import "fmt"

// ScalarRange matches scalar payloads against an optionally bounded
// numeric interval. A nil bound is unbounded; inclusivity is tracked per
// bound.
type ScalarRange struct {
	Min          *float64
	Max          *float64
	MinInclusive bool
	MaxInclusive bool
}

// ScalarEquals returns a range matching exactly the given value.
func ScalarEquals(value float64) ScalarRange {
	return ScalarRange{Min: &value, Max: &value, MinInclusive: true, MaxInclusive: true}
}

// Contains reports whether the value falls within the range.
func (r ScalarRange) Contains(value float64) bool {
	if r.Min != nil {
		if r.MinInclusive {
			if value < *r.Min {
				return false
			}
		} else if value <= *r.Min {
			return false
		}
	}
	if r.Max != nil {
		if r.MaxInclusive {
			if value > *r.Max {
				return false
			}
		} else if value >= *r.Max {
			return false
		}
	}
	return true
}

// Validate reports an error when the bounds cross.
func (r ScalarRange) Validate() error {
	if r.Min != nil && r.Max != nil {
		if *r.Min > *r.Max {
			return fmt.Errorf("scalar range: min %v exceeds max %v", *r.Min, *r.Max)
		}
		if *r.Min == *r.Max && !(r.MinInclusive && r.MaxInclusive) {
			return fmt.Errorf("scalar range: min equals max but a bound is exclusive")
		}
	}
	return nil
}

// StringRange matches string payloads against an optionally bounded
// lexicographic interval.
type StringRange struct {
	Min          string
	Max          string
	HasMin       bool
	HasMax       bool
	MinInclusive bool
	MaxInclusive bool
}

// StringEquals returns a range matching exactly the given value.
func StringEquals(value string) StringRange {
	return StringRange{Min: value, Max: value, HasMin: true, HasMax: true, MinInclusive: true, MaxInclusive: true}
}

// Contains reports whether the value falls within the range.
func (r StringRange) Contains(value string) bool {
	if r.HasMin {
		if r.MinInclusive {
			if value < r.Min {
				return false
			}
		} else if value <= r.Min {
			return false
		}
	}
	if r.HasMax {
		if r.MaxInclusive {
			if value > r.Max {
				return false
			}
		} else if value >= r.Max {
			return false
		}
	}
	return true
}

// ListPredicate selects the set-membership semantics applied to a list
// payload. All predicates are order- and duplicate-insensitive.
type ListPredicate int

// List predicates.
const (
	// HasAll matches when every wanted value appears in the payload.
	HasAll ListPredicate = iota
	// HasAny matches when at least one wanted value appears.
	HasAny
	// HasOnly matches when the payload and the wanted values contain
	// exactly the same set of distinct entries.
	HasOnly
)

// String returns the predicate name used in logs and error messages.
func (p ListPredicate) String() string {
	switch p {
	case HasAll:
		return "has_all"
	case HasAny:
		return "has_any"
	case HasOnly:
		return "has_only"
	default:
		return "unknown"
	}
}

// MatchesStrings applies the predicate to a string list payload.
func (p ListPredicate) MatchesStrings(payload, wanted []string) bool {
	have := make(map[string]struct{}, len(payload))
	for _, v := range payload {
		have[v] = struct{}{}
	}
	want := make(map[string]struct{}, len(wanted))
	for _, v := range wanted {
		want[v] = struct{}{}
	}
	return matchSets(p, have, want)
}

// MatchesScalars applies the predicate to a scalar list payload.
func (p ListPredicate) MatchesScalars(payload, wanted []float64) bool {
	have := make(map[float64]struct{}, len(payload))
	for _, v := range payload {
		have[v] = struct{}{}
	}
	want := make(map[float64]struct{}, len(wanted))
	for _, v := range wanted {
		want[v] = struct{}{}
	}
	return matchSets(p, have, want)
}

func matchSets[T comparable](p ListPredicate, have, want map[T]struct{}) bool {
	switch p {
	case HasAll:
		for v := range want {
			if _, ok := have[v]; !ok {
				return false
			}
		}
		return true
	case HasAny:
		for v := range want {
			if _, ok := have[v]; ok {
				return true
			}
		}
		return false
	case HasOnly:
		if len(have) != len(want) {
			return false
		}
		for v := range want {
			if _, ok := have[v]; !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Criterion is one named condition over a record's data. Exactly one
// branch is set; Name selects the datum it applies to.
type Criterion struct {
	Name       string
	Scalar     *ScalarRange
	Text       *StringRange
	ScalarList *ScalarListCriterion
	TextList   *StringListCriterion
}

// ScalarListCriterion applies a list predicate to scalar list payloads.
type ScalarListCriterion struct {
	Predicate ListPredicate
	Values    []float64
}

// StringListCriterion applies a list predicate to string list payloads.
type StringListCriterion struct {
	Predicate ListPredicate
	Values    []string
}

// WithScalarRange builds a scalar range criterion.
func WithScalarRange(name string, r ScalarRange) Criterion {
	return Criterion{Name: name, Scalar: &r}
}

// WithStringRange builds a string range criterion.
func WithStringRange(name string, r StringRange) Criterion {
	return Criterion{Name: name, Text: &r}
}

// WithScalarList builds a scalar list-membership criterion.
func WithScalarList(name string, p ListPredicate, values ...float64) Criterion {
	return Criterion{Name: name, ScalarList: &ScalarListCriterion{Predicate: p, Values: values}}
}

// WithStringList builds a string list-membership criterion.
func WithStringList(name string, p ListPredicate, values ...string) Criterion {
	return Criterion{Name: name, TextList: &StringListCriterion{Predicate: p, Values: values}}
}

// Validate reports an error when the criterion is empty, over-specified,
// or carries a crossing range.
func (c Criterion) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("criterion: name is required")
	}
	set := 0
	if c.Scalar != nil {
		set++
		if err := c.Scalar.Validate(); err != nil {
			return err
		}
	}
	if c.Text != nil {
		set++
	}
	if c.ScalarList != nil {
		set++
	}
	if c.TextList != nil {
		set++
	}
	if set != 1 {
		return fmt.Errorf("criterion %q: exactly one condition must be set, got %d", c.Name, set)
	}
	return nil
}
