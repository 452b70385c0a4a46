package query

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseDataString parses a space-separated list of range descriptions into
// criteria, matching the command-line syntax "name=value" for equality and
// "name=[min,max)" for ranges. Bracket characters select per-bound
// inclusivity ("[" and "]" inclusive, "(" and ")" exclusive) and an empty
// bound is unbounded. Unquoted numeric values build scalar criteria;
// anything else (optionally quoted) builds string criteria.
//
// Ex: `speed=(3,4] tag='fast'` yields a min-exclusive max-inclusive scalar
// range on speed and a string equality on tag.
func ParseDataString(dataString string) ([]Criterion, error) {
	var out []Criterion
	for _, entry := range strings.Fields(dataString) {
		name, spec, ok := strings.Cut(entry, "=")
		if !ok || name == "" || spec == "" {
			return nil, fmt.Errorf("bad syntax for criterion %q", entry)
		}
		criterion, err := parseSpec(name, spec)
		if err != nil {
			return nil, err
		}
		out = append(out, criterion)
	}
	return out, nil
}

func parseSpec(name, spec string) (Criterion, error) {
	if isGroupedAsRange(spec) {
		minPart, maxPart, ok := strings.Cut(spec[1:len(spec)-1], ",")
		if !ok {
			return Criterion{}, fmt.Errorf("bad specifier in range for %q", name)
		}
		return parseRange(name, minPart, maxPart, spec[0] == '[', spec[len(spec)-1] == ']')
	}
	if strings.Contains(spec, ",") {
		return Criterion{}, fmt.Errorf("bad specifier in range for %q", name)
	}
	if value, err := strconv.ParseFloat(spec, 64); err == nil {
		return WithScalarRange(name, ScalarEquals(value)), nil
	}
	return WithStringRange(name, StringEquals(unquote(spec))), nil
}

func parseRange(name, minPart, maxPart string, minInclusive, maxInclusive bool) (Criterion, error) {
	if minPart == "" && maxPart == "" {
		return Criterion{}, fmt.Errorf("range for %q has no bounds", name)
	}
	minScalar, minIsScalar := parseScalarBound(minPart)
	maxScalar, maxIsScalar := parseScalarBound(maxPart)
	scalar := (minPart == "" || minIsScalar) && (maxPart == "" || maxIsScalar)
	if scalar {
		r := ScalarRange{MinInclusive: minInclusive, MaxInclusive: maxInclusive}
		if minPart != "" {
			r.Min = &minScalar
		}
		if maxPart != "" {
			r.Max = &maxScalar
		}
		if err := r.Validate(); err != nil {
			return Criterion{}, err
		}
		return WithScalarRange(name, r), nil
	}
	r := StringRange{MinInclusive: minInclusive, MaxInclusive: maxInclusive}
	if minPart != "" {
		r.Min, r.HasMin = unquote(minPart), true
	}
	if maxPart != "" {
		r.Max, r.HasMax = unquote(maxPart), true
	}
	return WithStringRange(name, r), nil
}

func parseScalarBound(part string) (float64, bool) {
	if part == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(part, 64)
	return v, err == nil
}

func isGroupedAsRange(spec string) bool {
	if len(spec) < 2 {
		return false
	}
	open := spec[0] == '[' || spec[0] == '('
	closed := spec[len(spec)-1] == ']' || spec[len(spec)-1] == ')'
	return open && closed
}

func unquote(s string) string {
	s = strings.Trim(s, "'")
	return strings.Trim(s, `"`)
}
