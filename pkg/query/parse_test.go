package query

import "testing"

func TestParseDataStringEquality(t *testing.T) {
	criteria, err := ParseDataString("speed=3 tag='fast'")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(criteria) != 2 {
		t.Fatalf("criteria = %d", len(criteria))
	}
	if criteria[0].Name != "speed" || criteria[0].Scalar == nil {
		t.Fatalf("criterion 0 = %+v", criteria[0])
	}
	if !criteria[0].Scalar.Contains(3) || criteria[0].Scalar.Contains(3.5) {
		t.Fatalf("scalar equality wrong: %+v", criteria[0].Scalar)
	}
	if criteria[1].Name != "tag" || criteria[1].Text == nil || !criteria[1].Text.Contains("fast") {
		t.Fatalf("criterion 1 = %+v", criteria[1])
	}
}

func TestParseDataStringScalarRange(t *testing.T) {
	criteria, err := ParseDataString("vol=[10,20)")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	r := criteria[0].Scalar
	if r == nil {
		t.Fatalf("expected scalar range: %+v", criteria[0])
	}
	for value, want := range map[float64]bool{10: true, 15: true, 20: false, 9.99: false} {
		if got := r.Contains(value); got != want {
			t.Fatalf("Contains(%v) = %v, want %v", value, got, want)
		}
	}
}

func TestParseDataStringOpenEndedRange(t *testing.T) {
	criteria, err := ParseDataString("vol=[10,]")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	r := criteria[0].Scalar
	if r == nil || r.Max != nil || r.Min == nil || *r.Min != 10 {
		t.Fatalf("range = %+v", r)
	}
	if !r.Contains(1e12) || r.Contains(9) {
		t.Fatalf("open max not honored")
	}
}

func TestParseDataStringStringRange(t *testing.T) {
	criteria, err := ParseDataString("name=('a','c']")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	r := criteria[0].Text
	if r == nil {
		t.Fatalf("expected string range: %+v", criteria[0])
	}
	if r.Contains("a") || !r.Contains("b") || !r.Contains("c") {
		t.Fatalf("string bounds wrong: %+v", r)
	}
}

func TestParseDataStringErrors(t *testing.T) {
	for _, input := range []string{
		"noequals",
		"=value",
		"name=",
		"name=1,2",     // comma outside brackets
		"name=[10 20]", // missing comma splits into two bad tokens
		"name=[,]",     // no bounds
		"name=[9,1]",   // crossed bounds
	} {
		if _, err := ParseDataString(input); err == nil {
			t.Fatalf("input %q: expected error", input)
		}
	}
}

func TestParseDataStringEmptyInput(t *testing.T) {
	criteria, err := ParseDataString("   ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(criteria) != 0 {
		t.Fatalf("criteria = %v", criteria)
	}
}
