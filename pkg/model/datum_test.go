package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDatumConstructorsAndAccessors(t *testing.T) {
	d := NewScalar("volume", 12.5).WithUnits("cc").WithTags("output", "final")
	if d.Name() != "volume" || d.Kind() != KindScalar || d.Scalar() != 12.5 {
		t.Fatalf("unexpected scalar datum: %v %v %v", d.Name(), d.Kind(), d.Scalar())
	}
	if d.Units() != "cc" {
		t.Fatalf("units = %q", d.Units())
	}
	tags := d.Tags()
	if len(tags) != 2 || tags[0] != "output" {
		t.Fatalf("tags = %v", tags)
	}
	tags[0] = "mutated"
	if d.Tags()[0] != "output" {
		t.Fatalf("Tags must return a copy")
	}

	list := NewScalarList("series", []float64{1, 2, 3})
	got := list.ScalarList()
	got[0] = 99
	if list.ScalarList()[0] != 1 {
		t.Fatalf("ScalarList must return a copy")
	}
}

func TestDatumJSONRoundTrip(t *testing.T) {
	d := NewTextList("stages", []string{"setup", "run", "teardown"}).WithUnits("").WithTags("phase")
	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := datumFromJSON("stages", raw)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Kind() != KindTextList {
		t.Fatalf("kind = %v", back.Kind())
	}
	if got := back.TextList(); len(got) != 3 || got[1] != "run" {
		t.Fatalf("payload = %v", got)
	}
	if got := back.Tags(); len(got) != 1 || got[0] != "phase" {
		t.Fatalf("tags = %v", got)
	}
}

func TestDatumFromJSONValidation(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		field string
	}{
		{"missing value", `{"units":"cc"}`, "value"},
		{"mixed list", `{"value":[1,"two"]}`, "value"},
		{"nested list entry", `{"value":[[1],[2]]}`, "value"},
		{"object payload", `{"value":{"a":1}}`, "value"},
		{"bad units", `{"value":1,"units":7}`, "units"},
		{"bad tags", `{"value":1,"tags":"oops"}`, "tags"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := datumFromJSON("d", json.RawMessage(tc.raw))
			var sv SchemaViolationError
			if !errors.As(err, &sv) {
				t.Fatalf("expected schema violation, got %v", err)
			}
			if sv.Field != tc.field {
				t.Fatalf("field = %q, want %q", sv.Field, tc.field)
			}
		})
	}
}

func TestDatumEmptyListIsScalarList(t *testing.T) {
	d, err := datumFromJSON("empty", json.RawMessage(`{"value":[]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Kind() != KindScalarList {
		t.Fatalf("kind = %v, want scalar list", d.Kind())
	}
	if len(d.ScalarList()) != 0 {
		t.Fatalf("payload = %v", d.ScalarList())
	}
}

func TestDataSetPreservesInsertionOrder(t *testing.T) {
	set := NewDataSet()
	set.Set(NewScalar("zeta", 1))
	set.Set(NewText("alpha", "x"))
	set.Set(NewScalarList("mid", []float64{2}))
	set.Set(NewScalar("zeta", 5)) // replace keeps position

	if set.Len() != 3 {
		t.Fatalf("len = %d", set.Len())
	}
	names := set.Names()
	want := []string{"zeta", "alpha", "mid"}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
	if d, ok := set.Get("zeta"); !ok || d.Scalar() != 5 {
		t.Fatalf("replace lost the new value: %v %v", d, ok)
	}

	raw, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	wantJSON := `{"zeta":{"value":5},"alpha":{"value":"x"},"mid":{"value":[2]}}`
	if string(raw) != wantJSON {
		t.Fatalf("json = %s, want %s", raw, wantJSON)
	}

	var back DataSet
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for i, n := range want {
		if back.Names()[i] != n {
			t.Fatalf("round trip reordered: %v", back.Names())
		}
	}
}

func TestDataSetUnmarshalRejectsNonObject(t *testing.T) {
	var set DataSet
	err := json.Unmarshal([]byte(`[1,2]`), &set)
	var sv SchemaViolationError
	if !errors.As(err, &sv) || sv.Field != "data" {
		t.Fatalf("expected data violation, got %v", err)
	}
}

func TestDataSetIgnoresUnnamedDatum(t *testing.T) {
	set := NewDataSet()
	set.Set(Datum{kind: KindScalar, scalar: 1})
	if set.Len() != 0 {
		t.Fatalf("unnamed datum stored: %d", set.Len())
	}
}
