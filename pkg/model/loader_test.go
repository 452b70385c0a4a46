package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestLoaderDispatchesRegisteredType(t *testing.T) {
	loader := DefaultLoader()
	if !loader.CanLoad(RunType) {
		t.Fatalf("default loader must register %q", RunType)
	}
	rec, err := loader.Load(json.RawMessage(`{"type":"run","id":"r1","application":"hydro"}`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	run, ok := rec.(*Run)
	if !ok {
		t.Fatalf("expected *Run, got %T", rec)
	}
	if run.Application() != "hydro" {
		t.Fatalf("application = %q", run.Application())
	}
}

func TestLoaderFallsBackToBaseRecord(t *testing.T) {
	loader := DefaultLoader()
	rec, err := loader.Load(json.RawMessage(`{"type":"future_type","id":"x","data":{"d":{"value":1}}}`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := rec.(*BaseRecord); !ok {
		t.Fatalf("expected *BaseRecord fallback, got %T", rec)
	}
	if rec.Type() != "future_type" {
		t.Fatalf("type = %q", rec.Type())
	}
}

func TestLoaderMissingTypeFailsBeforeDispatch(t *testing.T) {
	loader := NewRecordLoader()
	_, err := loader.Load(json.RawMessage(`{"id":"x"}`))
	var sv SchemaViolationError
	if !errors.As(err, &sv) || sv.Field != "type" {
		t.Fatalf("expected type violation, got %v", err)
	}
}

func TestLoaderRegisterReplacesAndIgnoresNil(t *testing.T) {
	loader := NewRecordLoader()
	loader.Register("custom", func(raw json.RawMessage) (Record, error) {
		return nil, errors.New("first")
	})
	loader.Register("custom", func(raw json.RawMessage) (Record, error) {
		return NewRecordFromJSON(raw)
	})
	loader.Register("", func(json.RawMessage) (Record, error) { return nil, nil })
	loader.Register("nilfactory", nil)

	if loader.CanLoad("") || loader.CanLoad("nilfactory") {
		t.Fatalf("empty tag or nil factory registered")
	}
	rec, err := loader.Load(json.RawMessage(`{"type":"custom","id":"c"}`))
	if err != nil {
		t.Fatalf("replacement factory not used: %v", err)
	}
	if rec.Type() != "custom" {
		t.Fatalf("type = %q", rec.Type())
	}
}

func TestLoaderRegisteredFactoryErrorsPropagate(t *testing.T) {
	loader := NewRecordLoader()
	loader.Register("run", func(raw json.RawMessage) (Record, error) {
		return NewRunFromJSON(raw)
	})
	_, err := loader.Load(json.RawMessage(`{"type":"run","id":"r"}`))
	var sv SchemaViolationError
	if !errors.As(err, &sv) || sv.Field != "application" {
		t.Fatalf("expected application violation, got %v", err)
	}
}
