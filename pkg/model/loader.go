package model

import "encoding/json"

// RecordFactory deserializes JSON into a concrete record subtype.
type RecordFactory func(raw json.RawMessage) (Record, error)

// RecordLoader resolves a record's JSON type tag to the factory that
// builds the matching subtype. Unregistered tags degrade to the base
// record type so documents written by newer tooling still load.
//
// Register all factories before sharing a loader across goroutines;
// lookups are safe concurrently only once registration has finished.
type RecordLoader struct {
	factories map[string]RecordFactory
}

// NewRecordLoader constructs an empty loader.
func NewRecordLoader() *RecordLoader {
	return &RecordLoader{factories: make(map[string]RecordFactory)}
}

// Register installs the factory for a type tag, replacing any prior
// factory for the same tag. Nil factories are ignored.
func (l *RecordLoader) Register(typeTag string, factory RecordFactory) {
	if typeTag == "" || factory == nil {
		return
	}
	l.factories[typeTag] = factory
}

// CanLoad reports whether a factory is registered for the exact tag.
func (l *RecordLoader) CanLoad(typeTag string) bool {
	_, ok := l.factories[typeTag]
	return ok
}

// Load reads the record's type tag and dispatches to the registered
// factory. A missing type tag is a schema violation regardless of what is
// registered. An unregistered tag falls back to the base record type.
func (l *RecordLoader) Load(raw json.RawMessage) (Record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, SchemaViolationError{Entity: "record", Field: "record", Reason: "must be a JSON object"}
	}
	typeRaw, ok := fields["type"]
	if !ok {
		return nil, SchemaViolationError{Entity: "record", Field: "type", Reason: "is required"}
	}
	var typeTag string
	if err := json.Unmarshal(typeRaw, &typeTag); err != nil {
		return nil, SchemaViolationError{Entity: "record", Field: "type", Reason: "must be a string"}
	}
	if factory, ok := l.factories[typeTag]; ok {
		return factory(raw)
	}
	return NewRecordFromJSON(raw)
}

// DefaultLoader returns a loader pre-populated with every built-in record
// subtype. Document loading uses it when no loader is supplied.
func DefaultLoader() *RecordLoader {
	loader := NewRecordLoader()
	loader.Register(RunType, func(raw json.RawMessage) (Record, error) {
		return NewRunFromJSON(raw)
	})
	return loader
}
