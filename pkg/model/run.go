package model

import "encoding/json"

// RunType is the reserved type tag for the Run record subtype.
const RunType = "run"

// Run is a record subtype describing one finalized execution of a
// simulation code: the application that produced it plus an optional
// version and user, on top of the base record contract.
type Run struct {
	*BaseRecord
	application string
	user        string
	version     string
}

// NewRun constructs a run programmatically. The type tag is fixed to
// RunType.
func NewRun(id ID, application, version, user string) *Run {
	return &Run{
		BaseRecord:  NewRecord(id, RunType),
		application: application,
		user:        user,
		version:     version,
	}
}

// Application returns the application that produced the run.
func (r *Run) Application() string { return r.application }

// User returns the optional user who produced the run.
func (r *Run) User() string { return r.user }

// Version returns the optional application version.
func (r *Run) Version() string { return r.version }

// SetUser replaces the optional user.
func (r *Run) SetUser(user string) { r.user = user }

// SetVersion replaces the optional version.
func (r *Run) SetVersion(version string) { r.version = version }

type runJSON struct {
	baseRecordJSON
	Application string `json:"application"`
	User        string `json:"user,omitempty"`
	Version     string `json:"version,omitempty"`
}

// ToJSON serializes the run, extending the base record wire shape.
func (r *Run) ToJSON() (json.RawMessage, error) {
	return json.Marshal(runJSON{
		baseRecordJSON: r.baseJSON(),
		Application:    r.application,
		User:           r.user,
		Version:        r.version,
	})
}

// MarshalJSON makes runs usable directly with encoding/json.
func (r *Run) MarshalJSON() ([]byte, error) {
	return r.ToJSON()
}

// NewRunFromJSON validates and decodes a run from JSON. In addition to the
// base record validation, the application field is required.
func NewRunFromJSON(raw json.RawMessage) (*Run, error) {
	base, err := NewRecordFromJSON(raw)
	if err != nil {
		return nil, err
	}
	if base.Type() != RunType {
		return nil, SchemaViolationError{Entity: "run", Field: "type", Reason: `must be "run"`}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, SchemaViolationError{Entity: "run", Field: "run", Reason: "must be a JSON object"}
	}
	application, ok, err := stringField(fields, "application")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, SchemaViolationError{Entity: "run", Field: "application", Reason: "is required"}
	}
	user, _, err := stringField(fields, "user")
	if err != nil {
		return nil, err
	}
	version, _, err := stringField(fields, "version")
	if err != nil {
		return nil, err
	}
	return &Run{
		BaseRecord:  base,
		application: application,
		user:        user,
		version:     version,
	}, nil
}

// stringField decodes one optional string field so a wrong-typed value is
// reported against its own name.
func stringField(fields map[string]json.RawMessage, name string) (string, bool, error) {
	raw, ok := fields[name]
	if !ok {
		return "", false, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false, SchemaViolationError{Entity: "run", Field: name, Reason: "must be a string"}
	}
	return s, true, nil
}
