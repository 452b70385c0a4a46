package model

import "encoding/json"

// Relationship is a directed, labeled edge between two record identifiers,
// read as "<subject> <predicate> <object>". Relationships have no identity
// of their own; they live and die with the document or store that holds
// them, and are only mutated through identifier resolution.
type Relationship struct {
	subject   ID
	predicate string
	object    ID
}

// NewRelationship constructs a relationship triple.
func NewRelationship(subject ID, predicate string, object ID) Relationship {
	return Relationship{subject: subject, predicate: predicate, object: object}
}

// Subject returns the subject identifier.
func (r Relationship) Subject() ID { return r.subject }

// Predicate returns the predicate string.
func (r Relationship) Predicate() string { return r.predicate }

// Object returns the object identifier.
func (r Relationship) Object() ID { return r.object }

type relationshipJSON struct {
	Subject      string `json:"subject,omitempty"`
	LocalSubject string `json:"local_subject,omitempty"`
	Predicate    string `json:"predicate"`
	Object       string `json:"object,omitempty"`
	LocalObject  string `json:"local_object,omitempty"`
}

// MarshalJSON emits the triple, choosing the local or global key for each
// endpoint independently by identifier scope.
func (r Relationship) MarshalJSON() ([]byte, error) {
	out := relationshipJSON{Predicate: r.predicate}
	if r.subject.IsLocal() {
		out.LocalSubject = r.subject.Value()
	} else {
		out.Subject = r.subject.Value()
	}
	if r.object.IsLocal() {
		out.LocalObject = r.object.Value()
	} else {
		out.Object = r.object.Value()
	}
	return json.Marshal(out)
}

// UnmarshalJSON validates and decodes a relationship triple.
func (r *Relationship) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return SchemaViolationError{Entity: "relationship", Field: "relationship", Reason: "must be a JSON object"}
	}
	subject, err := endpointFromJSON(fields, "subject", "local_subject")
	if err != nil {
		return err
	}
	object, err := endpointFromJSON(fields, "object", "local_object")
	if err != nil {
		return err
	}
	predicateRaw, ok := fields["predicate"]
	if !ok {
		return SchemaViolationError{Entity: "relationship", Field: "predicate", Reason: "is required"}
	}
	var predicate string
	if err := json.Unmarshal(predicateRaw, &predicate); err != nil {
		return SchemaViolationError{Entity: "relationship", Field: "predicate", Reason: "must be a string"}
	}
	*r = Relationship{subject: subject, predicate: predicate, object: object}
	return nil
}

// endpointFromJSON extracts one endpoint identifier. Exactly one of the
// global and local key must be present.
func endpointFromJSON(fields map[string]json.RawMessage, globalKey, localKey string) (ID, error) {
	globalRaw, hasGlobal := fields[globalKey]
	localRaw, hasLocal := fields[localKey]
	switch {
	case hasGlobal && hasLocal:
		return ID{}, SchemaViolationError{Entity: "relationship", Field: localKey, Reason: `conflicts with "` + globalKey + `"; an endpoint carries exactly one identifier`}
	case hasGlobal:
		var value string
		if err := json.Unmarshal(globalRaw, &value); err != nil {
			return ID{}, SchemaViolationError{Entity: "relationship", Field: globalKey, Reason: "must be a string"}
		}
		return GlobalID(value), nil
	case hasLocal:
		var value string
		if err := json.Unmarshal(localRaw, &value); err != nil {
			return ID{}, SchemaViolationError{Entity: "relationship", Field: localKey, Reason: "must be a string"}
		}
		return LocalID(value), nil
	default:
		return ID{}, SchemaViolationError{Entity: "relationship", Field: globalKey, Reason: `or "` + localKey + `" is required`}
	}
}
