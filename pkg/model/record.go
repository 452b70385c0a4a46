package model

import "encoding/json"

// Record is the base polymorphic entity of the document model. Every
// record carries an immutable type tag and exactly one identifier (local
// or global scope), a named data collection, an ordered file list, and an
// opaque user-defined payload.
//
// Concrete subtypes embed *BaseRecord and may add fields of their own; the
// RecordLoader reconstructs the right subtype from a record's JSON type
// tag. Identifier rewriting during resolution goes through the unexported
// setID hook, which embedding provides to subtypes automatically.
type Record interface {
	ID() ID
	Type() string
	Data() *DataSet
	Files() []File
	AddFile(File)
	SetFiles([]File)
	UserDefined() any
	SetUserDefined(any)
	ToJSON() (json.RawMessage, error)

	setID(ID)
}

// BaseRecord is the concrete base record type. It is used directly for
// records whose type tag has no registered specialized loader.
type BaseRecord struct {
	id          ID
	typ         string
	data        *DataSet
	files       []File
	userDefined any
}

// NewRecord constructs a record programmatically. The caller is trusted to
// supply a well-formed identifier and type tag; JSON-level validation only
// applies when loading from JSON.
func NewRecord(id ID, recordType string) *BaseRecord {
	return &BaseRecord{id: id, typ: recordType, data: NewDataSet()}
}

// ID returns the record identifier.
func (r *BaseRecord) ID() ID { return r.id }

// Type returns the immutable record type tag.
func (r *BaseRecord) Type() string { return r.typ }

// Data returns the record's named data collection.
func (r *BaseRecord) Data() *DataSet { return r.data }

// Files returns a copy of the record's ordered file list.
func (r *BaseRecord) Files() []File {
	return append([]File(nil), r.files...)
}

// AddFile appends a file reference to the record.
func (r *BaseRecord) AddFile(f File) {
	r.files = append(r.files, f)
}

// SetFiles replaces the record's file list.
func (r *BaseRecord) SetFiles(files []File) {
	r.files = append([]File(nil), files...)
}

// UserDefined returns the opaque user-defined payload.
func (r *BaseRecord) UserDefined() any { return r.userDefined }

// SetUserDefined replaces the opaque user-defined payload. The payload is
// arbitrary JSON-compatible data; the store never indexes it.
func (r *BaseRecord) SetUserDefined(v any) { r.userDefined = v }

func (r *BaseRecord) setID(id ID) { r.id = id }

// baseRecordJSON is the wire shape shared by all record types. Exactly one
// of ID and LocalID is populated, chosen by the identifier scope.
type baseRecordJSON struct {
	Type        string   `json:"type"`
	ID          string   `json:"id,omitempty"`
	LocalID     string   `json:"local_id,omitempty"`
	Data        *DataSet `json:"data,omitempty"`
	Files       []File   `json:"files,omitempty"`
	UserDefined any      `json:"user_defined,omitempty"`
}

func (r *BaseRecord) baseJSON() baseRecordJSON {
	out := baseRecordJSON{Type: r.typ}
	if r.id.IsLocal() {
		out.LocalID = r.id.Value()
	} else {
		out.ID = r.id.Value()
	}
	if r.data.Len() > 0 {
		out.Data = r.data
	}
	if len(r.files) > 0 {
		out.Files = r.files
	}
	out.UserDefined = r.userDefined
	return out
}

// ToJSON serializes the record. Empty optional collections are omitted.
func (r *BaseRecord) ToJSON() (json.RawMessage, error) {
	return json.Marshal(r.baseJSON())
}

// MarshalJSON makes records usable directly with encoding/json.
func (r *BaseRecord) MarshalJSON() ([]byte, error) {
	return r.ToJSON()
}

// NewRecordFromJSON validates and decodes a base record from JSON. It
// fails with a SchemaViolationError naming the offending field when the
// type tag or identifier is missing or malformed, when both identifier
// fields are present, or when data or file entries violate the schema.
func NewRecordFromJSON(raw json.RawMessage) (*BaseRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, SchemaViolationError{Entity: "record", Field: "record", Reason: "must be a JSON object"}
	}
	typeRaw, ok := fields["type"]
	if !ok {
		return nil, SchemaViolationError{Entity: "record", Field: "type", Reason: "is required"}
	}
	var recordType string
	if err := json.Unmarshal(typeRaw, &recordType); err != nil {
		return nil, SchemaViolationError{Entity: "record", Field: "type", Reason: "must be a string"}
	}
	id, err := identifierFromJSON(fields)
	if err != nil {
		return nil, err
	}
	record := NewRecord(id, recordType)
	if dataRaw, ok := fields["data"]; ok {
		if err := json.Unmarshal(dataRaw, record.data); err != nil {
			return nil, err
		}
	}
	if filesRaw, ok := fields["files"]; ok {
		var entries []json.RawMessage
		if err := json.Unmarshal(filesRaw, &entries); err != nil {
			return nil, SchemaViolationError{Entity: "record", Field: "files", Reason: "must be an array"}
		}
		for _, entry := range entries {
			var f File
			if err := json.Unmarshal(entry, &f); err != nil {
				return nil, err
			}
			record.files = append(record.files, f)
		}
	}
	if udRaw, ok := fields["user_defined"]; ok {
		var ud any
		if err := json.Unmarshal(udRaw, &ud); err != nil {
			return nil, SchemaViolationError{Entity: "record", Field: "user_defined", Reason: "is not valid JSON"}
		}
		record.userDefined = ud
	}
	return record, nil
}

// identifierFromJSON extracts the single identifier field from record
// JSON. Exactly one of "id" and "local_id" must be present.
func identifierFromJSON(fields map[string]json.RawMessage) (ID, error) {
	idRaw, hasGlobal := fields["id"]
	localRaw, hasLocal := fields["local_id"]
	switch {
	case hasGlobal && hasLocal:
		return ID{}, SchemaViolationError{Entity: "record", Field: "local_id", Reason: `conflicts with "id"; a record carries exactly one identifier`}
	case hasGlobal:
		var value string
		if err := json.Unmarshal(idRaw, &value); err != nil {
			return ID{}, SchemaViolationError{Entity: "record", Field: "id", Reason: "must be a string"}
		}
		return GlobalID(value), nil
	case hasLocal:
		var value string
		if err := json.Unmarshal(localRaw, &value); err != nil {
			return ID{}, SchemaViolationError{Entity: "record", Field: "local_id", Reason: "must be a string"}
		}
		return LocalID(value), nil
	default:
		return ID{}, SchemaViolationError{Entity: "record", Field: "id", Reason: `or "local_id" is required`}
	}
}
