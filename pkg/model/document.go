package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// Document is the top-level aggregate of the interchange schema: an
// ordered list of records followed by an ordered list of relationships.
// A document exclusively owns its records; two documents never share a
// record instance. The document also owns identifier-resolution
// consistency across everything it holds (see ResolveIdentifiers).
type Document struct {
	records       []Record
	relationships []Relationship
}

// NewDocument constructs an empty document.
func NewDocument() *Document {
	return &Document{}
}

// AddRecord appends a record to the document, taking ownership of it.
func (d *Document) AddRecord(r Record) {
	if r == nil {
		return
	}
	d.records = append(d.records, r)
}

// AddRelationship appends a relationship to the document.
func (d *Document) AddRelationship(rel Relationship) {
	d.relationships = append(d.relationships, rel)
}

// Records returns the document's records in insertion order.
func (d *Document) Records() []Record {
	return append([]Record(nil), d.records...)
}

// Relationships returns the document's relationships in insertion order.
func (d *Document) Relationships() []Relationship {
	return append([]Relationship(nil), d.relationships...)
}

type documentJSON struct {
	Records       []json.RawMessage `json:"records"`
	Relationships []json.RawMessage `json:"relationships"`
}

// ParseDocument validates and decodes a document from JSON, using the
// loader to reconstruct each record's concrete subtype. A nil loader
// means DefaultLoader. A document must contain at least one record;
// relationships are optional and default to empty.
func ParseDocument(raw json.RawMessage, loader *RecordLoader) (*Document, error) {
	if loader == nil {
		loader = DefaultLoader()
	}
	var parsed struct {
		Records       *[]json.RawMessage `json:"records"`
		Relationships []json.RawMessage  `json:"relationships"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, SchemaViolationError{Entity: "document", Field: "document", Reason: "must be a JSON object"}
	}
	if parsed.Records == nil || len(*parsed.Records) == 0 {
		return nil, SchemaViolationError{Entity: "document", Field: "records", Reason: "must contain at least one record"}
	}
	doc := NewDocument()
	for _, entry := range *parsed.Records {
		record, err := loader.Load(entry)
		if err != nil {
			return nil, err
		}
		doc.AddRecord(record)
	}
	for _, entry := range parsed.Relationships {
		var rel Relationship
		if err := json.Unmarshal(entry, &rel); err != nil {
			return nil, err
		}
		doc.AddRelationship(rel)
	}
	return doc, nil
}

// ToJSON serializes the document. Both lists are always emitted so an
// empty document renders as {"records":[],"relationships":[]}.
func (d *Document) ToJSON() (json.RawMessage, error) {
	out := documentJSON{
		Records:       make([]json.RawMessage, 0, len(d.records)),
		Relationships: make([]json.RawMessage, 0, len(d.relationships)),
	}
	for _, record := range d.records {
		raw, err := record.ToJSON()
		if err != nil {
			return nil, err
		}
		out.Records = append(out.Records, raw)
	}
	for _, rel := range d.relationships {
		raw, err := json.Marshal(rel)
		if err != nil {
			return nil, err
		}
		out.Relationships = append(out.Relationships, raw)
	}
	return json.Marshal(out)
}

// MarshalJSON makes documents usable directly with encoding/json.
func (d *Document) MarshalJSON() ([]byte, error) {
	return d.ToJSON()
}

// LoadDocument reads and parses a document from a JSON file. A nil loader
// means DefaultLoader.
func LoadDocument(path string, loader *RecordLoader) (*Document, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- document path is caller supplied by design
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return ParseDocument(raw, loader)
}

// SaveDocument writes the document to path as JSON, overwriting any
// existing file.
func SaveDocument(d *Document, path string) error {
	raw, err := d.ToJSON()
	if err != nil {
		return fmt.Errorf("serialize document: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}
