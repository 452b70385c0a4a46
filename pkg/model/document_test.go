package model

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
)

const sampleDocument = `{
	"records": [
		{"type": "run", "id": "run1", "application": "hydro", "version": "2.1"},
		{"type": "msub", "local_id": "sub1", "data": {"queue": {"value": "batch"}}}
	],
	"relationships": [
		{"subject": "run1", "predicate": "submitted by", "local_object": "sub1"}
	]
}`

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument(json.RawMessage(sampleDocument), nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	records := doc.Records()
	if len(records) != 2 {
		t.Fatalf("records = %d", len(records))
	}
	if _, ok := records[0].(*Run); !ok {
		t.Fatalf("first record should be *Run, got %T", records[0])
	}
	if _, ok := records[1].(*BaseRecord); !ok {
		t.Fatalf("second record should fall back to *BaseRecord, got %T", records[1])
	}
	rels := doc.Relationships()
	if len(rels) != 1 || rels[0].Predicate() != "submitted by" {
		t.Fatalf("relationships = %v", rels)
	}
	if !rels[0].Object().IsLocal() || rels[0].Subject().IsLocal() {
		t.Fatalf("endpoint scopes wrong: %v", rels[0])
	}
}

func TestParseDocumentRequiresRecords(t *testing.T) {
	for _, raw := range []string{`{}`, `{"records":[]}`, `{"relationships":[]}`} {
		_, err := ParseDocument(json.RawMessage(raw), nil)
		var sv SchemaViolationError
		if !errors.As(err, &sv) || sv.Field != "records" {
			t.Fatalf("input %s: expected records violation, got %v", raw, err)
		}
	}
}

func TestParseDocumentPropagatesRecordErrors(t *testing.T) {
	_, err := ParseDocument(json.RawMessage(`{"records":[{"id":"x"}]}`), nil)
	var sv SchemaViolationError
	if !errors.As(err, &sv) || sv.Field != "type" {
		t.Fatalf("expected type violation, got %v", err)
	}
}

func TestDocumentToJSONAlwaysEmitsBothLists(t *testing.T) {
	doc := NewDocument()
	doc.AddRecord(NewRecord(GlobalID("only"), "t"))
	raw, err := doc.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var parsed struct {
		Records       []json.RawMessage `json:"records"`
		Relationships []json.RawMessage `json:"relationships"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Records == nil || parsed.Relationships == nil {
		t.Fatalf("lists must always be present: %s", raw)
	}
	if len(parsed.Relationships) != 0 {
		t.Fatalf("relationships = %v", parsed.Relationships)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	doc, err := ParseDocument(json.RawMessage(sampleDocument), nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	raw, err := doc.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := ParseDocument(raw, nil)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if len(back.Records()) != 2 || len(back.Relationships()) != 1 {
		t.Fatalf("round trip lost entries: %d records %d relationships",
			len(back.Records()), len(back.Relationships()))
	}
	run, ok := back.Records()[0].(*Run)
	if !ok || run.Version() != "2.1" {
		t.Fatalf("run subtype lost: %T", back.Records()[0])
	}
}

func TestLoadAndSaveDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")

	doc, err := ParseDocument(json.RawMessage(sampleDocument), nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := SaveDocument(doc, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	back, err := LoadDocument(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(back.Records()) != 2 {
		t.Fatalf("records = %d", len(back.Records()))
	}

	if _, err := LoadDocument(filepath.Join(dir, "missing.json"), nil); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
