// Package memory provides the in-memory reference implementation of the
// model.DataStore contract. It is the backend for ephemeral deployments
// and tests, and the transactional core the postgres snapshot store
// embeds.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"simcore/pkg/model"
	"simcore/pkg/query"
)

// Compile-time contract assertion.
var _ model.DataStore = (*Store)(nil)

// Store holds resolved records and relationships guarded by a single
// mutex. All record ids are store-global once ingested.
type Store struct {
	mu            sync.RWMutex
	loader        *model.RecordLoader
	assign        func() string
	ids           []string
	records       map[string]model.Record
	relationships []model.Relationship
}

// Option configures a store.
type Option func(*Store)

// WithLoader overrides the record loader used to reconstruct records from
// snapshots.
func WithLoader(loader *model.RecordLoader) Option {
	return func(s *Store) {
		if loader != nil {
			s.loader = loader
		}
	}
}

// WithIDGenerator overrides global identifier assignment, mainly so tests
// get deterministic ids.
func WithIDGenerator(assign func() string) Option {
	return func(s *Store) {
		if assign != nil {
			s.assign = assign
		}
	}
}

// NewStore constructs an empty in-memory store. Global ids default to
// random UUIDs.
func NewStore(opts ...Option) *Store {
	s := &Store{
		loader:  model.DefaultLoader(),
		assign:  uuid.NewString,
		records: make(map[string]model.Record),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestDocument assigns global ids to the document's local record ids,
// resolves every occurrence, and stores the records and relationships.
// The store takes ownership of the document's records.
func (s *Store) IngestDocument(_ context.Context, doc *model.Document) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assigned := make(map[string]string)
	for _, local := range doc.LocalIdentifiers() {
		assigned[local] = s.assign()
	}
	if err := doc.ResolveIdentifiers(assigned); err != nil {
		return nil, err
	}
	records := doc.Records()
	seen := make(map[string]struct{}, len(records))
	for _, record := range records {
		id := record.ID().Value()
		if _, exists := s.records[id]; exists {
			return nil, fmt.Errorf("record %q already exists", id)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("record %q appears more than once in the document", id)
		}
		seen[id] = struct{}{}
	}
	for _, record := range records {
		id := record.ID().Value()
		s.ids = append(s.ids, id)
		s.records[id] = record
	}
	s.relationships = append(s.relationships, doc.Relationships()...)
	return assigned, nil
}

// GetRecord returns a copy of the record stored under the global id.
// Callers own the returned record; mutating it never touches store state.
func (s *Store) GetRecord(_ context.Context, id string) (model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, model.NotFoundError{ID: id}
	}
	return s.cloneRecord(record)
}

// RecordsOfType returns copies of records carrying the exact type tag, in
// ingestion order.
func (s *Store) RecordsOfType(_ context.Context, recordType string) ([]model.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Record
	for _, id := range s.ids {
		record := s.records[id]
		if record.Type() != recordType {
			continue
		}
		clone, err := s.cloneRecord(record)
		if err != nil {
			return nil, err
		}
		out = append(out, clone)
	}
	return out, nil
}

// RecordsWithFileURI returns ids of records referencing a file whose URI
// matches the pattern; "%" acts as a multi-character wildcard.
func (s *Store) RecordsWithFileURI(_ context.Context, uriPattern string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, id := range s.ids {
		for _, f := range s.records[id].Files() {
			if matchURI(f.URI(), uriPattern) {
				out = append(out, id)
				break
			}
		}
	}
	return out, nil
}

// RecordsMatching returns ids of records whose data satisfies every
// criterion.
func (s *Store) RecordsMatching(_ context.Context, criteria []query.Criterion) ([]string, error) {
	for _, c := range criteria {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, id := range s.ids {
		if recordMatches(s.records[id], criteria) {
			out = append(out, id)
		}
	}
	return out, nil
}

// Relationships returns stored relationships filtered by subject,
// predicate, and object; empty strings are wildcards.
func (s *Store) Relationships(_ context.Context, subject, predicate, object string) ([]model.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Relationship
	for _, rel := range s.relationships {
		if subject != "" && rel.Subject().Value() != subject {
			continue
		}
		if predicate != "" && rel.Predicate() != predicate {
			continue
		}
		if object != "" && rel.Object().Value() != object {
			continue
		}
		out = append(out, rel)
	}
	return out, nil
}

// ExportDocument assembles a document from copies of the records with the
// given ids plus every relationship touching any of them. Each export gets
// its own record instances so documents never share state with the store
// or with each other.
func (s *Store) ExportDocument(_ context.Context, ids []string) (*model.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := model.NewDocument()
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		record, ok := s.records[id]
		if !ok {
			return nil, model.NotFoundError{ID: id}
		}
		clone, err := s.cloneRecord(record)
		if err != nil {
			return nil, err
		}
		wanted[id] = struct{}{}
		doc.AddRecord(clone)
	}
	for _, rel := range s.relationships {
		_, subjectIn := wanted[rel.Subject().Value()]
		_, objectIn := wanted[rel.Object().Value()]
		if subjectIn || objectIn {
			doc.AddRelationship(rel)
		}
	}
	return doc, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// cloneRecord copies a record by round-tripping it through the loader, the
// same path snapshots take. Only copies ever leave the store.
func (s *Store) cloneRecord(record model.Record) (model.Record, error) {
	raw, err := record.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("copy record %q: %w", record.ID().Value(), err)
	}
	clone, err := s.loader.Load(raw)
	if err != nil {
		return nil, fmt.Errorf("copy record %q: %w", record.ID().Value(), err)
	}
	return clone, nil
}

// Snapshot is the serialized bucket form of the store state, consumed by
// snapshotting backends.
type Snapshot struct {
	Records       []json.RawMessage `json:"records"`
	Relationships []json.RawMessage `json:"relationships"`
}

// ExportState serializes the full store state in ingestion order.
func (s *Store) ExportState() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var snap Snapshot
	for _, id := range s.ids {
		raw, err := s.records[id].ToJSON()
		if err != nil {
			return Snapshot{}, fmt.Errorf("serialize record %q: %w", id, err)
		}
		snap.Records = append(snap.Records, raw)
	}
	for _, rel := range s.relationships {
		raw, err := json.Marshal(rel)
		if err != nil {
			return Snapshot{}, fmt.Errorf("serialize relationship: %w", err)
		}
		snap.Relationships = append(snap.Relationships, raw)
	}
	return snap, nil
}

// ImportState replaces the store state from a snapshot, reconstructing
// records through the loader.
func (s *Store) ImportState(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = nil
	s.records = make(map[string]model.Record)
	s.relationships = nil
	for _, raw := range snap.Records {
		record, err := s.loader.Load(raw)
		if err != nil {
			return fmt.Errorf("load record snapshot: %w", err)
		}
		id := record.ID().Value()
		s.ids = append(s.ids, id)
		s.records[id] = record
	}
	for _, raw := range snap.Relationships {
		var rel model.Relationship
		if err := json.Unmarshal(raw, &rel); err != nil {
			return fmt.Errorf("load relationship snapshot: %w", err)
		}
		s.relationships = append(s.relationships, rel)
	}
	return nil
}

// recordMatches applies intersection semantics over all criteria.
func recordMatches(record model.Record, criteria []query.Criterion) bool {
	for _, c := range criteria {
		datum, ok := record.Data().Get(c.Name)
		if !ok || !datumMatches(datum, c) {
			return false
		}
	}
	return true
}

func datumMatches(d model.Datum, c query.Criterion) bool {
	switch {
	case c.Scalar != nil:
		return d.Kind() == model.KindScalar && c.Scalar.Contains(d.Scalar())
	case c.Text != nil:
		return d.Kind() == model.KindText && c.Text.Contains(d.Text())
	case c.ScalarList != nil:
		return d.Kind() == model.KindScalarList &&
			c.ScalarList.Predicate.MatchesScalars(d.ScalarList(), c.ScalarList.Values)
	case c.TextList != nil:
		return d.Kind() == model.KindTextList &&
			c.TextList.Predicate.MatchesStrings(d.TextList(), c.TextList.Values)
	default:
		return false
	}
}

// matchURI supports the "%" wildcard of the SQL LIKE syntax the relational
// backends expose for file lookups.
func matchURI(uri, pattern string) bool {
	if !strings.Contains(pattern, "%") {
		return uri == pattern
	}
	parts := strings.Split(pattern, "%")
	if !strings.HasPrefix(uri, parts[0]) {
		return false
	}
	rest := uri[len(parts[0]):]
	last := len(parts) - 1
	for i := 1; i < last; i++ {
		idx := strings.Index(rest, parts[i])
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(parts[i]):]
	}
	return strings.HasSuffix(rest, parts[last])
}
