// Package sqlite provides a relational model.DataStore backed by an
// embedded SQLite database. Records persist twice: the full JSON raw for
// lossless reconstruction, and unpacked per-datum rows (scalars, strings,
// files, relationships) that back the query operations.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"simcore/pkg/model"
	"simcore/pkg/query"
)

// Compile-time contract assertion.
var _ model.DataStore = (*Store)(nil)

const ddl = `
CREATE TABLE IF NOT EXISTS records (
	id   TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	raw  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS scalars (
	record_id TEXT NOT NULL REFERENCES records(id),
	name      TEXT NOT NULL,
	value     REAL NOT NULL,
	units     TEXT,
	tags      TEXT,
	list_pos  INTEGER
);
CREATE TABLE IF NOT EXISTS strings (
	record_id TEXT NOT NULL REFERENCES records(id),
	name      TEXT NOT NULL,
	value     TEXT NOT NULL,
	units     TEXT,
	tags      TEXT,
	list_pos  INTEGER
);
CREATE TABLE IF NOT EXISTS files (
	record_id TEXT NOT NULL REFERENCES records(id),
	uri       TEXT NOT NULL,
	mimetype  TEXT,
	tags      TEXT
);
CREATE TABLE IF NOT EXISTS relationships (
	subject   TEXT NOT NULL,
	predicate TEXT NOT NULL,
	object    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scalars_name_value ON scalars(name, value);
CREATE INDEX IF NOT EXISTS idx_strings_name_value ON strings(name, value);
CREATE INDEX IF NOT EXISTS idx_files_uri ON files(uri);
CREATE INDEX IF NOT EXISTS idx_rel_subject ON relationships(subject);
CREATE INDEX IF NOT EXISTS idx_rel_object ON relationships(object);
`

// Store is a SQLite-backed data store.
type Store struct {
	db     *sql.DB
	loader *model.RecordLoader
	assign func() string
	mu     sync.Mutex
	path   string
}

// Option configures a store.
type Option func(*Store)

// WithLoader overrides the record loader used to reconstruct records.
func WithLoader(loader *model.RecordLoader) Option {
	return func(s *Store) {
		if loader != nil {
			s.loader = loader
		}
	}
}

// WithIDGenerator overrides global identifier assignment.
func WithIDGenerator(assign func() string) Option {
	return func(s *Store) {
		if assign != nil {
			s.assign = assign
		}
	}
}

// NewStore opens (creating if needed) a SQLite-backed store at path.
func NewStore(path string, opts ...Option) (*Store, error) {
	if path == "" {
		path = "simcore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(ddl); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	s := &Store{db: db, loader: model.DefaultLoader(), assign: uuid.NewString, path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// IngestDocument assigns global ids, resolves the document, and persists
// records, unpacked data rows, files, and relationships in one
// transaction.
func (s *Store) IngestDocument(ctx context.Context, doc *model.Document) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	assigned := make(map[string]string)
	for _, local := range doc.LocalIdentifiers() {
		assigned[local] = s.assign()
	}
	if err := doc.ResolveIdentifiers(assigned); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin ingest: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, record := range doc.Records() {
		if err := insertRecord(ctx, tx, record); err != nil {
			return nil, err
		}
	}
	for _, rel := range doc.Relationships() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO relationships (subject, predicate, object) VALUES (?, ?, ?)`,
			rel.Subject().Value(), rel.Predicate(), rel.Object().Value()); err != nil {
			return nil, fmt.Errorf("insert relationship: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit ingest: %w", err)
	}
	return assigned, nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, record model.Record) error {
	raw, err := record.ToJSON()
	if err != nil {
		return fmt.Errorf("serialize record %q: %w", record.ID().Value(), err)
	}
	id := record.ID().Value()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO records (id, type, raw) VALUES (?, ?, ?)`,
		id, record.Type(), string(raw)); err != nil {
		return fmt.Errorf("insert record %q: %w", id, err)
	}
	for _, datum := range record.Data().Items() {
		if err := insertDatum(ctx, tx, id, datum); err != nil {
			return err
		}
	}
	for _, f := range record.Files() {
		tags, err := tagsJSON(f.Tags())
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO files (record_id, uri, mimetype, tags) VALUES (?, ?, ?, ?)`,
			id, f.URI(), nullable(f.MimeType()), tags); err != nil {
			return fmt.Errorf("insert file %q: %w", f.URI(), err)
		}
	}
	return nil
}

func insertDatum(ctx context.Context, tx *sql.Tx, recordID string, datum model.Datum) error {
	tags, err := tagsJSON(datum.Tags())
	if err != nil {
		return err
	}
	units := nullable(datum.Units())
	switch datum.Kind() {
	case model.KindScalar:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO scalars (record_id, name, value, units, tags, list_pos) VALUES (?, ?, ?, ?, ?, NULL)`,
			recordID, datum.Name(), datum.Scalar(), units, tags)
	case model.KindText:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO strings (record_id, name, value, units, tags, list_pos) VALUES (?, ?, ?, ?, ?, NULL)`,
			recordID, datum.Name(), datum.Text(), units, tags)
	case model.KindScalarList:
		for pos, v := range datum.ScalarList() {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO scalars (record_id, name, value, units, tags, list_pos) VALUES (?, ?, ?, ?, ?, ?)`,
				recordID, datum.Name(), v, units, tags, pos); err != nil {
				break
			}
		}
	case model.KindTextList:
		for pos, v := range datum.TextList() {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO strings (record_id, name, value, units, tags, list_pos) VALUES (?, ?, ?, ?, ?, ?)`,
				recordID, datum.Name(), v, units, tags, pos); err != nil {
				break
			}
		}
	}
	if err != nil {
		return fmt.Errorf("insert datum %q: %w", datum.Name(), err)
	}
	return nil
}

// GetRecord reconstructs the record with the given global id from its
// stored raw JSON.
func (s *Store) GetRecord(ctx context.Context, id string) (model.Record, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT raw FROM records WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("select record %q: %w", id, err)
	}
	return s.loader.Load(json.RawMessage(raw))
}

// RecordsOfType returns records carrying the exact type tag in ingestion
// order.
func (s *Store) RecordsOfType(ctx context.Context, recordType string) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT raw FROM records WHERE type = ? ORDER BY rowid`, recordType)
	if err != nil {
		return nil, fmt.Errorf("select records of type %q: %w", recordType, err)
	}
	defer func() { _ = rows.Close() }()
	var out []model.Record
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		record, err := s.loader.Load(json.RawMessage(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// RecordsWithFileURI returns ids of records referencing a file whose URI
// matches the pattern; "%" engages the SQL LIKE wildcard.
func (s *Store) RecordsWithFileURI(ctx context.Context, uriPattern string) ([]string, error) {
	stmt := `SELECT DISTINCT f.record_id FROM files f JOIN records r ON r.id = f.record_id WHERE f.uri = ? ORDER BY r.rowid`
	if strings.Contains(uriPattern, "%") {
		stmt = `SELECT DISTINCT f.record_id FROM files f JOIN records r ON r.id = f.record_id WHERE f.uri LIKE ? ORDER BY r.rowid`
	}
	return s.queryIDs(ctx, stmt, uriPattern)
}

// RecordsMatching evaluates each criterion as a SQL query and intersects
// the id sets, returning ids in ingestion order.
func (s *Store) RecordsMatching(ctx context.Context, criteria []query.Criterion) ([]string, error) {
	if len(criteria) == 0 {
		return s.queryIDs(ctx, `SELECT id FROM records ORDER BY rowid`)
	}
	var matched map[string]struct{}
	for _, c := range criteria {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		ids, err := s.idsForCriterion(ctx, c)
		if err != nil {
			return nil, err
		}
		if matched == nil {
			matched = ids
			continue
		}
		for id := range matched {
			if _, ok := ids[id]; !ok {
				delete(matched, id)
			}
		}
		if len(matched) == 0 {
			return nil, nil
		}
	}
	return s.orderIDs(ctx, matched)
}

func (s *Store) idsForCriterion(ctx context.Context, c query.Criterion) (map[string]struct{}, error) {
	switch {
	case c.Scalar != nil:
		stmt, args := rangeQuery("scalars", c.Name, scalarBounds(*c.Scalar))
		return s.queryIDSet(ctx, stmt, args...)
	case c.Text != nil:
		stmt, args := rangeQuery("strings", c.Name, stringBounds(*c.Text))
		return s.queryIDSet(ctx, stmt, args...)
	case c.ScalarList != nil:
		args := dedupeValues(c.ScalarList.Values)
		stmt := listQuery("scalars", c.ScalarList.Predicate, len(args))
		return s.queryIDSet(ctx, stmt, append([]any{c.Name}, args...)...)
	case c.TextList != nil:
		args := dedupeValues(c.TextList.Values)
		stmt := listQuery("strings", c.TextList.Predicate, len(args))
		return s.queryIDSet(ctx, stmt, append([]any{c.Name}, args...)...)
	default:
		return nil, fmt.Errorf("criterion %q: no condition set", c.Name)
	}
}

// dedupeValues drops repeated wanted values so the distinct-count the
// compiled predicates compare against stays duplicate-insensitive.
func dedupeValues[T comparable](values []T) []any {
	seen := make(map[T]struct{}, len(values))
	out := make([]any, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// bound is one half of a range condition compiled to SQL.
type bound struct {
	op    string
	value any
}

func scalarBounds(r query.ScalarRange) []bound {
	var out []bound
	if r.Min != nil {
		out = append(out, bound{op: cmpOp(">", r.MinInclusive), value: *r.Min})
	}
	if r.Max != nil {
		out = append(out, bound{op: cmpOp("<", r.MaxInclusive), value: *r.Max})
	}
	return out
}

func stringBounds(r query.StringRange) []bound {
	var out []bound
	if r.HasMin {
		out = append(out, bound{op: cmpOp(">", r.MinInclusive), value: r.Min})
	}
	if r.HasMax {
		out = append(out, bound{op: cmpOp("<", r.MaxInclusive), value: r.Max})
	}
	return out
}

func cmpOp(base string, inclusive bool) string {
	if inclusive {
		return base + "="
	}
	return base
}

func rangeQuery(table, name string, bounds []bound) (string, []any) {
	var sb strings.Builder
	args := []any{name}
	fmt.Fprintf(&sb, `SELECT DISTINCT record_id FROM %s WHERE name = ? AND list_pos IS NULL`, table)
	for _, b := range bounds {
		fmt.Fprintf(&sb, ` AND value %s ?`, b.op)
		args = append(args, b.value)
	}
	return sb.String(), args
}

// listQuery compiles a set-membership predicate over per-element rows.
// Distinct counts make the predicates order- and duplicate-insensitive.
func listQuery(table string, p query.ListPredicate, n int) string {
	in := strings.TrimSuffix(strings.Repeat("?,", n), ",")
	switch p {
	case query.HasAny:
		return fmt.Sprintf(
			`SELECT DISTINCT record_id FROM %s WHERE name = ? AND list_pos IS NOT NULL AND value IN (%s)`,
			table, in)
	case query.HasAll:
		return fmt.Sprintf(
			`SELECT record_id FROM %s WHERE name = ? AND list_pos IS NOT NULL GROUP BY record_id
			 HAVING COUNT(DISTINCT CASE WHEN value IN (%s) THEN value END) = %d`,
			table, in, n)
	case query.HasOnly:
		return fmt.Sprintf(
			`SELECT record_id FROM %s WHERE name = ? AND list_pos IS NOT NULL GROUP BY record_id
			 HAVING COUNT(DISTINCT CASE WHEN value IN (%s) THEN value END) = %d
			 AND COUNT(CASE WHEN value NOT IN (%s) THEN 1 END) = 0`,
			table, in, n, in)
	default:
		return ""
	}
}

// Relationships returns stored relationships filtered by subject,
// predicate, and object; empty strings are wildcards.
func (s *Store) Relationships(ctx context.Context, subject, predicate, object string) ([]model.Relationship, error) {
	stmt := `SELECT subject, predicate, object FROM relationships`
	var clauses []string
	var args []any
	if subject != "" {
		clauses = append(clauses, `subject = ?`)
		args = append(args, subject)
	}
	if predicate != "" {
		clauses = append(clauses, `predicate = ?`)
		args = append(args, predicate)
	}
	if object != "" {
		clauses = append(clauses, `object = ?`)
		args = append(args, object)
	}
	if len(clauses) > 0 {
		stmt += ` WHERE ` + strings.Join(clauses, ` AND `)
	}
	stmt += ` ORDER BY rowid`
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select relationships: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []model.Relationship
	for rows.Next() {
		var subj, pred, obj string
		if err := rows.Scan(&subj, &pred, &obj); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		out = append(out, model.NewRelationship(model.GlobalID(subj), pred, model.GlobalID(obj)))
	}
	return out, rows.Err()
}

// ExportDocument assembles a document from the records with the given ids
// plus every stored relationship touching any of them.
func (s *Store) ExportDocument(ctx context.Context, ids []string) (*model.Document, error) {
	doc := model.NewDocument()
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		record, err := s.GetRecord(ctx, id)
		if err != nil {
			return nil, err
		}
		wanted[id] = struct{}{}
		doc.AddRecord(record)
	}
	rels, err := s.Relationships(ctx, "", "", "")
	if err != nil {
		return nil, err
	}
	for _, rel := range rels {
		_, subjectIn := wanted[rel.Subject().Value()]
		_, objectIn := wanted[rel.Object().Value()]
		if subjectIn || objectIn {
			doc.AddRelationship(rel)
		}
	}
	return doc, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) queryIDs(ctx context.Context, stmt string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) queryIDSet(ctx context.Context, stmt string, args ...any) (map[string]struct{}, error) {
	ids, err := s.queryIDs(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// orderIDs returns the matched ids in record ingestion order.
func (s *Store) orderIDs(ctx context.Context, matched map[string]struct{}) ([]string, error) {
	if len(matched) == 0 {
		return nil, nil
	}
	all, err := s.queryIDs(ctx, `SELECT id FROM records ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, id := range all {
		if _, ok := matched[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func tagsJSON(tags []string) (any, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("serialize tags: %w", err)
	}
	return string(raw), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
