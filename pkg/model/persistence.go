package model

import (
	"context"

	"simcore/pkg/query"
)

// DataStore is the contract implemented by persistent backends. A store
// owns global identifier assignment: ingesting a document assigns a global
// id to every local record id, resolves all occurrences through
// Document.ResolveIdentifiers, and persists records and relationships
// atomically.
//
// Query methods returning identifier slices report store-global record
// ids. Lookup of a missing record returns NotFoundError.
type DataStore interface {
	// IngestDocument persists the document and returns the local-to-global
	// identifier mapping applied to it. The store takes ownership of the
	// document's records.
	IngestDocument(ctx context.Context, doc *Document) (map[string]string, error)
	// GetRecord reconstructs the record with the given global id through
	// the store's record loader.
	GetRecord(ctx context.Context, id string) (Record, error)
	// RecordsOfType returns all records carrying the exact type tag.
	RecordsOfType(ctx context.Context, recordType string) ([]Record, error)
	// RecordsWithFileURI returns ids of records referencing a file whose
	// URI matches the pattern; a trailing "%" acts as a wildcard.
	RecordsWithFileURI(ctx context.Context, uriPattern string) ([]string, error)
	// RecordsMatching returns ids of records whose data satisfies every
	// criterion (intersection semantics).
	RecordsMatching(ctx context.Context, criteria []query.Criterion) ([]string, error)
	// Relationships returns stored relationships filtered by subject,
	// predicate, and object; an empty string leaves that position
	// unconstrained.
	Relationships(ctx context.Context, subject, predicate, object string) ([]Relationship, error)
	// ExportDocument assembles a document holding the records with the
	// given ids and every stored relationship touching any of them.
	ExportDocument(ctx context.Context, ids []string) (*Document, error)
	Close() error
}
