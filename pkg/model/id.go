// Package model defines the core document model for simulation metadata:
// typed records, relationships between them, and the documents that
// aggregate both for JSON interchange with persistent stores.
package model

// IDScope distinguishes identifiers that are unique within a single
// document from identifiers that are unique across an entire store.
type IDScope int

// Identifier scopes. Local identifiers are placeholders chosen by the
// document author; a store replaces them with Global identifiers at
// ingestion time.
const (
	ScopeLocal IDScope = iota
	ScopeGlobal
)

// String returns the scope name used in logs and error messages.
func (s IDScope) String() string {
	switch s {
	case ScopeLocal:
		return "local"
	case ScopeGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// ID is an immutable identifier value tagged with its scope. Two IDs are
// equal when both value and scope match.
type ID struct {
	value string
	scope IDScope
}

// NewID constructs an identifier with the given value and scope.
func NewID(value string, scope IDScope) ID {
	return ID{value: value, scope: scope}
}

// LocalID constructs a document-local identifier.
func LocalID(value string) ID {
	return ID{value: value, scope: ScopeLocal}
}

// GlobalID constructs a store-global identifier.
func GlobalID(value string) ID {
	return ID{value: value, scope: ScopeGlobal}
}

// Value returns the identifier value.
func (id ID) Value() string { return id.value }

// Scope returns the identifier scope.
func (id ID) Scope() IDScope { return id.scope }

// IsLocal reports whether the identifier is document-local and therefore
// still pending resolution to a global identifier.
func (id ID) IsLocal() bool { return id.scope == ScopeLocal }

// IsZero reports whether the identifier carries no value.
func (id ID) IsZero() bool { return id.value == "" }

// String renders the identifier for logs and error messages.
func (id ID) String() string {
	return id.scope.String() + ":" + id.value
}
