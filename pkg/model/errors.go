package model

import "fmt"

// SchemaViolationError reports JSON input that does not conform to the
// document schema: a missing required field, a field with the wrong shape,
// or a structural invariant violation such as a mixed-type list. Field
// always names the offending JSON key.
type SchemaViolationError struct {
	Entity string
	Field  string
	Reason string
}

func (e SchemaViolationError) Error() string {
	return fmt.Sprintf("%s: field %q %s", e.Entity, e.Field, e.Reason)
}

// NotFoundError reports a lookup for a global record id the store does
// not hold.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("record %q not found", e.ID)
}

// UnresolvedIdentifierError reports a local identifier that has no entry in
// the local-to-global mapping supplied to Document.ResolveIdentifiers.
// Where names the occurrence (record, relationship subject, relationship
// object) and Value is the unmapped local identifier value.
type UnresolvedIdentifierError struct {
	Where string
	Value string
}

func (e UnresolvedIdentifierError) Error() string {
	return fmt.Sprintf("%s references local identifier %q with no global mapping", e.Where, e.Value)
}
