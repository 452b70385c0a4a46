package model

// ResolveIdentifiers rewrites every occurrence of a local identifier in
// the document to the global identifier assigned by a store. The mapping
// holds one entry per distinct local identifier value used as a record's
// own id; record identifiers and both relationship endpoints are resolved
// independently against it.
//
// The rewrite is all-or-nothing: the document is first validated and left
// untouched if any local identifier (on a record or a relationship
// endpoint) is missing from the mapping, in which case an
// UnresolvedIdentifierError for the first such occurrence is returned.
// Global identifiers are never looked up, so invoking the method again
// with the same mapping after a successful pass is a no-op.
func (d *Document) ResolveIdentifiers(assigned map[string]string) error {
	for _, record := range d.records {
		if id := record.ID(); id.IsLocal() {
			if _, ok := assigned[id.Value()]; !ok {
				return UnresolvedIdentifierError{Where: "record", Value: id.Value()}
			}
		}
	}
	for _, rel := range d.relationships {
		if subject := rel.Subject(); subject.IsLocal() {
			if _, ok := assigned[subject.Value()]; !ok {
				return UnresolvedIdentifierError{Where: "relationship subject", Value: subject.Value()}
			}
		}
		if object := rel.Object(); object.IsLocal() {
			if _, ok := assigned[object.Value()]; !ok {
				return UnresolvedIdentifierError{Where: "relationship object", Value: object.Value()}
			}
		}
	}

	for _, record := range d.records {
		if id := record.ID(); id.IsLocal() {
			record.setID(GlobalID(assigned[id.Value()]))
		}
	}
	for i, rel := range d.relationships {
		subject := rel.Subject()
		if subject.IsLocal() {
			subject = GlobalID(assigned[subject.Value()])
		}
		object := rel.Object()
		if object.IsLocal() {
			object = GlobalID(assigned[object.Value()])
		}
		d.relationships[i] = NewRelationship(subject, rel.Predicate(), object)
	}
	return nil
}

// LocalIdentifiers returns the distinct local identifier values used as
// record ids, in document order. Stores use this to build the resolution
// mapping before ingestion.
func (d *Document) LocalIdentifiers() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, record := range d.records {
		if id := record.ID(); id.IsLocal() {
			if _, ok := seen[id.Value()]; !ok {
				seen[id.Value()] = struct{}{}
				out = append(out, id.Value())
			}
		}
	}
	return out
}
