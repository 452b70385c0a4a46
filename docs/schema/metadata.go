// Package schema exposes the embedded canonical document schema for runtime use.
package schema

import (
	_ "embed"
	"encoding/json"
	"sync"
)

type schemaDoc struct {
	ID      string `json:"$id"`
	Title   string `json:"title"`
	Version string `json:"version"`
}

// Metadata captures the identifying fields of the canonical document schema.
type Metadata struct {
	ID      string
	Title   string
	Version string
}

// Canonical document schema embedded for accessing wire-format metadata.
//
//go:embed document.schema.json
var documentSchema []byte

var (
	metaOnce sync.Once
	meta     Metadata
	metaErr  error
)

// DocumentSchema returns the canonical JSON Schema for the document wire
// format (source of truth: docs/schema/document.schema.json).
func DocumentSchema() []byte {
	out := make([]byte, len(documentSchema))
	copy(out, documentSchema)
	return out
}

// DocumentSchemaMetadata returns the version, title and id declared in the
// canonical document schema.
func DocumentSchemaMetadata() (Metadata, error) {
	metaOnce.Do(func() {
		var doc schemaDoc
		metaErr = json.Unmarshal(documentSchema, &doc)
		if metaErr == nil {
			meta = Metadata{ID: doc.ID, Title: doc.Title, Version: doc.Version}
		}
	})
	return meta, metaErr
}
