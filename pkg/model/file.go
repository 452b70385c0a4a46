package model

import "encoding/json"

// File references an external artifact attached to a record: a URI plus an
// optional mimetype and tag list. A record holds its files as an ordered
// sequence; duplicates are not rejected.
type File struct {
	uri      string
	mimeType string
	tags     []string
}

// NewFile constructs a file reference for the given URI.
func NewFile(uri string) File {
	return File{uri: uri}
}

// URI returns the file URI.
func (f File) URI() string { return f.uri }

// MimeType returns the optional mimetype.
func (f File) MimeType() string { return f.mimeType }

// Tags returns a copy of the optional tag list.
func (f File) Tags() []string {
	return append([]string(nil), f.tags...)
}

// WithMimeType returns a copy of the file reference with the mimetype set.
func (f File) WithMimeType(mimeType string) File {
	f.mimeType = mimeType
	return f
}

// WithTags returns a copy of the file reference with the tag list set.
func (f File) WithTags(tags ...string) File {
	f.tags = append([]string(nil), tags...)
	return f
}

type fileJSON struct {
	URI      string   `json:"uri"`
	MimeType string   `json:"mimetype,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// MarshalJSON emits the file reference with empty optional fields omitted.
func (f File) MarshalJSON() ([]byte, error) {
	return json.Marshal(fileJSON{URI: f.uri, MimeType: f.mimeType, Tags: f.tags})
}

// UnmarshalJSON validates and decodes a file reference.
func (f *File) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return SchemaViolationError{Entity: "file", Field: "uri", Reason: "entry must be an object"}
	}
	uriRaw, ok := fields["uri"]
	if !ok {
		return SchemaViolationError{Entity: "file", Field: "uri", Reason: "is required"}
	}
	var parsed File
	if err := json.Unmarshal(uriRaw, &parsed.uri); err != nil {
		return SchemaViolationError{Entity: "file", Field: "uri", Reason: "must be a string"}
	}
	if mimeRaw, ok := fields["mimetype"]; ok {
		if err := json.Unmarshal(mimeRaw, &parsed.mimeType); err != nil {
			return SchemaViolationError{Entity: "file", Field: "mimetype", Reason: "must be a string"}
		}
	}
	if tagsRaw, ok := fields["tags"]; ok {
		if err := json.Unmarshal(tagsRaw, &parsed.tags); err != nil {
			return SchemaViolationError{Entity: "file", Field: "tags", Reason: "must be an array of strings"}
		}
	}
	*f = parsed
	return nil
}
