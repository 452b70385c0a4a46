package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DatumKind identifies the payload shape carried by a Datum.
type DatumKind int

// Datum payload kinds. List payloads are homogeneous: every element is a
// scalar, or every element is a string, never a mix.
const (
	KindScalar DatumKind = iota
	KindText
	KindScalarList
	KindTextList
)

// String returns the kind name used in logs and error messages.
func (k DatumKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindText:
		return "text"
	case KindScalarList:
		return "scalar_list"
	case KindTextList:
		return "text_list"
	default:
		return "unknown"
	}
}

// Datum is a named measurement attached to a record: a scalar or string
// payload, or a homogeneous list of either, plus optional units and tags.
// Heterogeneous data belongs in the record's user-defined payload instead.
type Datum struct {
	name     string
	kind     DatumKind
	scalar   float64
	text     string
	scalars  []float64
	texts    []string
	units    string
	tags     []string
}

// NewScalar constructs a scalar datum.
func NewScalar(name string, value float64) Datum {
	return Datum{name: name, kind: KindScalar, scalar: value}
}

// NewText constructs a string datum.
func NewText(name, value string) Datum {
	return Datum{name: name, kind: KindText, text: value}
}

// NewScalarList constructs a datum holding an ordered list of scalars.
func NewScalarList(name string, values []float64) Datum {
	return Datum{name: name, kind: KindScalarList, scalars: append([]float64(nil), values...)}
}

// NewTextList constructs a datum holding an ordered list of strings.
func NewTextList(name string, values []string) Datum {
	return Datum{name: name, kind: KindTextList, texts: append([]string(nil), values...)}
}

// Name returns the datum name.
func (d Datum) Name() string { return d.name }

// Kind returns the payload kind.
func (d Datum) Kind() DatumKind { return d.kind }

// Scalar returns the scalar payload. Valid only for KindScalar.
func (d Datum) Scalar() float64 { return d.scalar }

// Text returns the string payload. Valid only for KindText.
func (d Datum) Text() string { return d.text }

// ScalarList returns a copy of the scalar list payload.
func (d Datum) ScalarList() []float64 {
	return append([]float64(nil), d.scalars...)
}

// TextList returns a copy of the string list payload.
func (d Datum) TextList() []string {
	return append([]string(nil), d.texts...)
}

// Units returns the optional units string.
func (d Datum) Units() string { return d.units }

// Tags returns a copy of the optional tag list.
func (d Datum) Tags() []string {
	return append([]string(nil), d.tags...)
}

// WithUnits returns a copy of the datum with the units set.
func (d Datum) WithUnits(units string) Datum {
	d.units = units
	return d
}

// WithTags returns a copy of the datum with the tag list set.
func (d Datum) WithTags(tags ...string) Datum {
	d.tags = append([]string(nil), tags...)
	return d
}

// payloadValue returns the JSON representation of the datum payload.
func (d Datum) payloadValue() any {
	switch d.kind {
	case KindScalar:
		return d.scalar
	case KindText:
		return d.text
	case KindScalarList:
		if d.scalars == nil {
			return []float64{}
		}
		return d.scalars
	case KindTextList:
		if d.texts == nil {
			return []string{}
		}
		return d.texts
	default:
		return nil
	}
}

// datumJSON is the wire shape of a single datum inside a record's data
// object, keyed externally by the datum name.
type datumJSON struct {
	Value any      `json:"value"`
	Units string   `json:"units,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// MarshalJSON emits the datum payload with empty optional fields omitted.
func (d Datum) MarshalJSON() ([]byte, error) {
	return json.Marshal(datumJSON{Value: d.payloadValue(), Units: d.units, Tags: d.tags})
}

// datumFromJSON validates and decodes one named datum entry.
func datumFromJSON(name string, raw json.RawMessage) (Datum, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Datum{}, SchemaViolationError{Entity: "datum", Field: name, Reason: "must be an object"}
	}
	valueRaw, ok := fields["value"]
	if !ok {
		return Datum{}, SchemaViolationError{Entity: "datum", Field: "value", Reason: "is required"}
	}
	datum, err := datumFromValue(name, valueRaw)
	if err != nil {
		return Datum{}, err
	}
	if unitsRaw, ok := fields["units"]; ok {
		if err := json.Unmarshal(unitsRaw, &datum.units); err != nil {
			return Datum{}, SchemaViolationError{Entity: "datum", Field: "units", Reason: "must be a string"}
		}
	}
	if tagsRaw, ok := fields["tags"]; ok {
		if err := json.Unmarshal(tagsRaw, &datum.tags); err != nil {
			return Datum{}, SchemaViolationError{Entity: "datum", Field: "tags", Reason: "must be an array of strings"}
		}
	}
	return datum, nil
}

// datumFromValue decodes the payload, enforcing list homogeneity.
func datumFromValue(name string, raw json.RawMessage) (Datum, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return Datum{}, SchemaViolationError{Entity: "datum", Field: "value", Reason: "is not valid JSON"}
	}
	switch v := value.(type) {
	case float64:
		return NewScalar(name, v), nil
	case string:
		return NewText(name, v), nil
	case []any:
		return datumFromList(name, v)
	default:
		return Datum{}, SchemaViolationError{
			Entity: "datum",
			Field:  "value",
			Reason: fmt.Sprintf("must be a scalar, string, or homogeneous list, got %T", value),
		}
	}
}

func datumFromList(name string, entries []any) (Datum, error) {
	scalars := make([]float64, 0, len(entries))
	texts := make([]string, 0, len(entries))
	for i, entry := range entries {
		switch e := entry.(type) {
		case float64:
			scalars = append(scalars, e)
		case string:
			texts = append(texts, e)
		default:
			return Datum{}, SchemaViolationError{
				Entity: "datum",
				Field:  "value",
				Reason: fmt.Sprintf("list entry %d is neither a scalar nor a string", i),
			}
		}
		if len(scalars) > 0 && len(texts) > 0 {
			return Datum{}, SchemaViolationError{
				Entity: "datum",
				Field:  "value",
				Reason: "list mixes scalar and string entries",
			}
		}
	}
	if len(texts) > 0 {
		return NewTextList(name, texts), nil
	}
	return NewScalarList(name, scalars), nil
}

// DataSet is an insertion-ordered collection of data keyed by name. Order
// is preserved through JSON round trips so serialization is deterministic.
type DataSet struct {
	names []string
	items map[string]Datum
}

// NewDataSet constructs an empty data set.
func NewDataSet() *DataSet {
	return &DataSet{items: make(map[string]Datum)}
}

// Set inserts or replaces the datum under its name. Replacing keeps the
// original insertion position. Data without a name are ignored.
func (s *DataSet) Set(d Datum) {
	if d.name == "" {
		return
	}
	if s.items == nil {
		s.items = make(map[string]Datum)
	}
	if _, exists := s.items[d.name]; !exists {
		s.names = append(s.names, d.name)
	}
	s.items[d.name] = d
}

// Get returns the datum stored under name.
func (s *DataSet) Get(name string) (Datum, bool) {
	if s == nil || s.items == nil {
		return Datum{}, false
	}
	d, ok := s.items[name]
	return d, ok
}

// Len returns the number of data in the set.
func (s *DataSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Names returns the datum names in insertion order.
func (s *DataSet) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.names...)
}

// Items returns the data in insertion order.
func (s *DataSet) Items() []Datum {
	if s == nil {
		return nil
	}
	out := make([]Datum, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, s.items[name])
	}
	return out
}

// MarshalJSON writes the data as a JSON object in insertion order.
func (s *DataSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range s.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		item, err := json.Marshal(s.items[name])
		if err != nil {
			return nil, err
		}
		buf.Write(item)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of named data, preserving the key
// order of the input document.
func (s *DataSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return SchemaViolationError{Entity: "record", Field: "data", Reason: "must be an object"}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return SchemaViolationError{Entity: "record", Field: "data", Reason: "must be an object"}
	}
	s.names = nil
	s.items = make(map[string]Datum)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return SchemaViolationError{Entity: "record", Field: "data", Reason: "must be an object"}
		}
		name, ok := keyTok.(string)
		if !ok {
			return SchemaViolationError{Entity: "record", Field: "data", Reason: "must be an object"}
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return SchemaViolationError{Entity: "datum", Field: name, Reason: "is not valid JSON"}
		}
		datum, err := datumFromJSON(name, raw)
		if err != nil {
			return err
		}
		s.Set(datum)
	}
	return nil
}
