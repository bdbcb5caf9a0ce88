package llm

import (
	"encoding/json"
	"maps"

	"github.com/joseph-ayodele/invoice-entities/constants"
)

// FieldMap holds one value per field name.
type FieldMap map[string]string

type Kind int

const (
	KindStructured Kind = iota + 1
	KindUnstructured
)

func (k Kind) String() string {
	switch k {
	case KindStructured:
		return "structured"
	case KindUnstructured:
		return "unstructured"
	}
	return "unknown"
}

// Result is either Structured (all eight fields present) or Unstructured (the
// model reply could not be parsed and is kept verbatim). The zero value is
// neither and is only returned alongside an error.
type Result struct {
	kind   Kind
	fields FieldMap
	raw    string
}

// Structured keeps the known fields of m and fills the rest with constants.NotFound.
func Structured(m FieldMap) Result {
	fields := make(FieldMap, len(constants.FieldNames()))
	for _, name := range constants.FieldNames() {
		v, ok := m[name]
		if !ok || v == "" {
			v = constants.NotFound
		}
		fields[name] = v
	}
	return Result{kind: KindStructured, fields: fields}
}

// Unstructured wraps a reply that is not a JSON object.
func Unstructured(raw string) Result {
	return Result{kind: KindUnstructured, raw: raw}
}

func (r Result) Kind() Kind         { return r.kind }
func (r Result) IsStructured() bool { return r.kind == KindStructured }

// Fields returns a copy of the field map, or nil for an Unstructured result.
func (r Result) Fields() FieldMap {
	if r.kind != KindStructured {
		return nil
	}
	return maps.Clone(r.fields)
}

// Raw returns the unparsed reply of an Unstructured result.
func (r Result) Raw() string { return r.raw }

// Value is the persisted value of one field; Unstructured results have none.
func (r Result) Value(f constants.Field) string {
	if v, ok := r.fields[string(f)]; ok && r.kind == KindStructured {
		return v
	}
	return constants.NotFound
}

// Entities is the response shape: the eight fields, or {"Raw Response": raw}.
func (r Result) Entities() map[string]string {
	switch r.kind {
	case KindStructured:
		return map[string]string(r.Fields())
	case KindUnstructured:
		return map[string]string{constants.RawResponseKey: r.raw}
	}
	return map[string]string{}
}

// Row is filename followed by the field values in column order.
func (r Result) Row(filename string) []string {
	row := make([]string, 0, len(constants.FieldNames())+1)
	row = append(row, filename)
	for _, f := range constants.Fields() {
		row = append(row, r.Value(f))
	}
	return row
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Entities())
}
