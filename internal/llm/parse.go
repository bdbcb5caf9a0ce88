package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/invoice-entities/constants"
)

// ParseNotes records what ParseResponse had to do to produce its Result.
type ParseNotes struct {
	ParseErr  error    // reply was not a JSON object; result is Unstructured
	SchemaErr error    // object did not match the closed field schema as emitted
	Dropped   []string // keys that are not fields
	Filled    []string // fields absent, null or blank in the reply
}

// SliceJSONObject keeps the text from the first '{' to the last '}' inclusive.
// If there is no such pair the input is returned unchanged. It does not try to
// find a balanced object; stray braces outside the intended one will confuse it.
func SliceJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return s
	}
	end := strings.LastIndex(s, "}")
	if end < start {
		return s
	}
	return s[start : end+1]
}

// ParseResponse turns a model reply into a Result. It never fails: anything
// that is not a JSON object comes back as Unstructured(reply).
func ParseResponse(reply string) (Result, ParseNotes) {
	var notes ParseNotes

	obj, err := decodeObject(SliceJSONObject(strings.TrimSpace(reply)))
	if err != nil {
		notes.ParseErr = err
		return Unstructured(reply), notes
	}
	if err := ValidateFieldMap(obj); err != nil {
		notes.SchemaErr = err
	}

	fields := make(FieldMap, len(obj))
	put := func(name string, raw any) {
		v := stringify(raw)
		if s, _ := raw.(string); v == constants.NotFound && s != constants.NotFound {
			notes.Filled = append(notes.Filled, name)
		}
		fields[name] = v
	}

	var loose []string
	for k, v := range obj {
		if f, ok := constants.CanonicalField(k); ok && string(f) == k {
			put(k, v)
			continue
		}
		loose = append(loose, k)
	}
	// near-miss keys ("invoice_date") only fill fields the exact keys left empty
	sort.Strings(loose)
	for _, k := range loose {
		f, ok := constants.CanonicalField(k)
		if !ok {
			notes.Dropped = append(notes.Dropped, k)
			continue
		}
		if _, taken := fields[string(f)]; taken {
			notes.Dropped = append(notes.Dropped, k)
			continue
		}
		put(string(f), obj[k])
	}
	for _, name := range constants.FieldNames() {
		if _, ok := fields[name]; !ok {
			notes.Filled = append(notes.Filled, name)
		}
	}
	sort.Strings(notes.Filled)
	return Structured(fields), notes
}

func decodeObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON object")
	}
	if obj == nil {
		return nil, fmt.Errorf("reply is not a JSON object")
	}
	return obj, nil
}

// stringify renders a JSON value as the cell text. Null and blank become the sentinel.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return constants.NotFound
	case string:
		if strings.TrimSpace(t) == "" {
			return constants.NotFound
		}
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
