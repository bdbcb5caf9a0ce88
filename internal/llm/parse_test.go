package llm

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/invoice-entities/constants"
)

const fullJSON = `{"Address":"1 Main St","Bill To":"Jane Doe","Company Name":"ACME","Email":"Not found",` +
	`"Invoice":"INV-001","Invoice Date":"2024-01-02","Mobile No":"Not found","Total Amount":"$10.00"}`

func TestSliceJSONObject(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"prefix prose", "Here you go: " + fullJSON, fullJSON},
		{"prefix and suffix", "Sure!\n```json\n" + fullJSON + "\n```\nAnything else?", fullJSON},
		{"no braces", "I could not find anything.", "I could not find anything."},
		{"only opening", "{ nope", "{ nope"},
		{"closing before opening", "} weird {", "} weird {"},
		{"nested kept whole", `x {"a":{"b":1}} y`, `{"a":{"b":1}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SliceJSONObject(tc.in); got != tc.want {
				t.Fatalf("SliceJSONObject(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseResponse_RoundTripWithPrefix(t *testing.T) {
	res, notes := ParseResponse("Here you go: " + fullJSON)
	if notes.ParseErr != nil || notes.SchemaErr != nil {
		t.Fatalf("unexpected notes: %+v", notes)
	}
	if !res.IsStructured() {
		t.Fatalf("kind = %v", res.Kind())
	}
	want := FieldMap{
		"Address": "1 Main St", "Bill To": "Jane Doe", "Company Name": "ACME", "Email": "Not found",
		"Invoice": "INV-001", "Invoice Date": "2024-01-02", "Mobile No": "Not found", "Total Amount": "$10.00",
	}
	if diff := cmp.Diff(want, res.Fields()); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestParseResponse_ProseOnlyIsUnstructured(t *testing.T) {
	reply := "  I'm sorry, the document does not look like an invoice.\n"
	res, notes := ParseResponse(reply)
	if notes.ParseErr == nil {
		t.Fatal("expected a parse error note")
	}
	if res.Kind() != KindUnstructured {
		t.Fatalf("kind = %v", res.Kind())
	}
	if diff := cmp.Diff(map[string]string{constants.RawResponseKey: reply}, res.Entities()); diff != "" {
		t.Fatalf("entities mismatch (-want +got):\n%s", diff)
	}
}

func TestParseResponse_MalformedKeepsFullReply(t *testing.T) {
	reply := `Result: {"Address": "1 Main St", "Invoice": } trailing`
	res, _ := ParseResponse(reply)
	if res.IsStructured() || res.Raw() != reply {
		t.Fatalf("want Unstructured with the full reply, got %v %q", res.Kind(), res.Raw())
	}
}

func TestParseResponse_NonObjectJSON(t *testing.T) {
	for _, reply := range []string{"null", "42", `["a","b"]`, `{"a":1} {"b":2}`} {
		res, notes := ParseResponse(reply)
		if res.IsStructured() || notes.ParseErr == nil {
			t.Errorf("%q: want Unstructured, got %v", reply, res.Kind())
		}
	}
}

func TestParseResponse_FillsAndDrops(t *testing.T) {
	reply := `{"Invoice":"INV-9","Email":null,"Address":"  ","Total Amount":12.5,` +
		`"invoice_date":"2024-03-01","Mobile No":5551234,"Notes":"extra","invoice":"dup"}`
	res, notes := ParseResponse(reply)
	if notes.SchemaErr == nil {
		t.Fatal("schema drift should be noted")
	}
	want := FieldMap{
		"Address":      constants.NotFound,
		"Bill To":      constants.NotFound,
		"Company Name": constants.NotFound,
		"Email":        constants.NotFound,
		"Invoice":      "INV-9",
		"Invoice Date": "2024-03-01",
		"Mobile No":    "5551234",
		"Total Amount": "12.5",
	}
	if diff := cmp.Diff(want, res.Fields()); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Notes", "invoice"}, notes.Dropped); diff != "" {
		t.Fatalf("dropped mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Address", "Bill To", "Company Name", "Email"}, notes.Filled); diff != "" {
		t.Fatalf("filled mismatch (-want +got):\n%s", diff)
	}
}

// Every reply yields either all eight fields or exactly the raw-response key.
func TestParseResponse_ShapeInvariant(t *testing.T) {
	replies := []string{
		fullJSON,
		"{}",
		`{"Invoice":"x"}`,
		`{"Foo":"bar","Baz":[1,2]}`,
		"no json here",
		"{broken",
		"",
		"```json\n" + fullJSON + "\n```",
		`{"Invoice":{"number":"A-1"}}`,
	}
	for _, reply := range replies {
		res, _ := ParseResponse(reply)
		got := res.Entities()
		switch res.Kind() {
		case KindStructured:
			if len(got) != len(constants.FieldNames()) {
				t.Errorf("%q: %d keys", reply, len(got))
			}
			for _, name := range constants.FieldNames() {
				if v, ok := got[name]; !ok || v == "" {
					t.Errorf("%q: field %q = %q, %v", reply, name, v, ok)
				}
			}
		case KindUnstructured:
			if _, ok := got[constants.RawResponseKey]; !ok || len(got) != 1 {
				t.Errorf("%q: bad raw shape %v", reply, got)
			}
		default:
			t.Errorf("%q: zero kind", reply)
		}
	}
}

func TestParseResponse_NestedValueRenderedAsJSON(t *testing.T) {
	res, _ := ParseResponse(`{"Invoice":{"number":"A-1"}}`)
	if got := res.Fields()["Invoice"]; !strings.Contains(got, `"number":"A-1"`) {
		t.Fatalf("Invoice = %q", got)
	}
}
