package constants

import (
	"strings"
)

type Field string

const (
	FieldAddress     Field = "Address"
	FieldBillTo      Field = "Bill To"
	FieldCompanyName Field = "Company Name"
	FieldEmail       Field = "Email"
	FieldInvoice     Field = "Invoice"
	FieldInvoiceDate Field = "Invoice Date"
	FieldMobileNo    Field = "Mobile No"
	FieldTotalAmount Field = "Total Amount"
)

// NotFound marks a field the model could not find. Persisted rows never carry "" or null.
const NotFound = "Not found"

// RawResponseKey is the single key of the map returned when the model reply is not JSON.
const RawResponseKey = "Raw Response"

// FilenameColumn heads the first column of every persisted row.
const FilenameColumn = "Filename"

var allFields = []Field{
	FieldAddress,
	FieldBillTo,
	FieldCompanyName,
	FieldEmail,
	FieldInvoice,
	FieldInvoiceDate,
	FieldMobileNo,
	FieldTotalAmount,
}

// Fields returns the closed field set in row order.
func Fields() []Field {
	out := make([]Field, len(allFields))
	copy(out, allFields)
	return out
}

func FieldNames() []string {
	result := make([]string, len(allFields))
	for i, f := range allFields {
		result[i] = string(f)
	}
	return result
}

// SheetHeader is the 9-column header shared by every sink.
func SheetHeader() []string {
	return append([]string{FilenameColumn}, FieldNames()...)
}

// CanonicalField maps a model-emitted key onto the field set, ignoring case and
// the separator style ("bill_to", "BILL-TO" and "Bill To" all match).
func CanonicalField(input string) (Field, bool) {
	normalized := squash(input)
	if normalized == "" {
		return "", false
	}
	for _, f := range allFields {
		if normalized == squash(string(f)) {
			return f, true
		}
	}
	return "", false
}

func squash(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "", ".", "").Replace(s)
}
