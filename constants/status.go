package constants

// DocStatus is the per-document processing state.
type DocStatus string

// Stable values (these exact strings appear in responses and reports).
const (
	DocStatusReceived        DocStatus = "RECEIVED"
	DocStatusTextExtracted   DocStatus = "TEXT_EXTRACTED"
	DocStatusFieldsExtracted DocStatus = "FIELDS_EXTRACTED"
	DocStatusPersisted       DocStatus = "PERSISTED" // terminal success
	DocStatusSkipped         DocStatus = "SKIPPED"   // empty name or unsupported format
	DocStatusFailed          DocStatus = "FAILED"    // terminal failure
)
