package pipeline

import (
	"bytes"
	"io"
	"os"

	"github.com/joseph-ayodele/invoice-entities/constants"
	"github.com/joseph-ayodele/invoice-entities/internal/llm"
)

// Document is one uploaded artifact. Filename is untrusted; Content is read
// once and closed afterwards if it is an io.Closer.
type Document struct {
	Filename string
	Content  io.Reader
}

// BytesDocument wraps in-memory content.
func BytesDocument(name string, b []byte) Document {
	return Document{Filename: name, Content: bytes.NewReader(b)}
}

// FileDocument opens path lazily on first read, so large directories do not
// hold a descriptor per file.
func FileDocument(name, path string) Document {
	return Document{Filename: name, Content: &lazyFile{path: path}}
}

type lazyFile struct {
	path string
	f    *os.File
}

func (l *lazyFile) Read(p []byte) (int, error) {
	if l.f == nil {
		f, err := os.Open(l.path)
		if err != nil {
			return 0, err
		}
		l.f = f
	}
	return l.f.Read(p)
}

func (l *lazyFile) Close() error {
	if l.f == nil {
		return nil
	}
	return l.f.Close()
}

// Record is a document that reached PERSISTED.
type Record struct {
	Filename string
	Entities llm.Result
}

// Item is the outcome of one document, in input order.
type Item struct {
	Index       int
	Filename    string // sanitized; the raw name when sanitizing left nothing
	DocID       string
	Fingerprint string
	Format      constants.Format
	Status      constants.DocStatus
	Record      *Record
	Err         error
}

// Records returns the persisted records in input order.
func Records(items []Item) []Record {
	var out []Record
	for _, it := range items {
		if it.Status == constants.DocStatusPersisted && it.Record != nil {
			out = append(out, *it.Record)
		}
	}
	return out
}
