package sink

import (
	"context"
	"slices"
	"sync"

	"github.com/joseph-ayodele/invoice-entities/constants"
)

// Memory keeps rows in process. Used by tests and dry runs.
type Memory struct {
	mu     sync.Mutex
	header []string
	rows   [][]string
	// FailOn makes AppendRow fail for rows whose filename matches.
	FailOn map[string]error
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) EnsureSchema(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.header == nil {
		m.header = constants.SheetHeader()
	}
	return nil
}

func (m *Memory) AppendRow(_ context.Context, row []string) error {
	if err := checkRow(row); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.FailOn[row[0]]; ok {
		return err
	}
	m.rows = append(m.rows, slices.Clone(row))
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Header() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.header)
}

func (m *Memory) Rows() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = slices.Clone(r)
	}
	return out
}
