package sheets

import (
	"context"
	"sync"
)

// MockWriter records exported reports for tests.
type MockWriter struct {
	WriteFunc      func(ctx context.Context, report Report) (string, error)
	Reports        []Report
	WriteCallCount int
	mu             sync.Mutex
}

// NewMockWriter creates a new mock writer returning the given spreadsheet id.
func NewMockWriter(spreadsheetID string) *MockWriter {
	return &MockWriter{
		WriteFunc: func(context.Context, Report) (string, error) {
			return spreadsheetID, nil
		},
	}
}

// Write records the report and delegates to WriteFunc.
func (m *MockWriter) Write(ctx context.Context, report Report) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCallCount++
	m.Reports = append(m.Reports, report)
	if m.WriteFunc == nil {
		return "", nil
	}
	return m.WriteFunc(ctx, report)
}

// SetWriteError makes subsequent writes fail with err.
func (m *MockWriter) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteFunc = func(context.Context, Report) (string, error) {
		return "", err
	}
}

// LastReport returns the most recent report, or false when Write was never called.
func (m *MockWriter) LastReport() (Report, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Reports) == 0 {
		return Report{}, false
	}
	return m.Reports[len(m.Reports)-1], true
}
