package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/models"
)

// MemoryStorage keeps reports in process. Reports are stored as JSON so
// callers never share mutable state with the store.
type MemoryStorage struct {
	mu      sync.RWMutex
	reports map[string][]byte
}

// NewMemoryStorage creates an empty store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{reports: make(map[string][]byte)}
}

// Name returns the backend name
func (m *MemoryStorage) Name() string {
	return "memory"
}

// Save stores report under report.ID
func (m *MemoryStorage) Save(ctx context.Context, report *models.RunReport) error {
	if report == nil || report.ID == "" {
		return errors.NewConfigurationError(errors.CodeInvalidInput, "report with an id is required")
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed, "Failed to serialize report")
	}

	m.mu.Lock()
	m.reports[report.ID] = payload
	m.mu.Unlock()
	return nil
}

// Load returns a copy of the report stored under id
func (m *MemoryStorage) Load(ctx context.Context, id string) (*models.RunReport, error) {
	m.mu.RLock()
	payload, ok := m.reports[id]
	m.mu.RUnlock()

	if !ok {
		return nil, errors.NewNotFoundError("run", id)
	}

	var report models.RunReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed, "Failed to deserialize report")
	}
	return &report, nil
}

// Delete removes the report stored under id
func (m *MemoryStorage) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.reports[id]; !ok {
		return errors.NewNotFoundError("run", id)
	}
	delete(m.reports, id)
	return nil
}

// List returns the stored ids, sorted
func (m *MemoryStorage) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.reports))
	for id := range m.reports {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Ping always succeeds
func (m *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Close drops every stored report
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	m.reports = make(map[string][]byte)
	m.mu.Unlock()
	return nil
}
