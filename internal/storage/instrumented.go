package storage

import (
	"context"
	"time"

	"github.com/inferloop/mcmc/pkg/interfaces"
	"github.com/inferloop/mcmc/pkg/models"
)

// OperationRecorder receives one observation per storage call
type OperationRecorder interface {
	RecordStorageOperation(backend, operation, status string, duration time.Duration)
}

// InstrumentedStore reports the outcome and latency of every call on the
// wrapped store.
type InstrumentedStore struct {
	interfaces.TraceStore
	recorder OperationRecorder
}

// Instrument wraps store. A nil recorder returns store unchanged.
func Instrument(store interfaces.TraceStore, recorder OperationRecorder) interfaces.TraceStore {
	if recorder == nil {
		return store
	}
	return &InstrumentedStore{TraceStore: store, recorder: recorder}
}

// Save records and delegates
func (s *InstrumentedStore) Save(ctx context.Context, report *models.RunReport) error {
	start := time.Now()
	err := s.TraceStore.Save(ctx, report)
	s.observe("save", start, err)
	return err
}

// Load records and delegates
func (s *InstrumentedStore) Load(ctx context.Context, id string) (*models.RunReport, error) {
	start := time.Now()
	report, err := s.TraceStore.Load(ctx, id)
	s.observe("load", start, err)
	return report, err
}

// Delete records and delegates
func (s *InstrumentedStore) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := s.TraceStore.Delete(ctx, id)
	s.observe("delete", start, err)
	return err
}

// List records and delegates
func (s *InstrumentedStore) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	ids, err := s.TraceStore.List(ctx)
	s.observe("list", start, err)
	return ids, err
}

func (s *InstrumentedStore) observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.recorder.RecordStorageOperation(s.Name(), operation, status, time.Since(start))
}
