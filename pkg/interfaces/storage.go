package interfaces

import (
	"context"

	"github.com/inferloop/mcmc/pkg/models"
)

// TraceStore persists run reports
type TraceStore interface {
	// Name returns the storage backend name
	Name() string

	// Save stores report under report.ID, replacing any previous version
	Save(ctx context.Context, report *models.RunReport) error

	// Load returns the report stored under id
	Load(ctx context.Context, id string) (*models.RunReport, error)

	// Delete removes the report stored under id
	Delete(ctx context.Context, id string) error

	// List returns the ids of all stored reports
	List(ctx context.Context) ([]string, error)

	// Ping checks that the backend is reachable
	Ping(ctx context.Context) error

	// Close releases backend resources
	Close() error
}
