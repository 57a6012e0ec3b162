package applications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Repository is the aggregate-oriented facade over application storage.
// The backend is chosen at construction time and is opaque to callers.
type Repository interface {
	Create(ctx context.Context, application *Application) (*Application, error)
	Get(ctx context.Context, id uuid.UUID) (*Application, error)
	Update(ctx context.Context, application *Application) (*Application, error)
	FindByVolunteer(ctx context.Context, volunteerID string) ([]*Application, error)
	FindByOpportunity(ctx context.Context, opportunityID string) ([]*Application, error)
	ListAll(ctx context.Context) ([]*Application, error)
	HealthCheck(ctx context.Context) error
}

// Storage backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// StorageConfig selects and parameterizes the repository backend
// explicitly; nothing here is read from the environment.
type StorageConfig struct {
	Backend string
	DataDir string
	DB      *sql.DB
}

// NewRepository builds the repository for the configured backend.
func NewRepository(cfg StorageConfig) (Repository, error) {
	switch cfg.Backend {
	case BackendFile:
		return NewFileRepository(cfg.DataDir)
	case BackendPostgres:
		if cfg.DB == nil {
			return nil, errors.New("postgres backend requires a database connection")
		}
		return NewPostgresRepository(cfg.DB), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
	}
}
