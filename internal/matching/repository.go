package matching

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Repository is the aggregate-oriented facade over match suggestion
// storage. The backend is chosen at construction time and opaque to
// callers.
type Repository interface {
	Create(ctx context.Context, suggestion *MatchSuggestion) (*MatchSuggestion, error)
	Get(ctx context.Context, id uuid.UUID) (*MatchSuggestion, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*MatchSuggestion, error)
	FindByVolunteer(ctx context.Context, volunteerID string) ([]*MatchSuggestion, error)
	ListAll(ctx context.Context) ([]*MatchSuggestion, error)
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
