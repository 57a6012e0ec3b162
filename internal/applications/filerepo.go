package applications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"seraaj/pkg/auditlog"
)

// FileRepository keeps applications in an in-memory cache rehydrated from
// a flat JSON file, rewritten after every mutation, with an idempotent
// dual-write to a JSONL audit log. It is safe for concurrent use within
// one process; no cross-process file locking is implemented.
type FileRepository struct {
	mu       sync.RWMutex
	cache    map[uuid.UUID]*Application
	dataFile string
	audit    *auditlog.Log
}

// NewFileRepository creates a file-backed repository rooted at dataDir.
func NewFileRepository(dataDir string) (*FileRepository, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	audit, err := auditlog.New(filepath.Join(dataDir, "application_events.jsonl"))
	if err != nil {
		return nil, err
	}

	r := &FileRepository{
		cache:    make(map[uuid.UUID]*Application),
		dataFile: filepath.Join(dataDir, "applications.json"),
		audit:    audit,
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRepository) load() error {
	data, err := os.ReadFile(r.dataFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read applications file: %w", err)
	}

	var items []*Application
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("parse applications file: %w", err)
	}
	for _, item := range items {
		r.cache[item.ID] = item
	}
	log.Printf("[INFO] loaded %d applications from %s", len(r.cache), r.dataFile)
	return nil
}

// save rewrites the whole data file. Caller must hold the write lock.
// Local disk I/O errors propagate without retry.
func (r *FileRepository) save() error {
	items := make([]*Application, 0, len(r.cache))
	for _, item := range r.cache {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID.String() < items[j].ID.String()
	})

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal applications: %w", err)
	}
	if err := os.WriteFile(r.dataFile, data, 0o644); err != nil {
		return fmt.Errorf("write applications file: %w", err)
	}
	return nil
}

func (r *FileRepository) Create(_ context.Context, application *Application) (*Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.cache[application.ID]; exists {
		return nil, fmt.Errorf("application %s: %w", application.ID, ErrAlreadyExists)
	}

	stored := *application
	r.cache[stored.ID] = &stored
	if err := r.save(); err != nil {
		delete(r.cache, stored.ID)
		return nil, err
	}

	if err := r.audit.Append(EventCreated, CreatedPayload{
		ApplicationID:  stored.ID,
		VolunteerID:    stored.VolunteerID,
		OpportunityID:  stored.OpportunityID,
		OrganizationID: stored.OrganizationID,
		Status:         stored.Status,
		CoverLetter:    stored.CoverLetter,
		SubmittedAt:    stored.SubmittedAt,
	}); err != nil {
		return nil, err
	}

	result := stored
	return &result, nil
}

func (r *FileRepository) Get(_ context.Context, id uuid.UUID) (*Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	application, ok := r.cache[id]
	if !ok {
		return nil, fmt.Errorf("application %s: %w", id, ErrNotFound)
	}
	result := *application
	return &result, nil
}

func (r *FileRepository) Update(_ context.Context, application *Application) (*Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous, ok := r.cache[application.ID]
	if !ok {
		return nil, fmt.Errorf("application %s: %w", application.ID, ErrNotFound)
	}
	previousStatus := previous.Status

	stored := *application
	stored.UpdatedAt = time.Now().UTC()
	r.cache[stored.ID] = &stored
	if err := r.save(); err != nil {
		r.cache[stored.ID] = previous
		return nil, err
	}

	if previousStatus != stored.Status {
		if err := r.audit.Append(EventStateChanged, StateChangedPayload{
			ApplicationID: stored.ID,
			VolunteerID:   stored.VolunteerID,
			OpportunityID: stored.OpportunityID,
			PreviousState: previousStatus,
			NewState:      stored.Status,
			Timestamp:     stored.UpdatedAt,
		}); err != nil {
			return nil, err
		}
	}

	result := stored
	return &result, nil
}

func (r *FileRepository) FindByVolunteer(_ context.Context, volunteerID string) ([]*Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.filter(func(a *Application) bool { return a.VolunteerID == volunteerID }), nil
}

func (r *FileRepository) FindByOpportunity(_ context.Context, opportunityID string) ([]*Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.filter(func(a *Application) bool { return a.OpportunityID == opportunityID }), nil
}

func (r *FileRepository) ListAll(_ context.Context) ([]*Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.filter(func(*Application) bool { return true }), nil
}

// filter returns copies sorted by creation time. Caller must hold a lock.
func (r *FileRepository) filter(keep func(*Application) bool) []*Application {
	var items []*Application
	for _, item := range r.cache {
		if keep(item) {
			copied := *item
			items = append(items, &copied)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID.String() < items[j].ID.String()
	})
	return items
}

func (r *FileRepository) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(filepath.Dir(r.dataFile)); err != nil {
		return fmt.Errorf("data directory unavailable: %w", err)
	}
	return nil
}
