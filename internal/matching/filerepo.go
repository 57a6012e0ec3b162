package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"seraaj/pkg/auditlog"
)

// FileRepository keeps match suggestions in an in-memory cache backed by a
// flat JSON file, with a JSONL history log appended on every save. Safe
// for concurrent use within one process; no cross-process file locking.
type FileRepository struct {
	mu       sync.RWMutex
	cache    map[uuid.UUID]*MatchSuggestion
	dataFile string
	history  *auditlog.Log
}

// NewFileRepository creates a file-backed repository rooted at dataDir.
func NewFileRepository(dataDir string) (*FileRepository, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	history, err := auditlog.New(filepath.Join(dataDir, "match_history.jsonl"))
	if err != nil {
		return nil, err
	}

	r := &FileRepository{
		cache:    make(map[uuid.UUID]*MatchSuggestion),
		dataFile: filepath.Join(dataDir, "match_suggestions.json"),
		history:  history,
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
		return fmt.Errorf("read suggestions file: %w", err)
	}

	var items []*MatchSuggestion
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("parse suggestions file: %w", err)
	}
	for _, item := range items {
		r.cache[item.ID] = item
	}
	return nil
}

// save rewrites the whole data file. Caller must hold the write lock.
func (r *FileRepository) save() error {
	items := make([]*MatchSuggestion, 0, len(r.cache))
	for _, item := range r.cache {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].GeneratedAt.Equal(items[j].GeneratedAt) {
			return items[i].GeneratedAt.Before(items[j].GeneratedAt)
		}
		return items[i].ID.String() < items[j].ID.String()
	})

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal suggestions: %w", err)
	}
	if err := os.WriteFile(r.dataFile, data, 0o644); err != nil {
		return fmt.Errorf("write suggestions file: %w", err)
	}
	return nil
}

func (r *FileRepository) Create(_ context.Context, suggestion *MatchSuggestion) (*MatchSuggestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.cache[suggestion.ID]; exists {
		return nil, fmt.Errorf("match suggestion %s: %w", suggestion.ID, ErrAlreadyExists)
	}

	stored := *suggestion
	r.cache[stored.ID] = &stored
	if err := r.save(); err != nil {
		delete(r.cache, stored.ID)
		return nil, err
	}

	if err := r.history.Append(EventSuggestionCreated, stored); err != nil {
		return nil, err
	}

	result := stored
	return &result, nil
}

func (r *FileRepository) Get(_ context.Context, id uuid.UUID) (*MatchSuggestion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	suggestion, ok := r.cache[id]
	if !ok {
		return nil, fmt.Errorf("match suggestion %s: %w", id, ErrNotFound)
	}
	result := *suggestion
	return &result, nil
}

func (r *FileRepository) UpdateStatus(_ context.Context, id uuid.UUID, status string) (*MatchSuggestion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	suggestion, ok := r.cache[id]
	if !ok {
		return nil, fmt.Errorf("match suggestion %s: %w", id, ErrNotFound)
	}

	previous := suggestion.Status
	suggestion.Status = status
	if err := r.save(); err != nil {
		suggestion.Status = previous
		return nil, err
	}

	if err := r.history.Append(EventSuggestionStatusChanged, SuggestionStatusChangedPayload{
		SuggestionID:   id,
		PreviousStatus: previous,
		NewStatus:      status,
		Timestamp:      time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	result := *suggestion
	return &result, nil
}

func (r *FileRepository) FindByVolunteer(_ context.Context, volunteerID string) ([]*MatchSuggestion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []*MatchSuggestion
	for _, item := range r.cache {
		if item.VolunteerID == volunteerID {
			copied := *item
			items = append(items, &copied)
		}
	}
	sortSuggestions(items)
	return items, nil
}

func (r *FileRepository) ListAll(_ context.Context) ([]*MatchSuggestion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*MatchSuggestion, 0, len(r.cache))
	for _, item := range r.cache {
		copied := *item
		items = append(items, &copied)
	}
	sortSuggestions(items)
	return items, nil
}

func (r *FileRepository) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(filepath.Dir(r.dataFile)); err != nil {
		return fmt.Errorf("data directory unavailable: %w", err)
	}
	return nil
}

func sortSuggestions(items []*MatchSuggestion) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].GeneratedAt.Equal(items[j].GeneratedAt) {
			return items[i].GeneratedAt.Before(items[j].GeneratedAt)
		}
		return items[i].ID.String() < items[j].ID.String()
	})
}
