package matching

import (
	"context"

	"github.com/google/uuid"
)

// Default result limits for the two match flows.
const (
	DefaultQuickMatchLimit = 3
	DefaultGenerateLimit   = 10
)

// Service defines the interface for the matching service.
type Service interface {
	QuickMatch(ctx context.Context, volunteerID string, limit int) ([]*MatchSuggestion, error)
	GenerateMatches(ctx context.Context, volunteerID string, filter OpportunityFilter, limit int) ([]*MatchSuggestion, error)
	GetSuggestions(ctx context.Context, volunteerID string) ([]*MatchSuggestion, error)
	UpdateSuggestionStatus(ctx context.Context, id uuid.UUID, status string) (*MatchSuggestion, error)
	HealthCheck(ctx context.Context) error
}
