package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"seraaj/pkg/eventbus"
)

// service implements the Service interface.
type service struct {
	repository    Repository
	volunteers    VolunteerSource
	opportunities OpportunitySource
	bus           *eventbus.Publisher
	rateLimiter   *rate.Limiter
}

// NewService creates a matching service. The bus may be nil. Match
// generation is rate limited per process to protect the catalog
// collaborator.
func NewService(repository Repository, volunteers VolunteerSource, opportunities OpportunitySource, bus *eventbus.Publisher) Service {
	return &service{
		repository:    repository,
		volunteers:    volunteers,
		opportunities: opportunities,
		bus:           bus,
		rateLimiter:   rate.NewLimiter(rate.Every(time.Second), 30),
	}
}

// QuickMatch returns the top suggestions for a volunteer, persisting one
// suggestion per ranked hit.
func (s *service) QuickMatch(ctx context.Context, volunteerID string, limit int) ([]*MatchSuggestion, error) {
	if limit <= 0 {
		limit = DefaultQuickMatchLimit
	}
	return s.generate(ctx, volunteerID, OpportunityFilter{}, limit)
}

// GenerateMatches returns comprehensive suggestions, optionally filtered
// by category and skills.
func (s *service) GenerateMatches(ctx context.Context, volunteerID string, filter OpportunityFilter, limit int) ([]*MatchSuggestion, error) {
	if limit <= 0 {
		limit = DefaultGenerateLimit
	}
	return s.generate(ctx, volunteerID, filter, limit)
}

func (s *service) generate(ctx context.Context, volunteerID string, filter OpportunityFilter, limit int) ([]*MatchSuggestion, error) {
	if volunteerID == "" {
		return nil, validationErrorf("volunteer ID is required")
	}
	if !s.rateLimiter.Allow() {
		return nil, fmt.Errorf("rate limit exceeded")
	}

	volunteer, err := s.volunteers.GetVolunteer(ctx, volunteerID)
	if err != nil {
		return nil, fmt.Errorf("get volunteer: %w", err)
	}

	opportunities, err := s.opportunities.ListOpportunities(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}

	ranked := RankOpportunities(*volunteer, opportunities, limit)

	suggestions := make([]*MatchSuggestion, 0, len(ranked))
	for _, match := range ranked {
		suggestion := &MatchSuggestion{
			ID:              uuid.New(),
			VolunteerID:     volunteerID,
			OpportunityID:   match.Opportunity.ID,
			OrganizationID:  match.Opportunity.OrganizationID,
			Score:           match.Score.Total,
			ScoreComponents: match.Score.Components,
			Explanation:     match.Score.Explanation,
			GeneratedAt:     time.Now().UTC(),
			Status:          SuggestionPending,
		}

		suggestion, err := s.repository.Create(ctx, suggestion)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, suggestion)
	}

	if len(suggestions) > 0 {
		ids := make([]string, len(suggestions))
		for i, suggestion := range suggestions {
			ids[i] = suggestion.ID.String()
		}
		s.bus.Publish(ctx, EventSuggestionsGenerated, map[string]interface{}{
			"volunteerId":   volunteerID,
			"suggestionIds": ids,
			"count":         len(suggestions),
		})
	}

	return suggestions, nil
}

func (s *service) GetSuggestions(ctx context.Context, volunteerID string) ([]*MatchSuggestion, error) {
	return s.repository.FindByVolunteer(ctx, volunteerID)
}

// UpdateSuggestionStatus validates the target status before persisting the
// change.
func (s *service) UpdateSuggestionStatus(ctx context.Context, id uuid.UUID, status string) (*MatchSuggestion, error) {
	if !ValidSuggestionStatus(status) {
		return nil, validationErrorf("invalid suggestion status: %q", status)
	}
	return s.repository.UpdateStatus(ctx, id, status)
}

func (s *service) HealthCheck(ctx context.Context) error {
	return s.repository.HealthCheck(ctx)
}
