package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Location is a geographic point. A zero value means the location is
// unknown; the scoring algorithm treats it as practically infinite
// distance rather than an error.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IsZero reports whether the location carries no usable coordinates.
func (l Location) IsZero() bool {
	return l.Latitude == 0 || l.Longitude == 0
}

// Volunteer is the collaborator-owned profile consumed by the matcher.
type Volunteer struct {
	ID           string   `json:"id"`
	Skills       []string `json:"skills"`
	Location     Location `json:"location"`
	Availability []string `json:"availability"`
}

// Opportunity is a collaborator-owned volunteering opportunity.
type Opportunity struct {
	ID             string   `json:"id"`
	OrganizationID string   `json:"organizationId"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	RequiredSkills []string `json:"requiredSkills"`
	TimeSlots      []string `json:"timeSlots"`
	Location       Location `json:"location"`
	Category       string   `json:"category"`
}

// OpportunityFilter narrows the opportunity catalog for match generation.
type OpportunityFilter struct {
	Category string   `json:"category,omitempty"`
	Skills   []string `json:"skills,omitempty"`
}

// VolunteerSource looks up volunteer profiles. Unknown ids resolve to a
// defined default profile, never an error.
type VolunteerSource interface {
	GetVolunteer(ctx context.Context, id string) (*Volunteer, error)
}

// OpportunitySource lists available opportunities, optionally filtered.
type OpportunitySource interface {
	ListOpportunities(ctx context.Context, filter OpportunityFilter) ([]Opportunity, error)
}

// MatchScore is the computed compatibility between a volunteer and an
// opportunity. Total and every component are in [0,1].
type MatchScore struct {
	Total       float64            `json:"total"`
	Components  map[string]float64 `json:"components"`
	Explanation []string           `json:"explanation"`
}

// Suggestion statuses. Only pending is set by the core; the rest arrive
// through explicit status updates.
const (
	SuggestionPending  = "pending"
	SuggestionViewed   = "viewed"
	SuggestionApplied  = "applied"
	SuggestionAccepted = "accepted"
	SuggestionRejected = "rejected"
	SuggestionExpired  = "expired"
)

var validSuggestionStatuses = map[string]struct{}{
	SuggestionPending:  {},
	SuggestionViewed:   {},
	SuggestionApplied:  {},
	SuggestionAccepted: {},
	SuggestionRejected: {},
	SuggestionExpired:  {},
}

// ValidSuggestionStatus reports whether s is a known suggestion status.
func ValidSuggestionStatus(s string) bool {
	_, ok := validSuggestionStatuses[s]
	return ok
}

// MatchSuggestion is the persisted aggregate built from a ranking run. One
// row per (volunteer, opportunity, run); duplicates across runs are
// permitted and suggestions are never deleted.
type MatchSuggestion struct {
	ID              uuid.UUID          `json:"id"`
	VolunteerID     string             `json:"volunteerId"`
	OpportunityID   string             `json:"opportunityId"`
	OrganizationID  string             `json:"organizationId"`
	Score           float64            `json:"score"`
	ScoreComponents map[string]float64 `json:"scoreComponents"`
	Explanation     []string           `json:"explanation"`
	GeneratedAt     time.Time          `json:"generatedAt"`
	Status          string             `json:"status"`
}

// AggregateType tags match suggestion events in the event store.
const AggregateType = "MatchSuggestion"

// Event types emitted for the MatchSuggestion aggregate.
const (
	EventSuggestionCreated       = "match.suggestion.created"
	EventSuggestionStatusChanged = "match.suggestion.status.changed"
	EventSuggestionsGenerated    = "match.suggestions.generated"
)

// SuggestionCreatedPayload is the payload of a match.suggestion.created
// event.
type SuggestionCreatedPayload struct {
	SuggestionID    uuid.UUID          `json:"suggestionId"`
	VolunteerID     string             `json:"volunteerId"`
	OpportunityID   string             `json:"opportunityId"`
	OrganizationID  string             `json:"organizationId"`
	Score           float64            `json:"score"`
	ScoreComponents map[string]float64 `json:"scoreComponents"`
	Explanation     []string           `json:"explanation"`
	GeneratedAt     time.Time          `json:"generatedAt"`
	Status          string             `json:"status"`
}

// SuggestionStatusChangedPayload is the payload of a
// match.suggestion.status.changed event.
type SuggestionStatusChangedPayload struct {
	SuggestionID   uuid.UUID `json:"suggestionId"`
	PreviousStatus string    `json:"previousStatus"`
	NewStatus      string    `json:"newStatus"`
	Timestamp      time.Time `json:"timestamp"`
}

// DecodePayload deserializes a match suggestion event payload into its
// typed form, failing on unknown event types.
func DecodePayload(eventType string, raw json.RawMessage) (interface{}, error) {
	switch eventType {
	case EventSuggestionCreated:
		var p SuggestionCreatedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return &p, nil
	case EventSuggestionStatusChanged:
		var p SuggestionStatusChangedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return &p, nil
	default:
		return nil, fmt.Errorf("unknown match suggestion event type: %q", eventType)
	}
}
