package applications

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Application is the persisted aggregate for one volunteer's application to
// one opportunity. Volunteer, opportunity and organization ids are opaque
// identifiers owned by external collaborators; the application id is
// server-generated. Applications are never deleted and terminal states are
// permanent.
type Application struct {
	ID             uuid.UUID  `json:"id"`
	VolunteerID    string     `json:"volunteerId"`
	OpportunityID  string     `json:"opportunityId"`
	OrganizationID string     `json:"organizationId,omitempty"`
	Status         State      `json:"status"`
	CoverLetter    string     `json:"coverLetter,omitempty"`
	SubmittedAt    *time.Time `json:"submittedAt,omitempty"`
	ReviewedAt     *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	Version        int        `json:"version,omitempty"`
}

// AggregateType tags application events in the event store.
const AggregateType = "Application"

// Event types emitted for the Application aggregate.
const (
	EventCreated      = "application.created"
	EventSubmitted    = "application.submitted"
	EventStateChanged = "application.state.changed"
	EventUpdated      = "application.updated"
	EventCompleted    = "application.completed"
	EventPointsAward  = "points.award"
)

// CompletionPoints is awarded to the volunteer when an application reaches
// the completed state.
const CompletionPoints = 100

// CreatedPayload is the payload of an application.created event.
type CreatedPayload struct {
	ApplicationID  uuid.UUID  `json:"applicationId"`
	VolunteerID    string     `json:"volunteerId"`
	OpportunityID  string     `json:"opportunityId"`
	OrganizationID string     `json:"organizationId,omitempty"`
	Status         State      `json:"status"`
	CoverLetter    string     `json:"coverLetter,omitempty"`
	SubmittedAt    *time.Time `json:"submittedAt,omitempty"`
}

// StateChangedPayload is the payload of an application.state.changed event.
type StateChangedPayload struct {
	ApplicationID uuid.UUID `json:"applicationId"`
	VolunteerID   string    `json:"volunteerId"`
	OpportunityID string    `json:"opportunityId"`
	PreviousState State     `json:"previousState"`
	NewState      State     `json:"newState"`
	Timestamp     time.Time `json:"timestamp"`
}

// UpdatedPayload is the payload of an application.updated event, covering
// non-status field changes. Nil fields are left untouched.
type UpdatedPayload struct {
	ApplicationID  uuid.UUID `json:"applicationId"`
	CoverLetter    *string   `json:"coverLetter,omitempty"`
	OrganizationID *string   `json:"organizationId,omitempty"`
}

// DecodePayload deserializes an application event payload into its typed
// form, failing on unknown event types. Rows persist as schemaless JSON;
// this is the validation boundary.
func DecodePayload(eventType string, raw json.RawMessage) (interface{}, error) {
	switch eventType {
	case EventCreated:
		var p CreatedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return &p, nil
	case EventStateChanged:
		var p StateChangedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return &p, nil
	case EventUpdated:
		var p UpdatedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
		}
		return &p, nil
	default:
		return nil, fmt.Errorf("unknown application event type: %q", eventType)
	}
}
