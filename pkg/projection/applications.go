package projection

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"seraaj/pkg/eventstore"
)

// ApplicationHandler projects Application events into the applications
// table.
type ApplicationHandler struct {
	db *sql.DB
}

// NewApplicationHandler creates a projection handler for the Application
// aggregate.
func NewApplicationHandler(db *sql.DB) *ApplicationHandler {
	return &ApplicationHandler{db: db}
}

func (h *ApplicationHandler) AggregateType() string {
	return "Application"
}

func (h *ApplicationHandler) HandlesEventType(eventType string) bool {
	return strings.HasPrefix(eventType, "application.")
}

// applicationCreated mirrors the application.created payload contract.
type applicationCreated struct {
	VolunteerID    string     `json:"volunteerId"`
	OpportunityID  string     `json:"opportunityId"`
	OrganizationID string     `json:"organizationId"`
	Status         string     `json:"status"`
	CoverLetter    string     `json:"coverLetter"`
	SubmittedAt    *time.Time `json:"submittedAt"`
}

type applicationStateChanged struct {
	NewState string `json:"newState"`
}

type applicationUpdated struct {
	CoverLetter    *string `json:"coverLetter"`
	OrganizationID *string `json:"organizationId"`
}

func (h *ApplicationHandler) Handle(ctx context.Context, event eventstore.StoredEvent) error {
	if event.AggregateType != h.AggregateType() {
		return nil
	}

	switch event.EventType {
	case "application.created":
		return h.handleCreated(ctx, event)
	case "application.state.changed":
		return h.handleStateChanged(ctx, event)
	case "application.updated":
		return h.handleUpdated(ctx, event)
	}
	// Notification-style events (submitted, completed) carry no row change.
	return nil
}

func (h *ApplicationHandler) handleCreated(ctx context.Context, event eventstore.StoredEvent) error {
	var p applicationCreated
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return fmt.Errorf("decode application.created payload: %w", err)
	}

	var organizationID interface{}
	if p.OrganizationID != "" {
		organizationID = p.OrganizationID
	}
	var coverLetter interface{}
	if p.CoverLetter != "" {
		coverLetter = p.CoverLetter
	}

	_, err := h.db.ExecContext(ctx, `
		INSERT INTO applications (id, volunteer_id, opportunity_id, organization_id,
		                          status, cover_letter, submitted_at, reviewed_at,
		                          created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, $8, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			cover_letter = EXCLUDED.cover_letter,
			submitted_at = EXCLUDED.submitted_at,
			updated_at = EXCLUDED.updated_at,
			version = EXCLUDED.version
	`, event.AggregateID, p.VolunteerID, p.OpportunityID, organizationID,
		p.Status, coverLetter, p.SubmittedAt, event.OccurredAt, event.Version)
	if err != nil {
		return fmt.Errorf("upsert application row: %w", err)
	}
	return nil
}

func (h *ApplicationHandler) handleStateChanged(ctx context.Context, event eventstore.StoredEvent) error {
	var p applicationStateChanged
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return fmt.Errorf("decode application.state.changed payload: %w", err)
	}

	query := `
		UPDATE applications
		SET status = $2, updated_at = $3, version = $4
		WHERE id = $1
	`
	args := []interface{}{event.AggregateID, p.NewState, event.OccurredAt, event.Version}

	// Entering reviewing stamps the review timestamp.
	if p.NewState == "reviewing" {
		query = `
			UPDATE applications
			SET status = $2, updated_at = $3, version = $4, reviewed_at = $3
			WHERE id = $1
		`
	}

	if _, err := h.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update application status: %w", err)
	}
	return nil
}

func (h *ApplicationHandler) handleUpdated(ctx context.Context, event eventstore.StoredEvent) error {
	var p applicationUpdated
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return fmt.Errorf("decode application.updated payload: %w", err)
	}

	set := []string{"updated_at = $2", "version = $3"}
	args := []interface{}{event.AggregateID, event.OccurredAt, event.Version}

	if p.CoverLetter != nil {
		args = append(args, *p.CoverLetter)
		set = append(set, fmt.Sprintf("cover_letter = $%d", len(args)))
	}
	if p.OrganizationID != nil {
		args = append(args, *p.OrganizationID)
		set = append(set, fmt.Sprintf("organization_id = $%d", len(args)))
	}

	query := fmt.Sprintf("UPDATE applications SET %s WHERE id = $1", strings.Join(set, ", "))
	if _, err := h.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update application fields: %w", err)
	}
	return nil
}

func (h *ApplicationHandler) RebuildFromEvents(ctx context.Context, events []eventstore.StoredEvent) error {
	if _, err := h.db.ExecContext(ctx, "DELETE FROM applications"); err != nil {
		return fmt.Errorf("truncate applications projection: %w", err)
	}

	sortByAggregateVersion(events)
	for _, event := range events {
		if event.AggregateType != h.AggregateType() {
			continue
		}
		if err := h.Handle(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
