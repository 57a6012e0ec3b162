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

// SuggestionHandler projects MatchSuggestion events into the
// match_suggestions table.
type SuggestionHandler struct {
	db *sql.DB
}

// NewSuggestionHandler creates a projection handler for the
// MatchSuggestion aggregate.
func NewSuggestionHandler(db *sql.DB) *SuggestionHandler {
	return &SuggestionHandler{db: db}
}

func (h *SuggestionHandler) AggregateType() string {
	return "MatchSuggestion"
}

func (h *SuggestionHandler) HandlesEventType(eventType string) bool {
	return strings.HasPrefix(eventType, "match.") || strings.HasPrefix(eventType, "suggestion.")
}

type suggestionCreated struct {
	VolunteerID     string             `json:"volunteerId"`
	OpportunityID   string             `json:"opportunityId"`
	OrganizationID  string             `json:"organizationId"`
	Score           float64            `json:"score"`
	ScoreComponents map[string]float64 `json:"scoreComponents"`
	Explanation     []string           `json:"explanation"`
	GeneratedAt     time.Time          `json:"generatedAt"`
	Status          string             `json:"status"`
}

type suggestionStatusChanged struct {
	NewStatus string `json:"newStatus"`
}

func (h *SuggestionHandler) Handle(ctx context.Context, event eventstore.StoredEvent) error {
	if event.AggregateType != h.AggregateType() {
		return nil
	}

	switch event.EventType {
	case "match.suggestion.created":
		return h.handleCreated(ctx, event)
	case "match.suggestion.status.changed":
		return h.handleStatusChanged(ctx, event)
	}
	return nil
}

func (h *SuggestionHandler) handleCreated(ctx context.Context, event eventstore.StoredEvent) error {
	var p suggestionCreated
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return fmt.Errorf("decode match.suggestion.created payload: %w", err)
	}

	if p.Status == "" {
		p.Status = "pending"
	}

	components, err := json.Marshal(p.ScoreComponents)
	if err != nil {
		return fmt.Errorf("marshal score components: %w", err)
	}
	explanation, err := json.Marshal(p.Explanation)
	if err != nil {
		return fmt.Errorf("marshal explanation: %w", err)
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO match_suggestions (id, volunteer_id, opportunity_id, organization_id,
		                               score, score_components, explanation, generated_at,
		                               status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			score = EXCLUDED.score,
			score_components = EXCLUDED.score_components,
			explanation = EXCLUDED.explanation,
			status = EXCLUDED.status
	`, event.AggregateID, p.VolunteerID, p.OpportunityID, p.OrganizationID,
		p.Score, components, explanation, p.GeneratedAt, p.Status, event.OccurredAt)
	if err != nil {
		return fmt.Errorf("upsert match suggestion row: %w", err)
	}
	return nil
}

func (h *SuggestionHandler) handleStatusChanged(ctx context.Context, event eventstore.StoredEvent) error {
	var p suggestionStatusChanged
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return fmt.Errorf("decode match.suggestion.status.changed payload: %w", err)
	}

	_, err := h.db.ExecContext(ctx, `
		UPDATE match_suggestions
		SET status = $2
		WHERE id = $1
	`, event.AggregateID, p.NewStatus)
	if err != nil {
		return fmt.Errorf("update match suggestion status: %w", err)
	}
	return nil
}

func (h *SuggestionHandler) RebuildFromEvents(ctx context.Context, events []eventstore.StoredEvent) error {
	if _, err := h.db.ExecContext(ctx, "DELETE FROM match_suggestions"); err != nil {
		return fmt.Errorf("truncate match_suggestions projection: %w", err)
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
