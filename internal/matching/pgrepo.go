package matching

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"seraaj/pkg/eventstore"
	"seraaj/pkg/projection"
)

// PostgresRepository records every suggestion mutation as an event with an
// expected-version check, synchronously projected into the
// match_suggestions table. Reads hit the projection only.
type PostgresRepository struct {
	db      *sql.DB
	store   *eventstore.Store
	handler *projection.SuggestionHandler
}

// NewPostgresRepository creates an event-sourced repository over db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		store:   eventstore.NewStore(db),
		handler: projection.NewSuggestionHandler(db),
	}
}

func (r *PostgresRepository) Create(ctx context.Context, suggestion *MatchSuggestion) (*MatchSuggestion, error) {
	payload, err := json.Marshal(SuggestionCreatedPayload{
		SuggestionID:    suggestion.ID,
		VolunteerID:     suggestion.VolunteerID,
		OpportunityID:   suggestion.OpportunityID,
		OrganizationID:  suggestion.OrganizationID,
		Score:           suggestion.Score,
		ScoreComponents: suggestion.ScoreComponents,
		Explanation:     suggestion.Explanation,
		GeneratedAt:     suggestion.GeneratedAt,
		Status:          suggestion.Status,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal created payload: %w", err)
	}

	expected := 0
	event, err := r.store.Append(ctx, suggestion.ID, AggregateType, EventSuggestionCreated, payload, &expected)
	if err != nil {
		if errors.Is(err, eventstore.ErrConcurrencyConflict) {
			return nil, fmt.Errorf("match suggestion %s: %w", suggestion.ID, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("append created event: %w", err)
	}

	if err := r.handler.Handle(ctx, *event); err != nil {
		return nil, fmt.Errorf("project created event: %w", err)
	}

	return r.Get(ctx, suggestion.ID)
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*MatchSuggestion, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, volunteer_id, opportunity_id, organization_id, score,
		       score_components, explanation, generated_at, status
		FROM match_suggestions
		WHERE id = $1
	`, id)

	suggestion, err := scanSuggestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("match suggestion %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get match suggestion: %w", err)
	}
	return suggestion, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*MatchSuggestion, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(SuggestionStatusChangedPayload{
		SuggestionID:   id,
		PreviousStatus: current.Status,
		NewStatus:      status,
		Timestamp:      time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal status payload: %w", err)
	}

	version, err := r.store.GetAggregateVersion(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get aggregate version: %w", err)
	}

	event, err := r.store.Append(ctx, id, AggregateType, EventSuggestionStatusChanged, payload, &version)
	if err != nil {
		return nil, fmt.Errorf("append status event: %w", err)
	}

	if err := r.handler.Handle(ctx, *event); err != nil {
		return nil, fmt.Errorf("project status event: %w", err)
	}

	return r.Get(ctx, id)
}

func (r *PostgresRepository) FindByVolunteer(ctx context.Context, volunteerID string) ([]*MatchSuggestion, error) {
	return r.query(ctx, `
		SELECT id, volunteer_id, opportunity_id, organization_id, score,
		       score_components, explanation, generated_at, status
		FROM match_suggestions
		WHERE volunteer_id = $1
		ORDER BY generated_at ASC
	`, volunteerID)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*MatchSuggestion, error) {
	return r.query(ctx, `
		SELECT id, volunteer_id, opportunity_id, organization_id, score,
		       score_components, explanation, generated_at, status
		FROM match_suggestions
		ORDER BY generated_at ASC
	`)
}

func (r *PostgresRepository) HealthCheck(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...interface{}) ([]*MatchSuggestion, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query match suggestions: %w", err)
	}
	defer rows.Close()

	var suggestions []*MatchSuggestion
	for rows.Next() {
		suggestion, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match suggestion: %w", err)
		}
		suggestions = append(suggestions, suggestion)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match suggestions: %w", err)
	}
	return suggestions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSuggestion(row rowScanner) (*MatchSuggestion, error) {
	var (
		suggestion MatchSuggestion
		components []byte
		explain    []byte
	)
	err := row.Scan(
		&suggestion.ID,
		&suggestion.VolunteerID,
		&suggestion.OpportunityID,
		&suggestion.OrganizationID,
		&suggestion.Score,
		&components,
		&explain,
		&suggestion.GeneratedAt,
		&suggestion.Status,
	)
	if err != nil {
		return nil, err
	}

	if len(components) > 0 {
		if err := json.Unmarshal(components, &suggestion.ScoreComponents); err != nil {
			return nil, fmt.Errorf("decode score components: %w", err)
		}
	}
	if len(explain) > 0 {
		if err := json.Unmarshal(explain, &suggestion.Explanation); err != nil {
			return nil, fmt.Errorf("decode explanation: %w", err)
		}
	}
	return &suggestion, nil
}
