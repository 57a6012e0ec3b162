package applications

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

// PostgresRepository expresses every mutation as an event appended to the
// event store with an expected-version check, followed by synchronous
// projection into the applications table. Reads always hit the projection,
// never replay events.
type PostgresRepository struct {
	db      *sql.DB
	store   *eventstore.Store
	handler *projection.ApplicationHandler
}

// NewPostgresRepository creates an event-sourced repository over db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		store:   eventstore.NewStore(db),
		handler: projection.NewApplicationHandler(db),
	}
}

func (r *PostgresRepository) Create(ctx context.Context, application *Application) (*Application, error) {
	payload, err := json.Marshal(CreatedPayload{
		ApplicationID:  application.ID,
		VolunteerID:    application.VolunteerID,
		OpportunityID:  application.OpportunityID,
		OrganizationID: application.OrganizationID,
		Status:         application.Status,
		CoverLetter:    application.CoverLetter,
		SubmittedAt:    application.SubmittedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal created payload: %w", err)
	}

	expected := 0
	event, err := r.store.Append(ctx, application.ID, AggregateType, EventCreated, payload, &expected)
	if err != nil {
		if errors.Is(err, eventstore.ErrConcurrencyConflict) {
			return nil, fmt.Errorf("application %s: %w", application.ID, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("append created event: %w", err)
	}

	if err := r.handler.Handle(ctx, *event); err != nil {
		return nil, fmt.Errorf("project created event: %w", err)
	}

	return r.Get(ctx, application.ID)
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*Application, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, volunteer_id, opportunity_id, organization_id, status,
		       cover_letter, submitted_at, reviewed_at, created_at, updated_at, version
		FROM applications
		WHERE id = $1
	`, id)

	application, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("application %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get application: %w", err)
	}
	return application, nil
}

func (r *PostgresRepository) Update(ctx context.Context, application *Application) (*Application, error) {
	current, err := r.Get(ctx, application.ID)
	if err != nil {
		return nil, err
	}

	var eventType string
	var payload []byte
	now := time.Now().UTC()

	if current.Status != application.Status {
		eventType = EventStateChanged
		payload, err = json.Marshal(StateChangedPayload{
			ApplicationID: application.ID,
			VolunteerID:   application.VolunteerID,
			OpportunityID: application.OpportunityID,
			PreviousState: current.Status,
			NewState:      application.Status,
			Timestamp:     now,
		})
	} else {
		eventType = EventUpdated
		updated := UpdatedPayload{ApplicationID: application.ID}
		if application.CoverLetter != current.CoverLetter {
			updated.CoverLetter = &application.CoverLetter
		}
		if application.OrganizationID != current.OrganizationID {
			updated.OrganizationID = &application.OrganizationID
		}
		payload, err = json.Marshal(updated)
	}
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	expected := current.Version
	event, err := r.store.Append(ctx, application.ID, AggregateType, eventType, payload, &expected)
	if err != nil {
		return nil, fmt.Errorf("append %s event: %w", eventType, err)
	}

	if err := r.handler.Handle(ctx, *event); err != nil {
		return nil, fmt.Errorf("project %s event: %w", eventType, err)
	}

	return r.Get(ctx, application.ID)
}

func (r *PostgresRepository) FindByVolunteer(ctx context.Context, volunteerID string) ([]*Application, error) {
	return r.query(ctx, `
		SELECT id, volunteer_id, opportunity_id, organization_id, status,
		       cover_letter, submitted_at, reviewed_at, created_at, updated_at, version
		FROM applications
		WHERE volunteer_id = $1
		ORDER BY created_at ASC
	`, volunteerID)
}

func (r *PostgresRepository) FindByOpportunity(ctx context.Context, opportunityID string) ([]*Application, error) {
	return r.query(ctx, `
		SELECT id, volunteer_id, opportunity_id, organization_id, status,
		       cover_letter, submitted_at, reviewed_at, created_at, updated_at, version
		FROM applications
		WHERE opportunity_id = $1
		ORDER BY created_at ASC
	`, opportunityID)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]*Application, error) {
	return r.query(ctx, `
		SELECT id, volunteer_id, opportunity_id, organization_id, status,
		       cover_letter, submitted_at, reviewed_at, created_at, updated_at, version
		FROM applications
		ORDER BY created_at ASC
	`)
}

func (r *PostgresRepository) HealthCheck(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...interface{}) ([]*Application, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()

	var applications []*Application
	for rows.Next() {
		application, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		applications = append(applications, application)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	return applications, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*Application, error) {
	var (
		application    Application
		organizationID sql.NullString
		coverLetter    sql.NullString
		submittedAt    sql.NullTime
		reviewedAt     sql.NullTime
	)
	err := row.Scan(
		&application.ID,
		&application.VolunteerID,
		&application.OpportunityID,
		&organizationID,
		&application.Status,
		&coverLetter,
		&submittedAt,
		&reviewedAt,
		&application.CreatedAt,
		&application.UpdatedAt,
		&application.Version,
	)
	if err != nil {
		return nil, err
	}

	application.OrganizationID = organizationID.String
	application.CoverLetter = coverLetter.String
	if submittedAt.Valid {
		t := submittedAt.Time
		application.SubmittedAt = &t
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		application.ReviewedAt = &t
	}
	return &application, nil
}
