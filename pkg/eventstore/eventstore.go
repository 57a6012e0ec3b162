package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrInvalidVersion      = errors.New("invalid version number")
)

// DefaultContractsVersion is stamped on events whose producer does not
// specify a schema version.
const DefaultContractsVersion = "1.0.0"

const defaultMaxRetries = 4

// StoredEvent is a single immutable entry in the append-only event log.
// For a fixed aggregate, versions form a gapless sequence starting at 1,
// enforced by the unique (aggregate_id, version) constraint.
type StoredEvent struct {
	EventID          uuid.UUID       `json:"event_id"`
	AggregateType    string          `json:"aggregate_type"`
	AggregateID      uuid.UUID       `json:"aggregate_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	Version          int             `json:"version"`
	Payload          json.RawMessage `json:"payload"`
	ContractsVersion string          `json:"contracts_version"`
}

// Store is a PostgreSQL-backed event store with optimistic concurrency
// control. Transient storage errors are retried with bounded exponential
// backoff; a concurrency conflict is a logical failure and is surfaced to
// the caller immediately.
type Store struct {
	db         *sql.DB
	tracer     trace.Tracer
	maxRetries uint
}

// NewStore creates an event store on top of an existing connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:         db,
		tracer:     otel.Tracer("seraaj/eventstore"),
		maxRetries: defaultMaxRetries,
	}
}

// Append appends a single event to the aggregate's stream.
//
// When expectedVersion is non-nil the append fails with
// ErrConcurrencyConflict unless it matches the aggregate's current max
// version. When nil, the version is computed as current+1 without a
// conflict check and the caller accepts the race.
func (s *Store) Append(ctx context.Context, aggregateID uuid.UUID, aggregateType, eventType string, payload json.RawMessage, expectedVersion *int) (*StoredEvent, error) {
	ctx, span := s.tracer.Start(ctx, "eventstore.append",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.String("aggregate.type", aggregateType),
			attribute.String("event.type", eventType),
		),
	)
	defer span.End()

	if expectedVersion != nil && *expectedVersion < 0 {
		return nil, ErrInvalidVersion
	}

	op := func() (*StoredEvent, error) {
		event, err := s.appendOnce(ctx, aggregateID, aggregateType, eventType, payload, expectedVersion)
		if err != nil {
			if errors.Is(err, ErrConcurrencyConflict) {
				span.SetAttributes(attribute.Bool("conflict.detected", true))
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return event, nil
	}

	event, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(s.maxRetries),
	)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("event.version", event.Version))
	return event, nil
}

func (s *Store) appendOnce(ctx context.Context, aggregateID uuid.UUID, aggregateType, eventType string, payload json.RawMessage, expectedVersion *int) (*StoredEvent, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var currentVersion int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0)
		FROM events
		WHERE aggregate_id = $1
	`, aggregateID).Scan(&currentVersion)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("query current version: %w", err)
	}

	if expectedVersion != nil && currentVersion != *expectedVersion {
		return nil, fmt.Errorf("expected version %d, current version %d: %w",
			*expectedVersion, currentVersion, ErrConcurrencyConflict)
	}

	if payload == nil {
		payload = json.RawMessage("{}")
	}

	event := &StoredEvent{
		EventID:          uuid.New(),
		AggregateType:    aggregateType,
		AggregateID:      aggregateID,
		EventType:        eventType,
		OccurredAt:       time.Now().UTC(),
		Version:          currentVersion + 1,
		Payload:          payload,
		ContractsVersion: DefaultContractsVersion,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (event_id, aggregate_type, aggregate_id, event_type, occurred_at, version, payload, contracts_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, event.EventID, event.AggregateType, event.AggregateID, event.EventType,
		event.OccurredAt, event.Version, []byte(event.Payload), event.ContractsVersion)
	if err != nil {
		// Unique constraint violation means a concurrent writer won the race.
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, fmt.Errorf("version %d already exists for aggregate %s: %w",
				event.Version, aggregateID, ErrConcurrencyConflict)
		}
		return nil, fmt.Errorf("insert event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return event, nil
}

// GetEvents retrieves the events of one aggregate ordered by version.
// fromVersion is inclusive; toVersion 0 means no upper bound.
func (s *Store) GetEvents(ctx context.Context, aggregateID uuid.UUID, fromVersion, toVersion int) ([]StoredEvent, error) {
	ctx, span := s.tracer.Start(ctx, "eventstore.get_events",
		trace.WithAttributes(
			attribute.String("aggregate.id", aggregateID.String()),
			attribute.Int("from.version", fromVersion),
			attribute.Int("to.version", toVersion),
		),
	)
	defer span.End()

	query := `
		SELECT event_id, aggregate_type, aggregate_id, event_type, occurred_at, version, payload, contracts_version
		FROM events
		WHERE aggregate_id = $1
		AND version >= $2
	`
	args := []interface{}{aggregateID, fromVersion}
	if toVersion > 0 {
		query += " AND version <= $3"
		args = append(args, toVersion)
	}
	query += " ORDER BY version ASC"

	events, err := s.queryEvents(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

// GetEventsByType retrieves events of one event type ordered by occurrence
// time. aggregateType narrows the result when non-empty; a zero
// fromTimestamp means no time filter; limit 0 means no limit.
func (s *Store) GetEventsByType(ctx context.Context, eventType, aggregateType string, fromTimestamp time.Time, limit int) ([]StoredEvent, error) {
	ctx, span := s.tracer.Start(ctx, "eventstore.get_events_by_type",
		trace.WithAttributes(attribute.String("event.type", eventType)),
	)
	defer span.End()

	query := `
		SELECT event_id, aggregate_type, aggregate_id, event_type, occurred_at, version, payload, contracts_version
		FROM events
		WHERE event_type = $1
	`
	args := []interface{}{eventType}
	if aggregateType != "" {
		args = append(args, aggregateType)
		query += fmt.Sprintf(" AND aggregate_type = $%d", len(args))
	}
	if !fromTimestamp.IsZero() {
		args = append(args, fromTimestamp)
		query += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	query += " ORDER BY occurred_at ASC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	events, err := s.queryEvents(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

// GetAllEvents retrieves the full event log ordered by occurrence time,
// optionally filtered by aggregate type and timestamp. Used by the
// projection service for rebuilds.
func (s *Store) GetAllEvents(ctx context.Context, aggregateType string, fromTimestamp time.Time, limit int) ([]StoredEvent, error) {
	ctx, span := s.tracer.Start(ctx, "eventstore.get_all_events")
	defer span.End()

	query := `
		SELECT event_id, aggregate_type, aggregate_id, event_type, occurred_at, version, payload, contracts_version
		FROM events
	`
	var args []interface{}
	var where []string
	if aggregateType != "" {
		args = append(args, aggregateType)
		where = append(where, fmt.Sprintf("aggregate_type = $%d", len(args)))
	}
	if !fromTimestamp.IsZero() {
		args = append(args, fromTimestamp)
		where = append(where, fmt.Sprintf("occurred_at >= $%d", len(args)))
	}
	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY occurred_at ASC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	events, err := s.queryEvents(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

// GetAggregateVersion returns the latest version for an aggregate, 0 when
// no events exist.
func (s *Store) GetAggregateVersion(ctx context.Context, aggregateID uuid.UUID) (int, error) {
	ctx, span := s.tracer.Start(ctx, "eventstore.get_version",
		trace.WithAttributes(attribute.String("aggregate.id", aggregateID.String())),
	)
	defer span.End()

	var version int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0)
		FROM events
		WHERE aggregate_id = $1
	`, aggregateID).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("query version: %w", err)
	}

	span.SetAttributes(attribute.Int("current.version", version))
	return version, nil
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...interface{}) ([]StoredEvent, error) {
	op := func() ([]StoredEvent, error) {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("query events: %w", err)
		}
		defer rows.Close()

		var events []StoredEvent
		for rows.Next() {
			var event StoredEvent
			var payload []byte
			err := rows.Scan(
				&event.EventID,
				&event.AggregateType,
				&event.AggregateID,
				&event.EventType,
				&event.OccurredAt,
				&event.Version,
				&payload,
				&event.ContractsVersion,
			)
			if err != nil {
				return nil, fmt.Errorf("scan event: %w", err)
			}
			event.Payload = json.RawMessage(payload)
			events = append(events, event)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate events: %w", err)
		}
		return events, nil
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(s.maxRetries),
	)
}
