// Package projection rebuilds queryable read-model tables from the event
// log. Every handler write is an upsert keyed by aggregate id, so replays
// are idempotent.
package projection

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"seraaj/pkg/eventstore"
)

// Handler projects one aggregate type's events into its read-model table.
type Handler interface {
	// HandlesEventType reports whether the handler processes events of
	// the given type. Routing is prefix-based on the event type name.
	HandlesEventType(eventType string) bool

	// Handle applies a single event as an upsert.
	Handle(ctx context.Context, event eventstore.StoredEvent) error

	// RebuildFromEvents truncates the projection table and replays the
	// given events in (aggregateID, version) order.
	RebuildFromEvents(ctx context.Context, events []eventstore.StoredEvent) error

	// AggregateType names the aggregate this handler projects.
	AggregateType() string
}

// EventSource supplies events for rebuilds.
type EventSource interface {
	GetAllEvents(ctx context.Context, aggregateType string, fromTimestamp time.Time, limit int) ([]eventstore.StoredEvent, error)
}

// Service dispatches events to registered handlers and orchestrates
// rebuilds.
type Service struct {
	source   EventSource
	handlers []Handler
	tracer   trace.Tracer
	applied  metric.Int64Counter
}

// NewService creates a projection service with the application and match
// suggestion handlers registered.
func NewService(source EventSource, db *sql.DB) *Service {
	meter := otel.Meter("seraaj/projection")
	applied, err := meter.Int64Counter("projection.events.applied",
		metric.WithDescription("Events applied to projection tables"))
	if err != nil {
		log.Printf("[WARNING] failed to create projection counter: %v", err)
	}

	return &Service{
		source: source,
		handlers: []Handler{
			NewApplicationHandler(db),
			NewSuggestionHandler(db),
		},
		tracer:  otel.Tracer("seraaj/projection"),
		applied: applied,
	}
}

// HandleEvent dispatches one event to every handler whose predicate
// matches its type.
func (s *Service) HandleEvent(ctx context.Context, event eventstore.StoredEvent) error {
	ctx, span := s.tracer.Start(ctx, "projection.handle_event",
		trace.WithAttributes(
			attribute.String("event.type", event.EventType),
			attribute.String("aggregate.id", event.AggregateID.String()),
		),
	)
	defer span.End()

	for _, handler := range s.handlers {
		if !handler.HandlesEventType(event.EventType) {
			continue
		}
		if err := handler.Handle(ctx, event); err != nil {
			return fmt.Errorf("handle %s event: %w", event.EventType, err)
		}
		if s.applied != nil {
			s.applied.Add(ctx, 1, metric.WithAttributes(
				attribute.String("aggregate.type", handler.AggregateType()),
			))
		}
	}
	return nil
}

// RebuildAll fetches the entire event log and rebuilds every known
// projection from scratch. Returns applied event counts per aggregate
// type. Used for recovery and schema migration.
func (s *Service) RebuildAll(ctx context.Context) (map[string]int, error) {
	ctx, span := s.tracer.Start(ctx, "projection.rebuild_all")
	defer span.End()

	events, err := s.source.GetAllEvents(ctx, "", time.Time{}, 0)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	log.Printf("[INFO] rebuilding projections from %d events", len(events))

	counts := make(map[string]int)
	for _, handler := range s.handlers {
		var matching []eventstore.StoredEvent
		for _, event := range events {
			if event.AggregateType == handler.AggregateType() {
				matching = append(matching, event)
			}
		}
		if len(matching) == 0 {
			continue
		}
		if err := handler.RebuildFromEvents(ctx, matching); err != nil {
			return nil, fmt.Errorf("rebuild %s projections: %w", handler.AggregateType(), err)
		}
		counts[handler.AggregateType()] = len(matching)
		log.Printf("[INFO] rebuilt %s projections from %d events", handler.AggregateType(), len(matching))
	}

	span.SetAttributes(attribute.Int("events.replayed", len(events)))
	return counts, nil
}

// RebuildFromTimestamp applies events occurring at or after ts through the
// incremental handle path. It does not truncate tables. Returns applied
// event counts per aggregate type.
func (s *Service) RebuildFromTimestamp(ctx context.Context, ts time.Time) (map[string]int, error) {
	ctx, span := s.tracer.Start(ctx, "projection.rebuild_from_timestamp",
		trace.WithAttributes(attribute.String("from.timestamp", ts.Format(time.RFC3339))),
	)
	defer span.End()

	events, err := s.source.GetAllEvents(ctx, "", ts, 0)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	counts := make(map[string]int)
	for _, event := range events {
		if err := s.HandleEvent(ctx, event); err != nil {
			return nil, err
		}
		counts[event.AggregateType]++
	}

	span.SetAttributes(attribute.Int("events.replayed", len(events)))
	return counts, nil
}

// sortByAggregateVersion orders events for deterministic replay.
func sortByAggregateVersion(events []eventstore.StoredEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].AggregateID != events[j].AggregateID {
			return events[i].AggregateID.String() < events[j].AggregateID.String()
		}
		return events[i].Version < events[j].Version
	})
}
