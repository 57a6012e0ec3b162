// Package eventbus propagates domain events to other services over HTTP.
// The bus is an optional collaborator: the authoritative store has already
// recorded the event by the time Publish runs, so an unavailable bus
// degrades to a logged warning instead of failing the operation.
package eventbus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

// Event is the cross-service envelope.
type Event struct {
	ID            string                 `json:"id"`
	Type          string                 `json:"type"`
	Timestamp     time.Time              `json:"timestamp"`
	Payload       map[string]interface{} `json:"payload"`
	SourceService string                 `json:"source_service"`
}

// Publisher sends events to a bus endpoint behind a circuit breaker. A nil
// or unconfigured publisher is valid and publishes nothing.
type Publisher struct {
	endpoint string
	source   string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
}

// NewPublisher creates a publisher for the given bus endpoint. An empty
// endpoint disables cross-service propagation entirely.
func NewPublisher(endpoint, sourceService string) *Publisher {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "eventbus",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[WARNING] event bus circuit breaker %s: %s -> %s", name, from, to)
		},
	})

	return &Publisher{
		endpoint: endpoint,
		source:   sourceService,
		client:   &http.Client{Timeout: 5 * time.Second},
		breaker:  breaker,
	}
}

// Publish propagates one event. Failures are logged, never returned: the
// caller's mutation has already been durably recorded locally.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload map[string]interface{}) {
	if p == nil || p.endpoint == "" {
		return
	}

	event := Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
		SourceService: p.source,
	}

	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.post(ctx, event)
	})
	if err != nil {
		log.Printf("[WARNING] event bus unavailable, skipping propagation of %s: %v", eventType, err)
		return
	}

	log.Printf("[EVENT] published %s", eventType)
}

func (p *Publisher) post(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}
