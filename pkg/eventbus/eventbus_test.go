package eventbus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversEnvelope(t *testing.T) {
	var (
		mu       sync.Mutex
		received []Event
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var event Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	p := NewPublisher(server.URL, "matching")
	p.Publish(context.Background(), "match.suggestions.generated", map[string]interface{}{
		"volunteerId": "vol1",
		"count":       3,
	})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	event := received[0]
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "match.suggestions.generated", event.Type)
	assert.Equal(t, "matching", event.SourceService)
	assert.Equal(t, "vol1", event.Payload["volunteerId"])
	assert.False(t, event.Timestamp.IsZero())
}

func TestPublishNeverFailsTheCaller(t *testing.T) {
	t.Run("nil publisher", func(t *testing.T) {
		var p *Publisher
		p.Publish(context.Background(), "application.submitted", nil)
	})

	t.Run("empty endpoint", func(t *testing.T) {
		p := NewPublisher("", "applications")
		p.Publish(context.Background(), "application.submitted", nil)
	})

	t.Run("unreachable endpoint", func(t *testing.T) {
		p := NewPublisher("http://127.0.0.1:1", "applications")
		p.Publish(context.Background(), "application.submitted", map[string]interface{}{"k": "v"})
	})
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewPublisher(server.URL, "matching")
	for i := 0; i < 10; i++ {
		p.Publish(context.Background(), "match.suggestions.generated", nil)
	}

	// After three consecutive failures the breaker stops sending.
	assert.Equal(t, 3, requests)
}
