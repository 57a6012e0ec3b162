package matching

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSuggestion(volunteerID, opportunityID string) *MatchSuggestion {
	return &MatchSuggestion{
		ID:              uuid.New(),
		VolunteerID:     volunteerID,
		OpportunityID:   opportunityID,
		OrganizationID:  "org1",
		Score:           0.85,
		ScoreComponents: map[string]float64{"distance": 1.0, "skills": 0.5, "availability": 1.0},
		Explanation:     []string{"Very close (< 5km)"},
		GeneratedAt:     time.Now().UTC(),
		Status:          SuggestionPending,
	}
}

func TestSuggestionFileRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	repo, err := NewFileRepository(dir)
	require.NoError(t, err)

	created, err := repo.Create(ctx, newSuggestion("vol1", "opp1"))
	require.NoError(t, err)

	_, err = repo.UpdateStatus(ctx, created.ID, SuggestionViewed)
	require.NoError(t, err)

	reopened, err := NewFileRepository(dir)
	require.NoError(t, err)

	got, err := reopened.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, SuggestionViewed, got.Status)
	assert.Equal(t, created.ScoreComponents, got.ScoreComponents)
	assert.Equal(t, created.Explanation, got.Explanation)
}

func TestSuggestionFileRepositoryHistory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	repo, err := NewFileRepository(dir)
	require.NoError(t, err)

	created, err := repo.Create(ctx, newSuggestion("vol1", "opp1"))
	require.NoError(t, err)
	_, err = repo.UpdateStatus(ctx, created.ID, SuggestionApplied)
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, "match_history.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	var types []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry struct {
			EventType string `json:"eventType"`
		}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		types = append(types, entry.EventType)
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{EventSuggestionCreated, EventSuggestionStatusChanged}, types)
}

func TestSuggestionFileRepositoryQueries(t *testing.T) {
	ctx := context.Background()
	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)

	for _, pair := range []struct{ vol, opp string }{
		{"vol1", "opp1"},
		{"vol1", "opp2"},
		{"vol2", "opp1"},
	} {
		_, err := repo.Create(ctx, newSuggestion(pair.vol, pair.opp))
		require.NoError(t, err)
	}

	byVolunteer, err := repo.FindByVolunteer(ctx, "vol1")
	require.NoError(t, err)
	assert.Len(t, byVolunteer, 2)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
