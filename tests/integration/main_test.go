// tests/integration/main_test.go
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seraaj/internal/applications"
	"seraaj/internal/directory"
	"seraaj/internal/matching"
)

type TestSuite struct {
	matchingServer     *httptest.Server
	applicationsServer *httptest.Server
}

func setupTestSuite(t *testing.T) *TestSuite {
	t.Helper()

	dir := directory.New()

	matchRepo, err := matching.NewFileRepository(t.TempDir())
	require.NoError(t, err)
	matchHandler := matching.NewHandler(matching.NewService(matchRepo, dir, dir, nil))
	matchRouter := chi.NewRouter()
	matchRouter.Group(matchHandler.Routes)

	appRepo, err := applications.NewFileRepository(t.TempDir())
	require.NoError(t, err)
	appHandler := applications.NewHandler(applications.NewService(appRepo, nil))
	appRouter := chi.NewRouter()
	appRouter.Group(appHandler.Routes)

	ts := &TestSuite{
		matchingServer:     httptest.NewServer(matchRouter),
		applicationsServer: httptest.NewServer(appRouter),
	}
	t.Cleanup(ts.teardown)
	return ts
}

func (ts *TestSuite) teardown() {
	ts.matchingServer.Close()
	ts.applicationsServer.Close()
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewBuffer(data))
	require.NoError(t, err)
	return resp
}

func TestVolunteerJourney(t *testing.T) {
	ts := setupTestSuite(t)

	// Quick match for a known volunteer
	resp := postJSON(t, ts.matchingServer.URL+"/matches/quick", map[string]interface{}{
		"volunteerId": "vol1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var suggestions []matching.MatchSuggestion
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&suggestions))
	resp.Body.Close()
	require.NotEmpty(t, suggestions)
	best := suggestions[0]
	assert.Equal(t, "pending", best.Status)

	// Mark the suggestion viewed, then applied
	for _, status := range []string{"viewed", "applied"} {
		resp = postJSON(t, fmt.Sprintf("%s/suggestions/%s/status", ts.matchingServer.URL, best.ID), map[string]string{
			"status": status,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	// Apply for the suggested opportunity
	resp = postJSON(t, ts.applicationsServer.URL+"/applications", map[string]string{
		"volunteerId":    "vol1",
		"opportunityId":  best.OpportunityID,
		"organizationId": best.OrganizationID,
		"coverLetter":    "Happy to help on weekends",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var application applications.Application
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&application))
	resp.Body.Close()
	assert.Equal(t, applications.StateSubmitted, application.Status)

	// Walk the application through review, acceptance and completion
	for _, action := range []string{"review", "accept", "complete"} {
		resp = postJSON(t, fmt.Sprintf("%s/applications/%s/transition", ts.applicationsServer.URL, application.ID), map[string]string{
			"action": action,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode, "action %q", action)
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&application))
		resp.Body.Close()
	}
	assert.Equal(t, applications.StateCompleted, application.Status)

	// A completed application frees the pair for a new submission
	resp = postJSON(t, ts.applicationsServer.URL+"/applications", map[string]string{
		"volunteerId":   "vol1",
		"opportunityId": best.OpportunityID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func TestDuplicateApplicationRejected(t *testing.T) {
	ts := setupTestSuite(t)

	submit := map[string]string{"volunteerId": "vol2", "opportunityId": "opp2"}

	resp := postJSON(t, ts.applicationsServer.URL+"/applications", submit)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, ts.applicationsServer.URL+"/applications", submit)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}

func TestInvalidTransitionRejectedOverHTTP(t *testing.T) {
	ts := setupTestSuite(t)

	resp := postJSON(t, ts.applicationsServer.URL+"/applications", map[string]string{
		"volunteerId":   "vol3",
		"opportunityId": "opp4",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var application applications.Application
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&application))
	resp.Body.Close()

	// complete straight from submitted is not a legal transition
	resp = postJSON(t, fmt.Sprintf("%s/applications/%s/transition", ts.applicationsServer.URL, application.ID), map[string]string{
		"action": "complete",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()
}

func TestSuggestionListingAndHealth(t *testing.T) {
	ts := setupTestSuite(t)

	resp := postJSON(t, ts.matchingServer.URL+"/matches/generate", map[string]interface{}{
		"volunteerId": "vol3",
		"category":    "technology",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var generated []matching.MatchSuggestion
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&generated))
	resp.Body.Close()
	require.Len(t, generated, 1)
	assert.Equal(t, "opp4", generated[0].OpportunityID)

	resp, err := http.Get(ts.matchingServer.URL + "/suggestions?volunteerId=vol3")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []matching.MatchSuggestion
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	resp.Body.Close()
	assert.Len(t, listed, len(generated))

	for _, url := range []string{ts.matchingServer.URL + "/health", ts.applicationsServer.URL + "/health"} {
		resp, err := http.Get(url)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}
}
