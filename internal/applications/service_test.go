package applications

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	repository, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)
	return NewService(repository, nil)
}

func TestSubmitApplication(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	application, err := svc.SubmitApplication(ctx, SubmitApplicationCommand{
		VolunteerID:    "vol1",
		OpportunityID:  "opp1",
		OrganizationID: "org1",
		CoverLetter:    "I would love to help",
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, application.ID)
	assert.Equal(t, StateSubmitted, application.Status)
	assert.Equal(t, "vol1", application.VolunteerID)
	require.NotNil(t, application.SubmittedAt)
	assert.False(t, application.CreatedAt.IsZero())

	fetched, err := svc.GetApplication(ctx, application.ID)
	require.NoError(t, err)
	assert.Equal(t, application.ID, fetched.ID)
	assert.Equal(t, StateSubmitted, fetched.Status)
}

func TestSubmitApplicationValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	var validation *ValidationError

	_, err := svc.SubmitApplication(ctx, SubmitApplicationCommand{OpportunityID: "opp1"})
	require.ErrorAs(t, err, &validation)

	_, err = svc.SubmitApplication(ctx, SubmitApplicationCommand{VolunteerID: "vol1"})
	require.ErrorAs(t, err, &validation)
}

func TestSubmitApplicationDuplicatePrevention(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	cmd := SubmitApplicationCommand{VolunteerID: "vol1", OpportunityID: "opp1"}

	first, err := svc.SubmitApplication(ctx, cmd)
	require.NoError(t, err)

	// A second active application for the same pair is refused.
	_, err = svc.SubmitApplication(ctx, cmd)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Reason, "already exists")

	// Same volunteer, different opportunity is fine.
	_, err = svc.SubmitApplication(ctx, SubmitApplicationCommand{VolunteerID: "vol1", OpportunityID: "opp2"})
	require.NoError(t, err)

	// Once the first reaches a terminal state the pair frees up.
	_, err = svc.UpdateApplicationState(ctx, first.ID, "cancel")
	require.NoError(t, err)

	_, err = svc.SubmitApplication(ctx, cmd)
	require.NoError(t, err)
}

func TestApplicationLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	application, err := svc.SubmitApplication(ctx, SubmitApplicationCommand{
		VolunteerID:   "vol1",
		OpportunityID: "opp1",
	})
	require.NoError(t, err)

	application, err = svc.UpdateApplicationState(ctx, application.ID, "review")
	require.NoError(t, err)
	assert.Equal(t, StateReviewing, application.Status)
	require.NotNil(t, application.ReviewedAt)

	application, err = svc.UpdateApplicationState(ctx, application.ID, "accept")
	require.NoError(t, err)
	assert.Equal(t, StateAccepted, application.Status)

	application, err = svc.UpdateApplicationState(ctx, application.ID, "complete")
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, application.Status)
}

func TestInvalidTransitionLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	application, err := svc.SubmitApplication(ctx, SubmitApplicationCommand{
		VolunteerID:   "vol1",
		OpportunityID: "opp1",
	})
	require.NoError(t, err)

	// accept straight from submitted skips review.
	_, err = svc.UpdateApplicationState(ctx, application.ID, "accept")
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)

	fetched, err := svc.GetApplication(ctx, application.ID)
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, fetched.Status)
}

func TestTerminalStateRefusesFurtherActions(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	application, err := svc.SubmitApplication(ctx, SubmitApplicationCommand{
		VolunteerID:   "vol1",
		OpportunityID: "opp1",
	})
	require.NoError(t, err)

	_, err = svc.UpdateApplicationState(ctx, application.ID, "cancel")
	require.NoError(t, err)

	for _, action := range []string{"submit", "review", "accept", "reject", "complete", "cancel"} {
		_, err = svc.UpdateApplicationState(ctx, application.ID, action)
		assert.Error(t, err, "action %q", action)
	}
}

func TestUpdateUnknownApplication(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.UpdateApplicationState(ctx, uuid.New(), "review")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListApplications(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	for _, pair := range []struct{ vol, opp string }{
		{"vol1", "opp1"},
		{"vol1", "opp2"},
		{"vol2", "opp1"},
	} {
		_, err := svc.SubmitApplication(ctx, SubmitApplicationCommand{
			VolunteerID:   pair.vol,
			OpportunityID: pair.opp,
		})
		require.NoError(t, err)
	}

	byVolunteer, err := svc.GetVolunteerApplications(ctx, "vol1")
	require.NoError(t, err)
	assert.Len(t, byVolunteer, 2)

	byOpportunity, err := svc.GetOpportunityApplications(ctx, "opp1")
	require.NoError(t, err)
	assert.Len(t, byOpportunity, 2)

	none, err := svc.GetVolunteerApplications(ctx, "vol9")
	require.NoError(t, err)
	assert.Empty(t, none)
}
