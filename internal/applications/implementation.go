package applications

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"seraaj/pkg/eventbus"
)

// service implements the Service interface.
type service struct {
	repository Repository
	bus        *eventbus.Publisher
}

// NewService creates an applications service over the given repository.
// The bus may be nil; cross-service propagation is optional.
func NewService(repository Repository, bus *eventbus.Publisher) Service {
	return &service{repository: repository, bus: bus}
}

// SubmitApplication creates a new application in the submitted state. At
// most one non-terminal application may exist per (volunteer, opportunity)
// pair; this uniqueness rule lives here, not in the repository.
func (s *service) SubmitApplication(ctx context.Context, cmd SubmitApplicationCommand) (*Application, error) {
	if cmd.VolunteerID == "" {
		return nil, validationErrorf("volunteer ID is required")
	}
	if cmd.OpportunityID == "" {
		return nil, validationErrorf("opportunity ID is required")
	}

	existing, err := s.repository.FindByVolunteer(ctx, cmd.VolunteerID)
	if err != nil {
		return nil, fmt.Errorf("check existing applications: %w", err)
	}
	for _, app := range existing {
		machine, err := NewStateMachine(app.Status)
		if err != nil {
			return nil, err
		}
		if app.OpportunityID == cmd.OpportunityID && !machine.IsTerminal() {
			return nil, validationErrorf("application already exists for this opportunity")
		}
	}

	now := time.Now().UTC()
	application := &Application{
		ID:             uuid.New(),
		VolunteerID:    cmd.VolunteerID,
		OpportunityID:  cmd.OpportunityID,
		OrganizationID: cmd.OrganizationID,
		Status:         StateSubmitted,
		CoverLetter:    cmd.CoverLetter,
		SubmittedAt:    &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	application, err = s.repository.Create(ctx, application)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, EventSubmitted, map[string]interface{}{
		"applicationId": application.ID.String(),
		"volunteerId":   application.VolunteerID,
		"opportunityId": application.OpportunityID,
		"submittedAt":   application.SubmittedAt.Format(time.RFC3339Nano),
	})

	return application, nil
}

// UpdateApplicationState validates action against the state machine, applies
// it and persists the result. Completion triggers the points award and
// completion events.
func (s *service) UpdateApplicationState(ctx context.Context, id uuid.UUID, action string) (*Application, error) {
	application, err := s.repository.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	machine, err := NewStateMachine(application.Status)
	if err != nil {
		return nil, err
	}

	previous := application.Status
	newState, err := machine.Transition(action)
	if err != nil {
		return nil, err
	}
	log.Printf("[STATE] application %s: %s -> %s (action: %s)", id, previous, newState, action)

	now := time.Now().UTC()
	application.Status = newState
	application.UpdatedAt = now

	switch newState {
	case StateReviewing:
		application.ReviewedAt = &now
	case StateSubmitted:
		if application.SubmittedAt == nil {
			application.SubmittedAt = &now
		}
	}

	application, err = s.repository.Update(ctx, application)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, EventStateChanged, map[string]interface{}{
		"applicationId": application.ID.String(),
		"previousState": string(previous),
		"newState":      string(newState),
		"action":        action,
	})

	if newState == StateCompleted {
		s.handleCompletion(ctx, application)
	}

	return application, nil
}

// handleCompletion emits the business-rule side effects layered above the
// state machine: points for the volunteer and the completion notification.
func (s *service) handleCompletion(ctx context.Context, application *Application) {
	s.bus.Publish(ctx, EventPointsAward, map[string]interface{}{
		"volunteerId":   application.VolunteerID,
		"points":        CompletionPoints,
		"reason":        fmt.Sprintf("Completed opportunity application %s", application.ID),
		"applicationId": application.ID.String(),
	})

	s.bus.Publish(ctx, EventCompleted, map[string]interface{}{
		"applicationId": application.ID.String(),
		"volunteerId":   application.VolunteerID,
		"opportunityId": application.OpportunityID,
		"completedAt":   application.UpdatedAt.Format(time.RFC3339Nano),
	})
}

func (s *service) GetApplication(ctx context.Context, id uuid.UUID) (*Application, error) {
	return s.repository.Get(ctx, id)
}

func (s *service) GetVolunteerApplications(ctx context.Context, volunteerID string) ([]*Application, error) {
	return s.repository.FindByVolunteer(ctx, volunteerID)
}

func (s *service) GetOpportunityApplications(ctx context.Context, opportunityID string) ([]*Application, error) {
	return s.repository.FindByOpportunity(ctx, opportunityID)
}

func (s *service) HealthCheck(ctx context.Context) error {
	return s.repository.HealthCheck(ctx)
}
