package applications

import (
	"context"

	"github.com/google/uuid"
)

// SubmitApplicationCommand carries the quick-apply request. Applications
// are constructed directly in the submitted state; draft is reachable only
// through direct construction.
type SubmitApplicationCommand struct {
	VolunteerID    string
	OpportunityID  string
	OrganizationID string
	CoverLetter    string
}

// Service defines the interface for the applications service.
type Service interface {
	SubmitApplication(ctx context.Context, cmd SubmitApplicationCommand) (*Application, error)
	UpdateApplicationState(ctx context.Context, id uuid.UUID, action string) (*Application, error)
	GetApplication(ctx context.Context, id uuid.UUID) (*Application, error)
	GetVolunteerApplications(ctx context.Context, volunteerID string) ([]*Application, error)
	GetOpportunityApplications(ctx context.Context, opportunityID string) ([]*Application, error)
	HealthCheck(ctx context.Context) error
}
