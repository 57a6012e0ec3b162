// Package directory is the in-process implementation of the volunteer and
// opportunity collaborators. It serves a fixed catalog so the matching and
// application services run without external dependencies; production
// deployments swap in the HTTP clients instead.
package directory

import (
	"context"

	"seraaj/internal/matching"
)

var volunteers = map[string]matching.Volunteer{
	"vol1": {
		ID:           "vol1",
		Skills:       []string{"teaching", "administrative", "communication"},
		Location:     matching.Location{Latitude: 30.0444, Longitude: 31.2357}, // Cairo
		Availability: []string{"weekend-morning", "weekend-afternoon", "weekday-evening"},
	},
	"vol2": {
		ID:           "vol2",
		Skills:       []string{"medical", "counseling"},
		Location:     matching.Location{Latitude: 30.0626, Longitude: 31.2497},
		Availability: []string{"weekday-morning", "weekday-afternoon"},
	},
	"vol3": {
		ID:           "vol3",
		Skills:       []string{"technical", "programming", "design"},
		Location:     matching.Location{Latitude: 31.2001, Longitude: 29.9187}, // Alexandria
		Availability: []string{"weekend-morning", "weekend-evening"},
	},
}

var opportunities = []matching.Opportunity{
	{
		ID:             "opp1",
		OrganizationID: "org1",
		Title:          "Teaching Assistant - Mathematics",
		Description:    "Help students with math homework",
		RequiredSkills: []string{"teaching", "communication"},
		TimeSlots:      []string{"weekend-morning", "weekend-afternoon"},
		Location:       matching.Location{Latitude: 30.0626, Longitude: 31.2497},
		Category:       "education",
	},
	{
		ID:             "opp2",
		OrganizationID: "org2",
		Title:          "Medical Volunteer",
		Description:    "Assist in health clinic",
		RequiredSkills: []string{"medical"},
		TimeSlots:      []string{"weekday-morning", "weekday-afternoon"},
		Location:       matching.Location{Latitude: 30.0500, Longitude: 31.2333},
		Category:       "health",
	},
	{
		ID:             "opp3",
		OrganizationID: "org1",
		Title:          "Administrative Support",
		Description:    "Help with office tasks and organization",
		RequiredSkills: []string{"administrative", "communication"},
		TimeSlots:      []string{"weekend-morning", "weekday-evening"},
		Location:       matching.Location{Latitude: 30.0450, Longitude: 31.2350},
		Category:       "administrative",
	},
	{
		ID:             "opp4",
		OrganizationID: "org3",
		Title:          "Website Development",
		Description:    "Build website for NGO",
		RequiredSkills: []string{"technical", "programming", "design"},
		TimeSlots:      []string{"weekend-morning", "weekend-evening"},
		Location:       matching.Location{Latitude: 31.2100, Longitude: 29.9300},
		Category:       "technology",
	},
	{
		ID:             "opp5",
		OrganizationID: "org2",
		Title:          "Counseling Support",
		Description:    "Provide emotional support to patients",
		RequiredSkills: []string{"counseling", "communication"},
		TimeSlots:      []string{"weekday-afternoon", "weekend-afternoon"},
		Location:       matching.Location{Latitude: 30.0400, Longitude: 31.2400},
		Category:       "health",
	},
	{
		ID:             "opp6",
		OrganizationID: "org4",
		Title:          "General Volunteer",
		Description:    "Help with various tasks as needed",
		RequiredSkills: []string{},
		TimeSlots:      []string{"weekend-morning", "weekend-afternoon"},
		Location:       matching.Location{Latitude: 30.0444, Longitude: 31.2357},
		Category:       "general",
	},
}

// Directory serves the fixed volunteer and opportunity catalog.
type Directory struct{}

// New creates a directory.
func New() *Directory {
	return &Directory{}
}

// GetVolunteer returns the volunteer profile for id. Unknown ids resolve
// to a default Cairo-based profile rather than an error.
func (d *Directory) GetVolunteer(_ context.Context, id string) (*matching.Volunteer, error) {
	if v, ok := volunteers[id]; ok {
		return &v, nil
	}
	return &matching.Volunteer{
		ID:           id,
		Skills:       []string{"general"},
		Location:     matching.Location{Latitude: 30.0444, Longitude: 31.2357},
		Availability: []string{"weekend-morning"},
	}, nil
}

// ListOpportunities returns the catalog, optionally filtered by category
// and skills. The skill filter keeps opportunities with no skill
// requirements and those sharing at least one requested skill.
func (d *Directory) ListOpportunities(_ context.Context, filter matching.OpportunityFilter) ([]matching.Opportunity, error) {
	result := make([]matching.Opportunity, 0, len(opportunities))
	for _, opp := range opportunities {
		if filter.Category != "" && opp.Category != filter.Category {
			continue
		}
		if len(filter.Skills) > 0 && len(opp.RequiredSkills) > 0 && !sharesSkill(filter.Skills, opp.RequiredSkills) {
			continue
		}
		result = append(result, opp)
	}
	return result, nil
}

func sharesSkill(wanted, required []string) bool {
	set := make(map[string]struct{}, len(wanted))
	for _, s := range wanted {
		set[s] = struct{}{}
	}
	for _, s := range required {
		if _, ok := set[s]; ok {
			return true
		}
	}
	return false
}
