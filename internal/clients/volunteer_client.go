package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"seraaj/internal/matching"
)

// VolunteerClient looks up volunteer profiles from the volunteers service.
type VolunteerClient struct {
	baseURL string
	client  *http.Client
}

func NewVolunteerClient(baseURL string) *VolunteerClient {
	return &VolunteerClient{baseURL: baseURL, client: http.DefaultClient}
}

// GetVolunteer fetches a volunteer profile. The collaborator returns a
// default profile for unknown ids, so a 404 is not expected here.
func (c *VolunteerClient) GetVolunteer(ctx context.Context, id string) (*matching.Volunteer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/volunteers/%s", c.baseURL, id), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var volunteer matching.Volunteer
	if err := json.NewDecoder(resp.Body).Decode(&volunteer); err != nil {
		return nil, err
	}
	return &volunteer, nil
}
