package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"seraaj/internal/matching"
)

// OpportunityClient lists opportunities from the opportunities service.
type OpportunityClient struct {
	baseURL string
	client  *http.Client
}

func NewOpportunityClient(baseURL string) *OpportunityClient {
	return &OpportunityClient{baseURL: baseURL, client: http.DefaultClient}
}

// ListOpportunities fetches the opportunity catalog, forwarding the
// category and skills filters as query parameters.
func (c *OpportunityClient) ListOpportunities(ctx context.Context, filter matching.OpportunityFilter) ([]matching.Opportunity, error) {
	params := url.Values{}
	if filter.Category != "" {
		params.Set("category", filter.Category)
	}
	if len(filter.Skills) > 0 {
		params.Set("skills", strings.Join(filter.Skills, ","))
	}

	endpoint := fmt.Sprintf("%s/opportunities", c.baseURL)
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
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

	var opportunities []matching.Opportunity
	if err := json.NewDecoder(resp.Body).Decode(&opportunities); err != nil {
		return nil, err
	}
	return opportunities, nil
}
