package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seraaj/internal/matching"
)

func TestGetVolunteer(t *testing.T) {
	ctx := context.Background()
	dir := New()

	t.Run("known volunteer", func(t *testing.T) {
		v, err := dir.GetVolunteer(ctx, "vol1")
		require.NoError(t, err)
		assert.Equal(t, "vol1", v.ID)
		assert.Contains(t, v.Skills, "teaching")
	})

	t.Run("unknown volunteer gets the default profile", func(t *testing.T) {
		v, err := dir.GetVolunteer(ctx, "nobody")
		require.NoError(t, err)
		assert.Equal(t, "nobody", v.ID)
		assert.Equal(t, []string{"general"}, v.Skills)
		assert.False(t, v.Location.IsZero())
	})
}

func TestListOpportunities(t *testing.T) {
	ctx := context.Background()
	dir := New()

	t.Run("unfiltered returns the whole catalog", func(t *testing.T) {
		opps, err := dir.ListOpportunities(ctx, matching.OpportunityFilter{})
		require.NoError(t, err)
		assert.Len(t, opps, 6)
	})

	t.Run("category filter", func(t *testing.T) {
		opps, err := dir.ListOpportunities(ctx, matching.OpportunityFilter{Category: "health"})
		require.NoError(t, err)
		require.Len(t, opps, 2)
		for _, opp := range opps {
			assert.Equal(t, "health", opp.Category)
		}
	})

	t.Run("skill filter keeps shared and unrestricted opportunities", func(t *testing.T) {
		opps, err := dir.ListOpportunities(ctx, matching.OpportunityFilter{Skills: []string{"medical"}})
		require.NoError(t, err)

		ids := make(map[string]bool, len(opps))
		for _, opp := range opps {
			ids[opp.ID] = true
		}
		assert.True(t, ids["opp2"], "shares the medical skill")
		assert.True(t, ids["opp6"], "no skill requirements")
		assert.False(t, ids["opp1"], "requires unrelated skills")
	})
}
