package applications

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload(t *testing.T) {
	id := uuid.New()

	t.Run("state changed", func(t *testing.T) {
		raw, err := json.Marshal(StateChangedPayload{
			ApplicationID: id,
			PreviousState: StateSubmitted,
			NewState:      StateReviewing,
		})
		require.NoError(t, err)

		decoded, err := DecodePayload(EventStateChanged, raw)
		require.NoError(t, err)

		p, ok := decoded.(*StateChangedPayload)
		require.True(t, ok)
		assert.Equal(t, id, p.ApplicationID)
		assert.Equal(t, StateReviewing, p.NewState)
	})

	t.Run("updated with partial fields", func(t *testing.T) {
		letter := "new letter"
		raw, err := json.Marshal(UpdatedPayload{ApplicationID: id, CoverLetter: &letter})
		require.NoError(t, err)

		decoded, err := DecodePayload(EventUpdated, raw)
		require.NoError(t, err)

		p, ok := decoded.(*UpdatedPayload)
		require.True(t, ok)
		require.NotNil(t, p.CoverLetter)
		assert.Equal(t, letter, *p.CoverLetter)
		assert.Nil(t, p.OrganizationID)
	})

	t.Run("unknown event type fails", func(t *testing.T) {
		_, err := DecodePayload("application.archived", json.RawMessage(`{}`))
		assert.Error(t, err)
	})

	t.Run("malformed payload fails", func(t *testing.T) {
		_, err := DecodePayload(EventCreated, json.RawMessage(`{not json`))
		assert.Error(t, err)
	})
}
