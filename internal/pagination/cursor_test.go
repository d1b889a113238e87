package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 890123000, time.FixedZone("CET", 3600))

	token := EncodeCursor("event-1", at)
	assert.NotContains(t, token, "=")

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "event-1", cursor.LastID)
	assert.True(t, cursor.Timestamp.Equal(at))
}

func TestDecodeCursor(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		cursor, err := DecodeCursor("")
		require.NoError(t, err)
		assert.Nil(t, cursor)
	})

	for name, token := range map[string]string{
		"not base64":   "%%%",
		"no separator": base64.RawURLEncoding.EncodeToString([]byte("abc")),
		"bad time":     base64.RawURLEncoding.EncodeToString([]byte("yesterday|event-1")),
		"missing id":   base64.RawURLEncoding.EncodeToString([]byte("2026-01-01T00:00:00Z|")),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeCursor(token)
			assert.ErrorIs(t, err, ErrInvalidCursor)
		})
	}
}

func TestEncodeCursorEmptyID(t *testing.T) {
	assert.Empty(t, EncodeCursor("", time.Now()))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 50, ClampLimit(0, 50, 200))
	assert.Equal(t, 50, ClampLimit(-3, 50, 200))
	assert.Equal(t, 10, ClampLimit(10, 50, 200))
	assert.Equal(t, 200, ClampLimit(500, 50, 200))
}
