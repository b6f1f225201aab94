package http

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	for _, offset := range []int{0, 1, 20, 1000} {
		got, err := decodeCursor(encodeCursor(offset))
		require.NoError(t, err)
		assert.Equal(t, offset, got)
	}
}

func TestDecodeCursorEmptyIsZero(t *testing.T) {
	got, err := decodeCursor("")
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	cases := map[string]string{
		"not base64":  "!!!",
		"not numeric": base64.StdEncoding.EncodeToString([]byte("abc")),
		"negative":    base64.StdEncoding.EncodeToString([]byte("-3")),
	}
	for name, cursor := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeCursor(cursor)
			assert.ErrorIs(t, err, errBadCursor)
		})
	}
}
