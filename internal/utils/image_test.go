package utils

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goldenlion52rus/foodgram/domain"
)

func TestParseBase64Image(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("png-bytes"))

	raw, ext, contentType, err := ParseBase64Image("data:image/png;base64," + payload)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), raw)
	assert.Equal(t, "png", ext)
	assert.Equal(t, "image/png", contentType)
}

func TestParseBase64ImageRejectsBadInput(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("bytes"))

	cases := []struct {
		name string
		data string
	}{
		{"not a data uri", "plain text"},
		{"non-image mime", "data:text/plain;base64," + payload},
		{"missing payload marker", "data:image/png," + payload},
		{"invalid base64", "data:image/png;base64,!!!not-base64!!!"},
		{"empty payload", "data:image/png;base64,"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, _, err := ParseBase64Image(tc.data)
			assert.ErrorIs(t, err, domain.ErrInvalidImageFormat)
		})
	}
}
