package utils

import (
	"encoding/base64"
	"strings"

	"github.com/goldenlion52rus/foodgram/domain"
)

// ParseBase64Image decodes an inline "data:image/<subtype>;base64,<payload>"
// string. It returns the raw bytes, the file extension derived from the
// declared MIME subtype and the content type for storage.
func ParseBase64Image(data string) ([]byte, string, string, error) {
	if !strings.HasPrefix(data, "data:image/") {
		return nil, "", "", domain.ErrInvalidImageFormat
	}

	parts := strings.SplitN(data, ";base64,", 2)
	if len(parts) != 2 {
		return nil, "", "", domain.ErrInvalidImageFormat
	}

	contentType := strings.TrimPrefix(parts[0], "data:")
	ext := strings.TrimPrefix(contentType, "image/")
	if ext == "" || strings.ContainsAny(ext, "/\\") {
		return nil, "", "", domain.ErrInvalidImageFormat
	}

	raw, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, "", "", domain.ErrInvalidImageFormat
	}
	if len(raw) == 0 {
		return nil, "", "", domain.ErrInvalidImageFormat
	}

	return raw, ext, contentType, nil
}
