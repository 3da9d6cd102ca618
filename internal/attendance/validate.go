package attendance

import (
	"encoding/base64"
	"strings"
)

// DecodeImage decodes a base64 image payload. A browser data URL prefix
// ("data:image/jpeg;base64,") is accepted. The bytes are not inspected further:
// whether they hold a usable face is the extractor's call.
func DecodeImage(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if rest, ok := strings.CutPrefix(payload, "data:"); ok {
		header, data, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(header, ";base64") {
			return nil, ErrInvalidImageFormat
		}
		payload = data
	}
	if payload == "" {
		return nil, ErrInvalidImageFormat
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return nil, ErrInvalidImageFormat
	}
	return data, nil
}
