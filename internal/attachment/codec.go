package attachment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrBadDataURL reports a payload that does not match the
// data:<mime>;base64,<data> shape. Callers skip the attachment rather than
// failing the submission.
var ErrBadDataURL = errors.New("malformed data URL")

const (
	dataURLPrefix = "data:"
	fallbackMIME  = "application/octet-stream"
)

// DecodeDataURL decodes a self-describing inline attachment payload into its
// MIME type and raw bytes. Decoding is pure: the same input always yields
// identical bytes.
func DecodeDataURL(dataURL string) (string, []byte, error) {
	if !strings.HasPrefix(dataURL, dataURLPrefix) {
		return "", nil, ErrBadDataURL
	}
	meta, payload, ok := strings.Cut(dataURL[len(dataURLPrefix):], ",")
	if !ok {
		return "", nil, ErrBadDataURL
	}

	params := strings.Split(meta, ";")
	mimeType := params[0]
	if mimeType == "" {
		mimeType = fallbackMIME
	}
	base64Marked := false
	for _, param := range params[1:] {
		if param == "base64" {
			base64Marked = true
			break
		}
	}
	if !base64Marked {
		return "", nil, ErrBadDataURL
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrBadDataURL, err)
	}
	return mimeType, data, nil
}

// EncodeDataURL is the inverse of DecodeDataURL.
func EncodeDataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = fallbackMIME
	}
	return dataURLPrefix + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
