package capture

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedDataURI is returned for payloads without a comma separator.
var ErrMalformedDataURI = errors.New("malformed data URI")

// DecodeDataURI returns the payload of a "data:<mime>;base64,<payload>"
// string. Everything up to the first comma is ignored.
func DecodeDataURI(uri string) ([]byte, error) {
	_, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return nil, ErrMalformedDataURI
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some encoders drop the padding.
		var rawErr error
		if data, rawErr = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); rawErr != nil {
			return nil, fmt.Errorf("decode base64 payload: %w", err)
		}
	}
	return data, nil
}

// EncodeDataURI formats data as a base64 data URI with the given mime type.
func EncodeDataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
