package client

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// EncodePayload renders v as compact JSON and base64-encodes the result.
// Every POST body sent to the API uses this encoding.
func EncodePayload(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	raw := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))

	out := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(out, raw)
	return out, nil
}

// DecodePayload reverses EncodePayload into v.
func DecodePayload(data []byte, v any) error {
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(data)))
	n, err := base64.StdEncoding.Decode(raw, bytes.TrimSpace(data))
	if err != nil {
		return fmt.Errorf("decoding base64 payload: %w", err)
	}
	if err := json.Unmarshal(raw[:n], v); err != nil {
		return fmt.Errorf("decoding json payload: %w", err)
	}
	return nil
}
