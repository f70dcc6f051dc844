package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// RemoteError is a failure reported by the external process.
type RemoteError struct {
	// Message is a human readable form of the payload.
	Message string

	// Payload is the raw error field as received, when it came off the wire.
	Payload json.RawMessage
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	return e.Message
}

// NewRemoteError creates a RemoteError carrying only a message.
func NewRemoteError(message string) *RemoteError {
	return &RemoteError{Message: message}
}

// wireResponse is the JSON form of a Response. Older peers name the error
// field "__error".
type wireResponse struct {
	ID          string          `json:"id"`
	Error       json.RawMessage `json:"error,omitempty"`
	LegacyError json.RawMessage `json:"__error,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// EncodeRequest serializes a request envelope.
func EncodeRequest(req Request) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request %s: %w", req.ID, err)
	}
	return data, nil
}

// DecodeRequest parses a request envelope.
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	if req.ID == "" {
		return Request{}, errors.New("decode request: missing id")
	}
	return req, nil
}

// EncodeResponse serializes a response. A *RemoteError with a payload is
// written back verbatim; any other error is written as its message string.
func EncodeResponse(resp Response) ([]byte, error) {
	w := wireResponse{ID: resp.ID}

	if resp.Err != nil {
		var remote *RemoteError
		if errors.As(resp.Err, &remote) && len(remote.Payload) > 0 {
			w.Error = remote.Payload
		} else {
			msg, err := json.Marshal(resp.Err.Error())
			if err != nil {
				return nil, fmt.Errorf("encode response %s: %w", resp.ID, err)
			}
			w.Error = msg
		}
	}

	if resp.Data != nil {
		data, err := json.Marshal(resp.Data)
		if err != nil {
			return nil, fmt.Errorf("encode response %s: %w", resp.ID, err)
		}
		w.Data = data
	}

	return json.Marshal(w)
}

// DecodeResponse parses a response. Data is left as json.RawMessage so the
// caller decides its type; an absent or null field yields nil.
func DecodeResponse(data []byte) (Response, error) {
	var w wireResponse
	if err := json.Unmarshal(data, &w); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	if w.ID == "" {
		return Response{}, errors.New("decode response: missing id")
	}

	resp := Response{ID: w.ID}

	errField := w.Error
	if isNull(errField) {
		errField = w.LegacyError
	}
	if !isNull(errField) {
		resp.Err = remoteErrorFrom(errField)
	}
	if !isNull(w.Data) {
		resp.Data = w.Data
	}
	return resp, nil
}

// remoteErrorFrom extracts a message from a string, an object with a
// "message" field, or falls back to the raw JSON text.
func remoteErrorFrom(raw json.RawMessage) *RemoteError {
	e := &RemoteError{Payload: append(json.RawMessage(nil), raw...)}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		e.Message = s
		return e
	}

	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		e.Message = obj.Message
		return e
	}

	e.Message = string(raw)
	return e
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
