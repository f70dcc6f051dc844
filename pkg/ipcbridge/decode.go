package ipcbridge

import (
	"context"
	"encoding/json"
	"fmt"
)

// Decode converts response data into T. Raw JSON from a network transport
// is unmarshalled; a value already of type T is returned as is; anything
// else is converted through its JSON form.
func Decode[T any](data any) (T, error) {
	var out T

	switch v := data.(type) {
	case nil:
		return out, nil
	case T:
		return v, nil
	case json.RawMessage:
		if err := json.Unmarshal(v, &out); err != nil {
			return out, fmt.Errorf("decode response data: %w", err)
		}
		return out, nil
	case []byte:
		if err := json.Unmarshal(v, &out); err != nil {
			return out, fmt.Errorf("decode response data: %w", err)
		}
		return out, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return out, fmt.Errorf("decode response data: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode response data: %w", err)
	}
	return out, nil
}

// Await waits for f and decodes its data into T.
func Await[T any](ctx context.Context, f *Future) (T, error) {
	data, err := f.Wait(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](data)
}
