// Package cursor encodes internal record keys as opaque, transport-safe
// pagination cursors. A cursor is unpadded URL-safe base64 of a one-field
// JSON envelope, so it round-trips byte-for-byte and is never interpretable
// by the caller.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/tutorstack/gradebook/internal/model"
)

type envelope struct {
	ID string `json:"id"`
}

// Encode wraps a record key into an opaque cursor string.
func Encode(recordKey string) string {
	raw, _ := json.Marshal(envelope{ID: recordKey})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode unwraps a cursor back into the record key it was encoded from.
// Malformed input fails with ErrInvalidCursor; there is no silent
// fallback to the start of the collection.
func Decode(cur string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cur)
	if err != nil {
		return "", fmt.Errorf("decode cursor %q: %w", cur, model.ErrInvalidCursor)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("parse cursor %q: %w", cur, model.ErrInvalidCursor)
	}
	if env.ID == "" {
		return "", fmt.Errorf("empty cursor %q: %w", cur, model.ErrInvalidCursor)
	}
	return env.ID, nil
}
