package firestore

import (
	"fmt"
	"time"

	"github.com/nivasa-store/api/internal/platform/pagination"
)

// encodeListCursor packs ordered cursor fields into a page token.
func encodeListCursor(parts ...string) string {
	startAfter := make([]any, 0, len(parts))
	for _, part := range parts {
		startAfter = append(startAfter, part)
	}
	token, err := pagination.EncodeToken(pagination.Cursor{StartAfter: startAfter})
	if err != nil {
		return ""
	}
	return token
}

// decodeListCursor unpacks a page token produced by encodeListCursor,
// checking that it carries the expected number of fields.
func decodeListCursor(token string, want int) ([]string, error) {
	cursor, err := pagination.DecodeToken(token)
	if err != nil {
		return nil, err
	}
	if len(cursor.StartAfter) != want {
		return nil, fmt.Errorf("%w: expected %d cursor fields, got %d", pagination.ErrInvalidPageToken, want, len(cursor.StartAfter))
	}
	parts := make([]string, 0, want)
	for _, raw := range cursor.StartAfter {
		str, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: non-string cursor field", pagination.ErrInvalidPageToken)
		}
		parts = append(parts, str)
	}
	return parts, nil
}

func encodeTimeCursor(ts time.Time, docID string) string {
	return encodeListCursor(ts.UTC().Format(time.RFC3339Nano), docID)
}

func decodeTimeCursor(token string) (time.Time, string, error) {
	parts, err := decodeListCursor(token, 2)
	if err != nil {
		return time.Time{}, "", err
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: bad cursor timestamp: %v", pagination.ErrInvalidPageToken, err)
	}
	return ts, parts[1], nil
}

func chooseTime(primary time.Time, fallback time.Time) time.Time {
	if !primary.IsZero() {
		return primary.UTC()
	}
	if !fallback.IsZero() {
		return fallback.UTC()
	}
	return time.Time{}
}

func cloneAnyMap(values map[string]any) map[string]any {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

func normalizeTimePointer(value *time.Time) *time.Time {
	if value == nil || value.IsZero() {
		return nil
	}
	ts := value.UTC()
	return &ts
}
