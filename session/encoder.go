package session

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

var errMalformedMarker = errors.New("malformed background marker")

// Encode serializes a session into its persisted JSON form.
func Encode(s *StoredSession) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil session")
	}
	return json.Marshal(s)
}

// Decode parses a persisted session blob. Malformed input and blobs without a
// refresh token both decode to nil; Decode never returns an error for them.
func Decode(data []byte) *StoredSession {
	if len(data) == 0 {
		return nil
	}

	var s StoredSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	if !s.Valid() {
		return nil
	}
	return &s
}

// EncodeMarker renders t as a JSON epoch-millisecond number.
func EncodeMarker(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// DecodeMarker parses a JSON epoch-millisecond number. Fractional values are
// accepted and truncated. Negative and out-of-range values are malformed.
func DecodeMarker(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errMalformedMarker
	}

	var ms json.Number
	if err := json.Unmarshal([]byte(raw), &ms); err != nil {
		return time.Time{}, errMalformedMarker
	}
	if n, err := ms.Int64(); err == nil {
		if n < 0 {
			return time.Time{}, errMalformedMarker
		}
		return time.UnixMilli(n), nil
	}
	f, err := ms.Float64()
	if err != nil || f < 0 || f >= math.MaxInt64 {
		return time.Time{}, errMalformedMarker
	}
	return time.UnixMilli(int64(f)), nil
}
