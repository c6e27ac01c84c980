package session

import (
	"testing"
	"time"
)

func TestDecodeMarker(t *testing.T) {
	valid := []struct {
		raw  string
		want int64
	}{
		{"1700000000000", 1_700_000_000_000},
		{" 1700000000000\n", 1_700_000_000_000},
		{"1.7e12", 1_700_000_000_000},
		{"1700000000000.9", 1_700_000_000_000},
		{"0", 0},
	}
	for _, tc := range valid {
		got, err := DecodeMarker(tc.raw)
		if err != nil {
			t.Fatalf("DecodeMarker(%q): %v", tc.raw, err)
		}
		if !got.Equal(time.UnixMilli(tc.want)) {
			t.Fatalf("DecodeMarker(%q) = %v, want %v", tc.raw, got, time.UnixMilli(tc.want))
		}
	}

	malformed := []string{
		"",
		"yesterday",
		`"1700000000000"`,
		"-1",
		"-1700000000000",
		"-1.5",
		"9223372036854775808",
		"1e19",
		"1e300",
	}
	for _, raw := range malformed {
		if got, err := DecodeMarker(raw); err == nil {
			t.Fatalf("DecodeMarker(%q) = %v, want error", raw, got)
		}
	}
}
