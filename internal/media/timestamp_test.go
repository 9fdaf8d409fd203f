package media

import "testing"

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"00:00:00:00", 0},
		{"00:00:02:500", 2.5},
		{"00:01:23:500", 83.5},
		{"01:01:01:250", 3661.25},
		{" 00:00:05:00 ", 5},
	}
	for _, tc := range cases {
		got, err := ParseTimestamp(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parse %q: expected %f, got %f", tc.in, tc.want, got)
		}
	}
}

func TestParseTimestampRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "1:23", "00:00:02", "aa:bb:cc:dd", "00:-1:00:00", "00:00:00:00:00"} {
		if _, err := ParseTimestamp(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00:00"},
		{-3, "00:00:00:00"},
		{2.5, "00:00:02:50"},
		{83.5, "00:01:23:50"},
		{3661.25, "01:01:01:25"},
	}
	for _, tc := range cases {
		if got := FormatTimestamp(tc.in); got != tc.want {
			t.Fatalf("format %f: expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
