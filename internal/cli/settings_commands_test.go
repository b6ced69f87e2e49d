package cli

import "testing"

func TestParseFrameRange(t *testing.T) {
	cases := []struct {
		raw        string
		start, end int
	}{
		{"1001-1100", 1001, 1100},
		{" 1-1 ", 1, 1},
		{"-10-20", -10, 20},
		{"-20--5", -20, -5},
	}
	for _, tc := range cases {
		start, end, err := parseFrameRange(tc.raw)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.raw, err)
		}
		if start != tc.start || end != tc.end {
			t.Fatalf("%q: expected %d-%d, got %d-%d", tc.raw, tc.start, tc.end, start, end)
		}
	}
}

func TestParseFrameRangeRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "1001", "-5", "a-b", "10-"} {
		if _, _, err := parseFrameRange(raw); err == nil {
			t.Fatalf("%q: expected error", raw)
		}
	}
}
