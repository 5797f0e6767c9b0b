package utils

import "testing"

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"$1,299.00", 1299},
		{"1299", 1299},
		{"  99.50 ", 99.5},
		{"$0.99", 0.99},
		{"", 0},
		{"free", 0},
		{"price: 45", 45},
	}
	for _, tc := range cases {
		if got := ParsePrice(tc.in); got != tc.want {
			t.Fatalf("ParsePrice(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
