package util

import "testing"

func TestTruncateRunes(t *testing.T) {
	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 5, "hello..."},
		{"hello", 0, "hello"},
		{"hello", -1, "hello"},
		{"țară frumoasă", 4, "țară..."},
	}
	for _, c := range cases {
		if got := TruncateRunes(c.in, c.max); got != c.want {
			t.Errorf("TruncateRunes(%q, %d) = %q, want %q", c.in, c.max, got, c.want)
		}
	}
}
