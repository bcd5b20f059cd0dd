package path

import (
	"errors"
	"testing"
)

func TestNormalise(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"images/figure.png", "images/figure.png"},
		{"a/./b", "a/b"},
		{"a//b", "a/b"},
		{"a\\b\\c.bin", "a/b/c.bin"},
		{"data/db.sqlite3", "data/db.sqlite3"},
		{"readme.md", "readme.md"},
		{"trailing/", "trailing"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := Normalise(tc.in)
			if err != nil {
				t.Fatalf("Normalise(%q) unexpected error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("Normalise(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalise_Invalid(t *testing.T) {
	tests := []string{
		"",
		"/abs/path",
		"\\abs\\path",
		"images/../secret",
		"..",
		"../up",
		".",
		"./",
		"//",
		"nul\x00byte",
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			if _, err := Normalise(in); !errors.Is(err, ErrInvalid) {
				t.Errorf("Normalise(%q) = %v, want ErrInvalid", in, err)
			}
		})
	}
}
