package stratum

import (
	"errors"
	"testing"
)

func TestParsePath_Normalization(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"", ""},
		{"foo", "foo"},
		{"foo/bar", "foo/bar"},
		{"/foo/bar", "foo/bar"},
		{"foo/bar/", "foo/bar"},
		{"foo//bar", "foo/bar"},
		{"//", ""},
	}

	for _, tt := range tests {
		p, err := ParsePath(tt.in)
		if err != nil {
			t.Fatalf("ParsePath(%q) failed: %v", tt.in, err)
		}
		if p.String() != tt.expected {
			t.Errorf("ParsePath(%q) = %q, want %q", tt.in, p.String(), tt.expected)
		}
	}
}

func TestParsePath_RelativeSegments(t *testing.T) {
	tests := []string{
		".",
		"..",
		"../foo",
		"foo/..",
		"foo/./bar",
		"foo/../bar",
	}

	for _, in := range tests {
		_, err := ParsePath(in)
		if !errors.Is(err, ErrInvalidPath) {
			t.Errorf("ParsePath(%q): expected ErrInvalidPath, got %v", in, err)
		}
	}
}

func TestPath_Equality(t *testing.T) {
	a := MustPath("/foo/bar/")
	b := MustPath("foo//bar")
	if a != b {
		t.Errorf("normalized paths differ: %q vs %q", a.String(), b.String())
	}
}

func TestPath_Child(t *testing.T) {
	p := MustPath("data")
	child, err := p.Child("2024")
	if err != nil {
		t.Fatalf("Child failed: %v", err)
	}
	if child.String() != "data/2024" {
		t.Errorf("Child = %q, want data/2024", child.String())
	}

	if _, err := p.Child(".."); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Child(..): expected ErrInvalidPath, got %v", err)
	}
}

func TestPath_IsEmpty(t *testing.T) {
	if !(Path{}).IsEmpty() {
		t.Error("zero Path should be empty")
	}
	if MustPath("x").IsEmpty() {
		t.Error("non-empty path reported empty")
	}
}
