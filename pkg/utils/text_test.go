package utils

import (
	"reflect"
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("αβγδε", 3); got != "αβγ..." {
		t.Errorf("multibyte: got %s", got)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"The cat sat.", []string{"the", "cat", "sat"}},
		{"  ", []string{}},
		{"x=2, y=3", []string{"x", "2", "y", "3"}},
		{"[MATH] holds", []string{"math", "holds"}},
	}
	for _, tt := range tests {
		got := Tokenize(tt.in)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFields(t *testing.T) {
	got := Fields("We show , that [MATH] = 1 .")
	want := []string{"We", "show", "that", "[MATH]", "1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Fields = %v, want %v", got, want)
	}
}

func TestAlphaRatio(t *testing.T) {
	if got := AlphaRatio("ab 12"); got != 0.5 {
		t.Errorf("AlphaRatio = %v, want 0.5", got)
	}
	if got := AlphaRatio(""); got != 0 {
		t.Errorf("empty AlphaRatio = %v, want 0", got)
	}
	if got := Fraction(1, 3); got < 0.333 || got > 0.334 {
		t.Errorf("Fraction(1,3) = %v", got)
	}
}
