package utils

import (
	"strings"
	"testing"
)

func TestIsValidNoteID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{name: "generated length", id: "AbC_d-123xZ", want: true},
		{name: "minimum length", id: "abcdef", want: true},
		{name: "too short", id: "abcde", want: false},
		{name: "empty", id: "", want: false},
		{name: "dot", id: "abc.def", want: false},
		{name: "path traversal", id: "../../etc/passwd", want: false},
		{name: "slash", id: "abc/def", want: false},
		{name: "standard base64 plus", id: "abc+defg", want: false},
		{name: "padding", id: "abcdefg=", want: false},
		{name: "trailing newline", id: "abcdefg\n", want: false},
		{name: "unicode", id: "abcdéfg", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidNoteID(tt.id); got != tt.want {
				t.Errorf("IsValidNoteID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestIsValidIV(t *testing.T) {
	tests := []struct {
		name string
		iv   string
		want bool
	}{
		{name: "16 chars", iv: strings.Repeat("A", 16), want: true},
		{name: "12-byte iv encoded", iv: "q83vEjRWeJq83vEj", want: true},
		{name: "15 chars", iv: strings.Repeat("A", 15), want: false},
		{name: "contains space", iv: strings.Repeat("A", 15) + " ", want: false},
		{name: "standard base64 slash", iv: strings.Repeat("A", 15) + "/", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidIV(tt.iv); got != tt.want {
				t.Errorf("IsValidIV(%q) = %v, want %v", tt.iv, got, tt.want)
			}
		})
	}
}

func TestIsValidCiphertext(t *testing.T) {
	tests := []struct {
		name string
		ct   string
		want bool
	}{
		{name: "24 chars", ct: strings.Repeat("B", 24), want: true},
		{name: "url-safe alphabet", ct: "abcXYZ019_-abcXYZ019_-ab", want: true},
		{name: "23 chars", ct: strings.Repeat("B", 23), want: false},
		{name: "control character", ct: strings.Repeat("B", 24) + "\x00", want: false},
		{name: "padding", ct: strings.Repeat("B", 24) + "==", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidCiphertext(tt.ct); got != tt.want {
				t.Errorf("IsValidCiphertext(%q) = %v, want %v", tt.ct, got, tt.want)
			}
		})
	}
}
