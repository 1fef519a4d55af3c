package sanitizer

import (
	"strings"
	"testing"
)

func TestSanitizeIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "atm-01", want: "atm-01"},
		{name: "trimmed", input: "  card_7 ", want: "card_7"},
		{name: "uuid", input: "5f0c7c8e-2d0b-4c55-9d55-0f0f0f0f0f0f", want: "5f0c7c8e-2d0b-4c55-9d55-0f0f0f0f0f0f"},
		{name: "injection", input: `{"$ne": null}`, want: ""},
		{name: "spaces inside", input: "atm 01", want: ""},
		{name: "empty", input: "   ", want: ""},
		{name: "too long", input: strings.Repeat("a", 65), want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeIdentifier(tt.input); got != tt.want {
				t.Errorf("SanitizeIdentifier(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeAccountNumber(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "pl61 1090-1014", want: "PL6110901014"},
		{input: "PL6110901014", want: "PL6110901014"},
		{input: " 1234.5678 ", want: "12345678"},
		{input: "12#34", want: ""},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := SanitizeAccountNumber(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeAccountNumber(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := SanitizeAccountNumber(got); again != got {
				t.Errorf("not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestSanitizePin(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "1234", want: "1234"},
		{input: " 0000 ", want: "0000"},
		{input: "12a4", want: ""},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		if got := SanitizePin(tt.input); got != tt.want {
			t.Errorf("SanitizePin(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSanitizeNote(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "collapses whitespace", input: "  looks   fine\n\tto me ", want: "looks fine to me"},
		{name: "drops control chars", input: "ok\x00\x07 then", want: "ok then"},
		{name: "unicode kept", input: "zgoda   na przelew", want: "zgoda na przelew"},
		{name: "empty", input: " \n ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeNote(tt.input); got != tt.want {
				t.Errorf("SanitizeNote(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	long := strings.Repeat("ż", MaxNoteLength+20)
	if got := []rune(SanitizeNote(long)); len(got) != MaxNoteLength {
		t.Errorf("long note length = %d, want %d", len(got), MaxNoteLength)
	}
}

func TestSanitizeBaseURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "http://aml.internal:8080/", want: "http://aml.internal:8080"},
		{input: " https://AML.example.com/v1// ", want: "https://aml.example.com/v1"},
		{input: "https://aml.example.com/v1?debug=1", want: "https://aml.example.com/v1"},
		{input: "aml.example.com", want: ""},
		{input: "ftp://aml.example.com", want: ""},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		if got := SanitizeBaseURL(tt.input); got != tt.want {
			t.Errorf("SanitizeBaseURL(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
