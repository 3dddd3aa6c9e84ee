package service

import (
	"strings"
	"testing"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "  Opening night ", want: "Opening night"},
		{name: "ampersand", input: "Tickets & times?", want: "Tickets & times?"},
		{name: "quotes", input: `O'Neil said "hi"`, want: `O'Neil said "hi"`},
		{name: "tags stripped", input: "<b>bold</b> move", want: "bold move"},
		{name: "escaped markup stays escaped", input: "&lt;b&gt;bold&lt;/b&gt;", want: "&lt;b&gt;bold&lt;/b&gt;"},
		{name: "double escaped ampersand", input: "&amp;lt;script&amp;gt;", want: "&lt;script&gt;"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := sanitizeText(tc.input)
			if got != tc.want {
				t.Fatalf("sanitizeText(%q) = %q, want %q", tc.input, got, tc.want)
			}
			if strings.ContainsAny(got, "<>") {
				t.Fatalf("sanitizeText(%q) kept raw markup: %q", tc.input, got)
			}
		})
	}
}
