package tracker

import (
	"strings"
	"testing"
)

func TestStripMarkdown(t *testing.T) {
	in := "```\nBASS\nC2:80\n```"
	got := StripMarkdown(in)
	if strings.Contains(got, "```") {
		t.Errorf("code fence survived: %q", got)
	}
	if got := StripMarkdown("**BASS**"); got != "BASS" {
		t.Errorf("bold header: got %q, expected BASS", got)
	}
}

func TestNormalizeAccidentals(t *testing.T) {
	tests := []struct {
		in, expected string
	}{
		{"F♯2:90", "F#2:90"},
		{"B♭3:70", "Bb3:70"},
		{"C♮4:80", "C4:80"},
	}
	for _, tt := range tests {
		if got := NormalizeAccidentals(tt.in); got != tt.expected {
			t.Errorf("NormalizeAccidentals(%q) = %q, expected %q", tt.in, got, tt.expected)
		}
	}
}

func TestStripTrailingComment(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected string
	}{
		{name: "hash comment", line: "C2:80 # walking line", expected: "C2:80"},
		{name: "slash comment", line: "C2:80 // groove", expected: "C2:80"},
		{name: "dash comment", line: "C2:80 -- note", expected: "C2:80"},
		{name: "paren annotation", line: "C2:80 (hold)", expected: "C2:80"},
		{name: "bracket annotation", line: "C2:80 [accent]", expected: "C2:80"},
		{name: "sharp accidental survives", line: "F#2:90", expected: "F#2:90"},
		{name: "sharp chord survives", line: "F#2:90,C#3:80", expected: "F#2:90,C#3:80"},
		{name: "accidental then comment", line: "F#2:90 # hihat", expected: "F#2:90"},
		{name: "plain line untouched", line: "C2:80", expected: "C2:80"},
		{name: "rest untouched", line: ".", expected: "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripTrailingComment(tt.line); got != tt.expected {
				t.Errorf("StripTrailingComment(%q) = %q, expected %q", tt.line, got, tt.expected)
			}
		})
	}
}

func TestCollapseBlankLines(t *testing.T) {
	in := "C2:80\n\n\n.\n\n^"
	expected := "C2:80\n.\n^"
	if got := CollapseBlankLines(in); got != expected {
		t.Errorf("CollapseBlankLines = %q, expected %q", got, expected)
	}
}

func TestStripHeaders(t *testing.T) {
	in := "BASS\nC2:80\n."
	got := StripHeaders(in)
	if strings.Contains(got, "BASS") {
		t.Errorf("header survived: %q", got)
	}
}

func TestSanitizeFullChain(t *testing.T) {
	raw := "```\n**BASS**\n1. C2:80 # root\n2. F♯2:90\n\n\n3. .\n4. ^\n```"
	got := Sanitize(raw)
	expected := "C2:80\nF#2:90\n.\n^"
	if got != expected {
		t.Errorf("Sanitize = %q, expected %q", got, expected)
	}
}
