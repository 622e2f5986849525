package tracker

import (
	"regexp"
	"strings"
)

// The validator cleans raw model output with an ordered list of small pure
// text transforms, composed rather than interleaved. Each transform is
// independently testable and has no knowledge of the others.

var (
	codeFenceRe  = regexp.MustCompile("```[a-zA-Z]*\n?")
	boldMarkerRe = regexp.MustCompile(`\*\*([A-Z]+)\*\*`)
	blankRunRe   = regexp.MustCompile(`\n\s*\n+`)
	headerLineRe = regexp.MustCompile(`(?m)^(BASS|DRUMS|PIANO|SAX)\s*\n?`)
)

// unicodeAccidentals maps typographic sharp/flat/natural glyphs that models
// sometimes emit to the ASCII grammar characters.
var unicodeAccidentals = strings.NewReplacer(
	"♯", "#", // ♯
	"♭", "b", // ♭
	"♮", "", // ♮ (natural: no accidental)
	"♩", "", // ♩ stray quarter-note glyph
)

// StripMarkdown removes code fences and bold markers around headers.
func StripMarkdown(text string) string {
	text = codeFenceRe.ReplaceAllString(text, "")
	return boldMarkerRe.ReplaceAllString(text, "$1")
}

// StripIndexPrefixes removes leading line numbers from every line.
func StripIndexPrefixes(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = StripIndexPrefix(strings.TrimSpace(line))
	}
	return strings.Join(lines, "\n")
}

// NormalizeAccidentals converts Unicode sharp/flat glyphs to ASCII # and b.
func NormalizeAccidentals(text string) string {
	return unicodeAccidentals.Replace(text)
}

// CollapseBlankLines shrinks runs of blank lines to a single newline.
func CollapseBlankLines(text string) string {
	return blankRunRe.ReplaceAllString(strings.TrimSpace(text), "\n")
}

// StripTrailingComment truncates inline commentary on a single line: text
// following "(", "[", or a whitespace-preceded "#", "//", "--". The sharp
// marker requires leading whitespace so accidentals like F#2 survive.
func StripTrailingComment(line string) string {
	cut := len(line)
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '(', '[':
			if i < cut {
				cut = i
			}
		case '#':
			if i > 0 && (line[i-1] == ' ' || line[i-1] == '\t') && i < cut {
				cut = i
			}
		case '/':
			if i+1 < len(line) && line[i+1] == '/' &&
				(i == 0 || line[i-1] == ' ' || line[i-1] == '\t') && i < cut {
				cut = i
			}
		case '-':
			if i+1 < len(line) && line[i+1] == '-' &&
				(i == 0 || line[i-1] == ' ' || line[i-1] == '\t') && i < cut {
				cut = i
			}
		}
		if cut < len(line) {
			break
		}
	}
	return strings.TrimSpace(line[:cut])
}

// StripTrailingComments applies StripTrailingComment to every line.
func StripTrailingComments(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = StripTrailingComment(line)
	}
	return strings.Join(lines, "\n")
}

// StripHeaders removes instrument header lines that leaked into a block that
// should contain only step lines.
func StripHeaders(text string) string {
	return headerLineRe.ReplaceAllString(text, "")
}

// Sanitize runs the full transform chain over one instrument's raw output.
// It is a pure function of its input.
func Sanitize(text string) string {
	text = StripMarkdown(text)
	text = StripHeaders(text)
	text = NormalizeAccidentals(text)
	text = StripIndexPrefixes(text)
	text = StripTrailingComments(text)
	text = CollapseBlankLines(text)
	return text
}
