package extract

import (
	"regexp"
	"strings"
)

// Span is a half-open byte range [Start, End) of a top-level {...} object.
type Span struct {
	Start int
	End   int
}

type scanState int

const (
	stateNormal scanState = iota
	stateInString
	stateInStringEscape
)

// fenceRe matches a Markdown code-fence delimiter with an optional language tag.
var fenceRe = regexp.MustCompile("```[A-Za-z0-9_+.-]*")

// StripFences removes Markdown code-fence delimiters, keeping their content.
func StripFences(text string) string {
	if text == "" {
		return ""
	}
	text = fenceRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Spans returns every maximal top-level object-shaped span in text, in
// order, using a single pass that tracks brace depth outside string literals.
// Nested braces never open a new span, a stray '}' at depth zero is ignored,
// and a span that never closes is dropped.
func Spans(text string) []Span {
	var spans []Span
	state := stateNormal
	depth := 0
	start := -1

	// Byte-wise is safe: every delimiter is ASCII and UTF-8 continuation
	// bytes never collide with ASCII.
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch state {
		case stateInStringEscape:
			state = stateInString

		case stateInString:
			switch c {
			case '\\':
				state = stateInStringEscape
			case '"':
				state = stateNormal
			}

		case stateNormal:
			switch c {
			case '"':
				state = stateInString
			case '{':
				if depth == 0 {
					start = i
				}
				depth++
			case '}':
				if depth == 0 {
					continue
				}
				depth--
				if depth == 0 && start >= 0 {
					spans = append(spans, Span{Start: start, End: i + 1})
					start = -1
				}
			}
		}
	}
	return spans
}
