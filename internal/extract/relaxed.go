package extract

import "strings"

var pythonLiterals = map[string]string{
	"True":  "true",
	"False": "false",
	"None":  "null",
}

// normalizeLiterals rewrites Python-style literals into JSON: single-quoted
// strings become double-quoted and True/False/None become true/false/null.
// Text inside double-quoted strings is left alone.
func normalizeLiterals(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			end := skipString(runes, i, '"')
			b.WriteString(string(runes[i:end]))
			i = end - 1

		case r == '\'':
			end := writeSingleQuoted(&b, runes, i)
			i = end - 1

		case r == '/' && i+1 < len(runes) && (runes[i+1] == '/' || runes[i+1] == '*'):
			end := skipComment(runes, i)
			b.WriteString(string(runes[i:end]))
			i = end - 1

		case isIdentStart(r):
			j := i + 1
			for j < len(runes) && isIdentPart(runes[j]) {
				j++
			}
			word := string(runes[i:j])
			if repl, ok := pythonLiterals[word]; ok {
				word = repl
			}
			b.WriteString(word)
			i = j - 1

		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// skipString returns the index just past the string literal opened at i.
func skipString(runes []rune, i int, quote rune) int {
	j := i + 1
	for j < len(runes) {
		switch runes[j] {
		case '\\':
			j += 2
			continue
		case quote:
			return j + 1
		}
		j++
	}
	return len(runes)
}

// skipComment returns the index just past the // or /* comment at i.
func skipComment(runes []rune, i int) int {
	if runes[i+1] == '/' {
		for j := i + 2; j < len(runes); j++ {
			if runes[j] == '\n' {
				return j
			}
		}
		return len(runes)
	}
	for j := i + 2; j+1 < len(runes); j++ {
		if runes[j] == '*' && runes[j+1] == '/' {
			return j + 2
		}
	}
	return len(runes)
}

// writeSingleQuoted emits the single-quoted literal at i as a JSON string and
// returns the index just past it.
func writeSingleQuoted(b *strings.Builder, runes []rune, i int) int {
	b.WriteByte('"')
	j := i + 1
	for j < len(runes) {
		r := runes[j]
		switch r {
		case '\\':
			if j+1 < len(runes) && runes[j+1] == '\'' {
				b.WriteByte('\'')
			} else if j+1 < len(runes) {
				b.WriteRune('\\')
				b.WriteRune(runes[j+1])
			}
			j += 2
			continue
		case '"':
			b.WriteString(`\"`)
		case '\'':
			b.WriteByte('"')
			return j + 1
		default:
			b.WriteRune(r)
		}
		j++
	}
	b.WriteByte('"')
	return len(runes)
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}
