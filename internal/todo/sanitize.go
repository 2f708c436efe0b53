package todo

import (
	"strings"
)

// CleanOneLine converts input to a single line, removing fenced code blocks
// (``` … ```). If the result exceeds maxLen runes, it is truncated. It returns
// the cleaned text, and booleans indicating whether content was changed and
// whether it was truncated.
func CleanOneLine(s string, maxLen int) (string, bool, bool) {
	orig := s

	for {
		i := strings.Index(s, "```")
		if i < 0 {
			break
		}
		j := strings.Index(s[i+3:], "```")
		if j < 0 { // opening without closing → drop the rest
			s = s[:i]
			break
		}
		s = s[:i] + " " + s[i+3+j+3:]
	}

	s = strings.Join(strings.Fields(s), " ")

	truncated := false
	if maxLen > 0 {
		sRunes := []rune(s)
		if len(sRunes) > maxLen {
			s = string(sRunes[:maxLen]) + "…"
			truncated = true
		}
	}
	return s, s != orig, truncated
}

// OneLine is CleanOneLine without a length limit.
func OneLine(s string) string {
	out, _, _ := CleanOneLine(s, 0)
	return out
}
