package extractor

import (
	"strings"
	"unicode"
)

// Normalize collapses whitespace runs: a run that contains a line break
// becomes a single "\n", any other run becomes a single space. The result
// is trimmed. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inRun, runHasNewline := false, false

	flush := func() {
		if !inRun {
			return
		}
		if runHasNewline {
			b.WriteByte('\n')
		} else {
			b.WriteByte(' ')
		}
		inRun, runHasNewline = false, false
	}

	for _, r := range s {
		if unicode.IsSpace(r) {
			inRun = true
			if r == '\n' || r == '\r' {
				runHasNewline = true
			}
			continue
		}

		flush()
		b.WriteRune(r)
	}

	return strings.TrimSpace(b.String())
}
