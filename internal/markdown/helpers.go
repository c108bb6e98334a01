package markdown

import "strings"

const minFenceLength = 3

// Fence returns a backtick fence longer than any backtick run in input,
// so input can be placed inside a fenced block without closing it early.
func Fence(input string) string {
	longest, current := 0, 0

	for i := range input {
		if input[i] == '`' {
			current++
			longest = max(longest, current)
			continue
		}
		current = 0
	}

	return strings.Repeat("`", max(minFenceLength, longest+1))
}

// FencedBlock wraps input into a fenced block with an optional info string.
func FencedBlock(info string, input string) string {
	fence := Fence(input)

	var b strings.Builder
	b.Grow(len(input) + 2*len(fence) + len(info) + 2)

	b.WriteString(fence)
	b.WriteString(info)
	b.WriteByte('\n')
	b.WriteString(input)
	if !strings.HasSuffix(input, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(fence)

	return b.String()
}
