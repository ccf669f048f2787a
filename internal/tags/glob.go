package tags

import (
	"regexp"
	"strings"
)

// CompileGlob converts a tag glob into an anchored, case-insensitive
// regular expression. "**" crosses path separators, "*" and "?" stay
// within one segment. Every other character is literal.
func CompileGlob(glob string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("(?i)^")
	runes := []rune(glob)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '*' && i+1 < len(runes) && runes[i+1] == '*':
			i++
			// "**/" also matches zero directories
			if i+1 < len(runes) && runes[i+1] == '/' {
				i++
				b.WriteString("(?:.*/)?")
			} else {
				b.WriteString(".*")
			}
		case c == '*':
			b.WriteString("[^/]*")
		case c == '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
