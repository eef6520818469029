// Package card turns raw comment text and style options into a resolved card
// layout. Everything here is pure: no I/O, no shared state.
package card

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	reBreak      = regexp.MustCompile(`(?i)<br\s*/?>`)
	reParaClose  = regexp.MustCompile(`(?i)</p>`)
	reParaOpen   = regexp.MustCompile(`(?i)<p[^>]*>`)
	reBlockClose = regexp.MustCompile(`(?i)</(div|blockquote|h[1-6])>`)
	reBlockOpen  = regexp.MustCompile(`(?i)<(div|blockquote|h[1-6])[^>]*>`)
	reInlineTag  = regexp.MustCompile(`(?i)</?(?:strong|b|em|i|u|span|a|code|pre)[^>]*>`)
	reAnyTag     = regexp.MustCompile(`<[^>]*>`)
	reManyBreaks = regexp.MustCompile(`\n{3,}`)
	reBreakSpace = regexp.MustCompile(`[ \t]*\n[ \t]*`)
	reNumericRef = regexp.MustCompile(`&#(\d+);`)
	reNamedRef   = regexp.MustCompile(`(?i)&([a-z]+);`)
)

// namedRefs is the closed set of named character references that get decoded.
// Anything else is left as written.
var namedRefs = map[string]string{
	"amp":    "&",
	"lt":     "<",
	"gt":     ">",
	"quot":   `"`,
	"apos":   "'",
	"nbsp":   " ",
	"hellip": "...",
	"mdash":  "—",
	"ndash":  "–",
	"rsquo":  "'",
	"lsquo":  "'",
	"rdquo":  "”",
	"ldquo":  "“",
}

// Normalize converts comment text that may carry a restricted HTML subset
// into plain text with explicit line breaks and decoded references.
func Normalize(raw string) string {
	s := reBreak.ReplaceAllString(raw, "\n")
	s = reParaClose.ReplaceAllString(s, "\n\n")
	s = reParaOpen.ReplaceAllString(s, "")
	s = reBlockClose.ReplaceAllString(s, "\n")
	s = reBlockOpen.ReplaceAllString(s, "")
	s = reInlineTag.ReplaceAllString(s, "")
	s = reAnyTag.ReplaceAllString(s, "")
	s = tidyBreaks(s)
	s = decodeRefs(s)
	// Decoded &nbsp; and &#10; can reintroduce padding around breaks.
	s = tidyBreaks(s)
	return strings.TrimSpace(s)
}

func tidyBreaks(s string) string {
	s = reManyBreaks.ReplaceAllString(s, "\n\n")
	s = reBreakSpace.ReplaceAllString(s, "\n")
	return reManyBreaks.ReplaceAllString(s, "\n\n")
}

func decodeRefs(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	s = reNumericRef.ReplaceAllStringFunc(s, func(m string) string {
		n, err := strconv.Atoi(m[2 : len(m)-1])
		if err != nil || n <= 0 || !utf8.ValidRune(rune(n)) {
			return m
		}
		return string(rune(n))
	})
	return reNamedRef.ReplaceAllStringFunc(s, func(m string) string {
		if v, ok := namedRefs[strings.ToLower(m[1:len(m)-1])]; ok {
			return v
		}
		return m
	})
}
