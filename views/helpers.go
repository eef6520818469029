package views

import (
	"strconv"

	"github.com/a-h/templ"

	"github.com/eringen/commentcard/card"
)

// px formats a CSS pixel length.
func px(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64) + "px"
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// justify maps a vertical alignment to its flexbox keyword.
func justify(a card.VerticalAlign) string {
	switch a {
	case card.AlignStart:
		return "flex-start"
	case card.AlignEnd:
		return "flex-end"
	default:
		return "center"
	}
}

func esc(s string) string {
	return templ.EscapeString(s)
}

func checked(b bool) string {
	if b {
		return " checked"
	}
	return ""
}

func selected(b bool) string {
	if b {
		return " selected"
	}
	return ""
}
