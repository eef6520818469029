package render

import (
	"fmt"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/eringen/commentcard/card"
	"github.com/eringen/commentcard/views"
	"github.com/eringen/commentcard/youtube"
)

const (
	mutedOnBlack = "#666666"
	mutedAlpha   = 0.7
)

// FormatDate renders an RFC 3339 timestamp as M/D/YYYY (us) or DD/MM/YYYY
// (fr) in UTC. Unparseable input is returned unchanged.
func FormatDate(published string, f card.DateFormat) string {
	t, ok := youtube.Snippet{PublishedAt: published}.Published()
	if !ok {
		return published
	}
	t = t.UTC()
	if f == card.DateFR {
		return t.Format("02/01/2006")
	}
	return t.Format("1/2/2006")
}

func printer(f card.DateFormat) *message.Printer {
	if f == card.DateFR {
		return message.NewPrinter(language.French)
	}
	return message.NewPrinter(language.AmericanEnglish)
}

// FormatLikes renders a like count with the digit grouping of the card's
// locale, e.g. "1,234 likes".
func FormatLikes(n int64, f card.DateFormat) string {
	return printer(f).Sprintf("%d likes", n)
}

// parseColor reads a hex colour, falling back to fallback.
func parseColor(hex string, fallback colorful.Color) colorful.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		return fallback
	}
	return c
}

var (
	white = colorful.Color{R: 1, G: 1, B: 1}
	black = colorful.Color{}
)

func isBlack(hex string) bool {
	c, err := colorful.Hex(hex)
	return err == nil && c.Hex() == "#000000"
}

// MutedCSS is the CSS colour of secondary text (date, like count): grey on
// black text, otherwise the text colour at 70% opacity.
func MutedCSS(textHex string) string {
	if isBlack(textHex) {
		return mutedOnBlack
	}
	r, g, b := parseColor(textHex, white).RGB255()
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", r, g, b, "0.7")
}

// MutedColor is MutedCSS flattened onto the background, for the raster
// backend.
func MutedColor(textHex, bgHex string) color.Color {
	if isBlack(textHex) {
		c, _ := colorful.Hex(mutedOnBlack)
		return c
	}
	bg := parseColor(bgHex, white)
	return bg.BlendRgb(parseColor(textHex, white), mutedAlpha).Clamped()
}

// avatarSize is the avatar diameter: 40px at the 16px reference font size.
func avatarSize(l card.Layout) float64 {
	return math.Round(l.FontSize * 2.5)
}

// cardData maps a layout and comment into the HTML document model. The
// document is laid out in CSS pixels, so every size is divided by the scale.
func cardData(l card.Layout, text string, c youtube.Comment) views.CardData {
	s := l.Scale
	if s <= 0 {
		s = 1
	}
	avatar := c.Snippet.AuthorProfileImageURL
	if !AllowedAvatarURL(avatar) {
		avatar = ""
	}
	return views.CardData{
		Width:        float64(l.Width) / s,
		Height:       float64(l.Height) / s,
		Padding:      float64(l.Padding) / s,
		Radius:       float64(l.BorderRadius) / s,
		FontSize:     l.FontSize / s,
		LineHeight:   l.LineHeight,
		HeaderHeight: float64(l.HeaderHeight) / s,
		FooterHeight: float64(l.FooterHeight) / s,
		Gap:          float64(l.Gap) / s,
		AvatarSize:   avatarSize(l) / s,
		Background:   parseColor(l.BackgroundColor, white).Hex(),
		Text:         parseColor(l.TextColor, black).Hex(),
		Muted:        MutedCSS(l.TextColor),
		Align:        l.VerticalAlign,
		ShowAvatar:   l.ShowAuthorImage,
		ShowLikes:    l.ShowLikeCount,
		AvatarURL:    avatar,
		Author:       c.Snippet.AuthorDisplayName,
		Date:         FormatDate(c.Snippet.PublishedAt, l.DateFormat),
		Likes:        FormatLikes(c.Snippet.LikeCount, l.DateFormat),
		Body:         text,
	}
}
