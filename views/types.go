package views

import "github.com/eringen/commentcard/card"

// SiteConfig holds site-wide settings populated from configuration.
type SiteConfig struct {
	Name string // SITE_NAME (default "Comment Card")
	URL  string // SITE_URL  (default "http://localhost:3000")
}

// CardData is everything a card document shows. Sizes are CSS pixels; the
// browser multiplies them by its device scale factor.
type CardData struct {
	Width        float64
	Height       float64
	Padding      float64
	Radius       float64
	FontSize     float64
	LineHeight   float64
	HeaderHeight float64
	FooterHeight float64
	Gap          float64
	AvatarSize   float64

	Background string
	Text       string
	Muted      string
	Align      card.VerticalAlign

	ShowAvatar bool
	ShowLikes  bool

	AvatarURL string
	Author    string
	Date      string
	Likes     string
	Body      string
}

// IndexData drives the generate form.
type IndexData struct {
	Site       SiteConfig
	Style      card.StyleConfig
	URL        string
	CSRFToken  string
	Error      string
	PreviewURL string
}
