package card

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Size presets, in unscaled pixels.
var sizePresets = map[string]float64{
	"small":  400,
	"medium": 600,
	"large":  800,
	"xlarge": 1000,
}

const defaultPreset = "medium"

// PresetWidth returns the width for a named preset. Unknown names resolve to
// the medium preset.
func PresetWidth(name string) float64 {
	if w, ok := sizePresets[strings.ToLower(strings.TrimSpace(name))]; ok {
		return w
	}
	return sizePresets[defaultPreset]
}

// VerticalAlign places the content block inside a fixed-height card.
type VerticalAlign string

const (
	AlignStart  VerticalAlign = "start"
	AlignCenter VerticalAlign = "center"
	AlignEnd    VerticalAlign = "end"
)

// ParseVerticalAlign falls back to center for anything unrecognized.
func ParseVerticalAlign(s string) VerticalAlign {
	switch VerticalAlign(strings.ToLower(strings.TrimSpace(s))) {
	case AlignStart:
		return AlignStart
	case AlignEnd:
		return AlignEnd
	default:
		return AlignCenter
	}
}

// DateFormat selects the locale used for the publish date.
type DateFormat string

const (
	DateUS DateFormat = "us"
	DateFR DateFormat = "fr"
)

// ParseDateFormat falls back to us.
func ParseDateFormat(s string) DateFormat {
	if DateFormat(strings.ToLower(strings.TrimSpace(s))) == DateFR {
		return DateFR
	}
	return DateUS
}

// StyleConfig holds the visual options of a card before scaling.
type StyleConfig struct {
	Size        string  `json:"size" yaml:"size"`
	Width       float64 `json:"width,omitempty" yaml:"width"`
	Height      float64 `json:"height,omitempty" yaml:"height"`
	AutoSize    bool    `json:"autoSize" yaml:"autoSize"`
	AspectRatio float64 `json:"aspectRatio,omitempty" yaml:"aspectRatio"`

	BackgroundColor string  `json:"backgroundColor" yaml:"backgroundColor"`
	TextColor       string  `json:"textColor" yaml:"textColor"`
	CardRadius      float64 `json:"cardRadius" yaml:"cardRadius"`
	Padding         float64 `json:"padding" yaml:"padding"`
	FontSize        float64 `json:"fontSize" yaml:"fontSize"`
	FontSizeAdjust  float64 `json:"fontSizeAdjust,omitempty" yaml:"fontSizeAdjust"`
	Scale           float64 `json:"scale" yaml:"scale"`

	ShowAuthorImage bool          `json:"showAuthorImage" yaml:"showAuthorImage"`
	ShowLikeCount   bool          `json:"showLikeCount" yaml:"showLikeCount"`
	VerticalAlign   VerticalAlign `json:"verticalAlign" yaml:"verticalAlign"`
	DateFormat      DateFormat    `json:"dateFormat" yaml:"dateFormat"`
}

// DefaultStyle returns the defaults used by the card endpoints.
func DefaultStyle() StyleConfig {
	return StyleConfig{
		Size:            defaultPreset,
		AutoSize:        true,
		BackgroundColor: "#ffffff",
		TextColor:       "#000000",
		CardRadius:      12,
		Padding:         24,
		FontSize:        16,
		Scale:           2,
		ShowAuthorImage: true,
		ShowLikeCount:   true,
		VerticalAlign:   AlignCenter,
		DateFormat:      DateUS,
	}
}

// ParseStyle overlays query parameters on base. Numbers that do not parse or
// are negative keep the base value; booleans are true unless "0" (autoSize is
// true only for "1"); colours that do not parse keep the base colour.
func ParseStyle(q url.Values, base StyleConfig) StyleConfig {
	s := base
	if v := q.Get("size"); v != "" {
		s.Size = v
	}
	s.Width = numberParam(q, s.Width, "width")
	s.Height = numberParam(q, s.Height, "height")
	s.AspectRatio = numberParam(q, s.AspectRatio, "aspectRatio")
	if v := q.Get("autoSize"); v != "" {
		s.AutoSize = v == "1" || strings.EqualFold(v, "true")
	}
	s.BackgroundColor = colorParam(q.Get("backgroundColor"), s.BackgroundColor)
	s.TextColor = colorParam(q.Get("textColor"), s.TextColor)
	s.CardRadius = numberParam(q, s.CardRadius, "cardRadius")
	s.Padding = numberParam(q, s.Padding, "padding")
	s.FontSize = numberParam(q, s.FontSize, "fontSize")
	if v := q.Get("fontSizeAdjust"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			s.FontSizeAdjust = n
		}
	}
	s.Scale = numberParam(q, s.Scale, "scale", "scaleFactor")
	s.ShowAuthorImage = boolParam(q.Get("showAuthorImage"), s.ShowAuthorImage)
	s.ShowLikeCount = boolParam(q.Get("showLikeCount"), s.ShowLikeCount)
	if v := q.Get("verticalAlign"); v != "" {
		s.VerticalAlign = ParseVerticalAlign(v)
	}
	if v := q.Get("dateFormat"); v != "" {
		s.DateFormat = ParseDateFormat(v)
	}
	return s
}

// Values encodes the style as query parameters understood by ParseStyle.
func (s StyleConfig) Values() url.Values {
	q := url.Values{}
	q.Set("size", s.Size)
	q.Set("autoSize", flag(s.AutoSize))
	if !s.AutoSize {
		q.Set("width", formatNumber(s.Width))
		q.Set("height", formatNumber(s.Height))
	} else if s.Width > 0 {
		q.Set("width", formatNumber(s.Width))
	}
	if s.AspectRatio > 0 {
		q.Set("aspectRatio", formatNumber(s.AspectRatio))
	}
	q.Set("backgroundColor", s.BackgroundColor)
	q.Set("textColor", s.TextColor)
	q.Set("cardRadius", formatNumber(s.CardRadius))
	q.Set("padding", formatNumber(s.Padding))
	q.Set("fontSize", formatNumber(s.FontSize))
	if s.FontSizeAdjust != 0 {
		q.Set("fontSizeAdjust", formatNumber(s.FontSizeAdjust))
	}
	q.Set("scale", formatNumber(s.Scale))
	q.Set("showAuthorImage", flag(s.ShowAuthorImage))
	q.Set("showLikeCount", flag(s.ShowLikeCount))
	q.Set("verticalAlign", string(ParseVerticalAlign(string(s.VerticalAlign))))
	q.Set("dateFormat", string(ParseDateFormat(string(s.DateFormat))))
	return q
}

// numberParam returns the first of keys that parses as a non-negative number.
// Infinity parses; Compose rejects it where it matters.
func numberParam(q url.Values, fallback float64, keys ...string) float64 {
	for _, k := range keys {
		v := q.Get(k)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || n != n || n < 0 {
			return fallback
		}
		return n
	}
	return fallback
}

func boolParam(v string, fallback bool) bool {
	if v == "" {
		return fallback
	}
	return v != "0" && !strings.EqualFold(v, "false")
}

// colorParam accepts #rgb and #rrggbb. The canonical #rrggbb form is returned.
func colorParam(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	if !strings.HasPrefix(v, "#") {
		v = "#" + v
	}
	c, err := colorful.Hex(v)
	if err != nil {
		return fallback
	}
	return c.Hex()
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
