package card

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidSize is returned when a card resolves to a width or height that
// is not a positive finite number or exceeds the pixel limits.
var ErrInvalidSize = errors.New("invalid image size")

// Limits on the scaled card. Every length is capped at MaxDimension and the
// whole card at MaxPixels.
const (
	MaxDimension = 16384
	MaxPixels    = 1 << 25
)

// InputError is a card request that cannot be rendered as given, such as a
// missing or malformed comment payload. Msg is safe to show to users.
type InputError struct {
	Msg string
	Err error
}

func (e *InputError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// Rect is an integer pixel rectangle.
type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Layout is the fully resolved geometry and style of one card. All sizes are
// already multiplied by the scale factor.
type Layout struct {
	Width           int           `json:"width"`
	Height          int           `json:"height"`
	Padding         int           `json:"padding"`
	BorderRadius    int           `json:"borderRadius"`
	FontSize        float64       `json:"fontSize"`
	LineHeight      float64       `json:"lineHeight"`
	Scale           float64       `json:"scale"`
	BackgroundColor string        `json:"backgroundColor"`
	TextColor       string        `json:"textColor"`
	VerticalAlign   VerticalAlign `json:"verticalAlign"`
	DateFormat      DateFormat    `json:"dateFormat"`
	ShowAuthorImage bool          `json:"showAuthorImage"`
	ShowLikeCount   bool          `json:"showLikeCount"`
	HeaderHeight    int           `json:"headerHeight"`
	FooterHeight    int           `json:"footerHeight"`
	Gap             int           `json:"gap"`
	Content         Rect          `json:"content"`
}

// Compose resolves style into a Layout for the already normalized text.
// The text is only consulted when the style asks for auto sizing.
func Compose(style StyleConfig, text string) (Layout, error) {
	scale := style.Scale
	if scale <= 0 || math.IsNaN(scale) {
		scale = 1
	}

	baseWidth := style.Width
	if baseWidth <= 0 {
		baseWidth = PresetWidth(style.Size)
	}
	baseFont := style.FontSize
	if baseFont <= 0 {
		baseFont = ReferenceFontSize
	}
	baseFont = math.Max(1, baseFont+style.FontSizeAdjust)

	width := baseWidth * scale
	height := style.Height * scale
	padding := math.Max(0, style.Padding) * scale
	radius := math.Max(0, style.CardRadius) * scale
	fontSize := baseFont * scale

	if !withinLimit(width) || !withinLimit(fontSize) || !(padding <= MaxDimension) || !(radius <= MaxDimension) {
		return Layout{}, fmt.Errorf("%w: width %v", ErrInvalidSize, width)
	}

	if style.AutoSize {
		height = float64(EstimateHeight(text, width, fontSize, padding, style.ShowAuthorImage, style.ShowLikeCount))
		if style.AspectRatio > 0 && !math.IsInf(style.AspectRatio, 0) {
			height = math.Max(width/style.AspectRatio, height)
		}
	}
	if !withinLimit(height) || width*height > MaxPixels {
		return Layout{}, fmt.Errorf("%w: %vx%v", ErrInvalidSize, width, height)
	}

	l := Layout{
		Width:           int(math.Round(width)),
		Height:          int(math.Round(height)),
		Padding:         int(math.Round(padding)),
		BorderRadius:    int(math.Round(radius)),
		FontSize:        fontSize,
		LineHeight:      DefaultLineHeight,
		Scale:           scale,
		BackgroundColor: style.BackgroundColor,
		TextColor:       style.TextColor,
		VerticalAlign:   ParseVerticalAlign(string(style.VerticalAlign)),
		DateFormat:      ParseDateFormat(string(style.DateFormat)),
		ShowAuthorImage: style.ShowAuthorImage,
		ShowLikeCount:   style.ShowLikeCount,
		HeaderHeight:    int(math.Ceil(HeaderHeight(fontSize, style.ShowAuthorImage))),
		FooterHeight:    int(math.Ceil(FooterHeight(fontSize, style.ShowLikeCount))),
	}
	l.Gap = int(math.Round(SpacingBuffer(fontSize) / 2))
	l.Content = contentBox(l)
	return l, nil
}

// contentBox is the area left for the comment text once padding, the header,
// the footer and the gaps around the text are taken out.
func contentBox(l Layout) Rect {
	gaps := l.Gap
	if l.ShowLikeCount {
		gaps += l.Gap
	}
	r := Rect{
		X: l.Padding,
		Y: l.Padding + l.HeaderHeight + l.Gap,
		W: max(0, l.Width-2*l.Padding),
	}
	r.H = max(0, l.Height-2*l.Padding-l.HeaderHeight-l.FooterHeight-gaps)
	return r
}

// BlockHeight is the height of header, text and footer stacked together,
// used to place the block according to VerticalAlign.
func (l Layout) BlockHeight(textLines int) int {
	h := l.HeaderHeight + l.Gap + int(math.Ceil(float64(textLines)*l.FontSize*l.LineHeight))
	if l.ShowLikeCount {
		h += l.Gap + l.FooterHeight
	}
	return h
}

// BlockOffset is the y coordinate where a block of height h starts.
func (l Layout) BlockOffset(h int) int {
	free := l.Height - 2*l.Padding - h
	if free <= 0 {
		return l.Padding
	}
	switch l.VerticalAlign {
	case AlignStart:
		return l.Padding
	case AlignEnd:
		return l.Padding + free
	default:
		return l.Padding + free/2
	}
}

// withinLimit reports whether f is a usable scaled length. NaN fails both
// comparisons.
func withinLimit(f float64) bool {
	return f > 0 && f <= MaxDimension
}
