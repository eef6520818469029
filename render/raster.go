package render

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"strings"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/eringen/commentcard/card"
	"github.com/eringen/commentcard/youtube"
)

var (
	fontsOnce   sync.Once
	regularFont *truetype.Font
	boldFont    *truetype.Font
	fontsErr    error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		regularFont, fontsErr = truetype.Parse(goregular.TTF)
		if fontsErr != nil {
			return
		}
		boldFont, fontsErr = truetype.Parse(gobold.TTF)
	})
	return fontsErr
}

// face builds a fresh face; faces cache glyphs and must not be shared
// between concurrent renders.
func face(f *truetype.Font, px float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: px, DPI: 72, Hinting: font.HintingNone})
}

// Raster draws cards in-process with gg and the Go fonts.
type Raster struct {
	avatars *AvatarLoader
}

// NewRaster returns a raster backend. A nil loader disables avatars.
func NewRaster(avatars *AvatarLoader) *Raster {
	return &Raster{avatars: avatars}
}

func (r *Raster) Name() string { return "raster" }

// Render draws the card. A failed avatar download falls back to a plain
// circle rather than failing the card.
func (r *Raster) Render(ctx context.Context, l card.Layout, text string, c youtube.Comment) ([]byte, error) {
	start := time.Now()
	png, err := r.render(ctx, l, text, c)
	observe(r.Name(), start, err)
	if err != nil {
		return nil, fail(r.Name(), err)
	}
	return png, nil
}

func (r *Raster) render(ctx context.Context, l card.Layout, text string, c youtube.Comment) ([]byte, error) {
	if l.Width <= 0 || l.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", card.ErrInvalidSize, l.Width, l.Height)
	}
	if err := loadFonts(); err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}

	fs := l.FontSize
	bg := parseColor(l.BackgroundColor, white)
	fg := parseColor(l.TextColor, black)
	muted := MutedColor(l.TextColor, l.BackgroundColor)

	dc := gg.NewContext(l.Width, l.Height)
	dc.SetColor(bg)
	dc.DrawRoundedRectangle(0, 0, float64(l.Width), float64(l.Height), float64(l.BorderRadius))
	dc.Fill()

	body := face(regularFont, fs)
	dc.SetFontFace(body)
	lines := wrapText(dc, text, float64(l.Content.W))
	lineH := fs * l.LineHeight

	y := float64(l.BlockOffset(l.BlockHeight(len(lines))))
	x := float64(l.Padding)

	// Header: optional avatar, then author name over the date.
	headerMid := y + float64(l.HeaderHeight)/2
	if l.ShowAuthorImage {
		d := avatarSize(l)
		r.drawAvatar(ctx, dc, c.Snippet.AuthorProfileImageURL, x, headerMid-d/2, d, muted)
		x += d + fs*0.75
	}
	dc.SetFontFace(face(boldFont, fs))
	dc.SetColor(fg)
	dc.DrawStringAnchored(c.Snippet.AuthorDisplayName, x, headerMid-fs*0.1, 0, 0)
	small := face(regularFont, fs*0.875)
	dc.SetFontFace(small)
	dc.SetColor(muted)
	dc.DrawStringAnchored(FormatDate(c.Snippet.PublishedAt, l.DateFormat), x, headerMid+fs*0.15, 0, 1)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ty := y + float64(l.HeaderHeight+l.Gap)
	dc.SetFontFace(body)
	dc.SetColor(fg)
	for i, line := range lines {
		if line == "" {
			continue
		}
		dc.DrawStringAnchored(line, float64(l.Padding), ty+float64(i)*lineH+lineH/2, 0, 0.35)
	}

	if l.ShowLikeCount {
		fy := ty + float64(len(lines))*lineH + float64(l.Gap)
		dc.SetFontFace(small)
		dc.SetColor(muted)
		dc.DrawStringAnchored(FormatLikes(c.Snippet.LikeCount, l.DateFormat), float64(l.Padding), fy+float64(l.FooterHeight)/2, 0, 0.35)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), ctx.Err()
}

func (r *Raster) drawAvatar(ctx context.Context, dc *gg.Context, url string, x, y, d float64, placeholder color.Color) {
	cx, cy, radius := x+d/2, y+d/2, d/2
	if r.avatars != nil && url != "" {
		img, err := r.avatars.Load(ctx, url, int(d))
		if err == nil {
			dc.Push()
			dc.DrawCircle(cx, cy, radius)
			dc.Clip()
			dc.DrawImage(img, int(x), int(y))
			dc.ResetClip()
			dc.Pop()
			return
		}
		log.Debug().Err(err).Str("url", url).Msg("avatar unavailable")
	}
	dc.SetColor(placeholder)
	dc.DrawCircle(cx, cy, radius)
	dc.Fill()
}

// wrapText splits text into display lines no wider than width. Blank input
// lines are kept as "" and words wider than a line are broken by rune.
func wrapText(dc *gg.Context, text string, width float64) []string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		if strings.TrimSpace(para) == "" {
			out = append(out, "")
			continue
		}
		for _, line := range dc.WordWrap(para, width) {
			out = append(out, breakLong(dc, line, width)...)
		}
	}
	return out
}

func breakLong(dc *gg.Context, line string, width float64) []string {
	if w, _ := dc.MeasureString(line); w <= width || width <= 0 {
		return []string{line}
	}
	var out []string
	var cur []rune
	for _, r := range line {
		next := append(cur, r)
		if w, _ := dc.MeasureString(string(next)); w > width && len(cur) > 0 {
			out = append(out, string(cur))
			next = []rune{r}
		}
		cur = next
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}
