package card

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStyleDefaults(t *testing.T) {
	s := ParseStyle(url.Values{}, DefaultStyle())
	assert.Equal(t, DefaultStyle(), s)
}

func TestParseStyleOverrides(t *testing.T) {
	q, _ := url.ParseQuery("size=large&backgroundColor=%23112233&textColor=fff&cardRadius=4&padding=10" +
		"&fontSize=18&scaleFactor=3&showAuthorImage=0&showLikeCount=0&verticalAlign=end&dateFormat=fr&autoSize=0&width=500&height=200&aspectRatio=1.5")
	s := ParseStyle(q, DefaultStyle())

	assert.Equal(t, "large", s.Size)
	assert.Equal(t, "#112233", s.BackgroundColor)
	assert.Equal(t, "#ffffff", s.TextColor)
	assert.Equal(t, 4.0, s.CardRadius)
	assert.Equal(t, 10.0, s.Padding)
	assert.Equal(t, 18.0, s.FontSize)
	assert.Equal(t, 3.0, s.Scale)
	assert.False(t, s.ShowAuthorImage)
	assert.False(t, s.ShowLikeCount)
	assert.Equal(t, AlignEnd, s.VerticalAlign)
	assert.Equal(t, DateFR, s.DateFormat)
	assert.False(t, s.AutoSize)
	assert.Equal(t, 500.0, s.Width)
	assert.Equal(t, 200.0, s.Height)
	assert.Equal(t, 1.5, s.AspectRatio)
}

func TestParseStyleFallbacks(t *testing.T) {
	q, _ := url.ParseQuery("padding=-5&cardRadius=abc&fontSize=NaN&backgroundColor=notacolor&verticalAlign=middle&dateFormat=de&showLikeCount=yes")
	s := ParseStyle(q, DefaultStyle())

	assert.Equal(t, 24.0, s.Padding)
	assert.Equal(t, 12.0, s.CardRadius)
	assert.Equal(t, 16.0, s.FontSize)
	assert.Equal(t, "#ffffff", s.BackgroundColor)
	assert.Equal(t, AlignCenter, s.VerticalAlign)
	assert.Equal(t, DateUS, s.DateFormat)
	assert.True(t, s.ShowLikeCount)
}

func TestParseStyleScaleAlias(t *testing.T) {
	q, _ := url.ParseQuery("scale=1.5")
	assert.Equal(t, 1.5, ParseStyle(q, DefaultStyle()).Scale)
}

func TestStyleValuesRoundTrip(t *testing.T) {
	s := DefaultStyle()
	s.Size = "small"
	s.AutoSize = false
	s.Width = 640
	s.Height = 360
	s.ShowLikeCount = false
	s.DateFormat = DateFR
	s.FontSizeAdjust = -2

	assert.Equal(t, s, ParseStyle(s.Values(), DefaultStyle()))
}
