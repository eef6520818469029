package card

import (
	"math"
	"strings"
	"unicode/utf8"
)

// Approximation parameters for a common sans-serif stack at a 16px reference
// size. They are tuned so that estimates err on the tall side: a little extra
// whitespace is acceptable, clipped text is not.
const (
	CharWidthRatio    = 0.55
	DefaultLineHeight = 1.5
	ReferenceFontSize = 16.0

	headerWithAvatar    = 52.0
	headerWithoutAvatar = 40.0
	footerLikes         = 32.0
	spacingBuffer       = 24.0
	minimumCardHeight   = 150.0
)

func unit(fontSize float64) float64 { return fontSize / ReferenceFontSize }

// HeaderHeight is the height of the author row. The row is taller when it
// holds the avatar next to the name and date.
func HeaderHeight(fontSize float64, withAvatar bool) float64 {
	if withAvatar {
		return headerWithAvatar * unit(fontSize)
	}
	return headerWithoutAvatar * unit(fontSize)
}

// FooterHeight is the height of the like-count row, zero when hidden.
func FooterHeight(fontSize float64, show bool) float64 {
	if !show {
		return 0
	}
	return footerLikes * unit(fontSize)
}

// SpacingBuffer is the space reserved between the header, content and footer.
func SpacingBuffer(fontSize float64) float64 {
	return spacingBuffer * unit(fontSize)
}

// MinimumHeight is the smallest card height the estimator will return.
func MinimumHeight(fontSize float64) float64 {
	return minimumCardHeight * unit(fontSize)
}

// CharsPerLine is how many average-width characters fit in one rendered line.
func CharsPerLine(contentWidth, fontSize, padding float64) int {
	available := math.Max(1, contentWidth-2*padding)
	avgChar := fontSize * CharWidthRatio
	if avgChar <= 0 {
		return 1
	}
	return max(1, int(math.Floor(available/avgChar)))
}

// CountLines simulates word wrap: every source line takes at least one
// rendered line, longer ones take ceil(len/charsPerLine).
func CountLines(text string, charsPerLine int) int {
	if charsPerLine < 1 {
		charsPerLine = 1
	}
	total := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			total++
			continue
		}
		n := utf8.RuneCountInString(line)
		total += max(1, (n+charsPerLine-1)/charsPerLine)
	}
	return total
}

// EstimateHeight predicts the pixel height of a card holding text, using the
// default line height.
func EstimateHeight(text string, contentWidth, fontSize, padding float64, showHeader, showFooter bool) int {
	return EstimateHeightWithLineHeight(text, contentWidth, fontSize, padding, showHeader, showFooter, DefaultLineHeight)
}

// EstimateHeightWithLineHeight is EstimateHeight with an explicit line-height
// multiplier. Callers must pass finite width and font size.
func EstimateHeightWithLineHeight(text string, contentWidth, fontSize, padding float64, showHeader, showFooter bool, lineHeight float64) int {
	lines := CountLines(text, CharsPerLine(contentWidth, fontSize, padding))
	textHeight := float64(lines) * fontSize * lineHeight

	total := textHeight +
		HeaderHeight(fontSize, showHeader) +
		FooterHeight(fontSize, showFooter) +
		2*padding +
		SpacingBuffer(fontSize)

	return int(math.Ceil(math.Max(MinimumHeight(fontSize), total)))
}
