// Package render turns a composed card layout and a comment into PNG bytes.
// Two backends exist: Raster draws the card in-process, Browser screenshots
// an HTML rendition in headless Chrome.
package render

import (
	"context"
	"fmt"

	"github.com/eringen/commentcard/card"
	"github.com/eringen/commentcard/youtube"
)

// Backend renders one card.
type Backend interface {
	Name() string
	Render(ctx context.Context, layout card.Layout, text string, comment youtube.Comment) ([]byte, error)
}

// Error is a rendering failure. Callers report it as a 500 with a generic
// message and log Err.
type Error struct {
	Backend string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render %s: %v", e.Backend, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func fail(backend string, err error) error {
	return &Error{Backend: backend, Err: err}
}
