package commentcard

import "github.com/eringen/commentcard/card"

// GenerateRequest is the body of POST /api/generate. Style fields are read
// from the same body as query-style parameters.
type GenerateRequest struct {
	URL      string `json:"url" form:"url"`
	Renderer string `json:"renderer" form:"renderer"` // "raster" (default) or "browser"
}

// GenerateResponse is returned by POST /api/generate.
type GenerateResponse struct {
	PreviewURL string           `json:"previewUrl"`
	CommentID  string           `json:"commentId"`
	Style      card.StyleConfig `json:"style"`
}

// ErrorResponse is the JSON error body of every /api/ route.
type ErrorResponse struct {
	Error string `json:"error"`
}
