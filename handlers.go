package commentcard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/eringen/commentcard/analytics"
	"github.com/eringen/commentcard/card"
	"github.com/eringen/commentcard/render"
	"github.com/eringen/commentcard/views"
	"github.com/eringen/commentcard/youtube"
)

const (
	msgRenderFailed = "Error generating image"
	msgTooMany      = "Too many requests. Please try again later."
	msgInvalidURL   = "Invalid YouTube comment URL"
	msgInvalidSize  = "Invalid image size"
)

func (a *App) handleIndex(c echo.Context) error {
	return Render(c, views.Index(a.indexData(c, savedStyle(c))))
}

func (a *App) indexData(c echo.Context, s card.StyleConfig) views.IndexData {
	return views.IndexData{
		Site:      views.SiteConfig{Name: a.Config.Name, URL: a.Config.URL},
		Style:     s,
		URL:       c.QueryParam("url"),
		CSRFToken: CsrfToken(c),
	}
}

// handleGenerateForm is the form variant of generate. Success redirects to
// the card and remembers the chosen options; failure re-renders the form.
func (a *App) handleGenerateForm(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form")
	}
	req := GenerateRequest{URL: form.Get("url"), Renderer: form.Get("renderer")}
	style := card.ParseStyle(form, savedStyle(c))

	resp, err := a.generate(c.Request().Context(), req, style)
	if err != nil {
		code, msg := errorStatus(err)
		logFailure(c, code, err)
		d := a.indexData(c, style)
		d.URL = req.URL
		d.Error = msg
		return RenderStatus(c, code, views.Index(d))
	}
	if err := saveStyle(c, style); err != nil {
		log.Warn().Err(err).Msg("failed to save card preferences")
	}
	return c.Redirect(http.StatusSeeOther, resp.PreviewURL)
}

// handleGenerate accepts JSON or form bodies and returns the card URL.
func (a *App) handleGenerate(c echo.Context) error {
	var (
		req   GenerateRequest
		style = card.DefaultStyle()
	)
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
		}
		payload := struct {
			*GenerateRequest
			*card.StyleConfig
		}{&req, &style}
		if err := json.Unmarshal(body, &payload); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
		}
		// Same validation as query parameters.
		style = card.ParseStyle(style.Values(), card.DefaultStyle())
	} else {
		form, err := c.FormParams()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
		}
		req = GenerateRequest{URL: form.Get("url"), Renderer: form.Get("renderer")}
		style = card.ParseStyle(form, style)
	}

	resp, err := a.generate(c.Request().Context(), req, style)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// generate resolves the comment behind req.URL and builds its card URL.
func (a *App) generate(ctx context.Context, req GenerateRequest, style card.StyleConfig) (*GenerateResponse, error) {
	id := youtube.ExtractCommentID(strings.TrimSpace(req.URL))
	if id == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, msgInvalidURL)
	}
	list, err := a.Comments.FetchComment(ctx, id)
	if err != nil {
		return nil, err
	}
	comment, ok := list.First()
	if !ok {
		return nil, &youtube.APIError{StatusCode: http.StatusNotFound, Message: youtube.MsgNotFound}
	}
	if _, err := card.Compose(style, card.Normalize(comment.Snippet.TextDisplay)); err != nil {
		return nil, err
	}

	path := "/api/card"
	if req.Renderer == "browser" {
		path = "/api/card/browser"
	}
	preview, err := CardURL(path, comment, style)
	if err != nil {
		return nil, err
	}
	return &GenerateResponse{PreviewURL: preview, CommentID: id, Style: style}, nil
}

// handleComment returns the upstream comments.list response for ?id=.
func (a *App) handleComment(c echo.Context) error {
	id := strings.TrimSpace(c.QueryParam("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Comment ID is required")
	}
	list, err := a.Comments.FetchComment(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if _, ok := list.First(); !ok {
		return &youtube.APIError{StatusCode: http.StatusNotFound, Message: youtube.MsgNotFound}
	}
	return c.JSON(http.StatusOK, list)
}

// handleCard renders the card described by the query string with the
// backend returned by pick.
func (a *App) handleCard(pick func() render.Backend) echo.HandlerFunc {
	return func(c echo.Context) error {
		q := c.QueryParams()
		comment, err := decodeComment(q.Get("data"))
		if err != nil {
			return err
		}
		style := card.ParseStyle(q, card.DefaultStyle())
		text := card.Normalize(comment.Snippet.TextDisplay)
		layout, err := card.Compose(style, text)
		if err != nil {
			return err
		}

		backend := pick()
		etag := ETag(backend.Name(), style, comment)
		if etagMatch(c.Request().Header.Get("If-None-Match"), etag) {
			c.Response().Header().Set("ETag", etag)
			c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			return c.NoContent(http.StatusNotModified)
		}

		if !a.renderLimiter.Allow(c.RealIP()) {
			return echo.NewHTTPError(http.StatusTooManyRequests, msgTooMany)
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), a.Config.RenderTimeout)
		defer cancel()

		start := time.Now()
		png, err := backend.Render(ctx, layout, text, comment)
		status := http.StatusOK
		if err != nil {
			status, _ = errorStatus(err)
		}
		a.recordRender(c, analytics.Render{
			Backend:    backend.Name(),
			CommentID:  comment.ID,
			Width:      layout.Width,
			Height:     layout.Height,
			Bytes:      len(png),
			DurationMS: time.Since(start).Milliseconds(),
			Status:     status,
		})
		if err != nil {
			return err
		}
		return writePNG(c, etag, png)
	}
}

// recordRender appends r to the ledger when analytics is enabled. Failures
// are logged and never affect the response.
func (a *App) recordRender(c echo.Context, r analytics.Render) {
	if a.analyticsStore == nil {
		return
	}
	ua := c.Request().UserAgent()
	r.IPHash = analytics.HashIP(c.RealIP())
	r.Device = analytics.DeviceClass(ua)
	r.Bot = analytics.IsBot(ua)
	r.Timestamp = time.Now().UTC()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), 2*time.Second)
	defer cancel()
	if err := a.analyticsStore.SaveRender(ctx, &r); err != nil {
		log.Error().Err(err).Str("backend", r.Backend).Msg("failed to record render")
	}
}

func (a *App) handleHealthz(c echo.Context) error {
	body := map[string]any{"status": "ok"}
	if a.Guard != nil {
		used, limit, err := a.Guard.Usage(c.Request().Context())
		if err != nil {
			log.Warn().Err(err).Msg("quota usage unavailable")
		} else {
			body["quota"] = map[string]int64{"used": used, "limit": limit}
		}
	}
	return c.JSON(http.StatusOK, body)
}

// errorStatus maps an error to the status code and the message shown to
// users. Anything unrecognized is a 500 with a generic message.
func errorStatus(err error) (int, string) {
	var (
		inputErr  *card.InputError
		apiErr    *youtube.APIError
		renderErr *render.Error
		httpErr   *echo.HTTPError
	)
	switch {
	case errors.As(err, &renderErr):
		return http.StatusInternalServerError, msgRenderFailed
	case errors.As(err, &inputErr):
		return http.StatusBadRequest, inputErr.Msg
	case errors.Is(err, card.ErrInvalidSize):
		return http.StatusBadRequest, msgInvalidSize
	case errors.As(err, &apiErr):
		return apiErr.StatusCode, apiErr.Message
	case errors.As(err, &httpErr):
		if msg, ok := httpErr.Message.(string); ok {
			return httpErr.Code, msg
		}
		return httpErr.Code, http.StatusText(httpErr.Code)
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

func logFailure(c echo.Context, code int, err error) {
	if code < http.StatusInternalServerError {
		return
	}
	log.Error().Err(err).
		Str("method", c.Request().Method).
		Str("uri", c.Request().RequestURI).
		Int("status", code).
		Msg("server error")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := errorStatus(err)
	logFailure(c, code, err)

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		_ = c.JSON(code, ErrorResponse{Error: msg})
		return
	}
	_ = c.String(code, msg)
}
