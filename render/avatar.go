package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	maxAvatarBytes     = 2 << 20 // 2MB
	maxAvatarPixels    = 4096 * 4096
	maxAvatarRedirects = 3
)

// AvatarHosts are the hosts YouTube serves author images from. Avatars on
// any other host are replaced by a placeholder.
var AvatarHosts = []string{"yt3.ggpht.com", "yt3.googleusercontent.com"}

var errAvatarHost = errors.New("avatar: host not allowed")

// AllowedAvatarURL reports whether raw is an https URL on one of AvatarHosts.
func AllowedAvatarURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && allowedAvatar(u, AvatarHosts)
}

func allowedAvatar(u *url.URL, hosts []string) bool {
	if u.Scheme != "https" || u.User != nil {
		return false
	}
	return slices.Contains(hosts, strings.ToLower(u.Hostname()))
}

// AvatarLoader downloads author images from AvatarHosts.
type AvatarLoader struct {
	client *http.Client
	hosts  []string
}

// NewAvatarLoader returns a loader using a copy of client, or a client with a
// 5s timeout when nil. Redirects are only followed to allowed hosts.
func NewAvatarLoader(client *http.Client) *AvatarLoader {
	c := &http.Client{Timeout: 5 * time.Second}
	if client != nil {
		cp := *client
		c = &cp
	}
	a := &AvatarLoader{client: c, hosts: AvatarHosts}
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxAvatarRedirects {
			return fmt.Errorf("avatar: stopped after %d redirects", len(via))
		}
		if !allowedAvatar(req.URL, a.hosts) {
			return errAvatarHost
		}
		return nil
	}
	return a
}

// Load fetches rawURL and returns it cropped to a centered square and scaled
// to size x size pixels.
func (a *AvatarLoader) Load(ctx context.Context, rawURL string, size int) (image.Image, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("avatar: empty url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("avatar: %w", err)
	}
	if !allowedAvatar(u, a.hosts) {
		return nil, fmt.Errorf("%w: %q", errAvatarHost, u.Host)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("avatar: fetching %s: %s", u.Redacted(), resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAvatarBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read avatar: %w", err)
	}
	if len(data) > maxAvatarBytes {
		return nil, fmt.Errorf("avatar: body larger than %d bytes", maxAvatarBytes)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode avatar: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxAvatarPixels {
		return nil, fmt.Errorf("avatar: dimensions %dx%d too large", cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode avatar: %w", err)
	}
	return squareThumb(img, size), nil
}

// squareThumb crops the largest centered square out of img and scales it.
func squareThumb(img image.Image, size int) image.Image {
	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	src := image.Rect(0, 0, side, side).Add(image.Pt(
		b.Min.X+(b.Dx()-side)/2,
		b.Min.Y+(b.Dy()-side)/2,
	))
	if size <= 0 {
		size = side
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)
	return dst
}
