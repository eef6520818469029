package render

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquareThumb(t *testing.T) {
	thumb := squareThumb(image.NewRGBA(image.Rect(0, 0, 300, 100)), 40)
	assert.Equal(t, image.Rect(0, 0, 40, 40), thumb.Bounds())

	same := squareThumb(image.NewRGBA(image.Rect(10, 10, 60, 90)), 0)
	assert.Equal(t, 50, same.Bounds().Dx())
}

// testAvatarLoader returns a loader that accepts the TLS test server's host.
func testAvatarLoader(srv *httptest.Server) *AvatarLoader {
	loader := NewAvatarLoader(srv.Client())
	loader.hosts = []string{"127.0.0.1"}
	return loader
}

func TestAllowedAvatarURL(t *testing.T) {
	for raw, want := range map[string]bool{
		"https://yt3.ggpht.com/ytc/abc=s88-c-k":          true,
		"https://YT3.GGPHT.COM/a.jpg":                    true,
		"https://yt3.googleusercontent.com/a.jpg":        true,
		"http://yt3.ggpht.com/a.jpg":                     false,
		"https://yt3.ggpht.com.evil.example/a.jpg":       false,
		"https://user@yt3.ggpht.com/a.jpg":               false,
		"https://169.254.169.254/latest/meta-data/":      false,
		"http://localhost:6379/":                         false,
		"file:///etc/passwd":                             false,
		"//yt3.ggpht.com/a.jpg":                          false,
		"":                                               false,
		"https://example.com/?u=https://yt3.ggpht.com/a": false,
	} {
		assert.Equal(t, want, AllowedAvatarURL(raw), raw)
	}
}

func TestAvatarLoaderRejectsDisallowedHosts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		png.Encode(w, image.NewRGBA(image.Rect(0, 0, 4, 4)))
	}))
	defer srv.Close()

	_, err := NewAvatarLoader(srv.Client()).Load(context.Background(), srv.URL+"/a.png", 40)
	require.ErrorIs(t, err, errAvatarHost)
	assert.Zero(t, hits.Load())
}

func TestAvatarLoaderDoesNotFollowRedirectsOffHost(t *testing.T) {
	var hits atomic.Int32
	inner := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer inner.Close()
	srv := httptest.NewTLSServer(http.RedirectHandler(inner.URL+"/secret", http.StatusFound))
	defer srv.Close()

	_, err := testAvatarLoader(srv).Load(context.Background(), srv.URL+"/a.png", 40)
	require.ErrorIs(t, err, errAvatarHost)
	assert.Zero(t, hits.Load())
}

func TestAvatarLoaderRejectsOversizedDimensions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	body := buf.Bytes()
	// Rewrite the IHDR dimensions to 60000x60000 and fix its checksum.
	binary.BigEndian.PutUint32(body[16:20], 60000)
	binary.BigEndian.PutUint32(body[20:24], 60000)
	binary.BigEndian.PutUint32(body[29:33], crc32.ChecksumIEEE(body[12:29]))

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	_, err := testAvatarLoader(srv).Load(context.Background(), srv.URL+"/bomb.png", 40)
	require.ErrorContains(t, err, "60000x60000 too large")
}

func TestAvatarLoaderRejectsBadResponses(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/garbage" {
			w.Write([]byte("not an image"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	loader := testAvatarLoader(srv)
	_, err := loader.Load(context.Background(), srv.URL+"/missing", 40)
	require.Error(t, err)
	_, err = loader.Load(context.Background(), srv.URL+"/garbage", 40)
	require.Error(t, err)
	_, err = loader.Load(context.Background(), "", 40)
	require.Error(t, err)
}
