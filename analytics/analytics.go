// Package analytics keeps a privacy-preserving ledger of rendered cards:
// one row per render with the backend, size, outcome and a salted hash of
// the client IP. No raw IPs or comment text are stored.
package analytics

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

// salt holds the per-installation random salt for IP hashing, protected by sync.Once.
var salt struct {
	once  sync.Once
	value string
}

// InitSalt loads or generates a persistent salt for IP hashing.
// Must be called once at startup before any requests are served.
func InitSalt(ctx context.Context, store *Store) error {
	var initErr error
	salt.once.Do(func() {
		s, err := store.GetSetting(ctx, "hash_salt")
		if err != nil {
			initErr = fmt.Errorf("read hash salt: %w", err)
			return
		}
		if s == "" {
			b := make([]byte, 32)
			if _, err := rand.Read(b); err != nil {
				initErr = fmt.Errorf("generate salt: %w", err)
				return
			}
			s = hex.EncodeToString(b)
			if err := store.SetSetting(ctx, "hash_salt", s); err != nil {
				initErr = fmt.Errorf("store hash salt: %w", err)
				return
			}
		}
		salt.value = s
	})
	return initErr
}

// HashIP creates a salted SHA-256 hash of an IP address.
func HashIP(ip string) string {
	h := sha256.New()
	h.Write([]byte(salt.value + ip))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Render is one card render attempt.
type Render struct {
	Backend    string
	CommentID  string
	Width      int
	Height     int
	Bytes      int
	DurationMS int64
	Status     int // HTTP status returned to the client
	IPHash     string
	Device     string
	Bot        bool
	Timestamp  time.Time
}

// OK reports whether the render produced an image.
func (r Render) OK() bool {
	return r.Status < 400
}

// Stats aggregates renders over a period.
type Stats struct {
	Period        string          `json:"period"`
	TotalRenders  int             `json:"total_renders"`
	Failed        int             `json:"failed"`
	UniqueClients int             `json:"unique_clients"`
	TotalBytes    int64           `json:"total_bytes"`
	AvgDurationMS int             `json:"avg_duration_ms"`
	Backends      []BackendStat   `json:"backends"`
	Devices       []DimensionStat `json:"devices"`
	Daily         []DailyRenders  `json:"daily"`
}

// BackendStat summarizes one backend.
type BackendStat struct {
	Name          string `json:"name"`
	Renders       int    `json:"renders"`
	Failed        int    `json:"failed"`
	AvgDurationMS int    `json:"avg_duration_ms"`
}

// DimensionStat is a count for one value of a dimension.
type DimensionStat struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DailyRenders is the number of renders per backend on one UTC day.
type DailyRenders struct {
	Date    string `json:"date"`
	Backend string `json:"backend"`
	Renders int    `json:"renders"`
}

// DeviceClass buckets a User-Agent into Desktop, Mobile, Tablet or Bot.
func DeviceClass(ua string) string {
	ua = strings.ToLower(ua)
	switch {
	case IsBot(ua):
		return "Bot"
	case strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad"):
		// iPad UAs also contain "mobile".
		return "Tablet"
	case strings.Contains(ua, "mobile"):
		return "Mobile"
	default:
		return "Desktop"
	}
}

var botMarkers = []string{
	"bot", "crawler", "spider", "crawl", "slurp", "scrape",
	"facebookexternalhit", "discordbot", "slackbot", "whatsapp",
	"curl/", "wget/", "python-requests", "go-http-client",
}

// IsBot reports whether ua looks like a crawler, link unfurler or script.
func IsBot(ua string) bool {
	ua = strings.ToLower(ua)
	for _, m := range botMarkers {
		if strings.Contains(ua, m) {
			return true
		}
	}
	return false
}
