package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "analytics.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHashIPIsSaltedAndStable(t *testing.T) {
	s := newTestStore(t)
	if err := InitSalt(context.Background(), s); err != nil {
		t.Fatalf("InitSalt: %v", err)
	}
	a, b := HashIP("203.0.113.7"), HashIP("203.0.113.7")
	if a != b || len(a) != 16 {
		t.Fatalf("unstable hash %q %q", a, b)
	}
	if a == HashIP("203.0.113.8") {
		t.Fatalf("distinct IPs share a hash")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if v, _ := s.GetSetting(ctx, "missing"); v != "" {
		t.Fatalf("expected empty, got %q", v)
	}
	if err := s.SetSetting(ctx, "k", "1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSetting(ctx, "k", "2"); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.GetSetting(ctx, "k"); v != "2" {
		t.Fatalf("got %q", v)
	}
	if v, _ := s.GetSetting(ctx, "schema_version"); v != "1" {
		t.Fatalf("schema_version = %q", v)
	}
}

func TestGetStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	renders := []Render{
		{Backend: "raster", Width: 1200, Height: 400, Bytes: 1000, DurationMS: 10, Status: 200, IPHash: "a", Device: "Desktop", Timestamp: now},
		{Backend: "raster", Width: 1200, Height: 400, Bytes: 3000, DurationMS: 30, Status: 200, IPHash: "b", Device: "Mobile", Timestamp: now},
		{Backend: "browser", Status: 500, DurationMS: 200, IPHash: "a", Device: "Desktop", Timestamp: now},
		{Backend: "raster", Status: 200, IPHash: "c", Device: "Desktop", Timestamp: now.AddDate(0, 0, -40)},
	}
	for i := range renders {
		if err := s.SaveRender(ctx, &renders[i]); err != nil {
			t.Fatalf("SaveRender: %v", err)
		}
	}

	from, to := calcTimeRange(now, 7)
	stats, err := s.GetStats(ctx, from, to)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalRenders != 3 || stats.Failed != 1 || stats.UniqueClients != 2 || stats.TotalBytes != 4000 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if len(stats.Backends) != 2 || stats.Backends[0].Name != "raster" || stats.Backends[0].Renders != 2 || stats.Backends[0].AvgDurationMS != 20 {
		t.Fatalf("unexpected backends: %+v", stats.Backends)
	}
	if stats.Backends[1].Failed != 1 {
		t.Fatalf("browser failure not counted: %+v", stats.Backends[1])
	}
	if len(stats.Daily) != 2 || stats.Daily[0].Date != now.Format("2006-01-02") {
		t.Fatalf("unexpected daily: %+v", stats.Daily)
	}

	removed, err := s.CleanupOldRenders(ctx, 30)
	if err != nil || removed != 1 {
		t.Fatalf("cleanup removed %d, err %v", removed, err)
	}
}

func TestStatsHandler(t *testing.T) {
	s := newTestStore(t)
	if err := s.SaveRender(context.Background(), &Render{Backend: "raster", Status: 200, IPHash: "x", Device: "Desktop"}); err != nil {
		t.Fatal(err)
	}
	h := NewHandler(s, nil)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/stats?days=3", nil)
	rec := httptest.NewRecorder()
	if err := h.GetStats(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body StatsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.PeriodDays != 3 || body.Stats.TotalRenders != 1 {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/stats?days=0", nil)
	rec = httptest.NewRecorder()
	h.GetStats(e.NewContext(req, rec))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("days=0 status %d", rec.Code)
	}
}

func TestStatsHandlerLimited(t *testing.T) {
	s := newTestStore(t)
	var seen []string
	h := NewHandler(s, func(ip string) bool {
		seen = append(seen, ip)
		return false
	})
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	if err := h.GetStats(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status %d", rec.Code)
	}
	if len(seen) != 1 || seen[0] != "192.0.2.1" {
		t.Fatalf("limiter saw %v", seen)
	}
}

func TestDeviceClass(t *testing.T) {
	cases := map[string]string{
		"Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) Mobile/15E148": "Tablet",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0) Mobile/15E148":      "Mobile",
		"Mozilla/5.0 (X11; Linux x86_64) Chrome/120.0":                "Desktop",
		"Discordbot/2.0": "Bot",
		"curl/8.4.0":     "Bot",
	}
	for ua, want := range cases {
		if got := DeviceClass(ua); got != want {
			t.Fatalf("DeviceClass(%q) = %q, want %q", ua, got, want)
		}
	}
}
