package handlers

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/muandane/special-stack/teamlogos/internal/cache"
	"github.com/muandane/special-stack/teamlogos/internal/logo"
	"github.com/muandane/special-stack/teamlogos/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newLogoService(t *testing.T, respond func(logo.Request) (*logo.Metadata, error)) *logo.Service {
	t.Helper()
	return logo.NewService(logo.FetcherFunc(func(_ context.Context, req logo.Request) (*logo.Metadata, error) {
		return respond(req)
	}), logo.Options{WebPSupported: true, CooldownClientErrors: true, Logger: discard})
}

func logoEngine(h *LogoHandler) *gin.Engine {
	r := gin.New()
	r.GET("/logos/stats", h.Stats)
	r.POST("/logos/preload", h.Preload)
	r.DELETE("/logos/cache", h.ClearCache)
	r.POST("/logos/cache/sweep", h.Sweep)
	r.GET("/logos/:teamId", h.GetLogo)
	return r
}

func TestGetLogoReturnsResultWithInitials(t *testing.T) {
	svc := newLogoService(t, func(req logo.Request) (*logo.Metadata, error) {
		return &logo.Metadata{URL: "/logos/a.webp", FallbackURL: "/logos/a.png", SupportsWebP: true, TeamName: "Alpha"}, nil
	})
	r := logoEngine(NewLogoHandler(svc, discard))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logos/t1?size=medium", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var body struct {
		URL         string `json:"url"`
		FallbackURL string `json:"fallbackUrl"`
		Format      string `json:"format"`
		Initials    string `json:"initials"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.URL != "/logos/a.webp" || body.FallbackURL != "/logos/a.png" || body.Format != "webp" || body.Initials != "A" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestGetLogoMissingRendersInitials(t *testing.T) {
	svc := newLogoService(t, func(logo.Request) (*logo.Metadata, error) {
		return nil, &logo.FetchError{Kind: logo.KindClient, StatusCode: http.StatusNotFound}
	})
	r := logoEngine(NewLogoHandler(svc, discard))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logos/t9?name=Bravo+Six", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body missingLogoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Initials != "BS" || body.TeamID != "t9" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestGetLogoRejectsBadQuery(t *testing.T) {
	svc := newLogoService(t, func(logo.Request) (*logo.Metadata, error) {
		t.Error("fetcher must not be called")
		return nil, nil
	})
	r := logoEngine(NewLogoHandler(svc, discard))

	for _, target := range []string{"/logos/t1?size=huge", "/logos/t1?webp=maybe"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestPreloadAndCacheAdministration(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]logo.Request{}
	svc := newLogoService(t, func(req logo.Request) (*logo.Metadata, error) {
		mu.Lock()
		seen[req.TeamID] = req
		mu.Unlock()
		return &logo.Metadata{URL: "/logos/" + req.TeamID + ".png"}, nil
	})
	r := logoEngine(NewLogoHandler(svc, discard))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/logos/preload",
		strings.NewReader(`{"teamIds":["t1","t2",""],"size":"small","preferWebP":false}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("preload status = %d, body = %s", rec.Code, rec.Body)
	}
	if err := svc.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}

	mu.Lock()
	if len(seen) != 2 || seen["t1"].Size != logo.SizeSmall || seen["t1"].Format != logo.FormatPNG {
		t.Fatalf("preloaded requests = %+v", seen)
	}
	mu.Unlock()

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/logos/stats", nil))
	var stats logo.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Entries != 2 {
		t.Fatalf("entries = %d, want 2", stats.Entries)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/logos/cache/sweep", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"removed":0`) {
		t.Fatalf("sweep = %d %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/logos/cache", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d", rec.Code)
	}
	if got := svc.Stats().Entries; got != 0 {
		t.Fatalf("entries after clear = %d", got)
	}
}

func TestPreloadRejectsMissingTeams(t *testing.T) {
	svc := newLogoService(t, func(logo.Request) (*logo.Metadata, error) { return nil, nil })
	r := logoEngine(NewLogoHandler(svc, discard))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/logos/preload", strings.NewReader(`{"size":"small"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string]storage.Object
	gets    int
}

func (f *fakeObjects) Bucket() string { return "logos" }

func (f *fakeObjects) Get(_ context.Context, key string) (storage.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	obj, ok := f.objects[key]
	if !ok {
		return storage.Object{}, fmt.Errorf("get %s: %w", key, storage.ErrNotFound)
	}
	return obj, nil
}

func (f *fakeObjects) Stat(_ context.Context, key string) (storage.Info, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[key]
	if !ok {
		return storage.Info{}, storage.ErrNotFound
	}
	return obj.Info, nil
}

func newImageEngine(t *testing.T, objects *fakeObjects) (*gin.Engine, *StatsHandler) {
	t.Helper()
	store := cache.NewStore(time.Minute, 0)
	stats := NewStatsHandler(store)
	h, err := NewImageHandler(objects, store, stats, discard)
	if err != nil {
		t.Fatalf("new image handler: %v", err)
	}
	r := gin.New()
	r.GET("/images/*key", h.Get)
	r.HEAD("/images/*key", h.Head)
	r.GET("/stats", stats.Get)
	return r, stats
}

func TestImageHandlerServesAndCaches(t *testing.T) {
	png := []byte("\x89PNG fake image")
	objects := &fakeObjects{objects: map[string]storage.Object{
		"a.png": {Info: storage.Info{ContentType: "image/png", Size: int64(len(png)), ETag: "abc"}, Data: png},
	}}
	r, stats := newImageEngine(t, objects)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/a.png", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !bytes.Equal(rec.Body.Bytes(), png) {
			t.Fatalf("body = %q", rec.Body.Bytes())
		}
		if got := rec.Header().Get("Content-Type"); got != "image/png" {
			t.Fatalf("content type = %q", got)
		}
	}
	if objects.gets != 1 {
		t.Fatalf("storage gets = %d, want 1", objects.gets)
	}
	snap := stats.Snapshot()
	if snap.Hits != 1 || snap.Misses != 1 || snap.EntryCount != 1 {
		t.Fatalf("stats = %+v", snap)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/images/a.png", nil)
	req.Header.Set("If-None-Match", "abc")
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotModified {
		t.Fatalf("conditional status = %d, want 304", rec.Code)
	}
}

func TestImageHandlerGzipsSVG(t *testing.T) {
	svg := []byte("<svg>" + strings.Repeat("<circle r='1'/>", 300) + "</svg>")
	objects := &fakeObjects{objects: map[string]storage.Object{
		"a.svg": {Info: storage.Info{ContentType: "image/svg+xml", Size: int64(len(svg))}, Data: svg},
	}}
	r, _ := newImageEngine(t, objects)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/images/a.svg", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	r.ServeHTTP(rec, req)
	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip encoding, headers = %v", rec.Header())
	}
	zr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	got, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("read gzip: %v", err)
	}
	if !bytes.Equal(got, svg) {
		t.Fatal("decoded body differs")
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/images/a.svg", nil))
	if rec.Header().Get("Content-Encoding") != "" || !bytes.Equal(rec.Body.Bytes(), svg) {
		t.Fatal("expected plain body for clients without gzip")
	}
}

func TestImageHandlerNotFound(t *testing.T) {
	r, _ := newImageEngine(t, &fakeObjects{objects: map[string]storage.Object{}})

	for _, method := range []string{http.MethodGet, http.MethodHead} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, "/images/missing.png", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", method, rec.Code)
		}
	}
}

func TestImageHandlerHead(t *testing.T) {
	objects := &fakeObjects{objects: map[string]storage.Object{
		"a.webp": {Info: storage.Info{ContentType: "image/webp", Size: 42, ETag: "w1"}},
	}}
	r, _ := newImageEngine(t, objects)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/images/a.webp", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Content-Length") != "42" || rec.Header().Get("ETag") != "w1" {
		t.Fatalf("headers = %v", rec.Header())
	}
}

func TestNewImageHandlerRequiresDependencies(t *testing.T) {
	if _, err := NewImageHandler(nil, cache.NewStore(0, 0), nil, nil); err == nil {
		t.Fatal("expected error for nil storage")
	}
	if _, err := NewImageHandler(&fakeObjects{}, nil, nil, nil); err == nil {
		t.Fatal("expected error for nil cache")
	}
}

func TestHealthReportsLogoCounters(t *testing.T) {
	svc := newLogoService(t, func(logo.Request) (*logo.Metadata, error) {
		return &logo.Metadata{URL: "/logos/x.png"}, nil
	})
	h := NewLogoHandler(svc, discard)
	svc.GetLogo(context.Background(), "t1", logo.SizeSmall, false)

	r := gin.New()
	r.GET("/health", h.Health)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"entries":1`) || !strings.Contains(rec.Body.String(), `"status":"healthy"`) {
		t.Fatalf("body = %s", rec.Body)
	}
}
