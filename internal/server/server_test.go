package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tools.zach/dev/servercard/internal/card"
	"tools.zach/dev/servercard/internal/fonts"
	"tools.zach/dev/servercard/internal/status"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// recorder wraps a real renderer and remembers every call.
type recorder struct {
	mu    sync.Mutex
	inner *card.Renderer
	reqs  []card.Request
	snaps []status.Snapshot
}

func (r *recorder) Render(snap status.Snapshot, req card.Request) (*image.RGBA, error) {
	r.mu.Lock()
	r.reqs = append(r.reqs, req)
	r.snaps = append(r.snaps, snap)
	r.mu.Unlock()
	return r.inner.Render(snap, req)
}

func (r *recorder) last(t *testing.T) (status.Snapshot, card.Request) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.reqs) == 0 {
		t.Fatal("renderer was not called")
	}
	return r.snaps[len(r.snaps)-1], r.reqs[len(r.reqs)-1]
}

type probeLog struct {
	mu    sync.Mutex
	addrs []string
}

func (p *probeLog) prober(snap status.Snapshot, err error) status.Prober {
	return status.ProberFunc(func(_ context.Context, address string) (status.Snapshot, error) {
		p.mu.Lock()
		p.addrs = append(p.addrs, address)
		p.mu.Unlock()
		return snap, err
	})
}

func testDefaults() Defaults {
	return Defaults{
		Address:    "mc.example.net",
		Name:       "My Minecraft Server",
		Port:       25565,
		Width:      300,
		Height:     80,
		Multiplier: 1,
		Flags:      card.DefaultFlags(),
		Location:   time.UTC,
	}
}

func newTestServer(t *testing.T, p status.Prober) (*Server, *recorder) {
	t.Helper()
	rec := &recorder{inner: card.NewRenderer(fonts.Builtin(), card.DefaultTheme(), nil)}
	s := New(Options{
		Renderer:       rec,
		Prober:         p,
		Defaults:       testDefaults(),
		RequestTimeout: 5 * time.Second,
		Version:        "1.2.3",
		Now:            func() time.Time { return fixedNow },
	})
	return s, rec
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func onlineProber(pl *probeLog) status.Prober {
	return pl.prober(status.Snapshot{Online: true, PlayersOnline: 3, PlayersMax: 10, Version: "1.20.1"}, nil)
}

func TestIndex(t *testing.T) {
	s, _ := newTestServer(t, onlineProber(&probeLog{}))
	w := get(t, s, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "/banner.png?address=host:port&name=Friendly+Name") {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestFavicon(t *testing.T) {
	s, _ := newTestServer(t, onlineProber(&probeLog{}))
	w := get(t, s, "/favicon.ico")
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("body length = %d, want 0", w.Body.Len())
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, onlineProber(&probeLog{}))
	w := get(t, s, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["version"] != "1.2.3" {
		t.Errorf("body = %v", body)
	}
}

func TestBannerDefaults(t *testing.T) {
	pl := &probeLog{}
	s, rec := newTestServer(t, onlineProber(pl))

	w := get(t, s, "/banner.png")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%q", w.Code, w.Body.String())
	}
	h := w.Header()
	if got := h.Get("Content-Type"); got != "image/png" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := h.Get("Cache-Control"); got != "no-store, no-cache, must-revalidate, max-age=0" {
		t.Errorf("Cache-Control = %q", got)
	}
	if h.Get("Pragma") != "no-cache" || h.Get("Expires") != "0" {
		t.Errorf("Pragma/Expires = %q/%q", h.Get("Pragma"), h.Get("Expires"))
	}

	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 300 || b.Dy() != 80 {
		t.Errorf("size = %dx%d, want 300x80", b.Dx(), b.Dy())
	}

	if len(pl.addrs) != 1 || pl.addrs[0] != "mc.example.net:25565" {
		t.Errorf("probed %v", pl.addrs)
	}
	_, req := rec.last(t)
	if req.Label != "My Minecraft Server" || req.Address != "mc.example.net:25565" {
		t.Errorf("request = %+v", req)
	}
	if !req.Now.Equal(fixedNow) {
		t.Errorf("Now = %v", req.Now)
	}
}

func TestBannerOverrides(t *testing.T) {
	tests := []struct {
		name  string
		query string
		check func(t *testing.T, req card.Request, probed string)
	}{
		{
			name:  "address and name",
			query: "address=play.example.org:25570&name=Friendly+Name",
			check: func(t *testing.T, req card.Request, probed string) {
				if probed != "play.example.org:25570" || req.Label != "Friendly Name" {
					t.Errorf("probed=%q label=%q", probed, req.Label)
				}
			},
		},
		{
			name:  "port appended to bare host",
			query: "address=play.example.org&port=25599",
			check: func(t *testing.T, req card.Request, probed string) {
				if probed != "play.example.org:25599" {
					t.Errorf("probed = %q", probed)
				}
			},
		},
		{
			name:  "explicit address port wins",
			query: "address=play.example.org:1000&port=25599",
			check: func(t *testing.T, req card.Request, probed string) {
				if probed != "play.example.org:1000" {
					t.Errorf("probed = %q", probed)
				}
			},
		},
		{
			name:  "accent without hash",
			query: "accent=ff8800",
			check: func(t *testing.T, req card.Request, _ string) {
				if req.Accent != "#ff8800" {
					t.Errorf("accent = %q", req.Accent)
				}
			},
		},
		{
			name:  "icon none",
			query: "icon=none",
			check: func(t *testing.T, req card.Request, _ string) {
				if !req.NoIcon {
					t.Error("NoIcon not set")
				}
			},
		},
		{
			name:  "scale multiplies",
			query: "scale=2",
			check: func(t *testing.T, req card.Request, _ string) {
				if req.Multiplier != 2 {
					t.Errorf("multiplier = %v", req.Multiplier)
				}
			},
		},
		{
			name:  "size",
			query: "width=450&height=120",
			check: func(t *testing.T, req card.Request, _ string) {
				if req.Width != 450 || req.Height != 120 {
					t.Errorf("size = %dx%d", req.Width, req.Height)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pl := &probeLog{}
			s, rec := newTestServer(t, onlineProber(pl))
			w := get(t, s, "/banner.png?"+tt.query)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d body=%q", w.Code, w.Body.String())
			}
			_, req := rec.last(t)
			tt.check(t, req, pl.addrs[0])
		})
	}
}

func TestBannerOverridesDoNotLeak(t *testing.T) {
	s, rec := newTestServer(t, onlineProber(&probeLog{}))

	get(t, s, "/banner.png?accent=112233&name=Other&icon=none&scale=2")
	w := get(t, s, "/banner.png")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	_, req := rec.last(t)
	if req.Accent != "" || req.Label != "My Minecraft Server" || req.NoIcon || req.Multiplier != 1 {
		t.Errorf("second request inherited overrides: %+v", req)
	}
}

func TestBannerInvalidParams(t *testing.T) {
	queries := []string{
		"scale=0",
		"scale=-1",
		"scale=abc",
		"scale=4.5",
		"scale=NaN",
		"width=0",
		"width=-5",
		"width=5000",
		"height=abc",
		"port=0",
		"port=70000",
		"port=x",
		"address=host:notaport",
	}
	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			pl := &probeLog{}
			s, rec := newTestServer(t, onlineProber(pl))
			w := get(t, s, "/banner.png?"+q)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if len(pl.addrs) != 0 || len(rec.reqs) != 0 {
				t.Error("invalid request reached the prober or renderer")
			}
		})
	}
}

func TestBannerScaledContentTooLarge(t *testing.T) {
	s, _ := newTestServer(t, onlineProber(&probeLog{}))
	w := get(t, s, "/banner.png?width=4096&height=4096&scale=4")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestBannerProbeFailureStillRenders(t *testing.T) {
	pl := &probeLog{}
	fail := &status.ProbeError{Reason: status.ReasonUnreachable, Err: errors.New("connection refused")}
	s, rec := newTestServer(t, pl.prober(status.Snapshot{}, fail))

	w := get(t, s, "/banner.png")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	snap, _ := rec.last(t)
	if snap.Online {
		t.Error("snapshot is online after probe failure")
	}
	if snap.Failure != status.ReasonUnreachable {
		t.Errorf("failure = %q", snap.Failure)
	}
}

func TestBannerConcurrent(t *testing.T) {
	s, _ := newTestServer(t, onlineProber(&probeLog{}))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/banner.png?accent=00ff00", nil))
			if w.Code != http.StatusOK {
				t.Errorf("status = %d", w.Code)
			}
		}()
	}
	wg.Wait()
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t, onlineProber(&probeLog{}))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
