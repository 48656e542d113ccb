// HTTP handlers for the banner, health and index routes.
//
// Query parsing lives here too: parseBanner turns URL parameters into a
// card.Request, falling back to configured defaults for anything omitted.

package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tools.zach/dev/servercard/internal/card"
	"tools.zach/dev/servercard/internal/status"
)

// Query limits for /banner.png.
const (
	MaxScale     = 4.0
	MaxDimension = 4096
)

const usage = "OK. Use /banner.png or /banner.png?address=host:port&name=Friendly+Name"

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintln(w, usage)
}

func (s *Server) favicon(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	noCache(w)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"version": s.opts.Version,
	})
}

func (s *Server) banner(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseBanner(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap := status.Resolve(r.Context(), s.opts.Prober, req.Address)
	img, err := s.opts.Renderer.Render(snap, req)
	if errors.Is(err, card.ErrInvalidCanvas) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("render failed", "address", req.Address, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := card.EncodePNG(&buf, img); err != nil {
		slog.Error("png encode failed", "error", err)
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}

	noCache(w)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = w.Write(buf.Bytes())
}

// parseBanner merges query overrides onto the defaults.
func (s *Server) parseBanner(q url.Values) (card.Request, error) {
	d := s.opts.Defaults
	req := card.Request{
		Label:      d.Name,
		Address:    d.Address,
		Width:      d.Width,
		Height:     d.Height,
		Multiplier: d.Multiplier,
		Flags:      d.Flags,
		Now:        s.opts.Now(),
		Location:   d.Location,
	}
	if req.Multiplier == 0 {
		req.Multiplier = 1
	}

	if v := strings.TrimSpace(q.Get("address")); v != "" {
		req.Address = v
	}
	if v := strings.TrimSpace(q.Get("name")); v != "" {
		req.Label = v
	}

	port := d.Port
	if v := q.Get("port"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > math.MaxUint16 {
			return card.Request{}, fmt.Errorf("invalid port %q", v)
		}
		port = n
	}
	req.Address = status.WithPort(req.Address, port)
	if _, _, _, err := status.ParseAddress(req.Address); err != nil {
		return card.Request{}, fmt.Errorf("invalid address %q", req.Address)
	}

	if v := strings.TrimSpace(q.Get("accent")); v != "" {
		req.Accent = "#" + strings.TrimLeft(v, "#")
	}
	req.NoIcon = q.Get("icon") == "none"

	if v := q.Get("scale"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || !(f > 0) || f > MaxScale {
			return card.Request{}, fmt.Errorf("invalid scale %q: must be in (0, %g]", v, MaxScale)
		}
		req.Multiplier *= f
	}

	var err error
	if req.Width, err = dimension(q, "width", req.Width); err != nil {
		return card.Request{}, err
	}
	if req.Height, err = dimension(q, "height", req.Height); err != nil {
		return card.Request{}, err
	}

	if err := card.Validate(req); err != nil {
		return card.Request{}, err
	}
	return req, nil
}

func dimension(q url.Values, key string, fallback int) (int, error) {
	v := q.Get(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > MaxDimension {
		return 0, fmt.Errorf("invalid %s %q: must be 1-%d", key, v, MaxDimension)
	}
	return n, nil
}

// noCache marks a response as never cacheable.
func noCache(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
}
