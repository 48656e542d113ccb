package publisher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"tools.zach/dev/servercard/internal/discord"
)

// ///////////////////////////////////////////////
// Fakes
// ///////////////////////////////////////////////

type memStore struct {
	mu    sync.Mutex
	id    string
	saves []string
	err   error
}

func (s *memStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, s.err
}

func (s *memStore) Save(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	s.saves = append(s.saves, id)
	return nil
}

func (s *memStore) set(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}

type edit struct {
	id      string
	payload discord.Payload
}

// fakeHook answers from queues of errors; an empty queue means success.
type fakeHook struct {
	mu         sync.Mutex
	nextID     int
	createErrs []error
	editErrs   []error
	creates    []discord.Payload
	edits      []edit
	onEdit     func()
}

func (f *fakeHook) Create(_ context.Context, p discord.Payload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, p)
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return "", err
		}
	}
	f.nextID++
	return "msg-" + string(rune('0'+f.nextID)), nil
}

func (f *fakeHook) Edit(_ context.Context, id string, p discord.Payload) error {
	f.mu.Lock()
	f.edits = append(f.edits, edit{id: id, payload: p})
	var err error
	if len(f.editErrs) > 0 {
		err = f.editErrs[0]
		f.editErrs = f.editErrs[1:]
	}
	hook := f.onEdit
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (f *fakeHook) editCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.edits)
}

type warmFunc func(ctx context.Context, url string) error

func (f warmFunc) Warm(ctx context.Context, url string) error { return f(ctx, url) }

var fixedNow = time.Unix(1717243200, 0)

type sleeps struct {
	mu sync.Mutex
	d  []time.Duration
}

func (s *sleeps) record(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d = append(s.d, d)
	return nil
}

func newTestPublisher(hook *fakeHook, store *memStore, mod func(*Options)) (*Publisher, *sleeps) {
	sl := &sleeps{}
	opts := Options{
		Webhook:   hook,
		Store:     store,
		BannerURL: "https://cards.example/banner.png",
		Title:     "Server Status",
		Content:   "Live status",
		Interval:  time.Hour,
		Now:       func() time.Time { return fixedNow },
		Sleep:     sl.record,
	}
	if mod != nil {
		mod(&opts)
	}
	return New(opts), sl
}

// ///////////////////////////////////////////////
// BustURL
// ///////////////////////////////////////////////

func TestBustURL(t *testing.T) {
	tests := []struct {
		base, want string
	}{
		{"https://x/banner.png", "https://x/banner.png?v=1717243200"},
		{"https://x/banner.png?address=a:1", "https://x/banner.png?address=a:1&v=1717243200"},
		{"https://x/banner.png?", "https://x/banner.png?&v=1717243200"},
	}
	for _, tt := range tests {
		if got := BustURL(tt.base, fixedNow); got != tt.want {
			t.Errorf("BustURL(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

// ///////////////////////////////////////////////
// Ensure
// ///////////////////////////////////////////////

func TestEnsure(t *testing.T) {
	tests := []struct {
		name        string
		override    string
		stored      string
		wantID      string
		wantCreates int
		wantSaved   bool
	}{
		{"override wins", " 111 ", "222", "111", 0, false},
		{"stored id", "", "222", "222", 0, false},
		{"create when missing", "", "", "msg-1", 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook := &fakeHook{}
			store := &memStore{id: tt.stored}
			p, _ := newTestPublisher(hook, store, func(o *Options) { o.MessageID = tt.override })

			id, err := p.Ensure(context.Background())
			if err != nil {
				t.Fatalf("Ensure: %v", err)
			}
			if id != tt.wantID || p.ID() != tt.wantID {
				t.Errorf("id = %q, ID() = %q, want %q", id, p.ID(), tt.wantID)
			}
			if len(hook.creates) != tt.wantCreates {
				t.Errorf("creates = %d, want %d", len(hook.creates), tt.wantCreates)
			}
			if saved := len(store.saves) > 0; saved != tt.wantSaved {
				t.Errorf("saved = %v, want %v", saved, tt.wantSaved)
			}
		})
	}
}

func TestEnsureCreateFailure(t *testing.T) {
	hook := &fakeHook{createErrs: []error{errors.New("boom"), errors.New("boom")}}
	p, _ := newTestPublisher(hook, &memStore{}, nil)

	_, err := p.Ensure(context.Background())
	if !errors.Is(err, ErrCreate) {
		t.Fatalf("err = %v, want ErrCreate", err)
	}
	if err := p.Run(context.Background()); err == nil {
		t.Error("Run should fail when the message cannot be created")
	}
}

func TestEnsureUnreadableStoreCreates(t *testing.T) {
	hook := &fakeHook{}
	store := &memStore{err: errors.New("permission denied")}
	p, _ := newTestPublisher(hook, store, nil)
	if _, err := p.Ensure(context.Background()); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if len(hook.creates) != 1 {
		t.Errorf("creates = %d, want 1", len(hook.creates))
	}
}

// ///////////////////////////////////////////////
// Cycle
// ///////////////////////////////////////////////

func TestCycleEditsWithBustedURL(t *testing.T) {
	hook := &fakeHook{}
	var warmed string
	p, _ := newTestPublisher(hook, &memStore{id: "42"}, func(o *Options) {
		o.Warmer = warmFunc(func(_ context.Context, url string) error {
			warmed = url
			return nil
		})
	})
	if _, err := p.Ensure(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := p.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}

	if len(hook.edits) != 1 {
		t.Fatalf("edits = %d", len(hook.edits))
	}
	e := hook.edits[0]
	want := "https://cards.example/banner.png?v=1717243200"
	if e.id != "42" || e.payload.Embeds[0].Image.URL != want {
		t.Errorf("edit = %s %s", e.id, e.payload.Embeds[0].Image.URL)
	}
	if e.payload.Content != "Live status" || e.payload.Embeds[0].Title != "Server Status" {
		t.Errorf("payload = %+v", e.payload)
	}
	if warmed != want {
		t.Errorf("warmed %q, want %q", warmed, want)
	}
}

func TestCycleWarmFailureIsNotFatal(t *testing.T) {
	hook := &fakeHook{}
	p, _ := newTestPublisher(hook, &memStore{id: "42"}, func(o *Options) {
		o.Warmer = warmFunc(func(context.Context, string) error { return errors.New("timeout") })
	})
	p.Ensure(context.Background())
	if err := p.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if len(hook.edits) != 1 {
		t.Errorf("edits = %d, want 1", len(hook.edits))
	}
}

func TestCycleRecreatesMissingMessage(t *testing.T) {
	hook := &fakeHook{editErrs: []error{discord.ErrNotFound}}
	store := &memStore{id: "deleted"}
	p, _ := newTestPublisher(hook, store, nil)
	p.Ensure(context.Background())

	if err := p.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if p.ID() != "msg-1" {
		t.Errorf("ID = %q, want msg-1", p.ID())
	}
	if got, _ := store.Load(); got != "msg-1" {
		t.Errorf("stored = %q, want msg-1", got)
	}
	if len(hook.creates) != 1 {
		t.Errorf("creates = %d", len(hook.creates))
	}
}

func TestCycleRecreateFailure(t *testing.T) {
	hook := &fakeHook{
		editErrs:   []error{discord.ErrNotFound},
		createErrs: []error{errors.New("forbidden")},
	}
	p, _ := newTestPublisher(hook, &memStore{id: "deleted"}, nil)
	p.Ensure(context.Background())
	if err := p.Cycle(context.Background()); err == nil {
		t.Fatal("Cycle succeeded although recreate failed")
	}
	if p.ID() != "deleted" {
		t.Errorf("ID changed to %q", p.ID())
	}
}

func TestCycleSleepsOffRateLimit(t *testing.T) {
	rl := &discord.RateLimitError{RetryAfter: 1500 * time.Millisecond}
	hook := &fakeHook{editErrs: []error{rl, rl}}
	p, sl := newTestPublisher(hook, &memStore{id: "42"}, nil)
	p.Ensure(context.Background())

	if err := p.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if len(hook.edits) != 3 {
		t.Errorf("edits = %d, want 3", len(hook.edits))
	}
	if len(sl.d) != 2 || sl.d[0] != rl.RetryAfter || sl.d[1] != rl.RetryAfter {
		t.Errorf("sleeps = %v", sl.d)
	}
}

func TestCycleRateLimitGivesUp(t *testing.T) {
	rl := &discord.RateLimitError{RetryAfter: time.Second}
	hook := &fakeHook{editErrs: []error{rl, rl, rl, rl, rl, rl}}
	p, sl := newTestPublisher(hook, &memStore{id: "42"}, nil)
	p.Ensure(context.Background())

	err := p.Cycle(context.Background())
	var got *discord.RateLimitError
	if !errors.As(err, &got) {
		t.Fatalf("err = %v, want wrapped *RateLimitError", err)
	}
	if len(hook.edits) != MaxAttempts {
		t.Errorf("edits = %d, want %d", len(hook.edits), MaxAttempts)
	}
	if len(sl.d) != MaxAttempts-1 {
		t.Errorf("sleeps = %d, want %d", len(sl.d), MaxAttempts-1)
	}
}

func TestCycleOtherErrorReported(t *testing.T) {
	hook := &fakeHook{editErrs: []error{errors.New("status 400")}}
	p, _ := newTestPublisher(hook, &memStore{id: "42"}, nil)
	p.Ensure(context.Background())
	err := p.Cycle(context.Background())
	if err == nil || !strings.Contains(err.Error(), "status 400") {
		t.Errorf("err = %v", err)
	}
	if len(hook.creates) != 0 {
		t.Error("generic error triggered a recreate")
	}
}

// ///////////////////////////////////////////////
// Run
// ///////////////////////////////////////////////

func TestRunStopsAfterCurrentCycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hook := &fakeHook{}
	hook.onEdit = cancel
	p, _ := newTestPublisher(hook, &memStore{id: "42"}, nil)

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
	if n := hook.editCount(); n != 1 {
		t.Errorf("edits = %d, want 1", n)
	}
}

func TestRunRepeatsEveryInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hook := &fakeHook{}
	hook.onEdit = func() {
		if len(hook.edits) >= 3 {
			cancel()
		}
	}
	p, _ := newTestPublisher(hook, &memStore{id: "42"}, func(o *Options) { o.Interval = 5 * time.Millisecond })

	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := hook.editCount(); n != 3 {
		t.Errorf("edits = %d, want 3", n)
	}
}

func TestRunAppliesReload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &memStore{id: "first"}
	reload := make(chan struct{}, 1)
	hook := &fakeHook{}
	hook.onEdit = func() {
		switch len(hook.edits) {
		case 1:
			store.set("second")
			reload <- struct{}{}
		case 2:
			cancel()
		}
	}
	p, _ := newTestPublisher(hook, store, func(o *Options) {
		o.Interval = 20 * time.Millisecond
		o.Reload = reload
	})

	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	hook.mu.Lock()
	defer hook.mu.Unlock()
	if len(hook.edits) != 2 || hook.edits[0].id != "first" || hook.edits[1].id != "second" {
		t.Errorf("edits = %+v", hook.edits)
	}
}

// ///////////////////////////////////////////////
// HTTPWarmer
// ///////////////////////////////////////////////

func TestHTTPWarmer(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.RequestURI())
		mu.Unlock()
		if strings.Contains(r.URL.Path, "missing") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG"))
	}))
	defer srv.Close()

	w := NewWarmer(2 * time.Second)
	if err := w.Warm(context.Background(), srv.URL+"/banner.png?v=1"); err != nil {
		t.Errorf("Warm: %v", err)
	}
	if err := w.Warm(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Error("Warm of a 404 succeeded")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 2 || paths[0] != "/banner.png?v=1" {
		t.Errorf("requests = %v", paths)
	}
}
