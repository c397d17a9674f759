package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/HankJediAssistant/hank-board/internal/hub"
)

func waitForSubscribers(t *testing.T, h *hub.Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Count() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers, have %d", n, h.Count())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func runStream(t *testing.T, h *hub.Hub, ctx context.Context, w http.ResponseWriter) <-chan error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	c := e.NewContext(req, w)
	done := make(chan error, 1)
	go func() {
		done <- streamEvents(h)(c)
	}()
	return done
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("stream returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not finish")
	}
}

func TestStreamEventsWritesFrames(t *testing.T) {
	h := hub.New(4)
	rec := httptest.NewRecorder()
	done := runStream(t, h, context.Background(), rec)

	waitForSubscribers(t, h, 1)
	h.Broadcast(hub.Event{Type: "board", Timestamp: 1700000000000})
	h.Broadcast(hub.Event{Type: "all", Timestamp: 1700000000001})
	h.Close()
	waitDone(t, done)

	if ct := rec.Header().Get(echo.HeaderContentType); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cc := rec.Header().Get(echo.HeaderCacheControl); cc != "no-cache" {
		t.Fatalf("unexpected cache control %q", cc)
	}
	want := ": connected\n\n" +
		`data: {"type":"board","timestamp":1700000000000}` + "\n\n" +
		`data: {"type":"all","timestamp":1700000000001}` + "\n\n"
	if got := rec.Body.String(); got != want {
		t.Fatalf("unexpected stream body:\n%q\nwant\n%q", got, want)
	}
}

func TestStreamEventsStopsOnDisconnect(t *testing.T) {
	h := hub.New(1)
	ctx, cancel := context.WithCancel(context.Background())
	done := runStream(t, h, ctx, httptest.NewRecorder())

	waitForSubscribers(t, h, 1)
	cancel()
	waitDone(t, done)

	if h.Count() != 0 {
		t.Fatalf("disconnected client still subscribed")
	}
}

type failingWriter struct {
	header http.Header
}

func (f *failingWriter) Header() http.Header       { return f.header }
func (f *failingWriter) WriteHeader(int)           {}
func (f *failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }
func (f *failingWriter) Flush()                    {}

func TestStreamEventsUnsubscribesOnWriteFailure(t *testing.T) {
	h := hub.New(1)
	done := runStream(t, h, context.Background(), &failingWriter{header: http.Header{}})
	waitDone(t, done)

	if h.Count() != 0 {
		t.Fatalf("failed stream still subscribed")
	}
}

type plainWriter struct {
	header http.Header
	code   int
	body   bytes.Buffer
}

func (p *plainWriter) Header() http.Header         { return p.header }
func (p *plainWriter) WriteHeader(code int)        { p.code = code }
func (p *plainWriter) Write(b []byte) (int, error) { return p.body.Write(b) }

func TestStreamEventsRequiresFlusher(t *testing.T) {
	h := hub.New(1)
	w := &plainWriter{header: http.Header{}}
	waitDone(t, runStream(t, h, context.Background(), w))

	if w.code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", w.code)
	}
	if !strings.Contains(w.body.String(), "stream unsupported") {
		t.Fatalf("unexpected body %q", w.body.String())
	}
	if h.Count() != 0 {
		t.Fatalf("no subscription expected without a flusher")
	}
}
