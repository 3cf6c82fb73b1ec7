package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/mandelbench/mandelbench/bench"
)

func TestIndexServed(t *testing.T) {
	s := NewServer(0, t.TempDir())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("content type = %q", ct)
	}
}

func TestWebsocketStreamsEvents(t *testing.T) {
	s := NewServer(0, t.TempDir())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	// Events published before the client connects are replayed.
	s.Publish(bench.Event{Backend: "vector", State: "running"})
	s.Publish(bench.Event{Backend: "vector", State: "done", ElapsedMs: 12.5})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	c, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.CloseNow()

	var got bench.Event
	if err := wsjson.Read(ctx, c, &got); err != nil {
		t.Fatalf("read backlog: %v", err)
	}
	if got.Backend != "vector" || got.State != "running" {
		t.Errorf("first event = %+v", got)
	}
	if err := wsjson.Read(ctx, c, &got); err != nil {
		t.Fatalf("read backlog: %v", err)
	}
	if got.State != "done" || got.ElapsedMs != 12.5 {
		t.Errorf("second event = %+v", got)
	}

	// A live event arrives after the backlog.
	s.Publish(bench.Event{Backend: "sqlite", State: "skipped", Error: "no engine"})
	if err := wsjson.Read(ctx, c, &got); err != nil {
		t.Fatalf("read live event: %v", err)
	}
	if got.Backend != "sqlite" || got.Error != "no engine" {
		t.Errorf("live event = %+v", got)
	}
}
