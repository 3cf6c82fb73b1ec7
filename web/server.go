// Package web serves the live benchmark view: an index page, the
// rendered images and a websocket feed of benchmark progress events.
package web

import (
	_ "embed"
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/mandelbench/mandelbench/bench"
)

//go:embed index.html
var indexHTML []byte

// Server broadcasts benchmark events to connected browsers and serves
// the images directory. Late-joining clients get the events published
// so far, so a browser opened after the run still shows the results.
type Server struct {
	imageDir string

	mu      sync.Mutex
	subs    map[chan bench.Event]struct{}
	history []bench.Event

	httpSrv *http.Server
}

// NewServer creates the web view listening on port, serving images
// from imageDir under /images/.
func NewServer(port int, imageDir string) *Server {
	s := &Server{
		imageDir: imageDir,
		subs:     make(map[chan bench.Event]struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.Handle("/images/", http.StripPrefix("/images/", http.FileServer(http.Dir(imageDir))))
	mux.HandleFunc("/ws", s.handleWS)

	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the mux, mainly for tests.
func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }

// ListenAndServe blocks serving the web view.
func (s *Server) ListenAndServe() error {
	log.Printf("web view on http://localhost%s", s.httpSrv.Addr)
	return s.httpSrv.ListenAndServe()
}

// Shutdown stops the HTTP server and drops all subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for ch := range s.subs {
		close(ch)
		delete(s.subs, ch)
	}
	s.mu.Unlock()
	return s.httpSrv.Shutdown(ctx)
}

// Publish broadcasts one event to every connected client and records
// it for clients connecting later.
func (s *Server) Publish(e bench.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, e)
	for ch := range s.subs {
		select {
		case ch <- e:
		default:
			// Slow client; it will catch up from history on reconnect.
		}
	}
}

func (s *Server) subscribe() (ch chan bench.Event, backlog []bench.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch = make(chan bench.Event, 64)
	s.subs[ch] = struct{}{}
	return ch, append([]bench.Event(nil), s.history...)
}

func (s *Server) unsubscribe(ch chan bench.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[ch]; ok {
		delete(s.subs, ch)
		close(ch)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleWS upgrades the connection and streams events as JSON.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // TODO: tighten in prod
	})
	if err != nil {
		log.Println(err)
		return
	}
	defer c.CloseNow()

	ch, backlog := s.subscribe()
	defer s.unsubscribe(ch)

	ctx := r.Context()
	for _, e := range backlog {
		if err := wsjson.Write(ctx, c, e); err != nil {
			return
		}
	}
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				c.Close(websocket.StatusNormalClosure, "server shutting down")
				return
			}
			if err := wsjson.Write(ctx, c, e); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
