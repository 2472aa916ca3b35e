// Package web provides an HTTP status server for the bi-sensor daemon.
// Besides the status page it exposes each binary input property for
// diagnostic reads and writes using the application-tagged encoding.
package web

import (
	"context"
	"net"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/bi-sensor/internal/binaryinput"
	"github.com/sweeney/bi-sensor/internal/status"
)

// PropertyAccess is the property protocol of the binary input object.
type PropertyAccess interface {
	ReadProperty(rp binaryinput.ReadPropertyData) ([]byte, error)
	WriteProperty(wp binaryinput.WritePropertyData) ([]binaryinput.Event, error)
}

// WriteFunc receives the events produced by a successful PUT.
type WriteFunc func(events []binaryinput.Event)

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	object     PropertyAccess
	onWrite    WriteFunc
}

// New creates a Server that reads state from the given tracker and routes
// property requests to object. onWrite may be nil.
func New(addr string, tracker *status.Tracker, object PropertyAccess, onWrite WriteFunc) *Server {
	s := &Server{tracker: tracker, object: object, onWrite: onWrite}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("GET /objects/{instance}/{property}", s.handleReadProperty)
	mux.HandleFunc("PUT /objects/{instance}/{property}", s.handleWriteProperty)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		log.WithError(err).Warn("web: render index")
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}
