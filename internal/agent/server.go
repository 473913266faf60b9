package agent

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/hybridz/tapdraw/internal/nfc"
)

// Server exposes a local scanning capability to remote clients over
// websocket. Each connection drives its own scan; read and error events
// stream back as they happen.
type Server struct {
	addr     string
	cap      nfc.Capability
	upgrader websocket.Upgrader
	srv      *http.Server
}

// NewServer creates an agent server that serves cap on addr.
func NewServer(addr string, cap nfc.Capability) *Server {
	return &Server{
		addr: addr,
		cap:  cap,
	}
}

// Handler builds the agent's HTTP routes.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWS)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	return r
}

// Start begins serving. It blocks until the server is shut down or hits a
// fatal listener error.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("agent listen: %w", err)
	}
	log.Printf("agent listening on %s", ln.Addr())
	return s.srv.Serve(ln)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	if !s.cap.Available() {
		http.Error(w, "scanner unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

// wsConn serializes event writes; reads and hardware callbacks arrive on
// different goroutines.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeEvent(evt Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(evt)
}

// handleWS runs the command loop for one client connection. At most one scan
// is active per connection; a second scan command while one runs gets a
// scan-in-progress error event.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("agent: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	c := &wsConn{conn: conn}
	var scanCancel context.CancelFunc
	defer func() {
		if scanCancel != nil {
			scanCancel()
		}
	}()

	for {
		var cmd Command
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}

		switch cmd.Type {
		case cmdScan:
			if scanCancel != nil {
				c.writeEvent(Event{Type: evtError, Reason: reasonScanInProgress})
				continue
			}

			scanCtx, cancel := context.WithCancel(r.Context())
			err := s.cap.Scan(scanCtx,
				func(msg *nfc.Message) {
					evt := Event{Type: evtRead, ID: uuid.NewString(), Records: toWire(msg)}
					if err := c.writeEvent(evt); err != nil {
						log.Printf("agent: write read event: %v", err)
					}
				},
				func(readErr error) {
					if err := c.writeEvent(Event{Type: evtError, Reason: errToReason(readErr)}); err != nil {
						log.Printf("agent: write error event: %v", err)
					}
				})
			if err != nil {
				cancel()
				c.writeEvent(Event{Type: evtError, Reason: errToReason(err)})
				continue
			}

			scanCancel = cancel
			c.writeEvent(Event{Type: evtStarted})

		case cmdStop:
			if scanCancel != nil {
				scanCancel()
				scanCancel = nil
			}

		default:
			log.Printf("agent: unknown command %q", cmd.Type)
		}
	}
}
