package agent

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hybridz/tapdraw/internal/nfc"
)

// Client talks to a tapdraw-agent and implements nfc.Capability, making the
// agent's reader hardware look local to a Session.
type Client struct {
	URL        string // agent base URL, e.g. http://127.0.0.1:18791
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
}

// NewClient creates an agent client for the given base URL.
func NewClient(rawURL string) *Client {
	return &Client{
		URL:        rawURL,
		HTTPClient: &http.Client{Timeout: 2 * time.Second},
		Dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Available probes the agent's health endpoint.
func (c *Client) Available() bool {
	if c.URL == "" {
		return false
	}
	resp, err := c.HTTPClient.Get(strings.TrimRight(c.URL, "/") + "/healthz")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Scan dials the agent, requests a scan, and forwards events to the handlers
// until ctx is cancelled. It returns once the agent confirms scanning has
// begun; agent-reported start faults come back as the session's sentinel
// errors where the reason is recognized, verbatim otherwise.
func (c *Client) Scan(ctx context.Context, onRead nfc.ReadHandler, onError nfc.ErrorHandler) error {
	wsURL, err := websocketURL(c.URL)
	if err != nil {
		return fmt.Errorf("agent url: %w", err)
	}

	conn, _, err := c.Dialer.DialContext(ctx, wsURL+"/ws", nil)
	if err != nil {
		return fmt.Errorf("dial agent: %w", err)
	}

	if err := conn.WriteJSON(Command{Type: cmdScan}); err != nil {
		conn.Close()
		return fmt.Errorf("request scan: %w", err)
	}

	// The first event settles the start.
	var evt Event
	if err := conn.ReadJSON(&evt); err != nil {
		conn.Close()
		return fmt.Errorf("await scan start: %w", err)
	}
	switch evt.Type {
	case evtStarted:
	case evtError:
		conn.Close()
		return reasonToErr(evt.Reason)
	default:
		conn.Close()
		return fmt.Errorf("unexpected agent event %q", evt.Type)
	}

	go func() {
		<-ctx.Done()
		conn.WriteJSON(Command{Type: cmdStop})
		conn.Close()
	}()

	go func() {
		for {
			var evt Event
			if err := conn.ReadJSON(&evt); err != nil {
				if ctx.Err() == nil && onError != nil {
					onError(fmt.Errorf("agent connection lost: %w", err))
				}
				return
			}
			switch evt.Type {
			case evtRead:
				if onRead != nil {
					onRead(fromWire(evt.Records))
				}
			case evtError:
				if onError != nil {
					onError(reasonToErr(evt.Reason))
				}
			}
		}
	}()

	return nil
}

// websocketURL rewrites an http(s) base URL into its ws(s) form.
func websocketURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	return strings.TrimRight(u.String(), "/"), nil
}
