package withdraw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	statusOK    = "OK"
	statusError = "ERROR"

	msgInvalidResponse  = "invalid response"
	msgPaymentInitiated = "invoice payment initiated"
)

// Outcome is the result of one withdraw attempt.
type Outcome struct {
	Success bool
	// RemoteMessage marks Message as text declared by the remote service.
	// Remote text is untrusted and display-only; never branch on it.
	RemoteMessage bool
	Message       string
}

// withdrawParams is the round-1 response: the parameters the service hands
// out before accepting an invoice.
type withdrawParams struct {
	Status   string `json:"status"`
	Callback string `json:"callback"`
	K1       string `json:"k1"`
	Reason   string `json:"reason"`
}

// confirmation is the round-2 response.
type confirmation struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// Client drives the two-round lnurl-withdraw exchange. When RelayURL is set,
// every fetch goes out as a JSON POST {"url": target} to the relay, which
// performs the request on our behalf (for clients whose own network path is
// restricted); otherwise the target is fetched directly with GET.
type Client struct {
	RelayURL   string
	HTTPClient *http.Client
}

// NewClient creates a withdraw client. Pass relayURL "" for direct fetches.
func NewClient(relayURL string) *Client {
	return &Client{
		RelayURL:   relayURL,
		HTTPClient: http.DefaultClient,
	}
}

// Withdraw fetches the withdraw parameters from endpoint and submits invoice
// to the callback URL they name. It never returns an error: transport and
// parse failures reduce to a failed Outcome carrying the local fault text,
// and service-declared failures to one carrying the service's reason.
func (c *Client) Withdraw(ctx context.Context, endpoint, invoice string) Outcome {
	var params withdrawParams
	if err := c.fetchJSON(ctx, endpoint, &params); err != nil {
		return Outcome{Message: err.Error()}
	}

	if params.Status == statusError {
		return Outcome{RemoteMessage: true, Message: params.Reason}
	}
	if params.Callback == "" || params.K1 == "" {
		return Outcome{Message: msgInvalidResponse}
	}

	var conf confirmation
	if err := c.fetchJSON(ctx, paymentURL(params.Callback, params.K1, invoice), &conf); err != nil {
		return Outcome{Message: err.Error()}
	}

	switch conf.Status {
	case statusOK:
		return Outcome{Success: true, Message: msgPaymentInitiated}
	case statusError:
		return Outcome{RemoteMessage: true, Message: conf.Reason}
	default:
		return Outcome{Message: msgInvalidResponse}
	}
}

// paymentURL appends k1 and the invoice to the callback URL. A k1 or pr
// param already present on the callback is left in place.
func paymentURL(callback, k1, invoice string) string {
	pr := invoice
	if len(pr) >= len("lightning:") && strings.EqualFold(pr[:len("lightning:")], "lightning:") {
		pr = pr[len("lightning:"):]
	}

	sep := "?"
	if strings.Contains(callback, "?") {
		sep = "&"
	}
	return callback + sep + "k1=" + url.QueryEscape(k1) + "&pr=" + url.QueryEscape(pr)
}

// fetchJSON issues one round (direct GET, or JSON POST through the relay)
// and decodes the response body into out.
func (c *Client) fetchJSON(ctx context.Context, target string, out interface{}) error {
	var (
		req *http.Request
		err error
	)

	if c.RelayURL != "" {
		body, merr := json.Marshal(map[string]string{"url": target})
		if merr != nil {
			return fmt.Errorf("marshal relay request: %w", merr)
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.RelayURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
