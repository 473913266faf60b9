package agent

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hybridz/tapdraw/internal/nfc"
)

// fakeCapability stands in for reader hardware behind the agent.
type fakeCapability struct {
	available bool
	scanErr   error

	mu     sync.Mutex
	onRead nfc.ReadHandler
	onErr  nfc.ErrorHandler
}

func newFakeCapability() *fakeCapability {
	return &fakeCapability{available: true}
}

func (f *fakeCapability) Available() bool { return f.available }

func (f *fakeCapability) Scan(ctx context.Context, onRead nfc.ReadHandler, onError nfc.ErrorHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scanErr != nil {
		return f.scanErr
	}
	f.onRead = onRead
	f.onErr = onError
	return nil
}

func (f *fakeCapability) wired() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onRead != nil
}

func (f *fakeCapability) pushRead(msg *nfc.Message) {
	f.mu.Lock()
	onRead := f.onRead
	f.mu.Unlock()
	onRead(msg)
}

func (f *fakeCapability) pushError(err error) {
	f.mu.Lock()
	onErr := f.onErr
	f.mu.Unlock()
	onErr(err)
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestReasonMapping_RoundTrip(t *testing.T) {
	for _, sentinel := range []error{
		nfc.ErrAborted,
		nfc.ErrScanInProgress,
		nfc.ErrPermissionDenied,
		nfc.ErrUnavailable,
		nfc.ErrReadingError,
	} {
		got := reasonToErr(errToReason(sentinel))
		if !errors.Is(got, sentinel) {
			t.Errorf("sentinel %v came back as %v", sentinel, got)
		}
	}
}

func TestReasonMapping_UnknownFaultVerbatim(t *testing.T) {
	weird := errors.New("coil undervoltage")
	if got := errToReason(weird); got != "coil undervoltage" {
		t.Fatalf("got reason %q, want the fault text verbatim", got)
	}
	if got := reasonToErr("coil undervoltage"); got.Error() != "coil undervoltage" {
		t.Fatalf("got %v, want the reason surfaced verbatim", got)
	}
}

func TestWire_MalformedReadSurvives(t *testing.T) {
	if got := toWire(&nfc.Message{}); got != nil {
		t.Fatalf("nil record list became %v on the wire", got)
	}
	if msg := fromWire(nil); msg.Records != nil {
		t.Fatalf("nil wire records became %v", msg.Records)
	}
	if msg := fromWire([]WireRecord{}); msg.Records == nil {
		t.Fatal("an empty read must stay distinguishable from a malformed one")
	}
}

func TestClient_AvailableProbesAgent(t *testing.T) {
	cap := newFakeCapability()
	ts := httptest.NewServer(NewServer("", cap).Handler())
	defer ts.Close()

	client := NewClient(ts.URL)
	if !client.Available() {
		t.Fatal("agent is up; client should report available")
	}

	cap.available = false
	if client.Available() {
		t.Fatal("scanner is gone; client should report unavailable")
	}

	if NewClient("").Available() {
		t.Fatal("empty URL should never be available")
	}
}

func TestClient_AvailableNoAgent(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	if NewClient(url).Available() {
		t.Fatal("nothing is listening; client should report unavailable")
	}
}

func TestScan_EndToEnd(t *testing.T) {
	cap := newFakeCapability()
	ts := httptest.NewServer(NewServer("", cap).Handler())
	defer ts.Close()

	client := NewClient(ts.URL)

	reads := make(chan *nfc.Message, 1)
	readErrs := make(chan error, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := client.Scan(ctx,
		func(msg *nfc.Message) { reads <- msg },
		func(err error) { readErrs <- err })
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	waitFor(t, cap.wired, "agent to start the hardware scan")
	cap.pushRead(&nfc.Message{Records: []nfc.Record{{
		Type:     "text",
		Encoding: "utf-8",
		Payload:  []byte("https://bitcoin.org"),
	}}})

	select {
	case msg := <-reads:
		if len(msg.Records) != 1 {
			t.Fatalf("got %d records, want 1", len(msg.Records))
		}
		rec := msg.Records[0]
		if string(rec.Payload) != "https://bitcoin.org" {
			t.Fatalf("payload %q did not survive the trip", rec.Payload)
		}
		if rec.Type != "text" || rec.Encoding != "utf-8" {
			t.Fatalf("record metadata lost: %+v", rec)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("read event never arrived")
	}

	cap.pushError(errors.New("coil undervoltage"))
	select {
	case err := <-readErrs:
		if err.Error() != "coil undervoltage" {
			t.Fatalf("got read error %v, want the fault verbatim", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error event never arrived")
	}
}

func TestScan_StartFault(t *testing.T) {
	cap := newFakeCapability()
	cap.scanErr = nfc.ErrPermissionDenied
	ts := httptest.NewServer(NewServer("", cap).Handler())
	defer ts.Close()

	err := NewClient(ts.URL).Scan(context.Background(), nil, nil)
	if !errors.Is(err, nfc.ErrPermissionDenied) {
		t.Fatalf("got %v, want ErrPermissionDenied across the wire", err)
	}
}

func TestScan_DialFailure(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	err := NewClient(url).Scan(context.Background(), nil, nil)
	if err == nil {
		t.Fatal("expected a dial error")
	}
}

func TestScan_SessionIntegration(t *testing.T) {
	// The full client path: Session → agent.Client → websocket → Server →
	// hardware capability and back.
	cap := newFakeCapability()
	ts := httptest.NewServer(NewServer("", cap).Handler())
	defer ts.Close()

	session := nfc.NewSession(NewClient(ts.URL))

	done := make(chan string, 1)
	go func() {
		endpoint, err := session.ListenOnce(context.Background())
		if err != nil {
			t.Errorf("listen once: %v", err)
		}
		done <- endpoint
	}()

	waitFor(t, cap.wired, "scan to reach the hardware")
	cap.pushRead(&nfc.Message{Records: []nfc.Record{{Payload: []byte("lnurlw://bitcoin.org")}}})

	select {
	case endpoint := <-done:
		if endpoint != "https://bitcoin.org" {
			t.Fatalf("got %q, want https://bitcoin.org", endpoint)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no endpoint resolved")
	}
}
