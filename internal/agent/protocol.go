package agent

import (
	"errors"

	"github.com/hybridz/tapdraw/internal/nfc"
)

// Wire protocol between a reader agent and its clients: one JSON object per
// websocket text message.

const (
	cmdScan = "scan"
	cmdStop = "stop"

	evtStarted = "started"
	evtRead    = "read"
	evtError   = "error"
)

// Command is a client → agent request.
type Command struct {
	Type string `json:"type"`
}

// Event is an agent → client notification. After a scan command the first
// event settles it: "started" on success, "error" otherwise. "read" and
// "error" events then flow until the client sends stop or drops the
// connection.
type Event struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"` // unique per read event
	// Records is kept nullable on the wire: a read with an empty list is a
	// valid-but-empty tag, a read with no list at all is a malformed one.
	Records []WireRecord `json:"records"`
	Reason  string       `json:"reason,omitempty"` // error events only
}

// WireRecord mirrors nfc.Record. Payload travels base64-encoded, which
// encoding/json does for []byte on its own.
type WireRecord struct {
	RecordType string `json:"recordType,omitempty"`
	MediaType  string `json:"mediaType,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
	Language   string `json:"language,omitempty"`
	Payload    []byte `json:"payload"`
}

// Known fault reasons. Anything else travels verbatim so clients can log
// faults this taxonomy doesn't cover.
const (
	reasonAborted          = "aborted"
	reasonScanInProgress   = "scan-in-progress"
	reasonPermissionDenied = "permission-denied"
	reasonNotSupported     = "not-supported"
	reasonReadingError     = "reading-error"
)

func errToReason(err error) string {
	switch {
	case errors.Is(err, nfc.ErrAborted):
		return reasonAborted
	case errors.Is(err, nfc.ErrScanInProgress):
		return reasonScanInProgress
	case errors.Is(err, nfc.ErrPermissionDenied):
		return reasonPermissionDenied
	case errors.Is(err, nfc.ErrUnavailable):
		return reasonNotSupported
	case errors.Is(err, nfc.ErrReadingError):
		return reasonReadingError
	}
	return err.Error()
}

func reasonToErr(reason string) error {
	switch reason {
	case reasonAborted:
		return nfc.ErrAborted
	case reasonScanInProgress:
		return nfc.ErrScanInProgress
	case reasonPermissionDenied:
		return nfc.ErrPermissionDenied
	case reasonNotSupported:
		return nfc.ErrUnavailable
	case reasonReadingError:
		return nfc.ErrReadingError
	}
	return errors.New(reason)
}

func toWire(msg *nfc.Message) []WireRecord {
	if msg == nil || msg.Records == nil {
		return nil
	}
	records := make([]WireRecord, 0, len(msg.Records))
	for _, rec := range msg.Records {
		records = append(records, WireRecord{
			RecordType: rec.Type,
			MediaType:  rec.MediaType,
			Encoding:   rec.Encoding,
			Language:   rec.Language,
			Payload:    rec.Payload,
		})
	}
	return records
}

func fromWire(records []WireRecord) *nfc.Message {
	if records == nil {
		// Preserve "no record list at all" so the session can tell a
		// malformed read from an empty one.
		return &nfc.Message{}
	}
	msg := &nfc.Message{Records: make([]nfc.Record, 0, len(records))}
	for _, rec := range records {
		msg.Records = append(msg.Records, nfc.Record{
			Type:      rec.RecordType,
			MediaType: rec.MediaType,
			Encoding:  rec.Encoding,
			Language:  rec.Language,
			Payload:   rec.Payload,
		})
	}
	return msg
}
