package nfc

import "errors"

// Sentinel errors for the reading path. Faults the hardware reports that do
// not fit this taxonomy are passed through unchanged so callers can still
// log them.
var (
	// ErrUnavailable — no scanning capability on this host, or the hardware
	// reported the operation as unsupported.
	ErrUnavailable = errors.New("nfc reading unavailable")
	// ErrAborted — the scan was cancelled, explicitly or via context.
	ErrAborted = errors.New("scan aborted")
	// ErrScanInProgress — the hardware is already mid-scan.
	ErrScanInProgress = errors.New("scan already in progress")
	// ErrPermissionDenied — the platform refused scanner access.
	ErrPermissionDenied = errors.New("nfc permission denied")
	// ErrReadingError — a tag was presented but the read event was malformed.
	ErrReadingError = errors.New("tag read failed")
	// ErrNoLNURLFound — a well-formed read with no recognizable endpoint in
	// any record.
	ErrNoLNURLFound = errors.New("no lnurl found on tag")
)
