package lnurl

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Strength grades how certain we are that a scanned string is a usable
// withdraw endpoint.
type Strength int

const (
	// Rejected means the candidate is not a usable endpoint.
	Rejected Strength = iota
	// Possible means the candidate is a plausible link (a bare https URL)
	// that was not explicitly tagged with an lnurl scheme.
	Possible
	// Confirmed means the candidate was unambiguously an lnurl endpoint and
	// Value holds the normalized, directly-fetchable URL.
	Confirmed
)

// Classification is the outcome of classifying one tag payload.
// Confirmed always carries an http(s) URL; Possible carries the candidate
// unmodified.
type Classification struct {
	Strength Strength
	Value    string
}

// maxEncodedLen bounds bech32 input so a hostile tag can't make us chew on
// arbitrarily long payloads. Real lnurl strings sit well under this.
const maxEncodedLen = 2000

// Classify recognizes the lnurl encodings found on withdraw tags and
// normalizes them into a fetchable endpoint. Rules are tried in priority
// order against the lower-cased candidate:
//
//	lightning:<bech32>  → decode, Confirmed if the payload is an http(s) URL
//	lnurlw://rest       → https://rest (http:// for onion hosts), Confirmed
//	lnurl... (no colon) → decode whole candidate, Confirmed if valid
//	https://...         → Possible, unchanged
//	http://...onion...  → Possible, unchanged
//	anything else       → Rejected
//
// Decode failures never escape; they classify as Rejected.
func Classify(candidate string) Classification {
	if candidate == "" {
		return Classification{Strength: Rejected}
	}
	lower := strings.ToLower(candidate)

	switch {
	case strings.HasPrefix(lower, "lightning:"):
		return confirmDecoded(candidate[len("lightning:"):])

	case strings.HasPrefix(lower, "lnurlw://"):
		rest := candidate[len("lnurlw://"):]
		scheme := "https://"
		if isOnion(rest) {
			scheme = "http://"
		}
		return Classification{Strength: Confirmed, Value: scheme + rest}

	case strings.HasPrefix(lower, "lnurl") && !strings.Contains(candidate, ":"):
		return confirmDecoded(candidate)

	case strings.HasPrefix(lower, "https://"):
		return Classification{Strength: Possible, Value: candidate}

	case strings.HasPrefix(lower, "http://") && isOnion(candidate):
		return Classification{Strength: Possible, Value: candidate}
	}

	return Classification{Strength: Rejected}
}

// confirmDecoded bech32-decodes encoded and applies the same http(s)/onion
// gate the raw-URL rules use, but to the decoded value.
func confirmDecoded(encoded string) Classification {
	decoded, err := decode(encoded)
	if err != nil {
		return Classification{Strength: Rejected}
	}

	lower := strings.ToLower(decoded)
	if strings.HasPrefix(lower, "https://") ||
		(strings.HasPrefix(lower, "http://") && isOnion(decoded)) {
		return Classification{Strength: Confirmed, Value: decoded}
	}
	return Classification{Strength: Rejected}
}

// isOnion reports whether s points at a Tor hidden service: the host ends in
// .onion, or an .onion host is followed by a path or query.
func isOnion(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasSuffix(lower, ".onion") ||
		strings.Contains(lower, ".onion/") ||
		strings.Contains(lower, ".onion?")
}

// decode unpacks a checksummed bech32 string into the UTF-8 text it carries.
func decode(encoded string) (string, error) {
	if len(encoded) > maxEncodedLen {
		return "", fmt.Errorf("encoded payload exceeds %d characters", maxEncodedLen)
	}

	_, data, err := bech32.DecodeNoLimit(strings.ToLower(encoded))
	if err != nil {
		return "", fmt.Errorf("decode bech32: %w", err)
	}

	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", fmt.Errorf("regroup bits: %w", err)
	}

	if !utf8.Valid(raw) {
		return "", fmt.Errorf("payload is not valid utf-8")
	}
	return string(raw), nil
}

// Encode packs a URL into the uppercase bech32 form written to tags. It is
// the inverse of the decode performed by Classify.
func Encode(url string) (string, error) {
	data, err := bech32.ConvertBits([]byte(url), 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("regroup bits: %w", err)
	}

	encoded, err := bech32.Encode("lnurl", data)
	if err != nil {
		return "", fmt.Errorf("encode bech32: %w", err)
	}
	return strings.ToUpper(encoded), nil
}
