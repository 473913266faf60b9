package nfc

import "github.com/hybridz/tapdraw/internal/lnurl"

// resolveMessage picks the withdraw endpoint for one read: the first record
// classifying as Confirmed wins; failing that, the first Possible record is
// accepted as a best-effort fallback. Readers differ in whether a tag's link
// record gets marked with the lnurl scheme, so insisting on Confirmed would
// fail tags that only carry a bare https link.
//
// Records without a payload, or whose payload doesn't decode under its
// declared encoding, are skipped rather than failing the read.
func resolveMessage(msg *Message) (string, error) {
	if msg == nil || msg.Records == nil {
		return "", ErrReadingError
	}

	possible := ""
	for _, rec := range msg.Records {
		if len(rec.Payload) == 0 {
			continue
		}
		text, err := rec.Text()
		if err != nil {
			continue
		}

		c := lnurl.Classify(text)
		switch c.Strength {
		case lnurl.Confirmed:
			return c.Value, nil
		case lnurl.Possible:
			if possible == "" {
				possible = c.Value
			}
		}
	}

	if possible != "" {
		return possible, nil
	}
	return "", ErrNoLNURLFound
}
