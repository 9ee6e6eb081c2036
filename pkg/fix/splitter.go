package fix

import "bytes"

// Split locates the next complete FIX message at the front of buf using the
// declared BodyLength (tag 9) rather than scanning for a terminator, since
// a body field's value can itself contain an SOH-delimited "10=" looking
// substring only at a field boundary — trusting tag 9 is what lets a
// stream reader carve frames without backtracking.
//
// It returns the length of that frame (including the trailing
// 10=NNN<SOH>) and ok=true when buf holds a full frame. ok is false when
// buf holds the start of a frame but not yet all of it — the caller should
// read more bytes and call Split again, the start of buf is left
// untouched. err is non-nil when buf can never become a valid frame
// regardless of how many more bytes arrive.
func Split(buf []byte) (frameLen int, ok bool, err error) {
	if len(buf) == 0 {
		return 0, false, nil
	}
	if !bytes.HasPrefix(buf, []byte("8=")) {
		return 0, false, errFraming("frame does not start with BeginString (tag 8)")
	}

	sohAfter8 := bytes.IndexByte(buf, SOH)
	if sohAfter8 == -1 {
		return 0, false, nil
	}
	tag9Prefix := []byte("9=")
	if !bytes.HasPrefix(buf[sohAfter8+1:], tag9Prefix) {
		return 0, false, errFraming("tag 9 (BodyLength) must immediately follow BeginString")
	}
	lenFieldStart := sohAfter8 + 1 + len(tag9Prefix)

	sohAfter9 := bytes.IndexByte(buf[lenFieldStart:], SOH)
	if sohAfter9 == -1 {
		return 0, false, nil
	}
	bodyLen, convErr := parseInt(string(buf[lenFieldStart : lenFieldStart+sohAfter9]))
	if convErr != nil {
		return 0, false, errFraming("non-numeric BodyLength (tag 9)")
	}
	if bodyLen < 0 {
		return 0, false, errFraming("negative BodyLength (tag 9)")
	}

	bodyStart := lenFieldStart + sohAfter9 + 1
	bodyEnd := bodyStart + bodyLen

	const checksumFieldMinLen = len("10=NNN") + 1
	if len(buf) < bodyEnd+checksumFieldMinLen {
		return 0, false, nil
	}
	if !bytes.HasPrefix(buf[bodyEnd:], []byte("10=")) {
		return 0, false, errFraming("BodyLength (tag 9) does not align with checksum field")
	}
	sohAfterChecksum := bytes.IndexByte(buf[bodyEnd:], SOH)
	if sohAfterChecksum == -1 {
		return 0, false, nil
	}

	return bodyEnd + sohAfterChecksum + 1, true, nil
}
