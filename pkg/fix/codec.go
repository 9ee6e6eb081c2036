package fix

import (
	"bytes"
	"fmt"
	"time"
)

// Encode renders m to the wire per the FIX 4.2 envelope contract: 8 then 9
// first, 35 immediately after 9, 10 last, with 9 and 10 computed over the
// exact bytes emitted. Body fields are written in the order m.Body holds
// them — this package never reorders a caller's fields.
func Encode(m *Message) []byte {
	var body bytes.Buffer
	writeField(&body, TagMsgType, m.MsgType)
	writeField(&body, TagSenderCompID, m.SenderCompID)
	writeField(&body, TagTargetCompID, m.TargetCompID)
	writeField(&body, TagMsgSeqNum, formatInt(m.MsgSeqNum))
	writeField(&body, TagSendingTime, m.SendingTime.UTC().Format(TimeLayout))
	for _, f := range m.Body {
		writeField(&body, f.Tag, f.Value)
	}

	var out bytes.Buffer
	writeField(&out, TagBeginString, BeginString)
	writeField(&out, TagBodyLength, formatInt(body.Len()))
	out.Write(body.Bytes())

	cs := checksum(out.Bytes())
	out.WriteString(fmt.Sprintf("%d=%s", TagCheckSum, cs))
	out.WriteByte(SOH)

	return out.Bytes()
}

func writeField(w *bytes.Buffer, tag int, value string) {
	fmt.Fprintf(w, "%d=%s", tag, value)
	w.WriteByte(SOH)
}

// Decode parses exactly one complete FIX message from raw. It rejects
// malformed framing, a checksum mismatch, any missing required envelope
// field, an unsupported message type, any field mandatory for a known
// message type that is absent, and any trailing bytes after the
// terminating 10=NNN<SOH> field — callers splitting a stream of
// concatenated messages must hand Decode exactly one frame (see Split).
func Decode(raw []byte) (*Message, error) {
	if len(raw) == 0 || !bytes.HasPrefix(raw, []byte("8=")) {
		return nil, errFraming("message does not start with BeginString (tag 8)")
	}
	if bytes.IndexByte(raw, SOH) == -1 {
		return nil, errFraming("message missing SOH delimiters")
	}

	sep := bytes.Index(raw, []byte{SOH, '1', '0', '='})
	if sep == -1 {
		return nil, errFraming("message missing terminating checksum field (tag 10)")
	}
	idx := sep + 1
	prefix := raw[:idx]
	tail := raw[idx:]
	tailSOH := bytes.IndexByte(tail, SOH)
	if tailSOH == -1 {
		return nil, errFraming("checksum field not terminated by SOH")
	}
	if len(raw) != idx+tailSOH+1 {
		return nil, errTrailingBytes("extra bytes after checksum field")
	}

	checksumField := string(tail[3:tailSOH])
	if len(checksumField) != 3 {
		return nil, errFraming("checksum value must be three digits")
	}
	if expected := checksum(prefix); checksumField != expected {
		return nil, errChecksum(fmt.Sprintf("expected %s got %s", expected, checksumField))
	}

	fields, err := splitFields(raw)
	if err != nil {
		return nil, err
	}

	values := make(map[int]string, len(fields))
	for _, f := range fields {
		if _, seen := values[f.Tag]; !seen {
			values[f.Tag] = f.Value
		}
	}

	for _, tag := range envelopeOrder() {
		if _, ok := values[tag]; !ok {
			return nil, errMissingField(tag, "required envelope field absent")
		}
	}
	if _, ok := values[TagCheckSum]; !ok {
		return nil, errMissingField(TagCheckSum, "required envelope field absent")
	}

	msgType := values[TagMsgType]
	if !KnownMsgType(msgType) {
		return nil, errUnknownMsgType(fmt.Sprintf("tag 35=%s not supported", msgType))
	}
	for _, tag := range requiredTagsByMsgType[msgType] {
		if _, ok := values[tag]; !ok {
			return nil, errMissingField(tag, fmt.Sprintf("mandatory for message type %s", msgType))
		}
	}
	if msgType == MsgTypeNewOrderSingle && values[TagOrdType] == OrdTypeLimit {
		if _, ok := values[TagPrice]; !ok {
			return nil, errMissingField(TagPrice, "mandatory for limit orders")
		}
	}

	seqNum, err := parseInt(values[TagMsgSeqNum])
	if err != nil {
		return nil, errFraming("non-numeric MsgSeqNum (tag 34)")
	}
	sendingTime, _ := time.Parse(TimeLayout, values[TagSendingTime])

	msg := &Message{
		MsgType:      msgType,
		SenderCompID: values[TagSenderCompID],
		TargetCompID: values[TagTargetCompID],
		MsgSeqNum:    seqNum,
		SendingTime:  sendingTime,
	}

	isEnvelope := map[int]bool{}
	for _, t := range envelopeOrder() {
		isEnvelope[t] = true
	}
	isEnvelope[TagCheckSum] = true

	for _, f := range fields {
		if isEnvelope[f.Tag] {
			continue
		}
		msg.Body = append(msg.Body, f)
	}
	return msg, nil
}

func splitFields(raw []byte) ([]Field, error) {
	parts := bytes.Split(raw, []byte{SOH})
	fields := make([]Field, 0, len(parts))
	for _, p := range parts {
		if len(p) == 0 {
			continue
		}
		eq := bytes.IndexByte(p, '=')
		if eq < 1 {
			return nil, errFraming(fmt.Sprintf("malformed field %q", p))
		}
		tag, err := parseInt(string(p[:eq]))
		if err != nil {
			return nil, errFraming(fmt.Sprintf("non-numeric tag in field %q", p))
		}
		fields = append(fields, Field{Tag: tag, Value: string(p[eq+1:])})
	}
	return fields, nil
}
