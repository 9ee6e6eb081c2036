package fix

import "time"

// Field is a single decoded or to-be-encoded tag-value pair.
type Field struct {
	Tag   int
	Value string
}

// Message is the decoded (or pre-encode) form of a FIX 4.2 message: the
// fixed envelope plus an ordered list of body fields. Body order is
// preserved from the wire on decode, and controls wire order on encode —
// this package never reorders fields behind the caller's back.
type Message struct {
	MsgType      string
	SenderCompID string
	TargetCompID string
	MsgSeqNum    int
	SendingTime  time.Time
	Body         []Field
}

// NewMessage starts a message with the envelope fields every FIX message
// carries; callers append body fields with Set before Encode.
func NewMessage(msgType, sender, target string, seqNum int, sendingTime time.Time) *Message {
	return &Message{
		MsgType:      msgType,
		SenderCompID: sender,
		TargetCompID: target,
		MsgSeqNum:    seqNum,
		SendingTime:  sendingTime,
	}
}

// Set appends a body field in the order it should appear on the wire.
func (m *Message) Set(tag int, value string) *Message {
	m.Body = append(m.Body, Field{Tag: tag, Value: value})
	return m
}

// Get returns the first body value for tag, if present.
func (m *Message) Get(tag int) (string, bool) {
	for _, f := range m.Body {
		if f.Tag == tag {
			return f.Value, true
		}
	}
	return "", false
}

// GetInt parses a body field as an integer. ok is false if the field is
// absent or not a valid integer.
func (m *Message) GetInt(tag int) (int, bool) {
	v, ok := m.Get(tag)
	if !ok {
		return 0, false
	}
	n, err := parseInt(v)
	return n, err == nil
}

// envelopeOrder returns, in wire order, the envelope tags this message will render
// as the fixed header (8, 9, 35, 49, 56, 34, 52).
func envelopeOrder() []int {
	return []int{TagBeginString, TagBodyLength, TagMsgType, TagSenderCompID, TagTargetCompID, TagMsgSeqNum, TagSendingTime}
}
