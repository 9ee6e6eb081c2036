package fix

import (
	"testing"
	"time"
)

func sampleLogon(seq int) *Message {
	m := NewMessage(MsgTypeLogon, "TRADER1", "EXCHANGE", seq, time.Date(2026, 8, 3, 14, 30, 0, 0, time.UTC))
	m.Set(TagHeartBtInt, "30")
	return m
}

func sampleNewOrder(seq int) *Message {
	m := NewMessage(MsgTypeNewOrderSingle, "TRADER1", "EXCHANGE", seq, time.Date(2026, 8, 3, 14, 30, 1, 0, time.UTC))
	m.Set(TagClOrdID, "ORD-1")
	m.Set(TagSymbol, "AAPL")
	m.Set(TagSide, SideBuy)
	m.Set(TagOrderQty, "100")
	m.Set(TagOrdType, OrdTypeLimit)
	m.Set(TagPrice, "150.25")
	return m
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []*Message{sampleLogon(1), sampleNewOrder(2)}
	for _, want := range cases {
		raw := Encode(want)
		got, err := Decode(raw)
		if err != nil {
			t.Fatalf("Decode(Encode(msg)) returned error: %v", err)
		}
		if got.MsgType != want.MsgType {
			t.Errorf("MsgType = %q, want %q", got.MsgType, want.MsgType)
		}
		if got.SenderCompID != want.SenderCompID || got.TargetCompID != want.TargetCompID {
			t.Errorf("comp IDs = %q/%q, want %q/%q", got.SenderCompID, got.TargetCompID, want.SenderCompID, want.TargetCompID)
		}
		if got.MsgSeqNum != want.MsgSeqNum {
			t.Errorf("MsgSeqNum = %d, want %d", got.MsgSeqNum, want.MsgSeqNum)
		}
		if !got.SendingTime.Equal(want.SendingTime) {
			t.Errorf("SendingTime = %v, want %v", got.SendingTime, want.SendingTime)
		}
		if len(got.Body) != len(want.Body) {
			t.Fatalf("Body length = %d, want %d", len(got.Body), len(want.Body))
		}
		for i, f := range want.Body {
			if got.Body[i] != f {
				t.Errorf("Body[%d] = %+v, want %+v", i, got.Body[i], f)
			}
		}
	}
}

func TestDecodeRejectsSingleByteChecksumFlip(t *testing.T) {
	raw := Encode(sampleNewOrder(3))

	// flip one byte inside the checksum field itself, the only field whose
	// corruption is guaranteed detectable without touching BodyLength.
	idx := len(raw) - 2 // last digit of "10=NNN" before the trailing SOH
	corrupted := append([]byte{}, raw...)
	if corrupted[idx] == '9' {
		corrupted[idx] = '0'
	} else {
		corrupted[idx]++
	}

	_, err := Decode(corrupted)
	if err == nil {
		t.Fatal("Decode accepted a message with a corrupted checksum")
	}
	perr, ok := err.(*ParseError)
	if !ok || perr.Kind != ErrKindChecksum {
		t.Fatalf("err = %v, want ErrKindChecksum", err)
	}
}

func TestDecodeRejectsMissingSOH(t *testing.T) {
	_, err := Decode([]byte("8=FIX.4.29=5235=A"))
	if err == nil {
		t.Fatal("Decode accepted a message with no SOH delimiters")
	}
	perr, ok := err.(*ParseError)
	if !ok || perr.Kind != ErrKindFraming {
		t.Fatalf("err = %v, want ErrKindFraming", err)
	}
}

func TestDecodeRejectsMissingRequiredField(t *testing.T) {
	m := sampleNewOrder(4)
	m.Body = m.Body[:0]
	m.Set(TagClOrdID, "ORD-2")
	// Symbol, Side, OrderQty, OrdType deliberately omitted.
	raw := Encode(m)

	_, err := Decode(raw)
	if err == nil {
		t.Fatal("Decode accepted a NewOrderSingle missing mandatory fields")
	}
	perr, ok := err.(*ParseError)
	if !ok || perr.Kind != ErrKindMissingField {
		t.Fatalf("err = %v, want ErrKindMissingField", err)
	}
}

func TestDecodeRejectsUnknownMsgType(t *testing.T) {
	m := NewMessage("Z", "TRADER1", "EXCHANGE", 5, time.Date(2026, 8, 3, 14, 30, 2, 0, time.UTC))
	raw := Encode(m)

	_, err := Decode(raw)
	if err == nil {
		t.Fatal("Decode accepted an unknown message type")
	}
	perr, ok := err.(*ParseError)
	if !ok || perr.Kind != ErrKindUnknownMsgType {
		t.Fatalf("err = %v, want ErrKindUnknownMsgType", err)
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	raw := Encode(sampleLogon(6))
	raw = append(raw, Encode(sampleLogon(7))...)

	_, err := Decode(raw)
	if err == nil {
		t.Fatal("Decode accepted a buffer with two concatenated messages")
	}
	perr, ok := err.(*ParseError)
	if !ok || perr.Kind != ErrKindTrailingBytes {
		t.Fatalf("err = %v, want ErrKindTrailingBytes", err)
	}
}

func TestSplitCarvesConcatenatedFrames(t *testing.T) {
	first := Encode(sampleLogon(8))
	second := Encode(sampleNewOrder(9))
	buf := append(append([]byte{}, first...), second...)

	n, ok, err := Split(buf)
	if err != nil || !ok {
		t.Fatalf("Split(buf) = _, %v, %v", ok, err)
	}
	if n != len(first) {
		t.Fatalf("Split frame length = %d, want %d", n, len(first))
	}
	msg, err := Decode(buf[:n])
	if err != nil {
		t.Fatalf("Decode(first frame): %v", err)
	}
	if msg.MsgType != MsgTypeLogon {
		t.Errorf("MsgType = %q, want %q", msg.MsgType, MsgTypeLogon)
	}

	n2, ok, err := Split(buf[n:])
	if err != nil || !ok {
		t.Fatalf("Split(second frame) = _, %v, %v", ok, err)
	}
	if n2 != len(second) {
		t.Fatalf("Split second frame length = %d, want %d", n2, len(second))
	}
}

func TestSplitWaitsForMoreBytes(t *testing.T) {
	full := Encode(sampleNewOrder(10))
	_, ok, err := Split(full[:len(full)-5])
	if err != nil {
		t.Fatalf("Split on partial buffer returned error: %v", err)
	}
	if ok {
		t.Fatal("Split reported a complete frame from a truncated buffer")
	}
}
