// Package fix implements a byte-level FIX 4.2 tag-value codec: framing,
// checksum, and message validation. It has no dependency on any FIX
// middleware library — encode/decode, checksum arithmetic, and frame
// splitting are all owned here so the wire format is exactly what this
// package says it is.
package fix

// SOH is the FIX field delimiter (Start of Header byte).
const SOH byte = 0x01

// BeginString is the fixed protocol identifier for FIX 4.2.
const BeginString = "FIX.4.2"

// Envelope tags, present on every message.
const (
	TagBeginString = 8
	TagBodyLength  = 9
	TagMsgType     = 35
	TagSenderCompID = 49
	TagTargetCompID = 56
	TagMsgSeqNum    = 34
	TagSendingTime  = 52
	TagCheckSum     = 10
)

// Message-specific tags (subset used by this exchange simulator).
const (
	TagHeartBtInt    = 108
	TagTestReqID     = 112
	TagClOrdID       = 11
	TagOrigClOrdID   = 41
	TagSymbol        = 55
	TagSide          = 54
	TagOrderQty      = 38
	TagOrdType       = 40
	TagPrice         = 44
	TagTransactTime  = 60
	TagOrderID       = 37
	TagExecID        = 17
	TagExecType      = 150
	TagOrdStatus     = 39
	TagLastQty       = 32
	TagLastPx        = 31
	TagCumQty        = 14
	TagAvgPx         = 6
	TagText          = 58
	TagCxlRejReason  = 434
	TagRefSeqNum     = 45
	TagSessionReject = 373 // SessionRejectReason
)

// Message types (tag 35).
const (
	MsgTypeLogon             = "A"
	MsgTypeHeartbeat         = "0"
	MsgTypeLogout            = "5"
	MsgTypeNewOrderSingle    = "D"
	MsgTypeOrderCancelReq    = "F"
	MsgTypeExecutionReport   = "8"
	MsgTypeOrderCancelReject = "9"
	MsgTypeSessionReject     = "3"
)

// Side (tag 54).
const (
	SideBuy  = "1"
	SideSell = "2"
)

// OrdType (tag 40).
const (
	OrdTypeMarket = "1"
	OrdTypeLimit  = "2"
)

// OrdStatus / ExecType codes (tags 39 / 150).
const (
	OrdStatusNew             = "0"
	OrdStatusPartiallyFilled = "1"
	OrdStatusFilled          = "2"
	OrdStatusCanceled        = "4"
	OrdStatusRejected        = "8"
)

const (
	ExecTypeNew             = "0"
	ExecTypePartialFill     = "1"
	ExecTypeFill            = "2"
	ExecTypeCanceled        = "4"
	ExecTypeRejected        = "8"
)

// TimeLayout is the FIX UTC timestamp format for tags 52/60, matching the
// original exchange's `_get_timestamp` (no fractional seconds).
const TimeLayout = "20060102-15:04:05"

// requiredTagsByMsgType lists the mandatory body tags (beyond the envelope)
// for each supported message type. Decode rejects a message missing any of
// these with a MissingField error.
var requiredTagsByMsgType = map[string][]int{
	MsgTypeLogon:             {TagHeartBtInt},
	MsgTypeHeartbeat:         {},
	MsgTypeLogout:            {},
	MsgTypeNewOrderSingle:    {TagClOrdID, TagSymbol, TagSide, TagOrderQty, TagOrdType},
	MsgTypeOrderCancelReq:    {TagClOrdID, TagSymbol, TagSide},
	MsgTypeExecutionReport:   {TagOrderID, TagExecID, TagExecType, TagOrdStatus},
	MsgTypeOrderCancelReject: {TagOrderID, TagClOrdID, TagOrdStatus},
	MsgTypeSessionReject:     {TagRefSeqNum},
}

// KnownMsgType reports whether typ is one of the message types this
// exchange understands.
func KnownMsgType(typ string) bool {
	_, ok := requiredTagsByMsgType[typ]
	return ok
}
