package fix

import "fmt"

// ErrorKind distinguishes the classes of decode failure named in the
// protocol design: framing is not the same defect as a bad checksum, and
// neither is the same as a message simply missing a field it needs.
type ErrorKind int

const (
	// ErrKindFraming covers a message with no SOH delimiter anywhere, or
	// one that does not open with tag 8 (BeginString).
	ErrKindFraming ErrorKind = iota
	// ErrKindChecksum covers a structurally sound message whose tag 10
	// does not match the computed checksum.
	ErrKindChecksum
	// ErrKindMissingField covers a message missing a required envelope
	// tag, or missing a tag mandatory for its own message type.
	ErrKindMissingField
	// ErrKindUnknownMsgType covers a syntactically valid message whose
	// tag 35 names a message type this codec does not support.
	ErrKindUnknownMsgType
	// ErrKindTrailingBytes covers extra bytes after the terminating
	// 10=NNN<SOH> field when decoding what is supposed to be exactly one
	// message.
	ErrKindTrailingBytes
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindFraming:
		return "malformed framing"
	case ErrKindChecksum:
		return "checksum mismatch"
	case ErrKindMissingField:
		return "missing required field"
	case ErrKindUnknownMsgType:
		return "unknown message type"
	case ErrKindTrailingBytes:
		return "trailing bytes after message"
	default:
		return "unknown parse error"
	}
}

// ParseError is the typed decode failure returned by Decode. Session code
// answers every ParseError, whatever its Kind, with a Session Reject.
type ParseError struct {
	Kind ErrorKind
	Tag  int // set for ErrKindMissingField, 0 otherwise
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Tag != 0 {
		return fmt.Sprintf("fix: %s (tag %d): %s", e.Kind, e.Tag, e.Msg)
	}
	return fmt.Sprintf("fix: %s: %s", e.Kind, e.Msg)
}

func errFraming(msg string) *ParseError {
	return &ParseError{Kind: ErrKindFraming, Msg: msg}
}

func errChecksum(msg string) *ParseError {
	return &ParseError{Kind: ErrKindChecksum, Msg: msg}
}

func errMissingField(tag int, msg string) *ParseError {
	return &ParseError{Kind: ErrKindMissingField, Tag: tag, Msg: msg}
}

func errUnknownMsgType(msg string) *ParseError {
	return &ParseError{Kind: ErrKindUnknownMsgType, Msg: msg}
}

func errTrailingBytes(msg string) *ParseError {
	return &ParseError{Kind: ErrKindTrailingBytes, Msg: msg}
}
