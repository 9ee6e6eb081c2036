// Package validator runs the pre-trade checks a New Order Single or Order
// Cancel Request must pass before it reaches the matching engine: symbol
// whitelist, positive quantity, positive price for limit orders, and
// presence of the tags each message type requires.
package validator

import (
	"github.com/shopspring/decimal"

	"github.com/exchangesim/fixexchange/pkg/fix"
)

// Kind distinguishes why a New Order Single was rejected, mirroring the
// signals a failed check is required to raise.
type Kind int

const (
	InvalidSymbol Kind = iota
	InvalidQuantity
	InvalidPrice
	MissingField
	DuplicateClOrdID
)

func (k Kind) String() string {
	switch k {
	case InvalidSymbol:
		return "Invalid symbol"
	case InvalidQuantity:
		return "Invalid quantity"
	case InvalidPrice:
		return "Invalid price"
	case MissingField:
		return "Missing field"
	case DuplicateClOrdID:
		return "Duplicate ClOrdID"
	default:
		return "Invalid order"
	}
}

// Error is the typed validation failure. Its Error() text is the exact
// reject reason carried back to the client in tag 58 (Text).
type Error struct {
	Kind Kind
	Tag  int // set for MissingField, 0 otherwise
}

func (e *Error) Error() string {
	return e.Kind.String()
}

// symbols is the closed whitelist this exchange trades.
var symbols = map[string]bool{
	"AAPL":  true,
	"GOOGL": true,
	"MSFT":  true,
	"AMZN":  true,
	"TSLA":  true,
}

// NewOrderRequest is the decoded, not-yet-validated shape of a New Order
// Single (35=D).
type NewOrderRequest struct {
	ClOrdID  string
	Symbol   string
	Side     string
	OrdType  string
	Quantity decimal.Decimal
	Price    decimal.Decimal
	HasPrice bool
}

// CancelRequest is the decoded, not-yet-validated shape of an Order Cancel
// Request (35=F). OrderID is the raw tag 37 value the client is asking to
// cancel; it is carried as text since an unparseable or unknown value is
// itself a "order not found" StateError, not a validation concern here.
type CancelRequest struct {
	ClOrdID string
	Symbol  string
	Side    string
	OrderID string
}

// Validator holds no state beyond the whitelist; it is safe to share across
// sessions.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// ValidateNewOrder checks a New Order Single against every pre-trade rule,
// in the order the rules are specified: required fields first (a message
// too sparse to reason about can't fail a later check meaningfully), then
// symbol, then quantity, then price.
func (v *Validator) ValidateNewOrder(req NewOrderRequest) error {
	if req.ClOrdID == "" {
		return &Error{Kind: MissingField, Tag: fix.TagClOrdID}
	}
	if req.Symbol == "" {
		return &Error{Kind: MissingField, Tag: fix.TagSymbol}
	}
	if req.Side != fix.SideBuy && req.Side != fix.SideSell {
		return &Error{Kind: MissingField, Tag: fix.TagSide}
	}
	if req.OrdType != fix.OrdTypeMarket && req.OrdType != fix.OrdTypeLimit {
		return &Error{Kind: MissingField, Tag: fix.TagOrdType}
	}
	if req.OrdType == fix.OrdTypeLimit && !req.HasPrice {
		return &Error{Kind: MissingField, Tag: fix.TagPrice}
	}

	if !symbols[req.Symbol] {
		return &Error{Kind: InvalidSymbol}
	}
	if req.Quantity.Sign() <= 0 {
		return &Error{Kind: InvalidQuantity}
	}
	if req.OrdType == fix.OrdTypeLimit && req.Price.Sign() <= 0 {
		return &Error{Kind: InvalidPrice}
	}
	return nil
}

// ValidateCancel checks an Order Cancel Request's required fields; whether
// the referenced order exists or is still live is a StateError the
// matching engine raises, not this package's concern.
func (v *Validator) ValidateCancel(req CancelRequest) error {
	if req.ClOrdID == "" {
		return &Error{Kind: MissingField, Tag: fix.TagClOrdID}
	}
	if req.Symbol == "" {
		return &Error{Kind: MissingField, Tag: fix.TagSymbol}
	}
	if req.Side != fix.SideBuy && req.Side != fix.SideSell {
		return &Error{Kind: MissingField, Tag: fix.TagSide}
	}
	return nil
}

// IsValidSymbol reports whether symbol is in the exchange's whitelist.
func IsValidSymbol(symbol string) bool {
	return symbols[symbol]
}
