package orderbook

import (
	"github.com/shopspring/decimal"

	"github.com/exchangesim/fixexchange/pkg/fix"
)

// Status is an order's place in its status DAG: New -> {PartiallyFilled,
// Filled, Canceled}, PartiallyFilled -> {Filled, Canceled}, and any state
// -> Rejected only at entry. Values match FIX tag 39 (OrdStatus) so the
// session layer can pass them straight through to an Execution Report.
type Status string

const (
	StatusNew             Status = fix.OrdStatusNew
	StatusPartiallyFilled Status = fix.OrdStatusPartiallyFilled
	StatusFilled          Status = fix.OrdStatusFilled
	StatusCanceled        Status = fix.OrdStatusCanceled
	StatusRejected        Status = fix.OrdStatusRejected
)

// IsTerminal reports whether status is one an order never leaves: once
// Filled, Canceled, or Rejected, the order is removed from its book.
func (s Status) IsTerminal() bool {
	return s == StatusFilled || s == StatusCanceled || s == StatusRejected
}

// Order is a resting or in-flight order. Side and Kind carry the raw FIX
// codes ('1'/'2') rather than a separate enum — the book, the wire
// protocol, and persistence all agree on the same two characters.
type Order struct {
	ID            int64
	ClientOrderID string
	Symbol        string
	Side          string // fix.SideBuy or fix.SideSell
	Kind          string // fix.OrdTypeMarket or fix.OrdTypeLimit
	Qty           decimal.Decimal
	FilledQty     decimal.Decimal
	Price         decimal.Decimal // zero for Market orders
	Status        Status
	Timestamp     int64 // submission time or sequence set by the caller, persisted and stamped on executions; time priority comes from each level's FIFO order
}

// Remaining returns qty - filled_qty, which the book's invariant requires
// to stay non-negative.
func (o *Order) Remaining() decimal.Decimal {
	return o.Qty.Sub(o.FilledQty)
}

// Execution is one fill produced by matching. Price is always the resting
// order's price (price improvement accrues to the aggressor), and both
// order ids are attached regardless of which side was the aggressor.
// RestingOrder is the counterparty order touched by this fill, captured
// at its post-fill state — the aggressor has no equivalent field here
// because Submit already returns the aggressor's own final order. A
// session that does not own the aggressor's order but does own
// RestingOrder uses it to relay a report to its own client without a
// second lookup into a book that may have already dropped the order.
type Execution struct {
	ExecID       string
	BuyOrderID   int64
	SellOrderID  int64
	Symbol       string
	LastQty      decimal.Decimal
	LastPx       decimal.Decimal
	Timestamp    int64
	RestingOrder *Order
}

// PriceLevel is one row of a depth snapshot: a resting price and the
// total quantity still working at it.
type PriceLevel struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}
