// Package matchingengine is the registry of per-symbol order books: it
// lazily creates a book on first use, validates incoming orders before
// they reach one, and is the only thing a Session talks to once a
// message has been decoded.
package matchingengine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/exchangesim/fixexchange/pkg/fix"
	"github.com/exchangesim/fixexchange/pkg/metrics"
	"github.com/exchangesim/fixexchange/pkg/orderbook"
	"github.com/exchangesim/fixexchange/pkg/validator"
)

// Engine guards the symbol -> OrderBook registry; each OrderBook guards
// itself, so Engine only ever holds its own lock long enough to find or
// create a book, never across a call into one.
type Engine struct {
	books sync.Map // string -> *orderbook.OrderBook

	validator *validator.Validator
	nextID    int64
}

func New() *Engine {
	return &Engine{validator: validator.New()}
}

// Submit validates req, assigns it an order id, and runs it against the
// book for its symbol. On a validation failure the returned order is nil
// and err is a *validator.Error carrying the reject reason; the order is
// never created or inserted, per the Validator contract.
func (e *Engine) Submit(req validator.NewOrderRequest) (*orderbook.Order, []orderbook.Execution, error) {
	if err := e.validator.ValidateNewOrder(req); err != nil {
		return nil, nil, err
	}

	order := &orderbook.Order{
		ID:            atomic.AddInt64(&e.nextID, 1),
		ClientOrderID: req.ClOrdID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Kind:          req.OrdType,
		Qty:           req.Quantity,
		Price:         req.Price,
		Status:        orderbook.StatusNew,
		Timestamp:     time.Now().UnixNano(),
	}

	book := e.getOrCreateBook(req.Symbol)
	executions := book.Submit(order)
	reportDepth(req.Symbol, book)
	return order, executions, nil
}

// Cancel delegates to symbol's book. err is orderbook.ErrOrderNotFound if
// order_id is unknown or already terminal there.
func (e *Engine) Cancel(symbol string, orderID int64) (*orderbook.Order, error) {
	book := e.getOrCreateBook(symbol)
	order, err := book.CancelOrder(orderID)
	if err == nil {
		reportDepth(symbol, book)
	}
	return order, err
}

// reportDepth publishes the current resting quantity on both sides of
// book to the orderbook_depth gauge.
func reportDepth(symbol string, book *orderbook.OrderBook) {
	metrics.SetOrderbookDepth(symbol, fix.SideBuy, sumDepth(book.Depth(fix.SideBuy)))
	metrics.SetOrderbookDepth(symbol, fix.SideSell, sumDepth(book.Depth(fix.SideSell)))
}

func sumDepth(levels []orderbook.PriceLevel) float64 {
	total := 0.0
	for _, l := range levels {
		total += l.Qty.InexactFloat64()
	}
	return total
}

// FindOrder looks up a still-resting order on symbol's book.
func (e *Engine) FindOrder(symbol string, orderID int64) (*orderbook.Order, bool) {
	book := e.getOrCreateBook(symbol)
	return book.FindOrder(orderID)
}

// Snapshot returns the aggregated resting depth on both sides of symbol's
// book, for the event bus's Snapshot envelope.
func (e *Engine) Snapshot(symbol string) (bids, asks []orderbook.PriceLevel) {
	book := e.getOrCreateBook(symbol)
	return book.Depth("1"), book.Depth("2")
}

// Symbols lists the symbols with a book already created, without the
// side effect of creating one for a symbol that has never seen an order
// — used to build a Snapshot event without touching every whitelisted
// symbol.
func (e *Engine) Symbols() []string {
	var symbols []string
	e.books.Range(func(key, _ any) bool {
		symbols = append(symbols, key.(string))
		return true
	})
	return symbols
}

func (e *Engine) getOrCreateBook(symbol string) *orderbook.OrderBook {
	if val, ok := e.books.Load(symbol); ok {
		return val.(*orderbook.OrderBook)
	}
	book := orderbook.NewOrderBook(symbol)
	actual, _ := e.books.LoadOrStore(symbol, book)
	return actual.(*orderbook.OrderBook)
}
