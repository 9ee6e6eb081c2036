// file: pkg/orderbook/orderbook.go

package orderbook

import (
	"container/heap"
	"sync"

	"github.com/gammazero/deque"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/exchangesim/fixexchange/pkg/fix"
)

// OrderBook is a single symbol's two-sided book of resting orders under
// price-time priority. Each OrderBook guards itself with its own mutex;
// the registry above it never holds a lock across a call into one.
type OrderBook struct {
	symbol string

	buyOrders  map[string]*deque.Deque[*Order]
	sellOrders map[string]*deque.Deque[*Order]

	buyHeap  *PriceHeap
	sellHeap *PriceHeap

	byID map[int64]*Order

	mu sync.Mutex
}

func NewOrderBook(symbol string) *OrderBook {
	buyHeap := NewPriceHeap(func(a, b decimal.Decimal) bool { return a.GreaterThan(b) }) // max-heap: best bid highest
	sellHeap := NewPriceHeap(func(a, b decimal.Decimal) bool { return a.LessThan(b) })    // min-heap: best ask lowest

	return &OrderBook{
		symbol:     symbol,
		buyOrders:  make(map[string]*deque.Deque[*Order]),
		sellOrders: make(map[string]*deque.Deque[*Order]),
		buyHeap:    buyHeap,
		sellHeap:   sellHeap,
		byID:       make(map[int64]*Order),
	}
}

// Submit adds order to the book and runs it against resting counter-side
// liquidity, atomically: no other Submit or CancelOrder on this symbol
// interleaves with it. It returns every Execution the match produced, in
// the order they occurred. order.Status is updated in place to its final
// resting/terminal state.
func (ob *OrderBook) Submit(order *Order) []Execution {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	var counterBook map[string]*deque.Deque[*Order]
	var counterHeap *PriceHeap
	var crosses func(orderPrice, counterPrice decimal.Decimal) bool

	if order.Side == fix.SideBuy {
		counterBook = ob.sellOrders
		counterHeap = ob.sellHeap
		crosses = func(orderPrice, counterPrice decimal.Decimal) bool {
			return order.Kind == fix.OrdTypeMarket || orderPrice.GreaterThanOrEqual(counterPrice)
		}
	} else {
		counterBook = ob.buyOrders
		counterHeap = ob.buyHeap
		crosses = func(orderPrice, counterPrice decimal.Decimal) bool {
			return order.Kind == fix.OrdTypeMarket || orderPrice.LessThanOrEqual(counterPrice)
		}
	}

	executions := ob.match(order, counterBook, counterHeap, crosses)

	remaining := order.Remaining()
	switch {
	case remaining.IsZero():
		order.Status = StatusFilled
	case order.Kind == fix.OrdTypeMarket:
		// a market order's unfilled residual is canceled, never rested.
		order.Status = StatusCanceled
	default:
		if len(executions) > 0 {
			order.Status = StatusPartiallyFilled
		} else {
			order.Status = StatusNew
		}
		ob.rest(order)
	}

	return executions
}

func (ob *OrderBook) match(
	order *Order,
	counterBook map[string]*deque.Deque[*Order],
	counterHeap *PriceHeap,
	crosses func(orderPrice, counterPrice decimal.Decimal) bool,
) []Execution {
	var executions []Execution

	for order.Remaining().IsPositive() {
		bestPrice, ok := counterHeap.Peek()
		if !ok || !crosses(order.Price, bestPrice) {
			break
		}

		level := counterBook[priceKey(bestPrice)]
		if level == nil || level.Len() == 0 {
			heap.Pop(counterHeap)
			delete(counterBook, priceKey(bestPrice))
			continue
		}

		resting := level.Front()
		level.PopFront()

		if resting.Status.IsTerminal() {
			delete(ob.byID, resting.ID)
			continue // canceled while resting; drop and retry this level
		}

		matchQty := minDecimal(order.Remaining(), resting.Remaining())
		order.FilledQty = order.FilledQty.Add(matchQty)
		resting.FilledQty = resting.FilledQty.Add(matchQty)

		exec := Execution{
			ExecID:       uuid.NewString(),
			Symbol:       ob.symbol,
			LastQty:      matchQty,
			LastPx:       bestPrice,
			Timestamp:    order.Timestamp,
			RestingOrder: resting,
		}
		if order.Side == fix.SideBuy {
			exec.BuyOrderID = order.ID
			exec.SellOrderID = resting.ID
		} else {
			exec.BuyOrderID = resting.ID
			exec.SellOrderID = order.ID
		}
		executions = append(executions, exec)

		if resting.Remaining().IsZero() {
			resting.Status = StatusFilled
			delete(ob.byID, resting.ID)
		} else {
			resting.Status = StatusPartiallyFilled
			level.PushFront(resting)
		}

		if level.Len() == 0 {
			heap.Pop(counterHeap)
			delete(counterBook, priceKey(bestPrice))
		}
	}

	return executions
}

// rest inserts order's remaining quantity into its side of the book.
// Callers must hold ob.mu.
func (ob *OrderBook) rest(order *Order) {
	var book map[string]*deque.Deque[*Order]
	var priceHeap *PriceHeap
	if order.Side == fix.SideBuy {
		book = ob.buyOrders
		priceHeap = ob.buyHeap
	} else {
		book = ob.sellOrders
		priceHeap = ob.sellHeap
	}

	key := priceKey(order.Price)
	if book[key] == nil {
		book[key] = &deque.Deque[*Order]{}
		heap.Push(priceHeap, order.Price)
	}
	book[key].PushBack(order)
	ob.byID[order.ID] = order
}

// CancelOrder removes order_id from the book if it is still live.
// Removal from its price-level deque is lazy: the order is marked
// Canceled here and skipped the next time match() or a depth snapshot
// walks past it.
func (ob *OrderBook) CancelOrder(orderID int64) (*Order, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	order, ok := ob.byID[orderID]
	if !ok || order.Status.IsTerminal() {
		return nil, ErrOrderNotFound
	}
	order.Status = StatusCanceled
	delete(ob.byID, orderID)
	return order, nil
}

// FindOrder returns the live resting order for order_id, if any.
func (ob *OrderBook) FindOrder(orderID int64) (*Order, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	order, ok := ob.byID[orderID]
	return order, ok
}

// BestBid returns the highest resting buy price, if any.
func (ob *OrderBook) BestBid() (decimal.Decimal, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.buyHeap.Peek()
}

// BestAsk returns the lowest resting sell price, if any.
func (ob *OrderBook) BestAsk() (decimal.Decimal, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.sellHeap.Peek()
}

// Spread returns BestAsk - BestBid. ok is false unless both sides have
// resting liquidity.
func (ob *OrderBook) Spread() (decimal.Decimal, bool) {
	bid, okBid := ob.BestBid()
	ask, okAsk := ob.BestAsk()
	if !okBid || !okAsk {
		return decimal.Decimal{}, false
	}
	return ask.Sub(bid), true
}

// Depth returns the aggregated resting quantity per price on the given
// side ("1" buy book / "2" sell book), skipping canceled orders still
// queued for lazy removal.
func (ob *OrderBook) Depth(side string) []PriceLevel {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	book := ob.sellOrders
	if side == fix.SideBuy {
		book = ob.buyOrders
	}

	levels := make([]PriceLevel, 0, len(book))
	for key, dq := range book {
		total := decimal.Zero
		for i := 0; i < dq.Len(); i++ {
			o := dq.At(i)
			if !o.Status.IsTerminal() {
				total = total.Add(o.Remaining())
			}
		}
		if total.IsPositive() {
			price, _ := decimal.NewFromString(key)
			levels = append(levels, PriceLevel{Price: price, Qty: total})
		}
	}
	return levels
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
