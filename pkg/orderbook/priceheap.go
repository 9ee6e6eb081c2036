package orderbook

import "github.com/shopspring/decimal"

// priceKey canonicalizes a price for use as a map/dedup key: decimal
// values built from different literals (e.g. "150" vs "150.00") compare
// equal but carry different internal exponents, so equality on the
// decimal.Decimal itself is not safe to rely on as a map key.
func priceKey(p decimal.Decimal) string {
	return p.StringFixed(8)
}

// PriceHeap implements heap.Interface over resting price levels. less
// decides max-heap (bids) or min-heap (asks) ordering; index deduplicates
// pushes so the same price never enters the heap twice.
type PriceHeap struct {
	prices []decimal.Decimal
	less   func(a, b decimal.Decimal) bool
	index  map[string]bool
}

func NewPriceHeap(less func(a, b decimal.Decimal) bool) *PriceHeap {
	return &PriceHeap{
		prices: []decimal.Decimal{},
		less:   less,
		index:  make(map[string]bool),
	}
}

func (h PriceHeap) Len() int {
	return len(h.prices)
}

func (h PriceHeap) Less(i, j int) bool {
	return h.less(h.prices[i], h.prices[j])
}

func (h PriceHeap) Swap(i, j int) {
	h.prices[i], h.prices[j] = h.prices[j], h.prices[i]
}

func (h *PriceHeap) Push(x any) {
	price := x.(decimal.Decimal)
	key := priceKey(price)
	if !h.index[key] {
		h.index[key] = true
		h.prices = append(h.prices, price)
	}
}

func (h *PriceHeap) Pop() any {
	n := len(h.prices)
	price := h.prices[n-1]
	h.prices = h.prices[:n-1]
	delete(h.index, priceKey(price))
	return price
}

func (h *PriceHeap) Peek() (decimal.Decimal, bool) {
	if len(h.prices) == 0 {
		return decimal.Decimal{}, false
	}
	return h.prices[0], true
}
