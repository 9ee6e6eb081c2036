package orderbook

import (
	"github.com/shopspring/decimal"

	"github.com/exchangesim/fixexchange/pkg/fix"
)

func limitOrder(id int64, clOrdID, side, price, qty string, seq int64) *Order {
	return &Order{
		ID:            id,
		ClientOrderID: clOrdID,
		Symbol:        "TEST",
		Side:          side,
		Kind:          fix.OrdTypeLimit,
		Qty:           decimal.RequireFromString(qty),
		Price:         decimal.RequireFromString(price),
		Status:        StatusNew,
		Timestamp:     seq,
	}
}

func marketOrder(id int64, clOrdID, side, qty string, seq int64) *Order {
	return &Order{
		ID:            id,
		ClientOrderID: clOrdID,
		Symbol:        "TEST",
		Side:          side,
		Kind:          fix.OrdTypeMarket,
		Qty:           decimal.RequireFromString(qty),
		Status:        StatusNew,
		Timestamp:     seq,
	}
}
