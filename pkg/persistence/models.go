package persistence

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/exchangesim/fixexchange/pkg/orderbook"
)

// OrderRecord is the GORM row shape for an order snapshot. Price/Qty are
// stored as strings to preserve decimal.Decimal's exact representation —
// Postgres NUMERIC round-trips through GORM as a string via this column
// type without float drift.
type OrderRecord struct {
	OrderID       int64  `gorm:"column:order_id;primaryKey"`
	ClientOrderID string `gorm:"column:client_order_id;index"`
	Symbol        string `gorm:"column:symbol;index"`
	Side          string `gorm:"column:side"`
	Kind          string `gorm:"column:kind"`
	Qty           string `gorm:"column:qty;type:numeric"`
	FilledQty     string `gorm:"column:filled_qty;type:numeric"`
	Price         string `gorm:"column:price;type:numeric"`
	Status        string `gorm:"column:status;index"`
	Timestamp     int64  `gorm:"column:timestamp"`
	UpdatedAt     time.Time
}

func (OrderRecord) TableName() string { return "orders" }

func toOrderRecord(o *orderbook.Order) *OrderRecord {
	return &OrderRecord{
		OrderID:       o.ID,
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Symbol,
		Side:          o.Side,
		Kind:          o.Kind,
		Qty:           o.Qty.String(),
		FilledQty:     o.FilledQty.String(),
		Price:         o.Price.String(),
		Status:        string(o.Status),
		Timestamp:     o.Timestamp,
	}
}

func (r *OrderRecord) toOrder() *orderbook.Order {
	return &orderbook.Order{
		ID:            r.OrderID,
		ClientOrderID: r.ClientOrderID,
		Symbol:        r.Symbol,
		Side:          r.Side,
		Kind:          r.Kind,
		Qty:           mustDecimal(r.Qty),
		FilledQty:     mustDecimal(r.FilledQty),
		Price:         mustDecimal(r.Price),
		Status:        orderbook.Status(r.Status),
		Timestamp:     r.Timestamp,
	}
}

// ExecutionRecord is the GORM row shape for an execution.
type ExecutionRecord struct {
	ExecID      string `gorm:"column:exec_id;primaryKey"`
	BuyOrderID  int64  `gorm:"column:buy_order_id;index"`
	SellOrderID int64  `gorm:"column:sell_order_id;index"`
	Symbol      string `gorm:"column:symbol;index"`
	LastQty     string `gorm:"column:last_qty;type:numeric"`
	LastPx      string `gorm:"column:last_px;type:numeric"`
	Timestamp   int64  `gorm:"column:timestamp;index"`
}

func (ExecutionRecord) TableName() string { return "executions" }

func toExecutionRecord(e *orderbook.Execution) *ExecutionRecord {
	return &ExecutionRecord{
		ExecID:      e.ExecID,
		BuyOrderID:  e.BuyOrderID,
		SellOrderID: e.SellOrderID,
		Symbol:      e.Symbol,
		LastQty:     e.LastQty.String(),
		LastPx:      e.LastPx.String(),
		Timestamp:   e.Timestamp,
	}
}

func (r *ExecutionRecord) toExecution() *orderbook.Execution {
	return &orderbook.Execution{
		ExecID:      r.ExecID,
		BuyOrderID:  r.BuyOrderID,
		SellOrderID: r.SellOrderID,
		Symbol:      r.Symbol,
		LastQty:     mustDecimal(r.LastQty),
		LastPx:      mustDecimal(r.LastPx),
		Timestamp:   r.Timestamp,
	}
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
