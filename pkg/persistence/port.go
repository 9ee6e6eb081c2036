// Package persistence defines the durable-storage boundary between the
// matching engine and whatever database backs it, plus a PostgreSQL
// (GORM) adapter and an in-memory adapter for tests. The interface is
// opaque and append-only: nothing above it inspects a storage-specific
// type.
package persistence

import (
	"context"

	"github.com/exchangesim/fixexchange/pkg/orderbook"
)

// Port is the persistence boundary the matching engine and session layer
// write through. Implementations must be safe for concurrent use and
// must serialize their own writes; callers never hold a lock across a
// Port call. SaveOrder is idempotent on the triple (order_id, status,
// filled_qty) — replaying the same snapshot is a no-op.
type Port interface {
	SaveOrder(ctx context.Context, order *orderbook.Order) error
	SaveExecution(ctx context.Context, exec *orderbook.Execution) error
	FindOrder(ctx context.Context, orderID int64) (*orderbook.Order, error)
	OrdersBySymbol(ctx context.Context, symbol string) ([]*orderbook.Order, error)
	OrdersByStatus(ctx context.Context, status orderbook.Status) ([]*orderbook.Order, error)
	RecentExecutions(ctx context.Context, limit int) ([]*orderbook.Execution, error)
	CountOrders(ctx context.Context) (int64, error)
}
