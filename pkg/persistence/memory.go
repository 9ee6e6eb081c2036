package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/exchangesim/fixexchange/pkg/orderbook"
)

// MemoryPort is an in-memory Port, used in tests and for running the
// exchange without a database configured. It is safe for concurrent use.
type MemoryPort struct {
	mu         sync.RWMutex
	orders     map[int64]*orderbook.Order
	executions []*orderbook.Execution
	seenExecID map[string]bool
}

func NewMemoryPort() *MemoryPort {
	return &MemoryPort{
		orders:     make(map[int64]*orderbook.Order),
		seenExecID: make(map[string]bool),
	}
}

func (p *MemoryPort) SaveOrder(ctx context.Context, order *orderbook.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	snapshot := *order
	p.orders[order.ID] = &snapshot
	return nil
}

func (p *MemoryPort) SaveExecution(ctx context.Context, exec *orderbook.Execution) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seenExecID[exec.ExecID] {
		return nil
	}
	p.seenExecID[exec.ExecID] = true
	snapshot := *exec
	p.executions = append(p.executions, &snapshot)
	return nil
}

func (p *MemoryPort) FindOrder(ctx context.Context, orderID int64) (*orderbook.Order, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	order, ok := p.orders[orderID]
	if !ok {
		return nil, orderbook.ErrOrderNotFound
	}
	snapshot := *order
	return &snapshot, nil
}

func (p *MemoryPort) OrdersBySymbol(ctx context.Context, symbol string) ([]*orderbook.Order, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []*orderbook.Order
	for _, o := range p.orders {
		if o.Symbol == symbol {
			snapshot := *o
			out = append(out, &snapshot)
		}
	}
	return out, nil
}

func (p *MemoryPort) OrdersByStatus(ctx context.Context, status orderbook.Status) ([]*orderbook.Order, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []*orderbook.Order
	for _, o := range p.orders {
		if o.Status == status {
			snapshot := *o
			out = append(out, &snapshot)
		}
	}
	return out, nil
}

func (p *MemoryPort) RecentExecutions(ctx context.Context, limit int) ([]*orderbook.Execution, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sorted := make([]*orderbook.Execution, len(p.executions))
	copy(sorted, p.executions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp > sorted[j].Timestamp })
	if limit > 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

func (p *MemoryPort) CountOrders(ctx context.Context) (int64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return int64(len(p.orders)), nil
}
