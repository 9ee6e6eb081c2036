package persistence

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/exchangesim/fixexchange/pkg/orderbook"
)

// GormPort is the PostgreSQL-backed Port implementation. It holds no
// state of its own beyond the *gorm.DB handle — connection pooling,
// retry, and replica routing are infra/postgres's job.
type GormPort struct {
	db *gorm.DB
}

func NewGormPort(db *gorm.DB) *GormPort {
	return &GormPort{db: db}
}

func (p *GormPort) dbWithContext(ctx context.Context) *gorm.DB {
	return p.db.WithContext(ctx)
}

// SaveOrder upserts the order's current snapshot keyed on order_id.
// Replaying the same (status, filled_qty) is a no-op update, which is
// what makes this idempotent under at-least-once delivery from the event
// bus.
func (p *GormPort) SaveOrder(ctx context.Context, order *orderbook.Order) error {
	record := toOrderRecord(order)
	return p.dbWithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "filled_qty", "updated_at"}),
	}).Create(record).Error
}

// SaveExecution inserts an execution. Executions are immutable once
// born, so exec_id as primary key makes a repeated insert a harmless
// conflict rather than a duplicate row.
func (p *GormPort) SaveExecution(ctx context.Context, exec *orderbook.Execution) error {
	record := toExecutionRecord(exec)
	return p.dbWithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "exec_id"}},
		DoNothing: true,
	}).Create(record).Error
}

func (p *GormPort) FindOrder(ctx context.Context, orderID int64) (*orderbook.Order, error) {
	var record OrderRecord
	if err := p.dbWithContext(ctx).First(&record, "order_id = ?", orderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, orderbook.ErrOrderNotFound
		}
		return nil, err
	}
	return record.toOrder(), nil
}

func (p *GormPort) OrdersBySymbol(ctx context.Context, symbol string) ([]*orderbook.Order, error) {
	var records []OrderRecord
	if err := p.dbWithContext(ctx).Where("symbol = ?", symbol).Find(&records).Error; err != nil {
		return nil, err
	}
	orders := make([]*orderbook.Order, 0, len(records))
	for i := range records {
		orders = append(orders, records[i].toOrder())
	}
	return orders, nil
}

func (p *GormPort) OrdersByStatus(ctx context.Context, status orderbook.Status) ([]*orderbook.Order, error) {
	var records []OrderRecord
	if err := p.dbWithContext(ctx).Where("status = ?", string(status)).Find(&records).Error; err != nil {
		return nil, err
	}
	orders := make([]*orderbook.Order, 0, len(records))
	for i := range records {
		orders = append(orders, records[i].toOrder())
	}
	return orders, nil
}

func (p *GormPort) RecentExecutions(ctx context.Context, limit int) ([]*orderbook.Execution, error) {
	var records []ExecutionRecord
	if err := p.dbWithContext(ctx).Order("timestamp DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	execs := make([]*orderbook.Execution, 0, len(records))
	for i := range records {
		execs = append(execs, records[i].toExecution())
	}
	return execs, nil
}

func (p *GormPort) CountOrders(ctx context.Context) (int64, error) {
	var count int64
	err := p.dbWithContext(ctx).Model(&OrderRecord{}).Count(&count).Error
	return count, err
}
