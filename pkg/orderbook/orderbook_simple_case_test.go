package orderbook

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSimpleMatch(t *testing.T) {
	ob := NewOrderBook("ABC")

	sell := limitOrder(1, "S1", "2", "99.00", "10", 1)
	buy := limitOrder(2, "B1", "1", "100.00", "10", 2)

	ob.Submit(sell)
	execs := ob.Submit(buy)

	if len(execs) != 1 {
		t.Fatalf("expected 1 execution, got %d", len(execs))
	}
	e := execs[0]
	if e.BuyOrderID != 2 || e.SellOrderID != 1 {
		t.Errorf("order ids = %d/%d, want 2/1", e.BuyOrderID, e.SellOrderID)
	}
	if !e.LastQty.Equal(decimal.RequireFromString("10")) {
		t.Errorf("LastQty = %s, want 10", e.LastQty)
	}
	if !e.LastPx.Equal(decimal.RequireFromString("99.00")) {
		t.Errorf("LastPx = %s, want resting sell price 99.00", e.LastPx)
	}
	if buy.Status != StatusFilled || sell.Status != StatusFilled {
		t.Errorf("expected both orders Filled, got buy=%v sell=%v", buy.Status, sell.Status)
	}
}

func TestNoMatchDueToPrice(t *testing.T) {
	ob := NewOrderBook("ABC")

	sell := limitOrder(1, "S1", "2", "100.00", "10", 1)
	buy := limitOrder(2, "B1", "1", "98.00", "10", 2)

	ob.Submit(sell)
	execs := ob.Submit(buy)

	if len(execs) != 0 {
		t.Fatalf("expected no executions, got %d", len(execs))
	}
	if buy.Status != StatusNew {
		t.Errorf("buy.Status = %v, want New (resting)", buy.Status)
	}
}

func TestPartialFillWithPriceImprovement(t *testing.T) {
	ob := NewOrderBook("AAPL")

	buy := limitOrder(1, "B1", "1", "180.00", "100", 1)
	ob.Submit(buy)

	sell := limitOrder(2, "S1", "2", "175.00", "50", 2)
	execs := ob.Submit(sell)

	if len(execs) != 1 {
		t.Fatalf("expected 1 execution, got %d", len(execs))
	}
	if !execs[0].LastPx.Equal(decimal.RequireFromString("180.00")) {
		t.Errorf("LastPx = %s, want resting buy price 180.00 (price improvement)", execs[0].LastPx)
	}
	if sell.Status != StatusFilled {
		t.Errorf("sell.Status = %v, want Filled", sell.Status)
	}
	if buy.Status != StatusPartiallyFilled {
		t.Errorf("buy.Status = %v, want PartiallyFilled", buy.Status)
	}
	if !buy.Remaining().Equal(decimal.RequireFromString("50")) {
		t.Errorf("buy.Remaining() = %s, want 50", buy.Remaining())
	}
}

func TestPriceTimePriorityFIFO(t *testing.T) {
	ob := NewOrderBook("AAPL")

	a := limitOrder(1, "A", "1", "150.00", "100", 1)
	b := limitOrder(2, "B", "1", "150.00", "100", 2)
	ob.Submit(a)
	ob.Submit(b)

	sell := limitOrder(3, "S1", "2", "150.00", "100", 3)
	execs := ob.Submit(sell)

	if len(execs) != 1 {
		t.Fatalf("expected 1 execution, got %d", len(execs))
	}
	if execs[0].BuyOrderID != 1 {
		t.Errorf("matched buy order id = %d, want 1 (first in, first matched)", execs[0].BuyOrderID)
	}
	if a.Status != StatusFilled {
		t.Errorf("A.Status = %v, want Filled", a.Status)
	}
	if b.Status != StatusNew {
		t.Errorf("B.Status = %v, want New (still resting)", b.Status)
	}
}

func TestMultiLevelMatch(t *testing.T) {
	ob := NewOrderBook("AAPL")

	s1 := limitOrder(1, "S1", "2", "101.00", "5", 1)
	s2 := limitOrder(2, "S2", "2", "102.00", "5", 2)
	s3 := limitOrder(3, "S3", "2", "103.00", "5", 3)
	ob.Submit(s1)
	ob.Submit(s2)
	ob.Submit(s3)

	buy := limitOrder(4, "B1", "1", "105.00", "15", 4)
	execs := ob.Submit(buy)

	if len(execs) != 3 {
		t.Fatalf("expected 3 executions, got %d", len(execs))
	}
	if !execs[0].LastPx.Equal(decimal.RequireFromString("101.00")) {
		t.Errorf("first execution price = %s, want best price 101.00", execs[0].LastPx)
	}
	if !execs[2].LastPx.Equal(decimal.RequireFromString("103.00")) {
		t.Errorf("last execution price = %s, want 103.00", execs[2].LastPx)
	}
	if buy.Status != StatusFilled {
		t.Errorf("buy.Status = %v, want Filled", buy.Status)
	}
}

func TestMarketOrderResidualCancelsRatherThanRests(t *testing.T) {
	ob := NewOrderBook("AAPL")

	sell := limitOrder(1, "S1", "2", "150.00", "50", 1)
	ob.Submit(sell)

	buy := marketOrder(2, "B1", "1", "100", 2)
	execs := ob.Submit(buy)

	if len(execs) != 1 {
		t.Fatalf("expected 1 execution, got %d", len(execs))
	}
	if buy.Status != StatusCanceled {
		t.Errorf("buy.Status = %v, want Canceled (market residual is never rested)", buy.Status)
	}
	if _, ok := ob.FindOrder(2); ok {
		t.Error("unfilled market order residual should not be resting in the book")
	}
}

func TestHighVolumeOrdersConserveQuantity(t *testing.T) {
	ob := NewOrderBook("AAPL")

	num := 2000
	var totalMatched decimal.Decimal
	var id int64
	for i := 0; i < num; i++ {
		id++
		side := "1"
		if i%2 == 0 {
			side = "2"
		}
		order := limitOrder(id, "ID", side, "100.00", "10", id)
		execs := ob.Submit(order)
		for _, e := range execs {
			totalMatched = totalMatched.Add(e.LastQty)
		}
	}

	want := decimal.NewFromInt(int64(num / 2 * 10))
	if !totalMatched.Equal(want) {
		t.Errorf("total matched qty = %s, want %s", totalMatched, want)
	}
}

func TestConcurrentSubmissionsDoNotRace(t *testing.T) {
	ob := NewOrderBook("AAPL")

	var wg sync.WaitGroup
	n := 500
	submit := func(id int64, side string) {
		defer wg.Done()
		ob.Submit(limitOrder(id, "ID", side, "100.00", "10", id))
	}

	var id int64
	for i := 0; i < n; i++ {
		wg.Add(2)
		id++
		buyID := id
		id++
		sellID := id
		go submit(buyID, "1")
		go submit(sellID, "2")
	}
	wg.Wait()
}

func BenchmarkOrderBookSubmit(b *testing.B) {
	ob := NewOrderBook("AAPL")

	var id int64
	for i := 0; i < 10_000; i++ {
		id++
		price := decimal.NewFromInt(100).Add(decimal.NewFromInt(int64(i % 5)))
		ob.Submit(&Order{
			ID:     id,
			Symbol: "AAPL",
			Side:   "2",
			Kind:   "2",
			Price:  price,
			Qty:    decimal.NewFromInt(10),
			Status: StatusNew,
		})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		id++
		ob.Submit(&Order{
			ID:     id,
			Symbol: "AAPL",
			Side:   "1",
			Kind:   "2",
			Price:  decimal.RequireFromString("101.00"),
			Qty:    decimal.NewFromInt(10),
			Status: StatusNew,
		})
	}
}
