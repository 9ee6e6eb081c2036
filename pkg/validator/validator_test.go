package validator

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/exchangesim/fixexchange/pkg/fix"
)

func TestValidateNewOrderRejectsInvalidPrice(t *testing.T) {
	req := NewOrderRequest{
		ClOrdID:  "C1",
		Symbol:   "AAPL",
		Side:     fix.SideBuy,
		OrdType:  fix.OrdTypeLimit,
		Quantity: decimal.NewFromInt(100),
		Price:    decimal.NewFromFloat(-10.00),
		HasPrice: true,
	}
	err := New().ValidateNewOrder(req)
	assertKind(t, err, InvalidPrice)
}

func TestValidateNewOrderRejectsInvalidSymbol(t *testing.T) {
	req := NewOrderRequest{
		ClOrdID:  "C2",
		Symbol:   "INVALID",
		Side:     fix.SideBuy,
		OrdType:  fix.OrdTypeMarket,
		Quantity: decimal.NewFromInt(100),
	}
	err := New().ValidateNewOrder(req)
	assertKind(t, err, InvalidSymbol)
}

func TestValidateNewOrderRejectsInvalidQuantity(t *testing.T) {
	req := NewOrderRequest{
		ClOrdID:  "C3",
		Symbol:   "MSFT",
		Side:     fix.SideSell,
		OrdType:  fix.OrdTypeLimit,
		Quantity: decimal.Zero,
		Price:    decimal.NewFromFloat(350.00),
		HasPrice: true,
	}
	err := New().ValidateNewOrder(req)
	assertKind(t, err, InvalidQuantity)
}

func TestValidateNewOrderAcceptsWellFormedOrder(t *testing.T) {
	req := NewOrderRequest{
		ClOrdID:  "C4",
		Symbol:   "AAPL",
		Side:     fix.SideBuy,
		OrdType:  fix.OrdTypeLimit,
		Quantity: decimal.NewFromInt(100),
		Price:    decimal.NewFromFloat(180.00),
		HasPrice: true,
	}
	if err := New().ValidateNewOrder(req); err != nil {
		t.Fatalf("ValidateNewOrder() = %v, want nil", err)
	}
}

func TestValidateNewOrderRequiresPriceForLimit(t *testing.T) {
	req := NewOrderRequest{
		ClOrdID:  "C5",
		Symbol:   "AAPL",
		Side:     fix.SideBuy,
		OrdType:  fix.OrdTypeLimit,
		Quantity: decimal.NewFromInt(10),
	}
	err := New().ValidateNewOrder(req)
	var verr *Error
	if err == nil {
		t.Fatal("ValidateNewOrder() = nil, want MissingField")
	}
	if ok := asError(err, &verr); !ok || verr.Kind != MissingField || verr.Tag != fix.TagPrice {
		t.Fatalf("err = %v, want MissingField on tag 44", err)
	}
}

func TestValidateNewOrderMarketOrderSkipsPriceCheck(t *testing.T) {
	req := NewOrderRequest{
		ClOrdID:  "C6",
		Symbol:   "TSLA",
		Side:     fix.SideSell,
		OrdType:  fix.OrdTypeMarket,
		Quantity: decimal.NewFromInt(50),
	}
	if err := New().ValidateNewOrder(req); err != nil {
		t.Fatalf("ValidateNewOrder() = %v, want nil for market order", err)
	}
}

func TestValidateCancelRejectsMissingSide(t *testing.T) {
	req := CancelRequest{
		ClOrdID: "C7",
		Symbol:  "AAPL",
		OrderID: "1",
	}
	err := New().ValidateCancel(req)
	var verr *Error
	if !asError(err, &verr) || verr.Kind != MissingField || verr.Tag != fix.TagSide {
		t.Fatalf("err = %v, want MissingField on tag 54", err)
	}
}

func TestValidateCancelAcceptsWellFormedRequest(t *testing.T) {
	req := CancelRequest{
		ClOrdID: "C8",
		Symbol:  "AAPL",
		Side:    fix.SideBuy,
		OrderID: "1",
	}
	if err := New().ValidateCancel(req); err != nil {
		t.Fatalf("ValidateCancel() = %v, want nil", err)
	}
}

func assertKind(t *testing.T, err error, want Kind) {
	t.Helper()
	var verr *Error
	if !asError(err, &verr) {
		t.Fatalf("err = %v, want *Error with Kind %v", err, want)
	}
	if verr.Kind != want {
		t.Fatalf("Kind = %v, want %v", verr.Kind, want)
	}
}

func asError(err error, target **Error) bool {
	v, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = v
	return true
}
