package domain

import (
	"errors"
	"testing"
)

func TestNewOrder_SnapshotsSalePrice(t *testing.T) {
	o, err := NewOrder("user-1", "usd", []CartLine{
		{BookID: "a", Title: "A", MRP: 1500, Sale: 999, Quantity: 1},
		{BookID: "b", Title: "B", MRP: 500, Sale: 250, Quantity: 3},
	})
	if err != nil {
		t.Fatalf("NewOrder: %v", err)
	}
	if o.Status != OrderPending {
		t.Fatalf("expected pending, got %s", o.Status)
	}
	if o.Total != 999+750 {
		t.Fatalf("expected total 1749, got %d", o.Total)
	}
	if o.Items[1].UnitPrice != 250 || o.Items[1].LineTotal != 750 {
		t.Fatalf("unexpected line %+v", o.Items[1])
	}
}

func TestNewOrder_EmptyCart(t *testing.T) {
	if _, err := NewOrder("user-1", "usd", nil); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if !IsValidation(ErrEmptyCart) {
		t.Fatalf("empty cart should be reported as a validation error")
	}
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	if OrderPending.IsTerminal() {
		t.Fatalf("pending must not be terminal")
	}
	if !OrderPaid.IsTerminal() || !OrderFailed.IsTerminal() {
		t.Fatalf("paid and failed must be terminal")
	}
}

func TestOrder_BookIDs(t *testing.T) {
	o := Order{Items: []OrderItem{{BookID: "a"}, {BookID: "b"}, {BookID: "a"}}}
	ids := o.BookIDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("unexpected ids %v", ids)
	}
}
