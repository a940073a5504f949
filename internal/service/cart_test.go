package service

import (
	"testing"

	"github.com/comanda-pos/api/internal/domain"
	"github.com/comanda-pos/api/internal/enum"
	"github.com/google/uuid"
)

func cartProduct(name, price string) domain.Product {
	return domain.Product{ID: uuid.New(), Name: name, Price: money(price)}
}

func TestCart_AddIncrementsExistingLine(t *testing.T) {
	cart := NewCartSession()
	burger := cartProduct("Burger", "10.00")
	soda := cartProduct("Soda", "5.00")

	cart.AddToCart(burger)
	cart.AddToCart(soda)
	cart.AddToCart(burger)

	items := cart.Items()
	if len(items) != 2 {
		t.Fatalf("lines: got %d, want 2", len(items))
	}
	if items[0].ProductID != burger.ID || items[0].Quantity != 2 {
		t.Errorf("line 0: %+v, want Burger x2", items[0])
	}
	if items[1].ProductID != soda.ID || items[1].Quantity != 1 {
		t.Errorf("line 1: %+v, want Soda x1", items[1])
	}
	if !cart.Total().Equal(money("25.00")) {
		t.Errorf("total: got %s, want 25.00", cart.Total())
	}
}

func TestCart_UpdateQuantityClampsAtOne(t *testing.T) {
	cart := NewCartSession()
	burger := cartProduct("Burger", "10.00")
	cart.AddToCart(burger)

	cart.UpdateQuantity(burger.ID, 3)
	if got := cart.Items()[0].Quantity; got != 4 {
		t.Errorf("after +3: got %d, want 4", got)
	}

	cart.UpdateQuantity(burger.ID, -10)
	if got := cart.Items()[0].Quantity; got != 1 {
		t.Errorf("after -10: got %d, want clamp to 1", got)
	}
	if len(cart.Items()) != 1 {
		t.Errorf("decrement must never remove the line")
	}
}

func TestCart_RemoveIsExplicit(t *testing.T) {
	cart := NewCartSession()
	burger := cartProduct("Burger", "10.00")
	soda := cartProduct("Soda", "5.00")
	cart.AddToCart(burger)
	cart.AddToCart(soda)

	cart.RemoveFromCart(burger.ID)

	items := cart.Items()
	if len(items) != 1 || items[0].ProductID != soda.ID {
		t.Fatalf("items after remove: %+v, want only Soda", items)
	}

	// Removing an absent product is a no-op.
	cart.RemoveFromCart(uuid.New())
	if len(cart.Items()) != 1 {
		t.Errorf("remove of unknown product changed the cart")
	}
}

func TestCart_ItemsReturnsACopy(t *testing.T) {
	cart := NewCartSession()
	cart.AddToCart(cartProduct("Burger", "10.00"))

	items := cart.Items()
	items[0].Quantity = 99

	if got := cart.Items()[0].Quantity; got != 1 {
		t.Errorf("mutating the returned slice leaked into the cart: %d", got)
	}
}

func TestCart_GrandTotalMergesTabHistory(t *testing.T) {
	cart := NewCartSession()
	cart.AddToCart(cartProduct("Fries", "4.00"))

	tab := &domain.Tab{
		TargetType: enum.TargetTypeTable,
		Total:      money("25.00"),
	}
	if got := cart.GrandTotal(tab); !got.Equal(money("29.00")) {
		t.Errorf("grand total with tab: got %s, want 29.00", got)
	}

	// Counter sales have no tab side.
	counter := &domain.Tab{TargetType: enum.TargetTypeCounter, Total: money("99.00")}
	if got := cart.GrandTotal(counter); !got.Equal(money("4.00")) {
		t.Errorf("grand total for counter: got %s, want 4.00", got)
	}
	if got := cart.GrandTotal(nil); !got.Equal(money("4.00")) {
		t.Errorf("grand total without tab: got %s, want 4.00", got)
	}
}

func TestCart_ClearEmptiesEverything(t *testing.T) {
	cart := NewCartSession()
	cart.AddToCart(cartProduct("Burger", "10.00"))
	cart.Clear()

	if len(cart.Items()) != 0 {
		t.Errorf("items after clear: %d", len(cart.Items()))
	}
	if !cart.Total().IsZero() {
		t.Errorf("total after clear: %s", cart.Total())
	}
}
