package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"arabica/internal/domain"
)

func TestMemoryStore_ProductLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := domain.Product{Name: "Latte", Price: 100, Category: "Cafe", IsActive: true}
	if err := store.CreateProduct(ctx, &p, 5); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == 0 {
		t.Fatalf("no id")
	}

	inv, err := store.GetInventory(ctx, p.ID)
	if err != nil || inv.StockQuantity != 5 {
		t.Fatalf("inventory: %v %v", inv, err)
	}

	p.Price = 120
	if err := store.UpdateProduct(ctx, &p, 7); err != nil {
		t.Fatalf("update: %v", err)
	}
	inv, _ = store.GetInventory(ctx, p.ID)
	if inv.StockQuantity != 7 {
		t.Fatalf("stock expected 7, got %v", inv.StockQuantity)
	}

	// deleting the product deletes its inventory too
	if err := store.DeleteProduct(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetProduct(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.GetInventory(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected inventory gone, got %v", err)
	}
}

func TestMemoryStore_DecrementStock(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p := domain.Product{Name: "Espresso", Price: 30, IsActive: true}
	if err := store.CreateProduct(ctx, &p, 5); err != nil {
		t.Fatal(err)
	}

	if err := store.DecrementStock(ctx, p.ID, 3); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if err := store.DecrementStock(ctx, p.ID, 3); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	inv, _ := store.GetInventory(ctx, p.ID)
	if inv.StockQuantity != 2 {
		t.Fatalf("stock expected 2, got %v", inv.StockQuantity)
	}
	if err := store.DecrementStock(ctx, 999, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStore_ListProductsFiltering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	add := func(name, category string, active bool, stock int64) {
		p := domain.Product{Name: name, Price: 10, Category: category, IsActive: active}
		if err := store.CreateProduct(ctx, &p, stock); err != nil {
			t.Fatal(err)
		}
	}
	add("Latte", "Cafe", true, 5)
	add("Secret", "Cafe", false, 5)
	add("Sold out", "Tea", true, 0)

	list, _ := store.ListProducts(ctx, ProductFilter{ActiveOnly: true, InStockOnly: true})
	if len(list) != 1 || list[0].Name != "Latte" {
		t.Fatalf("menu filter: %v", list)
	}

	list, _ = store.ListProducts(ctx, ProductFilter{Category: "tea"})
	if len(list) != 1 || list[0].Name != "Sold out" {
		t.Fatalf("category filter: %v", list)
	}

	list, _ = store.ListProducts(ctx, ProductFilter{})
	if len(list) != 3 {
		t.Fatalf("expected all, got %v", len(list))
	}
}

func TestMemoryBilling_OneBillPerOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	billing := NewMemoryBilling(store)

	b := domain.Bill{OrderID: 1, TotalAmount: 100, FinalAmount: 100}
	if err := billing.CreateBill(ctx, &b); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := domain.Bill{OrderID: 1, TotalAmount: 100, FinalAmount: 100}
	if err := billing.CreateBill(ctx, &dup); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
	got, err := billing.GetBillByOrder(ctx, 1)
	if err != nil || got.ID != b.ID {
		t.Fatalf("get: %v %v", got, err)
	}
}

func TestMemoryBilling_RevenueBetween(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	billing := NewMemoryBilling(store)

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	mk := func(orderID int64, amount float64, at time.Time) {
		b := domain.Bill{OrderID: orderID, CreatedAt: at, TotalAmount: amount, FinalAmount: amount}
		if err := billing.CreateBill(ctx, &b); err != nil {
			t.Fatal(err)
		}
	}
	mk(1, 100, base)
	mk(2, 50, base.Add(24*time.Hour))
	mk(3, 25, base.Add(-24*time.Hour))

	sum, err := billing.RevenueBetween(ctx, base.Add(-time.Hour), base.Add(time.Hour))
	if err != nil || sum != 100 {
		t.Fatalf("revenue expected 100, got %v (%v)", sum, err)
	}
	sum, _ = billing.RevenueBetween(ctx, base.Add(-48*time.Hour), base.Add(48*time.Hour))
	if sum != 175 {
		t.Fatalf("revenue expected 175, got %v", sum)
	}
}

func TestMemoryDiscounts_UniqueCode(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	discounts := NewMemoryDiscounts(store)

	d := domain.DiscountCode{Code: "SAVE10", Percentage: 10, Active: true}
	if err := discounts.CreateDiscount(ctx, &d); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := domain.DiscountCode{Code: "SAVE10", Percentage: 20, Active: true}
	if err := discounts.CreateDiscount(ctx, &dup); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}

	inactive := domain.DiscountCode{Code: "OLD", Percentage: 5, Active: false}
	if err := discounts.CreateDiscount(ctx, &inactive); err != nil {
		t.Fatal(err)
	}
	if _, err := discounts.GetActiveDiscount(ctx, "OLD"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("inactive code must be invisible, got %v", err)
	}
}

func TestMemoryUsers_UniqueUsername(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	users := NewMemoryUsers(store)

	u := domain.User{Username: "staff", Role: domain.RoleStaff, FullName: "A"}
	if err := users.CreateUser(ctx, &u); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := domain.User{Username: "staff", Role: domain.RoleStaff}
	if err := users.CreateUser(ctx, &dup); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}

	other := domain.User{Username: "other", Role: domain.RoleStaff}
	if err := users.CreateUser(ctx, &other); err != nil {
		t.Fatal(err)
	}
	other.Username = "staff"
	if err := users.UpdateUser(ctx, &other); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected already exists on rename, got %v", err)
	}
}

func TestMemoryTx_TransactionalDecrement(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tx := NewMemoryTx(store)
	orders := NewMemoryOrders(store)

	p := domain.Product{Name: "Latte", Price: 100, IsActive: true}
	if err := store.CreateProduct(ctx, &p, 5); err != nil {
		t.Fatal(err)
	}

	// emulate atomic order placement with stock decrement
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := store.DecrementStock(ctx, p.ID, 3); err != nil {
			return err
		}
		o := domain.Order{
			CustomerID: 1,
			Status:     domain.OrderStatusPending,
			Lines: []domain.OrderLine{
				{ProductID: p.ID, ProductName: p.Name, Quantity: 3, PriceAtTime: p.Price},
			},
		}
		return orders.CreateOrder(ctx, &o)
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	inv, _ := store.GetInventory(context.Background(), p.ID)
	if inv.StockQuantity != 2 {
		t.Fatalf("stock expected 2, got %v", inv.StockQuantity)
	}
	open, _ := orders.ListOpenOrders(context.Background())
	if len(open) != 1 || len(open[0].Lines) != 1 {
		t.Fatalf("open orders: %v", open)
	}
}
