package service

import (
	"context"
	"errors"
	"testing"

	"arabica/internal/domain"
	"arabica/internal/repository"
)

func TestCatalogService_CreateAndMenu(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := NewCatalogService(store)

	p, err := svc.Create(ctx, domain.Product{Name: "Latte", Price: 100, Category: "Cafe", IsActive: true}, 5)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, domain.Product{Name: "Hidden", Price: 50, IsActive: false}, 5); err != nil {
		t.Fatalf("create inactive: %v", err)
	}
	if _, err := svc.Create(ctx, domain.Product{Name: "Empty", Price: 10, IsActive: true}, 0); err != nil {
		t.Fatalf("create out of stock: %v", err)
	}

	menu, err := svc.Menu(ctx)
	if err != nil {
		t.Fatalf("menu: %v", err)
	}
	if len(menu) != 1 || menu[0].ID != p.ID {
		t.Fatalf("menu must hold only active in-stock items: %v", menu)
	}
}

func TestCatalogService_Validation(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(repository.NewMemoryStore())

	if _, err := svc.Create(ctx, domain.Product{Name: "", Price: 1}, 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := svc.Create(ctx, domain.Product{Name: "A", Price: -1}, 1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := svc.Create(ctx, domain.Product{Name: "A", Price: 1}, -1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := svc.GetByID(ctx, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestCatalogService_UpdateStock(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := NewCatalogService(store)

	p, err := svc.Create(ctx, domain.Product{Name: "Latte", Price: 100, IsActive: true}, 5)
	if err != nil {
		t.Fatal(err)
	}
	p.Price = 120
	if _, err := svc.Update(ctx, *p, 9); err != nil {
		t.Fatalf("update: %v", err)
	}
	inv, err := svc.GetInventory(ctx, p.ID)
	if err != nil || inv.StockQuantity != 9 {
		t.Fatalf("stock expected 9, got %v (%v)", inv, err)
	}
}
