package service

import (
	"context"
	"errors"
	"testing"

	"arabica/internal/repository"
)

func TestDiscountService_CreateNormalizesCode(t *testing.T) {
	ctx := context.Background()
	svc := NewDiscountService(repository.NewMemoryDiscounts(repository.NewMemoryStore()))

	d, err := svc.Create(ctx, " save10 ", 10)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.Code != "SAVE10" || !d.Active {
		t.Fatalf("unexpected discount: %+v", d)
	}

	// duplicate in another case is still a duplicate
	if _, err := svc.Create(ctx, "Save10", 20); !errors.Is(err, repository.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
	list, _ := svc.List(ctx)
	if len(list) != 1 || list[0].Percentage != 10 {
		t.Fatalf("original discount must be unchanged: %v", list)
	}
}

func TestDiscountService_Validation(t *testing.T) {
	ctx := context.Background()
	svc := NewDiscountService(repository.NewMemoryDiscounts(repository.NewMemoryStore()))

	if _, err := svc.Create(ctx, "", 10); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := svc.Create(ctx, "X", 101); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if _, err := svc.Create(ctx, "X", -1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
