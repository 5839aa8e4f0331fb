package service

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"arabica/internal/repository"
)

func TestStaffService_CreateHashesPassword(t *testing.T) {
	ctx := context.Background()
	svc := NewStaffService(repository.NewMemoryUsers(repository.NewMemoryStore()))

	u, err := svc.Create(ctx, "anna", "Anna", "secret")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.PasswordHash == "secret" || u.PasswordHash == "" {
		t.Fatalf("password stored in clear")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret")); err != nil {
		t.Fatalf("hash mismatch: %v", err)
	}

	if _, err := svc.Create(ctx, "anna", "Other", "pwd"); !errors.Is(err, repository.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
}

func TestStaffService_UpdateKeepsPasswordWhenEmpty(t *testing.T) {
	ctx := context.Background()
	svc := NewStaffService(repository.NewMemoryUsers(repository.NewMemoryStore()))

	u, err := svc.Create(ctx, "anna", "Anna", "secret")
	if err != nil {
		t.Fatal(err)
	}
	oldHash := u.PasswordHash

	updated, err := svc.Update(ctx, u.ID, "anna", "Anna B.", "")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PasswordHash != oldHash {
		t.Fatalf("empty password must keep the old hash")
	}

	updated, err = svc.Update(ctx, u.ID, "anna", "Anna B.", "newpwd")
	if err != nil {
		t.Fatal(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("newpwd")); err != nil {
		t.Fatalf("new hash mismatch: %v", err)
	}
}

func TestStaffService_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	svc := NewStaffService(repository.NewMemoryUsers(repository.NewMemoryStore()))

	u, err := svc.Create(ctx, "anna", "Anna", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, "boris", "Boris", "secret"); err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, err := svc.List(ctx)
	if err != nil || len(list) != 1 || list[0].Username != "boris" {
		t.Fatalf("list: %v (%v)", list, err)
	}
}
