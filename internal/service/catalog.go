package service

import (
	"context"
	"errors"

	"arabica/internal/domain"
	"arabica/internal/repository"
)

var ErrInvalidInput = errors.New("invalid input")

// CatalogService инкапсулирует менеджерскую логику вокруг меню и остатков
type CatalogService struct {
	repo repository.CatalogRepository
}

func NewCatalogService(repo repository.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

func (s *CatalogService) Create(ctx context.Context, p domain.Product, stock int64) (*domain.Product, error) {
	if p.Name == "" || p.Price < 0 || stock < 0 {
		return nil, ErrInvalidInput
	}
	cp := p
	if err := s.repo.CreateProduct(ctx, &cp, stock); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *CatalogService) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.GetProduct(ctx, id)
}

func (s *CatalogService) GetInventory(ctx context.Context, productID int64) (*domain.Inventory, error) {
	if productID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.GetInventory(ctx, productID)
}

// Update правит карточку товара и выставляет остаток; исторические заказы
// не затрагиваются — их строки хранят цену на момент заказа
func (s *CatalogService) Update(ctx context.Context, p domain.Product, stock int64) (*domain.Product, error) {
	if p.ID <= 0 || p.Name == "" || p.Price < 0 || stock < 0 {
		return nil, ErrInvalidInput
	}
	cp := p
	if err := s.repo.UpdateProduct(ctx, &cp, stock); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *CatalogService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	return s.repo.DeleteProduct(ctx, id)
}

func (s *CatalogService) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, f)
}

// Menu активные товары с положительным остатком — то, что видит клиент
func (s *CatalogService) Menu(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, repository.ProductFilter{ActiveOnly: true, InStockOnly: true})
}
