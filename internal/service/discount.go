package service

import (
	"context"
	"strings"

	"arabica/internal/domain"
	"arabica/internal/repository"
)

// DiscountService менеджерское администрирование кодов скидок
type DiscountService struct {
	repo repository.DiscountRepository
}

func NewDiscountService(repo repository.DiscountRepository) *DiscountService {
	return &DiscountService{repo: repo}
}

// Create заводит код; код хранится в верхнем регистре, дубль отклоняется
// без изменения существующего состояния
func (s *DiscountService) Create(ctx context.Context, code string, percentage float64) (*domain.DiscountCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || percentage < 0 || percentage > 100 {
		return nil, ErrInvalidInput
	}
	d := domain.DiscountCode{Code: code, Percentage: percentage, Active: true}
	if err := s.repo.CreateDiscount(ctx, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DiscountService) List(ctx context.Context) ([]domain.DiscountCode, error) {
	return s.repo.ListDiscounts(ctx)
}
