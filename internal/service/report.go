package service

import (
	"context"
	"time"

	"arabica/internal/repository"
)

// RevenueSummary выручка за стандартные окна менеджерской панели
type RevenueSummary struct {
	Day   float64 `json:"day"`
	Week  float64 `json:"week"`
	Month float64 `json:"month"`
}

// ReportService read-only запросы выручки по явному интервалу времени
type ReportService struct {
	billing repository.BillingRepository
	now     func() time.Time
}

func NewReportService(billing repository.BillingRepository) *ReportService {
	return &ReportService{billing: billing, now: time.Now}
}

// Revenue сумма итогов счетов за [from, to)
func (s *ReportService) Revenue(ctx context.Context, from, to time.Time) (float64, error) {
	if !to.After(from) {
		return 0, ErrInvalidInput
	}
	return s.billing.RevenueBetween(ctx, from, to)
}

// Summary выручка за сегодня, текущую неделю (с понедельника) и месяц
func (s *ReportService) Summary(ctx context.Context) (RevenueSummary, error) {
	now := s.now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7 // воскресенье в конец недели
	}
	week := day.AddDate(0, 0, -(weekday - 1))
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := now.Add(time.Nanosecond)

	var out RevenueSummary
	var err error
	if out.Day, err = s.billing.RevenueBetween(ctx, day, end); err != nil {
		return out, err
	}
	if out.Week, err = s.billing.RevenueBetween(ctx, week, end); err != nil {
		return out, err
	}
	if out.Month, err = s.billing.RevenueBetween(ctx, month, end); err != nil {
		return out, err
	}
	return out, nil
}
