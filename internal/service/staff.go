package service

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"arabica/internal/domain"
	"arabica/internal/repository"
)

// StaffService менеджерское администрирование учётных записей персонала
type StaffService struct {
	repo repository.UserRepository
}

func NewStaffService(repo repository.UserRepository) *StaffService {
	return &StaffService{repo: repo}
}

// Create заводит сотрудника; дубль логина отклоняется, состояние не меняется
func (s *StaffService) Create(ctx context.Context, username, fullName, password string) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         domain.RoleStaff,
		FullName:     fullName,
	}
	if err := s.repo.CreateUser(ctx, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Update правит логин и имя; пароль меняется только если передан непустой
func (s *StaffService) Update(ctx context.Context, id int64, username, fullName, password string) (*domain.User, error) {
	if id <= 0 || username == "" {
		return nil, ErrInvalidInput
	}
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Username = username
	u.FullName = fullName
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = string(hash)
	}
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *StaffService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	return s.repo.DeleteUser(ctx, id)
}

func (s *StaffService) List(ctx context.Context) ([]domain.User, error) {
	return s.repo.ListUsersByRole(ctx, domain.RoleStaff)
}
