package repository

import (
	"context"
	"errors"
	"time"

	"arabica/internal/domain"
)

// Сигнальные ошибки, общие для всех реализаций хранилища.
var (
	// ErrNotFound возвращается, когда сущность не найдена
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists нарушение уникальности (код скидки, логин, счёт заказа)
	ErrAlreadyExists = errors.New("already exists")
	// ErrInsufficientStock условное списание остатка не применилось
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ProductFilter параметры фильтрации списка товаров
type ProductFilter struct {
	Category    string
	ActiveOnly  bool
	InStockOnly bool
}

// CatalogRepository интерфейс каталога: товары и их остатки (1:1).
// Удаление товара удаляет и его Inventory.
type CatalogRepository interface {
	CreateProduct(ctx context.Context, p *domain.Product, stock int64) error
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	UpdateProduct(ctx context.Context, p *domain.Product, stock int64) error
	DeleteProduct(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, f ProductFilter) ([]domain.Product, error)
	GetInventory(ctx context.Context, productID int64) (*domain.Inventory, error)
	// DecrementStock атомарно списывает qty, только если остатка хватает,
	// иначе ErrInsufficientStock и никаких изменений
	DecrementStock(ctx context.Context, productID, qty int64) error
}

// DiscountRepository интерфейс реестра скидок; коды уникальны, в верхнем регистре
type DiscountRepository interface {
	CreateDiscount(ctx context.Context, d *domain.DiscountCode) error
	ListDiscounts(ctx context.Context) ([]domain.DiscountCode, error)
	// GetActiveDiscount ищет только среди активных кодов
	GetActiveDiscount(ctx context.Context, code string) (*domain.DiscountCode, error)
}

// OrderRepository интерфейс журнала заказов; заказ хранится вместе со строками
type OrderRepository interface {
	CreateOrder(ctx context.Context, o *domain.Order) error
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	UpdateOrder(ctx context.Context, o *domain.Order) error
	// ListOpenOrders незавершённые заказы, новые первыми
	ListOpenOrders(ctx context.Context) ([]domain.Order, error)
}

// BillingRepository счета и оплаты. CreateBill гарантирует не более одного
// счёта на заказ и возвращает ErrAlreadyExists при дубле.
type BillingRepository interface {
	CreateBill(ctx context.Context, b *domain.Bill) error
	GetBillByOrder(ctx context.Context, orderID int64) (*domain.Bill, error)
	CreatePayment(ctx context.Context, p *domain.Payment) error
	// RevenueBetween сумма итогов счетов, созданных в [from, to)
	RevenueBetween(ctx context.Context, from, to time.Time) (float64, error)
}

// UserRepository учётные записи. CreateUser возвращает ErrAlreadyExists
// при дубле логина.
type UserRepository interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateUser(ctx context.Context, u *domain.User) error
	DeleteUser(ctx context.Context, id int64) error
	ListUsersByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
}

// TxManager абстракция транзакции. Для in-memory — глобальная блокировка записи.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
