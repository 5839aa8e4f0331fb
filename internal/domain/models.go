package domain

import "time"

// Role роль учётной записи
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleManager  Role = "manager"
)

// User учётная запись: клиент заказывает, персонал выставляет счета, менеджер администрирует
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
	FullName     string `json:"full_name"`
}

// Product позиция меню; остаток хранится в связанной записи Inventory (1:1)
type Product struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	Image    string  `json:"image"`
	IsActive bool    `json:"is_active"`
}

// Inventory счётчик остатка товара, живёт и умирает вместе с товаром
type Inventory struct {
	ID            int64 `json:"id"`
	ProductID     int64 `json:"product_id"`
	StockQuantity int64 `json:"stock_quantity"`
}

// DiscountCode именованная процентная скидка; код хранится в верхнем регистре
type DiscountCode struct {
	ID         int64   `json:"id"`
	Code       string  `json:"code"`
	Percentage float64 `json:"percentage"`
	Active     bool    `json:"active"`
}

// OrderStatus закрытый перечень статусов заказа; переходы только вперёд
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusPaying    OrderStatus = "Paying"
	OrderStatusCompleted OrderStatus = "Completed"
)

// Order отправленная корзина клиента. DiscountPercent фиксируется при
// создании и больше не меняется; StaffID проставляется только при завершении
type Order struct {
	ID              int64       `json:"id"`
	CustomerID      int64       `json:"customer_id"`
	StaffID         *int64      `json:"staff_id,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	Status          OrderStatus `json:"status"`
	DiscountPercent float64     `json:"discount_percent"`
	Lines           []OrderLine `json:"lines"`
}

// OrderLine строка заказа; имя и цена товара копируются в момент заказа,
// поздние правки каталога не меняют исторические суммы
type OrderLine struct {
	ID            int64   `json:"id"`
	OrderID       int64   `json:"order_id"`
	ProductID     int64   `json:"product_id"`
	ProductName   string  `json:"product_name"`
	Quantity      int64   `json:"quantity"`
	PriceAtTime   float64 `json:"price_at_time"`
	Customization string  `json:"customization"`
}

// Subtotal сумма одной строки
func (l OrderLine) Subtotal() float64 { return float64(l.Quantity) * l.PriceAtTime }

// RawTotal сумма строк до скидки
func (o Order) RawTotal() float64 {
	var sum float64
	for _, l := range o.Lines {
		sum += l.Subtotal()
	}
	return sum
}

// FinalTotal итог с учётом зафиксированного процента скидки
func (o Order) FinalTotal() float64 {
	return o.RawTotal() * (1 - o.DiscountPercent/100)
}

// Bill замороженный денежный снимок заказа, считается один раз; на заказ
// существует не более одного счёта
type Bill struct {
	ID              int64     `json:"id"`
	OrderID         int64     `json:"order_id"`
	CreatedAt       time.Time `json:"created_at"`
	TotalAmount     float64   `json:"total_amount"`
	DiscountApplied float64   `json:"discount_applied"`
	FinalAmount     float64   `json:"final_amount"`
}

// Payment запись об оплате; её наличие — терминальный маркер завершения заказа
type Payment struct {
	ID     int64     `json:"id"`
	BillID int64     `json:"bill_id"`
	Method string    `json:"method"`
	PaidAt time.Time `json:"paid_at"`
}

// Actor явная идентичность вызывающего; передаётся в каждый вызов
// координатора, никакого глобального current user. SessionID адресует
// приватные ответы, пустой для вызовов без сессии
type Actor struct {
	UserID    int64
	FullName  string
	Role      Role
	SessionID string
}
