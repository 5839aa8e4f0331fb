package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"arabica/internal/broadcast"
	"arabica/internal/domain"
	"arabica/internal/repository"
)

// PaymentMethodTag метка способа оплаты в записи Payment
const PaymentMethodTag = "QR/Cash"

var (
	ErrInvalidState = errors.New("invalid state")
)

// CartLine строка корзины, как её присылает клиентская сессия
type CartLine struct {
	ProductID     int64  `json:"id"`
	Quantity      int64  `json:"qty"`
	Customization string `json:"options"`
}

// Coordinator координатор заказов: проверяет остатки, создаёт заказы,
// двигает статусы, ведёт последовательность счёт/оплата и публикует
// события на каждом шаге. Рассылки уходят только после фиксации
// транзакции; откат подавляет все побочные эффекты.
type Coordinator struct {
	catalog   repository.CatalogRepository
	orders    repository.OrderRepository
	billing   repository.BillingRepository
	discounts repository.DiscountRepository
	tx        repository.TxManager
	hub       *broadcast.Hub
}

func NewCoordinator(
	catalog repository.CatalogRepository,
	orders repository.OrderRepository,
	billing repository.BillingRepository,
	discounts repository.DiscountRepository,
	tx repository.TxManager,
	hub *broadcast.Hub,
) *Coordinator {
	return &Coordinator{
		catalog:   catalog,
		orders:    orders,
		billing:   billing,
		discounts: discounts,
		tx:        tx,
		hub:       hub,
	}
}

// PlaceOrder атомарно создаёт заказ по корзине. Строки с неизвестным,
// неактивным товаром или нехваткой остатка молча пропускаются — частичный
// заказ принимается. Списание остатка и создание строки фиксируются в одной
// транзакции; при сбое ни заказ, ни списания не сохраняются и рассылка не
// отправляется.
func (c *Coordinator) PlaceOrder(ctx context.Context, actor domain.Actor, cart []CartLine, discountPercent float64) (*domain.Order, error) {
	if len(cart) == 0 || discountPercent < 0 || discountPercent > 100 {
		return nil, ErrInvalidInput
	}
	for _, l := range cart {
		if l.ProductID <= 0 || l.Quantity <= 0 {
			return nil, ErrInvalidInput
		}
	}

	var created *domain.Order
	err := c.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o := domain.Order{
			CustomerID:      actor.UserID,
			CreatedAt:       time.Now().UTC(),
			Status:          domain.OrderStatusPending,
			DiscountPercent: discountPercent,
		}
		for _, item := range cart {
			p, err := c.catalog.GetProduct(ctx, item.ProductID)
			if errors.Is(err, repository.ErrNotFound) {
				continue // unknown product: line is skipped
			}
			if err != nil {
				return err
			}
			if !p.IsActive {
				continue
			}
			// conditional decrement: check and write cannot race
			err = c.catalog.DecrementStock(ctx, p.ID, item.Quantity)
			if errors.Is(err, repository.ErrInsufficientStock) || errors.Is(err, repository.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			o.Lines = append(o.Lines, domain.OrderLine{
				ProductID:     p.ID,
				ProductName:   p.Name,
				Quantity:      item.Quantity,
				PriceAtTime:   p.Price,
				Customization: item.Customization,
			})
		}
		if err := c.orders.CreateOrder(ctx, &o); err != nil {
			return err
		}
		created = &o
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.hub.Publish(domain.TopicStaff, broadcast.Event{
		Name: domain.EventUpdateStaffOrders,
		Payload: domain.StaffOrderNotice{
			ID:       created.ID,
			Customer: actor.FullName,
			Details:  orderDetails(created.Lines),
			Total:    created.FinalTotal(),
			Time:     created.CreatedAt.Format("15:04"),
			Discount: created.DiscountPercent,
		},
	})
	if actor.SessionID != "" {
		c.hub.Publish(domain.SessionTopic(actor.SessionID), broadcast.Event{
			Name:    domain.EventOrderSuccess,
			Payload: domain.OrderAck{Msg: "Order received"},
		})
	}
	return created, nil
}

// RequestPayment переводит заказ в Paying и лениво создаёт счёт. Повторный
// запрос переиспользует существующий счёт (идемпотентность обеспечена
// уникальностью счёта на заказ). Отсутствующий заказ — no-op.
func (c *Coordinator) RequestPayment(ctx context.Context, orderID int64) (*domain.Bill, error) {
	var (
		bill  *domain.Bill
		order *domain.Order
	)
	err := c.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := c.orders.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == domain.OrderStatusCompleted {
			// завершённый заказ неизменяем, назад не двигаемся
			return ErrInvalidState
		}
		if o.Status == domain.OrderStatusPending {
			o.Status = domain.OrderStatusPaying
			if err := c.orders.UpdateOrder(ctx, o); err != nil {
				return err
			}
		}
		order = o

		b, err := c.billing.GetBillByOrder(ctx, o.ID)
		if err == nil {
			bill = b
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		raw := o.RawTotal()
		discount := raw * o.DiscountPercent / 100
		nb := &domain.Bill{
			OrderID:         o.ID,
			CreatedAt:       time.Now().UTC(),
			TotalAmount:     raw,
			DiscountApplied: discount,
			FinalAmount:     raw - discount,
		}
		if err := c.billing.CreateBill(ctx, nb); err != nil {
			if errors.Is(err, repository.ErrAlreadyExists) {
				// lost a duplicate-request race, reuse the winner's bill
				bill, err = c.billing.GetBillByOrder(ctx, o.ID)
			}
			return err
		}
		bill = nb
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		log.Printf("coordinator: payment requested for unknown order %d", orderID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.hub.Publish(domain.TopicCustomer, broadcast.Event{
		Name: domain.EventShowCustomerQR,
		Payload: domain.PaymentNotice{
			Total:    bill.FinalAmount,
			RawTotal: bill.TotalAmount,
			Discount: bill.DiscountApplied,
			Items:    billItems(order.Lines),
		},
	})
	return bill, nil
}

// ConfirmPayment завершает заказ: статус Completed, ссылка на подтвердившего
// сотрудника, запись Payment по счёту. Без заказа или без счёта — no-op:
// статус не двигается, оплата не создаётся.
func (c *Coordinator) ConfirmPayment(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Payment, error) {
	var payment *domain.Payment
	err := c.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := c.orders.GetOrder(ctx, orderID)
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("coordinator: payment confirmed for unknown order %d", orderID)
			return nil
		}
		if err != nil {
			return err
		}
		b, err := c.billing.GetBillByOrder(ctx, o.ID)
		if errors.Is(err, repository.ErrNotFound) {
			// оплату нельзя подтвердить без счёта (Pending → Completed запрещён)
			log.Printf("coordinator: order %d has no bill, confirm ignored", orderID)
			return nil
		}
		if err != nil {
			return err
		}
		if o.Status != domain.OrderStatusPaying {
			return nil
		}

		o.Status = domain.OrderStatusCompleted
		staffID := actor.UserID
		o.StaffID = &staffID
		if err := c.orders.UpdateOrder(ctx, o); err != nil {
			return err
		}
		p := &domain.Payment{
			BillID: b.ID,
			Method: PaymentMethodTag,
			PaidAt: time.Now().UTC(),
		}
		if err := c.billing.CreatePayment(ctx, p); err != nil {
			return err
		}
		payment = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, nil
	}

	// все сессии обновляют свои списки сами, полезная нагрузка пустая
	ev := broadcast.Event{Name: domain.EventPaymentSuccess, Payload: struct{}{}}
	c.hub.Publish(domain.TopicStaff, ev)
	c.hub.Publish(domain.TopicCustomer, ev)
	return payment, nil
}

// CheckDiscount нормализует код и ищет его среди активных. Результат
// отправляется приватно только запросившей сессии, никогда broadcast.
func (c *Coordinator) CheckDiscount(ctx context.Context, actor domain.Actor, code string) (domain.DiscountResult, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))

	var res domain.DiscountResult
	d, err := c.discounts.GetActiveDiscount(ctx, normalized)
	switch {
	case err == nil:
		res = domain.DiscountResult{Valid: true, Percent: d.Percentage, Code: normalized}
	case errors.Is(err, repository.ErrNotFound):
		res = domain.DiscountResult{Valid: false, Msg: "Invalid discount code"}
	default:
		return domain.DiscountResult{}, err
	}

	if actor.SessionID != "" {
		c.hub.Publish(domain.SessionTopic(actor.SessionID), broadcast.Event{
			Name:    domain.EventDiscountResult,
			Payload: res,
		})
	}
	return res, nil
}

// GetOrder чтение заказа для переподключившихся сессий
func (c *Coordinator) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return c.orders.GetOrder(ctx, id)
}

// OpenOrders незавершённые заказы для панели персонала
func (c *Coordinator) OpenOrders(ctx context.Context) ([]domain.Order, error) {
	return c.orders.ListOpenOrders(ctx)
}

// orderDetails человекочитаемая сводка строк для извещения персонала
func orderDetails(lines []domain.OrderLine) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.Customization != "" {
			parts = append(parts, fmt.Sprintf("%s (%s)", l.ProductName, l.Customization))
		} else {
			parts = append(parts, fmt.Sprintf("%s x%d", l.ProductName, l.Quantity))
		}
	}
	return strings.Join(parts, ", ")
}

func billItems(lines []domain.OrderLine) []domain.BillItem {
	items := make([]domain.BillItem, 0, len(lines))
	for _, l := range lines {
		name := l.ProductName
		if l.Customization != "" {
			name = fmt.Sprintf("%s (%s)", l.ProductName, l.Customization)
		}
		items = append(items, domain.BillItem{Name: name, Qty: l.Quantity, Subtotal: l.Subtotal()})
	}
	return items
}
