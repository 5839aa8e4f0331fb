package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"arabica/internal/domain"
)

// MemoryStore объединённое in-memory хранилище и простой генератор ID
type MemoryStore struct {
	mu sync.RWMutex

	nextProdID  int64
	nextInvID   int64
	nextOrderID int64
	nextLineID  int64
	nextBillID  int64
	nextPayID   int64
	nextDiscID  int64
	nextUserID  int64

	productsByID    map[int64]domain.Product
	inventoryByProd map[int64]domain.Inventory
	ordersByID      map[int64]domain.Order
	billsByOrder    map[int64]domain.Bill
	paymentsByBill  map[int64]domain.Payment
	discountsByID   map[int64]domain.DiscountCode
	usersByID       map[int64]domain.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextProdID:  1,
		nextInvID:   1,
		nextOrderID: 1,
		nextLineID:  1,
		nextBillID:  1,
		nextPayID:   1,
		nextDiscID:  1,
		nextUserID:  1,

		productsByID:    make(map[int64]domain.Product),
		inventoryByProd: make(map[int64]domain.Inventory),
		ordersByID:      make(map[int64]domain.Order),
		billsByOrder:    make(map[int64]domain.Bill),
		paymentsByBill:  make(map[int64]domain.Payment),
		discountsByID:   make(map[int64]domain.DiscountCode),
		usersByID:       make(map[int64]domain.User),
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

// Ensure interfaces
var _ CatalogRepository = (*MemoryStore)(nil)

// CatalogRepository implementation

func (m *MemoryStore) CreateProduct(ctx context.Context, p *domain.Product, stock int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p.ID = m.nextProdID
	m.nextProdID++
	m.productsByID[p.ID] = *p
	inv := domain.Inventory{ID: m.nextInvID, ProductID: p.ID, StockQuantity: stock}
	m.nextInvID++
	m.inventoryByProd[p.ID] = inv
	return nil
}

func (m *MemoryStore) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	cp := p
	return &cp, nil
}

func (m *MemoryStore) UpdateProduct(ctx context.Context, p *domain.Product, stock int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[p.ID]; !ok {
		return ErrNotFound
	}
	m.productsByID[p.ID] = *p
	inv := m.inventoryByProd[p.ID]
	inv.StockQuantity = stock
	m.inventoryByProd[p.ID] = inv
	return nil
}

func (m *MemoryStore) DeleteProduct(ctx context.Context, id int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[id]; !ok {
		return ErrNotFound
	}
	delete(m.productsByID, id)
	// inventory живёт и умирает вместе с товаром
	delete(m.inventoryByProd, id)
	return nil
}

func (m *MemoryStore) ListProducts(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Product, 0)
	for _, p := range m.productsByID {
		if f.ActiveOnly && !p.IsActive {
			continue
		}
		if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
			continue
		}
		if f.InStockOnly && m.inventoryByProd[p.ID].StockQuantity <= 0 {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetInventory(ctx context.Context, productID int64) (*domain.Inventory, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	inv, ok := m.inventoryByProd[productID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := inv
	return &cp, nil
}

// DecrementStock списание как compare-and-swap под блокировкой хранилища
func (m *MemoryStore) DecrementStock(ctx context.Context, productID, qty int64) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	inv, ok := m.inventoryByProd[productID]
	if !ok {
		return ErrNotFound
	}
	if inv.StockQuantity < qty {
		return ErrInsufficientStock
	}
	inv.StockQuantity -= qty
	m.inventoryByProd[productID] = inv
	return nil
}

// OrderRepository implementation on wrapper type
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (mo *MemoryOrders) CreateOrder(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o.ID = mo.store.nextOrderID
	mo.store.nextOrderID++
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	for i := range o.Lines {
		o.Lines[i].ID = mo.store.nextLineID
		mo.store.nextLineID++
		o.Lines[i].OrderID = o.ID
	}
	mo.store.ordersByID[o.ID] = cloneOrder(*o)
	return nil
}

func (mo *MemoryOrders) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneOrder(o)
	return &cp, nil
}

func (mo *MemoryOrders) UpdateOrder(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	if _, ok := mo.store.ordersByID[o.ID]; !ok {
		return ErrNotFound
	}
	mo.store.ordersByID[o.ID] = cloneOrder(*o)
	return nil
}

func (mo *MemoryOrders) ListOpenOrders(ctx context.Context) ([]domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	out := make([]domain.Order, 0)
	for _, o := range mo.store.ordersByID {
		if o.Status == domain.OrderStatusCompleted {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// copy with its own lines slice
func cloneOrder(o domain.Order) domain.Order {
	cp := o
	cp.Lines = make([]domain.OrderLine, len(o.Lines))
	copy(cp.Lines, o.Lines)
	if o.StaffID != nil {
		staffID := *o.StaffID
		cp.StaffID = &staffID
	}
	return cp
}

// BillingRepository implementation on wrapper type
type MemoryBilling struct{ store *MemoryStore }

func NewMemoryBilling(store *MemoryStore) *MemoryBilling { return &MemoryBilling{store: store} }

var _ BillingRepository = (*MemoryBilling)(nil)

func (mb *MemoryBilling) CreateBill(ctx context.Context, b *domain.Bill) error {
	mb.store.wlock(ctx)
	defer mb.store.wunlock(ctx)
	// check-then-create держится под одной блокировкой — аналог
	// уникального ограничения на order_id
	if _, ok := mb.store.billsByOrder[b.OrderID]; ok {
		return ErrAlreadyExists
	}
	b.ID = mb.store.nextBillID
	mb.store.nextBillID++
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	mb.store.billsByOrder[b.OrderID] = *b
	return nil
}

func (mb *MemoryBilling) GetBillByOrder(ctx context.Context, orderID int64) (*domain.Bill, error) {
	mb.store.rlock(ctx)
	defer mb.store.runlock(ctx)
	b, ok := mb.store.billsByOrder[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := b
	return &cp, nil
}

func (mb *MemoryBilling) CreatePayment(ctx context.Context, p *domain.Payment) error {
	mb.store.wlock(ctx)
	defer mb.store.wunlock(ctx)
	if _, ok := mb.store.paymentsByBill[p.BillID]; ok {
		return ErrAlreadyExists
	}
	p.ID = mb.store.nextPayID
	mb.store.nextPayID++
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now().UTC()
	}
	mb.store.paymentsByBill[p.BillID] = *p
	return nil
}

func (mb *MemoryBilling) RevenueBetween(ctx context.Context, from, to time.Time) (float64, error) {
	mb.store.rlock(ctx)
	defer mb.store.runlock(ctx)
	var sum float64
	for _, b := range mb.store.billsByOrder {
		if b.CreatedAt.Before(from) || !b.CreatedAt.Before(to) {
			continue
		}
		sum += b.FinalAmount
	}
	return sum, nil
}

// DiscountRepository implementation on wrapper type
type MemoryDiscounts struct{ store *MemoryStore }

func NewMemoryDiscounts(store *MemoryStore) *MemoryDiscounts { return &MemoryDiscounts{store: store} }

var _ DiscountRepository = (*MemoryDiscounts)(nil)

func (md *MemoryDiscounts) CreateDiscount(ctx context.Context, d *domain.DiscountCode) error {
	md.store.wlock(ctx)
	defer md.store.wunlock(ctx)
	for _, existing := range md.store.discountsByID {
		if existing.Code == d.Code {
			return ErrAlreadyExists
		}
	}
	d.ID = md.store.nextDiscID
	md.store.nextDiscID++
	md.store.discountsByID[d.ID] = *d
	return nil
}

func (md *MemoryDiscounts) ListDiscounts(ctx context.Context) ([]domain.DiscountCode, error) {
	md.store.rlock(ctx)
	defer md.store.runlock(ctx)
	out := make([]domain.DiscountCode, 0)
	for _, d := range md.store.discountsByID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (md *MemoryDiscounts) GetActiveDiscount(ctx context.Context, code string) (*domain.DiscountCode, error) {
	md.store.rlock(ctx)
	defer md.store.runlock(ctx)
	for _, d := range md.store.discountsByID {
		if d.Active && d.Code == code {
			cp := d
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// UserRepository implementation on wrapper type
type MemoryUsers struct{ store *MemoryStore }

func NewMemoryUsers(store *MemoryStore) *MemoryUsers { return &MemoryUsers{store: store} }

var _ UserRepository = (*MemoryUsers)(nil)

func (mu *MemoryUsers) CreateUser(ctx context.Context, u *domain.User) error {
	mu.store.wlock(ctx)
	defer mu.store.wunlock(ctx)
	for _, existing := range mu.store.usersByID {
		if existing.Username == u.Username {
			return ErrAlreadyExists
		}
	}
	u.ID = mu.store.nextUserID
	mu.store.nextUserID++
	mu.store.usersByID[u.ID] = *u
	return nil
}

func (mu *MemoryUsers) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	mu.store.rlock(ctx)
	defer mu.store.runlock(ctx)
	u, ok := mu.store.usersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := u
	return &cp, nil
}

func (mu *MemoryUsers) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	mu.store.rlock(ctx)
	defer mu.store.runlock(ctx)
	for _, u := range mu.store.usersByID {
		if u.Username == username {
			cp := u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (mu *MemoryUsers) UpdateUser(ctx context.Context, u *domain.User) error {
	mu.store.wlock(ctx)
	defer mu.store.wunlock(ctx)
	if _, ok := mu.store.usersByID[u.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range mu.store.usersByID {
		if id != u.ID && existing.Username == u.Username {
			return ErrAlreadyExists
		}
	}
	mu.store.usersByID[u.ID] = *u
	return nil
}

func (mu *MemoryUsers) DeleteUser(ctx context.Context, id int64) error {
	mu.store.wlock(ctx)
	defer mu.store.wunlock(ctx)
	if _, ok := mu.store.usersByID[id]; !ok {
		return ErrNotFound
	}
	delete(mu.store.usersByID, id)
	return nil
}

func (mu *MemoryUsers) ListUsersByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	mu.store.rlock(ctx)
	defer mu.store.runlock(ctx)
	out := make([]domain.User, 0)
	for _, u := range mu.store.usersByID {
		if u.Role != role {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Tx manager using write lock to emulate transaction boundary
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

var _ TxManager = (*MemoryTx)(nil)

// WithTransaction для in-memory используем блокировку записи и помечаем
// контекст, чтобы репозитории пропускали внутренние локи
func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	ctx = context.WithValue(ctx, txKey{}, true)
	return fn(ctx)
}
