package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"arabica/internal/domain"
)

// PostgresStore реализация всех репозиториев поверх pgx-пула.
// Транзакция кладётся в контекст, запросы внутри неё идут через pgx.Tx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() { s.pool.Close() }

var (
	_ CatalogRepository  = (*PostgresStore)(nil)
	_ OrderRepository    = (*PostgresStore)(nil)
	_ BillingRepository  = (*PostgresStore)(nil)
	_ DiscountRepository = (*PostgresStore)(nil)
	_ UserRepository     = (*PostgresStore)(nil)
	_ TxManager          = (*PostgresStore)(nil)
)

type pgTxKey struct{}

// querier общий срез pool/tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresStore) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(pgTxKey{}).(pgx.Tx); ok {
		return tx
	}
	return s.pool
}

// WithTransaction выполняет fn в одной транзакции; ошибка — полный откат
func (s *PostgresStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(pgTxKey{}).(pgx.Tx); ok {
		// already inside a transaction
		return fn(ctx)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, pgTxKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CatalogRepository

func (s *PostgresStore) CreateProduct(ctx context.Context, p *domain.Product, stock int64) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		err := s.q(ctx).QueryRow(ctx,
			`INSERT INTO products (name, price, category, image, is_active)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			p.Name, p.Price, p.Category, p.Image, p.IsActive,
		).Scan(&p.ID)
		if err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		_, err = s.q(ctx).Exec(ctx,
			`INSERT INTO inventories (product_id, stock_quantity) VALUES ($1, $2)`,
			p.ID, stock,
		)
		if err != nil {
			return fmt.Errorf("failed to create inventory: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := s.q(ctx).QueryRow(ctx,
		`SELECT id, name, price, category, image, is_active FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.Image, &p.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, p *domain.Product, stock int64) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		tag, err := s.q(ctx).Exec(ctx,
			`UPDATE products SET name = $1, price = $2, category = $3, image = $4, is_active = $5 WHERE id = $6`,
			p.Name, p.Price, p.Category, p.Image, p.IsActive, p.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		_, err = s.q(ctx).Exec(ctx,
			`UPDATE inventories SET stock_quantity = $1 WHERE product_id = $2`, stock, p.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update inventory: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id int64) error {
	// inventories удаляется каскадом по внешнему ключу
	tag, err := s.q(ctx).Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListProducts(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	query := `SELECT p.id, p.name, p.price, p.category, p.image, p.is_active
	          FROM products p JOIN inventories i ON i.product_id = p.id WHERE 1=1`
	args := make([]any, 0, 2)
	if f.Category != "" {
		args = append(args, f.Category)
		query += fmt.Sprintf(" AND lower(p.category) = lower($%d)", len(args))
	}
	if f.ActiveOnly {
		query += " AND p.is_active"
	}
	if f.InStockOnly {
		query += " AND i.stock_quantity > 0"
	}
	query += " ORDER BY p.id"

	rows, err := s.q(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.Image, &p.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetInventory(ctx context.Context, productID int64) (*domain.Inventory, error) {
	var inv domain.Inventory
	err := s.q(ctx).QueryRow(ctx,
		`SELECT id, product_id, stock_quantity FROM inventories WHERE product_id = $1`, productID,
	).Scan(&inv.ID, &inv.ProductID, &inv.StockQuantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}
	return &inv, nil
}

// DecrementStock условное списание одним UPDATE; проверка и запись не расходятся
func (s *PostgresStore) DecrementStock(ctx context.Context, productID, qty int64) error {
	tag, err := s.q(ctx).Exec(ctx,
		`UPDATE inventories SET stock_quantity = stock_quantity - $1
		 WHERE product_id = $2 AND stock_quantity >= $1`,
		qty, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetInventory(ctx, productID); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrInsufficientStock
	}
	return nil
}

// OrderRepository

func (s *PostgresStore) CreateOrder(ctx context.Context, o *domain.Order) error {
	return s.WithTransaction(ctx, func(ctx context.Context) error {
		err := s.q(ctx).QueryRow(ctx,
			`INSERT INTO orders (customer_id, created_at, status, discount_percent)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			o.CustomerID, o.CreatedAt, o.Status, o.DiscountPercent,
		).Scan(&o.ID)
		if err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		for i := range o.Lines {
			l := &o.Lines[i]
			l.OrderID = o.ID
			err := s.q(ctx).QueryRow(ctx,
				`INSERT INTO order_lines (order_id, product_id, product_name, quantity, price_at_time, customization)
				 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
				l.OrderID, l.ProductID, l.ProductName, l.Quantity, l.PriceAtTime, l.Customization,
			).Scan(&l.ID)
			if err != nil {
				return fmt.Errorf("failed to create order line: %w", err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	var o domain.Order
	err := s.q(ctx).QueryRow(ctx,
		`SELECT id, customer_id, staff_id, created_at, status, discount_percent FROM orders WHERE id = $1`, id,
	).Scan(&o.ID, &o.CustomerID, &o.StaffID, &o.CreatedAt, &o.Status, &o.DiscountPercent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if err := s.loadLines(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *PostgresStore) loadLines(ctx context.Context, o *domain.Order) error {
	rows, err := s.q(ctx).Query(ctx,
		`SELECT id, order_id, product_id, product_name, quantity, price_at_time, customization
		 FROM order_lines WHERE order_id = $1 ORDER BY id`, o.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to load order lines: %w", err)
	}
	defer rows.Close()
	o.Lines = make([]domain.OrderLine, 0)
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName, &l.Quantity, &l.PriceAtTime, &l.Customization); err != nil {
			return fmt.Errorf("failed to scan order line: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	return rows.Err()
}

func (s *PostgresStore) UpdateOrder(ctx context.Context, o *domain.Order) error {
	// строки после создания заказа не меняются, обновляется только шапка
	tag, err := s.q(ctx).Exec(ctx,
		`UPDATE orders SET staff_id = $1, status = $2 WHERE id = $3`,
		o.StaffID, o.Status, o.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListOpenOrders(ctx context.Context) ([]domain.Order, error) {
	rows, err := s.q(ctx).Query(ctx,
		`SELECT id, customer_id, staff_id, created_at, status, discount_percent
		 FROM orders WHERE status <> $1 ORDER BY created_at DESC`,
		domain.OrderStatusCompleted,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list open orders: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Order, 0)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.StaffID, &o.CreatedAt, &o.Status, &o.DiscountPercent); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := s.loadLines(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// BillingRepository

// CreateBill дубль по заказу ловится уникальным ограничением bills.order_id;
// ON CONFLICT вместо ошибки, чтобы не абортить объемлющую транзакцию
func (s *PostgresStore) CreateBill(ctx context.Context, b *domain.Bill) error {
	err := s.q(ctx).QueryRow(ctx,
		`INSERT INTO bills (order_id, created_at, total_amount, discount_applied, final_amount)
		 VALUES ($1, $2, $3, $4, $5) ON CONFLICT (order_id) DO NOTHING RETURNING id`,
		b.OrderID, b.CreatedAt, b.TotalAmount, b.DiscountApplied, b.FinalAmount,
	).Scan(&b.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetBillByOrder(ctx context.Context, orderID int64) (*domain.Bill, error) {
	var b domain.Bill
	err := s.q(ctx).QueryRow(ctx,
		`SELECT id, order_id, created_at, total_amount, discount_applied, final_amount
		 FROM bills WHERE order_id = $1`, orderID,
	).Scan(&b.ID, &b.OrderID, &b.CreatedAt, &b.TotalAmount, &b.DiscountApplied, &b.FinalAmount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	return &b, nil
}

func (s *PostgresStore) CreatePayment(ctx context.Context, p *domain.Payment) error {
	err := s.q(ctx).QueryRow(ctx,
		`INSERT INTO payments (bill_id, method, paid_at)
		 VALUES ($1, $2, $3) ON CONFLICT (bill_id) DO NOTHING RETURNING id`,
		p.BillID, p.Method, p.PaidAt,
	).Scan(&p.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevenueBetween(ctx context.Context, from, to time.Time) (float64, error) {
	var sum float64
	err := s.q(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(final_amount), 0) FROM bills WHERE created_at >= $1 AND created_at < $2`,
		from, to,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum revenue: %w", err)
	}
	return sum, nil
}

// DiscountRepository

func (s *PostgresStore) CreateDiscount(ctx context.Context, d *domain.DiscountCode) error {
	err := s.q(ctx).QueryRow(ctx,
		`INSERT INTO discount_codes (code, percentage, active) VALUES ($1, $2, $3) RETURNING id`,
		d.Code, d.Percentage, d.Active,
	).Scan(&d.ID)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to create discount: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDiscounts(ctx context.Context) ([]domain.DiscountCode, error) {
	rows, err := s.q(ctx).Query(ctx, `SELECT id, code, percentage, active FROM discount_codes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list discounts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DiscountCode, 0)
	for rows.Next() {
		var d domain.DiscountCode
		if err := rows.Scan(&d.ID, &d.Code, &d.Percentage, &d.Active); err != nil {
			return nil, fmt.Errorf("failed to scan discount: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetActiveDiscount(ctx context.Context, code string) (*domain.DiscountCode, error) {
	var d domain.DiscountCode
	err := s.q(ctx).QueryRow(ctx,
		`SELECT id, code, percentage, active FROM discount_codes WHERE code = $1 AND active`, code,
	).Scan(&d.ID, &d.Code, &d.Percentage, &d.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get discount: %w", err)
	}
	return &d, nil
}

// UserRepository

func (s *PostgresStore) CreateUser(ctx context.Context, u *domain.User) error {
	err := s.q(ctx).QueryRow(ctx,
		`INSERT INTO users (username, password_hash, role, full_name) VALUES ($1, $2, $3, $4) RETURNING id`,
		u.Username, u.PasswordHash, u.Role, u.FullName,
	).Scan(&u.ID)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.getUser(ctx, `SELECT id, username, password_hash, role, full_name FROM users WHERE id = $1`, id)
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.getUser(ctx, `SELECT id, username, password_hash, role, full_name FROM users WHERE username = $1`, username)
}

func (s *PostgresStore) getUser(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	err := s.q(ctx).QueryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.FullName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) UpdateUser(ctx context.Context, u *domain.User) error {
	tag, err := s.q(ctx).Exec(ctx,
		`UPDATE users SET username = $1, password_hash = $2, role = $3, full_name = $4 WHERE id = $5`,
		u.Username, u.PasswordHash, u.Role, u.FullName, u.ID,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id int64) error {
	tag, err := s.q(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListUsersByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	rows, err := s.q(ctx).Query(ctx,
		`SELECT id, username, password_hash, role, full_name FROM users WHERE role = $1 ORDER BY id`, role,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	out := make([]domain.User, 0)
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.FullName); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
