package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "orderflow/internal/common/errors"
	"orderflow/internal/models"
)

const orderNumberAttempts = 3

// Draft is the input to order creation. Everything on it is snapshotted into
// the order row.
type Draft struct {
	BusinessID    int64
	UserID        *int64
	DeliveryMode  models.DeliveryMode
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	Items         []models.OrderItem
	CustomItems   []models.CustomOrderLineItem
}

// Store is the durable order record, the single source of truth for status.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const orderColumns = `id, order_number, business_id, user_id, status, delivery_mode,
	customer_name, customer_phone, customer_email, created_at, updated_at`

func scanOrder(row interface{ Scan(...interface{}) error }) (*models.Order, error) {
	var o models.Order
	var userID sql.NullInt64
	err := row.Scan(&o.ID, &o.OrderNumber, &o.BusinessID, &userID, &o.Status, &o.DeliveryMode,
		&o.CustomerName, &o.CustomerPhone, &o.CustomerEmail, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		o.UserID = &userID.Int64
	}
	return &o, nil
}

// GetOrder loads an order header with its line items.
func (s *Store) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("order", id)
		}
		return nil, apperrors.NewPersistenceError(err)
	}

	if err := s.loadItems(ctx, o); err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return o, nil
}

func (s *Store) loadItems(ctx context.Context, o *models.Order) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, order_id, product_id, name, quantity, unit_price
		 FROM order_items WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Name, &it.Quantity, &it.UnitPrice); err != nil {
			return err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	custom, err := s.db.QueryContext(ctx,
		`SELECT id, order_id, description, photo_url, preference
		 FROM custom_order_line_items WHERE order_id = $1 ORDER BY id`, o.ID)
	if err != nil {
		return err
	}
	defer custom.Close()
	for custom.Next() {
		var it models.CustomOrderLineItem
		if err := custom.Scan(&it.ID, &it.OrderID, &it.Description, &it.PhotoURL, &it.Preference); err != nil {
			return err
		}
		o.CustomItems = append(o.CustomItems, it)
	}
	return custom.Err()
}

// CreateOrder inserts a new order in status pending, generating a globally
// unique order number. A number collision is retried with a fresh candidate;
// only exhausted retries surface as a conflict.
func (s *Store) CreateOrder(ctx context.Context, draft Draft) (*models.Order, error) {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		o, err := s.insertOrder(ctx, draft, generateOrderNumber())
		if err == nil {
			return o, nil
		}
		if isUniqueViolation(err) {
			continue
		}
		return nil, apperrors.NewPersistenceError(err)
	}
	return nil, apperrors.NewOrderNumberConflictError(orderNumberAttempts)
}

func (s *Store) insertOrder(ctx context.Context, draft Draft, number string) (*models.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var userID sql.NullInt64
	if draft.UserID != nil {
		userID = sql.NullInt64{Int64: *draft.UserID, Valid: true}
	}

	row := tx.QueryRowContext(ctx,
		`INSERT INTO orders (order_number, business_id, user_id, status, delivery_mode,
			customer_name, customer_phone, customer_email)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+orderColumns,
		number, draft.BusinessID, userID, models.StatusPending, draft.DeliveryMode,
		draft.CustomerName, draft.CustomerPhone, draft.CustomerEmail)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}

	for _, it := range draft.Items {
		var id int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO order_items (order_id, product_id, name, quantity, unit_price)
			 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			o.ID, it.ProductID, it.Name, it.Quantity, it.UnitPrice).Scan(&id)
		if err != nil {
			return nil, err
		}
		it.ID = id
		it.OrderID = o.ID
		o.Items = append(o.Items, it)
	}
	for _, it := range draft.CustomItems {
		var id int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO custom_order_line_items (order_id, description, photo_url, preference)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			o.ID, it.Description, it.PhotoURL, it.Preference).Scan(&id)
		if err != nil {
			return nil, err
		}
		it.ID = id
		it.OrderID = o.ID
		o.CustomItems = append(o.CustomItems, it)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return o, nil
}

// SetStatus is the only mutation path for an order's status. The update runs
// in a single transaction and returns the previous status alongside the
// updated order so callers can detect no-op requests.
func (s *Store) SetStatus(ctx context.Context, id int64, newStatus models.Status) (*models.Order, models.Status, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", apperrors.NewPersistenceError(err)
	}
	defer tx.Rollback()

	var prev models.Status
	err = tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&prev)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", apperrors.NewNotFoundError("order", id)
		}
		return nil, "", apperrors.NewPersistenceError(err)
	}

	row := tx.QueryRowContext(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3
		 RETURNING `+orderColumns,
		newStatus, time.Now().UTC(), id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, "", apperrors.NewPersistenceError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, "", apperrors.NewPersistenceError(err)
	}
	return o, prev, nil
}

// GetBusiness loads a business record.
func (s *Store) GetBusiness(ctx context.Context, id int64) (*models.Business, error) {
	var b models.Business
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, phone, email, created_at FROM businesses WHERE id = $1`, id).
		Scan(&b.ID, &b.UserID, &b.Name, &b.Phone, &b.Email, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("business", id)
		}
		return nil, apperrors.NewPersistenceError(err)
	}
	return &b, nil
}

// OwnedBusinessIDs lists the businesses a user operates.
func (s *Store) OwnedBusinessIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM businesses WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewPersistenceError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return ids, nil
}

// generateOrderNumber builds a date-prefixed candidate with a random suffix.
// Uniqueness is enforced by the orders.order_number constraint; collisions
// are retried by CreateOrder.
func generateOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("ORD-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
