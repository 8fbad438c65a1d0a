package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "orderflow/internal/common/errors"
	"orderflow/internal/models"
)

// Store persists in-app notification records. The unread counters are cached
// in Redis with a short TTL; writes invalidate the affected scope. A nil
// Redis client disables the cache, every read then hits Postgres.
type Store struct {
	db       *sql.DB
	cache    *redis.Client
	cacheTTL time.Duration
}

func NewStore(db *sql.DB, cache *redis.Client, cacheTTL time.Duration) *Store {
	return &Store{db: db, cache: cache, cacheTTL: cacheTTL}
}

const recordColumns = `id, user_id, business_id, type, title, message, order_id, is_read, created_at`

func scanRecord(row interface{ Scan(...interface{}) error }) (*models.NotificationRecord, error) {
	var rec models.NotificationRecord
	var userID, businessID, orderID sql.NullInt64
	err := row.Scan(&rec.ID, &userID, &businessID, &rec.Type, &rec.Title, &rec.Message,
		&orderID, &rec.IsRead, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		rec.UserID = &userID.Int64
	}
	if businessID.Valid {
		rec.BusinessID = &businessID.Int64
	}
	if orderID.Valid {
		rec.OrderID = &orderID.Int64
	}
	return &rec, nil
}

// CreateRecord inserts one in-app record addressed to either a user or a
// business, never both.
func (s *Store) CreateRecord(ctx context.Context, rec models.NotificationRecord) (*models.NotificationRecord, error) {
	if (rec.UserID == nil) == (rec.BusinessID == nil) {
		return nil, apperrors.NewInvalidRequestError("record must target exactly one of user or business")
	}

	var userID, businessID, orderID sql.NullInt64
	if rec.UserID != nil {
		userID = sql.NullInt64{Int64: *rec.UserID, Valid: true}
	}
	if rec.BusinessID != nil {
		businessID = sql.NullInt64{Int64: *rec.BusinessID, Valid: true}
	}
	if rec.OrderID != nil {
		orderID = sql.NullInt64{Int64: *rec.OrderID, Valid: true}
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO notifications (user_id, business_id, type, title, message, order_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+recordColumns,
		userID, businessID, rec.Type, rec.Title, rec.Message, orderID)
	created, err := scanRecord(row)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}

	s.invalidate(ctx, created.UserID, created.BusinessID)
	return created, nil
}

// ListForUser returns a user's personal inbox, newest first.
func (s *Store) ListForUser(ctx context.Context, userID int64) ([]models.NotificationRecord, error) {
	return s.list(ctx, `SELECT `+recordColumns+` FROM notifications WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
}

// ListForBusiness returns a business inbox, newest first.
func (s *Store) ListForBusiness(ctx context.Context, businessID int64) ([]models.NotificationRecord, error) {
	return s.list(ctx, `SELECT `+recordColumns+` FROM notifications WHERE business_id = $1 ORDER BY created_at DESC, id DESC`, businessID)
}

func (s *Store) list(ctx context.Context, query string, arg int64) ([]models.NotificationRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	defer rows.Close()

	var out []models.NotificationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, apperrors.NewPersistenceError(err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError(err)
	}
	return out, nil
}

// MarkRead marks a single record read. Marking an already-read record is a
// no-op, not an error.
func (s *Store) MarkRead(ctx context.Context, id int64) error {
	var userID, businessID sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 RETURNING user_id, business_id`, id).
		Scan(&userID, &businessID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFoundError("notification", id)
		}
		return apperrors.NewPersistenceError(err)
	}

	var uid, bid *int64
	if userID.Valid {
		uid = &userID.Int64
	}
	if businessID.Valid {
		bid = &businessID.Int64
	}
	s.invalidate(ctx, uid, bid)
	return nil
}

// MarkAllReadForUser marks a user's whole inbox read. An empty inbox is a
// legal no-op.
func (s *Store) MarkAllReadForUser(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return apperrors.NewPersistenceError(err)
	}
	s.invalidate(ctx, &userID, nil)
	return nil
}

// MarkAllReadForBusiness marks a business inbox read.
func (s *Store) MarkAllReadForBusiness(ctx context.Context, businessID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE business_id = $1 AND is_read = FALSE`, businessID)
	if err != nil {
		return apperrors.NewPersistenceError(err)
	}
	s.invalidate(ctx, nil, &businessID)
	return nil
}

// UnreadCountForUser returns the unread total for a personal inbox,
// served from cache when fresh.
func (s *Store) UnreadCountForUser(ctx context.Context, userID int64) (int64, error) {
	return s.unreadCount(ctx, unreadKeyUser(userID),
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID)
}

// UnreadCountForBusiness returns the unread total for a business inbox.
func (s *Store) UnreadCountForBusiness(ctx context.Context, businessID int64) (int64, error) {
	return s.unreadCount(ctx, unreadKeyBusiness(businessID),
		`SELECT COUNT(*) FROM notifications WHERE business_id = $1 AND is_read = FALSE`, businessID)
}

func (s *Store) unreadCount(ctx context.Context, key, query string, arg int64) (int64, error) {
	if s.cache != nil {
		if val, err := s.cache.Get(ctx, key).Result(); err == nil {
			if count, err := strconv.ParseInt(val, 10, 64); err == nil {
				return count, nil
			}
		}
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, query, arg).Scan(&count); err != nil {
		return 0, apperrors.NewPersistenceError(err)
	}

	if s.cache != nil {
		// Cache failures only cost us a future DB read.
		_ = s.cache.Set(ctx, key, count, s.cacheTTL).Err()
	}
	return count, nil
}

func (s *Store) invalidate(ctx context.Context, userID, businessID *int64) {
	if s.cache == nil {
		return
	}
	if userID != nil {
		_ = s.cache.Del(ctx, unreadKeyUser(*userID)).Err()
	}
	if businessID != nil {
		_ = s.cache.Del(ctx, unreadKeyBusiness(*businessID)).Err()
	}
}

func unreadKeyUser(id int64) string     { return fmt.Sprintf("notif:unread:u:%d", id) }
func unreadKeyBusiness(id int64) string { return fmt.Sprintf("notif:unread:b:%d", id) }
