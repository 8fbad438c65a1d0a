package notification

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "orderflow/internal/common/errors"
	"orderflow/internal/models"
)

func newCachedStore(t *testing.T) (*Store, sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	return NewStore(db, cache, 5*time.Minute), mock, mr
}

func recordRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "business_id", "type", "title", "message", "order_id", "is_read", "created_at",
	})
}

func TestStore_CreateRecord_RequiresExactlyOneOwner(t *testing.T) {
	store, _, _ := newCachedStore(t)

	_, err := store.CreateRecord(context.Background(), models.NotificationRecord{
		Type: models.NotificationTypeStatusChange, Title: "x", Message: "y",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidRequest))

	_, err = store.CreateRecord(context.Background(), models.NotificationRecord{
		UserID: ptr(5), BusinessID: ptr(7),
		Type: models.NotificationTypeStatusChange, Title: "x", Message: "y",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidRequest))
}

func TestStore_CreateRecord_InvalidatesUnreadCache(t *testing.T) {
	store, mock, mr := newCachedStore(t)

	// Stale counter that must not survive the write.
	mr.Set("notif:unread:u:5", "3")

	mock.ExpectQuery(`INSERT INTO notifications`).
		WillReturnRows(recordRows().
			AddRow(1, 5, nil, "status_change", "On the Way", "body", 42, false, time.Now().UTC()))

	created, err := store.CreateRecord(context.Background(), models.NotificationRecord{
		UserID:  ptr(5),
		Type:    models.NotificationTypeStatusChange,
		Title:   "On the Way",
		Message: "body",
		OrderID: ptr(42),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	require.NotNil(t, created.UserID)
	assert.Equal(t, int64(5), *created.UserID)
	assert.Nil(t, created.BusinessID)

	assert.False(t, mr.Exists("notif:unread:u:5"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_MarkRead_IsIdempotent(t *testing.T) {
	store, mock, _ := newCachedStore(t)

	// The update matches whether or not the record was already read.
	for i := 0; i < 2; i++ {
		mock.ExpectQuery(`UPDATE notifications SET is_read = TRUE WHERE id = \$1`).
			WithArgs(int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "business_id"}).AddRow(5, nil))
	}

	require.NoError(t, store.MarkRead(context.Background(), 1))
	require.NoError(t, store.MarkRead(context.Background(), 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_MarkRead_UnknownRecord(t *testing.T) {
	store, mock, _ := newCachedStore(t)

	mock.ExpectQuery(`UPDATE notifications SET is_read = TRUE WHERE id = \$1`).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "business_id"}))

	err := store.MarkRead(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestStore_MarkAllReadForUser_InvalidatesCache(t *testing.T) {
	store, mock, mr := newCachedStore(t)
	mr.Set("notif:unread:u:5", "2")

	mock.ExpectExec(`UPDATE notifications SET is_read = TRUE WHERE user_id = \$1 AND is_read = FALSE`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, store.MarkAllReadForUser(context.Background(), 5))
	assert.False(t, mr.Exists("notif:unread:u:5"))
}

func TestStore_MarkAllReadForUser_EmptyInboxIsLegal(t *testing.T) {
	store, mock, _ := newCachedStore(t)

	mock.ExpectExec(`UPDATE notifications SET is_read = TRUE WHERE user_id = \$1 AND is_read = FALSE`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, store.MarkAllReadForUser(context.Background(), 5))
}

func TestStore_UnreadCount_CacheMissThenHit(t *testing.T) {
	store, mock, mr := newCachedStore(t)

	// Miss goes to Postgres and fills the cache.
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications WHERE user_id = \$1 AND is_read = FALSE`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := store.UnreadCountForUser(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.True(t, mr.Exists("notif:unread:u:5"))

	// Hit never touches Postgres; no further expectations registered.
	count, err = store.UnreadCountForUser(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UnreadCount_NilCacheFallsThroughToDB(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := NewStore(db, nil, 5*time.Minute)

	for i := 0; i < 2; i++ {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications WHERE business_id = \$1 AND is_read = FALSE`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	}

	for i := 0; i < 2; i++ {
		count, err := store.UnreadCountForBusiness(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ListForUser_NewestFirst(t *testing.T) {
	store, mock, _ := newCachedStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT (.+) FROM notifications WHERE user_id = \$1 ORDER BY created_at DESC, id DESC`).
		WithArgs(int64(5)).
		WillReturnRows(recordRows().
			AddRow(2, 5, nil, "status_change", "Order Delivered", "b", 42, false, now).
			AddRow(1, 5, nil, "status_change", "On the Way", "a", 42, true, now.Add(-time.Hour)))

	records, err := store.ListForUser(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(2), records[0].ID)
	assert.True(t, records[0].CreatedAt.After(records[1].CreatedAt))
}
