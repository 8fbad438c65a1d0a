package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderflow/internal/common/logger"
	"orderflow/internal/models"
	"orderflow/internal/notification"
	"orderflow/internal/order"
)

type stubDispatcher struct {
	messages []notification.Message
}

func (d *stubDispatcher) Dispatch(ctx context.Context, msg notification.Message) map[notification.Channel]notification.Outcome {
	d.messages = append(d.messages, msg)
	return map[notification.Channel]notification.Outcome{}
}

func newTestRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock, *stubDispatcher) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	orderStore := order.NewStore(db)
	dispatcher := &stubDispatcher{}
	log := logger.NewStructured("error", "json")
	svc := order.NewService(orderStore, dispatcher, log)
	notifStore := notification.NewStore(db, nil, time.Minute)
	aggregator := notification.NewAggregator(notifStore, orderStore)

	r := gin.New()
	Setup(r, NewHandler(svc, aggregator, notifStore, log, nil))
	return r, mock, dispatcher
}

func doJSON(r *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func operatorHeaders() map[string]string {
	return map[string]string{"X-User-ID": "1", "X-Business-Operator": "true"}
}

func testOrderRows(status models.Status) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "order_number", "business_id", "user_id", "status", "delivery_mode",
		"customer_name", "customer_phone", "customer_email", "created_at", "updated_at",
	}).AddRow(42, "ORD-20260831-AB12CD34", 7, 5, string(status), "delivery",
		"Jane Doe", "+1234567890", "jane@example.com", now, now)
}

func testBusinessRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "name", "phone", "email", "created_at"}).
		AddRow(7, 1, "Sweet Treats", "+1987654321", "owner@sweettreats.example", time.Now().UTC())
}

func testRecordRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "user_id", "business_id", "type", "title", "message", "order_id", "is_read", "created_at",
	})
}

func expectOwnedBusinesses(mock sqlmock.Sqlmock, ids ...int64) {
	rows := sqlmock.NewRows([]string{"id"})
	for _, id := range ids {
		rows.AddRow(id)
	}
	mock.ExpectQuery(`SELECT id FROM businesses WHERE user_id = \$1`).WillReturnRows(rows)
}

func expectOrderLoad(mock sqlmock.Sqlmock, status models.Status) {
	mock.ExpectQuery(`SELECT (.+) FROM orders WHERE id = \$1`).
		WillReturnRows(testOrderRows(status))
	mock.ExpectQuery(`SELECT (.+) FROM order_items WHERE order_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "name", "quantity", "unit_price"}))
	mock.ExpectQuery(`SELECT (.+) FROM custom_order_line_items WHERE order_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "description", "photo_url", "preference"}))
}

func TestNewMetricsServer(t *testing.T) {
	srv := NewMetricsServer(":9091")
	assert.Equal(t, ":9091", srv.Addr)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")

	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthz(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := doJSON(r, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTransitionOrder_OperatorAdvancesStatus(t *testing.T) {
	r, mock, dispatcher := newTestRouter(t)

	expectOwnedBusinesses(mock, 7)
	expectOrderLoad(mock, models.StatusPreparing)
	mock.ExpectQuery(`SELECT (.+) FROM businesses WHERE id = \$1`).
		WillReturnRows(testBusinessRows())
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM orders WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("preparing"))
	mock.ExpectQuery(`UPDATE orders SET status = \$1`).
		WillReturnRows(testOrderRows(models.StatusOutForDelivery))
	mock.ExpectCommit()

	w := doJSON(r, http.MethodPut, "/orders/42",
		gin.H{"status": "out_for_delivery"}, operatorHeaders())

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, models.StatusOutForDelivery, got.Status)
	assert.Equal(t, int64(42), got.ID)

	require.Len(t, dispatcher.messages, 1)
	assert.Equal(t, "On the Way", dispatcher.messages[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionOrder_NoOpResubmission(t *testing.T) {
	r, mock, dispatcher := newTestRouter(t)

	expectOwnedBusinesses(mock, 7)
	expectOrderLoad(mock, models.StatusPreparing)
	mock.ExpectQuery(`SELECT (.+) FROM businesses WHERE id = \$1`).
		WillReturnRows(testBusinessRows())

	w := doJSON(r, http.MethodPut, "/orders/42",
		gin.H{"status": "preparing"}, operatorHeaders())

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, dispatcher.messages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionOrder_DeliveredResubmissionIsANoOp(t *testing.T) {
	r, mock, dispatcher := newTestRouter(t)

	expectOwnedBusinesses(mock, 7)
	expectOrderLoad(mock, models.StatusDelivered)
	mock.ExpectQuery(`SELECT (.+) FROM businesses WHERE id = \$1`).
		WillReturnRows(testBusinessRows())

	// Re-requesting the terminal status short-circuits before the
	// "already complete" branch: unchanged order, nothing dispatched.
	w := doJSON(r, http.MethodPut, "/orders/42",
		gin.H{"status": "delivered"}, operatorHeaders())

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, models.StatusDelivered, got.Status)
	assert.Empty(t, dispatcher.messages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionOrder_StrangerSeesNotFound(t *testing.T) {
	r, mock, _ := newTestRouter(t)

	expectOrderLoad(mock, models.StatusPreparing)
	mock.ExpectQuery(`SELECT (.+) FROM businesses WHERE id = \$1`).
		WillReturnRows(testBusinessRows())

	w := doJSON(r, http.MethodPut, "/orders/42",
		gin.H{"status": "out_for_delivery"}, map[string]string{"X-User-ID": "99"})

	require.Equal(t, http.StatusNotFound, w.Code)
	// The body must be indistinguishable from a genuinely missing order.
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "RESOURCE_NOT_FOUND", body["code"])
	assert.Equal(t, "order not found", body["message"])
}

func TestTransitionOrder_CustomerGetsForbidden(t *testing.T) {
	r, mock, _ := newTestRouter(t)

	expectOrderLoad(mock, models.StatusPreparing)
	mock.ExpectQuery(`SELECT (.+) FROM businesses WHERE id = \$1`).
		WillReturnRows(testBusinessRows())

	// User 5 placed the order; they may not drive forward transitions, and
	// they already know the order exists.
	w := doJSON(r, http.MethodPut, "/orders/42",
		gin.H{"status": "out_for_delivery"}, map[string]string{"X-User-ID": "5"})

	require.Equal(t, http.StatusForbidden, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "AUTHORIZATION_FAILED", body["code"])
}

func TestTransitionOrder_UnknownStatus(t *testing.T) {
	r, mock, _ := newTestRouter(t)
	expectOwnedBusinesses(mock, 7)

	w := doJSON(r, http.MethodPut, "/orders/42",
		gin.H{"status": "shipped"}, operatorHeaders())

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_STATE", body["code"])
}

func TestTransitionOrder_MissingStatus(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := doJSON(r, http.MethodPut, "/orders/42", gin.H{}, operatorHeaders())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransitionOrder_MissingIdentityHeader(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := doJSON(r, http.MethodPut, "/orders/42", gin.H{"status": "confirmed"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOrder_CustomerMayRead(t *testing.T) {
	r, mock, _ := newTestRouter(t)

	expectOrderLoad(mock, models.StatusPreparing)

	w := doJSON(r, http.MethodGet, "/orders/42", nil, map[string]string{"X-User-ID": "5"})
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "ORD-20260831-AB12CD34", got.OrderNumber)
}

func TestGetOrder_BadID(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := doJSON(r, http.MethodGet, "/orders/abc", nil, map[string]string{"X-User-ID": "5"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrder(t *testing.T) {
	r, mock, dispatcher := newTestRouter(t)

	mock.ExpectQuery(`SELECT (.+) FROM businesses WHERE id = \$1`).
		WillReturnRows(testBusinessRows())
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO orders`).
		WillReturnRows(testOrderRows(models.StatusPending))
	mock.ExpectQuery(`INSERT INTO order_items`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	w := doJSON(r, http.MethodPost, "/orders", gin.H{
		"business_id":    7,
		"user_id":        5,
		"delivery_type":  "delivery",
		"customer_name":  "Jane Doe",
		"customer_phone": "+1234567890",
		"customer_email": "jane@example.com",
		"items": []gin.H{
			{"product_id": 10, "name": "Chocolate Cake", "quantity": 2, "unit_price": 4500},
		},
	}, nil)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, dispatcher.messages, 1)
	assert.Equal(t, models.NotificationTypeNewOrder, dispatcher.messages[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrder_MissingRequiredFields(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := doJSON(r, http.MethodPost, "/orders", gin.H{"delivery_type": "pickup"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListNotifications_RequiresExactlyOneScope(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w := doJSON(r, http.MethodGet, "/notifications", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/notifications?user_id=5&business_id=7", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListNotifications_UnparseableScopeValue(t *testing.T) {
	r, _, _ := newTestRouter(t)

	for _, path := range []string{
		"/notifications?user_id=abc",
		"/notifications?business_id=abc",
	} {
		w := doJSON(r, http.MethodGet, path, nil, nil)
		require.Equal(t, http.StatusBadRequest, w.Code, path)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "INVALID_REQUEST", body["code"])
	}
}

func TestListNotifications_ByUser(t *testing.T) {
	r, mock, _ := newTestRouter(t)

	mock.ExpectQuery(`SELECT (.+) FROM notifications WHERE user_id = \$1`).
		WillReturnRows(testRecordRows().
			AddRow(1, 5, nil, "status_change", "On the Way", "body", 42, false, time.Now().UTC()))

	w := doJSON(r, http.MethodGet, "/notifications?user_id=5", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var records []models.NotificationRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "On the Way", records[0].Title)
}

func TestLoadFeed(t *testing.T) {
	r, mock, _ := newTestRouter(t)
	base := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT (.+) FROM notifications WHERE user_id = \$1`).
		WillReturnRows(testRecordRows().
			AddRow(1, 1, nil, "status_change", "Order Confirmed", "a", 42, true, base.Add(-time.Hour)))
	expectOwnedBusinesses(mock, 7)
	mock.ExpectQuery(`SELECT (.+) FROM notifications WHERE business_id = \$1`).
		WillReturnRows(testRecordRows().
			AddRow(2, nil, 7, "new_order", "New Order Received", "b", 43, false, base))

	w := doJSON(r, http.MethodGet, "/notifications/feed", nil, map[string]string{"X-User-ID": "1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var feed notification.Feed
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &feed))
	require.Len(t, feed.Records, 2)
	assert.Equal(t, int64(2), feed.Records[0].ID)
	assert.Equal(t, int64(1), feed.UnreadCount)
}

func TestUnreadCount(t *testing.T) {
	r, mock, _ := newTestRouter(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications WHERE user_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	expectOwnedBusinesses(mock, 7)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications WHERE business_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	w := doJSON(r, http.MethodGet, "/notifications/unread-count", nil, map[string]string{"X-User-ID": "1"})
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(5), body["unreadCount"])
}

func TestMarkRead_SingleRecord(t *testing.T) {
	r, mock, _ := newTestRouter(t)

	mock.ExpectQuery(`UPDATE notifications SET is_read = TRUE WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "business_id"}).AddRow(5, nil))

	w := doJSON(r, http.MethodPost, "/notifications/mark-read", gin.H{"id": 1}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMarkRead_WholeInbox(t *testing.T) {
	r, mock, _ := newTestRouter(t)

	mock.ExpectExec(`UPDATE notifications SET is_read = TRUE WHERE user_id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 4))

	w := doJSON(r, http.MethodPost, "/notifications/mark-read", gin.H{"user_id": 5}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMarkRead_NoSubject(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w := doJSON(r, http.MethodPost, "/notifications/mark-read", gin.H{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarkRead_UnknownRecord(t *testing.T) {
	r, mock, _ := newTestRouter(t)

	mock.ExpectQuery(`UPDATE notifications SET is_read = TRUE WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "business_id"}))

	w := doJSON(r, http.MethodPost, "/notifications/mark-read", gin.H{"id": 404}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
