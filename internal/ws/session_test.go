package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arabica/internal/broadcast"
	"arabica/internal/domain"
	"arabica/internal/repository"
	"arabica/internal/service"
)

type wireEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type wsFixture struct {
	server    *httptest.Server
	store     *repository.MemoryStore
	discounts *repository.MemoryDiscounts
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemoryStore()
	orders := repository.NewMemoryOrders(store)
	billing := repository.NewMemoryBilling(store)
	discounts := repository.NewMemoryDiscounts(store)
	tx := repository.NewMemoryTx(store)
	hub := broadcast.NewHub()
	coord := service.NewCoordinator(store, orders, billing, discounts, tx, hub)

	r := gin.New()
	r.GET("/ws", NewHandler(hub, coord).Serve)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &wsFixture{server: server, store: store, discounts: discounts}
}

func (f *wsFixture) dial(t *testing.T, userID, name string, role domain.Role) *websocket.Conn {
	t.Helper()
	h := http.Header{}
	h.Set("X-User-Id", userID)
	h.Set("X-User-Name", name)
	h.Set("X-User-Role", string(role))
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, h)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(wireEvent{Event: event, Payload: raw}))
}

func read(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev wireEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestOrderLifecycleOverWebsocket(t *testing.T) {
	f := newWSFixture(t)
	p := domain.Product{Name: "Cafe Den", Price: 25000, Category: "Cafe", IsActive: true}
	require.NoError(t, f.store.CreateProduct(context.Background(), &p, 50))

	staffConn := f.dial(t, "2", "Sample Staff", domain.RoleStaff)
	custConn := f.dial(t, "1", "Guest", domain.RoleCustomer)

	send(t, custConn, domain.EventNewOrderRequest, map[string]any{
		"discount_percent": 10,
		"cart":             []map[string]any{{"id": p.ID, "qty": 2, "options": ""}},
	})

	ev := read(t, staffConn)
	require.Equal(t, domain.EventUpdateStaffOrders, ev.Event)
	var notice domain.StaffOrderNotice
	require.NoError(t, json.Unmarshal(ev.Payload, &notice))
	assert.Equal(t, "Guest", notice.Customer)
	assert.Equal(t, 45000.0, notice.Total)
	assert.Equal(t, 10.0, notice.Discount)

	ack := read(t, custConn)
	assert.Equal(t, domain.EventOrderSuccess, ack.Event)

	send(t, staffConn, domain.EventStaffRequestPayment, map[string]any{"order_id": notice.ID})

	qr := read(t, custConn)
	require.Equal(t, domain.EventShowCustomerQR, qr.Event)
	var pn domain.PaymentNotice
	require.NoError(t, json.Unmarshal(qr.Payload, &pn))
	assert.Equal(t, 50000.0, pn.RawTotal)
	assert.Equal(t, 5000.0, pn.Discount)
	assert.Equal(t, 45000.0, pn.Total)
	require.Len(t, pn.Items, 1)
	assert.Equal(t, "Cafe Den", pn.Items[0].Name)

	send(t, staffConn, domain.EventStaffConfirmPayment, map[string]any{"order_id": notice.ID})

	assert.Equal(t, domain.EventPaymentSuccess, read(t, staffConn).Event)
	assert.Equal(t, domain.EventPaymentSuccess, read(t, custConn).Event)

	inv, err := f.store.GetInventory(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(48), inv.StockQuantity)
}

func TestDiscountCheckIsPrivate(t *testing.T) {
	f := newWSFixture(t)
	require.NoError(t, f.discounts.CreateDiscount(context.Background(),
		&domain.DiscountCode{Code: "SAVE10", Percentage: 10, Active: true}))

	asking := f.dial(t, "1", "Guest", domain.RoleCustomer)
	bystander := f.dial(t, "3", "Other", domain.RoleCustomer)

	send(t, asking, domain.EventCheckDiscountCode, map[string]any{"code": "save10"})

	ev := read(t, asking)
	require.Equal(t, domain.EventDiscountResult, ev.Event)
	var res domain.DiscountResult
	require.NoError(t, json.Unmarshal(ev.Payload, &res))
	assert.True(t, res.Valid)
	assert.Equal(t, 10.0, res.Percent)
	assert.Equal(t, "SAVE10", res.Code)

	// the reply must not reach other sessions
	require.NoError(t, bystander.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var leaked wireEvent
	err := bystander.ReadJSON(&leaked)
	require.Error(t, err, "unexpected event %q", leaked.Event)
}

func TestUnknownEventIgnored(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "1", "Guest", domain.RoleCustomer)

	send(t, conn, "no_such_event", map[string]any{})
	// channel stays alive; a valid request still works
	send(t, conn, domain.EventCheckDiscountCode, map[string]any{"code": "missing"})

	ev := read(t, conn)
	require.Equal(t, domain.EventDiscountResult, ev.Event)
	var res domain.DiscountResult
	require.NoError(t, json.Unmarshal(ev.Payload, &res))
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Msg)
}
