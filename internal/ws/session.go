package ws

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"arabica/internal/broadcast"
	"arabica/internal/domain"
	"arabica/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// inboundMessage входящий кадр канала событий
type inboundMessage struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type checkDiscountPayload struct {
	Code string `json:"code"`
}

type newOrderPayload struct {
	DiscountPercent float64            `json:"discount_percent"`
	Cart            []service.CartLine `json:"cart"`
}

type orderIDPayload struct {
	OrderID int64 `json:"order_id"`
}

// Handler поднимает websocket-сессии и связывает их с хабом и координатором.
// Сессия подписана на топик своей роли и на свой приватный топик; все
// исходящие кадры идут через хаб, писатель у соединения один.
type Handler struct {
	hub      *broadcast.Hub
	coord    *service.Coordinator
	upgrader websocket.Upgrader
}

func NewHandler(hub *broadcast.Hub, coord *service.Coordinator) *Handler {
	return &Handler{
		hub:   hub,
		coord: coord,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Serve gin-обработчик апгрейда; идентичность сессии кладёт в контекст
// вышестоящий слой
func (h *Handler) Serve(c *gin.Context) {
	actor := ActorFromContext(c)
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}
	actor.SessionID = newSessionID()

	sub := h.hub.Subscribe(sessionTopics(actor)...)
	go h.writePump(conn, sub)
	go h.readPump(conn, sub, actor)
}

// sessionTopics персонал и менеджеры видят staff-канал, менеджер — оба
func sessionTopics(actor domain.Actor) []string {
	topics := []string{domain.SessionTopic(actor.SessionID)}
	switch actor.Role {
	case domain.RoleStaff:
		topics = append(topics, domain.TopicStaff)
	case domain.RoleManager:
		topics = append(topics, domain.TopicStaff, domain.TopicCustomer)
	default:
		topics = append(topics, domain.TopicCustomer)
	}
	return topics
}

func (h *Handler) readPump(conn *websocket.Conn, sub *broadcast.Subscriber, actor domain.Actor) {
	defer func() {
		h.hub.Unsubscribe(sub)
		conn.Close()
	}()
	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: session %s read: %v", actor.SessionID, err)
			}
			return
		}
		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("ws: session %s bad frame: %v", actor.SessionID, err)
			continue
		}
		h.dispatch(actor, msg)
	}
}

// dispatch ошибка одного события логируется и не роняет канал
func (h *Handler) dispatch(actor domain.Actor, msg inboundMessage) {
	ctx := context.Background()
	var err error
	switch msg.Event {
	case domain.EventCheckDiscountCode:
		var p checkDiscountPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			_, err = h.coord.CheckDiscount(ctx, actor, p.Code)
		}
	case domain.EventNewOrderRequest:
		var p newOrderPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			_, err = h.coord.PlaceOrder(ctx, actor, p.Cart, p.DiscountPercent)
		}
	case domain.EventStaffRequestPayment:
		var p orderIDPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			_, err = h.coord.RequestPayment(ctx, p.OrderID)
		}
	case domain.EventStaffConfirmPayment:
		var p orderIDPayload
		if err = json.Unmarshal(msg.Payload, &p); err == nil {
			_, err = h.coord.ConfirmPayment(ctx, actor, p.OrderID)
		}
	default:
		log.Printf("ws: session %s unknown event %q", actor.SessionID, msg.Event)
		return
	}
	if err != nil {
		log.Printf("ws: session %s event %q: %v", actor.SessionID, msg.Event, err)
	}
}

func (h *Handler) writePump(conn *websocket.Conn, sub *broadcast.Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case ev, ok := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func newSessionID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "anon"
	}
	return hex.EncodeToString(b)
}
