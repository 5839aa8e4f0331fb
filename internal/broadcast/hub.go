package broadcast

import (
	"log"
	"sync"
)

// Event одно исходящее событие: имя + полезная нагрузка
type Event struct {
	Name    string `json:"event"`
	Payload any    `json:"payload"`
}

// Размер буфера подписчика; отстающий подписчик теряет события.
const subscriberBuffer = 16

// Subscriber подписка на набор топиков
type Subscriber struct {
	topics []string
	ch     chan Event
	closed bool // guarded by hub mu
}

// C канал доставки событий подписчику
func (s *Subscriber) C() <-chan Event { return s.ch }

// Topics топики подписки
func (s *Subscriber) Topics() []string { return s.topics }

// Hub внутрипроцессный publish/subscribe по именованным топикам.
// Публикация fire-and-forget: без подтверждений, без повторов, без
// сохранения пропущенных событий — переподключившаяся сессия перечитывает
// состояние через read-эндпоинты.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Subscriber]struct{})}
}

// Subscribe создаёт подписку на перечисленные топики
func (h *Hub) Subscribe(topics ...string) *Subscriber {
	s := &Subscriber{
		topics: topics,
		ch:     make(chan Event, subscriberBuffer),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range topics {
		set, ok := h.subs[t]
		if !ok {
			set = make(map[*Subscriber]struct{})
			h.subs[t] = set
		}
		set[s] = struct{}{}
	}
	return s
}

// Unsubscribe снимает подписку и закрывает её канал
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, t := range s.topics {
		set, ok := h.subs[t]
		if !ok {
			continue
		}
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, t)
		}
	}
	close(s.ch)
}

// Publish рассылает событие всем подписчикам топика, не блокируясь:
// переполненный буфер — событие отбрасывается
func (h *Hub) Publish(topic string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[topic] {
		select {
		case s.ch <- ev:
		default:
			log.Printf("broadcast: dropping %q for slow subscriber on %q", ev.Name, topic)
		}
	}
}
