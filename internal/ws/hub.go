package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/logger"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/models"
)

const (
	EventOrderStatusChanged = "order.status_changed"
	EventDisputeMessage     = "dispute.message"
)

// Hub раздаёт уведомления открытым WebSocket-подключениям пользователей.
// Все изменения карты клиентов идут через цикл Run.
type Hub struct {
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	online     chan onlineQuery
	ctx        context.Context
}

type message struct {
	userID  uuid.UUID
	payload []byte
}

type onlineQuery struct {
	userID uuid.UUID
	reply  chan int
}

// envelope — формат сообщения клиенту: имя события и полезная нагрузка.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func NewHub(ctx context.Context) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 64),
		online:     make(chan onlineQuery),
		ctx:        ctx,
	}
}

// Run обслуживает хаб до отмены контекста, затем закрывает всех клиентов.
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = map[uuid.UUID]map[*Client]struct{}{}
			return
		case client := <-h.register:
			if _, ok := h.clients[client.userID]; !ok {
				h.clients[client.userID] = make(map[*Client]struct{})
			}
			h.clients[client.userID][client] = struct{}{}
		case client := <-h.unregister:
			h.remove(client)
		case msg := <-h.broadcast:
			h.send(msg)
		case q := <-h.online:
			q.reply <- len(h.clients[q.userID])
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// Online возвращает число открытых подключений пользователя.
func (h *Hub) Online(userID uuid.UUID) int {
	q := onlineQuery{userID: userID, reply: make(chan int, 1)}
	select {
	case h.online <- q:
		return <-q.reply
	case <-h.ctx.Done():
		return 0
	}
}

// BroadcastToUser ставит сообщение в очередь. Пользователь без подключений его просто не получит.
func (h *Hub) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	raw, err := json.Marshal(envelope{Type: event, Data: data})
	if err != nil {
		return fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}
	select {
	case h.broadcast <- message{userID: userID, payload: raw}:
		return nil
	case <-h.ctx.Done():
		return h.ctx.Err()
	}
}

// NotifyTransition сообщает клиенту и исполнителю о смене статуса заказа.
func (h *Hub) NotifyTransition(ctx context.Context, ev models.TransitionEvent) {
	for _, userID := range []uuid.UUID{ev.ClientID, ev.ProviderID} {
		h.deliver(ctx, userID, EventOrderStatusChanged, ev)
	}
}

// NotifyDisputeMessage пересылает сообщение спора получателям.
func (h *Hub) NotifyDisputeMessage(ctx context.Context, recipients []uuid.UUID, msg models.DisputeMessage) {
	for _, userID := range recipients {
		h.deliver(ctx, userID, EventDisputeMessage, msg)
	}
}

func (h *Hub) deliver(ctx context.Context, userID uuid.UUID, event string, data any) {
	if ctx.Err() != nil {
		return
	}
	if err := h.BroadcastToUser(userID, event, data); err != nil {
		logger.Log.WithFields(logrus.Fields{
			"user_id": userID,
			"event":   event,
			"error":   err,
		}).Warn("ws: уведомление не доставлено")
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
}

func (h *Hub) send(msg message) {
	for client := range h.clients[msg.userID] {
		select {
		case client.send <- msg.payload:
		default:
			// Медленный клиент отключается, чтобы не тормозить остальных.
			h.remove(client)
			_ = client.conn.Close()
		}
	}
}
