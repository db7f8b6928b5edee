package ws

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hirelane/internal/infrastructure/cache"
	"hirelane/internal/metrics"
	"hirelane/internal/usecase/notifications"
)

type delivery struct {
	recipient uuid.UUID
	payload   []byte
}

// Hub fans notification payloads out to every socket a recipient has open.
type Hub struct {
	clients    map[uuid.UUID]map[*Client]struct{}
	deliver    chan delivery
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	logger     *zap.Logger
	metrics    *metrics.Collector
}

func NewHub(logger *zap.Logger, m *metrics.Collector) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		deliver:    make(chan delivery, 1024),
		register:   make(chan *Client, 128),
		unregister: make(chan *Client, 128),
		logger:     logger,
		metrics:    m,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			if client == nil {
				continue
			}
			h.mutex.Lock()
			set, ok := h.clients[client.recipient]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.recipient] = set
			}
			set[client] = struct{}{}
			h.mutex.Unlock()
			h.metrics.WSConnected()
			h.logger.Debug("ws connected", zap.Stringer("recipient_id", client.recipient))

		case client := <-h.unregister:
			if client == nil {
				continue
			}
			if h.remove(client) {
				h.metrics.WSDisconnected()
				h.logger.Debug("ws disconnected", zap.Stringer("recipient_id", client.recipient))
			}

		case d := <-h.deliver:
			h.mutex.RLock()
			snapshot := make([]*Client, 0, len(h.clients[d.recipient]))
			for c := range h.clients[d.recipient] {
				snapshot = append(snapshot, c)
			}
			h.mutex.RUnlock()

			for _, client := range snapshot {
				select {
				case client.send <- d.payload:
				default:
					if h.remove(client) {
						h.metrics.WSDisconnected()
						h.logger.Warn("ws client too slow, dropped", zap.Stringer("recipient_id", client.recipient))
					}
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	set, ok := h.clients[client.recipient]
	if !ok {
		return false
	}
	if _, ok := set[client]; !ok {
		return false
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.recipient)
	}
	close(client.send)
	return true
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for recipient, set := range h.clients {
		for c := range set {
			close(c.send)
			h.metrics.WSDisconnected()
		}
		delete(h.clients, recipient)
	}
}

func (h *Hub) Register(client *Client) {
	if h == nil {
		return
	}
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	if h == nil {
		return
	}
	select {
	case h.unregister <- client:
	default:
		if h.remove(client) {
			h.metrics.WSDisconnected()
		}
	}
}

// Publish queues payload for recipient's open sockets. It never blocks; a
// full buffer drops the message, which stays readable from the inbox.
func (h *Hub) Publish(_ context.Context, recipient uuid.UUID, payload []byte) error {
	if h == nil {
		return nil
	}
	select {
	case h.deliver <- delivery{recipient: recipient, payload: payload}:
	default:
		h.logger.Warn("ws delivery dropped", zap.String("reason", "buffer_full"), zap.Stringer("recipient_id", recipient))
	}
	return nil
}

func (h *Hub) ClientCount() int {
	if h == nil {
		return 0
	}
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

type subscriber interface {
	PSubscribe(ctx context.Context, pattern string) (<-chan cache.Message, error)
}

// Bridge relays notify:* pub/sub traffic from every replica into this hub
// until ctx is done.
func (h *Hub) Bridge(ctx context.Context, sub subscriber) error {
	msgs, err := sub.PSubscribe(ctx, notifications.ChannelPrefix+"*")
	if err != nil {
		return err
	}
	h.logger.Info("ws bridge subscribed", zap.String("pattern", notifications.ChannelPrefix+"*"))
	for m := range msgs {
		recipient, ok := notifications.RecipientFromChannel(m.Channel)
		if !ok {
			continue
		}
		_ = h.Publish(ctx, recipient, m.Payload)
	}
	return ctx.Err()
}
