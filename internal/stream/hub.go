package stream

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"backend-optikick/internal/logging"

	"github.com/google/uuid"
	"github.com/phuslu/log"
	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix  = "optikick:user:"
	channelSuffix  = ":events"
	channelPattern = channelPrefix + "*" + channelSuffix
)

// Event is the JSON frame written to websocket clients.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

// Publisher delivers an event to every connection of a user except the one
// identified by exceptConn.
type Publisher interface {
	Publish(userID string, ev Event, exceptConn string)
}

type Hub struct {
	redis    *redis.Client
	instance string
	logger   *log.Logger
	clients  map[string]map[*Client]struct{}
	mu       sync.RWMutex
	cancel   context.CancelFunc
	ready    chan struct{}
}

type Client struct {
	UserID string
	ConnID string
	Send   chan []byte
}

// envelope wraps an event on the redis bus so an instance can skip the
// copies it already delivered locally.
type envelope struct {
	Origin  string          `json:"origin"`
	Except  string          `json:"except,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

func NewHub(redisClient *redis.Client, logger *log.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		redis:    redisClient,
		instance: uuid.NewString(),
		logger:   logging.OrDiscard(logger),
		clients:  map[string]map[*Client]struct{}{},
		cancel:   cancel,
		ready:    make(chan struct{}),
	}

	if redisClient != nil {
		go h.subscribeRedis(ctx)
	} else {
		close(h.ready)
	}
	return h
}

// Close stops the redis subscription.
func (h *Hub) Close() {
	h.cancel()
}

func (h *Hub) Register(userID string) *Client {
	client := &Client{
		UserID: userID,
		ConnID: uuid.NewString(),
		Send:   make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = map[*Client]struct{}{}
	}
	h.clients[userID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if userClients, ok := h.clients[client.UserID]; ok {
		if _, member := userClients[client]; !member {
			return
		}
		delete(userClients, client)
		if len(userClients) == 0 {
			delete(h.clients, client.UserID)
		}
		close(client.Send)
	}
}

func (h *Hub) Publish(userID string, ev Event, exceptConn string) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error().Err(err).Str("event", ev.Name).Msg("encode realtime event")
		return
	}
	h.deliver(userID, payload, exceptConn)

	if h.redis != nil {
		msg, _ := json.Marshal(envelope{Origin: h.instance, Except: exceptConn, Payload: payload})
		if err := h.redis.Publish(context.Background(), redisChannel(userID), msg).Err(); err != nil {
			h.logger.Warn().Err(err).Str("user_id", userID).Str("event", ev.Name).Msg("redis publish failed")
		}
	}
}

func (h *Hub) deliver(userID string, payload []byte, exceptConn string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		if exceptConn != "" && client.ConnID == exceptConn {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			h.logger.Warn().Str("user_id", userID).Str("conn_id", client.ConnID).Msg("dropping event for slow client")
		}
	}
}

func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.redis.PSubscribe(ctx, channelPattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("redis subscribe failed")
	}
	close(h.ready)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				h.logger.Warn().Err(err).Str("channel", msg.Channel).Msg("bad realtime envelope")
				continue
			}
			if env.Origin == h.instance {
				continue
			}
			h.deliver(userIDFromChannel(msg.Channel), env.Payload, env.Except)
		}
	}
}

func redisChannel(userID string) string {
	return channelPrefix + userID + channelSuffix
}

func userIDFromChannel(ch string) string {
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) ||
		len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
