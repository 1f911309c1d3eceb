package hub

import (
	"sync"

	"github.com/rs/zerolog"
)

// MessageBridge publishes deliveries to other server instances.
// Defined here to avoid circular imports with the bridge package.
type MessageBridge interface {
	Publish(receiverID *int64, payload string) error
	Available() bool
}

// Hub is the process-wide connection registry. It maps a user identifier to
// the set of that user's open connections and is the only state shared
// between connection goroutines. All structural mutation happens on the
// register, unregister, and send-failure paths; nothing else touches the map.
type Hub struct {
	mu    sync.RWMutex
	users map[int64]map[*Client]struct{}

	bridge    MessageBridge
	onConnect []func(*Client)
	onDisconn []func(*Client)
	logger    zerolog.Logger
}

// New creates an empty Hub.
func New(logger zerolog.Logger) *Hub {
	return &Hub{
		users:  make(map[int64]map[*Client]struct{}),
		logger: logger.With().Str("component", "hub").Logger(),
	}
}

// SetBridge attaches a cross-instance message bridge to the hub.
// When set, outbound deliveries are also forwarded to other instances.
func (h *Hub) SetBridge(b MessageBridge) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bridge = b
}

// Register files client under its user id, creating the set if absent.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.users[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.users[c.UserID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()

	h.logger.Info().
		Int64("user_id", c.UserID).
		Str("conn_id", c.ID).
		Msg("connection registered")

	for _, cb := range h.connectCallbacks() {
		cb(c)
	}
}

// Unregister removes client from its user's set. The user key is deleted the
// moment the last connection goes; an empty set is never retained. Reporting
// the same disconnect twice is a no-op, not an error.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	set, ok := h.users[c.UserID]
	if ok {
		_, ok = set[c]
	}
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.users, c.UserID)
	}
	h.mu.Unlock()

	c.Close()
	h.logger.Info().
		Int64("user_id", c.UserID).
		Str("conn_id", c.ID).
		Msg("connection unregistered")

	for _, cb := range h.disconnectCallbacks() {
		cb(c)
	}
}

// SendToUser delivers payload to every connection currently filed under
// userID, best effort. It publishes to the bridge first so the user's
// connections on other instances are reached too. The returned count is the
// number of local connections that accepted the payload; an unknown user is
// a silent no-op.
func (h *Hub) SendToUser(userID int64, payload string) int {
	h.publishToBridge(&userID, payload)
	return h.sendToUserLocal(userID, payload)
}

// Broadcast delivers payload to every connection of every user registered at
// the moment of the snapshot. Returns the number of local connections that
// accepted the payload.
func (h *Hub) Broadcast(payload string) int {
	h.publishToBridge(nil, payload)
	return h.broadcastLocal(payload)
}

// sendToUserLocal snapshots the user's connection set before iterating, so a
// concurrent unregister cannot corrupt the traversal. A failed delivery is
// logged and skipped; it neither aborts the fan-out nor unregisters the
// connection.
func (h *Hub) sendToUserLocal(userID int64, payload string) int {
	h.mu.RLock()
	set := h.users[userID]
	clients := make([]*Client, 0, len(set))
	for c := range set {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range clients {
		if c.enqueue(payload) {
			delivered++
			continue
		}
		h.logger.Warn().
			Int64("user_id", userID).
			Str("conn_id", c.ID).
			Msg("delivery failed, dropping")
	}
	return delivered
}

// broadcastLocal snapshots the registered user ids, then fans out per user.
// Users connecting during the broadcast are not guaranteed inclusion; users
// disconnecting during it simply receive nothing.
func (h *Hub) broadcastLocal(payload string) int {
	h.mu.RLock()
	ids := make([]int64, 0, len(h.users))
	for id := range h.users {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, id := range ids {
		delivered += h.sendToUserLocal(id, payload)
	}
	return delivered
}

// DeliverLocal hands a delivery relayed from another instance to local
// connections only. It never republishes, preventing bridge loops.
func (h *Hub) DeliverLocal(receiverID *int64, payload string) {
	if receiverID != nil {
		h.sendToUserLocal(*receiverID, payload)
		return
	}
	h.broadcastLocal(payload)
}

// publishToBridge forwards a delivery to the bridge if one is attached.
func (h *Hub) publishToBridge(receiverID *int64, payload string) {
	h.mu.RLock()
	b := h.bridge
	h.mu.RUnlock()

	if b == nil || !b.Available() {
		return
	}
	if err := b.Publish(receiverID, payload); err != nil {
		h.logger.Error().Err(err).Msg("bridge publish failed")
	}
}

func (h *Hub) connectCallbacks() []func(*Client) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.onConnect
}

func (h *Hub) disconnectCallbacks() []func(*Client) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.onDisconn
}
