// Package chat is the real-time core: it keeps the live subscriber groups,
// replays history to joining connections and fans persisted messages out to
// every subscriber of a room.
package chat

import (
	"log/slog"
	"sync"
)

// InboxPrefix prefixes the per-user group that receives inbox notifications.
const InboxPrefix = "inbox:"

// InboxGroup returns the inbox group key for userID.
func InboxGroup(userID string) string {
	return InboxPrefix + userID
}

// Subscriber is one live connection as seen by the chat core.
type Subscriber interface {
	// ID uniquely identifies the connection.
	ID() string
	// UserID is the authenticated owner of the connection.
	UserID() string
	// Send queues payload without blocking. It reports false when the
	// connection's queue is full or the connection is closed.
	Send(payload []byte) bool
	// Close tears the connection down. It must be safe to call more than once.
	Close()
}

// Manager holds the in-memory subscriber groups. A group is keyed by room id
// or by InboxGroup. Every method is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	groups  map[string]map[string]Subscriber
	members map[string]string // subscriber id -> group
	logger  *slog.Logger
}

// NewManager creates an empty Manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		groups:  make(map[string]map[string]Subscriber),
		members: make(map[string]string),
		logger:  logger.With("component", "chat_manager"),
	}
}

// Register adds sub to group. A subscriber is in at most one group;
// registering it again moves it.
func (m *Manager) Register(sub Subscriber, group string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeLocked(sub.ID())
	if m.groups[group] == nil {
		m.groups[group] = make(map[string]Subscriber)
	}
	m.groups[group][sub.ID()] = sub
	m.members[sub.ID()] = group

	m.logger.Debug("Subscriber registered", "conn_id", sub.ID(), "user_id", sub.UserID(), "group", group, "group_size", len(m.groups[group]))
}

// Unregister removes sub from its group. It reports whether sub was registered;
// unknown or already removed subscribers are a no-op.
func (m *Manager) Unregister(sub Subscriber) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	group, ok := m.removeLocked(sub.ID())
	if ok {
		m.logger.Debug("Subscriber unregistered", "conn_id", sub.ID(), "user_id", sub.UserID(), "group", group)
	}
	return ok
}

func (m *Manager) removeLocked(id string) (string, bool) {
	group, ok := m.members[id]
	if !ok {
		return "", false
	}
	delete(m.members, id)
	delete(m.groups[group], id)
	if len(m.groups[group]) == 0 {
		delete(m.groups, group)
	}
	return group, true
}

// SubscribersOf returns a snapshot of the group's subscribers.
func (m *Manager) SubscribersOf(group string) []Subscriber {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs := make([]Subscriber, 0, len(m.groups[group]))
	for _, sub := range m.groups[group] {
		subs = append(subs, sub)
	}
	return subs
}

// Deliver sends payload to every subscriber of group and returns how many
// accepted it. A subscriber that cannot accept is a slow consumer: it is
// unregistered and closed, and its client recovers by reconnecting.
func (m *Manager) Deliver(group string, payload []byte) int {
	delivered := 0
	for _, sub := range m.SubscribersOf(group) {
		if sub.Send(payload) {
			delivered++
			continue
		}
		if m.Unregister(sub) {
			m.logger.Warn("Dropping slow subscriber", "conn_id", sub.ID(), "user_id", sub.UserID(), "group", group)
		}
		sub.Close()
	}
	return delivered
}

// Groups returns the number of non-empty groups.
func (m *Manager) Groups() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.groups)
}

// Len returns the number of registered subscribers.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.members)
}

// Shutdown closes every subscriber and empties all groups.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	var subs []Subscriber
	for _, group := range m.groups {
		for _, sub := range group {
			subs = append(subs, sub)
		}
	}
	m.groups = make(map[string]map[string]Subscriber)
	m.members = make(map[string]string)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	m.logger.Info("Connection manager shut down", "closed", len(subs))
}
