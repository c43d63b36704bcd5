// Package presence derives a simple online/offline flag per user from the
// chat core's connection lifecycle events.
package presence

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/nfrund/parley/internal/chat"
	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/pubsub"
)

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// OfflineDebounceDelay is how long a user with no connections left stays
// online, so page reloads and quick reconnects do not flap their status.
const OfflineDebounceDelay = 5 * time.Second

// StatusChanged is published on every online/offline transition.
var StatusChanged = pubsub.NewEvent[Presence]("presence.user.status")

// Presence is a user's current status.
type Presence struct {
	UserID      string    `json:"user_id"`
	Status      Status    `json:"status"`
	Connections int       `json:"connections"`
	Timestamp   time.Time `json:"timestamp"`
}

type userState struct {
	conns  map[string]struct{}
	since  time.Time
	online bool
	// gen invalidates offline timers that fired after a reconnect.
	gen   int
	timer *time.Timer
}

// Service tracks connection counts per user.
type Service struct {
	mu    sync.Mutex
	state map[string]*userState

	// transitions serializes state changes with their side effects, so
	// persisted and published status follows state order. Taken before mu.
	transitions sync.Mutex

	publisher            pubsub.Publisher
	users                domain.UserRepository
	logger               *slog.Logger
	offlineDebounceDelay time.Duration
	now                  func() time.Time
	cancel               context.CancelFunc
}

// Option is a function that configures a Service.
type Option func(*Service)

// WithOfflineDebounce sets the offline debounce delay. Zero marks users
// offline as soon as their last connection closes.
func WithOfflineDebounce(d time.Duration) Option {
	return func(s *Service) { s.offlineDebounceDelay = d }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the presence service and subscribes it to connection
// lifecycle events on bus. users may be nil, in which case presence is not persisted.
func NewService(bus pubsub.Bus, users domain.UserRepository, opts ...Option) (*Service, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		state:                make(map[string]*userState),
		publisher:            bus,
		users:                users,
		logger:               slog.Default().With("service", "presence"),
		offlineDebounceDelay: OfflineDebounceDelay,
		now:                  func() time.Time { return time.Now().UTC() },
		cancel:               cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := pubsub.Subscribe(ctx, bus, chat.ConnectionOpened, s.handleOpened); err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", chat.ConnectionOpened.Name(), err)
	}
	if err := pubsub.Subscribe(ctx, bus, chat.ConnectionClosed, s.handleClosed); err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", chat.ConnectionClosed.Name(), err)
	}

	s.logger.Info("Presence service initialized", "offline_debounce", s.offlineDebounceDelay)
	return s, nil
}

func (s *Service) handleOpened(ctx context.Context, e chat.ConnectionEvent) error {
	s.Connected(ctx, e.UserID, e.ConnectionID)
	return nil
}

func (s *Service) handleClosed(ctx context.Context, e chat.ConnectionEvent) error {
	s.Disconnected(ctx, e.UserID, e.ConnectionID)
	return nil
}

// Connected records a new connection for userID.
func (s *Service) Connected(ctx context.Context, userID, connID string) {
	s.transitions.Lock()
	defer s.transitions.Unlock()

	s.mu.Lock()
	st, ok := s.state[userID]
	if !ok {
		st = &userState{conns: make(map[string]struct{})}
		s.state[userID] = st
	}
	st.conns[connID] = struct{}{}
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
		st.gen++
		s.logger.Debug("Cancelled offline debounce due to reconnection", "user_id", userID, "conn_id", connID)
	}
	if st.online {
		s.logger.Debug("Adding additional connection for user", "user_id", userID, "conn_id", connID, "connections", len(st.conns))
		s.mu.Unlock()
		return
	}
	st.online = true
	st.since = s.now()
	p := st.presence(userID)
	s.mu.Unlock()

	s.logger.Info("User came online", "user_id", userID, "conn_id", connID)
	s.emit(ctx, p)
}

// Disconnected records that connID of userID closed. When it was the user's
// last connection they go offline after the debounce delay.
func (s *Service) Disconnected(ctx context.Context, userID, connID string) {
	s.transitions.Lock()
	defer s.transitions.Unlock()

	s.mu.Lock()
	st, ok := s.state[userID]
	if !ok {
		s.mu.Unlock()
		s.logger.Debug("Disconnect for unknown user", "user_id", userID, "conn_id", connID)
		return
	}
	delete(st.conns, connID)
	if len(st.conns) > 0 || !st.online {
		s.mu.Unlock()
		return
	}

	if s.offlineDebounceDelay > 0 {
		st.gen++
		gen := st.gen
		st.timer = time.AfterFunc(s.offlineDebounceDelay, func() { s.expire(userID, gen) })
		s.mu.Unlock()
		s.logger.Debug("User has no more connections, scheduling offline", "user_id", userID, "debounce_delay", s.offlineDebounceDelay)
		return
	}

	p := s.goOfflineLocked(userID, st)
	s.mu.Unlock()
	s.emit(ctx, p)
}

func (s *Service) expire(userID string, gen int) {
	s.transitions.Lock()
	defer s.transitions.Unlock()

	s.mu.Lock()
	st, ok := s.state[userID]
	if !ok || st.gen != gen || len(st.conns) > 0 || !st.online {
		s.mu.Unlock()
		return
	}
	p := s.goOfflineLocked(userID, st)
	s.mu.Unlock()
	s.emit(context.Background(), p)
}

func (s *Service) goOfflineLocked(userID string, st *userState) Presence {
	st.online = false
	st.timer = nil
	st.since = s.now()
	delete(s.state, userID)
	s.logger.Info("User went offline", "user_id", userID)
	return Presence{UserID: userID, Status: StatusOffline, Timestamp: st.since}
}

func (st *userState) presence(userID string) Presence {
	status := StatusOffline
	if st.online {
		status = StatusOnline
	}
	return Presence{UserID: userID, Status: status, Connections: len(st.conns), Timestamp: st.since}
}

// emit persists and publishes p. The caller holds transitions but not mu.
func (s *Service) emit(ctx context.Context, p Presence) {
	if s.users != nil {
		if err := s.users.SetPresence(ctx, p.UserID, p.Status == StatusOnline, p.Timestamp); err != nil {
			s.logger.ErrorContext(ctx, "Failed to persist presence", "user_id", p.UserID, "status", p.Status, "error", err)
		}
	}
	if err := pubsub.Publish(ctx, s.publisher, StatusChanged, p.UserID, p); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish presence update", "user_id", p.UserID, "error", err)
	}
}

// IsOnline reports whether userID currently counts as online.
func (s *Service) IsOnline(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.state[userID]
	return ok && st.online
}

// GetPresence returns userID's status. The boolean is false for users the
// service has not seen since startup.
func (s *Service) GetPresence(userID string) (Presence, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.state[userID]
	if !ok {
		return Presence{UserID: userID, Status: StatusOffline}, false
	}
	return st.presence(userID), true
}

// OnlineUsers returns the sorted ids of every online user.
func (s *Service) OnlineUsers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]string, 0, len(s.state))
	for id, st := range s.state {
		if st.online {
			users = append(users, id)
		}
	}
	slices.Sort(users)
	return users
}

// Shutdown stops listening for events and cancels pending offline timers.
func (s *Service) Shutdown(context.Context) error {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.state {
		if st.timer != nil {
			st.timer.Stop()
		}
	}
	return nil
}
