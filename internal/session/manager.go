package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-engine/internal/address"
	"github.com/angelmondragon/storefront-engine/internal/cart"
	"github.com/angelmondragon/storefront-engine/internal/catalog"
	"github.com/angelmondragon/storefront-engine/internal/checkout"
	"github.com/angelmondragon/storefront-engine/internal/orders"
	"github.com/angelmondragon/storefront-engine/internal/pricing"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
	"github.com/angelmondragon/storefront-engine/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const defaultSweepInterval = time.Minute

// Params wire the collaborators shared by every session.
type Params struct {
	Catalog   catalog.Service
	Addresses address.Service
	Gateway   orders.Gateway
	Rules     pricing.Rules

	Store           SnapshotStore
	Guard           checkout.SubmitGuard
	Club            checkout.ClubReader
	Logger          *logger.Logger
	CheckoutMetrics *metrics.CheckoutMetrics
	TrackingMetrics *metrics.TrackingMetrics

	PollInterval            time.Duration
	PickupAddress           string
	IdleTimeout             time.Duration
	SweepInterval           time.Duration
	ConfigurationAwareMerge bool
}

// Manager owns the live sessions of this process.
type Manager struct {
	params Params
	logg   *logger.Logger

	// trackers outlive the request that started them
	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewManager(params Params) (*Manager, error) {
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if params.Addresses == nil {
		return nil, fmt.Errorf("address service required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("order gateway required")
	}
	if params.Rules.SimpleRatio.IsZero() {
		params.Rules = pricing.DefaultRules()
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		params:     params,
		logg:       logg,
		baseCtx:    ctx,
		cancelBase: cancel,
		sessions:   map[string]*Session{},
		now:        time.Now,
	}, nil
}

func (m *Manager) newCart() *cart.Cart {
	if m.params.ConfigurationAwareMerge {
		return cart.New(cart.WithConfigurationAwareMerge())
	}
	return cart.New()
}

// Get returns the live session for id, creating it when unknown. A blank id
// starts a new session. New sessions restore their cart from the snapshot store.
func (m *Manager) Get(ctx context.Context, id string) *Session {
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}

	m.mu.Lock()
	if s, ok := m.sessions[id]; ok {
		s.touch(m.now())
		m.mu.Unlock()
		return s
	}
	s := newSession(id, m, m.newCart(), m.now())
	m.sessions[id] = s
	m.mu.Unlock()

	m.restoreCart(ctx, s)
	return s
}

// Lookup returns the live session without creating one.
func (m *Manager) Lookup(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[strings.TrimSpace(id)]
	if ok {
		s.touch(m.now())
	}
	return s, ok
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) restoreCart(ctx context.Context, s *Session) {
	if m.params.Store == nil {
		return
	}
	items, err := m.params.Store.LoadCart(ctx, s.id)
	if err != nil {
		m.logg.WarnErr(m.logg.WithSessionID(ctx, s.id), "restore cart snapshot failed", err)
		return
	}
	if len(items) > 0 {
		s.cart.Restore(items)
	}
}

func (m *Manager) persistCart(ctx context.Context, s *Session) {
	if m.params.Store == nil {
		return
	}
	if err := m.params.Store.SaveCart(ctx, s.id, s.cart.Items()); err != nil {
		m.logg.WarnErr(m.logg.WithSessionID(ctx, s.id), "persist cart snapshot failed", err)
	}
}

// Close tears down the session: its tracker stops and it leaves the manager.
// The cart snapshot is kept so a returning customer finds it.
func (m *Manager) Close(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return s.close(ctx)
}

// CloseIdle closes sessions unused for longer than maxIdle and returns how many closed.
func (m *Manager) CloseIdle(ctx context.Context, maxIdle time.Duration) (int, error) {
	if maxIdle <= 0 {
		return 0, nil
	}
	cutoff := m.now().Add(-maxIdle)
	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.lastUsed().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	var errs error
	for _, s := range idle {
		errs = multierr.Append(errs, s.close(ctx))
	}
	return len(idle), errs
}

// Run sweeps idle sessions until ctx is canceled.
func (m *Manager) Run(ctx context.Context) error {
	interval := m.params.SweepInterval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			closed, err := m.CloseIdle(ctx, m.params.IdleTimeout)
			if err != nil {
				m.logg.Error(ctx, "session sweep failed", err)
			}
			if closed > 0 {
				m.logg.Debug(m.logg.WithField(ctx, "closed", closed), "idle sessions closed")
			}
		}
	}
}

// Shutdown closes every session and stops all trackers.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	var errs error
	for _, s := range all {
		errs = multierr.Append(errs, s.close(ctx))
	}
	m.cancelBase()
	return errs
}
