package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-engine/internal/cart"
	"github.com/angelmondragon/storefront-engine/internal/catalog"
	"github.com/angelmondragon/storefront-engine/internal/checkout"
	"github.com/angelmondragon/storefront-engine/internal/configurator"
	"github.com/angelmondragon/storefront-engine/internal/orders"
	"github.com/angelmondragon/storefront-engine/internal/tracking"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
)

// Session is one customer's menu, cart, configurator, checkout and tracker.
// Its mutex only serializes concurrent requests carrying the same session id.
type Session struct {
	id      string
	manager *Manager
	cart    *cart.Cart

	// trackMu orders tracker swaps so only one poll loop is ever live.
	// It is taken before mu.
	trackMu sync.Mutex

	mu           sync.Mutex
	used         time.Time
	closed       bool
	submitting   bool
	clientID     string
	menu         *catalog.Menu
	configurator *configurator.Configurator
	checkout     *checkout.Orchestrator
	tracker      *tracking.Tracker
}

func newSession(id string, m *Manager, c *cart.Cart, now time.Time) *Session {
	return &Session{id: id, manager: m, cart: c, used: now}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Cart() *cart.Cart {
	return s.cart
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.used = now
	s.mu.Unlock()
}

func (s *Session) lastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}

func (s *Session) ClientID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientID
}

// SetClientID records the identified customer used by checkout.
func (s *Session) SetClientID(clientID string) {
	s.mu.Lock()
	s.clientID = strings.TrimSpace(clientID)
	s.mu.Unlock()
}

func (s *Session) ctx(ctx context.Context) context.Context {
	return s.manager.logg.WithSessionID(ctx, s.id)
}

// Menu loads the catalog once per session.
func (s *Session) Menu(ctx context.Context) (*catalog.Menu, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.menuLocked(ctx)
}

func (s *Session) menuLocked(ctx context.Context) (*catalog.Menu, error) {
	if s.menu != nil {
		return s.menu, nil
	}
	menu, err := s.manager.params.Catalog.Menu(ctx)
	if err != nil {
		return nil, err
	}
	s.menu = menu
	return menu, nil
}

// StartConfigurator opens a configurator for productID, replacing any open one.
func (s *Session) StartConfigurator(ctx context.Context, productID string) (configurator.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	menu, err := s.menuLocked(ctx)
	if err != nil {
		return configurator.View{}, err
	}
	product, ok := menu.Product(productID)
	if !ok {
		return configurator.View{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	c, err := configurator.New(product, s.manager.params.Rules, menu.Index)
	if err != nil {
		return configurator.View{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "start configurator")
	}
	s.configurator = c
	return c.View(), nil
}

// Configure runs fn against the open configurator and returns the new view.
func (s *Session) Configure(fn func(*configurator.Configurator) error) (configurator.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.configurator == nil {
		return configurator.View{}, pkgerrors.New(pkgerrors.CodeNotFound, "no product is being configured")
	}
	if err := fn(s.configurator); err != nil {
		return s.configurator.View(), err
	}
	return s.configurator.View(), nil
}

// AdvanceConfigurator moves the configurator forward. Committing from the
// summary adds the line to the cart and closes the configurator.
func (s *Session) AdvanceConfigurator(ctx context.Context) (configurator.View, *cart.LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.configurator == nil {
		return configurator.View{}, nil, pkgerrors.New(pkgerrors.CodeNotFound, "no product is being configured")
	}
	item, err := s.configurator.Advance()
	view := s.configurator.View()
	if err != nil || item == nil {
		return view, nil, err
	}
	added := s.cart.Add(*item)
	s.configurator = nil
	s.manager.persistCart(s.ctx(ctx), s)
	return view, &added, nil
}

// CloseConfigurator discards the open configurator without touching the cart.
func (s *Session) CloseConfigurator() {
	s.mu.Lock()
	s.configurator = nil
	s.mu.Unlock()
}

func (s *Session) RemoveFromCart(ctx context.Context, id string) error {
	if err := s.cart.Remove(id); err != nil {
		return err
	}
	s.manager.persistCart(s.ctx(ctx), s)
	return nil
}

func (s *Session) UpdateQuantity(ctx context.Context, id string, delta int) error {
	if err := s.cart.UpdateQuantity(id, delta); err != nil {
		return err
	}
	s.manager.persistCart(s.ctx(ctx), s)
	return nil
}

// StartCheckout opens a fresh checkout for the session's client.
func (s *Session) StartCheckout(ctx context.Context) (*checkout.Orchestrator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clientID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "identify the customer before checkout")
	}
	if s.submitting || (s.checkout != nil && s.checkout.Submitting()) {
		return nil, pkgerrors.New(pkgerrors.CodeSubmitPending, "order submission in progress")
	}
	p := s.manager.params
	opts := []checkout.Option{
		checkout.WithSessionID(s.id),
		checkout.WithLogger(s.manager.logg),
		checkout.WithMetrics(p.CheckoutMetrics),
	}
	if p.Guard != nil {
		opts = append(opts, checkout.WithSubmitGuard(p.Guard))
	}
	if p.Club != nil {
		opts = append(opts, checkout.WithClubReader(p.Club))
	}
	o, err := checkout.New(s.clientID, s.cart, p.Gateway, p.Addresses, opts...)
	if err != nil {
		return nil, err
	}
	s.checkout = o
	return o, nil
}

// Checkout returns the open checkout.
func (s *Session) Checkout() (*checkout.Orchestrator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no checkout in progress")
	}
	return s.checkout, nil
}

// SubmitCheckout submits the open checkout. On success the emptied cart is
// persisted, the checkout is torn down and the new order is tracked.
func (s *Session) SubmitCheckout(ctx context.Context) (orders.Order, error) {
	s.mu.Lock()
	o := s.checkout
	switch {
	case s.submitting:
		s.mu.Unlock()
		return orders.Order{}, pkgerrors.New(pkgerrors.CodeSubmitPending, "order submission in progress")
	case o == nil:
		s.mu.Unlock()
		return orders.Order{}, pkgerrors.New(pkgerrors.CodeNotFound, "no checkout in progress")
	}
	s.submitting = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.submitting = false
		s.mu.Unlock()
	}()

	order, err := o.Submit(s.ctx(ctx))
	if err != nil {
		return orders.Order{}, err
	}
	s.manager.persistCart(s.ctx(ctx), s)

	s.mu.Lock()
	if s.checkout == o {
		s.checkout = nil
	}
	s.mu.Unlock()

	if _, err := s.Track(ctx, order); err != nil {
		s.manager.logg.WarnErr(s.manager.logg.WithOrderCode(s.ctx(ctx), order.Code), "start tracking failed", err)
	}
	return order, nil
}

// Track stops any previous tracker and starts polling order.
func (s *Session) Track(ctx context.Context, order orders.Order) (*tracking.Tracker, error) {
	p := s.manager.params
	t, err := tracking.NewTracker(order, tracking.Params{
		Reader:        p.Gateway,
		Logger:        s.manager.logg,
		Metrics:       p.TrackingMetrics,
		Interval:      p.PollInterval,
		PickupAddress: p.PickupAddress,
	})
	if err != nil {
		return nil, err
	}

	s.trackMu.Lock()
	defer s.trackMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "session closed")
	}
	previous := s.tracker
	s.tracker = nil
	s.mu.Unlock()
	if previous != nil {
		previous.Stop()
	}

	if err := t.Start(s.ctx(s.manager.baseCtx)); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.tracker = t
	s.mu.Unlock()
	return t, nil
}

// TrackOrder looks the order up once to learn its delivery mode and tracks it.
func (s *Session) TrackOrder(ctx context.Context, orderID string) (*tracking.Tracker, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.manager.params.Gateway.GetOrderStatus(ctx, orderID)
	if err != nil {
		s.manager.logg.WarnErr(s.ctx(ctx), "initial order lookup failed", err)
		order = orders.Order{ID: orderID}
	}
	if order.ID == "" {
		order.ID = orderID
	}
	return s.Track(ctx, order)
}

// Tracker returns the active tracker.
func (s *Session) Tracker() (*tracking.Tracker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracker == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no order is being tracked")
	}
	return s.tracker, nil
}

// StopTracking stops and forgets the active tracker.
func (s *Session) StopTracking() {
	s.trackMu.Lock()
	defer s.trackMu.Unlock()
	s.mu.Lock()
	t := s.tracker
	s.tracker = nil
	s.mu.Unlock()
	if t != nil {
		t.Stop()
	}
}

func (s *Session) close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.StopTracking()
	s.mu.Lock()
	s.configurator = nil
	s.checkout = nil
	s.mu.Unlock()
	if s.manager.params.Store == nil {
		return nil
	}
	return s.manager.params.Store.SaveCart(s.ctx(ctx), s.id, s.cart.Items())
}
