package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-engine/internal/cart"
	"github.com/angelmondragon/storefront-engine/internal/catalog"
	"github.com/angelmondragon/storefront-engine/internal/checkout"
	"github.com/angelmondragon/storefront-engine/internal/configurator"
	"github.com/angelmondragon/storefront-engine/internal/orders"
	"github.com/angelmondragon/storefront-engine/internal/tracking"
	"github.com/angelmondragon/storefront-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct{ menu *catalog.Menu }

func (s stubCatalog) Menu(context.Context) (*catalog.Menu, error) { return s.menu, nil }

func (s stubCatalog) Product(_ context.Context, id string) (catalog.Product, error) {
	if p, ok := s.menu.Product(id); ok {
		return p, nil
	}
	return catalog.Product{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

type stubAddresses struct{}

func (stubAddresses) List(context.Context, string) []types.Address { return nil }
func (stubAddresses) Create(context.Context, string, types.AddressInput) (types.Address, error) {
	return types.Address{}, errors.New("not used")
}
func (stubAddresses) Update(context.Context, string, string, types.AddressPatch) (types.Address, error) {
	return types.Address{}, nil
}
func (stubAddresses) Delete(context.Context, string, string) error { return nil }
func (stubAddresses) SetDefault(context.Context, string, string) ([]types.Address, error) {
	return nil, nil
}
func (stubAddresses) Districts(context.Context) []types.District        { return nil }
func (stubAddresses) SearchStreets(context.Context, string) []types.Street { return nil }

type stubGateway struct {
	mu      sync.Mutex
	polls   map[string]int
	nextID  int
	submits int
	block   chan struct{}
	entered chan struct{}
}

func (g *stubGateway) SubmitOrder(_ context.Context, req orders.Request) (orders.Order, error) {
	g.mu.Lock()
	g.submits++
	g.nextID++
	id := "o" + string(rune('0'+g.nextID))
	block, entered := g.block, g.entered
	g.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return orders.Order{ID: id, Code: "C" + id, Status: "aguardando_aceite", DeliveryMode: req.DeliveryMode, Total: req.Total}, nil
}

func (g *stubGateway) submitCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submits
}

func (g *stubGateway) GetOrderStatus(_ context.Context, id string) (orders.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.polls == nil {
		g.polls = map[string]int{}
	}
	g.polls[id]++
	return orders.Order{ID: id, Status: "aceito", DeliveryMode: enums.DeliveryModePickup}, nil
}

func (g *stubGateway) pollCount(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.polls[id]
}

type memoryStore struct {
	mu    sync.Mutex
	carts map[string][]cart.LineItem
	saves int
}

func (m *memoryStore) SaveCart(_ context.Context, id string, items []cart.LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.carts == nil {
		m.carts = map[string][]cart.LineItem{}
	}
	m.saves++
	m.carts[id] = items
	return nil
}

func (m *memoryStore) LoadCart(_ context.Context, id string) ([]cart.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.carts[id], nil
}

func (m *memoryStore) DeleteCart(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, id)
	return nil
}

func fries() catalog.Product {
	return catalog.Product{ID: "fries", Name: "Fries", Type: enums.ProductTypeSimple, SalePrice: decimal.RequireFromString("9.50")}
}

func newManager(t *testing.T, store SnapshotStore, gw *stubGateway) *Manager {
	t.Helper()
	m, err := NewManager(Params{
		Catalog:      stubCatalog{menu: catalog.NewMenu([]catalog.Product{fries()})},
		Addresses:    stubAddresses{},
		Gateway:      gw,
		Store:        store,
		PollInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })
	return m
}

func addFries(t *testing.T, s *Session) {
	t.Helper()
	ctx := context.Background()
	_, err := s.StartConfigurator(ctx, "fries")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		view, item, err := s.AdvanceConfigurator(ctx)
		require.NoError(t, err)
		if item != nil {
			return
		}
		require.NotEqual(t, configurator.PhaseCommitted, view.Phase)
	}
	t.Fatal("configurator never committed")
}

func TestNewManagerRequiresCollaborators(t *testing.T) {
	_, err := NewManager(Params{})
	assert.Error(t, err)
}

func TestGetCreatesAndReusesSessions(t *testing.T) {
	m := newManager(t, nil, &stubGateway{})
	ctx := context.Background()

	s := m.Get(ctx, "")
	require.NotEmpty(t, s.ID())
	assert.Same(t, s, m.Get(ctx, s.ID()))
	assert.Equal(t, 1, m.Len())
}

func TestConfiguratorCommitAddsToCartAndPersists(t *testing.T) {
	store := &memoryStore{}
	m := newManager(t, store, &stubGateway{})
	s := m.Get(context.Background(), "sess-1")

	addFries(t, s)
	addFries(t, s)

	assert.Equal(t, 1, s.Cart().Len())
	assert.Equal(t, 2, s.Cart().ItemCount())
	assert.True(t, s.Cart().Total().Equal(decimal.RequireFromString("19.00")))
	assert.Len(t, store.carts["sess-1"], 1)

	_, err := s.Configure(func(c *configurator.Configurator) error { return c.Increment() })
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "configurator closes after commit")
}

func TestCartRestoredFromSnapshot(t *testing.T) {
	store := &memoryStore{carts: map[string][]cart.LineItem{
		"returning": {{ID: "line-1", Product: fries(), Quantity: 3}},
	}}
	m := newManager(t, store, &stubGateway{})

	s := m.Get(context.Background(), "returning")
	assert.Equal(t, 3, s.Cart().ItemCount())

	require.NoError(t, s.UpdateQuantity(context.Background(), "line-1", -3))
	assert.True(t, s.Cart().IsEmpty())
	assert.Empty(t, store.carts["returning"])
}

func TestCheckoutRequiresClient(t *testing.T) {
	m := newManager(t, nil, &stubGateway{})
	s := m.Get(context.Background(), "sess-1")
	addFries(t, s)

	_, err := s.StartCheckout(context.Background())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSubmitStartsTrackerAndReplacesPrevious(t *testing.T) {
	gw := &stubGateway{}
	m := newManager(t, &memoryStore{}, gw)
	ctx := context.Background()
	s := m.Get(ctx, "sess-1")
	s.SetClientID("client-1")

	submit := func() orders.Order {
		addFries(t, s)
		o, err := s.StartCheckout(ctx)
		require.NoError(t, err)
		require.NoError(t, o.ChooseDeliveryMode(enums.DeliveryModePickup))
		require.NoError(t, o.ChoosePayment(enums.PaymentMethodPix))
		order, err := s.SubmitCheckout(ctx)
		require.NoError(t, err)
		return order
	}

	first := submit()
	assert.True(t, s.Cart().IsEmpty())
	_, err := s.Checkout()
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "checkout is torn down after submit")

	tracker, err := s.Tracker()
	require.NoError(t, err)
	assert.Equal(t, first.ID, tracker.OrderID())
	require.Eventually(t, func() bool { return gw.pollCount(first.ID) > 0 }, time.Second, 5*time.Millisecond)

	second := submit()
	tracker, err = s.Tracker()
	require.NoError(t, err)
	assert.Equal(t, second.ID, tracker.OrderID())

	stopped := gw.pollCount(first.ID)
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, stopped, gw.pollCount(first.ID), "previous tracker must stop")
}

func TestCloseStopsTracking(t *testing.T) {
	gw := &stubGateway{}
	m := newManager(t, nil, gw)
	ctx := context.Background()
	s := m.Get(ctx, "sess-1")

	_, err := s.TrackOrder(ctx, "o9")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return gw.pollCount("o9") > 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, m.Close(ctx, "sess-1"))
	stopped := gw.pollCount("o9")
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, stopped, gw.pollCount("o9"))
	_, ok := m.Lookup("sess-1")
	assert.False(t, ok)

	_, err = s.TrackOrder(ctx, "o8")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "closed session must not start tracking")
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, gw.pollCount("o8"))
}

func TestConcurrentTrackKeepsSinglePoller(t *testing.T) {
	gw := &stubGateway{}
	m := newManager(t, nil, gw)
	ctx := context.Background()
	s := m.Get(ctx, "sess-1")
	ids := []string{"t1", "t2", "t3", "t4"}

	for round := 0; round < 50; round++ {
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			started []*tracking.Tracker
		)
		for _, id := range ids {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				tr, err := s.Track(ctx, orders.Order{ID: id, DeliveryMode: enums.DeliveryModePickup})
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				started = append(started, tr)
				mu.Unlock()
			}(id)
		}
		wg.Wait()

		current, err := s.Tracker()
		require.NoError(t, err)
		running := 0
		for _, tr := range started {
			if tr.Running() {
				running++
				assert.Same(t, current, tr, "only the published tracker may poll")
			}
		}
		require.Equal(t, 1, running, "round %d", round)
	}

	s.StopTracking()
	counts := func() []int {
		out := make([]int, len(ids))
		for i, id := range ids {
			out[i] = gw.pollCount(id)
		}
		return out
	}
	stopped := counts()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, stopped, counts(), "no poller may outlive StopTracking")
}

func TestCheckoutCannotRestartWhileSubmitting(t *testing.T) {
	cases := []struct {
		name   string
		submit func(s *Session, o *checkout.Orchestrator) error
	}{
		{name: "session submit", submit: func(s *Session, _ *checkout.Orchestrator) error {
			_, err := s.SubmitCheckout(context.Background())
			return err
		}},
		{name: "orchestrator submit", submit: func(_ *Session, o *checkout.Orchestrator) error {
			_, err := o.Submit(context.Background())
			return err
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &stubGateway{block: make(chan struct{}), entered: make(chan struct{}, 1)}
			m := newManager(t, nil, gw)
			ctx := context.Background()
			s := m.Get(ctx, "sess-1")
			s.SetClientID("client-1")
			addFries(t, s)

			o, err := s.StartCheckout(ctx)
			require.NoError(t, err)
			require.NoError(t, o.ChooseDeliveryMode(enums.DeliveryModePickup))
			require.NoError(t, o.ChoosePayment(enums.PaymentMethodPix))

			done := make(chan error, 1)
			go func() { done <- tc.submit(s, o) }()
			select {
			case <-gw.entered:
			case <-time.After(2 * time.Second):
				t.Fatal("submission did not reach the gateway")
			}

			_, err = s.StartCheckout(ctx)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeSubmitPending), "restart while submitting: %v", err)
			_, err = s.SubmitCheckout(ctx)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeSubmitPending), "second submit while submitting: %v", err)

			current, err := s.Checkout()
			require.NoError(t, err)
			assert.Same(t, o, current, "in-flight checkout must not be replaced")

			close(gw.block)
			require.NoError(t, <-done)
			assert.Equal(t, 1, gw.submitCount())
			assert.True(t, s.Cart().IsEmpty())
		})
	}
}

func TestCloseIdle(t *testing.T) {
	m := newManager(t, nil, &stubGateway{})
	now := time.Now()
	m.now = func() time.Time { return now }
	m.Get(context.Background(), "old")

	now = now.Add(3 * time.Hour)
	m.Get(context.Background(), "fresh")

	closed, err := m.CloseIdle(context.Background(), 2*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)
	_, ok := m.Lookup("fresh")
	assert.True(t, ok)
}
