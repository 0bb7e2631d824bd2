package checkout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-engine/internal/cart"
	"github.com/angelmondragon/storefront-engine/internal/catalog"
	"github.com/angelmondragon/storefront-engine/internal/orders"
	"github.com/angelmondragon/storefront-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/storefrontapi"
	"github.com/angelmondragon/storefront-engine/pkg/types"
	"github.com/shopspring/decimal"
)

func money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

type stubGateway struct {
	mu       sync.Mutex
	calls    int
	requests []orders.Request
	err      error
	block    chan struct{}
	entered  chan struct{}
}

func (g *stubGateway) SubmitOrder(ctx context.Context, req orders.Request) (orders.Order, error) {
	g.mu.Lock()
	g.calls++
	g.requests = append(g.requests, req)
	block, entered, err := g.block, g.entered, g.err
	g.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	if err != nil {
		return orders.Order{}, err
	}
	return orders.Order{ID: "o-1", Code: "A17", Status: "aguardando_aceite", Total: req.Total, DeliveryFee: req.DeliveryFee, DeliveryMode: req.DeliveryMode}, nil
}

func (g *stubGateway) GetOrderStatus(context.Context, string) (orders.Order, error) {
	return orders.Order{}, errors.New("not used")
}

type stubAddresses struct {
	list      []types.Address
	districts []types.District
	createErr error
	created   []types.AddressInput
}

func (s *stubAddresses) List(context.Context, string) []types.Address { return s.list }

func (s *stubAddresses) Create(_ context.Context, clientID string, input types.AddressInput) (types.Address, error) {
	if s.createErr != nil {
		return types.Address{}, s.createErr
	}
	s.created = append(s.created, input)
	addr := types.Address{ID: "new", ClientID: clientID, Street: input.Street, District: input.District, IsDefault: len(s.list) == 0}
	s.list = append(s.list, addr)
	return addr, nil
}

func (s *stubAddresses) Update(context.Context, string, string, types.AddressPatch) (types.Address, error) {
	return types.Address{}, nil
}

func (s *stubAddresses) Delete(context.Context, string, string) error { return nil }

func (s *stubAddresses) SetDefault(context.Context, string, string) ([]types.Address, error) {
	return s.list, nil
}

func (s *stubAddresses) Districts(context.Context) []types.District { return s.districts }

func (s *stubAddresses) SearchStreets(context.Context, string) []types.Street { return nil }

type stubClub struct {
	cfg storefrontapi.ClubConfig
	err error
}

func (s stubClub) GetClubConfig(context.Context) (storefrontapi.ClubConfig, error) {
	return s.cfg, s.err
}

type stubGuard struct {
	held     atomic.Bool
	released atomic.Int32
}

func (g *stubGuard) Acquire(context.Context, string) (func(context.Context) error, bool, error) {
	if !g.held.CompareAndSwap(false, true) {
		return nil, false, nil
	}
	return func(context.Context) error {
		g.released.Add(1)
		g.held.Store(false)
		return nil
	}, true, nil
}

func cartWithTotal(t *testing.T, unit string, qty int) *cart.Cart {
	t.Helper()
	c := cart.New()
	c.Add(cart.LineItem{
		Product:        catalog.Product{ID: "burger", Name: "Smash Burger", Type: enums.ProductTypeSimple, SalePrice: money(unit)},
		Quantity:       qty,
		FinalUnitPrice: decimal.NewNullDecimal(money(unit)),
		Observation:    "no onions",
	})
	return c
}

func newOrchestrator(t *testing.T, c *cart.Cart, gw *stubGateway, addrs *stubAddresses, opts ...Option) *Orchestrator {
	t.Helper()
	o, err := New("client-1", c, gw, addrs, opts...)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return o
}

func mustDo(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewRejectsEmptyCartAndMissingClient(t *testing.T) {
	if _, err := New("client-1", cart.New(), &stubGateway{}, &stubAddresses{}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation for empty cart, got %v", err)
	}
	if _, err := New(" ", cartWithTotal(t, "10.00", 1), &stubGateway{}, &stubAddresses{}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation for missing client, got %v", err)
	}
	if _, err := New("client-1", cartWithTotal(t, "10.00", 1), nil, &stubAddresses{}); err == nil {
		t.Fatal("expected error for nil gateway")
	}
}

func TestCashChangeScenario(t *testing.T) {
	gw := &stubGateway{}
	c := cartWithTotal(t, "35.00", 1)
	o := newOrchestrator(t, c, gw, &stubAddresses{})

	mustDo(t, o.ChooseDeliveryMode(enums.DeliveryModePickup))
	if got := o.State().Step; got != enums.CheckoutStepPayment {
		t.Fatalf("pickup should skip address, at %s", got)
	}
	mustDo(t, o.ChoosePayment(enums.PaymentMethodCash))
	if got := o.State().Step; got != enums.CheckoutStepChange {
		t.Fatalf("cash should enter change flow, at %s", got)
	}
	if o.CanSubmit() {
		t.Fatal("cash checkout must not submit before the change question is answered")
	}
	mustDo(t, o.AnswerNeedsChange(true))
	if o.CanSubmit() {
		t.Fatal("cannot submit without a confirmed amount")
	}

	low := o.EvaluateChange(money("30.00"))
	if low.Valid || !low.Deficit.Equal(money("5.00")) {
		t.Fatalf("unexpected quote for 30.00: %+v", low)
	}
	if _, err := o.ConfirmChange(money("30.00")); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := o.ConfirmChange(money("35.00")); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("amount equal to total must be rejected, got %v", err)
	}
	if got := o.State().Step; got != enums.CheckoutStepChange || o.CanSubmit() {
		t.Fatalf("rejected amount must not advance, at %s", got)
	}

	quote, err := o.ConfirmChange(money("40.00"))
	mustDo(t, err)
	if !quote.Valid || !quote.Change.Equal(money("5.00")) {
		t.Fatalf("unexpected quote %+v", quote)
	}
	if !o.CanSubmit() {
		t.Fatal("expected submit to be enabled")
	}

	req, err := o.BuildRequest()
	mustDo(t, err)
	if !req.NeedsChange || !req.ChangeFor.Decimal.Equal(money("40.00")) || req.Address != nil || !req.DeliveryFee.IsZero() {
		t.Fatalf("unexpected request %+v", req)
	}
	if len(req.Lines) != 1 || req.Lines[0].Observation != "no onions" || !req.Lines[0].UnitPrice.Equal(money("35.00")) {
		t.Fatalf("unexpected lines %+v", req.Lines)
	}
}

func TestDeliveryChangeCountsFee(t *testing.T) {
	addrs := &stubAddresses{
		list:      []types.Address{{ID: "home", Street: "Rua A", District: "Centro", IsDefault: true}},
		districts: []types.District{{Name: "Centro", DeliveryFee: money("5.00")}},
	}
	gw := &stubGateway{}
	o := newOrchestrator(t, cartWithTotal(t, "30.00", 1), gw, addrs)
	mustDo(t, o.ChooseDeliveryMode(enums.DeliveryModeDelivery))
	mustDo(t, o.SelectAddress(context.Background(), "home"))
	mustDo(t, o.ChoosePayment(enums.PaymentMethodCash))
	mustDo(t, o.AnswerNeedsChange(true))

	if !o.Due().Equal(money("35.00")) {
		t.Fatalf("due = %s", o.Due())
	}
	short := o.EvaluateChange(money("32.00"))
	if short.Valid || !short.Deficit.Equal(money("3.00")) {
		t.Fatalf("amount above the cart total but below due must be short: %+v", short)
	}
	if _, err := o.ConfirmChange(money("35.00")); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("amount equal to due must be rejected, got %v", err)
	}

	quote, err := o.ConfirmChange(money("50.00"))
	mustDo(t, err)
	if !quote.Change.Equal(money("15.00")) {
		t.Fatalf("change = %s", quote.Change)
	}
	req, err := o.BuildRequest()
	mustDo(t, err)
	if !req.DeliveryFee.Equal(money("5.00")) || !req.AmountDue().Equal(money("35.00")) {
		t.Fatalf("unexpected request %+v", req)
	}
	mustDo(t, req.Validate())

	req.ChangeFor = decimal.NewNullDecimal(money("35.00"))
	if err := req.Validate(); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("request with change equal to due must fail validation, got %v", err)
	}
}

func TestCashWithoutChangeIsReady(t *testing.T) {
	o := newOrchestrator(t, cartWithTotal(t, "12.00", 2), &stubGateway{}, &stubAddresses{})
	mustDo(t, o.ChooseDeliveryMode(enums.DeliveryModePickup))
	mustDo(t, o.ChoosePayment(enums.PaymentMethodCash))
	mustDo(t, o.AnswerNeedsChange(false))

	if !o.CanSubmit() {
		t.Fatal("expected ready checkout")
	}
	req, err := o.BuildRequest()
	mustDo(t, err)
	if req.NeedsChange || req.ChangeFor.Valid {
		t.Fatalf("no change must be attached, got %+v", req)
	}
}

func TestDeliveryAddressFeeAndBackNavigation(t *testing.T) {
	addrs := &stubAddresses{
		list: []types.Address{{ID: "home", Street: "Rua A", District: "São João", IsDefault: true}},
		districts: []types.District{
			{Name: "Sao Joao", DeliveryFee: money("6.50")},
		},
	}
	o := newOrchestrator(t, cartWithTotal(t, "30.00", 1), &stubGateway{}, addrs)

	if err := o.SelectAddress(context.Background(), "home"); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("address before delivery mode should conflict, got %v", err)
	}
	mustDo(t, o.ChooseDeliveryMode(enums.DeliveryModeDelivery))
	if got := o.State().Step; got != enums.CheckoutStepAddress {
		t.Fatalf("expected address step, got %s", got)
	}
	if err := o.SelectAddress(context.Background(), "missing"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	mustDo(t, o.SelectAddress(context.Background(), "home"))

	state := o.State()
	if state.Step != enums.CheckoutStepPayment || !state.DeliveryFee.Equal(money("6.50")) {
		t.Fatalf("unexpected state %+v", state)
	}
	if !o.Due().Equal(money("36.50")) {
		t.Fatalf("due = %s", o.Due())
	}

	mustDo(t, o.Back())
	if got := o.State().Step; got != enums.CheckoutStepAddress {
		t.Fatalf("back from payment after delivery should land on address, got %s", got)
	}
	mustDo(t, o.Back())
	if got := o.State().Step; got != enums.CheckoutStepDeliveryType {
		t.Fatalf("expected delivery type, got %s", got)
	}
	if err := o.Back(); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("back from first step should conflict, got %v", err)
	}

	mustDo(t, o.ChooseDeliveryMode(enums.DeliveryModePickup))
	if fee := o.State().DeliveryFee; !fee.IsZero() {
		t.Fatalf("pickup fee must be zero, got %s", fee)
	}
	mustDo(t, o.Back())
	if got := o.State().Step; got != enums.CheckoutStepDeliveryType {
		t.Fatalf("back from payment after pickup should skip address, got %s", got)
	}
}

func TestSaveAddressSelectsNewAddress(t *testing.T) {
	addrs := &stubAddresses{districts: []types.District{{Name: "Centro", DeliveryFee: money("4.00")}}}
	o := newOrchestrator(t, cartWithTotal(t, "20.00", 1), &stubGateway{}, addrs)
	mustDo(t, o.ChooseDeliveryMode(enums.DeliveryModeDelivery))

	addr, err := o.SaveAddress(context.Background(), types.AddressInput{Street: "Rua B", District: "centro"})
	mustDo(t, err)
	if !addr.IsDefault {
		t.Fatal("first address should be default")
	}
	state := o.State()
	if state.Address == nil || state.Address.ID != "new" || !state.DeliveryFee.Equal(money("4.00")) {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestSaveAddressFailureKeepsState(t *testing.T) {
	addrs := &stubAddresses{createErr: pkgerrors.New(pkgerrors.CodeDependency, "backend down")}
	o := newOrchestrator(t, cartWithTotal(t, "20.00", 1), &stubGateway{}, addrs)
	mustDo(t, o.ChooseDeliveryMode(enums.DeliveryModeDelivery))

	if _, err := o.SaveAddress(context.Background(), types.AddressInput{Street: "Rua B", District: "Centro"}); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if got := o.State().Step; got != enums.CheckoutStepAddress {
		t.Fatalf("state should stay on address, got %s", got)
	}
	if o.Notice() == "" {
		t.Fatal("expected a user-facing notice")
	}
}

func TestSubmitClearsCartOnSuccess(t *testing.T) {
	gw := &stubGateway{}
	c := cartWithTotal(t, "18.00", 2)
	o := newOrchestrator(t, c, gw, &stubAddresses{})
	mustDo(t, o.ChooseDeliveryMode(enums.DeliveryModePickup))
	mustDo(t, o.ChoosePayment(enums.PaymentMethodPix))

	order, err := o.Submit(context.Background())
	mustDo(t, err)
	if order.Code != "A17" {
		t.Fatalf("unexpected order %+v", order)
	}
	if !c.IsEmpty() {
		t.Fatal("cart should be cleared after submission")
	}
	if got := o.State().Step; got != enums.CheckoutStepSubmitted {
		t.Fatalf("expected submitted, got %s", got)
	}
	if !gw.requests[0].Total.Equal(money("36.00")) {
		t.Fatalf("unexpected total %s", gw.requests[0].Total)
	}
	if _, err := o.Submit(context.Background()); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("second submit should conflict, got %v", err)
	}
	if gw.calls != 1 {
		t.Fatalf("expected one gateway call, got %d", gw.calls)
	}
	if err := o.Back(); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("submitted checkout is finished, got %v", err)
	}
}

func TestSubmitFailureLeavesStateAndCart(t *testing.T) {
	gw := &stubGateway{err: errors.New("502 bad gateway")}
	c := cartWithTotal(t, "18.00", 1)
	o := newOrchestrator(t, c, gw, &stubAddresses{})
	mustDo(t, o.ChooseDeliveryMode(enums.DeliveryModePickup))
	mustDo(t, o.ChoosePayment(enums.PaymentMethodDebit))

	if _, err := o.Submit(context.Background()); !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if c.IsEmpty() {
		t.Fatal("failed submission must not clear the cart")
	}
	if got := o.State().Step; got != enums.CheckoutStepReady || !o.CanSubmit() {
		t.Fatalf("checkout should stay ready for retry, at %s", got)
	}
	if o.Notice() == "" {
		t.Fatal("expected failure notice")
	}

	gw.mu.Lock()
	gw.err = nil
	gw.mu.Unlock()
	if _, err := o.Submit(context.Background()); err != nil {
		t.Fatalf("manual retry should succeed: %v", err)
	}
	if o.Notice() != "" {
		t.Fatalf("notice should clear on retry, got %q", o.Notice())
	}
}

func TestSubmitIsNotIssuedTwiceWhileInFlight(t *testing.T) {
	gw := &stubGateway{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	guard := &stubGuard{}
	o := newOrchestrator(t, cartWithTotal(t, "18.00", 1), gw, &stubAddresses{}, WithSubmitGuard(guard), WithSessionID("sess-1"))
	mustDo(t, o.ChooseDeliveryMode(enums.DeliveryModePickup))
	mustDo(t, o.ChoosePayment(enums.PaymentMethodCredit))

	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background())
		done <- err
	}()

	select {
	case <-gw.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("submission did not reach the gateway")
	}

	if o.CanSubmit() || !o.Submitting() {
		t.Fatal("submit must be disabled while in flight")
	}
	if _, err := o.Submit(context.Background()); !pkgerrors.IsCode(err, pkgerrors.CodeSubmitPending) {
		t.Fatalf("expected submit pending, got %v", err)
	}
	if err := o.Back(); !pkgerrors.IsCode(err, pkgerrors.CodeSubmitPending) {
		t.Fatalf("transitions are frozen while submitting, got %v", err)
	}

	close(gw.block)
	if err := <-done; err != nil {
		t.Fatalf("submit: %v", err)
	}
	if gw.calls != 1 {
		t.Fatalf("expected a single gateway call, got %d", gw.calls)
	}
	if o.Submitting() {
		t.Fatal("submitting flag must clear once the call returns")
	}
	if guard.released.Load() != 1 {
		t.Fatal("guard should be released after submission")
	}
}

func TestGuardHeldElsewhereRejectsSubmit(t *testing.T) {
	gw := &stubGateway{}
	guard := &stubGuard{}
	guard.held.Store(true)
	o := newOrchestrator(t, cartWithTotal(t, "18.00", 1), gw, &stubAddresses{}, WithSubmitGuard(guard), WithSessionID("sess-1"))
	mustDo(t, o.ChooseDeliveryMode(enums.DeliveryModePickup))
	mustDo(t, o.ChoosePayment(enums.PaymentMethodPix))

	if _, err := o.Submit(context.Background()); !pkgerrors.IsCode(err, pkgerrors.CodeSubmitPending) {
		t.Fatalf("expected submit pending, got %v", err)
	}
	if gw.calls != 0 {
		t.Fatal("gateway must not be called without the guard")
	}
}

func TestPaymentChangeResetsChangeAnswer(t *testing.T) {
	o := newOrchestrator(t, cartWithTotal(t, "10.00", 1), &stubGateway{}, &stubAddresses{})
	mustDo(t, o.ChooseDeliveryMode(enums.DeliveryModePickup))
	mustDo(t, o.ChoosePayment(enums.PaymentMethodCash))
	mustDo(t, o.AnswerNeedsChange(true))
	_, err := o.ConfirmChange(money("50.00"))
	mustDo(t, err)

	mustDo(t, o.Back())
	if s := o.State(); s.Step != enums.CheckoutStepChange || s.ChangeFor.Valid || s.ChangeAnswered {
		t.Fatalf("back from ready should reopen the change question, got %+v", s)
	}
	mustDo(t, o.Back())
	mustDo(t, o.ChoosePayment(enums.PaymentMethodPix))
	req, err := o.BuildRequest()
	mustDo(t, err)
	if req.NeedsChange || req.ChangeFor.Valid {
		t.Fatalf("non-cash request carries change: %+v", req)
	}
}

func TestPointsPreview(t *testing.T) {
	c := cartWithTotal(t, "35.90", 1)
	o := newOrchestrator(t, c, &stubGateway{}, &stubAddresses{}, WithClubReader(stubClub{cfg: storefrontapi.ClubConfig{ClubName: "Clube", PointsPerCurrencyUnit: money("2")}}))
	if got := o.PointsPreview(context.Background()); got.Points != 71 || got.ClubName != "Clube" {
		t.Fatalf("unexpected preview %+v", got)
	}

	failing := newOrchestrator(t, c, &stubGateway{}, &stubAddresses{}, WithClubReader(stubClub{err: errors.New("offline")}))
	if got := failing.PointsPreview(context.Background()); got.Points != 0 {
		t.Fatalf("lookup failure should yield zero points, got %+v", got)
	}
}
