package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-engine/internal/address"
	"github.com/angelmondragon/storefront-engine/internal/cart"
	"github.com/angelmondragon/storefront-engine/internal/orders"
	"github.com/angelmondragon/storefront-engine/internal/pricing"
	"github.com/angelmondragon/storefront-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
	"github.com/angelmondragon/storefront-engine/pkg/metrics"
	"github.com/angelmondragon/storefront-engine/pkg/types"
	"github.com/shopspring/decimal"
)

const (
	noticeSubmitFailed  = "We could not place your order. Please try again."
	noticeAddressFailed = "We could not save this address. Please try again."
)

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithSubmitGuard adds a distributed guard on top of the in-process flag.
func WithSubmitGuard(guard SubmitGuard) Option {
	return func(o *Orchestrator) { o.guard = guard }
}

func WithClubReader(club ClubReader) Option {
	return func(o *Orchestrator) { o.club = club }
}

func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func WithLogger(logg *logger.Logger) Option {
	return func(o *Orchestrator) { o.logg = logg }
}

// WithSessionID scopes the submit guard and log lines to a session.
func WithSessionID(id string) Option {
	return func(o *Orchestrator) { o.sessionID = id }
}

// Orchestrator sequences delivery mode, address, payment and change for one
// cart and submits the resulting order once.
type Orchestrator struct {
	mu         sync.Mutex
	state      State
	submitting bool
	notice     string
	order      *orders.Order
	districts  []types.District

	sessionID string
	clientID  string
	cart      *cart.Cart
	gateway   orders.Gateway
	addresses address.Service
	guard     SubmitGuard
	club      ClubReader
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
}

// New starts a checkout for clientID over a non-empty cart.
func New(clientID string, c *cart.Cart, gateway orders.Gateway, addresses address.Service, opts ...Option) (*Orchestrator, error) {
	if c == nil {
		return nil, fmt.Errorf("cart required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("order gateway required")
	}
	if addresses == nil {
		return nil, fmt.Errorf("address service required")
	}
	if strings.TrimSpace(clientID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client is required to check out")
	}
	if c.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	o := &Orchestrator{
		state:     Initial(),
		clientID:  strings.TrimSpace(clientID),
		cart:      c,
		gateway:   gateway,
		addresses: addresses,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logg == nil {
		o.logg = logger.Nop()
	}
	return o, nil
}

func (o *Orchestrator) ClientID() string {
	return o.clientID
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.clone()
}

// Notice is the last user-facing failure message, if any.
func (o *Orchestrator) Notice() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.notice
}

// Order returns the submitted order once the checkout is complete.
func (o *Orchestrator) Order() (orders.Order, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.order == nil {
		return orders.Order{}, false
	}
	return *o.order, true
}

func (o *Orchestrator) dueLocked() decimal.Decimal {
	return pricing.Round(o.cart.Total().Add(o.state.DeliveryFee))
}

// Due is the cart total plus the delivery fee.
func (o *Orchestrator) Due() decimal.Decimal {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dueLocked()
}

func (o *Orchestrator) apply(fn func(State) (State, error)) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.submitting {
		return pkgerrors.New(pkgerrors.CodeSubmitPending, "order submission in progress")
	}
	next, err := fn(o.state)
	if err != nil {
		return err
	}
	o.state = next
	o.notice = ""
	return nil
}

func (o *Orchestrator) ChooseDeliveryMode(mode enums.DeliveryMode) error {
	return o.apply(func(s State) (State, error) {
		return ChooseDeliveryMode(s, mode)
	})
}

// Addresses lists the client's saved addresses. Lookup failures yield an empty list.
func (o *Orchestrator) Addresses(ctx context.Context) []types.Address {
	return o.addresses.List(ctx, o.clientID)
}

// Districts returns the district catalog, cached after the first non-empty load.
func (o *Orchestrator) Districts(ctx context.Context) []types.District {
	o.mu.Lock()
	cached := o.districts
	o.mu.Unlock()
	if len(cached) > 0 {
		return cached
	}
	districts := o.addresses.Districts(ctx)
	if len(districts) > 0 {
		o.mu.Lock()
		o.districts = districts
		o.mu.Unlock()
	}
	return districts
}

// SearchStreets forwards street suggestions for the address form.
func (o *Orchestrator) SearchStreets(ctx context.Context, term string) []types.Street {
	return o.addresses.SearchStreets(ctx, term)
}

func (o *Orchestrator) requireStep(step enums.CheckoutStep, action string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.submitting {
		return pkgerrors.New(pkgerrors.CodeSubmitPending, "order submission in progress")
	}
	if o.state.Step != step {
		return stepConflict(o.state, action)
	}
	return nil
}

// SelectAddress picks a saved address and fills in its district fee.
func (o *Orchestrator) SelectAddress(ctx context.Context, addressID string) error {
	if err := o.requireStep(enums.CheckoutStepAddress, "select an address"); err != nil {
		return err
	}
	for _, addr := range o.Addresses(ctx) {
		if addr.ID == addressID {
			return o.useAddress(ctx, addr)
		}
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
}

// SaveAddress stores a new address for the client and selects it.
func (o *Orchestrator) SaveAddress(ctx context.Context, input types.AddressInput) (types.Address, error) {
	if err := o.requireStep(enums.CheckoutStepAddress, "save an address"); err != nil {
		return types.Address{}, err
	}
	created, err := o.addresses.Create(ctx, o.clientID, input)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
			o.mu.Lock()
			o.notice = noticeAddressFailed
			o.mu.Unlock()
			o.logg.Error(o.logCtx(ctx), "save address failed", err)
		}
		return types.Address{}, err
	}
	if err := o.useAddress(ctx, created); err != nil {
		return created, err
	}
	return created, nil
}

func (o *Orchestrator) useAddress(ctx context.Context, addr types.Address) error {
	fee := address.FeeForDistrict(o.Districts(ctx), addr.District)
	return o.apply(func(s State) (State, error) {
		return SelectAddress(s, addr, fee)
	})
}

func (o *Orchestrator) ChoosePayment(method enums.PaymentMethod) error {
	return o.apply(func(s State) (State, error) {
		return ChoosePayment(s, method)
	})
}

func (o *Orchestrator) AnswerNeedsChange(needs bool) error {
	return o.apply(func(s State) (State, error) {
		return AnswerNeedsChange(s, needs)
	})
}

// EvaluateChange checks amount against what is currently due without changing state.
func (o *Orchestrator) EvaluateChange(amount decimal.Decimal) ChangeQuote {
	return EvaluateChange(amount, o.Due())
}

func (o *Orchestrator) ConfirmChange(amount decimal.Decimal) (ChangeQuote, error) {
	var quote ChangeQuote
	err := o.apply(func(s State) (State, error) {
		next, q, err := ConfirmChange(s, amount, o.dueLocked())
		quote = q
		return next, err
	})
	return quote, err
}

func (o *Orchestrator) Back() error {
	return o.apply(Back)
}

// Submitting reports whether a gateway call is in flight.
func (o *Orchestrator) Submitting() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.submitting
}

func (o *Orchestrator) CanSubmit() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.submitting && !o.cart.IsEmpty() && CanSubmit(o.state, o.dueLocked())
}

// BuildRequest assembles the order payload for the current state.
func (o *Orchestrator) BuildRequest() (orders.Request, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buildRequestLocked()
}

func (o *Orchestrator) buildRequestLocked() (orders.Request, error) {
	if o.cart.IsEmpty() {
		return orders.Request{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if !CanSubmit(o.state, o.dueLocked()) {
		return orders.Request{}, stepConflict(o.state, "submit")
	}
	s := o.state.clone()
	req := orders.Request{
		ClientID:      o.clientID,
		Lines:         orders.BuildLines(o.cart.Items()),
		Total:         pricing.Round(o.cart.Total()),
		PaymentMethod: s.PaymentMethod,
		DeliveryMode:  s.DeliveryMode,
		DeliveryFee:   decimal.Zero,
	}
	if s.DeliveryMode == enums.DeliveryModeDelivery {
		req.Address = s.Address
		req.DeliveryFee = s.DeliveryFee
	}
	if s.PaymentMethod == enums.PaymentMethodCash && s.NeedsChange {
		req.NeedsChange = true
		req.ChangeFor = s.ChangeFor
	}
	if err := req.Validate(); err != nil {
		return orders.Request{}, err
	}
	return req, nil
}

// Submit places the order with a single gateway call. On success the cart is
// cleared and the checkout is finished; on failure state is left untouched.
func (o *Orchestrator) Submit(ctx context.Context) (orders.Order, error) {
	ctx = o.logCtx(ctx)

	o.mu.Lock()
	if o.submitting {
		o.mu.Unlock()
		return orders.Order{}, pkgerrors.New(pkgerrors.CodeSubmitPending, "order submission in progress")
	}
	if o.order != nil {
		order := *o.order
		o.mu.Unlock()
		return order, pkgerrors.New(pkgerrors.CodeStateConflict, "order already submitted")
	}
	req, err := o.buildRequestLocked()
	if err != nil {
		o.mu.Unlock()
		return orders.Order{}, err
	}
	o.submitting = true
	o.notice = ""
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.submitting = false
		o.mu.Unlock()
	}()

	if o.guard != nil && o.sessionID != "" {
		release, ok, err := o.guard.Acquire(ctx, o.sessionID)
		if err != nil {
			wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire submit guard")
			o.fail(ctx, req, 0, wrapped)
			return orders.Order{}, wrapped
		}
		if !ok {
			o.metrics.ObserveSubmit(req.DeliveryMode.String(), req.PaymentMethod.String(), metrics.OutcomeRejected, 0)
			return orders.Order{}, pkgerrors.New(pkgerrors.CodeSubmitPending, "order submission in progress")
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				o.logg.WarnErr(ctx, "release submit guard failed", err)
			}
		}()
	}

	start := time.Now()
	order, err := o.gateway.SubmitOrder(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit order")
		}
		o.fail(ctx, req, elapsed, err)
		return orders.Order{}, err
	}

	o.mu.Lock()
	o.order = &order
	o.state.Step = enums.CheckoutStepSubmitted
	o.mu.Unlock()
	o.cart.Clear()

	o.metrics.ObserveSubmit(req.DeliveryMode.String(), req.PaymentMethod.String(), metrics.OutcomeSuccess, elapsed)
	o.logg.Info(o.logg.WithOrderCode(ctx, order.Code), "order submitted")
	return order, nil
}

func (o *Orchestrator) fail(ctx context.Context, req orders.Request, elapsed time.Duration, err error) {
	o.mu.Lock()
	o.notice = noticeSubmitFailed
	o.mu.Unlock()
	o.metrics.ObserveSubmit(req.DeliveryMode.String(), req.PaymentMethod.String(), metrics.OutcomeFailure, elapsed)
	o.logg.Error(ctx, "order submission failed", err)
}

// PointsPreview estimates the loyalty points for the amount due. It reports
// zero when no club is configured or the lookup fails.
func (o *Orchestrator) PointsPreview(ctx context.Context) PointsPreview {
	if o.club == nil {
		return PointsPreview{}
	}
	cfg, err := o.club.GetClubConfig(ctx)
	if err != nil {
		o.logg.WarnErr(o.logCtx(ctx), "load club config failed", err)
		return PointsPreview{}
	}
	return PointsPreview{ClubName: cfg.ClubName, Points: PointsFor(o.Due(), cfg.PointsPerCurrencyUnit)}
}

func (o *Orchestrator) logCtx(ctx context.Context) context.Context {
	ctx = o.logg.WithClientID(ctx, o.clientID)
	if o.sessionID != "" {
		ctx = o.logg.WithSessionID(ctx, o.sessionID)
	}
	return ctx
}

// View is the checkout snapshot exposed to callers.
type View struct {
	State      State           `json:"state"`
	Total      decimal.Decimal `json:"total"`
	AmountDue  decimal.Decimal `json:"amount_due"`
	ChangeDue  decimal.Decimal `json:"change_due"`
	CanSubmit  bool            `json:"can_submit"`
	Submitting bool            `json:"submitting"`
	Notice     string          `json:"notice,omitempty"`
	Order      *orders.Order   `json:"order,omitempty"`
}

func (o *Orchestrator) View() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	due := o.dueLocked()
	v := View{
		State:      o.state.clone(),
		Total:      pricing.Round(o.cart.Total()),
		AmountDue:  due,
		ChangeDue:  decimal.Zero,
		CanSubmit:  !o.submitting && !o.cart.IsEmpty() && CanSubmit(o.state, due),
		Submitting: o.submitting,
		Notice:     o.notice,
	}
	if o.state.ChangeFor.Valid && o.state.ChangeFor.Decimal.GreaterThan(due) {
		v.ChangeDue = o.state.ChangeFor.Decimal.Sub(due)
	}
	if o.order != nil {
		order := *o.order
		v.Order = &order
		v.Total = order.Total
		v.AmountDue = order.Total.Add(order.DeliveryFee)
	}
	return v
}
