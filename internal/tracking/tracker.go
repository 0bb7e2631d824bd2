package tracking

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-engine/internal/orders"
	"github.com/angelmondragon/storefront-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
	"github.com/angelmondragon/storefront-engine/pkg/metrics"
)

// DefaultPollInterval is the cadence of status polls.
const DefaultPollInterval = 5 * time.Second

// StatusReader fetches the latest view of an order.
type StatusReader interface {
	GetOrderStatus(ctx context.Context, orderID string) (orders.Order, error)
}

// Listener receives a snapshot after every successful poll. Listeners run on
// the poll goroutine and must not call Stop.
type Listener func(Snapshot)

// Params configure a Tracker.
type Params struct {
	Reader        StatusReader
	Logger        *logger.Logger
	Metrics       *metrics.TrackingMetrics
	Interval      time.Duration
	PickupAddress string
}

// Tracker polls one order and republishes its normalized progress.
type Tracker struct {
	reader        StatusReader
	logg          *logger.Logger
	metrics       *metrics.TrackingMetrics
	interval      time.Duration
	pickupAddress string
	orderID       string
	mode          enums.DeliveryMode

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners map[int]Listener
	nextID    int

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTracker tracks order, whose mode selects the stage sequence.
func NewTracker(order orders.Order, params Params) (*Tracker, error) {
	if params.Reader == nil {
		return nil, fmt.Errorf("order status reader required")
	}
	id := strings.TrimSpace(order.TrackingID())
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required for tracking")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	mode := ModeFor(order)
	return &Tracker{
		reader:        params.Reader,
		logg:          logg,
		metrics:       params.Metrics,
		interval:      interval,
		pickupAddress: params.PickupAddress,
		orderID:       id,
		mode:          mode,
		snapshot:      BuildSnapshot(order, mode, params.PickupAddress, time.Now()),
		listeners:     map[int]Listener{},
	}, nil
}

func (t *Tracker) OrderID() string {
	return t.orderID
}

func (t *Tracker) Mode() enums.DeliveryMode {
	return t.mode
}

// Snapshot returns the latest published progress.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot
}

// Subscribe registers fn and returns a func that removes it.
func (t *Tracker) Subscribe(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

// Running reports whether the poll loop is active.
func (t *Tracker) Running() bool {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	return t.done != nil
}

// Start fetches immediately and then on every interval until Stop is called
// or ctx is canceled.
func (t *Tracker) Start(ctx context.Context) error {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	if t.done != nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "tracker already running")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = t.logg.WithOrderCode(ctx, t.Snapshot().Code)
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done
	t.metrics.PollerStarted()
	go t.run(loopCtx, done)
	return nil
}

// Stop cancels the loop and waits for it to exit, so no poll lands afterwards.
func (t *Tracker) Stop() {
	t.runMu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (t *Tracker) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer t.metrics.PollerStopped()

	t.tick(ctx)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

func (t *Tracker) tick(ctx context.Context) {
	if err := t.Poll(ctx); err != nil && ctx.Err() == nil {
		t.logg.WarnErr(ctx, "order status poll failed", err)
	}
}

// Poll fetches the order once. On success the held order is replaced and
// listeners are notified; on failure the previous snapshot is kept.
func (t *Tracker) Poll(ctx context.Context) error {
	start := time.Now()
	order, err := t.reader.GetOrderStatus(ctx, t.orderID)
	t.metrics.ObservePoll(t.mode.String(), time.Since(start), err)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(order.ID) == "" {
		order.ID = t.orderID
	}

	snap := BuildSnapshot(order, t.mode, t.pickupAddress, time.Now())
	t.mu.Lock()
	previous := t.snapshot.Stage
	t.snapshot = snap
	listeners := make([]Listener, 0, len(t.listeners))
	for _, fn := range t.listeners {
		listeners = append(listeners, fn)
	}
	t.mu.Unlock()

	if snap.Stage != previous {
		t.metrics.IncStage(t.mode.String(), snap.Stage.String())
		t.logg.Info(t.logg.WithField(ctx, "stage", snap.Stage.String()), "order stage changed")
	}
	for _, fn := range listeners {
		fn(snap)
	}
	return nil
}
