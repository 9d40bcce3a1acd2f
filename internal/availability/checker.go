package availability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pal-lokesh/festiva-commerce/pkg/api"
	"github.com/pal-lokesh/festiva-commerce/pkg/config"
	"github.com/pal-lokesh/festiva-commerce/pkg/enums"
	pkgerrors "github.com/pal-lokesh/festiva-commerce/pkg/errors"
	"github.com/pal-lokesh/festiva-commerce/pkg/logger"
	"github.com/pal-lokesh/festiva-commerce/pkg/metrics"
	"github.com/sony/gobreaker/v2"
)

// QtyUnknown marks the available quantity before the first completed check.
const QtyUnknown = -1

// Phase is the booking dialog's position in the availability flow.
type Phase string

const (
	PhaseNoDateSelected       Phase = "no_date_selected"
	PhaseChecking             Phase = "checking"
	PhaseAvailable            Phase = "available"
	PhaseUnavailable          Phase = "unavailable"
	PhaseSubscriptionChecking Phase = "subscription_checking"
	PhaseNotSubscribed        Phase = "not_subscribed"
	PhaseAlreadySubscribed    Phase = "already_subscribed"
)

// State is a point-in-time copy of the dialog's availability state.
type State struct {
	Phase        Phase
	SelectedDate string
	AvailableQty int
	LastError    error
}

type stockAPI interface {
	CheckAvailability(ctx context.Context, query api.AvailabilityQuery) (int, error)
	IsSubscribed(ctx context.Context, sub api.RestockSubscription) (bool, error)
	SubscribeRestock(ctx context.Context, sub api.RestockSubscription) error
}

// Checker drives the availability state machine for one open booking
// dialog. Date selections are debounced; only the most recent selection
// within the debounce window triggers a remote check, and results from
// stale selections are dropped.
type Checker struct {
	mu      sync.Mutex
	stock   stockAPI
	breaker *gobreaker.CircuitBreaker[int]
	logg    *logger.Logger
	metrics *metrics.ClientMetrics
	cfg     config.AvailabilityConfig

	userID   uuid.UUID
	itemID   string
	itemType enums.ItemType

	debounce   *time.Timer
	generation uint64
	closed     bool
	state      State
	onChange   func(State)
}

// Params configure one availability checker.
type Params struct {
	Stock    stockAPI
	Logger   *logger.Logger
	Metrics  *metrics.ClientMetrics
	Config   config.AvailabilityConfig
	UserID   uuid.UUID
	ItemID   string
	ItemType enums.ItemType
	// OnChange, when set, observes every state transition. It is invoked
	// without the checker lock held.
	OnChange func(State)
}

// NewChecker builds a checker for one item's booking dialog.
func NewChecker(params Params) (*Checker, error) {
	if params.Stock == nil {
		return nil, fmt.Errorf("stock api required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.ItemID == "" || !params.ItemType.IsValid() {
		return nil, fmt.Errorf("item identity required")
	}
	cfg := params.Config
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 500 * time.Millisecond
	}

	breaker := gobreaker.NewCircuitBreaker[int](gobreaker.Settings{
		Name:        "availability:" + params.ItemID,
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
	})

	return &Checker{
		stock:    params.Stock,
		breaker:  breaker,
		logg:     params.Logger,
		metrics:  params.Metrics,
		cfg:      cfg,
		userID:   params.UserID,
		itemID:   params.ItemID,
		itemType: params.ItemType,
		state:    State{Phase: PhaseNoDateSelected, AvailableQty: QtyUnknown},
		onChange: params.OnChange,
	}, nil
}

// State returns the current dialog state.
func (c *Checker) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SelectDate records a candidate booking date and restarts the debounce
// window. Rapid re-selection coalesces into a single remote check for the
// last-selected date.
func (c *Checker) SelectDate(ctx context.Context, date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid booking date")
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeConflict, "booking dialog is closed")
	}
	c.generation++
	generation := c.generation
	// A new selection invalidates whatever the previous date's check
	// concluded; the dialog is checking again until this date's result
	// lands, so Confirm and AcceptSubscribe refuse in the meantime.
	c.state = State{Phase: PhaseChecking, SelectedDate: date, AvailableQty: QtyUnknown}
	if c.debounce != nil {
		c.debounce.Stop()
	}
	c.debounce = time.AfterFunc(c.cfg.DebounceDelay, func() {
		c.beginCheck(ctx, generation, date)
	})
	c.mu.Unlock()

	c.notify()
	return nil
}

// beginCheck fires once the debounce window elapses without a newer
// selection.
func (c *Checker) beginCheck(ctx context.Context, generation uint64, date string) {
	c.mu.Lock()
	if c.closed || generation != c.generation {
		c.mu.Unlock()
		return
	}
	c.state = State{Phase: PhaseChecking, SelectedDate: date, AvailableQty: QtyUnknown}
	c.mu.Unlock()
	c.notify()

	qty, err := c.breaker.Execute(func() (int, error) {
		return c.stock.CheckAvailability(ctx, api.AvailabilityQuery{
			ItemID:   c.itemID,
			ItemType: c.itemType,
			Date:     date,
		})
	})

	c.mu.Lock()
	if c.closed || generation != c.generation {
		c.mu.Unlock()
		return
	}
	if err != nil {
		// Fail closed: an unreachable stock service reads as unavailable,
		// with a retryable error for the dialog to surface.
		itemCtx := c.logg.WithItem(ctx, c.itemID, c.itemType.String())
		c.logg.Error(itemCtx, "availability lookup failed", err)
		c.metrics.IncAvailabilityCheck("error")
		c.state = State{
			Phase:        PhaseUnavailable,
			SelectedDate: date,
			AvailableQty: QtyUnknown,
			LastError:    pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not verify availability, please retry"),
		}
		c.mu.Unlock()
		c.notify()
		return
	}

	if qty > 0 {
		c.metrics.IncAvailabilityCheck("available")
		c.state = State{Phase: PhaseAvailable, SelectedDate: date, AvailableQty: qty}
		c.mu.Unlock()
		c.notify()
		return
	}

	c.metrics.IncAvailabilityCheck("unavailable")
	c.state = State{Phase: PhaseSubscriptionChecking, SelectedDate: date, AvailableQty: 0}
	c.mu.Unlock()
	c.notify()

	c.resolveSubscription(ctx, generation, date)
}

// resolveSubscription follows a zero-stock result with a subscription
// status check. Lookup failures are non-fatal and read as not subscribed.
func (c *Checker) resolveSubscription(ctx context.Context, generation uint64, date string) {
	subscribed, err := c.stock.IsSubscribed(ctx, c.subscription(date))
	if err != nil {
		itemCtx := c.logg.WithItem(ctx, c.itemID, c.itemType.String())
		c.logg.Warn(itemCtx, "subscription status lookup failed, assuming not subscribed")
		subscribed = false
	}

	c.mu.Lock()
	if c.closed || generation != c.generation {
		c.mu.Unlock()
		return
	}
	phase := PhaseNotSubscribed
	if subscribed {
		phase = PhaseAlreadySubscribed
	}
	c.state = State{Phase: phase, SelectedDate: date, AvailableQty: 0}
	c.mu.Unlock()
	c.notify()
}

// ConfirmOutcome tells the dialog what Confirm decided.
type ConfirmOutcome struct {
	// BookedDate is set, and CloseDialog true, when the date was available.
	BookedDate string
	// CloseDialog closes the booking dialog.
	CloseDialog bool
	// PromptSubscribe asks the user whether to subscribe to a restock
	// notification for the selected date.
	PromptSubscribe bool
}

// Confirm resolves the primary dialog action for the current phase.
func (c *Checker) Confirm() (ConfirmOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ConfirmOutcome{}, pkgerrors.New(pkgerrors.CodeConflict, "booking dialog is closed")
	}

	switch c.state.Phase {
	case PhaseAvailable:
		c.closed = true
		c.stopDebounceLocked()
		return ConfirmOutcome{BookedDate: c.state.SelectedDate, CloseDialog: true}, nil
	case PhaseNotSubscribed:
		return ConfirmOutcome{PromptSubscribe: true}, nil
	case PhaseAlreadySubscribed:
		// Display state only; nothing to do.
		return ConfirmOutcome{}, nil
	case PhaseNoDateSelected:
		return ConfirmOutcome{}, pkgerrors.New(pkgerrors.CodeValidation, "select a booking date first")
	default:
		return ConfirmOutcome{}, pkgerrors.New(pkgerrors.CodeConflict, "availability check still in progress")
	}
}

// AcceptSubscribe creates the restock subscription after the user accepts
// the prompt. A fresh subscribed-check guards against a concurrent
// duplicate; subscribing twice for the same item+type+date never creates a
// second subscription. The dialog closes after a short delay so the
// confirmation is visible.
func (c *Checker) AcceptSubscribe(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeConflict, "booking dialog is closed")
	}
	if c.state.Phase != PhaseNotSubscribed {
		c.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeConflict, "no subscription prompt is active")
	}
	date := c.state.SelectedDate
	generation := c.generation
	c.mu.Unlock()

	already, err := c.stock.IsSubscribed(ctx, c.subscription(date))
	if err != nil {
		already = false
	}
	if !already {
		if err := c.stock.SubscribeRestock(ctx, c.subscription(date)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "could not create restock subscription")
		}
	}

	c.mu.Lock()
	if c.closed || generation != c.generation {
		c.mu.Unlock()
		return nil
	}
	c.state = State{Phase: PhaseAlreadySubscribed, SelectedDate: date, AvailableQty: 0}
	c.mu.Unlock()
	c.notify()

	if c.cfg.SubscribeCloseWait > 0 {
		time.AfterFunc(c.cfg.SubscribeCloseWait, c.Close)
	} else {
		c.Close()
	}
	return nil
}

// DeclineSubscribe dismisses the prompt and leaves the dialog open so
// another date can be tried.
func (c *Checker) DeclineSubscribe() {
	c.mu.Lock()
	defer c.mu.Unlock()
	// The dialog stays in its unavailable/not-subscribed state.
}

// Close tears the dialog down. In-flight checks finish but their results
// are no longer applied.
func (c *Checker) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopDebounceLocked()
	c.mu.Unlock()
}

// Closed reports whether the dialog has been torn down.
func (c *Checker) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Checker) subscription(date string) api.RestockSubscription {
	return api.RestockSubscription{
		UserID:   c.userID,
		ItemID:   c.itemID,
		ItemType: c.itemType,
		Date:     date,
	}
}

func (c *Checker) stopDebounceLocked() {
	if c.debounce != nil {
		c.debounce.Stop()
		c.debounce = nil
	}
}

func (c *Checker) notify() {
	if c.onChange == nil {
		return
	}
	c.onChange(c.State())
}
