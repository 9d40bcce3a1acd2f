package availability

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pal-lokesh/festiva-commerce/pkg/api"
	"github.com/pal-lokesh/festiva-commerce/pkg/config"
	"github.com/pal-lokesh/festiva-commerce/pkg/enums"
	pkgerrors "github.com/pal-lokesh/festiva-commerce/pkg/errors"
	"github.com/pal-lokesh/festiva-commerce/pkg/logger"
)

type fakeStockAPI struct {
	mu              sync.Mutex
	checkDates      []string
	checkFn         func(query api.AvailabilityQuery) (int, error)
	isSubscribedFn  func(sub api.RestockSubscription) (bool, error)
	subscribeCalls  int
	subscribeFn     func(sub api.RestockSubscription) error
	subscribedCalls int
}

func (f *fakeStockAPI) CheckAvailability(ctx context.Context, query api.AvailabilityQuery) (int, error) {
	f.mu.Lock()
	f.checkDates = append(f.checkDates, query.Date)
	f.mu.Unlock()
	if f.checkFn != nil {
		return f.checkFn(query)
	}
	return 3, nil
}

func (f *fakeStockAPI) IsSubscribed(ctx context.Context, sub api.RestockSubscription) (bool, error) {
	f.mu.Lock()
	f.subscribedCalls++
	f.mu.Unlock()
	if f.isSubscribedFn != nil {
		return f.isSubscribedFn(sub)
	}
	return false, nil
}

func (f *fakeStockAPI) SubscribeRestock(ctx context.Context, sub api.RestockSubscription) error {
	f.mu.Lock()
	f.subscribeCalls++
	f.mu.Unlock()
	if f.subscribeFn != nil {
		return f.subscribeFn(sub)
	}
	return nil
}

func (f *fakeStockAPI) dates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.checkDates...)
}

func testConfig() config.AvailabilityConfig {
	return config.AvailabilityConfig{
		DebounceDelay:      25 * time.Millisecond,
		SubscribeCloseWait: 0,
	}
}

func newTestChecker(t *testing.T, stock *fakeStockAPI, cfg config.AvailabilityConfig) *Checker {
	t.Helper()
	checker, err := NewChecker(Params{
		Stock:    stock,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: &strings.Builder{}}),
		Config:   cfg,
		UserID:   uuid.New(),
		ItemID:   "inv-1",
		ItemType: enums.ItemTypeInventory,
	})
	if err != nil {
		t.Fatalf("new checker: %v", err)
	}
	return checker
}

func waitForPhase(t *testing.T, checker *Checker, want Phase) State {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		state := checker.State()
		if state.Phase == want {
			return state
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for phase %s; currently %s", want, checker.State().Phase)
	return State{}
}

func TestDebounceCoalescesRapidSelections(t *testing.T) {
	stock := &fakeStockAPI{}
	checker := newTestChecker(t, stock, testConfig())

	ctx := context.Background()
	for _, date := range []string{"2026-09-10", "2026-09-11", "2026-09-12"} {
		if err := checker.SelectDate(ctx, date); err != nil {
			t.Fatalf("select %s: %v", date, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	waitForPhase(t, checker, PhaseAvailable)

	dates := stock.dates()
	if len(dates) != 1 {
		t.Fatalf("expected exactly one availability check, got %d (%v)", len(dates), dates)
	}
	if dates[0] != "2026-09-12" {
		t.Fatalf("check should target the last-selected date, got %s", dates[0])
	}
}

func TestAvailableFlowConfirmReturnsDate(t *testing.T) {
	stock := &fakeStockAPI{}
	checker := newTestChecker(t, stock, testConfig())

	if err := checker.SelectDate(context.Background(), "2026-09-12"); err != nil {
		t.Fatalf("select date: %v", err)
	}
	state := waitForPhase(t, checker, PhaseAvailable)
	if state.AvailableQty != 3 {
		t.Fatalf("expected quantity 3, got %d", state.AvailableQty)
	}

	outcome, err := checker.Confirm()
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !outcome.CloseDialog || outcome.BookedDate != "2026-09-12" {
		t.Fatalf("expected booked date and close, got %+v", outcome)
	}
	if !checker.Closed() {
		t.Fatal("dialog should be closed after a successful confirm")
	}
}

func TestZeroStockChecksSubscriptionStatus(t *testing.T) {
	stock := &fakeStockAPI{
		checkFn: func(api.AvailabilityQuery) (int, error) { return 0, nil },
	}
	checker := newTestChecker(t, stock, testConfig())

	if err := checker.SelectDate(context.Background(), "2026-09-12"); err != nil {
		t.Fatalf("select date: %v", err)
	}
	state := waitForPhase(t, checker, PhaseNotSubscribed)
	if state.AvailableQty != 0 {
		t.Fatalf("expected zero quantity, got %d", state.AvailableQty)
	}

	outcome, err := checker.Confirm()
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !outcome.PromptSubscribe {
		t.Fatal("expected subscription prompt while unavailable and not subscribed")
	}
	if checker.Closed() {
		t.Fatal("dialog must stay open for the prompt")
	}
}

func TestAcceptSubscribeCreatesSubscriptionOnce(t *testing.T) {
	stock := &fakeStockAPI{
		checkFn: func(api.AvailabilityQuery) (int, error) { return 0, nil },
	}
	checker := newTestChecker(t, stock, testConfig())

	if err := checker.SelectDate(context.Background(), "2026-09-12"); err != nil {
		t.Fatalf("select date: %v", err)
	}
	waitForPhase(t, checker, PhaseNotSubscribed)

	if err := checker.AcceptSubscribe(context.Background()); err != nil {
		t.Fatalf("accept subscribe: %v", err)
	}
	if stock.subscribeCalls != 1 {
		t.Fatalf("expected one subscription, got %d", stock.subscribeCalls)
	}
	if !checker.Closed() {
		t.Fatal("dialog should close after subscribing with no wait configured")
	}
}

func TestAcceptSubscribeSkipsExistingSubscription(t *testing.T) {
	subscribedOnRecheck := false
	stock := &fakeStockAPI{
		checkFn: func(api.AvailabilityQuery) (int, error) { return 0, nil },
	}
	stock.isSubscribedFn = func(api.RestockSubscription) (bool, error) {
		// First call answers the automatic status check; the recheck before
		// subscribing simulates a concurrent duplicate having won the race.
		if subscribedOnRecheck {
			return true, nil
		}
		subscribedOnRecheck = true
		return false, nil
	}
	checker := newTestChecker(t, stock, testConfig())

	if err := checker.SelectDate(context.Background(), "2026-09-12"); err != nil {
		t.Fatalf("select date: %v", err)
	}
	waitForPhase(t, checker, PhaseNotSubscribed)

	if err := checker.AcceptSubscribe(context.Background()); err != nil {
		t.Fatalf("accept subscribe: %v", err)
	}
	if stock.subscribeCalls != 0 {
		t.Fatalf("race guard should prevent a duplicate subscription, got %d calls", stock.subscribeCalls)
	}
}

func TestReselectionInvalidatesPriorResult(t *testing.T) {
	stock := &fakeStockAPI{}
	checker := newTestChecker(t, stock, testConfig())

	ctx := context.Background()
	if err := checker.SelectDate(ctx, "2026-09-10"); err != nil {
		t.Fatalf("select first date: %v", err)
	}
	waitForPhase(t, checker, PhaseAvailable)

	// Picking another date drops back to checking; confirming inside the
	// debounce window must not book the unchecked date.
	if err := checker.SelectDate(ctx, "2026-09-11"); err != nil {
		t.Fatalf("select second date: %v", err)
	}
	if phase := checker.State().Phase; phase != PhaseChecking {
		t.Fatalf("expected checking after re-selection, got %s", phase)
	}
	if _, err := checker.Confirm(); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict while the new date is unverified, got %v", err)
	}

	state := waitForPhase(t, checker, PhaseAvailable)
	if state.SelectedDate != "2026-09-11" {
		t.Fatalf("expected the re-selected date verified, got %s", state.SelectedDate)
	}
	outcome, err := checker.Confirm()
	if err != nil {
		t.Fatalf("confirm after verification: %v", err)
	}
	if outcome.BookedDate != "2026-09-11" {
		t.Fatalf("expected the verified date booked, got %+v", outcome)
	}
}

func TestReselectionCancelsSubscribePrompt(t *testing.T) {
	stock := &fakeStockAPI{
		checkFn: func(api.AvailabilityQuery) (int, error) { return 0, nil },
	}
	checker := newTestChecker(t, stock, testConfig())

	ctx := context.Background()
	if err := checker.SelectDate(ctx, "2026-09-10"); err != nil {
		t.Fatalf("select first date: %v", err)
	}
	waitForPhase(t, checker, PhaseNotSubscribed)

	if err := checker.SelectDate(ctx, "2026-09-11"); err != nil {
		t.Fatalf("select second date: %v", err)
	}
	if err := checker.AcceptSubscribe(ctx); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict accepting a stale prompt, got %v", err)
	}
	if stock.subscribeCalls != 0 {
		t.Fatalf("stale prompt must not subscribe, got %d calls", stock.subscribeCalls)
	}
}

func TestDeclineSubscribeKeepsDialogOpen(t *testing.T) {
	stock := &fakeStockAPI{
		checkFn: func(api.AvailabilityQuery) (int, error) { return 0, nil },
	}
	checker := newTestChecker(t, stock, testConfig())

	if err := checker.SelectDate(context.Background(), "2026-09-12"); err != nil {
		t.Fatalf("select date: %v", err)
	}
	waitForPhase(t, checker, PhaseNotSubscribed)

	checker.DeclineSubscribe()
	if checker.Closed() {
		t.Fatal("declining the prompt must keep the dialog open")
	}
	// Another date can still be tried.
	if err := checker.SelectDate(context.Background(), "2026-09-13"); err != nil {
		t.Fatalf("re-select after decline: %v", err)
	}
}

func TestLookupFailureFailsClosed(t *testing.T) {
	stock := &fakeStockAPI{
		checkFn: func(api.AvailabilityQuery) (int, error) {
			return 0, pkgerrors.New(pkgerrors.CodeDependency, "stock service down")
		},
	}
	checker := newTestChecker(t, stock, testConfig())

	if err := checker.SelectDate(context.Background(), "2026-09-12"); err != nil {
		t.Fatalf("select date: %v", err)
	}
	state := waitForPhase(t, checker, PhaseUnavailable)
	if state.LastError == nil {
		t.Fatal("expected a retryable error to surface")
	}
	if !pkgerrors.IsCode(state.LastError, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", state.LastError)
	}
	if stock.subscribedCalls != 0 {
		t.Fatal("lookup failure must not trigger a subscription check")
	}
}

func TestStaleResultIsDropped(t *testing.T) {
	release := make(chan struct{})
	var firstCall sync.Once
	stock := &fakeStockAPI{}
	stock.checkFn = func(query api.AvailabilityQuery) (int, error) {
		blocked := false
		firstCall.Do(func() { blocked = true })
		if blocked {
			<-release
			return 9, nil
		}
		return 2, nil
	}
	cfg := testConfig()
	cfg.DebounceDelay = 5 * time.Millisecond
	checker := newTestChecker(t, stock, cfg)

	ctx := context.Background()
	if err := checker.SelectDate(ctx, "2026-09-10"); err != nil {
		t.Fatalf("select first date: %v", err)
	}
	// Let the first check start and block inside the fake.
	time.Sleep(30 * time.Millisecond)

	if err := checker.SelectDate(ctx, "2026-09-11"); err != nil {
		t.Fatalf("select second date: %v", err)
	}
	state := waitForPhase(t, checker, PhaseAvailable)
	close(release)
	time.Sleep(30 * time.Millisecond)

	state = checker.State()
	if state.SelectedDate != "2026-09-11" || state.AvailableQty != 2 {
		t.Fatalf("stale result applied: %+v", state)
	}
}

func TestCloseStopsResultApplication(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	stock := &fakeStockAPI{
		checkFn: func(api.AvailabilityQuery) (int, error) {
			close(started)
			<-release
			return 5, nil
		},
	}
	cfg := testConfig()
	cfg.DebounceDelay = 5 * time.Millisecond
	checker := newTestChecker(t, stock, cfg)

	if err := checker.SelectDate(context.Background(), "2026-09-12"); err != nil {
		t.Fatalf("select date: %v", err)
	}
	<-started
	checker.Close()
	close(release)
	time.Sleep(30 * time.Millisecond)

	if phase := checker.State().Phase; phase == PhaseAvailable {
		t.Fatal("closed dialog must not apply in-flight results")
	}
}

func TestSelectDateRejectsBadInput(t *testing.T) {
	checker := newTestChecker(t, &fakeStockAPI{}, testConfig())
	if err := checker.SelectDate(context.Background(), "12-09-2026"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	checker.Close()
	if err := checker.SelectDate(context.Background(), "2026-09-12"); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict error after close, got %v", err)
	}
}
