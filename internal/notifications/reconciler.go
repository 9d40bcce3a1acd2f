package notifications

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
	"github.com/pal-lokesh/festiva-commerce/pkg/optimistic"
	"github.com/sethvargo/go-retry"
)

type feedAPI interface {
	FetchNotifications(ctx context.Context, userID uuid.UUID, kind enums.NotificationKind) (*api.NotificationFeed, error)
	MarkNotificationRead(ctx context.Context, notificationID uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID, kind enums.NotificationKind) error
}

// Reconciler keeps one notification feed consistent between the optimistic
// local view and the remote store. It polls the feed on a fixed interval
// and merges each result against the pending-read set, so a mark-as-read
// that has not yet landed server-side is never reverted by a stale poll.
type Reconciler struct {
	mu      sync.Mutex
	feed    feedAPI
	logg    *logger.Logger
	metrics *metrics.ClientMetrics
	cfg     config.NotificationsConfig
	userID  uuid.UUID
	kind    enums.NotificationKind

	records []api.Notification
	unread  int
	pending *optimistic.Pending[uuid.UUID]
	pollNow chan struct{}
}

// Params configure a reconciler for one notification feed.
type Params struct {
	Feed    feedAPI
	Logger  *logger.Logger
	Metrics *metrics.ClientMetrics
	Config  config.NotificationsConfig
	UserID  uuid.UUID
	Kind    enums.NotificationKind
}

// NewReconciler builds a reconciler for one user's feed of a given kind.
func NewReconciler(params Params) (*Reconciler, error) {
	if params.Feed == nil {
		return nil, fmt.Errorf("notification api required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.UserID == uuid.Nil {
		return nil, fmt.Errorf("user id required")
	}
	if !params.Kind.IsValid() {
		return nil, fmt.Errorf("notification kind required")
	}
	return &Reconciler{
		feed:    params.Feed,
		logg:    params.Logger,
		metrics: params.Metrics,
		cfg:     params.Config,
		userID:  params.UserID,
		kind:    params.Kind,
		pending: optimistic.NewPending[uuid.UUID](),
		pollNow: make(chan struct{}, 1),
	}, nil
}

// interval returns the polling cadence for this feed's kind.
func (r *Reconciler) interval() time.Duration {
	switch r.kind {
	case enums.NotificationKindRestock:
		if r.cfg.RestockPollInterval > 0 {
			return r.cfg.RestockPollInterval
		}
		return 30 * time.Second
	default:
		if r.cfg.OrderPollInterval > 0 {
			return r.cfg.OrderPollInterval
		}
		return 10 * time.Second
	}
}

// Run polls until the context is canceled. It polls once immediately, then
// on every tick, and additionally whenever a follow-up poll is requested.
func (r *Reconciler) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := r.Poll(ctx); err != nil {
		r.logg.Error(ctx, "notification poll failed", err)
	}
	ticker := time.NewTicker(r.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logg.Info(ctx, "notification reconciler stopped")
			return ctx.Err()
		case <-ticker.C:
		case <-r.pollNow:
		}
		if err := r.Poll(ctx); err != nil {
			r.logg.Error(ctx, "notification poll failed", err)
		}
	}
}

// Poll fetches the remote feed, retrying transient failures with backoff,
// and merges the result into the local view.
func (r *Reconciler) Poll(ctx context.Context) error {
	start := time.Now()
	kindLabel := string(r.kind)

	var feed *api.NotificationFeed
	backoff := retry.WithMaxRetries(r.cfg.FetchMaxRetries, retry.NewExponential(r.fetchRetryBase()))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var fetchErr error
		feed, fetchErr = r.feed.FetchNotifications(ctx, r.userID, r.kind)
		if fetchErr == nil {
			return nil
		}
		if pkgerrors.IsCode(fetchErr, pkgerrors.CodeUnauthorized) {
			return fetchErr
		}
		return retry.RetryableError(fetchErr)
	})
	r.metrics.ObservePollDuration(kindLabel, time.Since(start))
	if err != nil {
		r.metrics.IncPollFailure(kindLabel)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch notification feed")
	}
	r.metrics.IncPollSuccess(kindLabel)

	r.merge(feed.Notifications)
	return nil
}

// merge applies the reconciliation rule to a polled snapshot: a record in
// the pending-read set that is read locally but still unread on the server
// keeps its local read state (the write has not propagated yet); everything
// else takes the server's value. Once the server reports a pending record
// read, the pending entry retires. The unread count is recomputed from the
// merged records, never taken from the server's count.
func (r *Reconciler) merge(remote []api.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()

	localRead := make(map[uuid.UUID]bool, len(r.records))
	for _, record := range r.records {
		localRead[record.ID] = record.IsRead
	}

	merged := make([]api.Notification, len(remote))
	seen := make(map[uuid.UUID]struct{}, len(remote))
	unread := 0
	for i, record := range remote {
		merged[i] = record
		seen[record.ID] = struct{}{}
		if r.pending.Contains(record.ID) {
			if record.IsRead {
				r.pending.Unmark(record.ID)
			} else if localRead[record.ID] {
				merged[i].IsRead = true
			}
		}
		if !merged[i].IsRead {
			unread++
		}
	}

	// A pending id the server stopped returning has nothing left to
	// confirm; retire it so it does not linger forever.
	for _, id := range r.pending.Keys() {
		if _, ok := seen[id]; !ok {
			r.pending.Unmark(id)
		}
	}

	r.records = merged
	r.unread = unread
}

// Records returns a copy of the merged notification view.
func (r *Reconciler) Records() []api.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.Notification(nil), r.records...)
}

// UnreadCount is derived from the merged records on every merge.
func (r *Reconciler) UnreadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unread
}

// IsPendingSync reports whether a notification has a mark-read write that
// the server has not confirmed yet.
func (r *Reconciler) IsPendingSync(notificationID uuid.UUID) bool {
	return r.pending.Contains(notificationID)
}

// MarkAsRead optimistically flips the notification locally, then sends the
// write. A follow-up poll is scheduled after a delay long enough for the
// write to land; on write failure the optimistic entry is rolled back and
// an immediate poll restores ground truth.
func (r *Reconciler) MarkAsRead(ctx context.Context, notificationID uuid.UUID) error {
	r.mu.Lock()
	idx := -1
	for i, record := range r.records {
		if record.ID == notificationID {
			idx = i
			break
		}
	}
	if idx == -1 {
		r.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	if r.records[idx].IsRead {
		r.mu.Unlock()
		return nil
	}
	r.pending.Mark(notificationID)
	r.records[idx].IsRead = true
	r.unread--
	r.mu.Unlock()

	if err := r.feed.MarkNotificationRead(ctx, notificationID); err != nil {
		r.pending.Unmark(notificationID)
		if pollErr := r.Poll(ctx); pollErr != nil {
			r.logg.Error(ctx, "rollback poll failed", pollErr)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}

	r.schedulePoll(r.readConfirmDelay())
	return nil
}

// MarkAllAsRead optimistically clears the counter, issues one bulk write,
// and re-polls regardless of outcome; the re-poll's result is
// authoritative.
func (r *Reconciler) MarkAllAsRead(ctx context.Context) error {
	r.mu.Lock()
	for i := range r.records {
		r.records[i].IsRead = true
	}
	r.unread = 0
	r.mu.Unlock()

	writeErr := r.feed.MarkAllNotificationsRead(ctx, r.userID, r.kind)
	if pollErr := r.Poll(ctx); pollErr != nil {
		r.logg.Error(ctx, "resync poll failed", pollErr)
	}
	if writeErr != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, writeErr, "mark all notifications read")
	}
	return nil
}

// schedulePoll nudges the running poll loop after the delay. The nudge is
// dropped when no loop is consuming it.
func (r *Reconciler) schedulePoll(delay time.Duration) {
	time.AfterFunc(delay, func() {
		select {
		case r.pollNow <- struct{}{}:
		default:
		}
	})
}

func (r *Reconciler) readConfirmDelay() time.Duration {
	if r.cfg.ReadConfirmDelay > 0 {
		return r.cfg.ReadConfirmDelay
	}
	return 15 * time.Second
}

func (r *Reconciler) fetchRetryBase() time.Duration {
	if r.cfg.FetchRetryBase > 0 {
		return r.cfg.FetchRetryBase
	}
	return 500 * time.Millisecond
}
