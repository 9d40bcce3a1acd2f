package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pal-lokesh/festiva-commerce/internal/availability"
	"github.com/pal-lokesh/festiva-commerce/internal/cart"
	"github.com/pal-lokesh/festiva-commerce/internal/checkout"
	"github.com/pal-lokesh/festiva-commerce/internal/notifications"
	"github.com/pal-lokesh/festiva-commerce/pkg/api"
	"github.com/pal-lokesh/festiva-commerce/pkg/config"
	"github.com/pal-lokesh/festiva-commerce/pkg/enums"
	pkgerrors "github.com/pal-lokesh/festiva-commerce/pkg/errors"
	"github.com/pal-lokesh/festiva-commerce/pkg/logger"
	"github.com/pal-lokesh/festiva-commerce/pkg/metrics"
)

// Session owns every per-login service: the cart store, the checkout
// service, and one notification reconciler per feed kind. It is constructed
// on login and torn down on logout; nothing in it is process-global.
type Session struct {
	userID  uuid.UUID
	client  *api.Client
	cartSt  *cart.Store
	chkout  *checkout.Service
	orders  *notifications.Reconciler
	restock *notifications.Reconciler

	logg    *logger.Logger
	metrics *metrics.ClientMetrics
	cfg     *config.Config
	token   string

	mu           sync.Mutex
	cancel       context.CancelFunc
	closed       bool
	onInvalidate func()
}

// Params configure a session.
type Params struct {
	Config  *config.Config
	Logger  *logger.Logger
	Metrics *metrics.ClientMetrics
	UserID  uuid.UUID
	Token   string
	// OnInvalidate fires when the server rejects the bearer token (401)
	// or Close is called, so the caller can force re-authentication.
	OnInvalidate func()
}

// New wires a session's services from the authenticated identity.
func New(params Params) (*Session, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id required")
	}
	if params.Token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "bearer token required")
	}

	s := &Session{
		userID:       params.UserID,
		logg:         params.Logger,
		metrics:      params.Metrics,
		cfg:          params.Config,
		token:        params.Token,
		onInvalidate: params.OnInvalidate,
	}

	client, err := api.NewClient(
		params.Config.API.BaseURL,
		api.StaticToken(params.Token),
		api.WithTimeout(params.Config.API.HTTPTimeout),
		api.WithUnauthorizedHook(s.invalidate),
	)
	if err != nil {
		return nil, fmt.Errorf("build api client: %w", err)
	}
	s.client = client

	s.cartSt = cart.NewStore()

	s.chkout, err = checkout.NewService(checkout.Params{
		Orders:  client,
		Cart:    s.cartSt,
		Logger:  params.Logger,
		Metrics: params.Metrics,
		Config:  params.Config.Checkout,
	})
	if err != nil {
		return nil, fmt.Errorf("build checkout service: %w", err)
	}

	s.orders, err = notifications.NewReconciler(notifications.Params{
		Feed:    client,
		Logger:  params.Logger,
		Metrics: params.Metrics,
		Config:  params.Config.Notifications,
		UserID:  params.UserID,
		Kind:    enums.NotificationKindOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("build order reconciler: %w", err)
	}

	s.restock, err = notifications.NewReconciler(notifications.Params{
		Feed:    client,
		Logger:  params.Logger,
		Metrics: params.Metrics,
		Config:  params.Config.Notifications,
		UserID:  params.UserID,
		Kind:    enums.NotificationKindRestock,
	})
	if err != nil {
		return nil, fmt.Errorf("build restock reconciler: %w", err)
	}

	return s, nil
}

// Start launches the notification pollers. They stop when Close is called
// or the parent context is canceled.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go func() { _ = s.orders.Run(runCtx) }()
	go func() { _ = s.restock.Run(runCtx) }()
}

// UserID returns the authenticated user's identifier.
func (s *Session) UserID() uuid.UUID { return s.userID }

// Client exposes the API client for callers outside the wired services.
func (s *Session) Client() *api.Client { return s.client }

// Cart returns the session's cart store.
func (s *Session) Cart() *cart.Store { return s.cartSt }

// Checkout returns the session's checkout service.
func (s *Session) Checkout() *checkout.Service { return s.chkout }

// OrderNotifications returns the order-feed reconciler.
func (s *Session) OrderNotifications() *notifications.Reconciler { return s.orders }

// RestockNotifications returns the restock-feed reconciler.
func (s *Session) RestockNotifications() *notifications.Reconciler { return s.restock }

// NewAvailabilityChecker opens one booking-date dialog for an item.
func (s *Session) NewAvailabilityChecker(itemID string, itemType enums.ItemType, onChange func(availability.State)) (*availability.Checker, error) {
	return availability.NewChecker(availability.Params{
		Stock:    s.client,
		Logger:   s.logg,
		Metrics:  s.metrics,
		Config:   s.cfg.Availability,
		UserID:   s.userID,
		ItemID:   itemID,
		ItemType: itemType,
		OnChange: onChange,
	})
}

// TokenExpiry reads the bearer token's exp claim without verifying the
// signature; verification belongs to the server.
func (s *Session) TokenExpiry() (time.Time, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(s.token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "parse bearer token")
	}
	expiry, err := parsed.Claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "bearer token has no expiry claim")
	}
	return expiry.Time, nil
}

// Close tears the session down: pollers stop and the invalidation hook
// fires once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	hook := s.onInvalidate
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// Closed reports whether the session has been torn down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// invalidate handles a 401 from any remote call.
func (s *Session) invalidate() {
	s.logg.Warn(context.Background(), "session invalidated by server, re-authentication required")
	s.Close()
}
