package checkout

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pal-lokesh/festiva-commerce/internal/cart"
	"github.com/pal-lokesh/festiva-commerce/pkg/api"
	"github.com/pal-lokesh/festiva-commerce/pkg/config"
	"github.com/pal-lokesh/festiva-commerce/pkg/enums"
	pkgerrors "github.com/pal-lokesh/festiva-commerce/pkg/errors"
	"github.com/pal-lokesh/festiva-commerce/pkg/logger"
	"github.com/pal-lokesh/festiva-commerce/pkg/metrics"
	"go.uber.org/multierr"
)

// OrderForm carries the customer/delivery fields shared by every vendor
// request in one submission.
type OrderForm struct {
	CustomerName    string `json:"customerName" validate:"required"`
	CustomerEmail   string `json:"customerEmail" validate:"required,email"`
	CustomerPhone   string `json:"customerPhone" validate:"required"`
	DeliveryAddress string `json:"deliveryAddress" validate:"required"`
	DeliveryDate    string `json:"deliveryDate" validate:"required,datetime=2006-01-02"`
	SpecialNotes    string `json:"specialNotes"`
}

type orderAPI interface {
	CreateOrder(ctx context.Context, req api.CreateOrderRequest) (*api.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*api.Order, error)
}

type cartStore interface {
	Snapshot() cart.Snapshot
	Clear()
	RemoveVendorItems(vendorID uuid.UUID)
}

// Service splits the cart by vendor and submits one order per partition.
type Service struct {
	orders   orderAPI
	cart     cartStore
	logg     *logger.Logger
	metrics  *metrics.ClientMetrics
	cfg      config.CheckoutConfig
	validate *validator.Validate
}

// Params configure the checkout service.
type Params struct {
	Orders  orderAPI
	Cart    cartStore
	Logger  *logger.Logger
	Metrics *metrics.ClientMetrics
	Config  config.CheckoutConfig
}

// NewService builds the checkout service.
func NewService(params Params) (*Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("order api required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		orders:   params.Orders,
		cart:     params.Cart,
		logg:     params.Logger,
		metrics:  params.Metrics,
		cfg:      params.Config,
		validate: newFormValidator(),
	}, nil
}

// vendorOutcome is one partition's independent submission result.
type vendorOutcome struct {
	partition VendorPartition
	order     *api.Order
	err       error
}

// Submit validates the form, partitions the cart by vendor, issues every
// vendor request concurrently, and waits for all outcomes before deciding.
// At least one created order counts as success; the created orders are
// returned and the succeeded partitions are removed from the cart. Only
// when every partition fails does Submit return an error, enumerating each
// vendor with its failure reason.
func (s *Service) Submit(ctx context.Context, userID uuid.UUID, form OrderForm) ([]api.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user must be signed in to place an order")
	}
	if err := s.validateForm(form); err != nil {
		return nil, err
	}

	snapshot := s.cart.Snapshot()
	if len(snapshot.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	partitions := SplitByVendor(snapshot.Items)

	// The whole fan-out shares one deadline; a vendor that never answers
	// fails its own partition instead of hanging the submission.
	submitCtx := ctx
	if s.cfg.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		submitCtx, cancel = context.WithTimeout(ctx, s.cfg.SubmitTimeout)
		defer cancel()
	}
	outcomes := s.submitAll(submitCtx, userID, form, partitions)

	var created []api.Order
	var failed []vendorOutcome
	for _, outcome := range outcomes {
		if outcome.err != nil {
			failed = append(failed, outcome)
			continue
		}
		created = append(created, *outcome.order)
	}

	if len(created) == 0 {
		s.metrics.IncSubmission("failure")
		return nil, allFailedError(failed)
	}

	for _, outcome := range failed {
		vendorCtx := s.logg.WithVendorID(ctx, outcome.partition.VendorID.String())
		s.logg.Error(vendorCtx, "vendor order failed; sibling orders were created", outcome.err)
	}

	s.settleCart(created, failed)

	if len(failed) > 0 {
		s.metrics.IncSubmission("partial")
	} else {
		s.metrics.IncSubmission("success")
	}
	return created, nil
}

// UpdateStatus forwards an order status change to the remote API.
func (s *Service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*api.Order, error) {
	return s.orders.UpdateOrderStatus(ctx, orderID, status)
}

// submitAll fans one goroutine out per partition and joins every outcome.
// A failing partition never cancels its siblings.
func (s *Service) submitAll(ctx context.Context, userID uuid.UUID, form OrderForm, partitions []VendorPartition) []vendorOutcome {
	outcomes := make([]vendorOutcome, len(partitions))
	var wg sync.WaitGroup
	for i, partition := range partitions {
		wg.Add(1)
		go func(slot int, p VendorPartition) {
			defer wg.Done()
			order, err := s.orders.CreateOrder(ctx, buildRequest(userID, form, p))
			outcomes[slot] = vendorOutcome{partition: p, order: order, err: err}
		}(i, partition)
	}
	wg.Wait()
	return outcomes
}

// settleCart removes submitted items. The legacy behavior cleared the whole
// cart whenever anything succeeded, dropping failed vendors' items too; by
// default only succeeded partitions are removed so a failed vendor's items
// stay in the cart for retry.
func (s *Service) settleCart(created []api.Order, failed []vendorOutcome) {
	if len(failed) == 0 || s.cfg.ClearCartOnPartialFailure {
		s.cart.Clear()
		return
	}
	for _, order := range created {
		s.cart.RemoveVendorItems(order.BusinessID)
	}
}

func (s *Service) validateForm(form OrderForm) error {
	err := s.validate.Struct(form)
	if err == nil {
		return nil
	}
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		first := errs[0]
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is %s", first.Field(), reasonFor(first)))
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "order form validation failed")
}

func allFailedError(failed []vendorOutcome) error {
	var errs error
	parts := make([]string, 0, len(failed))
	for _, outcome := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", outcome.partition.VendorName, failureReason(outcome.err)))
		errs = multierr.Append(errs, outcome.err)
	}
	message := "all vendor orders failed - " + strings.Join(parts, "; ")
	return pkgerrors.Wrap(pkgerrors.CodeDependency, errs, message)
}

func failureReason(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Message()
	}
	if err != nil {
		return err.Error()
	}
	return "unknown failure"
}

func reasonFor(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "required"
	case "email":
		return "not a valid email address"
	case "datetime":
		return "not a valid date (YYYY-MM-DD)"
	default:
		return "invalid"
	}
}

func newFormValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}
