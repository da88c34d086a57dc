package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/huertohogar/huerto/app/models"
	"github.com/huertohogar/huerto/app/pricing"
	"github.com/huertohogar/huerto/pkg/event"
	"github.com/huertohogar/huerto/pkg/logger"
	"github.com/huertohogar/huerto/pkg/metrics"
)

// Bus topics fired by CheckoutService.
const (
	// TopicCheckoutCompleted carries the recorded models.Order.
	TopicCheckoutCompleted = "checkout.completed"
	// TopicCheckoutFailed carries the error that ended the attempt.
	TopicCheckoutFailed = "checkout.failed"
	// TopicCheckoutState carries every CheckoutState transition.
	TopicCheckoutState = "checkout.state"
)

// Commit steps reported by CheckoutCommitError.
const (
	StepJournal     = "journal"
	StepUpdateStock = "update stock"
	StepRecordOrder = "record order"
	StepClearCart   = "clear cart"
)

// ErrEmptyCart is returned when checkout is attempted on an empty cart.
// Callers treat it as a no-op.
var ErrEmptyCart = errors.New("cart is empty")

// InsufficientStockError aborts a checkout before any stock is written.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.ProductName, e.Requested, e.Available)
}

// CheckoutError reports a failure before the commit phase, when nothing has
// been written yet.
type CheckoutError struct {
	Phase       string
	ProductName string
	Err         error
}

func (e *CheckoutError) Error() string {
	if e.ProductName != "" {
		return fmt.Sprintf("checkout %s %s: %v", e.Phase, e.ProductName, e.Err)
	}
	return fmt.Sprintf("checkout %s: %v", e.Phase, e.Err)
}

func (e *CheckoutError) Unwrap() error { return e.Err }

// CheckoutCommitError reports a failure after validation passed. Decremented
// lists the stock writes already applied on the product service; Order is
// set when the order was recorded before the failure.
type CheckoutCommitError struct {
	Step        string
	Decremented []models.StockDecrement
	Order       *models.Order
	Err         error
}

func (e *CheckoutCommitError) Error() string {
	msg := fmt.Sprintf("checkout commit failed at %s: %v", e.Step, e.Err)
	if len(e.Decremented) > 0 {
		names := make([]string, 0, len(e.Decremented))
		for _, d := range e.Decremented {
			names = append(names, d.ProductName)
		}
		msg += " (stock already updated for " + strings.Join(names, ", ") + ")"
	}
	return msg
}

func (e *CheckoutCommitError) Unwrap() error { return e.Err }

// ─── State ────────────────────────────────────────────────────────────────────

// CheckoutPhase tags a CheckoutState.
type CheckoutPhase string

const (
	PhaseIdle       CheckoutPhase = "idle"
	PhaseValidating CheckoutPhase = "validating"
	PhaseCommitting CheckoutPhase = "committing"
	PhaseSuccess    CheckoutPhase = "success"
	PhaseError      CheckoutPhase = "error"
)

// CheckoutState is the observable progress of the checkout workflow.
// Order is only set in PhaseSuccess and Reason only in PhaseError.
type CheckoutState struct {
	Phase  CheckoutPhase `json:"phase"`
	Order  *models.Order `json:"order,omitempty"`
	Reason string        `json:"reason,omitempty"`
}

// Terminal reports whether the state waits for a Reset.
func (s CheckoutState) Terminal() bool {
	return s.Phase == PhaseSuccess || s.Phase == PhaseError
}

// ─── Dependencies ─────────────────────────────────────────────────────────────

// ProductGateway is the authoritative source of product stock.
type ProductGateway interface {
	Product(ctx context.Context, id string) (models.Product, error)
	UpdateStock(ctx context.Context, id string, stock int) (models.Product, error)
}

// CheckoutCart is the part of the cart store checkout needs.
type CheckoutCart interface {
	Lines(ctx context.Context) ([]models.CartLine, error)
	ClearOrdered(ctx context.Context, ordered []models.CartLine) error
}

// OrderRecorder persists completed orders.
type OrderRecorder interface {
	RecordOrder(ctx context.Context, order *models.Order, lines []models.OrderLine) error
}

// CheckoutJournal tracks checkouts that reached the stock-writing phase.
type CheckoutJournal interface {
	Begin(ctx context.Context, userID string, decrements []models.StockDecrement) (*models.CheckoutJournal, error)
	MarkCommitted(ctx context.Context, id string, orderID uint) error
	MarkFailed(ctx context.Context, id, reason string) error
}

// ─── Service ──────────────────────────────────────────────────────────────────

// CheckoutService turns the cart into a recorded order while decrementing
// remote stock. Only one checkout runs at a time per service.
type CheckoutService struct {
	products ProductGateway
	cart     CheckoutCart
	orders   OrderRecorder
	journal  CheckoutJournal
	bus      *event.Bus
	now      func() time.Time

	run sync.Mutex

	stateMu sync.Mutex
	state   CheckoutState
}

func NewCheckoutService(products ProductGateway, cart CheckoutCart, orders OrderRecorder, journal CheckoutJournal, bus *event.Bus) *CheckoutService {
	return &CheckoutService{
		products: products,
		cart:     cart,
		orders:   orders,
		journal:  journal,
		bus:      bus,
		now:      time.Now,
		state:    CheckoutState{Phase: PhaseIdle},
	}
}

// State returns the current checkout state.
func (s *CheckoutService) State() CheckoutState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// ObserveState emits the current state and every later transition until ctx
// is done.
func (s *CheckoutService) ObserveState(ctx context.Context) <-chan CheckoutState {
	s.stateMu.Lock()
	sub := s.bus.Subscribe(TopicCheckoutState)
	current := s.state
	s.stateMu.Unlock()
	return event.Stream(ctx, sub, current)
}

// Reset returns a terminal state to Idle. It does nothing while a checkout
// is in progress.
func (s *CheckoutService) Reset() {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.state.Terminal() {
		s.setStateLocked(CheckoutState{Phase: PhaseIdle})
	}
}

// Checkout validates stock for every cart line, decrements it on the product
// service, records the order and removes the ordered lines from the cart.
// Nothing is written unless every line has enough stock. Once started the
// workflow ignores ctx cancellation so it cannot stop between the remote and
// local commits.
func (s *CheckoutService) Checkout(ctx context.Context, userID, shippingAddress string) (*models.Order, error) {
	ctx = context.WithoutCancel(ctx)
	log := logger.WithCtx(ctx).With("user", userID)

	s.run.Lock()
	defer s.run.Unlock()

	start := time.Now()

	lines, err := s.cart.Lines(ctx)
	if err != nil {
		return nil, s.fail(ctx, start, "read_failed", &CheckoutError{Phase: "read cart", Err: err})
	}
	if len(lines) == 0 {
		metrics.RecordCheckout("empty", start)
		return nil, ErrEmptyCart
	}

	// Phase 1: validate every line against fresh stock. No writes.
	s.setState(CheckoutState{Phase: PhaseValidating})

	decrements := make([]models.StockDecrement, 0, len(lines))
	for _, line := range lines {
		p, err := s.products.Product(ctx, line.ProductID)
		if err != nil {
			return nil, s.fail(ctx, start, "validate_failed", &CheckoutError{Phase: "validate", ProductName: line.ProductName, Err: err})
		}

		newStock := p.Stock - line.Quantity
		if newStock < 0 {
			return nil, s.fail(ctx, start, "insufficient_stock", &InsufficientStockError{
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				Requested:   line.Quantity,
				Available:   p.Stock,
			})
		}

		decrements = append(decrements, models.StockDecrement{
			ProductID:     line.ProductID,
			ProductName:   line.ProductName,
			PreviousStock: p.Stock,
			NewStock:      newStock,
		})
	}

	// Phase 2: commit.
	s.setState(CheckoutState{Phase: PhaseCommitting})

	entry, err := s.journal.Begin(ctx, userID, decrements)
	if err != nil {
		return nil, s.fail(ctx, start, "commit_failed", &CheckoutCommitError{Step: StepJournal, Err: err})
	}

	applied := make([]models.StockDecrement, 0, len(decrements))
	for _, d := range decrements {
		if _, err := s.products.UpdateStock(ctx, d.ProductID, d.NewStock); err != nil {
			cerr := &CheckoutCommitError{Step: StepUpdateStock, Decremented: applied, Err: err}
			s.closeJournal(ctx, entry.ID, cerr)
			return nil, s.fail(ctx, start, "commit_failed", cerr)
		}
		applied = append(applied, d)
		log.Debug("checkout: stock updated", "product", d.ProductID, "stock", d.NewStock)
	}

	summary := pricing.Summarize(lines)
	order := &models.Order{
		UserID:          userID,
		PlacedAt:        s.now(),
		Subtotal:        summary.Subtotal,
		Tax:             summary.Tax,
		Total:           summary.Total,
		ShippingAddress: shippingAddress,
	}
	orderLines := make([]models.OrderLine, 0, len(lines))
	for _, line := range lines {
		orderLines = append(orderLines, models.OrderLine{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
	}

	if err := s.orders.RecordOrder(ctx, order, orderLines); err != nil {
		cerr := &CheckoutCommitError{Step: StepRecordOrder, Decremented: applied, Err: err}
		s.closeJournal(ctx, entry.ID, cerr)
		return nil, s.fail(ctx, start, "commit_failed", cerr)
	}

	// The order exists from here on, so the journal entry is committed even
	// if clearing the cart fails.
	if err := s.journal.MarkCommitted(ctx, entry.ID, order.ID); err != nil {
		log.Warn("checkout: journal not closed", "journal", entry.ID, "order", order.ID, "error", err)
	}

	if err := s.cart.ClearOrdered(ctx, lines); err != nil {
		return nil, s.fail(ctx, start, "commit_failed", &CheckoutCommitError{Step: StepClearCart, Decremented: applied, Order: order, Err: err})
	}

	s.setState(CheckoutState{Phase: PhaseSuccess, Order: order})
	metrics.RecordCheckout("success", start)
	s.bus.Fire(TopicCheckoutCompleted, *order)
	log.Info("checkout: order recorded", "order", order.ID, "total", order.Total, "lines", len(orderLines))

	return order, nil
}

func (s *CheckoutService) fail(ctx context.Context, start time.Time, outcome string, err error) error {
	s.setState(CheckoutState{Phase: PhaseError, Reason: err.Error()})
	metrics.RecordCheckout(outcome, start)
	s.bus.Fire(TopicCheckoutFailed, err)

	var stock *InsufficientStockError
	if errors.As(err, &stock) {
		logger.WithCtx(ctx).Info("checkout: rejected", "reason", err.Error())
	} else {
		logger.WithCtx(ctx).Error("checkout: failed", "outcome", outcome, "error", err)
	}
	return err
}

func (s *CheckoutService) closeJournal(ctx context.Context, id string, cause error) {
	if err := s.journal.MarkFailed(ctx, id, cause.Error()); err != nil {
		logger.WithCtx(ctx).Warn("checkout: journal not closed", "journal", id, "error", err)
	}
}

func (s *CheckoutService) setState(st CheckoutState) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.setStateLocked(st)
}

func (s *CheckoutService) setStateLocked(st CheckoutState) {
	s.state = st
	s.bus.Publish(TopicCheckoutState, st)
}
