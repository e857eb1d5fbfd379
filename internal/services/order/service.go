// Package order implements the fulfillment service: order creation, line-item
// attachment, payment and status transitions, plus its HTTP surface.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/logger"
	"restaurant-pos/internal/models"
	"restaurant-pos/internal/pricing"
	"restaurant-pos/internal/storage"
)

// Notifier receives an event after every committed status change.
type Notifier interface {
	PublishStatusChange(ctx context.Context, msg *models.StatusUpdateMessage) error
}

type noopNotifier struct{}

func (noopNotifier) PublishStatusChange(context.Context, *models.StatusUpdateMessage) error {
	return nil
}

// CreateOrderInput carries the caller-supplied fields of a new order.
type CreateOrderInput struct {
	Type         models.OrderType
	Source       models.OrderSource
	TableNumber  *int
	CustomerName *string
	Actor        string
}

// PaymentInput is one tender attempt against an order.
type PaymentInput struct {
	Method models.PaymentMethod
	Amount decimal.Decimal
	Status models.PaymentStatus
	Actor  string
}

// Service is the only component that mutates order status.
type Service struct {
	repo     storage.OrderRepository
	catalog  storage.MenuCatalog
	notifier Notifier
	logger   *logger.Logger
	rate     decimal.Decimal
	tenantID string
	now      func() time.Time
}

// NewService wires the fulfillment service. A nil notifier disables events.
func NewService(repo storage.OrderRepository, catalog storage.MenuCatalog, notifier Notifier, log *logger.Logger, rate decimal.Decimal, tenantID string) *Service {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Service{
		repo:     repo,
		catalog:  catalog,
		notifier: notifier,
		logger:   log,
		rate:     rate,
		tenantID: tenantID,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrder stores a new pending order with zero totals. The order number is
// assigned by the repository under its per-tenant counter.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if in.Source == "" {
		in.Source = models.SourcePOS
	}
	if err := validateCreateOrder(&in); err != nil {
		return nil, err
	}

	now := s.now()
	order := &models.Order{
		ID:                uuid.New(),
		TenantID:          s.tenantID,
		Type:              in.Type,
		Source:            in.Source,
		TableNumber:       in.TableNumber,
		CustomerName:      in.CustomerName,
		Subtotal:          decimal.Zero,
		ServiceChargeRate: s.rate,
		ServiceCharge:     decimal.Zero,
		Total:             decimal.Zero,
		Status:            models.StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.CreateOrder(ctx, order, actorOrDefault(in.Actor)); err != nil {
		return nil, wrapRepo("create_order", err)
	}

	s.logger.Info("order_created", "Order created", logger.RequestID(ctx), map[string]interface{}{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"type":         string(order.Type),
		"source":       string(order.Source),
	})
	return order, nil
}

// AttachLineItems prices selections against the menu and appends them to a
// pending order. Totals are recomputed from the full committed item set in the
// same unit of work as the inserts.
func (s *Service) AttachLineItems(ctx context.Context, orderID uuid.UUID, selections []models.MenuSelection) ([]models.OrderLineItem, error) {
	if err := validateSelections(selections); err != nil {
		return nil, err
	}

	lines, err := s.resolveCart(ctx, selections)
	if err != nil {
		return nil, err
	}

	var attached []models.OrderLineItem
	err = s.repo.WithOrder(ctx, orderID, func(ctx context.Context, tx storage.OrderTx) error {
		order := tx.Order()
		if order.Status != models.StatusPending {
			return &models.InvalidTransitionError{
				Current:   order.Status,
				Requested: models.StatusPending,
				Reason:    "line items can only be attached while the order is pending",
			}
		}

		quote, err := pricing.PriceCart(lines, order.ServiceChargeRate)
		if err != nil {
			return err
		}

		now := s.now()
		attached = make([]models.OrderLineItem, len(lines))
		for i, line := range lines {
			attached[i] = newLineItem(order.ID, line, quote.Lines[i], now)
		}

		existing, err := tx.LineItems(ctx)
		if err != nil {
			return err
		}
		if err := tx.InsertLineItems(ctx, attached); err != nil {
			return err
		}

		totals := pricing.TotalsForItems(append(existing, attached...), order.ServiceChargeRate)
		return tx.UpdateTotals(ctx, totals.Subtotal, totals.ServiceCharge, totals.Total)
	})
	if err != nil {
		return nil, wrapRepo("attach_line_items", err)
	}

	s.logger.Info("line_items_attached", "Line items attached", logger.RequestID(ctx), map[string]interface{}{
		"order_id": orderID.String(),
		"count":    len(attached),
	})
	return attached, nil
}

// RecordPayment stores a payment attempt. A completed payment must match the
// order total exactly and confirms the order in the same unit of work; a
// failed one is kept for audit and leaves the status alone.
func (s *Service) RecordPayment(ctx context.Context, orderID uuid.UUID, in PaymentInput) (*models.Payment, error) {
	if in.Status == "" {
		in.Status = models.PaymentCompleted
	}
	if err := validatePayment(&in); err != nil {
		return nil, err
	}

	payment := &models.Payment{
		ID:        uuid.New(),
		OrderID:   orderID,
		Method:    in.Method,
		Amount:    in.Amount,
		Status:    in.Status,
		CreatedAt: s.now(),
	}

	var confirmed *models.Order
	err := s.repo.WithOrder(ctx, orderID, func(ctx context.Context, tx storage.OrderTx) error {
		order := tx.Order()
		if order.Status != models.StatusPending {
			return &models.InvalidTransitionError{
				Current:   order.Status,
				Requested: models.StatusConfirmed,
				Reason:    "payments are only accepted while the order is pending",
			}
		}

		if in.Status == models.PaymentFailed {
			return tx.InsertPayment(ctx, payment)
		}

		payments, err := tx.Payments(ctx)
		if err != nil {
			return err
		}
		for _, p := range payments {
			if p.Status == models.PaymentCompleted {
				return &models.InvalidTransitionError{
					Current:   order.Status,
					Requested: models.StatusConfirmed,
					Reason:    fmt.Sprintf("order already has completed payment %s", p.ID),
				}
			}
		}

		items, err := tx.LineItems(ctx)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return models.NewValidationError("items", "order has no line items")
		}
		if !in.Amount.Equal(order.Total) {
			return &models.AmountMismatchError{Expected: order.Total, Tendered: in.Amount}
		}

		if err := tx.InsertPayment(ctx, payment); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, models.StatusConfirmed, actorOrDefault(in.Actor), "payment completed"); err != nil {
			return err
		}
		snapshot := *tx.Order()
		confirmed = &snapshot
		return nil
	})
	if err != nil {
		return nil, wrapRepo("record_payment", err)
	}

	s.logger.Info("payment_recorded", "Payment recorded", logger.RequestID(ctx), map[string]interface{}{
		"order_id": orderID.String(),
		"method":   string(payment.Method),
		"amount":   payment.Amount.StringFixed(pricing.CurrencyPlaces),
		"status":   string(payment.Status),
	})

	if confirmed != nil {
		s.notify(ctx, confirmed, models.StatusPending, actorOrDefault(in.Actor))
	}
	return payment, nil
}

// TransitionStatus moves an order along the lifecycle from whatever status it
// is in now. Confirmation is not reachable here; it happens only through
// RecordPayment.
func (s *Service) TransitionStatus(ctx context.Context, orderID uuid.UUID, target models.OrderStatus, actor string) (*models.Order, error) {
	return s.TransitionStatusFrom(ctx, orderID, nil, target, actor)
}

// TransitionStatusFrom is TransitionStatus guarded by the status the caller
// last saw. When expected is set the transition applies only from that
// status, so a cancel issued against a pending order cannot land after a
// concurrent payment confirmed it.
func (s *Service) TransitionStatusFrom(ctx context.Context, orderID uuid.UUID, expected *models.OrderStatus, target models.OrderStatus, actor string) (*models.Order, error) {
	if !target.Valid() {
		return nil, models.NewValidationError("status", "unknown status %q", target)
	}
	if expected != nil && !expected.Valid() {
		return nil, models.NewValidationError("expectedStatus", "unknown status %q", *expected)
	}

	current, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, wrapRepo("get_order", err)
	}

	if expected != nil && current.Status != *expected {
		return nil, &models.InvalidTransitionError{
			Current:   current.Status,
			Requested: target,
			Reason:    fmt.Sprintf("order is %s, not %s; reload and retry", current.Status, *expected),
		}
	}

	if target == models.StatusConfirmed {
		return nil, &models.InvalidTransitionError{
			Current:   current.Status,
			Requested: target,
			Reason:    "orders are confirmed by recording a completed payment",
		}
	}
	if err := models.ValidateTransition(current.Status, target); err != nil {
		return nil, err
	}

	actor = actorOrDefault(actor)
	updated, err := s.repo.CompareAndSwapStatus(ctx, orderID, current.Status, target, actor, "")
	if errors.Is(err, storage.ErrStatusChanged) {
		fresh, ferr := s.repo.GetOrder(ctx, orderID)
		if ferr != nil {
			return nil, wrapRepo("get_order", ferr)
		}
		return nil, &models.InvalidTransitionError{
			Current:   fresh.Status,
			Requested: target,
			Reason:    "order status changed concurrently; reload and retry",
		}
	}
	if err != nil {
		return nil, wrapRepo("update_status", err)
	}

	s.logger.Info("order_status_changed", "Order status changed", logger.RequestID(ctx), map[string]interface{}{
		"order_id":   orderID.String(),
		"old_status": string(current.Status),
		"new_status": string(updated.Status),
		"changed_by": actor,
	})

	s.notify(ctx, updated, current.Status, actor)
	return updated, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.OrderDetails, error) {
	details, err := s.repo.GetOrderDetails(ctx, orderID)
	if err != nil {
		return nil, wrapRepo("get_order", err)
	}
	return details, nil
}

// History returns the status log of an order, oldest first.
func (s *Service) History(ctx context.Context, orderID uuid.UUID) ([]models.StatusLogEntry, error) {
	history, err := s.repo.StatusHistory(ctx, orderID)
	if err != nil {
		return nil, wrapRepo("status_history", err)
	}
	return history, nil
}

func (s *Service) HealthCheck(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// resolveCart looks up menu data for every selection. Unknown menu ids are
// reported as validation errors on the offending line.
func (s *Service) resolveCart(ctx context.Context, selections []models.MenuSelection) ([]pricing.CartLine, error) {
	lines := make([]pricing.CartLine, len(selections))
	for i, sel := range selections {
		item, err := s.catalog.MenuItem(ctx, sel.ItemID)
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewValidationError(lineField(i, "item_id"), "unknown menu item %s", sel.ItemID)
		}
		if err != nil {
			return nil, wrapRepo("menu_item", err)
		}

		var size *models.ItemSize
		if sel.SizeID != nil {
			if found, ok := item.Size(*sel.SizeID); ok {
				size = found
			} else {
				// pricing rejects a size that is not one of the item's own
				size = &models.ItemSize{ID: *sel.SizeID}
			}
		}

		mods, err := s.catalog.Modifiers(ctx, sel.ModifierIDs)
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewValidationError(lineField(i, "modifier_ids"), "unknown modifier: %v", err)
		}
		if err != nil {
			return nil, wrapRepo("modifiers", err)
		}

		lines[i] = pricing.CartLine{Item: item, Size: size, Modifiers: mods, Quantity: sel.Quantity}
	}
	return lines, nil
}

func (s *Service) notify(ctx context.Context, order *models.Order, oldStatus models.OrderStatus, actor string) {
	msg := models.NewStatusUpdateMessage(order, oldStatus, actor)
	if err := s.notifier.PublishStatusChange(ctx, msg); err != nil {
		s.logger.Error("status_publish_failed", "Failed to publish status change", logger.RequestID(ctx), err, map[string]interface{}{
			"order_id":   order.ID.String(),
			"new_status": string(order.Status),
		})
	}
}

func newLineItem(orderID uuid.UUID, line pricing.CartLine, quote pricing.Quote, now time.Time) models.OrderLineItem {
	item := models.OrderLineItem{
		ID:         uuid.New(),
		OrderID:    orderID,
		ItemID:     line.Item.ID,
		ItemName:   line.Item.Name,
		Quantity:   line.Quantity,
		UnitPrice:  quote.UnitPrice,
		TotalPrice: quote.TotalPrice,
		Modifiers:  make([]models.LineModifier, len(line.Modifiers)),
		CreatedAt:  now,
	}
	if line.Size != nil {
		id := line.Size.ID
		name := line.Size.Name
		item.SizeID = &id
		item.SizeName = &name
	}
	for i, mod := range line.Modifiers {
		item.Modifiers[i] = models.LineModifier{ModifierID: mod.ID, Name: mod.Name, Price: mod.Price}
	}
	return item
}

// wrapRepo passes domain errors through and marks everything else as a
// retryable repository failure.
func wrapRepo(op string, err error) error {
	var repoErr *models.RepositoryError
	switch {
	case errors.Is(err, models.ErrNotFound),
		models.IsValidation(err),
		models.IsInvalidTransition(err),
		models.IsAmountMismatch(err),
		errors.As(err, &repoErr):
		return err
	}
	return &models.RepositoryError{Op: op, Err: err}
}

func actorOrDefault(actor string) string {
	if actor == "" {
		return "pos"
	}
	return actor
}
