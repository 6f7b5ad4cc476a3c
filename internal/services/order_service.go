package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/nivasa-store/api/internal/domain"
	"github.com/nivasa-store/api/internal/repositories"
)

// ErrOrderInvalidInput indicates the caller supplied invalid input.
var ErrOrderInvalidInput = errors.New("order service: invalid input")

// ErrOrderNotFound indicates the requested order does not exist or is not visible to the caller.
var ErrOrderNotFound = errors.New("order service: not found")

// ErrOrderIllegalTransition indicates the requested status change is not allowed from the current state.
var ErrOrderIllegalTransition = errors.New("order service: illegal status transition")

// ErrOrderUnavailable indicates the order service cannot fulfil the request due to backend issues.
var ErrOrderUnavailable = errors.New("order service: unavailable")

const maxOrderPageSize = 100

// orderTransitions lists the legal forward moves in the fulfilment state machine.
var orderTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:   {domain.OrderStatusConfirmed, domain.OrderStatusCancelled},
	domain.OrderStatusConfirmed: {domain.OrderStatusShipped, domain.OrderStatusCancelled},
	domain.OrderStatusShipped:   {domain.OrderStatusDelivered},
}

// OrderServiceDeps wires the repositories required by order operations.
type OrderServiceDeps struct {
	Orders repositories.OrderRepository
	Clock  func() time.Time
	Logger func(context.Context, string, map[string]any)
}

type orderService struct {
	orders repositories.OrderRepository
	now    func() time.Time
	logger func(context.Context, string, map[string]any)
}

// NewOrderService constructs an OrderService enforcing dependency validation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &orderService{
		orders: deps.Orders,
		now:    func() time.Time { return clock().UTC() },
		logger: logger,
	}, nil
}

// ListOrders returns orders matching the filter, newest first.
func (s *orderService) ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error) {
	if s == nil || s.orders == nil {
		return domain.CursorPage[Order]{}, ErrOrderUnavailable
	}
	filter.UserID = strings.TrimSpace(filter.UserID)
	if filter.Pagination.PageSize <= 0 {
		filter.Pagination.PageSize = 20
	}
	if filter.Pagination.PageSize > maxOrderPageSize {
		filter.Pagination.PageSize = maxOrderPageSize
	}
	if filter.Status != nil && !validOrderStatus(*filter.Status) {
		return domain.CursorPage[Order]{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, *filter.Status)
	}

	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Order]{}, s.translateRepoError(err)
	}
	return page, nil
}

// GetOrder loads a single order. Non-admin callers only see their own orders;
// an order belonging to someone else reads as not found.
func (s *orderService) GetOrder(ctx context.Context, cmd GetOrderCommand) (Order, error) {
	if s == nil || s.orders == nil {
		return Order{}, ErrOrderUnavailable
	}
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, ErrOrderInvalidInput
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}
	if !cmd.Admin && !strings.EqualFold(order.UserID, strings.TrimSpace(cmd.UserID)) {
		return Order{}, ErrOrderNotFound
	}
	return order, nil
}

// TransitionStatus moves an order through the fulfilment state machine.
func (s *orderService) TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error) {
	if s == nil || s.orders == nil {
		return Order{}, ErrOrderUnavailable
	}
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, ErrOrderInvalidInput
	}
	if !validOrderStatus(cmd.TargetStatus) {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.TargetStatus)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}
	if !transitionAllowed(order.Status, cmd.TargetStatus) {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrOrderIllegalTransition, order.Status, cmd.TargetStatus)
	}

	updated, err := s.orders.UpdateStatus(ctx, orderID, cmd.TargetStatus, s.now())
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}
	s.logger(ctx, "order.status_changed", map[string]any{
		"orderId": orderID,
		"from":    string(order.Status),
		"to":      string(cmd.TargetStatus),
		"actorId": strings.TrimSpace(cmd.ActorID),
	})
	return updated, nil
}

// Cancel cancels an order on behalf of its owner. Only orders that have not
// shipped can be cancelled.
func (s *orderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error) {
	if s == nil || s.orders == nil {
		return Order{}, ErrOrderUnavailable
	}
	orderID := strings.TrimSpace(cmd.OrderID)
	uid := strings.TrimSpace(cmd.UserID)
	if orderID == "" || uid == "" {
		return Order{}, ErrOrderInvalidInput
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}
	if !strings.EqualFold(order.UserID, uid) {
		return Order{}, ErrOrderNotFound
	}
	if order.Status != domain.OrderStatusPending && order.Status != domain.OrderStatusConfirmed {
		return Order{}, fmt.Errorf("%w: cannot cancel a %s order", ErrOrderIllegalTransition, order.Status)
	}

	updated, err := s.orders.UpdateStatus(ctx, orderID, domain.OrderStatusCancelled, s.now())
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}
	s.logger(ctx, "order.cancelled", map[string]any{
		"orderId": orderID,
		"userId":  uid,
		"reason":  strings.TrimSpace(cmd.Reason),
	})
	return updated, nil
}

func validOrderStatus(status domain.OrderStatus) bool {
	switch status {
	case domain.OrderStatusPending, domain.OrderStatusConfirmed, domain.OrderStatusShipped,
		domain.OrderStatusDelivered, domain.OrderStatusCancelled:
		return true
	}
	return false
}

func transitionAllowed(from, to domain.OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *orderService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrOrderNotFound
		case repoErr.IsUnavailable():
			return ErrOrderUnavailable
		}
	}
	return ErrOrderUnavailable
}
