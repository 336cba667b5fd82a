package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"canteen-backend/internal/metrics"
	"canteen-backend/internal/notify"
	"canteen-backend/internal/order/app/core"
	"canteen-backend/internal/order/domain/dto"
	"canteen-backend/internal/order/domain/models"
	"canteen-backend/pkg/logger"
)

const (
	maxGenerateAttempts = 25

	eventOrderUpdated  = "orderUpdated"
	eventOrdersUpdated = "ordersUpdated"
	eventOrderRejected = "orderRejected"
	eventOrderDeleted  = "orderDeleted"

	pushTitle = "Order Update"
)

// OrderService is the order lifecycle engine. Every state-changing
// operation writes through the store's conditional update and then hands
// the result to the dispatcher; the store write happens-before any
// notification attempt.
type OrderService struct {
	repo       core.OrderRepo
	users      core.UserDirectory
	dispatcher core.Dispatcher
	mylog      *logger.Logger
}

func NewOrderService(repo core.OrderRepo, users core.UserDirectory, dispatcher core.Dispatcher, mylog *logger.Logger) *OrderService {
	return &OrderService{
		repo:       repo,
		users:      users,
		dispatcher: dispatcher,
		mylog:      mylog,
	}
}

// Create validates the checkout request, assigns the order code, pickup
// token and total, and persists the order in Pending state.
func (s *OrderService) Create(ctx context.Context, req dto.CreateOrderRequest) (models.Order, error) {
	mylog := s.mylog.Action("create_order")

	if err := validateCreate(req); err != nil {
		return models.Order{}, err
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		if u, err := s.users.FindByEmail(ctx, req.Email); err == nil && u.Name != "" {
			username = u.Name
		} else {
			username = req.Email
		}
	}

	items := make([]models.OrderItem, len(req.Items))
	total := 0.0
	for i, it := range req.Items {
		items[i] = models.OrderItem{
			ItemID:    uuid.New(),
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
		total += it.UnitPrice * float64(it.Quantity)
	}

	code, err := s.uniqueOrderCode(ctx)
	if err != nil {
		return models.Order{}, err
	}
	token, err := s.uniqueToken(ctx)
	if err != nil {
		return models.Order{}, err
	}

	texts := core.TextsFor(models.StatusPending)
	now := time.Now().UTC()
	order := models.Order{
		ID:           uuid.New(),
		OrderCode:    code,
		Username:     username,
		Email:        req.Email,
		Items:        items,
		TotalAmount:  total,
		Token:        token,
		UserStatus:   texts.UserStatus,
		AdminStatus:  models.StatusPending,
		Notification: texts.Notification,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, &order); err != nil {
		mylog.Error("Failed to save order", err)
		return models.Order{}, fmt.Errorf("cannot save order: %w", err)
	}
	metrics.OrdersCreatedTotal.Inc()
	mylog.Info("Order created", "order_code", order.OrderCode, "total_amount", order.TotalAmount)

	s.dispatcher.Dispatch(ctx, notify.Event{
		OwnerEvent: eventOrderUpdated,
		AdminEvent: eventOrdersUpdated,
		Order:      order,
		PushTitle:  pushTitle,
		PushBody:   texts.Notification,
	})
	return order, nil
}

// Accept moves a Pending order to Accepted and re-issues the pickup token.
func (s *OrderService) Accept(ctx context.Context, id uuid.UUID) (models.Order, error) {
	token, err := s.uniqueToken(ctx)
	if err != nil {
		return models.Order{}, err
	}

	texts := core.TextsFor(models.StatusAccepted)
	return s.transition(ctx, id, []models.OrderStatus{models.StatusPending}, core.StatusPatch{
		AdminStatus:  models.StatusAccepted,
		UserStatus:   texts.UserStatus,
		Notification: texts.Notification,
		Token:        token,
	})
}

// Ready marks an Accepted order as ready for pickup. Re-applying it to an
// already-ready order is not an error.
func (s *OrderService) Ready(ctx context.Context, id uuid.UUID) (models.Order, error) {
	texts := core.TextsFor(models.StatusReadyToServe)
	return s.transition(ctx, id,
		[]models.OrderStatus{models.StatusAccepted, models.StatusReadyToServe},
		core.StatusPatch{
			AdminStatus:  models.StatusReadyToServe,
			UserStatus:   texts.UserStatus,
			Notification: texts.Notification,
		})
}

// Collected records the pickup outcome. collected=false keeps the order in
// ReadyToServe with the waiting texts.
func (s *OrderService) Collected(ctx context.Context, id uuid.UUID, collected bool) (models.Order, error) {
	if !collected {
		return s.transition(ctx, id,
			[]models.OrderStatus{models.StatusReadyToServe},
			core.StatusPatch{
				AdminStatus:  models.StatusReadyToServe,
				UserStatus:   core.WaitingTexts.UserStatus,
				Notification: core.WaitingTexts.Notification,
			})
	}
	texts := core.TextsFor(models.StatusCollected)
	return s.transition(ctx, id,
		[]models.OrderStatus{models.StatusReadyToServe, models.StatusCollected},
		core.StatusPatch{
			AdminStatus:  models.StatusCollected,
			UserStatus:   texts.UserStatus,
			Notification: texts.Notification,
		})
}

// Reject flags a Pending order as rejected and hides it from the admin
// listing. The owner keeps it in their history.
func (s *OrderService) Reject(ctx context.Context, id uuid.UUID) (models.Order, error) {
	texts := core.TextsFor(models.StatusRejected)
	deleted := true
	order, err := s.repo.UpdateStatus(ctx, id, []models.OrderStatus{models.StatusPending}, core.StatusPatch{
		AdminStatus:  models.StatusRejected,
		UserStatus:   texts.UserStatus,
		Notification: texts.Notification,
		AdminDeleted: &deleted,
	})
	if err != nil {
		return models.Order{}, err
	}
	metrics.OrderTransitionsTotal.WithLabelValues(string(models.StatusRejected)).Inc()
	s.mylog.Action("order_rejected").Info("Order rejected", "order_code", order.OrderCode)

	s.dispatcher.Dispatch(ctx, notify.Event{
		OwnerEvent: eventOrderRejected,
		AdminEvent: eventOrderDeleted,
		Order:      order,
		PushTitle:  pushTitle,
		PushBody:   "Oops! Your order cannot be accepted at the moment, please try again later.",
	})
	return order, nil
}

// Delete soft-deletes the order from the admin view. The owner is notified
// only when the order was still pending.
func (s *OrderService) Delete(ctx context.Context, id uuid.UUID) error {
	order, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	s.mylog.Action("order_deleted").Info("Order removed from admin view", "order_code", order.OrderCode)

	if order.AdminStatus == models.StatusPending {
		s.dispatcher.Dispatch(ctx, notify.Event{
			OwnerEvent: eventOrderDeleted,
			Order:      order,
			PushTitle:  pushTitle,
			PushBody:   "Your order was removed before it could be accepted.",
		})
	}
	return nil
}

// ItemFeedback attaches a rating and comment to one line item of a
// collected order and re-announces the updated order.
func (s *OrderService) ItemFeedback(ctx context.Context, orderID, itemID uuid.UUID, rating *int, feedback string) (models.Order, error) {
	if rating == nil {
		return models.Order{}, fmt.Errorf("%w: rating is required", core.ErrValidation)
	}
	if *rating < 1 || *rating > 5 {
		return models.Order{}, fmt.Errorf("%w: rating must be in [1, 5]", core.ErrValidation)
	}
	if strings.TrimSpace(feedback) == "" {
		return models.Order{}, fmt.Errorf("%w: feedback is required", core.ErrValidation)
	}

	current, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if current.AdminStatus != models.StatusCollected {
		return models.Order{}, fmt.Errorf("%w: feedback is only accepted after collection", core.ErrInvalidTransition)
	}

	order, err := s.repo.SetItemFeedback(ctx, orderID, itemID, *rating, feedback)
	if err != nil {
		return models.Order{}, err
	}
	s.mylog.Action("item_feedback").Info("Item feedback recorded",
		"order_code", order.OrderCode, "item_id", itemID.String(), "rating", *rating)

	s.dispatcher.Dispatch(ctx, notify.Event{
		OwnerEvent: eventOrderUpdated,
		AdminEvent: eventOrdersUpdated,
		Order:      order,
	})
	return order, nil
}

func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (models.Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *OrderService) ListByEmail(ctx context.Context, email string) ([]models.Order, error) {
	return s.repo.ListByEmail(ctx, email)
}

// ListAdmin returns the admin view: soft-deleted orders hidden and the
// user-facing notification stripped.
func (s *OrderService) ListAdmin(ctx context.Context) ([]models.Order, error) {
	orders, err := s.repo.ListAll(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make([]models.Order, len(orders))
	for i, o := range orders {
		out[i] = o.AdminView()
	}
	return out, nil
}

func (s *OrderService) transition(ctx context.Context, id uuid.UUID, from []models.OrderStatus, patch core.StatusPatch) (models.Order, error) {
	order, err := s.repo.UpdateStatus(ctx, id, from, patch)
	if err != nil {
		return models.Order{}, err
	}
	metrics.OrderTransitionsTotal.WithLabelValues(string(patch.AdminStatus)).Inc()
	s.mylog.Action("status_changed").Info("Order status changed",
		"order_code", order.OrderCode, "admin_status", string(order.AdminStatus))

	s.dispatcher.Dispatch(ctx, notify.Event{
		OwnerEvent: eventOrderUpdated,
		AdminEvent: eventOrdersUpdated,
		Order:      order,
		PushTitle:  pushTitle,
		PushBody:   patch.Notification,
	})
	return order, nil
}

// uniqueOrderCode draws ORD-XXXXXX codes until one is unused. After
// maxGenerateAttempts the last candidate is accepted; the collision window
// at that point is negligible for a single canteen.
func (s *OrderService) uniqueOrderCode(ctx context.Context) (string, error) {
	var code string
	for i := 0; i < maxGenerateAttempts; i++ {
		code = fmt.Sprintf("ORD-%06d", rand.Intn(900000)+100000)
		exists, err := s.repo.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("cannot check order code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	s.mylog.Action("order_code_collisions").Warn("Accepting possibly colliding order code", "order_code", code)
	return code, nil
}

// uniqueToken draws 3-digit pickup tokens from [1, 999], skipping tokens
// still attached to live orders.
func (s *OrderService) uniqueToken(ctx context.Context) (string, error) {
	var token string
	for i := 0; i < maxGenerateAttempts; i++ {
		token = fmt.Sprintf("%03d", rand.Intn(999)+1)
		inUse, err := s.repo.TokenInUse(ctx, token)
		if err != nil {
			return "", fmt.Errorf("cannot check token: %w", err)
		}
		if !inUse {
			return token, nil
		}
	}
	s.mylog.Action("token_collisions").Warn("Accepting possibly colliding token", "token", token)
	return token, nil
}

func validateCreate(req dto.CreateOrderRequest) error {
	if strings.TrimSpace(req.Email) == "" {
		return fmt.Errorf("%w: email is required", core.ErrValidation)
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: order must contain at least one item", core.ErrValidation)
	}
	for _, it := range req.Items {
		if strings.TrimSpace(it.Name) == "" {
			return fmt.Errorf("%w: item name is required", core.ErrValidation)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("%w: item quantity must be at least 1", core.ErrValidation)
		}
		if it.UnitPrice < 0 {
			return fmt.Errorf("%w: item price cannot be negative", core.ErrValidation)
		}
	}
	return nil
}
