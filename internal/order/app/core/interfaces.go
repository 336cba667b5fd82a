package core

import (
	"context"

	"github.com/google/uuid"

	"canteen-backend/internal/notify"
	"canteen-backend/internal/order/domain/models"
)

// StatusPatch is the field set a transition writes atomically. Token is
// applied only when non-empty; AdminDeleted only when non-nil.
type StatusPatch struct {
	AdminStatus  models.OrderStatus
	UserStatus   string
	Notification string
	Token        string
	AdminDeleted *bool
}

// OrderRepo is the persistence collaborator. UpdateStatus is the atomic
// find-and-update primitive: it applies the patch only when the order's
// current status is in from, returning ErrInvalidTransition when the order
// exists in another state and ErrOrderNotFound when it does not exist.
type OrderRepo interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (models.Order, error)
	ListByEmail(ctx context.Context, email string) ([]models.Order, error)
	ListAll(ctx context.Context, includeDeleted bool) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from []models.OrderStatus, patch StatusPatch) (models.Order, error)
	SetItemFeedback(ctx context.Context, orderID, itemID uuid.UUID, rating int, feedback string) (models.Order, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (models.Order, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	TokenInUse(ctx context.Context, token string) (bool, error)
}

// UserDirectory resolves order owners to their profile. It is the auth/user
// collaborator boundary; the core only reads names and device tokens.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (models.UserProfile, error)
	SaveDeviceToken(ctx context.Context, email, deviceToken string) error
}

// Dispatcher fans a completed transition out to the notification channels.
// Implementations must be best-effort and must never block the caller on
// delivery failures.
type Dispatcher interface {
	Dispatch(ctx context.Context, evt notify.Event)
}
