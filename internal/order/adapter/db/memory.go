package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"canteen-backend/internal/order/app/core"
	"canteen-backend/internal/order/domain/models"
)

// MemoryOrderRepo is a map-backed store with the same contract as the
// Postgres repo. It backs the tests and local development without a
// database.
type MemoryOrderRepo struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]models.Order
}

func NewMemoryOrderRepo() *MemoryOrderRepo {
	return &MemoryOrderRepo{orders: make(map[uuid.UUID]models.Order)}
}

func (r *MemoryOrderRepo) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (r *MemoryOrderRepo) GetByID(_ context.Context, id uuid.UUID) (models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return models.Order{}, core.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (r *MemoryOrderRepo) ListByEmail(_ context.Context, email string) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Order
	for _, o := range r.orders {
		if o.Email == email {
			out = append(out, cloneOrder(o))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *MemoryOrderRepo) ListAll(_ context.Context, includeDeleted bool) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Order
	for _, o := range r.orders {
		if !includeDeleted && o.AdminDeleted {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *MemoryOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, from []models.OrderStatus, patch core.StatusPatch) (models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return models.Order{}, core.ErrOrderNotFound
	}
	matched := false
	for _, s := range from {
		if o.AdminStatus == s {
			matched = true
			break
		}
	}
	if !matched {
		return models.Order{}, core.ErrInvalidTransition
	}

	o.AdminStatus = patch.AdminStatus
	o.UserStatus = patch.UserStatus
	o.Notification = patch.Notification
	if patch.Token != "" {
		o.Token = patch.Token
	}
	if patch.AdminDeleted != nil {
		o.AdminDeleted = *patch.AdminDeleted
	}
	o.UpdatedAt = time.Now().UTC()

	r.orders[id] = o
	return cloneOrder(o), nil
}

func (r *MemoryOrderRepo) SetItemFeedback(_ context.Context, orderID, itemID uuid.UUID, rating int, feedback string) (models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok {
		return models.Order{}, core.ErrOrderNotFound
	}
	for i := range o.Items {
		if o.Items[i].ItemID == itemID {
			rt, fb := rating, feedback
			o.Items[i].Rating = &rt
			o.Items[i].Feedback = &fb
			o.UpdatedAt = time.Now().UTC()
			r.orders[orderID] = o
			return cloneOrder(o), nil
		}
	}
	return models.Order{}, core.ErrItemNotFound
}

func (r *MemoryOrderRepo) SoftDelete(_ context.Context, id uuid.UUID) (models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return models.Order{}, core.ErrOrderNotFound
	}
	o.AdminDeleted = true
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	return cloneOrder(o), nil
}

func (r *MemoryOrderRepo) CodeExists(_ context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.orders {
		if o.OrderCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryOrderRepo) TokenInUse(_ context.Context, token string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.orders {
		if o.Token == token && !o.AdminDeleted && !o.AdminStatus.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func cloneOrder(o models.Order) models.Order {
	items := make([]models.OrderItem, len(o.Items))
	for i, it := range o.Items {
		items[i] = it
		if it.Rating != nil {
			v := *it.Rating
			items[i].Rating = &v
		}
		if it.Feedback != nil {
			v := *it.Feedback
			items[i].Feedback = &v
		}
	}
	o.Items = items
	return o
}

func sortNewestFirst(orders []models.Order) {
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
