package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canteen-backend/internal/order/app/core"
	"canteen-backend/internal/order/domain/models"
)

func seedOrder(t *testing.T, repo *MemoryOrderRepo, status models.OrderStatus) models.Order {
	t.Helper()
	now := time.Now().UTC()
	order := models.Order{
		ID:          uuid.New(),
		OrderCode:   "ORD-123456",
		Token:       "042",
		Username:    "alice",
		Email:       "alice@example.com",
		TotalAmount: 40,
		AdminStatus: status,
		Items: []models.OrderItem{
			{ItemID: uuid.New(), Name: "Tea", Quantity: 2, UnitPrice: 20},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(context.Background(), &order))
	return order
}

func TestUpdateStatusConditional(t *testing.T) {
	repo := NewMemoryOrderRepo()
	order := seedOrder(t, repo, models.StatusPending)
	ctx := context.Background()

	updated, err := repo.UpdateStatus(ctx, order.ID,
		[]models.OrderStatus{models.StatusPending},
		core.StatusPatch{AdminStatus: models.StatusAccepted, UserStatus: "x", Notification: "y", Token: "117"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, updated.AdminStatus)
	assert.Equal(t, "117", updated.Token)

	_, err = repo.UpdateStatus(ctx, order.ID,
		[]models.OrderStatus{models.StatusPending},
		core.StatusPatch{AdminStatus: models.StatusAccepted})
	assert.ErrorIs(t, err, core.ErrInvalidTransition)

	_, err = repo.UpdateStatus(ctx, uuid.New(),
		[]models.OrderStatus{models.StatusPending},
		core.StatusPatch{AdminStatus: models.StatusAccepted})
	assert.ErrorIs(t, err, core.ErrOrderNotFound)
}

func TestUpdateStatusKeepsTokenWhenPatchEmpty(t *testing.T) {
	repo := NewMemoryOrderRepo()
	order := seedOrder(t, repo, models.StatusAccepted)

	updated, err := repo.UpdateStatus(context.Background(), order.ID,
		[]models.OrderStatus{models.StatusAccepted},
		core.StatusPatch{AdminStatus: models.StatusReadyToServe})
	require.NoError(t, err)
	assert.Equal(t, "042", updated.Token)
}

func TestSoftDeleteHidesFromAdminList(t *testing.T) {
	repo := NewMemoryOrderRepo()
	order := seedOrder(t, repo, models.StatusPending)
	ctx := context.Background()

	_, err := repo.SoftDelete(ctx, order.ID)
	require.NoError(t, err)

	visible, err := repo.ListAll(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, visible)

	all, err := repo.ListAll(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	mine, err := repo.ListByEmail(ctx, order.Email)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestSetItemFeedback(t *testing.T) {
	repo := NewMemoryOrderRepo()
	order := seedOrder(t, repo, models.StatusCollected)
	ctx := context.Background()

	updated, err := repo.SetItemFeedback(ctx, order.ID, order.Items[0].ItemID, 5, "Great")
	require.NoError(t, err)
	require.NotNil(t, updated.Items[0].Rating)
	assert.Equal(t, 5, *updated.Items[0].Rating)
	assert.Equal(t, "Great", *updated.Items[0].Feedback)

	_, err = repo.SetItemFeedback(ctx, order.ID, uuid.New(), 5, "x")
	assert.ErrorIs(t, err, core.ErrItemNotFound)

	_, err = repo.SetItemFeedback(ctx, uuid.New(), order.Items[0].ItemID, 5, "x")
	assert.ErrorIs(t, err, core.ErrOrderNotFound)
}

func TestTokenInUseIgnoresTerminalOrders(t *testing.T) {
	repo := NewMemoryOrderRepo()
	ctx := context.Background()

	live := seedOrder(t, repo, models.StatusAccepted)
	inUse, err := repo.TokenInUse(ctx, live.Token)
	require.NoError(t, err)
	assert.True(t, inUse)

	_, err = repo.UpdateStatus(ctx, live.ID,
		[]models.OrderStatus{models.StatusAccepted},
		core.StatusPatch{AdminStatus: models.StatusCollected})
	require.NoError(t, err)

	inUse, err = repo.TokenInUse(ctx, live.Token)
	require.NoError(t, err)
	assert.False(t, inUse)
}

func TestGetByIDReturnsCopy(t *testing.T) {
	repo := NewMemoryOrderRepo()
	order := seedOrder(t, repo, models.StatusPending)
	ctx := context.Background()

	first, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	first.Items[0].Name = "mutated"

	second, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tea", second.Items[0].Name)
}
