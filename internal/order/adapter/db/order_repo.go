package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"canteen-backend/internal/order/app/core"
	"canteen-backend/internal/order/domain/models"
)

const orderColumns = `id, order_code, token, username, email, total_amount,
	user_status, admin_status, notification, admin_deleted, created_at, updated_at`

// OrderRepo is the Postgres-backed order store. Transitions ride on a
// conditional UPDATE keyed by id and expected statuses, so a concurrent
// writer cannot produce a lost update on the status fields.
type OrderRepo struct {
	db *DB
}

func NewOrderRepo(db *DB) *OrderRepo {
	return &OrderRepo{db: db}
}

func (r *OrderRepo) Create(ctx context.Context, order *models.Order) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id, order_code, token, username, email, total_amount,
			user_status, admin_status, notification, admin_deleted,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		order.ID, order.OrderCode, order.Token, order.Username, order.Email,
		order.TotalAmount, order.UserStatus, string(order.AdminStatus),
		order.Notification, order.AdminDeleted, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for pos, item := range order.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (item_id, order_id, name, quantity, unit_price, rating, feedback, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, item.ItemID, order.ID, item.Name, item.Quantity, item.UnitPrice, item.Rating, item.Feedback, pos)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *OrderRepo) GetByID(ctx context.Context, id uuid.UUID) (models.Order, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, core.ErrOrderNotFound
		}
		return models.Order{}, fmt.Errorf("failed to query order: %w", err)
	}
	if err := r.loadItems(ctx, []*models.Order{&order}); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (r *OrderRepo) ListByEmail(ctx context.Context, email string) ([]models.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE email = $1 ORDER BY created_at DESC`, email)
}

func (r *OrderRepo) ListAll(ctx context.Context, includeDeleted bool) ([]models.Order, error) {
	if includeDeleted {
		return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
	}
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE admin_deleted = FALSE ORDER BY created_at DESC`)
}

func (r *OrderRepo) list(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]*models.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := r.loadItems(ctx, refs); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from []models.OrderStatus, patch core.StatusPatch) (models.Order, error) {
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}

	row := r.db.Pool.QueryRow(ctx, `
		UPDATE orders SET
			admin_status = $3,
			user_status = $4,
			notification = $5,
			token = CASE WHEN $6 <> '' THEN $6 ELSE token END,
			admin_deleted = COALESCE($7, admin_deleted),
			updated_at = $8
		WHERE id = $1 AND admin_status = ANY($2)
		RETURNING `+orderColumns,
		id, fromStrs, string(patch.AdminStatus), patch.UserStatus,
		patch.Notification, patch.Token, patch.AdminDeleted, time.Now().UTC(),
	)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, r.classifyMiss(ctx, id)
		}
		return models.Order{}, fmt.Errorf("failed to update order status: %w", err)
	}
	if err := r.loadItems(ctx, []*models.Order{&order}); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (r *OrderRepo) SetItemFeedback(ctx context.Context, orderID, itemID uuid.UUID, rating int, feedback string) (models.Order, error) {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE order_items SET rating = $1, feedback = $2
		WHERE item_id = $3 AND order_id = $4
	`, rating, feedback, itemID, orderID)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to update item feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, orderID); err != nil {
			return models.Order{}, err
		}
		return models.Order{}, core.ErrItemNotFound
	}

	_, err = r.db.Pool.Exec(ctx, `UPDATE orders SET updated_at = $2 WHERE id = $1`, orderID, time.Now().UTC())
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to touch order: %w", err)
	}
	return r.GetByID(ctx, orderID)
}

func (r *OrderRepo) SoftDelete(ctx context.Context, id uuid.UUID) (models.Order, error) {
	row := r.db.Pool.QueryRow(ctx, `
		UPDATE orders SET admin_deleted = TRUE, updated_at = $2
		WHERE id = $1
		RETURNING `+orderColumns,
		id, time.Now().UTC(),
	)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, core.ErrOrderNotFound
		}
		return models.Order{}, fmt.Errorf("failed to soft-delete order: %w", err)
	}
	if err := r.loadItems(ctx, []*models.Order{&order}); err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (r *OrderRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE order_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check order code: %w", err)
	}
	return exists, nil
}

// TokenInUse only considers live orders: a token freed by a collected or
// rejected order may be handed out again.
func (r *OrderRepo) TokenInUse(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM orders
			WHERE token = $1
			  AND admin_deleted = FALSE
			  AND admin_status NOT IN ($2, $3)
		)`, token, string(models.StatusCollected), string(models.StatusRejected)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check token: %w", err)
	}
	return exists, nil
}

// classifyMiss distinguishes an unknown order from one in the wrong state
// after a conditional update matched nothing.
func (r *OrderRepo) classifyMiss(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to classify update miss: %w", err)
	}
	if exists {
		return core.ErrInvalidTransition
	}
	return core.ErrOrderNotFound
}

func (r *OrderRepo) loadItems(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(orders))
	byID := make(map[uuid.UUID]*models.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT item_id, order_id, name, quantity, unit_price, rating, feedback
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY position ASC
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		var orderID uuid.UUID
		if err := rows.Scan(&item.ItemID, &orderID, &item.Name, &item.Quantity,
			&item.UnitPrice, &item.Rating, &item.Feedback); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (models.Order, error) {
	var o models.Order
	var status string
	err := row.Scan(&o.ID, &o.OrderCode, &o.Token, &o.Username, &o.Email,
		&o.TotalAmount, &o.UserStatus, &status, &o.Notification,
		&o.AdminDeleted, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return models.Order{}, err
	}
	o.AdminStatus = models.OrderStatus(status)
	return o, nil
}
