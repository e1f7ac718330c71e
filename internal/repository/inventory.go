package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"finkid-backend/internal/model"
	"finkid-backend/internal/pkg/db"
)

// ErrInsufficientQuantity is returned when a decrement exceeds the
// stacked quantity of an inventory row.
var ErrInsufficientQuantity = errors.New("insufficient item quantity")

// InventoryRepository handles owned-item persistence. One row per
// (user, item type, item id); rows reaching quantity 0 are deleted.
type InventoryRepository struct {
	q db.Querier
}

// NewInventoryRepository creates a new InventoryRepository instance.
func NewInventoryRepository(q db.Querier) *InventoryRepository {
	return &InventoryRepository{q: q}
}

// WithTx returns a copy bound to the given transaction.
func (r *InventoryRepository) WithTx(tx pgx.Tx) *InventoryRepository {
	return &InventoryRepository{q: tx}
}

const inventoryColumns = `id, user_id, item_type, item_id, quantity, acquired_at`

// AddFood stacks qty units of a food onto the user's inventory row,
// inserting the row if absent.
func (r *InventoryRepository) AddFood(ctx context.Context, userID, foodID uuid.UUID, qty int) error {
	const query = `
		INSERT INTO user_inventory (id, user_id, item_type, item_id, quantity, acquired_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id, item_type, item_id)
		DO UPDATE SET quantity = user_inventory.quantity + $5
	`
	_, err := r.q.Exec(ctx, query, uuid.New(), userID, model.ItemTypeFood, foodID, qty)
	if err != nil {
		return fmt.Errorf("failed to add food to inventory: %w", err)
	}
	return nil
}

// AddCharacter records character ownership. Ownership is binary: a
// repeat add is a no-op.
func (r *InventoryRepository) AddCharacter(ctx context.Context, userID, characterID uuid.UUID) error {
	const query = `
		INSERT INTO user_inventory (id, user_id, item_type, item_id, quantity, acquired_at)
		VALUES ($1, $2, $3, $4, 1, NOW())
		ON CONFLICT (user_id, item_type, item_id) DO NOTHING
	`
	_, err := r.q.Exec(ctx, query, uuid.New(), userID, model.ItemTypeCharacter, characterID)
	if err != nil {
		return fmt.Errorf("failed to add character to inventory: %w", err)
	}
	return nil
}

// Get retrieves one inventory row.
func (r *InventoryRepository) Get(ctx context.Context, userID uuid.UUID, itemType string, itemID uuid.UUID) (*model.InventoryItem, error) {
	const query = `
		SELECT ` + inventoryColumns + `
		FROM user_inventory
		WHERE user_id = $1 AND item_type = $2 AND item_id = $3
	`

	var item model.InventoryItem
	err := r.q.QueryRow(ctx, query, userID, itemType, itemID).Scan(
		&item.ID, &item.UserID, &item.ItemType, &item.ItemID, &item.Quantity, &item.AcquiredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get inventory item: %w", err)
	}
	return &item, nil
}

// Owns reports whether the user has the item with quantity > 0.
func (r *InventoryRepository) Owns(ctx context.Context, userID uuid.UUID, itemType string, itemID uuid.UUID) (bool, error) {
	const query = `
		SELECT EXISTS(
			SELECT 1 FROM user_inventory
			WHERE user_id = $1 AND item_type = $2 AND item_id = $3 AND quantity > 0
		)
	`

	var owns bool
	if err := r.q.QueryRow(ctx, query, userID, itemType, itemID).Scan(&owns); err != nil {
		return false, fmt.Errorf("failed to check item ownership: %w", err)
	}
	return owns, nil
}

// List returns all of a user's inventory rows, newest acquisitions first.
func (r *InventoryRepository) List(ctx context.Context, userID uuid.UUID) ([]*model.InventoryItem, error) {
	const query = `
		SELECT ` + inventoryColumns + `
		FROM user_inventory
		WHERE user_id = $1
		ORDER BY acquired_at DESC
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	defer rows.Close()

	var items []*model.InventoryItem
	for rows.Next() {
		var item model.InventoryItem
		err := rows.Scan(&item.ID, &item.UserID, &item.ItemType, &item.ItemID, &item.Quantity, &item.AcquiredAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory: %w", err)
	}
	return items, nil
}

// Decrement reduces an inventory row by qty. Returns ErrItemNotFound if
// there is no row, ErrInsufficientQuantity if the row holds fewer than
// qty units. A row reaching 0 is deleted.
func (r *InventoryRepository) Decrement(ctx context.Context, userID uuid.UUID, itemType string, itemID uuid.UUID, qty int) error {
	const update = `
		UPDATE user_inventory
		SET quantity = quantity - $4
		WHERE user_id = $1 AND item_type = $2 AND item_id = $3 AND quantity >= $4
	`
	result, err := r.q.Exec(ctx, update, userID, itemType, itemID, qty)
	if err != nil {
		return fmt.Errorf("failed to decrement inventory item: %w", err)
	}
	if result.RowsAffected() == 0 {
		// Distinguish a missing row from one with too few units.
		if _, err := r.Get(ctx, userID, itemType, itemID); err != nil {
			return err
		}
		return ErrInsufficientQuantity
	}

	const cleanup = `
		DELETE FROM user_inventory
		WHERE user_id = $1 AND item_type = $2 AND item_id = $3 AND quantity <= 0
	`
	if _, err := r.q.Exec(ctx, cleanup, userID, itemType, itemID); err != nil {
		return fmt.Errorf("failed to clean empty inventory row: %w", err)
	}
	return nil
}
