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

// CatalogRepository handles the read-mostly character and food catalog.
type CatalogRepository struct {
	q db.Querier
}

// NewCatalogRepository creates a new CatalogRepository instance.
func NewCatalogRepository(q db.Querier) *CatalogRepository {
	return &CatalogRepository{q: q}
}

// WithTx returns a copy bound to the given transaction.
func (r *CatalogRepository) WithTx(tx pgx.Tx) *CatalogRepository {
	return &CatalogRepository{q: tx}
}

const characterColumns = `id, name, image_url, is_starter, price`

func scanCharacter(row pgx.Row) (*model.Character, error) {
	var c model.Character
	if err := row.Scan(&c.ID, &c.Name, &c.ImageURL, &c.IsStarter, &c.Price); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCharacters returns the character catalog ordered by price then name.
func (r *CatalogRepository) ListCharacters(ctx context.Context) ([]*model.Character, error) {
	const query = `SELECT ` + characterColumns + ` FROM characters ORDER BY price ASC, name ASC`
	return r.queryCharacters(ctx, query)
}

// ListStarterCharacters returns the characters eligible for onboarding.
func (r *CatalogRepository) ListStarterCharacters(ctx context.Context) ([]*model.Character, error) {
	const query = `SELECT ` + characterColumns + ` FROM characters WHERE is_starter ORDER BY price ASC, name ASC`
	return r.queryCharacters(ctx, query)
}

func (r *CatalogRepository) queryCharacters(ctx context.Context, query string) ([]*model.Character, error) {
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	defer rows.Close()

	var characters []*model.Character
	for rows.Next() {
		var c model.Character
		if err := rows.Scan(&c.ID, &c.Name, &c.ImageURL, &c.IsStarter, &c.Price); err != nil {
			return nil, fmt.Errorf("failed to scan character: %w", err)
		}
		characters = append(characters, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating characters: %w", err)
	}
	return characters, nil
}

// GetCharacter retrieves one character by id.
func (r *CatalogRepository) GetCharacter(ctx context.Context, id uuid.UUID) (*model.Character, error) {
	const query = `SELECT ` + characterColumns + ` FROM characters WHERE id = $1`

	c, err := scanCharacter(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCharacterNotFound
		}
		return nil, fmt.Errorf("failed to get character: %w", err)
	}
	return c, nil
}

const foodColumns = `id, name, nutrition_value, price, image_url`

// ListFoods returns the food catalog ordered by price then name.
func (r *CatalogRepository) ListFoods(ctx context.Context) ([]*model.Food, error) {
	const query = `SELECT ` + foodColumns + ` FROM foods ORDER BY price ASC, name ASC`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list foods: %w", err)
	}
	defer rows.Close()

	var foods []*model.Food
	for rows.Next() {
		var f model.Food
		if err := rows.Scan(&f.ID, &f.Name, &f.NutritionValue, &f.Price, &f.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan food: %w", err)
		}
		foods = append(foods, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating foods: %w", err)
	}
	return foods, nil
}

// GetFood retrieves one food by id.
func (r *CatalogRepository) GetFood(ctx context.Context, id uuid.UUID) (*model.Food, error) {
	const query = `SELECT ` + foodColumns + ` FROM foods WHERE id = $1`

	var f model.Food
	err := r.q.QueryRow(ctx, query, id).Scan(&f.ID, &f.Name, &f.NutritionValue, &f.Price, &f.ImageURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFoodNotFound
		}
		return nil, fmt.Errorf("failed to get food: %w", err)
	}
	return &f, nil
}

// CountCharacters returns the number of characters in the catalog.
func (r *CatalogRepository) CountCharacters(ctx context.Context) (int, error) {
	var count int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM characters`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count characters: %w", err)
	}
	return count, nil
}

// InsertCharacter inserts a catalog character with a fixed id (seeding).
func (r *CatalogRepository) InsertCharacter(ctx context.Context, c *model.Character) error {
	const query = `
		INSERT INTO characters (id, name, image_url, is_starter, price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, query, c.ID, c.Name, c.ImageURL, c.IsStarter, c.Price); err != nil {
		return fmt.Errorf("failed to insert character: %w", err)
	}
	return nil
}

// InsertFood inserts a catalog food with a fixed id (seeding).
func (r *CatalogRepository) InsertFood(ctx context.Context, f *model.Food) error {
	const query = `
		INSERT INTO foods (id, name, nutrition_value, price, image_url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, query, f.ID, f.Name, f.NutritionValue, f.Price, f.ImageURL); err != nil {
		return fmt.Errorf("failed to insert food: %w", err)
	}
	return nil
}
