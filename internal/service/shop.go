package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"finkid-backend/internal/apperr"
	"finkid-backend/internal/model"
	"finkid-backend/internal/pkg/db"
	"finkid-backend/internal/repository"
)

// PurchasedItem is the catalog view of a bought item.
type PurchasedItem struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	ItemType string          `json:"itemType"`
	Price    decimal.Decimal `json:"price"`
}

// PurchaseResult is the outcome of a shop purchase.
type PurchaseResult struct {
	NewBalance decimal.Decimal
	Item       *PurchasedItem
}

// InventoryEntry is an inventory row enriched with catalog detail.
type InventoryEntry struct {
	ItemID   uuid.UUID       `json:"itemId"`
	ItemType string          `json:"itemType"`
	Name     string          `json:"name"`
	ImageURL string          `json:"imageUrl"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// ShopService is the shop engine: catalog reads, the purchase
// transaction, and inventory consumption.
type ShopService struct {
	pool          *db.Pool
	catalogRepo   *repository.CatalogRepository
	inventoryRepo *repository.InventoryRepository
	walletSvc     *WalletService
}

// NewShopService creates a new ShopService instance.
func NewShopService(pool *db.Pool, catalogRepo *repository.CatalogRepository, inventoryRepo *repository.InventoryRepository, walletSvc *WalletService) *ShopService {
	return &ShopService{pool: pool, catalogRepo: catalogRepo, inventoryRepo: inventoryRepo, walletSvc: walletSvc}
}

// ListCharacters returns the character catalog.
func (s *ShopService) ListCharacters(ctx context.Context) ([]*model.Character, error) {
	return s.catalogRepo.ListCharacters(ctx)
}

// ListFoods returns the food catalog.
func (s *ShopService) ListFoods(ctx context.Context) ([]*model.Food, error) {
	return s.catalogRepo.ListFoods(ctx)
}

// GetInventory returns the user's inventory with catalog detail.
func (s *ShopService) GetInventory(ctx context.Context, userID uuid.UUID) ([]*InventoryEntry, error) {
	items, err := s.inventoryRepo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []*InventoryEntry{}, nil
	}

	characters, err := s.catalogRepo.ListCharacters(ctx)
	if err != nil {
		return nil, err
	}
	foods, err := s.catalogRepo.ListFoods(ctx)
	if err != nil {
		return nil, err
	}

	characterByID := make(map[uuid.UUID]*model.Character, len(characters))
	for _, c := range characters {
		characterByID[c.ID] = c
	}
	foodByID := make(map[uuid.UUID]*model.Food, len(foods))
	for _, f := range foods {
		foodByID[f.ID] = f
	}

	entries := make([]*InventoryEntry, 0, len(items))
	for _, item := range items {
		entry := &InventoryEntry{
			ItemID:   item.ItemID,
			ItemType: item.ItemType,
			Quantity: item.Quantity,
		}
		switch item.ItemType {
		case model.ItemTypeCharacter:
			if c, ok := characterByID[item.ItemID]; ok {
				entry.Name, entry.ImageURL, entry.Price = c.Name, c.ImageURL, c.Price
			}
		case model.ItemTypeFood:
			if f, ok := foodByID[item.ItemID]; ok {
				entry.Name, entry.ImageURL, entry.Price = f.Name, f.ImageURL, f.Price
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// UserOwns reports whether the user owns the item.
func (s *ShopService) UserOwns(ctx context.Context, userID uuid.UUID, itemID uuid.UUID, itemType string) (bool, error) {
	return s.inventoryRepo.Owns(ctx, userID, itemType, itemID)
}

// Purchase buys one unit of a catalog item: the debit, its ledger row,
// and the inventory effect commit or roll back together.
func (s *ShopService) Purchase(ctx context.Context, userID, itemID uuid.UUID, itemType string) (*PurchaseResult, error) {
	if itemType != model.ItemTypeCharacter && itemType != model.ItemTypeFood {
		return nil, apperr.Validation([]apperr.FieldError{{Field: "itemType", Message: "Must be \"character\" or \"food\""}})
	}

	var result *PurchaseResult
	err := db.RunInTx(ctx, s.pool.Pool, func(tx pgx.Tx) error {
		item, err := s.loadItem(ctx, tx, itemID, itemType)
		if err != nil {
			return err
		}

		var balance decimal.Decimal
		if item.Price.IsPositive() {
			wallet, err := s.walletSvc.DebitTx(ctx, tx, userID, item.Price, model.TxTypeShopPurchase,
				fmt.Sprintf("Purchased %s", item.Name))
			if err != nil {
				return err
			}
			balance = wallet.Balance
		} else {
			wallet, err := repository.NewWalletRepository(tx).GetOrCreate(ctx, userID)
			if err != nil {
				return err
			}
			balance = wallet.Balance
		}

		invRepo := s.inventoryRepo.WithTx(tx)
		switch itemType {
		case model.ItemTypeFood:
			err = invRepo.AddFood(ctx, userID, itemID, 1)
		case model.ItemTypeCharacter:
			err = invRepo.AddCharacter(ctx, userID, itemID)
		}
		if err != nil {
			return err
		}

		result = &PurchaseResult{NewBalance: balance, Item: item}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("item", result.Item.Name).
		Str("item_type", itemType).
		Msg("Shop purchase")
	return result, nil
}

func (s *ShopService) loadItem(ctx context.Context, tx pgx.Tx, itemID uuid.UUID, itemType string) (*PurchasedItem, error) {
	catalogRepo := s.catalogRepo.WithTx(tx)
	switch itemType {
	case model.ItemTypeCharacter:
		c, err := catalogRepo.GetCharacter(ctx, itemID)
		if err != nil {
			if errors.Is(err, repository.ErrCharacterNotFound) {
				return nil, apperr.New(apperr.KindNotFound, "Item not found")
			}
			return nil, err
		}
		return &PurchasedItem{ID: c.ID, Name: c.Name, ItemType: itemType, Price: c.Price}, nil
	default:
		f, err := catalogRepo.GetFood(ctx, itemID)
		if err != nil {
			if errors.Is(err, repository.ErrFoodNotFound) {
				return nil, apperr.New(apperr.KindNotFound, "Item not found")
			}
			return nil, err
		}
		return &PurchasedItem{ID: f.ID, Name: f.Name, ItemType: itemType, Price: f.Price}, nil
	}
}

// ConsumeItem removes qty units of an owned item in its own transaction.
func (s *ShopService) ConsumeItem(ctx context.Context, userID, itemID uuid.UUID, itemType string, qty int) error {
	return db.RunInTx(ctx, s.pool.Pool, func(tx pgx.Tx) error {
		return s.ConsumeItemTx(ctx, tx, userID, itemID, itemType, qty)
	})
}

// ConsumeItemTx removes qty units inside the caller's transaction. The
// row is deleted when it reaches zero.
func (s *ShopService) ConsumeItemTx(ctx context.Context, tx pgx.Tx, userID, itemID uuid.UUID, itemType string, qty int) error {
	if qty <= 0 {
		return apperr.New(apperr.KindInvalidAmount, "Quantity must be greater than zero")
	}

	err := s.inventoryRepo.WithTx(tx).Decrement(ctx, userID, itemType, itemID, qty)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return apperr.New(apperr.KindNotFound, "Item not in inventory")
		}
		if errors.Is(err, repository.ErrInsufficientQuantity) {
			return apperr.New(apperr.KindInsufficientQuantity, "Not enough of that item")
		}
		return err
	}
	return nil
}
