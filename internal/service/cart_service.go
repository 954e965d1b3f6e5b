package service

import (
	"context"
	"errors"
	"fmt"

	"shop-api/internal/models"
	"shop-api/internal/store"
	"shop-api/internal/util"

	"go.uber.org/zap"
)

// CartService manages the caller's cart. Every call is scoped to the given identity.
type CartService struct {
	store  *store.Store
	logger *zap.Logger
}

func NewCartService(store *store.Store) *CartService {
	return &CartService{store: store, logger: util.GetLogger()}
}

// AddItem adds quantity of the product to the cart, merging into an existing line
func (s *CartService) AddItem(ctx context.Context, id models.Identity, productID int64, quantity int) (*models.CartLine, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	verr := &ValidationError{}
	if quantity < 1 {
		verr.Add("quantity", msgMinOne)
	}
	product, err := s.store.GetProductByID(ctx, productID)
	switch {
	case errors.Is(err, store.ErrNotFound) || (err == nil && !product.IsActive):
		verr.Add("product_id", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", productID))
	case err != nil:
		return nil, err
	}
	if err := verr.OrNil(); err != nil {
		reason := "invalid_quantity"
		if _, ok := verr.Fields["product_id"]; ok {
			reason = "invalid_product"
		}
		util.CartAddRejectedTotal.WithLabelValues(reason).Inc()
		return nil, err
	}

	line, err := s.store.UpsertCartLine(ctx, id.UserID, productID, quantity)
	if err != nil {
		return nil, err
	}

	util.CartItemsAddedTotal.Inc()
	s.logger.Debug("cart line upserted",
		zap.Int64("user_id", id.UserID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", line.Quantity))
	return line, nil
}

// UpdateQuantity sets the absolute quantity of one of the caller's lines
func (s *CartService) UpdateQuantity(ctx context.Context, id models.Identity, lineID int64, quantity int) (*models.CartLine, error) {
	ctx, span := util.StartSpan(ctx, "CartService.UpdateQuantity")
	defer span.End()

	if quantity < 1 {
		return nil, NewValidationError("quantity", msgMinOne)
	}
	if err := s.store.UpdateCartLineQuantity(ctx, id.UserID, lineID, quantity); err != nil {
		return nil, err
	}
	return s.store.GetCartLine(ctx, id.UserID, lineID)
}

func (s *CartService) RemoveItem(ctx context.Context, id models.Identity, lineID int64) error {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveItem")
	defer span.End()

	return s.store.DeleteCartLine(ctx, id.UserID, lineID)
}

func (s *CartService) GetItem(ctx context.Context, id models.Identity, lineID int64) (*models.CartLine, error) {
	ctx, span := util.StartSpan(ctx, "CartService.GetItem")
	defer span.End()

	return s.store.GetCartLine(ctx, id.UserID, lineID)
}

func (s *CartService) ListItems(ctx context.Context, id models.Identity) ([]models.CartLine, error) {
	ctx, span := util.StartSpan(ctx, "CartService.ListItems")
	defer span.End()

	return s.store.ListCartLines(ctx, id.UserID)
}

// Total sums the caller's lines at current catalog prices
func (s *CartService) Total(ctx context.Context, id models.Identity) (models.CartTotal, error) {
	ctx, span := util.StartSpan(ctx, "CartService.Total")
	defer span.End()

	lines, err := s.store.ListCartLines(ctx, id.UserID)
	if err != nil {
		return models.CartTotal{}, err
	}
	return models.CartTotals(lines), nil
}
