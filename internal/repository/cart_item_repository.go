package repository

import (
	"context"

	"app/internal/domain/model"
)

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID string) ([]model.CartItem, error)
	// 同一商品はプラス
	UpsertByCartAndProduct(ctx context.Context, cartID string, item model.CartItem) error
	// 明細が無ければErrNotFound
	SetQuantity(ctx context.Context, cartID string, productRef string, qty int64) error
	// 無くてもエラーにしない（冪等）
	DeleteByCartAndProduct(ctx context.Context, cartID string, productRef string) error
	DeleteAllByCartID(ctx context.Context, cartID string) error
}
