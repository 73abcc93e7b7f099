package repository

import (
	"app/internal/domain/model"
	repo "app/internal/repository"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartItemGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartItemGormRepository(db *gorm.DB) *CartItemGormRepository {
	return &CartItemGormRepository{db: db}
}

// カート明細を一覧取得（返却順は安定させる）
func (r *CartItemGormRepository) ListByCartID(ctx context.Context, cartID string) ([]model.CartItem, error) {
	var items []model.CartItem

	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, err
	}

	return items, nil
}

// 同一商品は数量加算。転記列（name/price/shop_name）は追加時点のまま維持する
func (r *CartItemGormRepository) UpsertByCartAndProduct(ctx context.Context, cartID string, item model.CartItem) error {

	if item.Quantity <= 0 {
		return errors.New("invalid quantity")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.CartItem

		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("cart_id = ? AND product_ref = ?", cartID, item.ProductRef).
			First(&existing).Error

		if err == nil {
			// 既存ありだったら数量を増やす
			newQty := existing.Quantity + item.Quantity

			res := tx.Model(&model.CartItem{}).
				Where("id = ?", existing.ID).
				Update("quantity", newQty)

			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return repo.ErrNotFound
			}
			return nil
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		//無い場合は新規作成
		now := time.Now()
		newItem := model.CartItem{
			CartID:     cartID,
			ProductRef: item.ProductRef,
			Name:       item.Name,
			Price:      item.Price,
			ShopName:   item.ShopName,
			Quantity:   item.Quantity,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		if err := tx.Create(&newItem).Error; err != nil {
			return err
		}

		return nil
	})
}

// 明細の数量を更新。明細が無ければErrNotFound
func (r *CartItemGormRepository) SetQuantity(ctx context.Context, cartID string, productRef string, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("cart_id = ? AND product_ref = ?", cartID, productRef).
		Update("quantity", qty)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細を削除。既に無くてもエラーにしない（冪等）
func (r *CartItemGormRepository) DeleteByCartAndProduct(ctx context.Context, cartID string, productRef string) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND product_ref = ?", cartID, productRef).
		Delete(&model.CartItem{}).Error
}

// 指定カートの明細を全削除
func (r *CartItemGormRepository) DeleteAllByCartID(ctx context.Context, cartID string) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&model.CartItem{}).Error
}
