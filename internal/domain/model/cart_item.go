package model

import "time"

// カートの明細
// name/price/shop_name は追加時点の商品から転記して必ず保存。
// 同一カート内で同じ商品は1行まで（個数はquantityで表す）。
type CartItem struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID     string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_cart_product" json:"cart_id"`
	ProductRef string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_cart_product" json:"product_ref"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	Price      int64     `gorm:"not null" json:"price"`
	ShopName   string    `gorm:"type:varchar(255);not null" json:"shop_name"`
	Quantity   int64     `gorm:"not null" json:"quantity"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
