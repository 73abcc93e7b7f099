package model

import "time"

// 商品カタログの参照用レコード。
// カート側が見るのはRefと転記元のname/price/shop_nameだけ。
type Product struct {
	Ref       string    `gorm:"type:varchar(64);primaryKey" json:"ref"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Price     int64     `gorm:"not null" json:"price"`
	ShopName  string    `gorm:"type:varchar(255);not null" json:"shop_name"`
	IsActive  bool      `gorm:"not null;default:false" json:"is_active"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
