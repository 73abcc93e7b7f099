package model

import "time"

// 1プリンシパルにつきカートは1つ。
// 無い状態でのfetchで作る（レイジー実体化）。
type Cart struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Principal string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"principal"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
