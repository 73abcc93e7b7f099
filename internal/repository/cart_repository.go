package repository

import (
	"context"

	"app/internal/domain/model"
)

type CartRepository interface {
	// 無ければ作る（fetchのレイジー実体化）
	GetOrCreateByPrincipal(ctx context.Context, principal string) (model.Cart, error)
	// 作らない版。無ければErrNotFound
	FindByPrincipal(ctx context.Context, principal string) (model.Cart, error)
}
