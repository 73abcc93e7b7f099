package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

type ProductRepository interface {
	FindByRef(ctx context.Context, productRef string) (model.Product, error)
}
