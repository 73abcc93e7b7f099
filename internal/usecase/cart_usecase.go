package usecase

import (
	repo "app/internal/repository"
	"context"
	"errors"
	"net/http"

	"app/internal/domain/model"
)

// HTTPError はusecaseからhandlerへ返すエラーの共通形。
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return e.Message
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// クライアントの同期エンジンが理由文字列で分類するので、この2つの文言は変えない
const (
	MsgItemNotFound = "Item not found in cart"
	MsgCartNotFound = "Cart not found"
)

// CartUsecase は /carts の業務ロジックです。
// Repositoryは Cart と CartItem を分離して受け取ります。
type CartUsecase struct {
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
}

func NewCartUsecase(
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
) *CartUsecase {
	return &CartUsecase{
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
	}
}

// CartItemResponse はワイヤ契約の明細1行。
// name/price/shop_name は追加時点の転記値を返す。
type CartItemResponse struct {
	ProductRef string `json:"product_ref"`
	Name       string `json:"name"`
	Price      int64  `json:"price"`
	ShopName   string `json:"shop_name"`
	Quantity   int64  `json:"quantity"`
}

type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	Total int64              `json:"total"`
}

type AddItemInput struct {
	ProductRef string
	Quantity   int64
}

type SetQuantityInput struct {
	Quantity int64
}

// GetCart はカート取得（無ければ作って空を返す）。
func (u *CartUsecase) GetCart(ctx context.Context, principal string) (CartResponse, error) {
	if principal == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cart, err := u.cartRepo.GetOrCreateByPrincipal(ctx, principal)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// AddItem はカートに追加（同一商品は数量加算）。
// 商品のname/price/shop_nameをこの時点で明細に転記する。
func (u *CartUsecase) AddItem(ctx context.Context, principal string, in AddItemInput) (CartResponse, error) {
	if principal == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductRef == "" {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_ref")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	// カート取得（無ければ作成）
	cart, err := u.cartRepo.GetOrCreateByPrincipal(ctx, principal)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	// 商品チェック（公開のみ）
	p, err := u.productRepo.FindByRef(ctx, in.ProductRef)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_ref")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !p.IsActive {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_ref")
	}

	// Upsert（同一商品は加算）
	item := model.CartItem{
		ProductRef: p.Ref,
		Name:       p.Name,
		Price:      p.Price,
		ShopName:   p.ShopName,
		Quantity:   in.Quantity,
	}
	if err := u.cartItemRepo.UpsertByCartAndProduct(ctx, cart.ID, item); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// SetQuantity は数量変更。
// ここではカートを作らない。カートや明細が無い場合は理由文字列付きの404を返し、
// 復旧のしかた（upsertし直す/カートを作らせる）はクライアント側に判断させる。
func (u *CartUsecase) SetQuantity(ctx context.Context, principal string, productRef string, in SetQuantityInput) (CartResponse, error) {
	if principal == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productRef == "" {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_ref")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	cart, err := u.cartRepo.FindByPrincipal(ctx, principal)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, MsgCartNotFound)
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.cartItemRepo.SetQuantity(ctx, cart.ID, productRef, in.Quantity); err != nil {
		if err == repo.ErrNotFound {
			return CartResponse{}, NewHTTPError(http.StatusNotFound, MsgItemNotFound)
		}
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// DeleteItem は明細削除。既に消えていても成功として現状を返す（冪等）。
func (u *CartUsecase) DeleteItem(ctx context.Context, principal string, productRef string) (CartResponse, error) {
	if principal == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productRef == "" {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_ref")
	}

	cart, err := u.cartRepo.FindByPrincipal(ctx, principal)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, MsgCartNotFound)
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.cartItemRepo.DeleteByCartAndProduct(ctx, cart.ID, productRef); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// DeleteAll は全明細削除。カートが無ければ空を返すだけ（冪等）。
func (u *CartUsecase) DeleteAll(ctx context.Context, principal string) (CartResponse, error) {
	if principal == "" {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cart, err := u.cartRepo.FindByPrincipal(ctx, principal)
	if err == repo.ErrNotFound {
		return CartResponse{Items: []CartItemResponse{}}, nil
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.cartItemRepo.DeleteAllByCartID(ctx, cart.ID); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// cartIDの明細をまとめてCartResponseを作る。
func (u *CartUsecase) buildCartResponse(ctx context.Context, cartID string) (CartResponse, error) {
	items, err := u.cartItemRepo.ListByCartID(ctx, cartID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	respItems := make([]CartItemResponse, 0, len(items))
	var total int64 = 0

	for _, it := range items {
		respItems = append(respItems, CartItemResponse{
			ProductRef: it.ProductRef,
			Name:       it.Name,
			Price:      it.Price,
			ShopName:   it.ShopName,
			Quantity:   it.Quantity,
		})

		total += it.Price * it.Quantity
	}

	return CartResponse{Items: respItems, Total: total}, nil
}
