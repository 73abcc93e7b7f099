package cartsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Transport はカートAPIへのリモート操作5つ。
// 成功は常に完全なSnapshot（差分は返らない）。失敗はOperationErrorに分類済み。
// リトライはここではしない（リトライは別操作になり得るのでStoreの責務）。
type Transport interface {
	Fetch(ctx context.Context, principal string) (Snapshot, error)
	UpsertItem(ctx context.Context, principal string, productRef string, quantity int64) (Snapshot, error)
	SetQuantity(ctx context.Context, principal string, productRef string, quantity int64) (Snapshot, error)
	DeleteItem(ctx context.Context, principal string, productRef string) (Snapshot, error)
	DeleteAll(ctx context.Context, principal string) (Snapshot, error)
}

// サーバのエラーボディに入る理由文字列
const (
	reasonItemNotFound = "Item not found in cart"
	reasonCartNotFound = "Cart not found"
)

// HTTPTransport はカートAPIのHTTPクライアント実装。ステートレス。
type HTTPTransport struct {
	BaseURL string
	Token   string // bearerトークン（空なら付けない）
	HTTP    *http.Client
}

func NewHTTPTransport(baseURL string, token string) *HTTPTransport {
	return &HTTPTransport{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type cartResponse struct {
	Items []LineItem `json:"items"`
	Total int64      `json:"total"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type upsertItemRequest struct {
	ProductRef string `json:"product_ref"`
	Quantity   int64  `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity int64 `json:"quantity"`
}

func (t *HTTPTransport) Fetch(ctx context.Context, principal string) (Snapshot, error) {
	path := "/carts/" + url.PathEscape(principal)
	return t.doJSON(ctx, OpFetch, http.MethodGet, path, nil)
}

func (t *HTTPTransport) UpsertItem(ctx context.Context, principal string, productRef string, quantity int64) (Snapshot, error) {
	path := "/carts/" + url.PathEscape(principal) + "/items"
	return t.doJSON(ctx, OpUpsertItem, http.MethodPost, path, upsertItemRequest{
		ProductRef: productRef,
		Quantity:   quantity,
	})
}

func (t *HTTPTransport) SetQuantity(ctx context.Context, principal string, productRef string, quantity int64) (Snapshot, error) {
	path := "/carts/" + url.PathEscape(principal) + "/items/" + url.PathEscape(productRef)
	return t.doJSON(ctx, OpSetQuantity, http.MethodPut, path, setQuantityRequest{
		Quantity: quantity,
	})
}

func (t *HTTPTransport) DeleteItem(ctx context.Context, principal string, productRef string) (Snapshot, error) {
	path := "/carts/" + url.PathEscape(principal) + "/items/" + url.PathEscape(productRef)
	return t.doJSON(ctx, OpDeleteItem, http.MethodDelete, path, nil)
}

func (t *HTTPTransport) DeleteAll(ctx context.Context, principal string) (Snapshot, error) {
	path := "/carts/" + url.PathEscape(principal) + "/items"
	return t.doJSON(ctx, OpDeleteAll, http.MethodDelete, path, nil)
}

// doJSON はリクエスト1回を投げて、結果をSnapshotかOperationErrorに正規化する。
func (t *HTTPTransport) doJSON(ctx context.Context, op Op, method string, path string, body interface{}) (Snapshot, error) {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return Snapshot{}, NewOperationError(KindTransient, "encode request: "+err.Error())
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.BaseURL+path, reqBody)
	if err != nil {
		return Snapshot{}, NewOperationError(KindTransient, "build request: "+err.Error())
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.Token != "" {
		req.Header.Set("Authorization", "Bearer "+t.Token)
	}

	resp, err := t.HTTP.Do(req)
	if err != nil {
		return Snapshot{}, NewOperationError(KindTransient, "cart api unreachable: "+err.Error())
	}

	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Snapshot{}, NewOperationError(KindTransient, "read response: "+err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Snapshot{}, classify(op, resp.StatusCode, data)
	}

	var out cartResponse
	if err := json.Unmarshal(data, &out); err != nil {
		// 2xxでもボディが壊れていたら信用しない
		return Snapshot{}, NewOperationError(KindTransient, "malformed response body")
	}

	return Snapshot{Items: out.Items}, nil
}

// classify は非2xxレスポンスをちょうど1つのKindに落とす。
// 理由文字列が最優先。ボディが壊れていても理由なしとして続行する。
func classify(op Op, status int, body []byte) *OperationError {
	var reason string
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil {
		reason = er.Error
	}

	switch reason {
	case reasonItemNotFound:
		return NewOperationError(KindItemNotFound, reasonItemNotFound)
	case reasonCartNotFound:
		return NewOperationError(KindCartNotFound, reasonCartNotFound)
	}

	if op == OpFetch && status == http.StatusNotFound {
		return NewOperationError(KindCartNotFound, reasonCartNotFound)
	}
	if status == http.StatusBadRequest {
		msg := reason
		if msg == "" {
			msg = "invalid request"
		}
		return NewOperationError(KindInvalidInput, msg)
	}

	msg := reason
	if msg == "" {
		msg = fmt.Sprintf("cart api returned status %d", status)
	}
	return NewOperationError(KindTransient, msg)
}
