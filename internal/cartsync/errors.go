package cartsync

import "errors"

// エラー分類。リカバリ判定はKindだけを見る。
type ErrorKind string

const (
	KindNotAuthenticated ErrorKind = "NOT_AUTHENTICATED"
	KindInvalidInput     ErrorKind = "INVALID_INPUT"
	KindItemNotFound     ErrorKind = "ITEM_NOT_FOUND"
	KindCartNotFound     ErrorKind = "CART_NOT_FOUND"
	KindTransient        ErrorKind = "TRANSIENT"
)

// OperationError はカート同期の失敗1件。
// MessageはそのままNotifierに流せる文言。
type OperationError struct {
	Kind    ErrorKind
	Message string
}

func (e *OperationError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func NewOperationError(kind ErrorKind, message string) *OperationError {
	return &OperationError{
		Kind:    kind,
		Message: message,
	}
}

func AsOperationError(err error) (*OperationError, bool) {
	var oe *OperationError
	ok := errors.As(err, &oe)
	return oe, ok
}

// OperationError以外（素のネットワークエラーなど）はTransient扱いにする
func toOperationError(err error) *OperationError {
	if oe, ok := AsOperationError(err); ok {
		return oe
	}
	return NewOperationError(KindTransient, err.Error())
}
