package usecase

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// ステータスごとの機械可読コード
const (
	CodeBadRequest     = "BAD_REQUEST"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeForbidden      = "FORBIDDEN"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeDeclined       = "PAYMENT_DECLINED"
	CodeBadReference   = "BAD_REFERENCE"
	CodeNotImplemented = "NOT_IMPLEMENTED"
	CodeInternal       = "INTERNAL_ERROR"
)

// 決済拒否（署名・金額の検証失敗）
const StatusDeclined = http.StatusPaymentRequired

// コールバックが存在しない注文を指している
const StatusBadReference = http.StatusUnprocessableEntity

var codeByStatus = map[int]string{
	http.StatusBadRequest:          CodeBadRequest,
	http.StatusUnauthorized:        CodeUnauthorized,
	http.StatusForbidden:           CodeForbidden,
	http.StatusNotFound:            CodeNotFound,
	http.StatusConflict:            CodeConflict,
	StatusDeclined:                 CodeDeclined,
	StatusBadReference:             CodeBadReference,
	http.StatusNotImplemented:      CodeNotImplemented,
	http.StatusInternalServerError: CodeInternal,
}

type HTTPError struct {
	Status  int
	Code    string
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// CodeはStatusから決まる（未知のステータスはINTERNAL_ERROR）
func NewHTTPError(status int, message string) error {
	code, ok := codeByStatus[status]
	if !ok {
		code = CodeInternal
	}
	return &HTTPError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// DB等の失敗はログに残して500に丸める（中身は外に出さない）
func internalError(log *zap.Logger, op string, err error) error {
	log.Error("internal error", zap.String("op", op), zap.Error(err))
	return NewHTTPError(http.StatusInternalServerError, "db error")
}

func errNotImplemented() error {
	return NewHTTPError(http.StatusNotImplemented, "not implemented")
}
