package model

import (
	"errors"
	"fmt"
)

// ErrAdminNotFound は権限ストアに該当行が存在しないことを表す。
// 「管理者ではない」という正常な結果であり、障害ではない。
var ErrAdminNotFound = errors.New("admin entry not found")

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, transport, auth, session, booking, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidSpaceName   = "INVALID_SPACE_NAME"
	ErrCodeInvalidCapacity    = "INVALID_CAPACITY"
	ErrCodeInvalidDate        = "INVALID_DATE"
	ErrCodeNotAuthenticated   = "NOT_AUTHENTICATED"
	ErrCodeOperationInFlight  = "OPERATION_IN_FLIGHT"
	ErrCodeFetchFailed        = "FETCH_FAILED"
	ErrCodeBookingRejected    = "BOOKING_REJECTED"
	ErrCodeSpaceRejected      = "SPACE_REJECTED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeEmailNotVerified   = "EMAIL_NOT_VERIFIED"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeSpaceNotFound      = "SPACE_NOT_FOUND"
	ErrCodeSpaceAtCapacity    = "SPACE_AT_CAPACITY"
)

// NewInvalidSpaceNameError はスペース名が空の場合のローカル検証エラーを生成する。
func NewInvalidSpaceNameError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSpaceName,
		Message:  "スペース名が入力されていません。",
		Category: "validation",
		Action:   "スペース名を入力してください。",
	}
}

// NewInvalidCapacityError は定員が1未満の場合のローカル検証エラーを生成する。
func NewInvalidCapacityError(capacity int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCapacity,
		Message:  fmt.Sprintf("無効な定員です: %d", capacity),
		Category: "validation",
		Action:   "定員には1以上の整数を指定してください。",
	}
}

// NewInvalidDateError は予約日が未選択の場合のローカル検証エラーを生成する。
func NewInvalidDateError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDate,
		Message:  "予約日が選択されていません。",
		Category: "validation",
		Action:   "カレンダー日付（YYYY-MM-DD）を選択してください。",
	}
}

// NewNotAuthenticatedError は未認証状態での操作に対するエラーを生成する。
func NewNotAuthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeNotAuthenticated,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewOperationInFlightError は同種操作の二重送信に対するローカル拒否エラーを生成する。
func NewOperationInFlightError(operation string) *APIError {
	return &APIError{
		Code:     ErrCodeOperationInFlight,
		Message:  fmt.Sprintf("同じ操作（%s）が実行中です。", operation),
		Category: "validation",
		Action:   "実行中の操作が完了してから再度お試しください。",
	}
}

// NewFetchFailedError は一覧取得の失敗（ネットワーク到達不能・非200応答）を表すエラーを生成する。
func NewFetchFailedError(what string, cause error) *APIError {
	return &APIError{
		Code:     ErrCodeFetchFailed,
		Message:  fmt.Sprintf("%sの取得に失敗しました: %s", what, cause.Error()),
		Category: "transport",
		Action:   "接続を確認し、再読み込みしてください。",
	}
}

// NewBookingRejectedError はバックエンドが予約作成を拒否した場合のエラーを生成する。
// bodyにはバックエンドのレスポンスボディテキストをそのまま格納する。
func NewBookingRejectedError(body string) *APIError {
	return &APIError{
		Code:     ErrCodeBookingRejected,
		Message:  body,
		Category: "booking",
		Action:   "内容を確認して再度お試しください。",
	}
}

// NewSpaceRejectedError はバックエンドがスペース登録を拒否した場合のエラーを生成する。
// bodyにはバックエンドのレスポンスボディテキストをそのまま格納する。
func NewSpaceRejectedError(body string) *APIError {
	return &APIError{
		Code:     ErrCodeSpaceRejected,
		Message:  body,
		Category: "booking",
		Action:   "内容を確認して再度お試しください。",
	}
}
