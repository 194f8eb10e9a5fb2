package service

import (
	"errors"

	"boatbet/models"
)

// Stable error codes returned to callers in structured results
const (
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInsufficientPoints = "INSUFFICIENT_POINTS"
	CodeDeadlinePassed     = "DEADLINE_PASSED"
	CodeParseFailure       = "PARSE_FAILURE"
	CodeDuplicateCharge    = "DUPLICATE_CHARGE"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInternal           = "INTERNAL"
)

var errorMessages = map[string]string{
	CodeNotFound:           "対象が見つかりません",
	CodeUnauthorized:       "この操作を行う権限がありません",
	CodeInsufficientPoints: "ポイントが不足しています",
	CodeDeadlinePassed:     "締切時刻を過ぎています",
	CodeParseFailure:       "予想データを読み取れません",
	CodeDuplicateCharge:    "すでに購入済みです",
	CodeInvalidRequest:     "入力内容が正しくありません",
	CodeInternal:           "処理に失敗しました",
}

// ErrorCode maps a business error to its stable code
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, models.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, models.ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, models.ErrInsufficientPoints):
		return CodeInsufficientPoints
	case errors.Is(err, models.ErrDeadlinePassed):
		return CodeDeadlinePassed
	case errors.Is(err, models.ErrParseFailure):
		return CodeParseFailure
	case errors.Is(err, models.ErrDuplicateCharge):
		return CodeDuplicateCharge
	case errors.Is(err, models.ErrEmptyFormation),
		errors.Is(err, models.ErrInvalidStake),
		errors.Is(err, models.ErrInvalidBetType),
		errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	default:
		return CodeInternal
	}
}

// ErrorMessage returns the user-facing message for a code
func ErrorMessage(code string) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return errorMessages[CodeInternal]
}

// ErrInvalidRequest marks malformed input rejected before touching the store
var ErrInvalidRequest = errors.New("invalid request")

func unlockFailure(code string) *models.UnlockResult {
	return &models.UnlockResult{Success: false, Error: code, Message: ErrorMessage(code)}
}

func publishFailure(code, message string) *models.PublishResult {
	if message == "" {
		message = ErrorMessage(code)
	}
	return &models.PublishResult{Success: false, Error: code, Message: message}
}
