package service

import "errors"

// 服务层错误分类，由 middleware.ErrorHandler 统一映射为 HTTP 状态码。
var (
	ErrValidation      = errors.New("validation failed")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionBusy     = errors.New("session is busy, try again")
	ErrUpstream        = errors.New("completion service failed")
	ErrStore           = errors.New("session store failed")
)

// ValidationError 携带可以直接返回给客户端的说明。
type ValidationError struct {
	Message string
}

// NewValidationError 创建一个 ValidationError。
func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

func (e *ValidationError) Error() string { return e.Message }

// Is 使 errors.Is(err, ErrValidation) 成立。
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
