package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	ErrCodeInternalServer ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation     ErrorCode = "VALIDATION_ERROR"
	ErrCodeRateLimited    ErrorCode = "RATE_LIMITED"

	// 启动期或首次使用时的致命配置错误
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// 嵌入/生成协作方
	ErrCodeCollaborator ErrorCode = "COLLABORATOR_ERROR"
	ErrCodeTimeout      ErrorCode = "TIMEOUT"
)

// ErrorType 错误类型
type ErrorType int

const (
	ErrorTypeSystem ErrorType = iota
	ErrorTypeValidation
	ErrorTypeExternal
)

// String 错误类型字符串
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeSystem:
		return "system"
	case ErrorTypeValidation:
		return "validation"
	case ErrorTypeExternal:
		return "external"
	default:
		return "unknown"
	}
}

// AppError 应用错误结构体
type AppError struct {
	Code      ErrorCode   `json:"code"`
	Message   string      `json:"message"`
	Type      ErrorType   `json:"type"`
	HTTPCode  int         `json:"-"`
	Details   interface{} `json:"details,omitempty"`
	Cause     error       `json:"-"`
	RequestID string      `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加错误详情
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause 添加错误原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithRequestID 添加请求ID
func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

// NewConfigurationError 索引/语料/模型维度等配置不一致
func NewConfigurationError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeConfiguration,
		Message:  message,
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
	}
}

// NewCollaboratorError 外部协作方调用失败，不重试
func NewCollaboratorError(collaborator string, cause error) *AppError {
	return &AppError{
		Code:     ErrCodeCollaborator,
		Message:  fmt.Sprintf("%s collaborator failed", collaborator),
		Type:     ErrorTypeExternal,
		HTTPCode: http.StatusBadGateway,
		Details:  map[string]string{"collaborator": collaborator},
		Cause:    cause,
	}
}

// NewTimeoutError 请求超时
func NewTimeoutError(stage string, cause error) *AppError {
	return &AppError{
		Code:     ErrCodeTimeout,
		Message:  fmt.Sprintf("request timed out during %s", stage),
		Type:     ErrorTypeExternal,
		HTTPCode: http.StatusGatewayTimeout,
		Cause:    cause,
	}
}

// NewValidationError 创建验证错误
func NewValidationError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeValidation,
		Message:  message,
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewRateLimitError 请求过于频繁
func NewRateLimitError() *AppError {
	return &AppError{
		Code:     ErrCodeRateLimited,
		Message:  "Too many requests",
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusTooManyRequests,
	}
}

// NewSystemError 创建系统错误
func NewSystemError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
	}
}

// NewInternalError 未分类的内部错误
func NewInternalError(message string, cause error) *AppError {
	return NewSystemError(ErrCodeInternalServer, message).WithCause(cause)
}

// IsCode 检查错误链中是否包含指定错误码
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetAppError 获取AppError，如果不是则包装为系统错误
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError("Internal server error", err)
}

// Response 构建错误响应体，外部与系统错误不暴露详情
func Response(appErr *AppError) map[string]interface{} {
	body := map[string]interface{}{
		"code":    string(appErr.Code),
		"message": appErr.Message,
		"type":    appErr.Type.String(),
	}
	if appErr.Details != nil && appErr.Type == ErrorTypeValidation {
		body["details"] = appErr.Details
	}
	resp := map[string]interface{}{
		"success": false,
		"error":   body,
	}
	if appErr.RequestID != "" {
		resp["request_id"] = appErr.RequestID
	}
	return resp
}
