// Package types 定义服务层共享的错误类型
package types

import (
	"errors"
	"fmt"
)

// Code 对外暴露的错误码
type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "TOOL_NOT_FOUND"
	CodeRunNotFound  Code = "RUN_NOT_FOUND"
	CodeInternal     Code = "INTERNAL_ERROR"
)

// Error 服务层错误
// Fields 只在 VALIDATION_ERROR 时携带，key 为字段名
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation 参数校验失败
func Validation(message string, fields map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: message, Fields: fields}
}

// FieldError 单字段校验失败
func FieldError(field, message string) *Error {
	return Validation(message, map[string]string{field: message})
}

// NotFound 工具不存在或未公开
func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}

// RunNotFound 运行记录不存在
func RunNotFound(message string) *Error {
	return &Error{Code: CodeRunNotFound, Message: message}
}

// Forbidden 禁止的操作
func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

// Unauthorized 未认证
func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message}
}

// Internal 内部错误，err 为原始错误
func Internal(message string, err error) *Error {
	return &Error{Code: CodeInternal, Message: message, Err: err}
}

// CodeOf 返回错误码，非 *Error 一律视为 INTERNAL_ERROR
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
