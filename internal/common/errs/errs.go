package errs

import (
	"errors"
	"fmt"
)

// Kind 业务错误分类，边界层按分类映射 HTTP 状态码。
type Kind int

const (
	KindValidation    Kind = iota // 入参/业务规则校验失败
	KindNotFound                  // 引用的实体不存在
	KindAuthorization             // 角色权限不足
	KindInternal                  // 存储等基础设施故障
)

// Error 统一业务错误。EntityID 可选，携带导致拒绝的实体 ID
// （例如阻塞新里程读数的未支付服务单）。
type Error struct {
	Kind     Kind
	Message  string
	EntityID string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation 创建校验错误。
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// ValidationWithEntity 创建携带阻塞实体 ID 的校验错误。
func ValidationWithEntity(message, entityID string) *Error {
	return &Error{Kind: KindValidation, Message: message, EntityID: entityID}
}

// NotFound 创建未找到错误。
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Authorization 创建权限错误。
func Authorization(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

// Internal 包装存储等底层错误。
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf 取出错误分类；非业务错误一律按 KindInternal 处理。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// EntityIDOf 取出错误携带的实体 ID（没有则为空串）。
func EntityIDOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.EntityID
	}
	return ""
}

// IsValidation 判断是否校验错误。
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsNotFound 判断是否未找到错误。
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
