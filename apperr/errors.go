// Package apperr 定义业务错误分类，handler 根据 Kind 决定 HTTP 状态码和业务码。
package apperr

import (
	"errors"
	"fmt"
)

// Kind 错误分类
type Kind string

const (
	KindValidation     Kind = "validation"      // 参数校验失败，变更前拒绝
	KindInvalidNesting Kind = "invalid_nesting" // 回复的回复
	KindNotFound       Kind = "not_found"
	KindForbidden      Kind = "forbidden"
	KindConflict       Kind = "conflict"
	KindExternal       Kind = "external" // 外部依赖失败，不会直接暴露给调用方
	KindInternal       Kind = "internal"
)

// Error 业务错误
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is 同 Kind 即视为相等，便于 errors.Is(err, apperr.ErrNotFound)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// 哨兵错误，只用于 errors.Is 比较
var (
	ErrValidation     = &Error{Kind: KindValidation, Msg: "validation failed"}
	ErrInvalidNesting = &Error{Kind: KindInvalidNesting, Msg: "replies cannot be nested"}
	ErrNotFound       = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrForbidden      = &Error{Kind: KindForbidden, Msg: "forbidden"}
	ErrConflict       = &Error{Kind: KindConflict, Msg: "conflict"}
	ErrExternal       = &Error{Kind: KindExternal, Msg: "external service failed"}
)

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func InvalidNesting(parentID uint64) *Error {
	return &Error{Kind: KindInvalidNesting, Msg: fmt.Sprintf("comment %d is a reply and cannot be replied to", parentID)}
}

func NotFound(what string, id uint64) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf("%s %d not found", what, id)}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Msg: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Msg: msg}
}

func External(msg string, err error) *Error {
	return &Error{Kind: KindExternal, Msg: msg, Err: err}
}

func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf 取错误分类，非 *Error 一律视为 internal
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
