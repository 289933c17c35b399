package errcode

import (
	"errors"
	"fmt"
)

// 错误码为四位数：前三位是对应的 HTTP 状态，末位是该状态下的序号。
// 4xxx 为调用方可处理的业务错误，5000 为系统错误。
const SystemError = 5000

// Kind 是面向调用方的错误分类，API 层据此决定 HTTP 状态码。
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindValidation
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error 携带分类、稳定错误码与可以直接返回给客户端的消息。
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is 按错误码比较，使 errors.Is(wrapped, TemplateNotFound) 对 Wrap 过的副本同样成立。
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Wrap 返回附带底层原因的副本，哨兵本身保持不变。
func (e *Error) Wrap(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

// WithMessage 返回替换了消息的副本。
func (e *Error) WithMessage(msg string) *Error {
	cp := *e
	cp.Message = msg
	return &cp
}

func newError(kind Kind, code int, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	AccountNotFound = newError(KindNotFound, 4041, "Account not found")
	// PortfolioNotFound 同时表示“不存在”与“不属于当前用户”，避免向非所有者泄露存在性。
	PortfolioNotFound = newError(KindNotFound, 4042, "Portfolio not found or access denied")
	TemplateNotFound  = newError(KindNotFound, 4043, "Template not found")
	PublicNotFound    = newError(KindNotFound, 4044, "Portfolio not found or not public")

	TemplateInactive = newError(KindValidation, 4001, "Template is not active")
	EmptySlug        = newError(KindValidation, 4002, "Cannot generate slug from the given name")
	InvalidInput     = newError(KindValidation, 4003, "Validation failed")

	Unauthorized = newError(KindUnauthorized, 4011, "Authentication required")
	Forbidden    = newError(KindForbidden, 4031, "Access denied")

	QuotaExceeded  = newError(KindConflict, 4091, "Portfolio limit reached")
	SlugConflict   = newError(KindConflict, 4092, "Slug already in use, please retry")
	DuplicateName  = newError(KindConflict, 4093, "Template name already exists")
	DuplicateEmail = newError(KindConflict, 4094, "Email already in use")
	SlugExhausted  = newError(KindConflict, 4095, "No available slug for the given name")
	// DefaultConflict 表示并发设置默认模板时多次撞上唯一默认索引。
	DefaultConflict = newError(KindConflict, 4096, "Another template was made default concurrently, please retry")

	Internal = newError(KindInternal, SystemError, "Internal server error")
)

// KindOf 返回错误链上第一个 *Error 的分类；非业务错误视为内部错误。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// From 从错误链中取出 *Error，取不到时返回包装后的 Internal。
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal.Wrap(err)
}
