package domain

import (
	"errors"
	"fmt"
)

// ErrorKind 是解析链路与目录解析共用的失败分类。
type ErrorKind string

const (
	KindNotFound   ErrorKind = "not_found"  // 期望的节点/字段不存在
	KindMalformed  ErrorKind = "malformed"  // 模式或编码不匹配（base64、JSON 字面量等）
	KindUpstream   ErrorKind = "upstream"   // 非 2xx、超时等传输层失败
	KindCrypto     ErrorKind = "crypto"     // 填充/密钥长度/密文长度错误
	KindValidation ErrorKind = "validation" // 解密结果不符合 URL 形态
)

// Error 是带分类的错误。Op 描述出错的操作（例如 "exchange"、"decrypt"）。
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf 构造一个带分类的错误。
func Errorf(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf 从 err 链中取出最外层的 ErrorKind；不是 *Error 时返回空串。
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind 报告 err 链中是否存在指定分类。
func IsKind(err error, kind ErrorKind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
