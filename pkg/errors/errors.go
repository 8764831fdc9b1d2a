package errors

import "errors"

// ── 记录存储通用错误 ──

var (
	// ErrRecordNotFound 记录不存在（bolt / postgres 两种后端统一返回）
	ErrRecordNotFound = errors.New("record not found")
	// ErrRecordExists 显式 ID 写入时记录已存在
	ErrRecordExists = errors.New("record already exists")
	// ErrUnknownCollection 未注册的集合名
	ErrUnknownCollection = errors.New("unknown collection")
)
