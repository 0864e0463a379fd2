package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidImage 图像查询缺少合法的base64数据
	ErrInvalidImage = errors.New("invalid image payload")
	// ErrInvalidQuery 查询参数不合法
	ErrInvalidQuery = errors.New("invalid query")
	// ErrUpstream 外部服务（embedding、rerank、索引）不可用
	ErrUpstream = errors.New("upstream unavailable")
)

// UpstreamError 外部服务调用失败
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// Upstream 包装外部服务错误
func Upstream(service string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Service: service, Err: err}
}
