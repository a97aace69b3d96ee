// 包 index：具名划分树注册表，把二维/三维树统一为按 []float64 操作的索引，并负责串行化访问
package index

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrBadDefinition = errors.New("index: bad tree definition")
	ErrDimension     = errors.New("index: coordinate dimension mismatch")
	ErrTreeExists    = errors.New("index: tree already exists")
	ErrTreeNotFound  = errors.New("index: tree not found")
)

var nameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,64}$`)

// 文档注释：树定义（目录文件与建树接口共用）
// 背景：YAML 目录与 HTTP 请求体使用同一结构；max_depth 为 0 时取默认最大深度。
type Definition struct {
	Name     string    `json:"name" yaml:"name" cbor:"name"`
	Dims     int       `json:"dims" yaml:"dims" cbor:"dims"`
	Center   []float64 `json:"center" yaml:"center" cbor:"center"`
	Half     []float64 `json:"half" yaml:"half" cbor:"half"`
	Capacity int       `json:"capacity" yaml:"capacity" cbor:"capacity"`
	MaxDepth int       `json:"max_depth,omitempty" yaml:"max_depth" cbor:"max_depth,omitempty"`
}

// Validate：校验名称、维度、向量长度、半宽与容量
func (d Definition) Validate() error {
	if !nameRe.MatchString(d.Name) {
		return fmt.Errorf("%w: invalid name %q", ErrBadDefinition, d.Name)
	}
	if d.Dims != 2 && d.Dims != 3 {
		return fmt.Errorf("%w: dims must be 2 or 3, got %d", ErrBadDefinition, d.Dims)
	}
	if len(d.Center) != d.Dims || len(d.Half) != d.Dims {
		return fmt.Errorf("%w: center and half need %d coordinates", ErrBadDefinition, d.Dims)
	}
	for _, h := range d.Half {
		if h < 0 {
			return fmt.Errorf("%w: negative half-extent %v", ErrBadDefinition, h)
		}
	}
	if d.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be at least 1", ErrBadDefinition)
	}
	if d.MaxDepth < 0 {
		return fmt.Errorf("%w: max_depth must not be negative", ErrBadDefinition)
	}
	return nil
}

// WithDefaults：补全缺省容量与深度
func (d Definition) WithDefaults(capacity, maxDepth int) Definition {
	if d.Capacity == 0 {
		d.Capacity = capacity
	}
	if d.MaxDepth == 0 {
		d.MaxDepth = maxDepth
	}
	return d
}
