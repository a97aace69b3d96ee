package index

import (
	"fmt"
	"sort"
	"sync"

	"spatial-index/internal/logger"
	"spatial-index/internal/metrics"
)

// 文档注释：具名索引注册表
// 背景：目录文件在启动时批量建树，运行期可通过管理接口增删；查询路径只读注册表。
// 约束：注册表自身线程安全；单棵树的串行化由 treeIndex 的互斥锁负责。
type Registry struct {
	mu    sync.RWMutex
	trees map[string]Index
}

func NewRegistry() *Registry {
	return &Registry{trees: make(map[string]Index)}
}

func (r *Registry) Create(def Definition) (Index, error) {
	x, err := New(def)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.trees[def.Name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrTreeExists, def.Name)
	}
	r.trees[def.Name] = x
	st := x.Stats()
	metrics.TreeNodes.WithLabelValues(def.Name).Set(float64(st.Nodes))
	metrics.TreePoints.WithLabelValues(def.Name).Set(0)
	logger.L().Info("tree_created", "name", def.Name, "instance", x.Instance(), "dims", def.Dims, "capacity", def.Capacity, "max_depth", x.Definition().MaxDepth)
	return x, nil
}

func (r *Registry) Get(name string) (Index, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	x, ok := r.trees[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTreeNotFound, name)
	}
	return x, nil
}

type retirer interface{ retire() }

// Drop：移除树；仍持有该树的请求可以继续完成，但不再写入按树的指标
func (r *Registry) Drop(name string) error {
	r.mu.Lock()
	x, ok := r.trees[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTreeNotFound, name)
	}
	delete(r.trees, name)
	// 在注册表锁内清理，避免抹掉紧随其后同名新建树的序列
	if rt, ok := x.(retirer); ok {
		rt.retire()
	} else {
		metrics.ForgetTree(name)
	}
	r.mu.Unlock()
	logger.L().Info("tree_dropped", "name", name, "instance", x.Instance())
	return nil
}

// List：按名称排序返回全部索引
func (r *Registry) List() []Index {
	r.mu.RLock()
	out := make([]Index, 0, len(r.trees))
	for _, x := range r.trees {
		out = append(out, x)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Load：按目录批量建树；单个定义失败只记录日志并继续，返回成功数量与首个错误
func (r *Registry) Load(defs []Definition) (int, error) {
	var first error
	n := 0
	for _, d := range defs {
		if _, err := r.Create(d); err != nil {
			logger.L().Error("tree_create_error", "name", d.Name, "err", err)
			if first == nil {
				first = err
			}
			continue
		}
		n++
	}
	return n, first
}
