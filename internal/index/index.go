package index

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"spatial-index/internal/metrics"
	"spatial-index/internal/spatial"
)

// 文档注释：维度擦除后的索引接口
// 背景：HTTP 层与种子加载只处理 []float64 坐标，不关心具体是四叉树还是八叉树。
// 约束：坐标长度必须等于 Dims()，否则返回 ErrDimension；每次成功变更都会递增 Version。
// Instance 在每次建树时重新生成，同名树删除重建或进程重启后不会与旧实例混淆。
type Index interface {
	Name() string
	Instance() string
	Dims() int
	Definition() Definition
	Insert(coords []float64) (bool, error)
	Remove(coords []float64) (bool, error)
	Query(center, half []float64) ([][]float64, uint64, error)
	Version() uint64
	Stats() spatial.Stats
}

// 单棵树外包一把互斥锁：树本身不做并发控制，所有操作自顶向下递归，细粒度锁收益有限。
// 按树的指标也在锁内写入；retired 之后不再写，避免删除后重新生成序列。
type treeIndex[V spatial.Vector[V]] struct {
	mu       sync.Mutex
	def      Definition
	instance string
	tree     *spatial.Tree[V]
	version  uint64
	retired  bool
}

func newTreeIndex[V spatial.Vector[V]](def Definition) (*treeIndex[V], error) {
	center, ok1 := spatial.FromSlice[V](def.Center)
	half, ok2 := spatial.FromSlice[V](def.Half)
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("%w: center/half length", ErrBadDefinition)
	}
	depth := def.MaxDepth
	if depth == 0 {
		depth = spatial.DefaultMaxDepth
	}
	t, err := spatial.New(spatial.NewRegion(center, half), def.Capacity, spatial.WithMaxDepth(depth))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDefinition, err)
	}
	def.MaxDepth = depth
	return &treeIndex[V]{def: def, instance: uuid.NewString(), tree: t}, nil
}

func (x *treeIndex[V]) Name() string           { return x.def.Name }
func (x *treeIndex[V]) Instance() string       { return x.instance }
func (x *treeIndex[V]) Dims() int              { return x.def.Dims }
func (x *treeIndex[V]) Definition() Definition { return x.def }

func (x *treeIndex[V]) vec(coords []float64) (V, error) {
	v, ok := spatial.FromSlice[V](coords)
	if !ok {
		return v, fmt.Errorf("%w: tree %s wants %d coordinates, got %d", ErrDimension, x.def.Name, x.def.Dims, len(coords))
	}
	return v, nil
}

func (x *treeIndex[V]) Insert(coords []float64) (bool, error) {
	p, err := x.vec(coords)
	if err != nil {
		return false, err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	before := x.tree.Stats().Overflow
	ok := x.tree.Insert(p)
	if ok {
		x.version++
	}
	if x.retired {
		return ok, nil
	}
	st := x.tree.Stats()
	if ok {
		metrics.InsertsTotal.WithLabelValues(x.def.Name, "accepted").Inc()
		if st.Overflow > before {
			metrics.OverflowTotal.WithLabelValues(x.def.Name).Inc()
		}
	} else {
		metrics.InsertsTotal.WithLabelValues(x.def.Name, "rejected").Inc()
	}
	x.observe(st)
	return ok, nil
}

func (x *treeIndex[V]) Remove(coords []float64) (bool, error) {
	p, err := x.vec(coords)
	if err != nil {
		return false, err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	ok := x.tree.Remove(p)
	if ok {
		x.version++
	}
	if x.retired {
		return ok, nil
	}
	st := x.tree.Stats()
	result := "missing"
	if ok {
		result = "removed"
	}
	metrics.RemovesTotal.WithLabelValues(x.def.Name, result).Inc()
	x.observe(st)
	return ok, nil
}

// Query：返回落在区域内的点以及读取时的版本号（同一把锁内取得）
func (x *treeIndex[V]) Query(center, half []float64) ([][]float64, uint64, error) {
	c, err := x.vec(center)
	if err != nil {
		return nil, 0, err
	}
	h, err := x.vec(half)
	if err != nil {
		return nil, 0, err
	}
	t0 := time.Now()
	x.mu.Lock()
	defer x.mu.Unlock()
	found := x.tree.Query(spatial.NewRegion(c, h), nil)
	out := make([][]float64, len(found))
	for i, p := range found {
		out[i] = spatial.ToSlice(p)
	}
	if x.retired {
		return out, x.version, nil
	}
	metrics.QueriesTotal.WithLabelValues(x.def.Name).Inc()
	metrics.QueryDurationMs.WithLabelValues(x.def.Name).Observe(float64(time.Since(t0).Microseconds()) / 1000)
	metrics.QueryResultPoints.WithLabelValues(x.def.Name).Observe(float64(len(out)))
	return out, x.version, nil
}

func (x *treeIndex[V]) Version() uint64 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.version
}

func (x *treeIndex[V]) Stats() spatial.Stats {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.tree.Stats()
}

// retire 在树从注册表移除后调用：清理按树的序列，此后的操作不再写指标
func (x *treeIndex[V]) retire() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.retired = true
	metrics.ForgetTree(x.def.Name)
}

// observe 需持有 x.mu
func (x *treeIndex[V]) observe(st spatial.Stats) {
	metrics.TreePoints.WithLabelValues(x.def.Name).Set(float64(st.Points))
	metrics.TreeNodes.WithLabelValues(x.def.Name).Set(float64(st.Nodes))
}

// 文档注释：按定义构造索引
// 背景：维度决定实例化 Vec2 还是 Vec3；定义先做校验再建树。
func New(def Definition) (Index, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	switch def.Dims {
	case 2:
		x, err := newTreeIndex[spatial.Vec2](def)
		if err != nil {
			return nil, err
		}
		return x, nil
	case 3:
		x, err := newTreeIndex[spatial.Vec3](def)
		if err != nil {
			return nil, err
		}
		return x, nil
	}
	return nil, fmt.Errorf("%w: dims %d", ErrBadDefinition, def.Dims)
}
