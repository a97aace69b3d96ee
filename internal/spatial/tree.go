package spatial

import "errors"

// 默认最大细分深度：四叉树在 32 层时单元边长约为根的 2^-32，足以分离正常数据
const DefaultMaxDepth = 32

var (
	ErrCapacity = errors.New("spatial: capacity must be at least 1")
	ErrMaxDepth = errors.New("spatial: max depth must not be negative")
)

// 文档注释：划分树（根节点持有者）
// 背景：对外暴露构造/插入/查询/删除；二维与三维共用实现，Quadtree/Octree 仅为类型别名。
// 约束：非并发安全，不做内部加锁；需要并发访问时由调用方用一把互斥锁串行化整棵树。
type Tree[V Vector[V]] struct {
	root *Node[V]
	s    *settings
}

type (
	Quadtree = Tree[Vec2]
	Octree   = Tree[Vec3]
)

type Option func(*settings)

// WithMaxDepth：限制细分深度；0 表示根节点永不细分
func WithMaxDepth(d int) Option {
	return func(s *settings) { s.maxDepth = d }
}

func New[V Vector[V]](boundary Region[V], capacity int, opts ...Option) (*Tree[V], error) {
	if capacity < 1 {
		return nil, ErrCapacity
	}
	s := &settings{capacity: capacity, maxDepth: DefaultMaxDepth}
	for _, o := range opts {
		o(s)
	}
	if s.maxDepth < 0 {
		return nil, ErrMaxDepth
	}
	return &Tree[V]{root: newNode(boundary, 0, s), s: s}, nil
}

func NewQuadtree(boundary Region[Vec2], capacity int, opts ...Option) (*Quadtree, error) {
	return New(boundary, capacity, opts...)
}

func NewOctree(boundary Region[Vec3], capacity int, opts ...Option) (*Octree, error) {
	return New(boundary, capacity, opts...)
}

// Insert：插入点；点在根区域之外时返回 false
func (t *Tree[V]) Insert(p V) bool { return t.root.insert(p) }

// Query：把落在 r 内的点追加到 found 并返回；found 可为 nil 或已有内容
func (t *Tree[V]) Query(r Region[V], found []V) []V { return t.root.query(r, found) }

// Remove：删除与 p 逐分量相等的第一个点；一次只删一个
func (t *Tree[V]) Remove(p V) bool { return t.root.remove(p) }

func (t *Tree[V]) Root() *Node[V]      { return t.root }
func (t *Tree[V]) Boundary() Region[V] { return t.root.boundary }
func (t *Tree[V]) Capacity() int       { return t.s.capacity }
func (t *Tree[V]) MaxDepth() int       { return t.s.maxDepth }

// Size：根节点自身持有的点数
func (t *Tree[V]) Size() int { return t.root.Len() }

// Len：整棵树的点数
func (t *Tree[V]) Len() int { return t.s.points }

// Walk：按固定子节点顺序前序遍历；fn 返回 false 时不进入该节点子树
func (t *Tree[V]) Walk(fn func(*Node[V]) bool) { t.root.walk(fn) }

type Stats struct {
	Points   int `json:"points"`
	Nodes    int `json:"nodes"`
	Leaves   int `json:"leaves"`
	Depth    int `json:"depth"`
	Overflow int `json:"overflow"`
	RootSize int `json:"root_size"`
}

func (t *Tree[V]) Stats() Stats {
	k := fanout[V]()
	internal := (t.s.nodes - 1) / k
	return Stats{
		Points:   t.s.points,
		Nodes:    t.s.nodes,
		Leaves:   t.s.nodes - internal,
		Depth:    t.s.deepest,
		Overflow: t.s.overflow,
		RootSize: t.root.Len(),
	}
}
