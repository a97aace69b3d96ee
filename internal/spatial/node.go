package spatial

// 树级共享参数与计数，由同一棵树的全部节点引用
type settings struct {
	capacity int
	maxDepth int
	nodes    int
	points   int
	deepest  int
	overflow int
}

// 文档注释：划分树节点
// 背景：叶子节点持有不超过容量的点；超出容量时一次性细分为 2^D 个子节点，之后新点全部下发到子节点。
// 约束：状态只会从叶子变为内部节点，删除不会合并；子节点由父节点独占持有，无父指针、无环。
type Node[V Vector[V]] struct {
	boundary Region[V]
	depth    int
	points   []V
	children []*Node[V]
	s        *settings
}

func newNode[V Vector[V]](boundary Region[V], depth int, s *settings) *Node[V] {
	s.nodes++
	if depth > s.deepest {
		s.deepest = depth
	}
	return &Node[V]{boundary: boundary, depth: depth, s: s}
}

func (n *Node[V]) Boundary() Region[V] { return n.boundary }
func (n *Node[V]) Depth() int          { return n.depth }
func (n *Node[V]) Divided() bool       { return n.children != nil }

// Len：本节点自身持有的点数（不含子树）
func (n *Node[V]) Len() int { return len(n.points) }

// Points：本节点自身点列表的副本
func (n *Node[V]) Points() []V { return append([]V(nil), n.points...) }

// Children：子节点列表副本，按固定子节点顺序；叶子返回 nil
func (n *Node[V]) Children() []*Node[V] {
	if n.children == nil {
		return nil
	}
	return append([]*Node[V](nil), n.children...)
}

func (n *Node[V]) insert(p V) bool {
	if !n.boundary.Contains(p) {
		return false
	}
	if !n.Divided() {
		if len(n.points) < n.s.capacity {
			n.points = append(n.points, p)
			n.s.points++
			return true
		}
		// 达到最大深度后不再细分，重复点或极近点超出容量时留在最深叶子
		if n.depth >= n.s.maxDepth {
			n.points = append(n.points, p)
			n.s.points++
			n.s.overflow++
			return true
		}
		n.subdivide()
	}
	for _, c := range n.children {
		if c.insert(p) {
			return true
		}
	}
	// 分割面上的浮点舍入可能使所有子节点都拒收
	return false
}

// 文档注释：细分为 2^D 个子节点
// 约束：每个节点只执行一次；重复执行会丢弃已有子节点，因此以 children 是否为空作为守卫。已持有的点保留在本节点。
func (n *Node[V]) subdivide() {
	if n.children != nil {
		return
	}
	k := fanout[V]()
	n.children = make([]*Node[V], k)
	for i := 0; i < k; i++ {
		n.children[i] = newNode(n.boundary.child(i), n.depth+1, n.s)
	}
}

func (n *Node[V]) query(r Region[V], found []V) []V {
	if !n.boundary.Intersects(r) {
		return found
	}
	for _, p := range n.points {
		if r.Contains(p) {
			found = append(found, p)
		}
	}
	for _, c := range n.children {
		found = c.query(r, found)
	}
	return found
}

func (n *Node[V]) remove(p V) bool {
	if !n.boundary.Contains(p) {
		return false
	}
	for i, q := range n.points {
		if q == p {
			n.points = append(n.points[:i], n.points[i+1:]...)
			n.s.points--
			return true
		}
	}
	for _, c := range n.children {
		if c.remove(p) {
			return true
		}
	}
	return false
}

// 前序遍历；fn 返回 false 时跳过该节点的子树
func (n *Node[V]) walk(fn func(*Node[V]) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.walk(fn)
	}
}
