package spatial

// 文档注释：轴对齐区域（中心 + 逐轴半宽）
// 背景：节点边界与查询范围共用同一结构；每个轴覆盖 [center-half, center+half]。
// 约束：半宽假定非负，负值属于前置条件违规，不做校验；值类型，构造后不可变。
type Region[V Vector[V]] struct {
	Center V
	Half   V
}

func NewRegion[V Vector[V]](center, half V) Region[V] {
	return Region[V]{Center: center, Half: half}
}

// Contains：点是否落在区域内（含边界）；含 NaN 的坐标不落在任何区域内
func (r Region[V]) Contains(p V) bool {
	for i := 0; i < p.Dims(); i++ {
		c, h, x := r.Center.Axis(i), r.Half.Axis(i), p.Axis(i)
		if !(x >= c-h && x <= c+h) {
			return false
		}
	}
	return true
}

// Intersects：两区域是否重叠，边界相接视为相交，与 Contains 的闭区间语义一致
func (r Region[V]) Intersects(o Region[V]) bool {
	for i := 0; i < r.Center.Dims(); i++ {
		c, h := r.Center.Axis(i), r.Half.Axis(i)
		oc, oh := o.Center.Axis(i), o.Half.Axis(i)
		if oc-oh > c+h || oc+oh < c-h {
			return false
		}
	}
	return true
}

// 子区域数量：2^D
func fanout[V Vector[V]]() int {
	var v V
	return 1 << v.Dims()
}

// 文档注释：第 i 个子区域
// 约束：i 的第 k 位为 0 表示第 k 轴正向偏移 +half/2，为 1 表示负向；第一轴变化最快。
// 插入、查询、删除都按该顺序遍历子节点，落在分割面上的点由首个命中的子节点持有。
func (r Region[V]) child(i int) Region[V] {
	var c, h V
	for k := 0; k < c.Dims(); k++ {
		hk := r.Half.Axis(k) / 2
		off := hk
		if i&(1<<k) != 0 {
			off = -hk
		}
		c = c.WithAxis(k, r.Center.Axis(k)+off)
		h = h.WithAxis(k, hk)
	}
	return Region[V]{Center: c, Half: h}
}

func (r Region[V]) String() string {
	return "center=" + fmtVec(r.Center) + " half=" + fmtVec(r.Half)
}

func fmtVec[V Vector[V]](v V) string { return formatVec(ToSlice(v)) }
