// 包 spatial：维度泛型的空间划分树（二维四叉树、三维八叉树），索引点坐标并支持轴对齐区域查询
package spatial

import (
	"strconv"
	"strings"
)

// 文档注释：坐标向量约束
// 背景：四叉树与八叉树只在分支数与逐轴计算上不同，用定长数组承载坐标，由同一套算法按维度泛化。
// 约束：实现必须是可比较的值类型（数组），相等判定为逐分量精确比较，不做容差。
type Vector[V any] interface {
	comparable
	Dims() int
	Axis(i int) float64
	WithAxis(i int, v float64) V
}

// 二维坐标（x, y）
type Vec2 [2]float64

func (v Vec2) Dims() int          { return 2 }
func (v Vec2) Axis(i int) float64 { return v[i] }
func (v Vec2) String() string     { return formatVec(v[:]) }

func (v Vec2) WithAxis(i int, x float64) Vec2 {
	v[i] = x
	return v
}

// 三维坐标（x, y, z）
type Vec3 [3]float64

func (v Vec3) Dims() int          { return 3 }
func (v Vec3) Axis(i int) float64 { return v[i] }
func (v Vec3) String() string     { return formatVec(v[:]) }

func (v Vec3) WithAxis(i int, x float64) Vec3 {
	v[i] = x
	return v
}

// 文档注释：由切片构造向量
// 约束：长度必须与维度一致，否则返回 false；调用方负责给出维度错误。
func FromSlice[V Vector[V]](coords []float64) (V, bool) {
	var v V
	if len(coords) != v.Dims() {
		return v, false
	}
	for i, c := range coords {
		v = v.WithAxis(i, c)
	}
	return v, true
}

// 向量转切片，供 JSON/CBOR 输出与 SQL 参数使用
func ToSlice[V Vector[V]](v V) []float64 {
	out := make([]float64, v.Dims())
	for i := range out {
		out[i] = v.Axis(i)
	}
	return out
}

func formatVec(xs []float64) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, x := range xs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(x, 'f', -1, 64))
	}
	b.WriteByte(')')
	return b.String()
}
