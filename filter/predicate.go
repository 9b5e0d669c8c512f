package filter

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/rushteam/knnkit/core"
)

// Predicate 判断某个物品下标是否可以进入结果集，true 表示保留。
// 召回阶段在候选进入 Top-N 之前调用，必须是无副作用的纯函数。
type Predicate func(index int) bool

// All 保留所有候选。
func All(int) bool { return true }

// Not 取反。
func Not(p Predicate) Predicate {
	return func(index int) bool { return !p(index) }
}

// And 组合多个谓词，全部为 true 才保留；nil 谓词被忽略。
func And(ps ...Predicate) Predicate {
	return func(index int) bool {
		for _, p := range ps {
			if p != nil && !p(index) {
				return false
			}
		}
		return true
	}
}

// Set 是基于 Roaring Bitmap 的物品下标集合。
type Set struct {
	rb *roaring.Bitmap
}

// NewSet 创建下标集合，负数及超出 uint32 的下标被忽略。
func NewSet(indices ...int) *Set {
	s := &Set{rb: roaring.New()}
	for _, idx := range indices {
		s.Add(idx)
	}
	return s
}

// SetOf 把一行偏好的列下标收集为集合。
func SetOf(row core.SparseRow) *Set {
	s := &Set{rb: roaring.New()}
	for _, e := range row {
		if inRange(e.Index) {
			s.rb.Add(uint32(e.Index))
		}
	}
	return s
}

// Add 加入下标；超出 [0, MaxUint32] 的下标无法放入 bitmap，被忽略。
func (s *Set) Add(index int) {
	if inRange(index) {
		s.rb.Add(uint32(index))
	}
}

func (s *Set) Contains(index int) bool {
	return inRange(index) && s.rb.Contains(uint32(index))
}

func inRange(index int) bool {
	return index >= 0 && uint64(index) <= math.MaxUint32
}

func (s *Set) Len() int { return int(s.rb.GetCardinality()) }

// Union 合并另一个集合（原地）。
func (s *Set) Union(other *Set) {
	if other != nil {
		s.rb.Or(other.rb)
	}
}

// Allow 只保留集合内的下标。
func (s *Set) Allow() Predicate { return s.Contains }

// Exclude 剔除集合内的下标。
func (s *Set) Exclude() Predicate { return Not(s.Contains) }

// NotSeen 剔除查询实体已交互过的物品。
func NotSeen(row core.SparseRow) Predicate {
	if len(row) == 0 {
		return All
	}
	return SetOf(row).Exclude()
}

// Blacklist 剔除给定物品下标。
func Blacklist(indices ...int) Predicate {
	if len(indices) == 0 {
		return All
	}
	return NewSet(indices...).Exclude()
}

// Clone 返回集合的副本；nil 得到空集合。
func (s *Set) Clone() *Set {
	if s == nil {
		return NewSet()
	}
	return &Set{rb: s.rb.Clone()}
}
