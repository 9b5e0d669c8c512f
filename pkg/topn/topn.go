// Package topn 提供固定容量的 Top-N 选择器：从打分流中保留 K 个最优元素。
//
// 全序定义：分数高者更优；分数相同时次级 key（通常是实体下标）小者更优。
// 因此同分元素的去留与提取顺序完全确定，不依赖输入顺序。
//
// 容量约定：capacity == 0 表示不截断（返回全部元素的排序结果），
// capacity < 0 在构造时被拒绝。
package topn

import (
	"container/heap"
	"math"
	"sort"

	"github.com/rushteam/knnkit/core"
)

// Entry 是被保留的元素及其分数。
type Entry[T any] struct {
	Item  T
	Key   int
	Score float64
}

// Better 报告 a 是否在全序上严格优于 b。
func Better[T any](a, b Entry[T]) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Key < b.Key
}

// Selector 在最多 capacity 个元素上维护一个最小堆（堆顶是当前最差的保留元素）。
// 非并发安全：每个查询持有自己的 Selector。
type Selector[T any] struct {
	capacity int
	key      func(T) int
	h        entryHeap[T]
}

// New 创建选择器。key 提供同分时的次级排序键。
func New[T any](capacity int, key func(T) int) (*Selector[T], error) {
	if capacity < 0 {
		return nil, core.NewConfigError(core.ModuleTopN, "capacity must be >= 0, got %d", capacity)
	}
	if key == nil {
		return nil, core.NewConfigError(core.ModuleTopN, "key function is required")
	}
	s := &Selector[T]{capacity: capacity, key: key}
	if capacity > 0 {
		s.h = make(entryHeap[T], 0, capacity)
	}
	return s, nil
}

// Ints 创建以元素自身为次级 key 的选择器，适用于按下标打分的场景。
func Ints(capacity int) (*Selector[int], error) {
	return New(capacity, func(i int) int { return i })
}

func (s *Selector[T]) Capacity() int { return s.capacity }
func (s *Selector[T]) Len() int      { return len(s.h) }

// Offer 提交一个候选，返回它是否被保留。NaN 分数直接丢弃。
//
// 未满时插入并上滤；已满时仅当候选严格优于堆顶才替换堆顶并下滤。
func (s *Selector[T]) Offer(item T, score float64) bool {
	if math.IsNaN(score) {
		return false
	}
	e := Entry[T]{Item: item, Key: s.key(item), Score: score}
	if s.capacity == 0 {
		s.h = append(s.h, e)
		return true
	}
	if len(s.h) < s.capacity {
		heap.Push(&s.h, e)
		return true
	}
	if !Better(e, s.h[0]) {
		return false
	}
	s.h[0] = e
	heap.Fix(&s.h, 0)
	return true
}

// Min 返回当前保留集合中最差的元素（容量有界时即堆顶）。
func (s *Selector[T]) Min() (Entry[T], bool) {
	if len(s.h) == 0 {
		return Entry[T]{}, false
	}
	if s.capacity > 0 {
		return s.h[0], true
	}
	worst := s.h[0]
	for _, e := range s.h[1:] {
		if Better(worst, e) {
			worst = e
		}
	}
	return worst, true
}

// SortedDescending 按全序降序返回保留的元素，并清空选择器。
func (s *Selector[T]) SortedDescending() []Entry[T] {
	out := s.h
	s.h = nil
	if s.capacity == 0 {
		sort.Slice(out, func(i, j int) bool { return Better(out[i], out[j]) })
		return out
	}
	// 原地堆排序：每次把堆顶（最差）换到尾部，得到降序序列。
	h := out
	for n := len(h) - 1; n > 0; n-- {
		h[0], h[n] = h[n], h[0]
		h = h[:n]
		heap.Fix(&h, 0)
	}
	return out
}

// Reset 清空选择器以便复用底层数组。
func (s *Selector[T]) Reset() {
	s.h = s.h[:0]
}

// entryHeap 以"最差者在顶"的顺序实现 heap.Interface。
type entryHeap[T any] []Entry[T]

var _ heap.Interface = (*entryHeap[int])(nil)

func (h entryHeap[T]) Len() int           { return len(h) }
func (h entryHeap[T]) Less(i, j int) bool { return Better(h[j], h[i]) }
func (h entryHeap[T]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *entryHeap[T]) Push(x any) {
	e, _ := x.(Entry[T])
	*h = append(*h, e)
}

func (h *entryHeap[T]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
