package similarity

import (
	"sort"
	"sync"
)

// accumulator 按对端行下标累加部分点积或交集数。
// 两种实现结果完全相同，仅常数因子不同：
//   - denseAccumulator：长度为行数的定长数组，访问开销低、内存占用高
//   - sparseAccumulator：哈希表，只为实际共现的行分配
type accumulator interface {
	add(idx int, v float64)
	// each 按下标升序回调并清空累加器
	each(fn func(idx int, acc float64))
}

type denseAccumulator struct {
	values  []float64
	marked  []bool
	touched []int
}

func newDenseAccumulator(n int) *denseAccumulator {
	return &denseAccumulator{
		values: make([]float64, n),
		marked: make([]bool, n),
	}
}

func (a *denseAccumulator) add(idx int, v float64) {
	if !a.marked[idx] {
		a.marked[idx] = true
		a.touched = append(a.touched, idx)
	}
	a.values[idx] += v
}

func (a *denseAccumulator) each(fn func(idx int, acc float64)) {
	sort.Ints(a.touched)
	for _, idx := range a.touched {
		fn(idx, a.values[idx])
		a.values[idx] = 0
		a.marked[idx] = false
	}
	a.touched = a.touched[:0]
}

type sparseAccumulator map[int]float64

func (a sparseAccumulator) add(idx int, v float64) {
	a[idx] += v
}

func (a sparseAccumulator) each(fn func(idx int, acc float64)) {
	keys := make([]int, 0, len(a))
	for idx := range a {
		keys = append(keys, idx)
	}
	sort.Ints(keys)
	for _, idx := range keys {
		fn(idx, a[idx])
	}
	clear(a)
}

// accumulatorPool 复用稠密累加器，避免每行分配 O(n) 数组。
type accumulatorPool struct {
	dense bool
	pool  sync.Pool
}

func newAccumulatorPool(dense bool, n int) *accumulatorPool {
	p := &accumulatorPool{dense: dense}
	p.pool.New = func() any {
		if dense {
			return newDenseAccumulator(n)
		}
		return make(sparseAccumulator)
	}
	return p
}

func (p *accumulatorPool) get() accumulator {
	return p.pool.Get().(accumulator)
}

func (p *accumulatorPool) put(a accumulator) {
	p.pool.Put(a)
}
