package core

import (
	"iter"
	"sort"
	"strconv"
)

// Entry 是稀疏行中的一个 (下标, 值) 对。
type Entry struct {
	Index int     `json:"i"`
	Value float64 `json:"v"`
}

// SparseRow 是一个实体的偏好（或一个物品的评分者），Index 严格递增且无重复。
type SparseRow []Entry

// Valid 检查行是否严格按下标递增。
func (r SparseRow) Valid() bool {
	for i := 1; i < len(r); i++ {
		if r[i].Index <= r[i-1].Index {
			return false
		}
	}
	return true
}

// Has 二分查找下标是否存在。
func (r SparseRow) Has(index int) bool {
	_, ok := r.Get(index)
	return ok
}

// Get 二分查找下标对应的值。
func (r SparseRow) Get(index int) (float64, bool) {
	pos := sort.Search(len(r), func(i int) bool { return r[i].Index >= index })
	if pos < len(r) && r[pos].Index == index {
		return r[pos].Value, true
	}
	return 0, false
}

// SortRow 把无序的 map 形态偏好转成 SparseRow（仅用于加载阶段，热路径不排序）。
func SortRow(m map[int]float64) SparseRow {
	row := make(SparseRow, 0, len(m))
	for idx, v := range m {
		row = append(row, Entry{Index: idx, Value: v})
	}
	sort.Slice(row, func(i, j int) bool { return row[i].Index < row[j].Index })
	return row
}

// SparseMatrix 是按行存储的稀疏矩阵：行 = 实体，列 = 另一侧实体。
// 构造完成后只读，可在多个查询协程间共享。
type SparseMatrix struct {
	rows    []SparseRow
	numCols int
}

// NewSparseMatrix 创建稀疏矩阵。所有行必须已按下标升序排列。
// numCols 小于实际出现的最大列下标时会被自动扩大。
func NewSparseMatrix(rows []SparseRow, numCols int) (*SparseMatrix, error) {
	for i, row := range rows {
		if !row.Valid() {
			return nil, NewDomainError(ModuleIndex, ErrorCodeInvalidInput,
				"sparse: row "+strconv.Itoa(i)+" is not strictly increasing")
		}
		if n := len(row); n > 0 && row[n-1].Index >= numCols {
			numCols = row[n-1].Index + 1
		}
		if len(row) > 0 && row[0].Index < 0 {
			return nil, NewDomainError(ModuleIndex, ErrorCodeInvalidInput,
				"sparse: row "+strconv.Itoa(i)+" has a negative column")
		}
	}
	return &SparseMatrix{rows: rows, numCols: numCols}, nil
}

// FromSource 从偏好源物化一个稀疏矩阵。
func FromSource(src PreferenceSource) (*SparseMatrix, error) {
	rows := make([]SparseRow, src.NumEntities())
	for idx := range src.AllEntities() {
		if idx >= 0 && idx < len(rows) {
			rows[idx] = src.PreferencesOf(idx)
		}
	}
	return NewSparseMatrix(rows, 0)
}

func (m *SparseMatrix) NumRows() int { return len(m.rows) }
func (m *SparseMatrix) NumCols() int { return m.numCols }

// Row 返回第 i 行；越界返回 nil。
func (m *SparseMatrix) Row(i int) SparseRow {
	if i < 0 || i >= len(m.rows) {
		return nil
	}
	return m.rows[i]
}

// NNZ 返回非零元素个数。
func (m *SparseMatrix) NNZ() int {
	n := 0
	for _, row := range m.rows {
		n += len(row)
	}
	return n
}

// Transpose 返回转置矩阵（用户行 -> 物品行）。
// 按行顺序追加，转置后每行天然有序。
func (m *SparseMatrix) Transpose() *SparseMatrix {
	counts := make([]int, m.numCols)
	for _, row := range m.rows {
		for _, e := range row {
			counts[e.Index]++
		}
	}
	cols := make([]SparseRow, m.numCols)
	for c, n := range counts {
		if n > 0 {
			cols[c] = make(SparseRow, 0, n)
		}
	}
	for r, row := range m.rows {
		for _, e := range row {
			cols[e.Index] = append(cols[e.Index], Entry{Index: r, Value: e.Value})
		}
	}
	return &SparseMatrix{rows: cols, numCols: len(m.rows)}
}

// PreferencesOf 实现 PreferenceSource。
func (m *SparseMatrix) PreferencesOf(index int) SparseRow { return m.Row(index) }

// NumEntities 实现 PreferenceSource。
func (m *SparseMatrix) NumEntities() int { return len(m.rows) }

// AllEntities 实现 PreferenceSource，按下标升序遍历。
func (m *SparseMatrix) AllEntities() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := range m.rows {
			if !yield(i) {
				return
			}
		}
	}
}

var _ PreferenceSource = (*SparseMatrix)(nil)
