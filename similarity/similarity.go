// Package similarity 计算稀疏行之间的两两相似度。
//
// 算法：一次性构建倒排表（列 -> 拥有该列的行），对查询行的每一列，
// 遍历该列倒排桶内的所有行并在累加器中累加部分点积/交集数，
// 最后用两行预计算的范数套用相似度公式。总代价正比于 Σ(桶大小²)，
// 稀疏矩阵下远低于 O(n²) 的两两扫描。
//
// 相似度 NaN 表示"未定义"（空行、零范数），它不是一个数值相似度：
// Similar 永远不会返回 NaN，Pair 则如实返回。
package similarity

import (
	"context"
	"math"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/knnkit/core"
	"github.com/rushteam/knnkit/metrics"
)

// Score 是一对实体的相似度；Value 为 NaN 表示未定义。
type Score struct {
	A     int
	B     int
	Value float64
}

// Func 是两两相似度函数。
type Func func(a, b int) float64

// Similarity 是构建完成的相似度引擎，只读，可被多个协程并发使用。
type Similarity struct {
	rows     *core.SparseMatrix
	inverted *core.SparseMatrix
	kind     Kind
	alpha    float64
	dense    bool
	norms    []float64
	pool     *accumulatorPool
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

type options struct {
	dense   bool
	alpha   float64
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

type Option func(*options)

// WithDense 使用定长数组累加器（默认哈希表）。
func WithDense(dense bool) Option {
	return func(o *options) { o.dense = dense }
}

// WithAlpha 设置 SetCosine 的非对称指数，取值 [0, 1]，默认 0.5。
func WithAlpha(alpha float64) Option {
	return func(o *options) { o.alpha = alpha }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New 为 rows 的每一行构建相似度引擎。rows 的行即被比较的实体
// （用户相似度传用户行，物品相似度传物品行）。
func New(rows *core.SparseMatrix, kind Kind, opts ...Option) (*Similarity, error) {
	o := options{alpha: 0.5, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if rows == nil {
		return nil, core.NewConfigError(core.ModuleSimilarity, "rows are required")
	}
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if math.IsNaN(o.alpha) || o.alpha < 0 || o.alpha > 1 {
		return nil, core.NewConfigError(core.ModuleSimilarity, "alpha must be in [0,1], got %v", o.alpha)
	}

	norms := make([]float64, rows.NumRows())
	for i := range norms {
		norms[i] = kind.rowNorm(rows.Row(i))
	}

	s := &Similarity{
		rows:     rows,
		inverted: rows.Transpose(),
		kind:     kind,
		alpha:    o.alpha,
		dense:    o.dense,
		norms:    norms,
		pool:     newAccumulatorPool(o.dense, rows.NumRows()),
		logger:   o.logger.With().Str("component", "similarity").Logger(),
		metrics:  o.metrics,
	}
	s.logger.Debug().
		Str("kind", string(kind)).
		Bool("dense", o.dense).
		Float64("alpha", o.alpha).
		Int("rows", rows.NumRows()).
		Int("cols", rows.NumCols()).
		Int("nnz", rows.NNZ()).
		Msg("similarity index built")
	return s, nil
}

func (s *Similarity) Kind() Kind       { return s.kind }
func (s *Similarity) NumEntities() int { return s.rows.NumRows() }

// Pair 通过有序归并直接计算 a、b 的相似度（含 a == b），不经过倒排表。
// 未知下标、空行、零范数均返回 NaN。
func (s *Similarity) Pair(a, b int) float64 {
	if a < 0 || b < 0 || a >= len(s.norms) || b >= len(s.norms) {
		return math.NaN()
	}
	ra, rb := s.rows.Row(a), s.rows.Row(b)
	var acc float64
	vector := s.kind.vector()
	for i, j := 0, 0; i < len(ra) && j < len(rb); {
		switch {
		case ra[i].Index < rb[j].Index:
			i++
		case ra[i].Index > rb[j].Index:
			j++
		default:
			if vector {
				acc += ra[i].Value * rb[j].Value
			} else {
				acc++
			}
			i++
			j++
		}
	}
	return s.kind.finalize(acc, s.norms[a], s.norms[b], s.alpha, s.rows.NumCols())
}

// Func 以 Func 形态暴露 Pair。
func (s *Similarity) Func() Func {
	return s.Pair
}

// Similar 返回 a 与所有共现行（不含自身）的已定义相似度，按 B 升序。
// 没有任何共现的行不出现在结果中；NaN 被过滤。
func (s *Similarity) Similar(a int) []Score {
	if a < 0 || a >= len(s.norms) {
		return nil
	}
	row := s.rows.Row(a)
	if len(row) == 0 || s.norms[a] == 0 {
		return nil
	}

	acc := s.pool.get()
	defer s.pool.put(acc)

	vector := s.kind.vector()
	for _, e := range row {
		for _, owner := range s.inverted.Row(e.Index) {
			if owner.Index == a {
				continue
			}
			if vector {
				acc.add(owner.Index, e.Value*owner.Value)
			} else {
				acc.add(owner.Index, 1)
			}
		}
	}

	out := make([]Score, 0)
	numCols := s.rows.NumCols()
	acc.each(func(b int, v float64) {
		sim := s.kind.finalize(v, s.norms[a], s.norms[b], s.alpha, numCols)
		if math.IsNaN(sim) {
			return
		}
		out = append(out, Score{A: a, B: b, Value: sim})
	})
	s.metrics.SimilarityRow(string(s.kind))
	return out
}

// ForEach 以 workers 个协程并行计算每一行的 Similar 结果并回调 fn。
// fn 会被并发调用，参数切片归调用方所有。workers < 1 时按 1 处理（顺序执行）。
func (s *Similarity) ForEach(ctx context.Context, workers int, fn func(a int, scores []Score) error) error {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(workers, 1))
	for a := 0; a < s.NumEntities(); a++ {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			return fn(a, s.Similar(a))
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
