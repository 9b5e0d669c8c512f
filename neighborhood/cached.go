package neighborhood

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/knnkit/metrics"
)

// CachedNeighborhood 是一次性物化后的只读邻域，读取为 O(1)。
//
// 构建在 Cache 返回之前全部完成，调用方拿到的句柄不存在部分写入的状态，
// 之后可被任意多个查询协程无锁并发读取。
type CachedNeighborhood struct {
	mode  string
	lists [][]Neighbor
}

type cacheOptions struct {
	workers int
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

type CacheOption func(*cacheOptions)

// WithWorkers 设置物化并发度；小于 1 按 1 处理。
func WithWorkers(n int) CacheOption {
	return func(o *cacheOptions) { o.workers = n }
}

func WithLogger(logger zerolog.Logger) CacheOption {
	return func(o *cacheOptions) { o.logger = logger }
}

func WithMetrics(m *metrics.Metrics) CacheOption {
	return func(o *cacheOptions) { o.metrics = m }
}

// Cache 为 nb 的每个实体计算一次邻居列表并固化。
// 各协程只写入自己负责的槽位，Wait 返回即发布完成。
func Cache(ctx context.Context, nb Neighborhood, opts ...CacheOption) (*CachedNeighborhood, error) {
	o := cacheOptions{workers: 1, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if cached, ok := nb.(*CachedNeighborhood); ok {
		return cached, nil
	}

	start := time.Now()
	n := nb.NumEntities()
	lists := make([][]Neighbor, n)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(o.workers, 1))
	for idx := 0; idx < n; idx++ {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			lists[idx] = nb.Neighbors(idx)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := name(nb)
	took := time.Since(start)
	o.metrics.NeighborhoodBuilt(mode, n, took)
	o.logger.Info().
		Str("component", "neighborhood").
		Str("mode", mode).
		Int("entities", n).
		Int("workers", max(o.workers, 1)).
		Dur("took", took).
		Msg("neighborhood cached")

	return &CachedNeighborhood{mode: mode, lists: lists}, nil
}

// FromLists 直接用已有的邻居列表构造缓存邻域（例如从存储加载）。
// 列表会按权重降序、下标升序重新整理。
func FromLists(mode string, lists [][]Neighbor) *CachedNeighborhood {
	for _, l := range lists {
		sortNeighbors(l)
	}
	return &CachedNeighborhood{mode: mode, lists: lists}
}

func (c *CachedNeighborhood) NumEntities() int { return len(c.lists) }
func (c *CachedNeighborhood) Name() string     { return c.mode }

func (c *CachedNeighborhood) Neighbors(idx int) []Neighbor {
	if idx < 0 || idx >= len(c.lists) {
		return nil
	}
	return c.lists[idx]
}
