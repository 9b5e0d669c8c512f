package recall

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/knnkit/core"
	"github.com/rushteam/knnkit/filter"
)

// PredicateFunc 为每个查询构造过滤谓词，nil 表示不过滤。
type PredicateFunc func(query int) filter.Predicate

// ExcludeSeen 返回“剔除已交互物品”的谓词构造函数。
func ExcludeSeen(prefs core.PreferenceSource) PredicateFunc {
	return func(query int) filter.Predicate {
		return filter.NotSeen(prefs.PreferencesOf(query))
	}
}

// Batch 并发地为多个查询实体推荐，结果与 queries 一一对应。
//
// 每个查询的打分表和 Top-N 由执行它的协程独占，workers 小于 1 按 1 处理。
// ctx 取消后不再提交新的查询，已完成的结果被丢弃并返回 ctx.Err()。
func Batch(
	ctx context.Context,
	rec Recommender,
	queries []int,
	maxLength int,
	pred PredicateFunc,
	workers int,
) ([][]*core.Item, error) {
	if rec == nil {
		return nil, core.NewConfigError(core.ModuleRecall, "recommender is required")
	}
	if maxLength < 0 {
		return nil, core.NewConfigError(core.ModuleRecall, "max length must be >= 0, got %d", maxLength)
	}

	start := time.Now()
	out := make([][]*core.Item, len(queries))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(workers, 1))
	for i, q := range queries {
		if egCtx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			var p filter.Predicate
			if pred != nil {
				p = pred(q)
			}
			items, err := rec.Recommend(q, maxLength, p)
			if err != nil {
				return err
			}
			out[i] = items
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Str("recommender", rec.Name()).
		Int("queries", len(queries)).
		Int("workers", max(workers, 1)).
		Dur("took", time.Since(start)).
		Msg("batch recommend done")
	return out, nil
}
