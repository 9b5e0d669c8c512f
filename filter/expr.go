package filter

import (
	"context"

	"github.com/rushteam/knnkit/core"
	"github.com/rushteam/knnkit/pkg/dsl"
)

// ExprFilter 使用 CEL 表达式过滤，表达式为 true 的物品会被移除。
// Invert 为 true 时语义反转：只保留表达式为 true 的物品。
type ExprFilter struct {
	expr   *dsl.Expr
	Invert bool
}

// NewExprFilter 编译表达式；编译失败为配置错误。
func NewExprFilter(expr string, invert bool) (*ExprFilter, error) {
	e, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{expr: e, Invert: invert}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	matched, err := f.expr.Evaluate(item, rctx)
	if err != nil {
		return false, err
	}
	return matched != f.Invert, nil
}
