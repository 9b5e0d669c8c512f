package core

import "github.com/rushteam/knnkit/pkg/utils"

// RecommendContext 承载查询实体与请求级参数，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	// UserIndex 是查询实体的稠密下标；未知实体为 -1。
	UserIndex int

	// UserID 是外部标识，仅用于日志/观测。
	UserID string

	Scene string

	// Labels 是用户级标签，可驱动整个 Pipeline 行为
	Labels map[string]utils.Label

	// Params 请求级上下文参数（例如 CEL 过滤表达式可读取的字段）
	Params map[string]any
}

// NewRecommendContext 创建查询上下文。
func NewRecommendContext(userIndex int, userID string) *RecommendContext {
	return &RecommendContext{UserIndex: userIndex, UserID: userID}
}

// Known 报告查询实体是否在索引中。
func (rctx *RecommendContext) Known() bool {
	return rctx != nil && rctx.UserIndex >= 0
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
