package recall

import (
	"github.com/rs/zerolog"

	"github.com/rushteam/knnkit/metrics"
)

type options struct {
	exponent    int
	maxLength   int
	excludeSeen bool
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

func defaultOptions() options {
	return options{exponent: 1, excludeSeen: true, logger: zerolog.Nop()}
}

// Option 配置邻域推荐器。
type Option func(*options)

// WithExponent 设置邻居权重的指数 q：贡献为 weight^q × value。
// q=1 为线性加权，q 越大越偏向最相似的邻居，q=0 退化为等权投票。
func WithExponent(q int) Option {
	return func(o *options) { o.exponent = q }
}

// WithMaxLength 设置作为召回源（Recall）时的返回长度，0 表示不限。
func WithMaxLength(n int) Option {
	return func(o *options) { o.maxLength = n }
}

// WithExcludeSeen 设置作为召回源时是否剔除用户已交互物品，默认剔除。
func WithExcludeSeen(exclude bool) Option {
	return func(o *options) { o.excludeSeen = exclude }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}
