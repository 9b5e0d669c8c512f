package similarity

import (
	"math"

	"github.com/rushteam/knnkit/core"
)

// Kind 是相似度函数的类型。
type Kind string

const (
	// SetCosine |A∩B| / (|A|^α · |B|^(1-α))，α=0.5 即指示集合上的对称余弦
	SetCosine Kind = "set_cosine"
	// VectorCosine (v·w) / (‖v‖·‖w‖)
	VectorCosine Kind = "vector_cosine"
	// SetJaccard |A∩B| / |A∪B|
	SetJaccard Kind = "set_jaccard"
	// VectorJaccard (v·w) / (‖v‖² + ‖w‖² - v·w)
	VectorJaccard Kind = "vector_jaccard"
	// LogLikelihood 共现计数上的 2×2 列联表对数似然比
	LogLikelihood Kind = "loglikelihood"
)

// Kinds 返回所有支持的相似度类型。
func Kinds() []Kind {
	return []Kind{SetCosine, VectorCosine, SetJaccard, VectorJaccard, LogLikelihood}
}

// ParseKind 解析配置中的相似度名称。
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case SetCosine, VectorCosine, SetJaccard, VectorJaccard, LogLikelihood:
		return k, nil
	case "cosine":
		return VectorCosine, nil
	case "jaccard":
		return SetJaccard, nil
	case "llr":
		return LogLikelihood, nil
	}
	return "", core.NewConfigError(core.ModuleSimilarity, "unknown similarity kind %q", s)
}

// vector 报告该类型是否按值累加点积（否则按集合计交集数）。
func (k Kind) vector() bool {
	return k == VectorCosine || k == VectorJaccard
}

// rowNorm 预计算行的范数：集合类型为基数，向量类型为平方和。
func (k Kind) rowNorm(row core.SparseRow) float64 {
	if !k.vector() {
		return float64(len(row))
	}
	var sum float64
	for _, e := range row {
		sum += e.Value * e.Value
	}
	return sum
}

// finalize 把累加量（交集数或点积）转换为相似度。
// na/nb 为两行的 rowNorm；numCols 为列全集大小（仅 LLR 使用）。
// 任意一侧范数为 0 或分母为 0 时返回 NaN。
func (k Kind) finalize(acc, na, nb, alpha float64, numCols int) float64 {
	if na == 0 || nb == 0 {
		return math.NaN()
	}
	switch k {
	case SetCosine:
		return acc / (math.Pow(na, alpha) * math.Pow(nb, 1-alpha))
	case VectorCosine:
		return acc / math.Sqrt(na*nb)
	case SetJaccard, VectorJaccard:
		den := na + nb - acc
		if den == 0 {
			return math.NaN()
		}
		return acc / den
	case LogLikelihood:
		k11 := acc
		k12 := na - acc
		k21 := nb - acc
		k22 := float64(numCols) - na - nb + acc
		return logLikelihoodRatio(k11, k12, k21, k22)
	}
	return math.NaN()
}
