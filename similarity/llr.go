package similarity

import "math"

// logLikelihoodRatio 计算 2×2 列联表的 G² 统计量（Dunning, 1993）。
//
//	        B     ¬B
//	A      k11   k12
//	¬A     k21   k22
func logLikelihoodRatio(k11, k12, k21, k22 float64) float64 {
	if k22 < 0 {
		k22 = 0
	}
	rowEntropy := entropy(k11+k12, k21+k22)
	colEntropy := entropy(k11+k21, k12+k22)
	matEntropy := entropy(k11, k12, k21, k22)
	if rowEntropy+colEntropy < matEntropy {
		// 浮点舍入
		return 0
	}
	return 2 * (rowEntropy + colEntropy - matEntropy)
}

// entropy 是未归一化的香农熵：xlogx(Σx) - Σ xlogx(x)。
func entropy(xs ...float64) float64 {
	var sum, result float64
	for _, x := range xs {
		result += xLogX(x)
		sum += x
	}
	return xLogX(sum) - result
}

func xLogX(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return x * math.Log(x)
}
