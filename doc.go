// Package knnkit 是基于稀疏邻域的协同过滤工具包。
//
// 数据流：
//
//	index（ID <-> 下标）-> similarity（倒排索引相似度）-> neighborhood（TopK / 阈值，可物化缓存）
//	  -> recall（UserKNN / ItemKNN 打分）-> rerank（MMR / xQuAD 贪心重排）
//
// 各阶段也可以通过 pipeline 串成 Node，并由 config/builders 从 YAML 装配。
package knnkit

import (
	"github.com/rushteam/knnkit/pipeline"
	"github.com/rushteam/knnkit/recall"
	"github.com/rushteam/knnkit/rerank"
)

// 轻量 facade：便于直接 import "knnkit" 使用核心抽象。
type (
	Pipeline    = pipeline.Pipeline
	Node        = pipeline.Node
	Kind        = pipeline.Kind
	Recommender = recall.Recommender
	Candidate   = rerank.Candidate
	Options     = rerank.Options
)

const (
	KindRecall = pipeline.KindRecall
	KindFilter = pipeline.KindFilter
	KindReRank = pipeline.KindReRank
)
