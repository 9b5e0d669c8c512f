package utils

import (
	"strconv"
	"strings"
)

// Label 记录物品在链路中的来源与处理痕迹（召回源、过滤原因、重排策略等）。
// 同名 Label 合并时保留历史：Value 以 '|' 累积，Source 以 ',' 累积。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / filter / rerank ...
}

// ScoreLabel 把分数格式化为 Label，用于记录聚合分或重排前的相关度。
func ScoreLabel(score float64, source string) Label {
	return Label{Value: strconv.FormatFloat(score, 'g', 6, 64), Source: source}
}

// Values 返回累积的 Value 历史，按合并顺序。
func (l Label) Values() []string {
	if l.Value == "" {
		return nil
	}
	return strings.Split(l.Value, "|")
}

// Has 报告 v 是否出现在 Value 历史中。
func (l Label) Has(v string) bool {
	for _, x := range l.Values() {
		if x == v {
			return true
		}
	}
	return false
}

// MergeLabel 合并同名 Label。incoming 的 Value 已在历史中时不重复追加，
// 例如同一物品被同一召回源多次命中。
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" || existing.Has(incoming.Value) {
		return existing
	}

	merged := existing
	merged.Value = existing.Value + "|" + incoming.Value
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "", containsPart(existing.Source, incoming.Source):
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}

func containsPart(list, s string) bool {
	for _, p := range strings.Split(list, ",") {
		if p == s {
			return true
		}
	}
	return false
}
