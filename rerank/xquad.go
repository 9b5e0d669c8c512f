package rerank

import (
	"sort"
	"sync"

	"github.com/rushteam/knnkit/core"
)

// ItemAspects 返回物品覆盖的方面（类目、主题等）编号。
type ItemAspects func(item int) []int

// itemGivenAspect 是 p(i|a)：物品在它覆盖的每个方面上均分概率质量。
func itemGivenAspect(aspects []int) float64 {
	if len(aspects) == 0 {
		return 0
	}
	return 1 / float64(len(aspects))
}

// Memo 是批次级的记忆表，由调用方持有，生命周期与批次一致，可并发使用。
type Memo[V any] struct {
	mu   sync.Mutex
	vals map[int]V
}

func NewMemo[V any]() *Memo[V] {
	return &Memo[V]{vals: make(map[int]V)}
}

// Get 返回 key 对应的值，不存在时调用 compute 计算并记住。
func (m *Memo[V]) Get(key int, compute func() V) V {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.vals[key]; ok {
		return v
	}
	v := compute()
	m.vals[key] = v
	return v
}

func (m *Memo[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.vals)
}

// IntentModel 估计用户意图分布 p(a|u)：用户交互过的物品在各方面上的加权占比。
type IntentModel struct {
	prefs   core.PreferenceSource
	aspects ItemAspects
}

func NewIntentModel(prefs core.PreferenceSource, aspects ItemAspects) (*IntentModel, error) {
	if prefs == nil || aspects == nil {
		return nil, core.NewConfigError(core.ModuleRerank, "intent model needs preferences and item aspects")
	}
	return &IntentModel{prefs: prefs, aspects: aspects}, nil
}

// UserIntents 只基于用户偏好行计算 p(a|u)；概率质量为 0（未知用户、无方面）时返回 nil。
func (m *IntentModel) UserIntents(user int) map[int]float64 {
	if user < 0 || user >= m.prefs.NumEntities() {
		return nil
	}
	intents := make(map[int]float64)
	var total float64
	for _, e := range m.prefs.PreferencesOf(user) {
		aspects := m.aspects(e.Index)
		share := itemGivenAspect(aspects)
		for _, a := range aspects {
			intents[a] += share
			total += share
		}
	}
	if total == 0 {
		return nil
	}
	for a := range intents {
		intents[a] /= total
	}
	return intents
}

// Intents 返回 p(a|u)，用户侧概率质量为 0 时退化为候选池中出现的方面上的均匀分布。
// memo 非 nil 时按用户下标记忆用户侧结果。
func (m *IntentModel) Intents(user int, pool []Candidate, memo *Memo[map[int]float64]) map[int]float64 {
	var intents map[int]float64
	if memo != nil {
		intents = memo.Get(user, func() map[int]float64 { return m.UserIntents(user) })
	} else {
		intents = m.UserIntents(user)
	}
	if len(intents) > 0 {
		return intents
	}
	return m.uniform(pool)
}

func (m *IntentModel) uniform(pool []Candidate) map[int]float64 {
	seen := make(map[int]struct{})
	for _, c := range pool {
		for _, a := range m.aspects(c.Index) {
			seen[a] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	p := 1 / float64(len(seen))
	out := make(map[int]float64, len(seen))
	for a := range seen {
		out[a] = p
	}
	return out
}

// xquadState 是每个方面尚未被覆盖的程度 Π_{j∈S}(1 - p(j|a))。
type xquadState struct {
	redundancy map[int]float64
}

// XQuAD 返回意图感知的方面覆盖策略：
// novelty(c) = Σ_a p(a|u) · p(c|a) · Π_{j∈S}(1 - p(j|a))。
// 选中 c 后其覆盖的每个方面 a 的剩余权重乘以 (1 - p(c|a))。
func XQuAD(intents map[int]float64, aspects ItemAspects) Strategy[*xquadState] {
	return Strategy[*xquadState]{
		Name: "xquad",
		Init: func([]Candidate) *xquadState {
			r := make(map[int]float64, len(intents))
			for a := range intents {
				r[a] = 1
			}
			return &xquadState{redundancy: r}
		},
		Novelty: func(c Candidate, s *xquadState) float64 {
			as := aspects(c.Index)
			p := itemGivenAspect(as)
			var nov float64
			for _, a := range as {
				nov += intents[a] * p * s.redundancy[a]
			}
			return nov
		},
		Advance: func(s *xquadState, picked Candidate) *xquadState {
			as := aspects(picked.Index)
			p := itemGivenAspect(as)
			for _, a := range as {
				if _, ok := s.redundancy[a]; ok {
					s.redundancy[a] *= 1 - p
				}
			}
			return s
		},
	}
}

// sortedAspects 便于日志输出稳定。
func sortedAspects(intents map[int]float64) []int {
	out := make([]int, 0, len(intents))
	for a := range intents {
		out = append(out, a)
	}
	sort.Ints(out)
	return out
}
