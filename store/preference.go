package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rushteam/knnkit/core"
	"github.com/rushteam/knnkit/index"
)

// Interaction 是一条 用户-物品-偏好值 记录。
type Interaction struct {
	UserID string  `json:"user_id"`
	ItemID string  `json:"item_id"`
	Score  float64 `json:"score"`
}

// Preferences 是物化后的偏好快照：用户行矩阵及两侧的 ID 映射。
type Preferences struct {
	Users  *index.Entities
	Items  *index.Entities
	Matrix *core.SparseMatrix
}

// BuildPreferences 由交互记录构建偏好快照。同一 (用户, 物品) 出现多次时取最后一次的值。
// 下标按首次出现顺序分配，结果对给定输入是确定的。
func BuildPreferences(interactions []Interaction) (*Preferences, error) {
	users, items := index.New(), index.New()
	byUser := make([]map[int]float64, 0)
	for _, it := range interactions {
		u := users.Add(it.UserID)
		i := items.Add(it.ItemID)
		for len(byUser) <= u {
			byUser = append(byUser, make(map[int]float64))
		}
		byUser[u][i] = it.Score
	}
	rows := make([]core.SparseRow, len(byUser))
	for u, m := range byUser {
		rows[u] = core.SortRow(m)
	}
	matrix, err := core.NewSparseMatrix(rows, items.Len())
	if err != nil {
		return nil, err
	}
	return &Preferences{Users: users, Items: items, Matrix: matrix}, nil
}

// PreferenceAdapter 从 core.Store 读取偏好数据。
//
// 存储布局：
//
//	{KeyPrefix}:users         -> ["u1", "u2", ...]
//	{KeyPrefix}:user:{userID} -> {"itemID": score, ...}
type PreferenceAdapter struct {
	store core.Store

	KeyPrefix string
}

// NewPreferenceAdapter 创建一个基于 core.Store 的偏好适配器。
func NewPreferenceAdapter(s core.Store, keyPrefix string) *PreferenceAdapter {
	if keyPrefix == "" {
		keyPrefix = "cf"
	}
	return &PreferenceAdapter{
		store:     s,
		KeyPrefix: keyPrefix,
	}
}

// GetUserItems 读取单个用户的偏好；不存在时返回空 map。
func (a *PreferenceAdapter) GetUserItems(ctx context.Context, userID string) (map[string]float64, error) {
	data, err := a.store.Get(ctx, a.userKey(userID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return make(map[string]float64), nil
		}
		return nil, err
	}
	var result map[string]float64
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", userID, err)
	}
	return result, nil
}

// GetAllUsers 读取用户列表。
func (a *PreferenceAdapter) GetAllUsers(ctx context.Context) ([]string, error) {
	data, err := a.store.Get(ctx, a.KeyPrefix+":users")
	if err != nil {
		if core.IsStoreNotFound(err) {
			return []string{}, nil
		}
		return nil, err
	}
	var result []string
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return result, nil
}

// Load 一次性批量读取所有用户偏好并物化为 Preferences。
// 物品下标按 (用户列表顺序, 物品 ID 字典序) 首次出现分配。
func (a *PreferenceAdapter) Load(ctx context.Context) (*Preferences, error) {
	userIDs, err := a.GetAllUsers(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = a.userKey(id)
	}
	values, err := a.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}

	interactions := make([]Interaction, 0, len(values))
	users := index.FromIDs(userIDs...)
	for i, id := range userIDs {
		data, ok := values[keys[i]]
		if !ok {
			continue
		}
		var prefs map[string]float64
		if err := json.Unmarshal(data, &prefs); err != nil {
			return nil, fmt.Errorf("decode user %s: %w", id, err)
		}
		ordered := index.New()
		for itemID := range prefs {
			ordered.Add(itemID)
		}
		for _, p := range ordered.IDs() {
			interactions = append(interactions, Interaction{UserID: id, ItemID: p.ID, Score: prefs[p.ID]})
		}
	}

	prefs, err := BuildPreferences(interactions)
	if err != nil {
		return nil, err
	}
	// 没有任何偏好的用户仍保留下标（空行），查询时得到空推荐而不是未知实体。
	rows := make([]core.SparseRow, users.Len())
	for _, p := range users.IDs() {
		if idx, ok := prefs.Users.Index(p.ID); ok {
			rows[p.Index] = prefs.Matrix.Row(idx)
		}
	}
	matrix, err := core.NewSparseMatrix(rows, prefs.Items.Len())
	if err != nil {
		return nil, err
	}
	return &Preferences{Users: users, Items: prefs.Items, Matrix: matrix}, nil
}

// Save 把交互记录写入 store（按上述布局），用于测试或离线导入。
func (a *PreferenceAdapter) Save(ctx context.Context, interactions []Interaction) error {
	userItems := make(map[string]map[string]float64)
	order := make([]string, 0)
	for _, it := range interactions {
		if userItems[it.UserID] == nil {
			userItems[it.UserID] = make(map[string]float64)
			order = append(order, it.UserID)
		}
		userItems[it.UserID][it.ItemID] = it.Score
	}

	kvs := make(map[string][]byte, len(userItems)+1)
	for userID, items := range userItems {
		data, err := json.Marshal(items)
		if err != nil {
			return err
		}
		kvs[a.userKey(userID)] = data
	}
	usersData, err := json.Marshal(order)
	if err != nil {
		return err
	}
	kvs[a.KeyPrefix+":users"] = usersData
	return a.store.BatchSet(ctx, kvs)
}

func (a *PreferenceAdapter) userKey(userID string) string {
	return a.KeyPrefix + ":user:" + userID
}
