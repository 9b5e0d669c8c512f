package core

import "iter"

// PreferenceSource 是核心读取偏好数据的唯一入口（外部协作者实现）。
//
// 约定：
//   - PreferencesOf 返回的行已按下标升序，核心在热路径上从不排序
//   - 未知下标返回空行，而不是错误
//   - 实现方在构造完成后只读，可被多个查询协程并发读取
//
// 实现：
//   - core.SparseMatrix（内存物化）
//   - store.PreferenceAdapter（从 core.Store 读取后物化）
type PreferenceSource interface {
	PreferencesOf(index int) SparseRow
	AllEntities() iter.Seq[int]
	NumEntities() int
}
