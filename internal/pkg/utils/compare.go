package utils

import "golang.org/x/exp/constraints"

// StableDesc 降序比较，值相等时用地址哈希做稳定 tie-break，
// 避免排序结果在相邻两次刷新之间抖动。
func StableDesc[T constraints.Ordered](aVal, bVal T, aHash, bHash uint64) bool {
	if aVal != bVal {
		return aVal > bVal
	}
	return aHash > bHash
}
