package model

// 同じステータスは常に許可（呼び出し側で何もしない扱いにする）
func canTransition[S comparable](table map[S][]S, from, to S) bool {
	if from == to {
		_, ok := table[from]
		return ok
	}
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}
