package match

import "golang.org/x/text/unicode/norm"

// Distance 计算 a 与 b 的 Levenshtein 编辑距离（插入/删除/替换代价均为 1）。
//
// 比较单位是 rune；两侧先做 NFC 归一化，避免 macOS 上 NFD 文件名与 NFC 目标名
// 在“看起来一样”的情况下被算出非零距离。
func Distance(a, b string) int {
	return distanceRunes([]rune(norm.NFC.String(a)), []rune(norm.NFC.String(b)))
}

// Ratio 返回 candidate 相对 target 的相似度：1 - distance / max(len)。
// 结果落在 [0,1]；两个空串视为完全相同。
func Ratio(candidate, target string) float64 {
	c := []rune(norm.NFC.String(candidate))
	t := []rune(norm.NFC.String(target))
	longest := max(len(c), len(t))
	if longest == 0 {
		return 1
	}
	return 1 - float64(distanceRunes(c, t))/float64(longest)
}

// distanceRunes 用 (len(target)+1) × (len(candidate)+1) 的 DP 表计算距离。
// 行对应 target，列对应 candidate。
func distanceRunes(candidate, target []rune) int {
	rows := len(target) + 1
	cols := len(candidate) + 1

	m := make([][]int, rows)
	for i := range m {
		m[i] = make([]int, cols)
		m[i][0] = i
	}
	for j := 0; j < cols; j++ {
		m[0][j] = j
	}

	for i := 1; i < rows; i++ {
		for j := 1; j < cols; j++ {
			if target[i-1] == candidate[j-1] {
				m[i][j] = m[i-1][j-1]
				continue
			}
			m[i][j] = 1 + min(
				m[i-1][j-1], // 替换
				m[i][j-1],   // 插入
				m[i-1][j],   // 删除
			)
		}
	}
	return m[rows-1][cols-1]
}
