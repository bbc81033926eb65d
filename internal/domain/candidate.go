package domain

// Candidate 描述一次扫描得到的候选文件（只做 stat，不读内容）。
//
// 不变量：
// - AbsPath 必须是 clean + absolute
// - Base 是带扩展名的文件名（模糊匹配直接拿它和目标比较）
type Candidate struct {
	AbsPath string
	RelPath string
	Base    string
}

// Match 是模糊匹配的结果。
//
// Confident=false 时仍然携带完整结果（兜底匹配），由调用方按 Score 决定如何提示。
type Match struct {
	Path      string
	Score     float64
	Confident bool
}
