package domain

import "fmt"

// Credentials 是登录用的用户名/密码，只在一次调用内存活，禁止落盘。
type Credentials struct {
	Username string
	Password string
}

// String 永远不输出明文，避免被 %v 误打进日志。
func (c Credentials) String() string {
	return "Credentials{***}"
}

// SessionToken 是登录响应 Set-Cookie 中的 xfsts，生命周期 = 一次上传。
type SessionToken string

func (t SessionToken) String() string {
	if t == "" {
		return ""
	}
	return "***"
}

// ProgressID 是客户端生成的 12 位十进制串（允许前导 0）。
// 只要求单次调用内唯一；全局碰撞概率视为可忽略。
type ProgressID string

// TransitFields 是 transit 响应 HTML 中三个 <textarea> 的内容。
type TransitFields struct {
	Op       string
	FileCode string
	Status   string
}

// UploadResult 是上传流程的最终产物（对应 CI 输出的四个键）。
type UploadResult struct {
	Status     int
	ProgressID ProgressID
	URL        string
	FileCode   string
}

// UploadState 是上传流程状态机的状态。
// 线性推进：Start -> LoggedIn -> Uploading -> Parsed -> Done；任意一步失败进入 Failed。
type UploadState int

const (
	StateStart UploadState = iota
	StateLoggedIn
	StateUploading
	StateParsed
	StateDone
	StateFailed
)

func (s UploadState) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateLoggedIn:
		return "logged_in"
	case StateUploading:
		return "uploading"
	case StateParsed:
		return "parsed"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
