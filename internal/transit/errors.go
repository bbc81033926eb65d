package transit

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingCredentials 表示用户名或密码为空；在任何网络请求之前返回。
	ErrMissingCredentials = errors.New("用户名和密码不能为空")
	// ErrMissingToken 表示没有会话令牌；没有令牌绝不发起上传。
	ErrMissingToken = errors.New("会话令牌（xfsts）为空")
)

// 诊断片段长度上限（按字符计）。
const (
	loginSnippetLen  = 300
	statusSnippetLen = 200
	parseSnippetLen  = 300
)

// HTTPStatusError 表示上传端点返回了非 2xx 的 HTTP 状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Snippet    string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	msg := fmt.Sprintf("上传返回 HTTP %d", e.StatusCode)
	if s := strings.TrimSpace(e.Snippet); s != "" {
		msg += "，响应片段：" + s
	}
	return msg
}

// ProtocolError 表示对端的响应不符合预期（缺 cookie、缺 fn 等）。
type ProtocolError struct {
	Stage      string // "login" | "parse"
	StatusCode int
	Reason     string
	Snippet    string
}

func (e *ProtocolError) Error() string {
	if e == nil {
		return "protocol error"
	}
	msg := fmt.Sprintf("%s：%s（status %d）", e.Stage, e.Reason, e.StatusCode)
	if s := strings.TrimSpace(e.Snippet); s != "" {
		msg += "，响应片段：" + s
	}
	return msg
}

// FileError 表示待上传文件不可用（不存在/不是普通文件/打不开）。
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	if e == nil {
		return "file error"
	}
	return fmt.Sprintf("文件不可用：%s：%v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// snippet 截取 b 的前 n 个字符（不会切断 UTF-8 字符）。
func snippet(b []byte, n int) string {
	if n <= 0 || len(b) == 0 {
		return ""
	}
	s := strings.ToValidUTF8(string(b), "\uFFFD")
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
