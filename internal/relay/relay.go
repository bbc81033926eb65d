// Package relay 在 CI 运行之间中转 rclone 配置：
// Get 从 getter 端点取回 base64 配置，Set 把本机配置（或 B64_RCLONE）推送到 setter 端点。
//
// 配置只以 base64 单行串的形式经过内存；除 CI 环境文件外不落盘。
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// EnvBlob 是保存 base64 配置的环境变量名。
const EnvBlob = "B64_RCLONE"

const (
	maxBlobBytes = 8 << 20
	snippetLen   = 200
)

// ErrEmptyBlob 表示 getter 返回了空内容。
var ErrEmptyBlob = errors.New("getter 返回的配置为空")

// HTTPStatusError 表示 getter/setter 返回了非 2xx 状态码。
// URL 不含查询串（查询串里可能带着配置本身）。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Snippet    string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	msg := fmt.Sprintf("%s 返回 HTTP %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if s := strings.TrimSpace(e.Snippet); s != "" {
		msg += "\n" + s
	}
	return msg
}

// Get 请求 getterURL 并返回去掉换行后的 base64 配置。
func Get(ctx context.Context, c *http.Client, getterURL string) (string, error) {
	if strings.TrimSpace(getterURL) == "" {
		return "", errors.New("getter url 不能为空")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, getterURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client(c).Do(req)
	if err != nil {
		return "", stripQuery(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// 不回显响应体：getter 的错误页不可信，可能夹带配置片段。
		return "", &HTTPStatusError{URL: withoutQuery(getterURL), StatusCode: resp.StatusCode}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBlobBytes))
	if err != nil {
		return "", err
	}
	blob := StripNewlines(string(b))
	if blob == "" {
		return "", ErrEmptyBlob
	}
	return blob, nil
}

// Set 以 GET setterURL?data=<b64> 的形式推送配置。
func Set(ctx context.Context, c *http.Client, setterURL, b64 string) error {
	if strings.TrimSpace(setterURL) == "" {
		return errors.New("setter url 不能为空")
	}
	if b64 == "" {
		return errors.New("待推送的配置为空")
	}
	sep := "?"
	if strings.Contains(setterURL, "?") {
		sep = "&"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, setterURL+sep+"data="+url.QueryEscape(b64), nil)
	if err != nil {
		return stripQuery(err)
	}
	resp, err := client(c).Do(req)
	if err != nil {
		return stripQuery(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &HTTPStatusError{
			URL:        withoutQuery(setterURL),
			StatusCode: resp.StatusCode,
			Snippet:    truncate(string(b), snippetLen),
		}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return nil
}

// StripNewlines 去掉所有 \r\n 与 \n。
func StripNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "")
	return strings.ReplaceAll(s, "\n", "")
}

func client(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return http.DefaultClient
}

func withoutQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		if i := strings.IndexByte(raw, '?'); i >= 0 {
			return raw[:i]
		}
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String()
}

// stripQuery 去掉 *url.Error 中的查询串，避免配置随错误信息打进日志。
func stripQuery(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = withoutQuery(ue.URL)
	}
	return err
}

func truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
