package transit

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/John-Robertt/mediaci/internal/domain"
	"github.com/John-Robertt/mediaci/internal/infra/httpx"
)

// DefaultLoginURL 是登录表单提交地址。
const DefaultLoginURL = "https://vidmoly.me/"

const sessionCookie = "xfsts"

// Login 提交登录表单，并从响应的 Set-Cookie 中取出会话令牌。
//
// 重定向不会被跟随：令牌就在 302 响应本身的 Set-Cookie 上。
func (f *Flow) Login(ctx context.Context, creds domain.Credentials) (domain.SessionToken, error) {
	if creds.Username == "" || creds.Password == "" {
		return "", ErrMissingCredentials
	}

	loginURL := f.loginURL()
	form := url.Values{}
	form.Set("op", "login")
	form.Set("redirect", "")
	form.Set("login", creds.Username)
	form.Set("password", creds.Password)
	form.Set("submit", "Enter")
	form.Set("submitme", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	origin := originOf(loginURL)
	req.Header.Set("User-Agent", httpx.BrowserUA)
	req.Header.Set("Accept", acceptHTML)
	req.Header.Set("Accept-Language", acceptLanguage)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", origin)
	req.Header.Set("Referer", origin+"/")

	resp, err := httpx.WithoutRedirects(f.client()).Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	lines := resp.Header.Values("Set-Cookie")
	if len(lines) == 0 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		return "", &ProtocolError{
			Stage:      "login",
			StatusCode: resp.StatusCode,
			Reason:     "未找到 Set-Cookie",
			Snippet:    snippet(body, loginSnippetLen),
		}
	}

	token := ParseSetCookies(lines)[sessionCookie]
	if token == "" {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		return "", &ProtocolError{
			Stage:      "login",
			StatusCode: resp.StatusCode,
			Reason:     "响应中没有 " + sessionCookie + " cookie",
			Snippet:    snippet(body, loginSnippetLen),
		}
	}
	return domain.SessionToken(token), nil
}

// ParseSetCookies 把若干 Set-Cookie 头解析为 name -> value。
//
// 规则：只看第一个 ';' 之前的部分，按第一个 '=' 切分并 trim；
// 没有 '=' 的行跳过；同名 cookie 后出现的覆盖先出现的。
func ParseSetCookies(lines []string) map[string]string {
	out := make(map[string]string, len(lines))
	for _, line := range lines {
		pair, _, _ := strings.Cut(line, ";")
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return out
}

// originOf 返回 scheme://host；解析失败时原样返回。
func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.TrimRight(raw, "/")
	}
	return u.Scheme + "://" + u.Host
}
