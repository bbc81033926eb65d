package httpx

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTLSHandshakeTimeout   = 15 * time.Second
	defaultResponseHeaderTimeout = 2 * time.Minute
)

// BrowserUA 是与上游站点交互时使用的浏览器 UA（登录页对非浏览器 UA 不返回 cookie）。
const BrowserUA = "Mozilla/5.0 (X11; Linux x86_64; rv:141.0) Gecko/20100101 Firefox/141.0"

// Transport 把“默认 UA + 代理 + keep-alive 策略”固化为统一策略。
//
// 不做重试：登录/上传都是不可重放的 POST，失败直接交给上层中止流程。
type Transport struct {
	Base *http.Transport

	// UserAgent 仅在请求未显式设置 User-Agent 时填充。
	UserAgent string

	// DisableKeepAlives 决定是否对 Request 设置 Close=true（额外保险）。
	// 真正禁用 keep-alive 依赖 Base.DisableKeepAlives。
	DisableKeepAlives bool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// Clone 会复制 Header 等，避免在 RoundTripper 内部“污染”调用方的 request。
	r := req.Clone(req.Context())
	if r.Header.Get("User-Agent") == "" && t.UserAgent != "" {
		r.Header.Set("User-Agent", t.UserAgent)
	}
	if t.DisableKeepAlives {
		r.Close = true
	}
	return t.Base.RoundTrip(r)
}

// Options 描述 client 的网络策略。零值可用。
type Options struct {
	// ProxyURL 非空：必须走代理，且禁用 keep-alive（每请求新连接）。
	ProxyURL string

	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration

	// FollowRedirects=false 时直接返回 3xx 响应本身（登录需要读取 302 上的 Set-Cookie）。
	FollowRedirects bool

	// UserAgent 为空时使用 BrowserUA。
	UserAgent string
}

// NewClient 构造 HTTP client。
//
// 规则：
// - 不设置整体 Timeout：大文件上传耗时不可预估，取消交给 ctx
// - 只限制握手与等待响应头的时间（响应头计时从请求体发送完毕开始）
func NewClient(opts Options) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   orDefault(opts.TLSHandshakeTimeout, defaultTLSHandshakeTimeout),
		ResponseHeaderTimeout: orDefault(opts.ResponseHeaderTimeout, defaultResponseHeaderTimeout),
		ForceAttemptHTTP2:     true,
	}

	disableKeepAlives := false
	proxyURL := strings.TrimSpace(opts.ProxyURL)
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.New("proxy url 缺少 scheme 或 host：" + proxyURL)
		}
		base.Proxy = http.ProxyURL(u)
		// proxy 模式强制每请求新连接（代理池轮换依赖该行为）。
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}

	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = BrowserUA
	}

	c := &http.Client{
		Transport: &Transport{
			Base:              base,
			UserAgent:         ua,
			DisableKeepAlives: disableKeepAlives,
		},
	}
	if !opts.FollowRedirects {
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return c, nil
}

// WithoutRedirects 返回 c 的浅拷贝，该拷贝不跟随重定向。
func WithoutRedirects(c *http.Client) *http.Client {
	if c == nil {
		c = http.DefaultClient
	}
	c2 := *c
	c2.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &c2
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
