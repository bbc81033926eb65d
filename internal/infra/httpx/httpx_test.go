package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClient_ProxyDisablesKeepAlive(t *testing.T) {
	c, err := NewClient(Options{ProxyURL: "http://127.0.0.1:8080"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr, ok := c.Transport.(*Transport)
	if !ok {
		t.Fatalf("期望 *Transport，实际 %T", c.Transport)
	}
	if tr.Base.Proxy == nil {
		t.Fatalf("期望启用代理，但 Proxy=nil")
	}
	if !tr.Base.DisableKeepAlives {
		t.Fatalf("期望禁用 keep-alive，但 Base.DisableKeepAlives=false")
	}
	if !tr.DisableKeepAlives {
		t.Fatalf("期望设置 Request.Close=true 的额外保险，但 DisableKeepAlives=false")
	}
}

func TestNewClient_NoProxyKeepsDefault(t *testing.T) {
	c, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr := c.Transport.(*Transport)
	if tr.Base.Proxy != nil {
		t.Fatalf("不期望启用代理，但 Proxy!=nil")
	}
	if tr.Base.DisableKeepAlives {
		t.Fatalf("不期望禁用 keep-alive，但 Base.DisableKeepAlives=true")
	}
	if c.Timeout != 0 {
		t.Fatalf("不应设置整体超时（大文件上传），实际 %v", c.Timeout)
	}
}

func TestNewClient_InvalidProxyURL(t *testing.T) {
	if _, err := NewClient(Options{ProxyURL: "http://[::1"}); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if _, err := NewClient(Options{ProxyURL: "not-a-url"}); err == nil {
		t.Fatalf("缺少 scheme/host 时期望错误")
	}
}

func TestNewClient_DoesNotFollowRedirectsByDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/next" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "xfsts", Value: "T"})
		http.Redirect(w, r, "/next", http.StatusFound)
	}))
	defer srv.Close()

	c, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp, err := c.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("请求失败：%v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("期望拿到 302 本身，实际 %d", resp.StatusCode)
	}
	if len(resp.Header.Values("Set-Cookie")) == 0 {
		t.Fatalf("302 上的 Set-Cookie 丢失")
	}
}

func TestTransport_DefaultUAOnlyWhenMissing(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.UserAgent())
	}))
	defer srv.Close()

	c, err := NewClient(Options{FollowRedirects: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	req1, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := c.Do(req1)
	if err != nil {
		t.Fatalf("请求失败：%v", err)
	}
	resp.Body.Close()

	req2, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req2.Header.Set("User-Agent", "custom/1.0")
	resp, err = c.Do(req2)
	if err != nil {
		t.Fatalf("请求失败：%v", err)
	}
	resp.Body.Close()

	if len(got) != 2 || got[0] != BrowserUA || got[1] != "custom/1.0" {
		t.Fatalf("UA 不符合预期：%v", got)
	}
	if req1.Header.Get("User-Agent") != "" {
		t.Fatalf("RoundTripper 不应修改调用方的 request")
	}
}

func TestWithoutRedirects_CopiesClient(t *testing.T) {
	base := &http.Client{}
	c := WithoutRedirects(base)
	if c == base {
		t.Fatalf("应返回拷贝")
	}
	if c.CheckRedirect == nil || base.CheckRedirect != nil {
		t.Fatalf("只应修改拷贝的 CheckRedirect")
	}
}
