// Package transit 实现“登录 -> 流式上传 -> 解析响应”的会话上传流程。
//
// 流程状态：Start -> LoggedIn -> Uploading -> Parsed -> Done；任意一步失败进入 Failed，
// 失败后不会产生任何结果（也就不会写 CI 输出）。
package transit

import (
	"context"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/mediaci/internal/domain"
	"github.com/John-Robertt/mediaci/internal/logging"
	"github.com/John-Robertt/mediaci/internal/redact"
)

// Flow 持有一次上传所需的依赖。零值可用（全部走默认）。
type Flow struct {
	Client     *http.Client
	LoginURL   string
	TransitURL string

	Logger   *zap.Logger
	Redact   redact.Hook
	Observer Observer
	Rand     *rand.Rand
}

// Run 顺序执行登录、上传、解析，成功返回四项结果。
//
// 凭据与待上传文件都在任何网络请求之前检查；凭据同时注册到 Redact，令牌在拿到后立即注册。
func (f *Flow) Run(ctx context.Context, creds domain.Credentials, filePath string) (domain.UploadResult, error) {
	obs := f.observer()
	log := f.logger()
	fail := func(err error) (domain.UploadResult, error) {
		obs.OnState(domain.StateFailed, err)
		return domain.UploadResult{}, err
	}

	obs.OnState(domain.StateStart, nil)
	if creds.Username == "" || creds.Password == "" {
		return fail(ErrMissingCredentials)
	}
	f.mask(creds.Username)
	f.mask(creds.Password)
	abs, st, err := statUploadFile(filePath)
	if err != nil {
		return fail(err)
	}

	token, err := f.Login(ctx, creds)
	if err != nil {
		return fail(err)
	}
	f.mask(string(token))
	obs.OnState(domain.StateLoggedIn, nil)
	log.Info("登录成功")

	obs.OnState(domain.StateUploading, nil)
	log.Debug("开始上传", logging.String("file", abs), logging.Int64("size", st.Size()))
	started := time.Now()
	up, err := f.Upload(ctx, token, abs)
	if err != nil {
		return fail(err)
	}
	if up.Status < 200 || up.Status >= 300 {
		return fail(&HTTPStatusError{URL: up.URL, StatusCode: up.Status, Snippet: snippet(up.Body, statusSnippetLen)})
	}

	fields, err := ParseTransitHTML(up.Body)
	if err != nil || fields.FileCode == "" {
		return fail(&ProtocolError{
			Stage:      "parse",
			StatusCode: up.Status,
			Reason:     "响应缺少文件码（fn）",
			Snippet:    snippet(up.Body, parseSnippetLen),
		})
	}
	obs.OnState(domain.StateParsed, nil)

	if fields.Status != "" && !strings.EqualFold(fields.Status, "OK") {
		log.Warn("上传状态标记不是 OK",
			logging.String("st", fields.Status),
			logging.String("file_code", fields.FileCode),
		)
	}

	res := domain.UploadResult{
		Status:     up.Status,
		ProgressID: up.ProgressID,
		URL:        up.URL,
		FileCode:   fields.FileCode,
	}
	log.Info("上传完成",
		logging.Int("status", up.Status),
		logging.String("progress_id", string(up.ProgressID)),
		logging.String("file_code", fields.FileCode),
		logging.Duration("elapsed", time.Since(started)),
	)
	obs.OnState(domain.StateDone, nil)
	return res, nil
}

func (f *Flow) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

func (f *Flow) loginURL() string {
	if s := strings.TrimSpace(f.LoginURL); s != "" {
		return s
	}
	return DefaultLoginURL
}

func (f *Flow) transitURL() string {
	if s := strings.TrimSpace(f.TransitURL); s != "" {
		return s
	}
	return DefaultTransitURL
}

func (f *Flow) logger() *zap.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return logging.L()
}

func (f *Flow) observer() Observer {
	if f.Observer != nil {
		return f.Observer
	}
	return nopObserver{}
}

func (f *Flow) mask(secret string) {
	if f.Redact != nil && secret != "" {
		f.Redact.Mask(secret)
	}
}
