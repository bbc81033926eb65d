package transit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/John-Robertt/mediaci/internal/domain"
	"github.com/John-Robertt/mediaci/internal/redact"
)

type stateRecorder struct {
	mu     sync.Mutex
	states []domain.UploadState
	errs   []error
}

func (r *stateRecorder) OnState(s domain.UploadState, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
	if err != nil {
		r.errs = append(r.errs, err)
	}
}

func (r *stateRecorder) OnProgress(int64, int64) {}

func (r *stateRecorder) last() domain.UploadState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[len(r.states)-1]
}

type fakeSite struct {
	srv          *httptest.Server
	loginHits    atomic.Int32
	uploadHits   atomic.Int32
	uploadStatus int
	uploadBody   string
	loginCookie  bool
}

func newFakeSite(t *testing.T) *fakeSite {
	t.Helper()
	fs := &fakeSite{
		uploadStatus: http.StatusOK,
		uploadBody:   `<textarea name="op">upload_result</textarea><textarea name="fn">XYZ987</textarea><textarea name="st">OK</textarea>`,
		loginCookie:  true,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		fs.loginHits.Add(1)
		if fs.loginCookie {
			http.SetCookie(w, &http.Cookie{Name: "xfsts", Value: "tok-777"})
		}
		w.Header().Set("Location", "/")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/upload/01", func(w http.ResponseWriter, r *http.Request) {
		fs.uploadHits.Add(1)
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(fs.uploadStatus)
		_, _ = io.WriteString(w, fs.uploadBody)
	})
	fs.srv = httptest.NewServer(mux)
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeSite) flow(logger *zap.Logger, hook redact.Hook, obs Observer) *Flow {
	return &Flow{
		Client:     fs.srv.Client(),
		LoginURL:   fs.srv.URL + "/login",
		TransitURL: fs.srv.URL + "/upload/01",
		Logger:     logger,
		Redact:     hook,
		Observer:   obs,
	}
}

var creds = domain.Credentials{Username: "alice", Password: "s3cret"}

func TestRun_Success(t *testing.T) {
	site := newFakeSite(t)
	rec := &stateRecorder{}
	var masked []string
	var mu sync.Mutex
	hook := redact.HookFunc(func(s string) {
		mu.Lock()
		defer mu.Unlock()
		masked = append(masked, s)
	})

	res, err := site.flow(zap.NewNop(), hook, rec).Run(context.Background(), creds, writeTemp(t, "movie.mp4", "data"))
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if res.Status != http.StatusOK || res.FileCode != "XYZ987" {
		t.Fatalf("结果不正确：%+v", res)
	}
	if !progressIDRe.MatchString(string(res.ProgressID)) {
		t.Fatalf("进度 ID 不正确：%q", res.ProgressID)
	}
	if !strings.HasSuffix(res.URL, "/upload/01?X-Progress-ID="+string(res.ProgressID)) {
		t.Fatalf("上传 URL 不正确：%s", res.URL)
	}

	want := []domain.UploadState{domain.StateStart, domain.StateLoggedIn, domain.StateUploading, domain.StateParsed, domain.StateDone}
	if len(rec.states) != len(want) {
		t.Fatalf("状态序列不正确：%v", rec.states)
	}
	for i := range want {
		if rec.states[i] != want[i] {
			t.Fatalf("状态序列不正确：%v", rec.states)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if strings.Join(masked, ",") != "alice,s3cret,tok-777" {
		t.Fatalf("凭据与令牌应依次遮蔽，实际 %v", masked)
	}
}

func TestRun_MissingCredentials(t *testing.T) {
	site := newFakeSite(t)
	rec := &stateRecorder{}
	_, err := site.flow(zap.NewNop(), nil, rec).Run(context.Background(), domain.Credentials{Username: "u"}, "x")
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("期望 ErrMissingCredentials，实际 %v", err)
	}
	if rec.last() != domain.StateFailed {
		t.Fatalf("最终状态应为 failed，实际 %v", rec.last())
	}
}

func TestRun_LoginFailureSkipsUpload(t *testing.T) {
	site := newFakeSite(t)
	site.loginCookie = false
	rec := &stateRecorder{}

	_, err := site.flow(zap.NewNop(), nil, rec).Run(context.Background(), creds, writeTemp(t, "a.mp4", "x"))
	var pe *ProtocolError
	if !errors.As(err, &pe) || pe.Stage != "login" {
		t.Fatalf("期望登录阶段的 *ProtocolError，实际 %T %v", err, err)
	}
	if site.uploadHits.Load() != 0 {
		t.Fatalf("登录失败时不应上传")
	}
	if rec.last() != domain.StateFailed || len(rec.errs) != 1 {
		t.Fatalf("失败应只上报一次：%v %v", rec.states, rec.errs)
	}
}

func TestRun_BadFileSkipsLogin(t *testing.T) {
	site := newFakeSite(t)
	rec := &stateRecorder{}

	_, err := site.flow(zap.NewNop(), nil, rec).Run(context.Background(), creds, t.TempDir())
	var fe *FileError
	if !errors.As(err, &fe) {
		t.Fatalf("期望 *FileError，实际 %T %v", err, err)
	}
	if site.loginHits.Load() != 0 || site.uploadHits.Load() != 0 {
		t.Fatalf("文件不可用时不应登录或上传：login=%d upload=%d", site.loginHits.Load(), site.uploadHits.Load())
	}
	if rec.last() != domain.StateFailed {
		t.Fatalf("最终状态应为 failed，实际 %v", rec.last())
	}
}

func TestRun_NonSuccessStatus(t *testing.T) {
	site := newFakeSite(t)
	site.uploadStatus = http.StatusBadGateway
	site.uploadBody = strings.Repeat("e", 500)

	_, err := site.flow(zap.NewNop(), nil, nil).Run(context.Background(), creds, writeTemp(t, "a.mp4", "x"))
	var he *HTTPStatusError
	if !errors.As(err, &he) {
		t.Fatalf("期望 *HTTPStatusError，实际 %T %v", err, err)
	}
	if he.StatusCode != http.StatusBadGateway || len(he.Snippet) != statusSnippetLen {
		t.Fatalf("错误字段不正确：status=%d snippet=%d", he.StatusCode, len(he.Snippet))
	}
}

func TestRun_MissingFileCode(t *testing.T) {
	site := newFakeSite(t)
	site.uploadBody = `<textarea name="st">OK</textarea>`

	_, err := site.flow(zap.NewNop(), nil, nil).Run(context.Background(), creds, writeTemp(t, "a.mp4", "x"))
	var pe *ProtocolError
	if !errors.As(err, &pe) || pe.Stage != "parse" {
		t.Fatalf("期望解析阶段的 *ProtocolError，实际 %T %v", err, err)
	}
	if pe.StatusCode != http.StatusOK || !strings.Contains(pe.Snippet, "textarea") {
		t.Fatalf("错误字段不正确：%+v", pe)
	}
}

func TestRun_StatusFlagNotOKOnlyWarns(t *testing.T) {
	site := newFakeSite(t)
	site.uploadBody = `<textarea name="fn">ABC</textarea><textarea name="st">Pending</textarea>`
	core, logs := observer.New(zapcore.DebugLevel)

	res, err := site.flow(zap.New(core), nil, nil).Run(context.Background(), creds, writeTemp(t, "a.mp4", "x"))
	if err != nil {
		t.Fatalf("st 不为 OK 时不应失败：%v", err)
	}
	if res.FileCode != "ABC" {
		t.Fatalf("file_code 不正确：%q", res.FileCode)
	}
	warns := logs.FilterLevelExact(zapcore.WarnLevel).All()
	if len(warns) != 1 || warns[0].ContextMap()["st"] != "Pending" {
		t.Fatalf("期望一条包含 st 的 WARN 日志，实际 %v", warns)
	}
}

func TestRun_StatusFlagCaseInsensitive(t *testing.T) {
	site := newFakeSite(t)
	site.uploadBody = `<textarea name="fn">ABC</textarea><textarea name="st">ok</textarea>`
	core, logs := observer.New(zapcore.DebugLevel)

	if _, err := site.flow(zap.New(core), nil, nil).Run(context.Background(), creds, writeTemp(t, "a.mp4", "x")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if n := logs.FilterLevelExact(zapcore.WarnLevel).Len(); n != 0 {
		t.Fatalf("ok（小写）不应告警，实际 %d 条", n)
	}
}

func TestRun_LogsNeverContainSecrets(t *testing.T) {
	site := newFakeSite(t)
	core, logs := observer.New(zapcore.DebugLevel)

	if _, err := site.flow(zap.New(core), nil, nil).Run(context.Background(), creds, writeTemp(t, "a.mp4", "x")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	for _, e := range logs.All() {
		line := e.Message
		for k, v := range e.ContextMap() {
			line += " " + k + "=" + strings.TrimSpace(toString(v))
		}
		for _, s := range []string{"alice", "s3cret", "tok-777"} {
			if strings.Contains(line, s) {
				t.Fatalf("日志泄露了敏感值 %q：%s", s, line)
			}
		}
	}
}

func TestRun_LogsSizeAndElapsed(t *testing.T) {
	site := newFakeSite(t)
	core, logs := observer.New(zapcore.DebugLevel)

	if _, err := site.flow(zap.New(core), nil, nil).Run(context.Background(), creds, writeTemp(t, "a.mp4", "12345")); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	start := logs.FilterMessage("开始上传").All()
	if len(start) != 1 || start[0].ContextMap()["size"] != int64(5) {
		t.Fatalf("期望一条带 size=5 的开始日志，实际 %v", start)
	}
	done := logs.FilterMessage("上传完成").All()
	if len(done) != 1 {
		t.Fatalf("期望一条完成日志，实际 %d", len(done))
	}
	if _, ok := done[0].ContextMap()["elapsed"].(time.Duration); !ok {
		t.Fatalf("完成日志缺少 elapsed：%v", done[0].ContextMap())
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
