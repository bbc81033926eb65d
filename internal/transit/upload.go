package transit

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/John-Robertt/mediaci/internal/domain"
	"github.com/John-Robertt/mediaci/internal/infra/httpx"
)

// DefaultTransitURL 是上传端点（不含查询串）。
const DefaultTransitURL = "https://upload-transit-eu-2x.vmrange.lat/upload/01"

const (
	progressIDLen = 12
	// 响应只是一段 HTML；超过上限的部分直接丢弃。
	maxBodyBytes = 8 << 20

	acceptHTML     = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptLanguage = "en-US,en;q=0.5"
)

// NewProgressID 生成 12 位十进制进度 ID（允许前导 0）。
// r 为 nil 时使用 math/rand 的全局源。
func NewProgressID(r *rand.Rand) domain.ProgressID {
	var b [progressIDLen]byte
	for i := range b {
		var d int
		if r != nil {
			d = r.Intn(10)
		} else {
			d = rand.Intn(10)
		}
		b[i] = byte('0' + d)
	}
	return domain.ProgressID(b[:])
}

// UploadResponse 是上传请求的原始结果；Body 已按上限截断。
type UploadResponse struct {
	Status     int
	URL        string
	ProgressID domain.ProgressID
	Body       []byte
}

// Upload 以 multipart/form-data 流式上传文件，返回原始状态码与响应体。
//
// 文件不会整体读入内存：请求体通过 io.Pipe 边读边写，不声明 Content-Length。
// 状态码是否为 2xx 由调用方判断。
func (f *Flow) Upload(ctx context.Context, token domain.SessionToken, filePath string) (UploadResponse, error) {
	if token == "" {
		return UploadResponse{}, ErrMissingToken
	}

	abs, st, err := statUploadFile(filePath)
	if err != nil {
		return UploadResponse{}, err
	}
	file, err := os.Open(abs)
	if err != nil {
		return UploadResponse{}, &FileError{Path: abs, Err: err}
	}

	id := NewProgressID(f.Rand)
	res := UploadResponse{
		URL:        f.transitURL() + "?X-Progress-ID=" + url.QueryEscape(string(id)),
		ProgressID: id,
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	contentType := mw.FormDataContentType()
	src := &progressReader{r: file, total: st.Size(), obs: f.observer()}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer file.Close()
		pw.CloseWithError(writeMultipart(mw, token, filepath.Base(abs), src))
	}()
	// 无论哪条路径返回，都要让写端 goroutine 退出。
	finish := func(cause error) {
		pr.CloseWithError(cause)
		<-done
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, res.URL, pr)
	if err != nil {
		finish(err)
		return res, err
	}
	origin := originOf(f.loginURL())
	req.Header.Set("User-Agent", httpx.BrowserUA)
	req.Header.Set("Accept", acceptHTML)
	req.Header.Set("Accept-Language", acceptLanguage)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Origin", origin)
	req.Header.Set("Referer", origin+"/")
	req.Header.Set("Sec-GPC", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "iframe")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Sec-Fetch-User", "?1")
	req.Header.Set("Priority", "u=4")

	resp, err := f.client().Do(req)
	if err != nil {
		finish(err)
		return res, err
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	finish(io.ErrClosedPipe)
	if err != nil {
		return res, err
	}
	res.Body = body
	return res, nil
}

// statUploadFile 解析为绝对路径并确认是可上传的普通文件（不打开）。
func statUploadFile(filePath string) (string, os.FileInfo, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return "", nil, &FileError{Path: filePath, Err: err}
	}
	st, err := os.Stat(abs)
	if err != nil {
		return "", nil, &FileError{Path: abs, Err: err}
	}
	if !st.Mode().IsRegular() {
		return "", nil, &FileError{Path: abs, Err: errors.New("不是普通文件")}
	}
	return abs, st, nil
}

// writeMultipart 按固定顺序写出表单字段：sess_id, file, fld_id, tos, submit_btn。
func writeMultipart(mw *multipart.Writer, token domain.SessionToken, name string, file io.Reader) error {
	if err := mw.WriteField("sess_id", string(token)); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	for _, kv := range [][2]string{{"fld_id", "0"}, {"tos", "1"}, {"submit_btn", " Upload! "}} {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return mw.Close()
}
