package transit

import (
	"io"

	"github.com/John-Robertt/mediaci/internal/domain"
)

// Observer 把上传流程的状态迁移/字节进度从核心流程中解耦出来。
//
// 约束：
// - transit 包只发事件，不做任何输出（stdout 留给 k=v 结果）。
// - 实现必须并发安全：OnProgress 来自写请求体的 goroutine。
type Observer interface {
	// OnState 在每次状态迁移时调用；进入 StateFailed 时 err 非空。
	OnState(state domain.UploadState, err error)
	// OnProgress 报告已写入请求体的文件字节数。
	OnProgress(sent, total int64)
}

type nopObserver struct{}

func (nopObserver) OnState(domain.UploadState, error) {}
func (nopObserver) OnProgress(int64, int64)           {}

// progressReader 在读取文件时上报累计字节数。
type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	obs   Observer
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.obs.OnProgress(p.sent, p.total)
	}
	return n, err
}
