package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/John-Robertt/mediaci/internal/domain"
	"github.com/John-Robertt/mediaci/internal/transit"
)

var _ transit.Observer = (*uploadProgress)(nil)

// uploadProgress 是交互终端下的上传进度输出。
//
// - 只写 stderr：stdout 留给 k=v 输出与 ::add-mask::
// - 事件驱动：transit 只发事件，CLI 决定如何展示
// - keepalive：字节长时间不变时也定期输出一行
type uploadProgress struct {
	w io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time
	lastSent    int64

	sent  int64
	total int64

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newUploadProgress(w io.Writer) *uploadProgress {
	return &uploadProgress{
		w:                  w,
		keepaliveThreshold: 10 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *uploadProgress) OnState(state domain.UploadState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	switch state {
	case domain.StateStart:
		p.startedAt = now
		fmt.Fprintf(p.w, "[%s] 登录中…\n", now.Format("15:04:05"))
	case domain.StateLoggedIn:
		fmt.Fprintf(p.w, "[%s] 已登录\n", now.Format("15:04:05"))
	case domain.StateUploading:
		fmt.Fprintf(p.w, "[%s] 开始上传\n", now.Format("15:04:05"))
		if !p.tickerStarted {
			p.startTickerLocked()
		}
	case domain.StateParsed:
		p.stopTickerLocked()
		fmt.Fprintf(p.w, "[%s] 上传完成：%s (%s)\n", now.Format("15:04:05"), p.lineLocked(), formatElapsed(now.Sub(p.startedAt)))
	case domain.StateDone:
		// Parsed 已经打印了结果行。
	case domain.StateFailed:
		p.stopTickerLocked()
		if p.sent > 0 {
			fmt.Fprintf(p.w, "[%s] 已中止：%s\n", now.Format("15:04:05"), p.lineLocked())
		}
	}
	p.lastPrinted = now
}

func (p *uploadProgress) OnProgress(sent, total int64) {
	p.mu.Lock()
	p.sent, p.total = sent, total
	p.mu.Unlock()
}

// Stop 停止 keepalive；可重复调用。
func (p *uploadProgress) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTickerLocked()
}

func (p *uploadProgress) lineLocked() string {
	return formatProgressLine(p.sent, p.total)
}

func (p *uploadProgress) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 10 * time.Second
	}
	stopCh := p.stopCh

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				// stop 与 tick 同时就绪时 select 随机选择：这里再确认一次。
				if !p.tickerStarted || p.stopCh != stopCh {
					p.mu.Unlock()
					return
				}
				moved := p.sent != p.lastSent
				if moved || time.Since(p.lastPrinted) > threshold {
					fmt.Fprintf(p.w, "上传: %s elapsed=%s\n", p.lineLocked(), formatElapsed(time.Since(p.startedAt)))
					p.lastPrinted = time.Now()
					p.lastSent = p.sent
				}
				p.mu.Unlock()
			case <-stopCh:
				return
			}
		}
	}()
}

func (p *uploadProgress) stopTickerLocked() {
	if !p.tickerStarted {
		return
	}
	close(p.stopCh)
	p.tickerStarted = false
}

// formatProgressLine 形如 "12.0 MiB / 100.0 MiB (12%)"；total 未知时不带百分比。
func formatProgressLine(sent, total int64) string {
	if total <= 0 {
		return formatBytes(sent)
	}
	pct := int(float64(sent) * 100 / float64(total))
	return fmt.Sprintf("%s / %s (%d%%)", formatBytes(sent), formatBytes(total), pct)
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit && exp < 4; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTP"[exp])
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
