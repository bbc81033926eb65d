package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/John-Robertt/mediaci/internal/config"
	"github.com/John-Robertt/mediaci/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run 执行一次 CLI 调用并返回进程退出码：
// 0 成功（含“非确信匹配”的告警）；2 缺少输入/用法错误；1 其他失败。
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout, stderr)
	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	_ = logging.Sync()
	if err == nil {
		return 0
	}

	code := exitCode(err)
	if !errors.Is(err, context.Canceled) {
		a.console.fail("%s", a.secrets.Scrub(err.Error()))
	}
	if code == 2 {
		fmt.Fprintln(stderr, `使用 "mediaci --help" 查看用法。`)
	}
	return code
}

// usageError 表示命令行用法错误（未知参数、参数个数不对等）。
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ue *usageError
	if errors.As(err, &ue) || config.Code(err) == config.ErrCodeMissingInput {
		return 2
	}
	// cobra 对未知子命令返回普通 error。
	if strings.HasPrefix(err.Error(), "unknown command") {
		return 2
	}
	return 1
}
