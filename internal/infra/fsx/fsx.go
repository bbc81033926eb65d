package fsx

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// 通过可替换的函数指针，让测试能稳定模拟打开/写入失败。
var openAppendFunc = func(path string) (io.WriteCloser, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

// PathTypeConflictError 表示目标路径类型冲突（例如期望文件但实际是目录）。
type PathTypeConflictError struct {
	Path string
	Want string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("目标路径类型冲突：%q（期望 %s，实际 %s）", e.Path, e.Want, e.Got)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// AppendFile 把 data 一次性追加到 path 末尾。
//
// - 同一文件的并发追加（多个进程）通过建议锁串行化，锁文件放在临时目录，不污染目标目录
// - data 只做一次 Write：要么整体写入，要么返回错误（不做分批追加）
// - 写后 fsync；关闭失败同样视为失败
func AppendFile(path string, data []byte) (err error) {
	if len(data) == 0 {
		return nil
	}
	path = filepath.Clean(path)
	if fi, e := os.Lstat(path); e == nil {
		if fi.IsDir() {
			return &PathTypeConflictError{Path: path, Want: "file", Got: "dir"}
		}
	} else if !os.IsNotExist(e) {
		return e
	}

	lock := flock.New(lockPath(path))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("获取文件锁失败：%w", err)
	}
	defer func() { _ = lock.Unlock() }()

	f, err := openAppendFunc(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	n, err := f.Write(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return io.ErrShortWrite
	}
	if s, ok := f.(interface{ Sync() error }); ok {
		if err := s.Sync(); err != nil {
			return err
		}
	}
	return nil
}

func lockPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := sha1.Sum([]byte(abs))
	return filepath.Join(os.TempDir(), "mediaci-"+hex.EncodeToString(sum[:8])+".lock")
}
