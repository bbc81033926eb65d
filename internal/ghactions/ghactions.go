// Package ghactions 实现 GitHub Actions 风格的输出约定：
// GITHUB_OUTPUT / GITHUB_ENV 文件追加，以及 ::add-mask:: 日志遮蔽命令。
package ghactions

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/John-Robertt/mediaci/internal/infra/fsx"
)

// MaskChunk 是单条 ::add-mask:: 的最大长度；超长值按块遮蔽，保证整体都被遮住。
const MaskChunk = 10000

// ErrNoEnvFile 表示需要写 GITHUB_ENV 但运行环境未提供。
var ErrNoEnvFile = errors.New("GITHUB_ENV 不可用")

// KV 是一条输出键值对。
type KV struct {
	Key   string
	Value string
}

// Sink 负责把结果写到 CI 输出文件；文件不可用时退化为写 Stdout。
type Sink struct {
	OutputPath string // GITHUB_OUTPUT
	EnvPath    string // GITHUB_ENV
	Stdout     io.Writer
}

// HasOutputFile 表示结果会写进 GITHUB_OUTPUT（而不是 stdout）。
func (s Sink) HasOutputFile() bool { return s.OutputPath != "" }

// WriteOutputs 一次性写出全部键值对：要么都写入，要么都不写。
func (s Sink) WriteOutputs(pairs []KV) error {
	var b strings.Builder
	for _, kv := range pairs {
		if err := validKey(kv.Key); err != nil {
			return err
		}
		if s.OutputPath == "" {
			// stdout 面向人读：保持简单的 k=v。
			fmt.Fprintf(&b, "%s=%s\n", kv.Key, kv.Value)
			continue
		}
		if err := writeEntry(&b, kv.Key, kv.Value); err != nil {
			return err
		}
	}

	if s.OutputPath == "" {
		w := s.Stdout
		if w == nil {
			w = os.Stdout
		}
		_, err := io.WriteString(w, b.String())
		return err
	}
	return fsx.AppendFile(s.OutputPath, []byte(b.String()))
}

// WriteEnv 以 heredoc 形式把 name=value 写入 GITHUB_ENV（值可以包含换行）。
func (s Sink) WriteEnv(name, value string) error {
	if s.EnvPath == "" {
		return ErrNoEnvFile
	}
	if err := validKey(name); err != nil {
		return err
	}
	var b strings.Builder
	if err := writeHeredoc(&b, name, value, "EOF"); err != nil {
		return err
	}
	return fsx.AppendFile(s.EnvPath, []byte(b.String()))
}

func validKey(k string) error {
	if k == "" || strings.ContainsAny(k, "=\r\n") {
		return fmt.Errorf("非法输出键：%q", k)
	}
	return nil
}

func writeEntry(b *strings.Builder, key, value string) error {
	if !strings.ContainsAny(value, "\r\n") {
		fmt.Fprintf(b, "%s=%s\n", key, value)
		return nil
	}
	return writeHeredoc(b, key, value, "")
}

// writeHeredoc 写出 name<<DELIM / value / DELIM。
// delim 为空或与值冲突时改用随机分隔符，避免值提前结束 heredoc。
func writeHeredoc(b *strings.Builder, name, value, delim string) error {
	if delim == "" || conflicts(value, delim) {
		d, err := randomDelimiter()
		if err != nil {
			return err
		}
		delim = d
	}
	fmt.Fprintf(b, "%s<<%s\n%s\n%s\n", name, delim, value, delim)
	return nil
}

func conflicts(value, delim string) bool {
	for _, line := range strings.Split(strings.ReplaceAll(value, "\r\n", "\n"), "\n") {
		if line == delim {
			return true
		}
	}
	return false
}

func randomDelimiter() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return "ghadelimiter_" + hex.EncodeToString(buf[:]), nil
}

// Masker 通过 ::add-mask:: 命令让 runner 在后续日志中遮蔽敏感值。
// 实现 redact.Hook。
type Masker struct {
	mu sync.Mutex
	W  io.Writer
}

// NewMasker 构造写到 w 的 Masker（通常是 stdout）。
func NewMasker(w io.Writer) *Masker {
	return &Masker{W: w}
}

func (m *Masker) Mask(secret string) {
	if secret == "" || m == nil || m.W == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, line := range strings.Split(secret, "\n") {
		line = strings.TrimRight(line, "\r")
		r := []rune(line)
		for i := 0; i < len(r); i += MaskChunk {
			end := min(i+MaskChunk, len(r))
			fmt.Fprintf(m.W, "::add-mask::%s\n", string(r[i:end]))
		}
	}
}
