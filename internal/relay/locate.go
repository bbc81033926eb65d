package relay

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/John-Robertt/mediaci/internal/logging"
)

// ErrConfigNotFound 表示既找不到 rclone.conf，B64_RCLONE 也为空。
var ErrConfigNotFound = errors.New("rclone.conf 未找到且 B64_RCLONE 为空")

var configFileLine = regexp.MustCompile(`(?i)Configuration file is stored at:\s*(.+)\s*$`)

const commandTimeout = 10 * time.Second

// CommandRunner 执行外部命令并返回 stdout。
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// LocateOptions 描述 rclone.conf 的查找环境。零值使用真实进程环境。
type LocateOptions struct {
	Getenv func(string) string
	Run    CommandRunner
	// Exists 判断路径是否为可读的普通文件。
	Exists func(string) bool
}

func (o LocateOptions) withDefaults() LocateOptions {
	if o.Getenv == nil {
		o.Getenv = os.Getenv
	}
	if o.Run == nil {
		o.Run = execRunner
	}
	if o.Exists == nil {
		o.Exists = fileExists
	}
	return o
}

// Locate 按以下顺序查找 rclone.conf，返回第一个存在的路径：
//  1. 环境变量 RCLONE_CONFIG
//  2. `rclone config file` 的输出（命令失败时忽略）
//  3. $HOME/.config/rclone/rclone.conf、/home/runner/.config/rclone/rclone.conf、/etc/rclone/rclone.conf
func Locate(opts LocateOptions) (string, error) {
	opts = opts.withDefaults()

	if p := strings.TrimSpace(opts.Getenv("RCLONE_CONFIG")); p != "" && opts.Exists(p) {
		return p, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	out, err := opts.Run(ctx, "rclone", "config", "file")
	cancel()
	if err == nil {
		if p := parseConfigFileOutput(string(out)); p != "" && opts.Exists(p) {
			return p, nil
		}
	} else {
		logging.L().Debug("rclone config file 执行失败，继续查找常见位置", logging.Err(err))
	}

	home := strings.TrimSpace(opts.Getenv("HOME"))
	if home == "" {
		home = "/home/runner"
	}
	for _, p := range []string{
		home + "/.config/rclone/rclone.conf",
		"/home/runner/.config/rclone/rclone.conf",
		"/etc/rclone/rclone.conf",
	} {
		if opts.Exists(p) {
			return p, nil
		}
	}
	return "", ErrConfigNotFound
}

// parseConfigFileOutput 从 `rclone config file` 的输出中取出配置路径。
func parseConfigFileOutput(out string) string {
	for _, line := range strings.Split(out, "\n") {
		if m := configFileLine.FindStringSubmatch(strings.TrimRight(line, "\r")); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// Encode 读取文件并编码为单行标准 base64。
func Encode(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// Resolve 返回待推送的 base64 配置：优先本机 rclone.conf，其次环境变量 B64_RCLONE。
func Resolve(opts LocateOptions) (string, error) {
	opts = opts.withDefaults()

	path, err := Locate(opts)
	if err == nil {
		logging.L().Info("使用本机 rclone 配置", logging.String("path", path))
		return Encode(path)
	}
	if !errors.Is(err, ErrConfigNotFound) {
		return "", err
	}

	if blob := StripNewlines(opts.Getenv(EnvBlob)); blob != "" {
		logging.L().Info("未找到 rclone.conf，使用 " + EnvBlob)
		return blob, nil
	}
	return "", ErrConfigNotFound
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
