package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"

	"github.com/John-Robertt/mediaci/internal/domain"
)

const (
	// ErrCodeMissingInput 表示必需的输入（目标名、凭据、文件路径、端点 URL）缺失。
	ErrCodeMissingInput = "missing_input"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeNotFound 表示显式指定的配置文件不存在。
	ErrCodeNotFound = "not_found"
)

const (
	// DefaultFileName 是当前目录下自动发现的配置文件名（可选）。
	DefaultFileName = "mediaci.toml"
	// DefaultFindRoot 是 find 的默认搜索根目录。
	DefaultFindRoot = "/data"
	// DefaultThreshold 是“确信匹配”的相似度阈值。
	DefaultThreshold = 0.95
)

// Env 是从进程环境读取的全部输入（envconfig）。
type Env struct {
	ConfigPath string `envconfig:"MEDIACI_CONFIG"`

	Target   string `envconfig:"TARGET"`
	FindRoot string `envconfig:"MEDIACI_FIND_ROOT"`

	Username   string `envconfig:"VIDMOLY_USERNAME"`
	Password   string `envconfig:"VIDMOLY_PASSWORD"`
	LoginURL   string `envconfig:"VIDMOLY_LOGIN_URL"`
	TransitURL string `envconfig:"VIDMOLY_TRANSIT_URL"`
	Proxy      string `envconfig:"MEDIACI_PROXY"`

	GetterURL    string `envconfig:"RCLONE_GETTER_URL"`
	SetterURL    string `envconfig:"RCLONE_SETTER_URL"`
	RcloneConfig string `envconfig:"RCLONE_CONFIG"`
	RcloneBlob   string `envconfig:"B64_RCLONE"`
	Home         string `envconfig:"HOME"`

	GitHubOutput string `envconfig:"GITHUB_OUTPUT"`
	GitHubEnv    string `envconfig:"GITHUB_ENV"`

	LogLevel  string `envconfig:"MEDIACI_LOG_LEVEL"`
	LogFormat string `envconfig:"MEDIACI_LOG_FORMAT"`
}

// ReadEnv 读取进程环境。
func ReadEnv() (Env, error) {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return Env{}, &Error{Code: ErrCodeInvalid, Err: err}
	}
	return env, nil
}

// FileConfig 对应 mediaci.toml 的解析结构。
// 凭据类字段不接受来自文件（未知字段直接报错）。
type FileConfig struct {
	Find    FindFile    `toml:"find"`
	Vidmoly VidmolyFile `toml:"vidmoly"`
	HTTP    HTTPFile    `toml:"http"`
	Log     LogFile     `toml:"log"`
}

type FindFile struct {
	Root        string   `toml:"root"`
	Threshold   *float64 `toml:"threshold"`
	ExcludeDirs []string `toml:"exclude_dirs"`
}

type VidmolyFile struct {
	LoginURL   string `toml:"login_url"`
	TransitURL string `toml:"transit_url"`
}

type HTTPFile struct {
	Proxy                 string `toml:"proxy"`
	TLSHandshakeTimeout   string `toml:"tls_handshake_timeout"`
	ResponseHeaderTimeout string `toml:"response_header_timeout"`
}

type LogFile struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// CLIArgs 是命令行暴露的覆盖项，并保留“是否显式指定”的信息。
type CLIArgs struct {
	ConfigPath string

	FindRoot     string
	Threshold    float64
	ThresholdSet bool
	ExcludeDirs  []string

	Proxy     string
	LogLevel  string
	LogFormat string
}

// Effective 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type Effective struct {
	// ConfigFile 是实际读取的配置文件；未读取时为空。
	ConfigFile string

	Find    FindConfig
	Vidmoly VidmolyConfig
	HTTP    HTTPConfig
	Log     LogConfig
	Relay   RelayConfig

	// 以下只来自环境变量。
	Target       string
	Credentials  domain.Credentials
	GitHubOutput string
	GitHubEnv    string
}

type FindConfig struct {
	Root        string
	Threshold   float64
	ExcludeDirs []string
}

type VidmolyConfig struct {
	LoginURL   string
	TransitURL string
}

type HTTPConfig struct {
	ProxyURL              string
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type RelayConfig struct {
	GetterURL string
	SetterURL string

	// ConfigPath/Blob/Home 供 rclone.conf 查找使用（原样保留，由 relay 自行清洗）。
	ConfigPath string
	Blob       string
	Home       string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Path == "" {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// MissingInput 构造 missing_input 错误。
func MissingInput(format string, args ...any) error {
	return &Error{Code: ErrCodeMissingInput, Err: fmt.Errorf(format, args...)}
}

// LoadEffective 读取环境与配置文件，并与 CLI 参数合并为最终配置。
//
// 配置文件发现（固定）：
// 1) --config 或 MEDIACI_CONFIG 指定：必须存在
// 2) 否则尝试 <cwd>/mediaci.toml（可选）
//
// 覆盖优先级（固定）：CLI > 环境变量 > 配置文件 > 默认值。
func LoadEffective(cwd string, cli CLIArgs) (Effective, error) {
	env, err := ReadEnv()
	if err != nil {
		return Effective{}, err
	}
	return Merge(cwd, cli, env)
}

// Merge 与 LoadEffective 相同，但环境由调用方提供。
func Merge(cwd string, cli CLIArgs, env Env) (Effective, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return Effective{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cfgPath := firstNonEmpty(cli.ConfigPath, env.ConfigPath)
	required := cfgPath != ""
	if !required {
		cfgPath = DefaultFileName
	}
	cfgPath = absCleanFrom(cwdAbs, cfgPath)

	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return Effective{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		if required {
			return Effective{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
		cfgPath = ""
	}

	eff := Effective{
		ConfigFile:   cfgPath,
		Target:       env.Target,
		Credentials:  domain.Credentials{Username: env.Username, Password: env.Password},
		GitHubOutput: strings.TrimSpace(env.GitHubOutput),
		GitHubEnv:    strings.TrimSpace(env.GitHubEnv),
		Relay: RelayConfig{
			GetterURL:  strings.TrimSpace(env.GetterURL),
			SetterURL:  strings.TrimSpace(env.SetterURL),
			ConfigPath: env.RcloneConfig,
			Blob:       env.RcloneBlob,
			Home:       env.Home,
		},
	}

	root := firstNonEmpty(cli.FindRoot, env.FindRoot, fc.Find.Root, DefaultFindRoot)
	eff.Find.Root = absCleanFrom(cwdAbs, root)
	eff.Find.Threshold = DefaultThreshold
	if cli.ThresholdSet {
		eff.Find.Threshold = cli.Threshold
	} else if fc.Find.Threshold != nil {
		eff.Find.Threshold = *fc.Find.Threshold
	}
	if eff.Find.Threshold <= 0 || eff.Find.Threshold > 1 {
		return Effective{}, invalid(cfgPath, fmt.Errorf("threshold 必须在 (0, 1] 内，实际 %v", eff.Find.Threshold))
	}
	if len(cli.ExcludeDirs) > 0 {
		eff.Find.ExcludeDirs = append([]string(nil), cli.ExcludeDirs...)
	} else {
		eff.Find.ExcludeDirs = append([]string(nil), fc.Find.ExcludeDirs...)
	}

	eff.Vidmoly.LoginURL = firstNonEmpty(env.LoginURL, fc.Vidmoly.LoginURL)
	eff.Vidmoly.TransitURL = firstNonEmpty(env.TransitURL, fc.Vidmoly.TransitURL)
	for _, kv := range [][2]string{
		{"vidmoly.login_url", eff.Vidmoly.LoginURL},
		{"vidmoly.transit_url", eff.Vidmoly.TransitURL},
	} {
		if kv[1] == "" {
			continue
		}
		if err := validateHTTPURL(kv[1]); err != nil {
			return Effective{}, invalid(cfgPath, fmt.Errorf("%s 无效：%w", kv[0], err))
		}
	}

	eff.HTTP.ProxyURL = firstNonEmpty(cli.Proxy, env.Proxy, fc.HTTP.Proxy)
	if eff.HTTP.ProxyURL != "" {
		u, err := url.Parse(eff.HTTP.ProxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return Effective{}, invalid(cfgPath, fmt.Errorf("http.proxy 无效：%q", eff.HTTP.ProxyURL))
		}
	}
	if eff.HTTP.TLSHandshakeTimeout, err = parseDuration("http.tls_handshake_timeout", fc.HTTP.TLSHandshakeTimeout); err != nil {
		return Effective{}, invalid(cfgPath, err)
	}
	if eff.HTTP.ResponseHeaderTimeout, err = parseDuration("http.response_header_timeout", fc.HTTP.ResponseHeaderTimeout); err != nil {
		return Effective{}, invalid(cfgPath, err)
	}

	eff.Log.Level = strings.ToLower(firstNonEmpty(cli.LogLevel, env.LogLevel, fc.Log.Level, "info"))
	switch eff.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return Effective{}, invalid(cfgPath, fmt.Errorf("log.level 只能是 debug/info/warn/error，实际 %q", eff.Log.Level))
	}
	eff.Log.Format = strings.ToLower(firstNonEmpty(cli.LogFormat, env.LogFormat, fc.Log.Format, "console"))
	switch eff.Log.Format {
	case "console", "json":
	default:
		return Effective{}, invalid(cfgPath, fmt.Errorf("log.format 只能是 console/json，实际 %q", eff.Log.Format))
	}

	return eff, nil
}

func invalid(path string, err error) error {
	return &Error{Code: ErrCodeInvalid, Path: path, Err: err}
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("必须是 http/https：%q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("缺少 host：%q", raw)
	}
	return nil
}

func parseDuration(name, s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s 无效：%w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s 必须为正数：%q", name, s)
	}
	return d, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 TOML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return FileConfig{}, true, err
	}
	if st.IsDir() {
		return FileConfig{}, true, errors.New("是目录")
	}

	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
