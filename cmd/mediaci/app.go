package main

import (
	"io"
	"net/http"
	"os"

	"github.com/John-Robertt/mediaci/internal/config"
	"github.com/John-Robertt/mediaci/internal/ghactions"
	"github.com/John-Robertt/mediaci/internal/infra/httpx"
	"github.com/John-Robertt/mediaci/internal/logging"
	"github.com/John-Robertt/mediaci/internal/redact"
)

type globalFlags struct {
	configPath string
	proxy      string
	logLevel   string
	logFormat  string
}

// app 是各子命令共享的运行环境。
type app struct {
	stdout io.Writer
	stderr io.Writer

	flags   globalFlags
	console console
	// secrets 收集本次运行出现的敏感值：日志替换 + ::add-mask::。
	secrets *redact.Set
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:  stdout,
		stderr:  stderr,
		console: newConsole(stdout, stderr),
		secrets: redact.NewSet(ghactions.NewMasker(stdout)),
	}
}

// load 合并配置并初始化日志。cli 中的全局项由持久 flag 填充。
func (a *app) load(cli config.CLIArgs) (config.Effective, error) {
	cli.ConfigPath = a.flags.configPath
	cli.Proxy = a.flags.proxy
	cli.LogLevel = a.flags.logLevel
	cli.LogFormat = a.flags.logFormat

	cwd, err := os.Getwd()
	if err != nil {
		return config.Effective{}, err
	}
	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		return config.Effective{}, err
	}
	if err := logging.Init(logging.Config{Level: eff.Log.Level, Format: eff.Log.Format}, a.secrets); err != nil {
		return config.Effective{}, err
	}
	if eff.ConfigFile != "" {
		logging.L().Debug("已读取配置文件", logging.String("path", eff.ConfigFile))
	}
	return eff, nil
}

func (a *app) sink(eff config.Effective) ghactions.Sink {
	return ghactions.Sink{
		OutputPath: eff.GitHubOutput,
		EnvPath:    eff.GitHubEnv,
		Stdout:     a.stdout,
	}
}

func (a *app) httpClient(eff config.Effective) (*http.Client, error) {
	c, err := httpx.NewClient(httpx.Options{
		ProxyURL:              eff.HTTP.ProxyURL,
		TLSHandshakeTimeout:   eff.HTTP.TLSHandshakeTimeout,
		ResponseHeaderTimeout: eff.HTTP.ResponseHeaderTimeout,
		// getter 常见 302 跳转；登录请求自己禁用重定向。
		FollowRedirects: true,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
