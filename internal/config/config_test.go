package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMerge_Defaults(t *testing.T) {
	cwd := t.TempDir()

	eff, err := Merge(cwd, CLIArgs{}, Env{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigFile != "" {
		t.Fatalf("没有 mediaci.toml 时不应报告配置文件，实际 %q", eff.ConfigFile)
	}
	if eff.Find.Root != DefaultFindRoot || eff.Find.Threshold != DefaultThreshold {
		t.Fatalf("默认值不正确：%+v", eff.Find)
	}
	if eff.Log.Level != "info" || eff.Log.Format != "console" {
		t.Fatalf("日志默认值不正确：%+v", eff.Log)
	}
}

func TestMerge_ExplicitConfigNotFound(t *testing.T) {
	cwd := t.TempDir()

	_, err := Merge(cwd, CLIArgs{ConfigPath: "missing.toml"}, Env{})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}

	_, err = Merge(cwd, CLIArgs{}, Env{ConfigPath: "also-missing.toml"})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("MEDIACI_CONFIG 指向不存在的文件也应报 %q，实际 %q", ErrCodeNotFound, Code(err))
	}
}

func TestMerge_PrecedenceCLIEnvFile(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, DefaultFileName), []byte(`
[find]
root = "from-file"
threshold = 0.8
exclude_dirs = ["tmp"]

[http]
proxy = "http://file-proxy:1"

[log]
level = "warn"
`))

	eff, err := Merge(cwd, CLIArgs{}, Env{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ConfigFile != filepath.Join(cwd, DefaultFileName) {
		t.Fatalf("配置文件路径不正确：%q", eff.ConfigFile)
	}
	if eff.Find.Root != filepath.Join(cwd, "from-file") {
		t.Fatalf("相对 root 应以 cwd 为基准，实际 %q", eff.Find.Root)
	}
	if eff.Find.Threshold != 0.8 || len(eff.Find.ExcludeDirs) != 1 || eff.Log.Level != "warn" {
		t.Fatalf("文件配置未生效：%+v %+v", eff.Find, eff.Log)
	}

	// env 覆盖文件。
	eff, err = Merge(cwd, CLIArgs{}, Env{FindRoot: "/env-root", Proxy: "http://env-proxy:2", LogLevel: "DEBUG"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Find.Root != "/env-root" || eff.HTTP.ProxyURL != "http://env-proxy:2" || eff.Log.Level != "debug" {
		t.Fatalf("env 应覆盖文件：%+v %+v %+v", eff.Find, eff.HTTP, eff.Log)
	}

	// CLI 覆盖 env。
	eff, err = Merge(cwd, CLIArgs{
		FindRoot:     "/cli-root",
		Threshold:    0.5,
		ThresholdSet: true,
		ExcludeDirs:  []string{"a", "b"},
		Proxy:        "http://cli-proxy:3",
	}, Env{FindRoot: "/env-root", Proxy: "http://env-proxy:2"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Find.Root != "/cli-root" || eff.Find.Threshold != 0.5 || len(eff.Find.ExcludeDirs) != 2 {
		t.Fatalf("CLI 应覆盖 env：%+v", eff.Find)
	}
	if eff.HTTP.ProxyURL != "http://cli-proxy:3" {
		t.Fatalf("CLI proxy 应覆盖 env：%q", eff.HTTP.ProxyURL)
	}
}

func TestMerge_RejectsSecretsInFile(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, DefaultFileName), []byte(`
[vidmoly]
username = "alice"
password = "s3cret"
`))

	_, err := Merge(cwd, CLIArgs{}, Env{})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
	}
}

func TestMerge_InvalidTOML(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, DefaultFileName), []byte(`[find`))

	_, err := Merge(cwd, CLIArgs{}, Env{})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
	}
}

func TestMerge_Validation(t *testing.T) {
	cases := []struct {
		name string
		cli  CLIArgs
		env  Env
		file string
	}{
		{name: "threshold=0", cli: CLIArgs{Threshold: 0, ThresholdSet: true}},
		{name: "threshold>1", file: "[find]\nthreshold = 1.5\n"},
		{name: "login_url 非 http", env: Env{LoginURL: "ftp://vidmoly.me/"}},
		{name: "transit_url 缺 host", file: "[vidmoly]\ntransit_url = \"https:///upload\"\n"},
		{name: "proxy 无效", env: Env{Proxy: "not-a-url"}},
		{name: "timeout 无效", file: "[http]\ntls_handshake_timeout = \"soon\"\n"},
		{name: "timeout 非正", file: "[http]\nresponse_header_timeout = \"-1s\"\n"},
		{name: "log level", cli: CLIArgs{LogLevel: "verbose"}},
		{name: "log format", env: Env{LogFormat: "xml"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cwd := t.TempDir()
			if tc.file != "" {
				writeFile(t, filepath.Join(cwd, DefaultFileName), []byte(tc.file))
			}
			_, err := Merge(cwd, tc.cli, tc.env)
			if Code(err) != ErrCodeInvalid {
				t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
			}
		})
	}
}

func TestMerge_Timeouts(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, DefaultFileName), []byte(`
[http]
tls_handshake_timeout = "5s"
response_header_timeout = "3m"
`))

	eff, err := Merge(cwd, CLIArgs{}, Env{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.HTTP.TLSHandshakeTimeout != 5*time.Second || eff.HTTP.ResponseHeaderTimeout != 3*time.Minute {
		t.Fatalf("超时解析不正确：%+v", eff.HTTP)
	}
}

func TestMerge_EnvOnlyFields(t *testing.T) {
	eff, err := Merge(t.TempDir(), CLIArgs{}, Env{
		Target:       " movie.mp4 ",
		Username:     "alice",
		Password:     "s3cret",
		GetterURL:    "https://relay.example/get",
		RcloneConfig: "/home/runner/rclone.conf",
		RcloneBlob:   "W3JdCg==",
		Home:         "/home/runner",
		GitHubOutput: "/tmp/out",
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Target != " movie.mp4 " {
		t.Fatalf("target 应原样保留，实际 %q", eff.Target)
	}
	if eff.Credentials.Username != "alice" || eff.Credentials.Password != "s3cret" {
		t.Fatalf("凭据未传递")
	}
	if eff.Relay.GetterURL != "https://relay.example/get" || eff.GitHubOutput != "/tmp/out" {
		t.Fatalf("env 字段未传递：%+v", eff)
	}
	if eff.Relay.ConfigPath != "/home/runner/rclone.conf" || eff.Relay.Blob != "W3JdCg==" || eff.Relay.Home != "/home/runner" {
		t.Fatalf("rclone 查找相关字段未传递：%+v", eff.Relay)
	}
}

func TestLoadEffective_ReadsProcessEnv(t *testing.T) {
	cwd := t.TempDir()
	t.Setenv("TARGET", "clip.mkv")
	t.Setenv("MEDIACI_FIND_ROOT", "/srv/media")
	t.Setenv("MEDIACI_LOG_FORMAT", "json")
	t.Setenv("B64_RCLONE", "W3JdCg==")

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Target != "clip.mkv" || eff.Find.Root != "/srv/media" || eff.Log.Format != "json" || eff.Relay.Blob != "W3JdCg==" {
		t.Fatalf("环境变量未生效：%+v", eff)
	}
}

func TestMissingInput(t *testing.T) {
	err := MissingInput("缺少 %s", "target")
	if Code(err) != ErrCodeMissingInput {
		t.Fatalf("期望 %q，实际 %q", ErrCodeMissingInput, Code(err))
	}
	if err.Error() != "missing_input：缺少 target" {
		t.Fatalf("错误信息不正确：%q", err.Error())
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败 %q：%v", path, err)
	}
}
