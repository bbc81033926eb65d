package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/mediaci/internal/config"
	"github.com/John-Robertt/mediaci/internal/domain"
	"github.com/John-Robertt/mediaci/internal/ghactions"
	"github.com/John-Robertt/mediaci/internal/logging"
	"github.com/John-Robertt/mediaci/internal/transit"
)

func newUploadCommand(a *app) *cobra.Command {
	var noProgress bool
	cmd := &cobra.Command{
		Use:   "upload <username> <password> <file> | upload <file>",
		Short: "登录 vidmoly 并把文件流式上传到 transit 端点",
		Long: `两种调用方式：
  mediaci upload <username> <password> <file>
  VIDMOLY_USERNAME=... VIDMOLY_PASSWORD=... mediaci upload <file>

成功后写出 upload_status / progress_id / upload_url / file_code 四个输出。`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 3 {
				return usageErrorf("upload 最多接受 3 个参数，实际 %d 个", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runUpload(cmd, args, !noProgress)
		},
	}
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "即使 stderr 是终端也不显示上传进度")
	return cmd
}

func (a *app) runUpload(cmd *cobra.Command, args []string, progress bool) error {
	eff, err := a.load(config.CLIArgs{})
	if err != nil {
		return err
	}

	creds, filePath, err := resolveUploadArgs(eff.Credentials, args)
	if err != nil {
		return err
	}
	// 在任何网络请求之前遮蔽凭据。
	a.secrets.Mask(creds.Username)
	a.secrets.Mask(creds.Password)

	client, err := a.httpClient(eff)
	if err != nil {
		return fmt.Errorf("上传失败：%w", err)
	}

	flow := &transit.Flow{
		Client:     client,
		LoginURL:   eff.Vidmoly.LoginURL,
		TransitURL: eff.Vidmoly.TransitURL,
		Logger:     logging.L(),
		Redact:     a.secrets,
	}
	if progress && isTerminal(a.stderr) {
		ui := newUploadProgress(a.stderr)
		defer ui.Stop()
		flow.Observer = ui
	}

	res, err := flow.Run(cmd.Context(), creds, filePath)
	if err != nil {
		return fmt.Errorf("上传失败：%w", err)
	}

	sink := a.sink(eff)
	if err := sink.WriteOutputs(uploadOutputs(res)); err != nil {
		return fmt.Errorf("写入输出失败：%w", err)
	}
	if sink.HasOutputFile() {
		a.console.success("上传完成（status %d），Progress ID：%s", res.Status, res.ProgressID)
	}
	return nil
}

// resolveUploadArgs 决定凭据与文件路径来源。
//
// 环境变量模式：VIDMOLY_USERNAME 与 VIDMOLY_PASSWORD 都已设置，且只给了 <file>。
// 否则按位置参数 <username> <password> <file> 解析。
func resolveUploadArgs(env domain.Credentials, args []string) (domain.Credentials, string, error) {
	if env.Username != "" && env.Password != "" && len(args) >= 1 && len(args) < 3 {
		if strings.TrimSpace(args[0]) == "" {
			return domain.Credentials{}, "", config.MissingInput("文件路径为空")
		}
		return env, args[0], nil
	}

	var creds domain.Credentials
	var filePath string
	if len(args) > 0 {
		creds.Username = args[0]
	}
	if len(args) > 1 {
		creds.Password = args[1]
	}
	if len(args) > 2 {
		filePath = args[2]
	}
	if creds.Username == "" || creds.Password == "" || strings.TrimSpace(filePath) == "" {
		return domain.Credentials{}, "", config.MissingInput(
			"用法：mediaci upload <username> <password> <file>（或设置 VIDMOLY_USERNAME/VIDMOLY_PASSWORD 并只传 <file>）",
		)
	}
	return creds, filePath, nil
}

func uploadOutputs(res domain.UploadResult) []ghactions.KV {
	return []ghactions.KV{
		{Key: "upload_status", Value: strconv.Itoa(res.Status)},
		{Key: "progress_id", Value: string(res.ProgressID)},
		{Key: "upload_url", Value: res.URL},
		{Key: "file_code", Value: res.FileCode},
	}
}
