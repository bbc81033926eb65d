package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/mediaci/internal/config"
	"github.com/John-Robertt/mediaci/internal/logging"
	"github.com/John-Robertt/mediaci/internal/relay"
)

func newRcloneCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rclone",
		Short: "在 CI 运行之间中转 rclone 配置",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "从 RCLONE_GETTER_URL 取回配置，写入 GITHUB_ENV 的 B64_RCLONE",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRcloneGet(cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "把本机 rclone.conf（或 B64_RCLONE）推送到 RCLONE_SETTER_URL",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRcloneSet(cmd)
		},
	})
	return cmd
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageErrorf("%s 不接受参数", cmd.CommandPath())
	}
	return nil
}

func (a *app) runRcloneGet(cmd *cobra.Command) error {
	eff, err := a.load(config.CLIArgs{})
	if err != nil {
		return err
	}
	if eff.Relay.GetterURL == "" {
		return config.MissingInput("RCLONE_GETTER_URL 未设置")
	}
	sink := a.sink(eff)
	if sink.EnvPath == "" {
		return config.MissingInput("GITHUB_ENV 不可用")
	}

	client, err := a.httpClient(eff)
	if err != nil {
		return err
	}
	blob, err := relay.Get(cmd.Context(), client, eff.Relay.GetterURL)
	if err != nil {
		return fmt.Errorf("getter 失败：%w", err)
	}
	a.secrets.Mask(blob)

	if err := sink.WriteEnv(relay.EnvBlob, blob); err != nil {
		return fmt.Errorf("写入 GITHUB_ENV 失败：%w", err)
	}
	logging.L().Debug("配置已取回", logging.Int("b64_len", len(blob)))
	a.console.info("rclone getter：已把 %s 写入 GITHUB_ENV（已遮蔽）。", relay.EnvBlob)
	return nil
}

func (a *app) runRcloneSet(cmd *cobra.Command) error {
	eff, err := a.load(config.CLIArgs{})
	if err != nil {
		return err
	}
	if eff.Relay.SetterURL == "" {
		return config.MissingInput("RCLONE_SETTER_URL 未设置")
	}

	blob, err := relay.Resolve(relay.LocateOptions{Getenv: relayEnv(eff.Relay)})
	if err != nil {
		return err
	}
	a.secrets.Mask(blob)

	client, err := a.httpClient(eff)
	if err != nil {
		return err
	}
	if err := relay.Set(cmd.Context(), client, eff.Relay.SetterURL, blob); err != nil {
		return fmt.Errorf("setter 失败：%w", err)
	}
	a.console.info("rclone setter：配置已推送。")
	return nil
}

// relayEnv 把已解析的环境配置暴露成 relay 需要的 Getenv 形式。
func relayEnv(rc config.RelayConfig) func(string) string {
	return func(key string) string {
		switch key {
		case "RCLONE_CONFIG":
			return rc.ConfigPath
		case relay.EnvBlob:
			return rc.Blob
		case "HOME":
			return rc.Home
		default:
			return ""
		}
	}
}
