package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCommand(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mediaci",
		Short:         "CI 媒体工具：查找视频文件、上传到 vidmoly、中转 rclone 配置",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&a.flags.configPath, "config", "c", "", "配置文件路径（默认 ./mediaci.toml，可选）")
	pf.StringVar(&a.flags.proxy, "proxy", "", "HTTP 代理 URL")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "日志级别：debug|info|warn|error")
	pf.StringVar(&a.flags.logFormat, "log-format", "", "日志格式：console|json")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: fmt.Errorf("%s：%w", cmd.CommandPath(), err)}
	})

	rootCmd.AddCommand(newFindCommand(a))
	rootCmd.AddCommand(newUploadCommand(a))
	rootCmd.AddCommand(newRcloneCommand(a))
	return rootCmd
}
