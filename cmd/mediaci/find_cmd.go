package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/mediaci/internal/config"
	"github.com/John-Robertt/mediaci/internal/domain"
	"github.com/John-Robertt/mediaci/internal/ghactions"
	"github.com/John-Robertt/mediaci/internal/logging"
	"github.com/John-Robertt/mediaci/internal/match"
)

type findFlags struct {
	root      string
	threshold float64
	exclude   []string
	top       int
}

func newFindCommand(a *app) *cobra.Command {
	var f findFlags
	cmd := &cobra.Command{
		Use:   "find [target]",
		Short: "在目录树中查找与目标文件名最相似的文件",
		Long: `按编辑距离相似度在搜索根目录下查找与 target 最接近的文件，
并把结果以 video_file=<path> 写入 GITHUB_OUTPUT（未设置时输出到 stdout）。

target 来自参数或环境变量 TARGET（两者都有时以 TARGET 为准）。`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return usageErrorf("find 最多接受 1 个参数，实际 %d 个", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFind(cmd, args, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.root, "root", "", "搜索根目录（默认 /data）")
	fl.Float64Var(&f.threshold, "threshold", config.DefaultThreshold, "确信匹配的相似度阈值 (0,1]")
	fl.StringSliceVar(&f.exclude, "exclude", nil, "排除的目录（相对 root 或绝对路径，可重复）")
	fl.IntVar(&f.top, "top", 0, "额外在 stderr 打印前 N 个候选")
	return cmd
}

func (a *app) runFind(cmd *cobra.Command, args []string, f findFlags) error {
	eff, err := a.load(config.CLIArgs{
		FindRoot:     f.root,
		Threshold:    f.threshold,
		ThresholdSet: cmd.Flags().Changed("threshold"),
		ExcludeDirs:  f.exclude,
	})
	if err != nil {
		return err
	}

	target := resolveTarget(eff.Target, args)
	if strings.TrimSpace(target) == "" {
		return config.MissingInput("未提供目标文件名：使用 mediaci find <target> 或设置 TARGET")
	}

	opts := match.Options{ExcludeDirs: eff.Find.ExcludeDirs, Threshold: eff.Find.Threshold}
	logging.L().Debug("开始查找",
		logging.String("root", eff.Find.Root),
		logging.String("target", target),
		logging.Float64("threshold", opts.Threshold),
	)

	best, err := a.bestMatch(eff.Find.Root, target, opts, f.top)
	if err != nil {
		return fmt.Errorf("查找失败（%s）：%w", eff.Find.Root, err)
	}

	if best.Confident {
		a.console.success("找到匹配：%s", best.Path)
	} else {
		a.console.warn("最佳候选：%s (%d%% 相似)", best.Path, percent(best.Score))
	}

	return a.sink(eff).WriteOutputs([]ghactions.KV{{Key: "video_file", Value: best.Path}})
}

// bestMatch 在 top>0 时额外打印候选表；两条路径的首选结果一致。
func (a *app) bestMatch(root, target string, opts match.Options, top int) (domain.Match, error) {
	if top <= 0 {
		return match.FindBestMatch(root, target, opts)
	}
	ranked, err := match.Rank(root, target, opts)
	if err != nil {
		return domain.Match{}, err
	}
	// Rank 保证 ranked 非空且第一名分数 > 0。
	fmt.Fprintln(a.stderr, renderCandidates(ranked[:min(top, len(ranked))]))
	return ranked[0], nil
}

// resolveTarget 返回目标文件名：环境变量 TARGET 优先，其次第一个参数。
// 返回值保持原样（文件名可能带首尾空格）。
func resolveTarget(envTarget string, args []string) string {
	if strings.TrimSpace(envTarget) != "" {
		return envTarget
	}
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
