package match

import (
	"errors"
	"sort"
	"strings"

	"github.com/John-Robertt/mediaci/internal/domain"
	"github.com/John-Robertt/mediaci/internal/scan"
)

// DefaultThreshold 是“可信匹配”的分数下限（含）。
const DefaultThreshold = 0.95

var (
	// ErrEmptyTarget 表示未提供目标文件名（在任何 I/O 之前报错）。
	ErrEmptyTarget = errors.New("目标文件名为空")
	// ErrNoFile 表示扫描根目录下没有任何候选文件。
	ErrNoFile = errors.New("未找到任何文件")
)

// Options 控制扫描范围与可信阈值。零值可用。
type Options struct {
	ExcludeDirs []string
	// Threshold <= 0 时使用 DefaultThreshold。
	Threshold float64
}

func (o Options) threshold() float64 {
	if o.Threshold <= 0 {
		return DefaultThreshold
	}
	return o.Threshold
}

// FindBestMatch 扫描 root 并返回与 target 最相似的文件。
//
// 只有分数严格大于 0 的候选才可能入选；全部为 0 时按“未找到”处理（ErrNoFile）。
// target 原样参与打分，首尾空白只影响“是否为空”的判断。
//
// 平分时保留先遍历到的候选（严格大于才替换）。遍历顺序来自 scan.ScanFiles：
// 在 Go 里是逐目录字典序，但不同文件系统/平台的文件名排序规则可能不同，
// 调用方不应依赖平分时的具体结果。
func FindBestMatch(root, target string, opts Options) (domain.Match, error) {
	if strings.TrimSpace(target) == "" {
		return domain.Match{}, ErrEmptyTarget
	}

	files, err := scan.ScanFiles(root, opts.ExcludeDirs)
	if err != nil {
		return domain.Match{}, err
	}

	best := -1
	bestScore := 0.0
	for i, f := range files {
		s := Ratio(f.Base, target)
		if s > bestScore {
			best = i
			bestScore = s
		}
	}
	if best < 0 {
		return domain.Match{}, ErrNoFile
	}

	return domain.Match{
		Path:      files[best].AbsPath,
		Score:     bestScore,
		Confident: bestScore >= opts.threshold(),
	}, nil
}

// Rank 给全部候选打分并按分数降序返回（平分保持遍历顺序）。
// 用于诊断输出：让用户看到“第二名差多少”。
// 与 FindBestMatch 一致：第一名分数为 0 时返回 ErrNoFile。
func Rank(root, target string, opts Options) ([]domain.Match, error) {
	if strings.TrimSpace(target) == "" {
		return nil, ErrEmptyTarget
	}

	files, err := scan.ScanFiles(root, opts.ExcludeDirs)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoFile
	}

	th := opts.threshold()
	out := make([]domain.Match, 0, len(files))
	for _, f := range files {
		s := Ratio(f.Base, target)
		out = append(out, domain.Match{Path: f.AbsPath, Score: s, Confident: s >= th})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if out[0].Score <= 0 {
		return nil, ErrNoFile
	}
	return out, nil
}
