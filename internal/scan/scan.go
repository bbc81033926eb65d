package scan

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/mediaci/internal/domain"
)

// ScanFiles 递归扫描 root 下的全部常规文件，不做扩展名过滤。
//
// 规则（硬约束）：
// - root 必须存在且是目录，否则直接报错
// - 目录只递归、不参与打分
// - root 本身是符号链接时解析后再遍历，候选路径仍以调用方给的 root 为前缀
// - 指向常规文件的符号链接算候选；root 以下的符号链接目录不跟随（不会出现环）
// - excludeDirs：均视为相对 root 的路径（若是绝对路径，则按绝对路径处理）
//
// 输出顺序就是遍历顺序（WalkDir 在每个目录内按字典序），不再二次排序：
// 上层的“平分取先到者”依赖这个顺序。
func ScanFiles(root string, excludeDirs []string) ([]domain.Candidate, error) {
	root = filepath.Clean(root)
	fi, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("扫描根目录不可用：%w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("扫描根目录不是目录：%q", root)
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	// WalkDir 不跟随作为起点的符号链接。
	walkRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, fmt.Errorf("扫描根目录不可用：%w", err)
	}
	excluded := buildExcluded(root, excludeDirs)
	if walkRoot != root {
		excluded = append(excluded, buildExcluded(walkRoot, excludeDirs)...)
	}

	files := make([]domain.Candidate, 0, 128)
	err = filepath.WalkDir(walkRoot, func(walked string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(walkRoot, walked)
		if err != nil {
			return err
		}
		path := filepath.Join(root, rel)

		if rel != "." && (isExcluded(path, excluded) || isExcluded(walked, excluded)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if !isRegular(walked, d) {
			return nil
		}

		files = append(files, domain.Candidate{
			AbsPath: path,
			RelPath: rel,
			Base:    d.Name(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// isRegular 只认常规文件；符号链接按目标类型判断（悬空链接直接忽略）。
func isRegular(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fi.Mode().IsRegular()
}

func buildExcluded(root string, excludeDirs []string) []string {
	excluded := make([]string, 0, len(excludeDirs))
	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if filepath.IsAbs(x) {
			excluded = append(excluded, filepath.Clean(x))
			continue
		}
		// x 是相对路径：相对 root。
		excluded = append(excluded, filepath.Clean(filepath.Join(root, x)))
	}
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if isUnder(path, base) {
			return true
		}
	}
	return false
}

func isUnder(path, base string) bool {
	if path == base {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(path, base+sep)
}
