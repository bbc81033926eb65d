package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/John-Robertt/mediaci/internal/domain"
)

// console 输出面向人的状态行：成功/告警写 stdout，失败写 stderr。
// 只有写到终端时才着色。
type console struct {
	out io.Writer
	err io.Writer

	green  *color.Color
	yellow *color.Color
	red    *color.Color
}

func newConsole(out, errw io.Writer) console {
	c := console{
		out:    out,
		err:    errw,
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed, color.Bold),
	}
	setColor(c.green, isTerminal(out))
	setColor(c.yellow, isTerminal(out))
	setColor(c.red, isTerminal(errw))
	return c
}

func setColor(c *color.Color, on bool) {
	if on {
		c.EnableColor()
		return
	}
	c.DisableColor()
}

func (c console) success(format string, args ...any) {
	c.green.Fprintf(c.out, "✅ "+format+"\n", args...)
}

func (c console) warn(format string, args ...any) {
	c.yellow.Fprintf(c.out, "⚠️ "+format+"\n", args...)
}

func (c console) fail(format string, args ...any) {
	c.red.Fprintf(c.err, "❌ "+format+"\n", args...)
}

func (c console) info(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

// isTerminal 判断 w 是否为交互终端。
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// percent 把 [0,1] 分数四舍五入为整数百分比。
func percent(score float64) int {
	return int(score*100 + 0.5)
}

// renderCandidates 以表格形式列出排名靠前的候选。
func renderCandidates(ms []domain.Match) string {
	if len(ms) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "相似度", "路径"})
	for i, m := range ms {
		tw.AppendRow(table.Row{strconv.Itoa(i + 1), fmt.Sprintf("%d%%", percent(m.Score)), m.Path})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
