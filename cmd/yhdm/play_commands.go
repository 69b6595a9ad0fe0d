package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/yhdm/internal/app/batch"
	"github.com/John-Robertt/yhdm/internal/domain"
	"github.com/John-Robertt/yhdm/internal/resolve"
)

type attemptView struct {
	LineID int    `json:"line_id"`
	Stage  string `json:"stage"`
	Error  string `json:"error,omitempty"`
}

type playView struct {
	Key      domain.PlayKey `json:"key"`
	LineUsed int            `json:"line_used"`
	domain.ResolvedStream
	NextError string        `json:"next_error,omitempty"`
	Attempts  []attemptView `json:"attempts,omitempty"`
}

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var fallback, refresh bool
	cmd := &cobra.Command{
		Use:   "play <id> <line> <episode>",
		Short: "解析一集的真实播放地址",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key domain.PlayKey
			var err error
			if key.ItemID, err = positiveArg("id", args[0]); err != nil {
				return err
			}
			if key.LineID, err = positiveArg("line", args[1]); err != nil {
				return err
			}
			if key.Episode, err = positiveArg("episode", args[2]); err != nil {
				return err
			}
			d, err := ctx.ensure(cmd)
			if err != nil {
				return err
			}

			view := playView{Key: key, LineUsed: key.LineID}
			if fallback {
				it, err := d.loadItem(cmd.Context(), key.ItemID, refresh)
				if err != nil {
					return err
				}
				rs, used, attempts, err := d.resolver.ResolveAny(cmd.Context(), key.ItemID, key.Episode, lineOrder(it, key.LineID))
				view.Attempts = attemptViews(attempts)
				if err != nil {
					return fmt.Errorf("所有线路均失败（%d 次尝试）：%w", len(attempts), err)
				}
				view.ResolvedStream, view.LineUsed = rs, used
			} else {
				rs, err := d.resolver.Resolve(cmd.Context(), key)
				if err != nil {
					return err
				}
				view.ResolvedStream = rs
			}
			if view.NextErr != nil {
				view.NextError = view.NextErr.Error()
			}

			if !ctx.wantTable(cmd) {
				return writeJSON(cmd, view)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "线路：%d\n", view.LineUsed)
			fmt.Fprintf(out, "地址：%s\n", view.Primary)
			switch view.NextStatus {
			case domain.NextOK:
				fmt.Fprintf(out, "下一集：%s\n", view.Next)
			case domain.NextFailed:
				fmt.Fprintf(out, "下一集：解析失败（%s）\n", truncate(view.NextError, 160))
			default:
				fmt.Fprintf(out, "下一集：无（%s）\n", view.NextStatus)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fallback, "fallback", false, "当前线路失败时依次尝试作品的其他线路")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "--fallback 时重新抓取详情页而不是使用快照")
	return cmd
}

// lineOrder 返回尝试顺序：首选线路在前，其余按页面顺序。
func lineOrder(it domain.Item, preferred int) []int {
	ids := it.LineIDs()
	out := make([]int, 0, len(ids)+1)
	out = append(out, preferred)
	for _, id := range ids {
		if id != preferred {
			out = append(out, id)
		}
	}
	return out
}

func attemptViews(attempts []resolve.Attempt) []attemptView {
	out := make([]attemptView, 0, len(attempts))
	for _, a := range attempts {
		v := attemptView{LineID: a.LineID, Stage: string(a.Stage)}
		if a.Err != nil {
			v.Error = a.Err.Error()
		}
		out = append(out, v)
	}
	return out
}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var episodes []int
	var refresh bool
	cmd := &cobra.Command{
		Use:   "batch <id> <line>",
		Short: "并发解析一条线路的全部分集",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := positiveArg("id", args[0])
			if err != nil {
				return err
			}
			lineID, err := positiveArg("line", args[1])
			if err != nil {
				return err
			}
			d, err := ctx.ensure(cmd)
			if err != nil {
				return err
			}
			it, err := d.loadItem(cmd.Context(), itemID, refresh)
			if err != nil {
				return err
			}

			progressW, interactive := pickProgressWriter(cmd)
			var obs batch.Observer
			if interactive {
				obs = newProgressUI(progressW)
			}

			rep, err := batch.Execute(cmd.Context(), d.resolver, it, lineID, batch.Options{
				Concurrency: d.cfg.Concurrency,
				Episodes:    episodes,
			}, obs)
			if err != nil {
				return err
			}

			if d.cacheEnabled() {
				path, err := d.store.WriteReport(rep)
				if err != nil {
					d.log.Warn().Err(err).Msg("写入批量报告失败")
				} else {
					d.log.Info().Str("path", path).Msg("已写入批量报告")
				}
			}

			if err := emitReport(ctx, cmd, rep); err != nil {
				return err
			}
			if rep.Summary.Failed > 0 {
				return fmt.Errorf("%d 集解析失败", rep.Summary.Failed)
			}
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&episodes, "episodes", nil, "只解析这些集（逗号分隔的集序号）")
	cmd.Flags().Int("concurrency", 0, "并发数（1..32，默认取配置）")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "重新抓取详情页而不是使用快照")
	return cmd
}

func emitReport(ctx *commandContext, cmd *cobra.Command, rep domain.BatchReport) error {
	if !ctx.wantTable(cmd) {
		return writeJSON(cmd, rep)
	}
	rows := make([][]string, 0, len(rep.Items))
	for _, it := range rep.Items {
		detail := it.URL
		if it.Status == domain.StatusFailed {
			detail = fmt.Sprintf("%s/%s: %s", it.Stage, it.ErrorKind, truncate(it.ErrorMsg, 100))
		}
		rows = append(rows, []string{strconv.Itoa(it.Episode), it.Title, it.Status, detail})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable([]string{"集", "标题", "状态", "地址/错误"}, rows, []columnAlignment{alignRight}))
	fmt.Fprintf(out, "完成：resolved=%d failed=%d with_next=%d\n", rep.Summary.Resolved, rep.Summary.Failed, rep.Summary.WithNext)
	return nil
}

// pickProgressWriter 只在交互终端启用进度输出；默认走 stderr，不污染 stdout 的 JSON。
func pickProgressWriter(cmd *cobra.Command) (io.Writer, bool) {
	if f, ok := cmd.ErrOrStderr().(*os.File); ok && isTTY(f) {
		return f, true
	}
	return nil, false
}
