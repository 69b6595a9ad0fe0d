package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/yhdm/internal/domain"
	"github.com/John-Robertt/yhdm/internal/site"
)

func newCatalogCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newHomeCommand(ctx),
		newRankCommand(ctx),
		newSearchCommand(ctx),
		newSuggestCommand(ctx),
		newFilterCommand(ctx),
		newDetailCommand(ctx),
	}
}

// homePage 返回首页快照：offline=true 时只读快照，否则抓取并写回快照。
func homePage(cmd *cobra.Command, d *deps, offline bool) (domain.HomePage, error) {
	if offline {
		if !d.cacheEnabled() {
			return domain.HomePage{}, fmt.Errorf("--offline 需要在配置中设置 cache_dir")
		}
		hp, savedAt, ok, err := d.store.ReadHome()
		if err != nil {
			return domain.HomePage{}, err
		}
		if !ok {
			return domain.HomePage{}, fmt.Errorf("尚无首页快照：%s", d.store.HomePath())
		}
		d.log.Debug().Time("saved_at", savedAt).Msg("使用首页快照")
		return hp, nil
	}

	hp, err := d.catalog.HomePage(cmd.Context())
	if err != nil {
		return domain.HomePage{}, err
	}
	if d.cacheEnabled() {
		if err := d.store.WriteHome(hp, time.Now()); err != nil {
			d.log.Warn().Err(err).Msg("写入首页快照失败")
		}
	}
	return hp, nil
}

func newHomeCommand(ctx *commandContext) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "home",
		Short: "显示首页：番剧表、分类与最近更新",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := ctx.ensure(cmd)
			if err != nil {
				return err
			}
			hp, err := homePage(cmd, d, offline)
			if err != nil {
				return err
			}
			if !ctx.wantTable(cmd) {
				return writeJSON(cmd, hp)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "最近更新")
			fmt.Fprintln(out, homeItemTable(hp.Recent))
			for _, c := range hp.Categories {
				fmt.Fprintf(out, "\n%s（分类 %d）\n", c.Name, c.CategoryID)
				fmt.Fprintln(out, homeItemTable(c.Items))
			}
			for _, day := range hp.Schedule {
				names := make([]string, 0, len(day.Items))
				for _, e := range day.Items {
					names = append(names, e.Name)
				}
				fmt.Fprintf(out, "\n番剧表 #%d：%s\n", day.Index, strings.Join(names, "、"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "只读取本地首页快照")
	return cmd
}

func newRankCommand(ctx *commandContext) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "显示首页排行榜",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := ctx.ensure(cmd)
			if err != nil {
				return err
			}
			hp, err := homePage(cmd, d, offline)
			if err != nil {
				return err
			}
			sections := hp.Rankings
			if sections == nil {
				sections = []domain.RankSection{}
			}
			if !ctx.wantTable(cmd) {
				return writeJSON(cmd, sections)
			}

			out := cmd.OutOrStdout()
			for _, s := range sections {
				rows := make([][]string, 0, len(s.Items))
				for _, it := range s.Items {
					rows = append(rows, []string{strconv.Itoa(it.Rank), it.Title, idText(it.ID), strconv.Itoa(it.Heat)})
				}
				fmt.Fprintln(out, s.Name)
				fmt.Fprintln(out, renderTable([]string{"排名", "标题", "ID", "热度"}, rows, []columnAlignment{alignRight, alignLeft, alignRight, alignRight}))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "只读取本地首页快照")
	return cmd
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var q site.SearchQuery
	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "按关键词搜索作品",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := ctx.ensure(cmd)
			if err != nil {
				return err
			}
			q.Keyword = strings.TrimSpace(args[0])
			if q.Keyword == "" {
				return fmt.Errorf("关键词不能为空")
			}
			items, err := d.catalog.Search(cmd.Context(), q)
			if err != nil {
				return err
			}
			return emitSummaries(ctx, cmd, items)
		},
	}
	cmd.Flags().IntVar(&q.Page, "page", 1, "页码")
	cmd.Flags().StringVar(&q.Class, "class", "", "按类型过滤")
	cmd.Flags().StringVar(&q.Actor, "actor", "", "按声优/演员过滤")
	return cmd
}

func newSuggestCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "suggest <keyword>",
		Short: "获取搜索联想词",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := ctx.ensure(cmd)
			if err != nil {
				return err
			}
			words, err := d.catalog.Suggest(cmd.Context(), strings.TrimSpace(args[0]), limit)
			if err != nil {
				return err
			}
			if words == nil {
				words = []string{}
			}
			if !ctx.wantTable(cmd) {
				return writeJSON(cmd, words)
			}
			for _, w := range words {
				fmt.Fprintln(cmd.OutOrStdout(), w)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "最多返回的联想词数量")
	return cmd
}

func newFilterCommand(ctx *commandContext) *cobra.Command {
	var q site.FilterQuery
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "按分类筛选作品",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := ctx.ensure(cmd)
			if err != nil {
				return err
			}
			if q.TypeID <= 0 {
				return fmt.Errorf("--type 必须是正整数")
			}
			items, err := d.catalog.Filter(cmd.Context(), q)
			if err != nil {
				return err
			}
			return emitSummaries(ctx, cmd, items)
		},
	}
	cmd.Flags().IntVar(&q.TypeID, "type", 0, "分类 ID（必填）")
	cmd.Flags().StringVar(&q.Class, "class", "", "类型")
	cmd.Flags().StringVar(&q.Year, "year", "", "年份")
	cmd.Flags().StringVar(&q.Letter, "letter", "", "首字母")
	cmd.Flags().StringVar(&q.Order, "order", "", "排序：time|hits|score（默认 time）")
	cmd.Flags().IntVar(&q.Page, "page", 1, "页码")
	return cmd
}

func newDetailCommand(ctx *commandContext) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "detail <id>",
		Short: "显示作品详情与播放线路",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := positiveArg("id", args[0])
			if err != nil {
				return err
			}
			d, err := ctx.ensure(cmd)
			if err != nil {
				return err
			}
			it, err := d.loadItem(cmd.Context(), id, refresh)
			if err != nil {
				return err
			}
			if !ctx.wantTable(cmd) {
				return writeJSON(cmd, it)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s（%d）\n", it.Name, it.ID)
			fmt.Fprintf(out, "类型：%s  年份：%s  状态：%s  最新：%d\n", it.Type, it.Year, it.Status, it.LatestEpisode)
			if len(it.Tags) > 0 {
				fmt.Fprintf(out, "标签：%s\n", strings.Join(it.Tags, "、"))
			}
			if it.Description != "" {
				fmt.Fprintf(out, "简介：%s\n", truncate(it.Description, 300))
			}
			rows := make([][]string, 0, len(it.Lines))
			for _, l := range it.Lines {
				first, last := "", ""
				if n := len(l.Episodes); n > 0 {
					first, last = l.Episodes[0].Title, l.Episodes[n-1].Title
				}
				rows = append(rows, []string{strconv.Itoa(l.ID), strconv.Itoa(len(l.Episodes)), strconv.Itoa(l.RegularCount()), first, last})
			}
			fmt.Fprintln(out, renderTable([]string{"线路", "集数", "正片", "首集", "末集"}, rows, []columnAlignment{alignRight, alignRight, alignRight}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", true, "忽略本地快照，重新抓取详情页")
	return cmd
}

func emitSummaries(ctx *commandContext, cmd *cobra.Command, items []domain.Summary) error {
	if items == nil {
		items = []domain.Summary{}
	}
	if !ctx.wantTable(cmd) {
		return writeJSON(cmd, items)
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{strconv.Itoa(it.ID), it.Name, it.Status})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "名称", "状态"}, rows, []columnAlignment{alignRight}))
	return nil
}

func homeItemTable(items []domain.HomeItem) string {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{strconv.Itoa(it.ID), it.Name, it.Status, it.Year, it.Type})
	}
	return renderTable([]string{"ID", "名称", "状态", "年份", "类型"}, rows, []columnAlignment{alignRight})
}

func idText(id int) string {
	if id == 0 {
		return "-"
	}
	return strconv.Itoa(id)
}

func positiveArg(name, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s 必须是正整数，实际是 %q", name, s)
	}
	return n, nil
}
