package main

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/yhdm/internal/catalog"
	"github.com/John-Robertt/yhdm/internal/config"
	"github.com/John-Robertt/yhdm/internal/domain"
	"github.com/John-Robertt/yhdm/internal/infra/cache"
	"github.com/John-Robertt/yhdm/internal/infra/httpx"
	"github.com/John-Robertt/yhdm/internal/logx"
	"github.com/John-Robertt/yhdm/internal/resolve"
	"github.com/John-Robertt/yhdm/internal/site"
)

// deps 是一次命令执行所需的全部组件，按生效配置构造。
type deps struct {
	cfg      config.EffectiveConfig
	log      zerolog.Logger
	session  site.Session
	catalog  *catalog.Client
	resolver *resolve.Resolver
	// store.Root 为空表示未配置 cache_dir，快照读写全部跳过。
	store cache.Store
}

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	jsonFlag     *bool

	once sync.Once
	deps *deps
	err  error
}

func newCommandContext(configFlag, logLevelFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		jsonFlag:     jsonFlag,
	}
}

// ensure 读取配置并构造组件；同一进程内只构造一次。
// cmd 上的 --concurrency/--listen（若存在且显式指定）参与配置合并。
func (c *commandContext) ensure(cmd *cobra.Command) (*deps, error) {
	c.once.Do(func() {
		c.deps, c.err = c.build(cmd)
	})
	return c.deps, c.err
}

func (c *commandContext) build(cmd *cobra.Command) (*deps, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	args := config.CLIArgs{}
	if c.configFlag != nil {
		args.ConfigPath = strings.TrimSpace(*c.configFlag)
	}
	if f := cmd.Flag("log-level"); f != nil && f.Changed {
		args.LogLevel, args.LogLevelSet = f.Value.String(), true
	}
	if f := cmd.Flags().Lookup("concurrency"); f != nil && f.Changed {
		n, err := cmd.Flags().GetInt("concurrency")
		if err != nil {
			return nil, err
		}
		args.Concurrency, args.ConcurrencySet = n, true
	}
	if f := cmd.Flags().Lookup("listen"); f != nil && f.Changed {
		args.Listen, args.ListenSet = f.Value.String(), true
	}

	eff, err := config.LoadEffective(cwd, args)
	if err != nil {
		return nil, err
	}

	log := logx.New(eff.LogLevel, cmd.ErrOrStderr())
	if eff.Source != "" {
		log.Debug().Str("config", eff.Source).Msg("已加载配置文件")
	}

	client, err := httpx.New(httpx.Options{
		ProxyURL:       eff.ProxyURL,
		UserAgent:      eff.UserAgent,
		TLSFingerprint: eff.TLSFingerprint,
	})
	if err != nil {
		return nil, err
	}

	sess := site.Session{BaseURL: eff.BaseURL, PlayerBaseURL: eff.PlayerBaseURL, UserAgent: eff.UserAgent}
	fetcher := &site.HTTPFetcher{Client: client, Session: sess}

	d := &deps{
		cfg:      eff,
		log:      log,
		session:  sess,
		catalog:  catalog.NewClient(fetcher, sess, log),
		resolver: resolve.NewResolver(fetcher, sess, log),
	}
	if eff.CacheDir != "" {
		d.store = cache.New(eff.CacheDir, false)
	}
	return d, nil
}

func (d *deps) cacheEnabled() bool { return d.store.Root != "" }

// loadItem 返回作品详情。refresh=false 且快照存在时直接使用快照；
// 否则抓取详情页，并在配置了 cache_dir 时写回快照。
func (d *deps) loadItem(ctx context.Context, id int, refresh bool) (domain.Item, error) {
	if !refresh && d.cacheEnabled() {
		it, ok, err := d.store.ReadDetail(id)
		switch {
		case err != nil:
			d.log.Warn().Err(err).Int("id", id).Msg("读取详情快照失败，改为在线抓取")
		case ok:
			d.log.Debug().Int("id", id).Time("refreshed_at", it.RefreshedAt).Msg("使用详情快照")
			return it, nil
		}
	}

	it, found, err := d.catalog.Detail(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}
	if !found {
		return domain.Item{}, domain.Errorf(domain.KindNotFound, "detail", "作品 %d 的详情页缺少标题或封面", id)
	}
	if d.cacheEnabled() {
		if err := d.store.WriteDetail(it); err != nil {
			d.log.Warn().Err(err).Int("id", id).Msg("写入详情快照失败")
		}
	}
	return it, nil
}

// wantTable 报告是否以表格输出：stdout 是终端且未指定 --json。
func (c *commandContext) wantTable(cmd *cobra.Command) bool {
	if c.jsonFlag != nil && *c.jsonFlag {
		return false
	}
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && isTTY(f)
}
