package catalog

import (
	"bytes"
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/yhdm/internal/domain"
	"github.com/John-Robertt/yhdm/internal/site"
)

// Client 组合 site.Fetcher 与 Parser：只有文档抓取失败时返回错误，解析一律降级。
type Client struct {
	Fetcher site.Fetcher
	Session site.Session
	Parser  Parser
	Log     zerolog.Logger
}

// NewClient 构造 Client；Parser.BaseURL 取自 Session。
func NewClient(f site.Fetcher, s site.Session, log zerolog.Logger) *Client {
	return &Client{
		Fetcher: f,
		Session: s,
		Parser:  Parser{BaseURL: s.BaseURL},
		Log:     log,
	}
}

func (c *Client) document(ctx context.Context, op string, req site.Request) (*goquery.Document, error) {
	body, err := c.Fetcher.Fetch(ctx, req)
	if err != nil {
		c.Log.Warn().Err(err).Str("op", op).Str("url", req.URL).Msg("抓取页面失败")
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &domain.Error{Kind: domain.KindMalformed, Op: op, Err: err}
	}
	return doc, nil
}

// Home 返回首页所有条目。
func (c *Client) Home(ctx context.Context) ([]domain.HomeItem, error) {
	doc, err := c.document(ctx, "home", site.Request{URL: c.Session.HomeURL(), Referer: c.Session.HomeURL()})
	if err != nil {
		return nil, err
	}
	return c.Parser.ParseHome(doc), nil
}

// HomePage 返回首页的番剧表、分类、最近更新与排行榜。
func (c *Client) HomePage(ctx context.Context) (domain.HomePage, error) {
	doc, err := c.document(ctx, "home", site.Request{URL: c.Session.HomeURL(), Referer: c.Session.HomeURL()})
	if err != nil {
		return domain.HomePage{}, err
	}
	hp := c.Parser.ParseHomePage(doc)
	c.Log.Debug().
		Int("schedule_days", len(hp.Schedule)).
		Int("categories", len(hp.Categories)).
		Int("rankings", len(hp.Rankings)).
		Msg("首页解析完成")
	return hp, nil
}

func (c *Client) Search(ctx context.Context, q site.SearchQuery) ([]domain.Summary, error) {
	doc, err := c.document(ctx, "search", c.Session.SearchRequest(q))
	if err != nil {
		return nil, err
	}
	return c.Parser.ParseSearch(doc), nil
}

// Suggest 返回联想词（最多 limit 个，limit<=0 时为 10）。
func (c *Client) Suggest(ctx context.Context, keyword string, limit int) ([]string, error) {
	body, err := c.Fetcher.Fetch(ctx, c.Session.SuggestRequest(keyword, limit, time.Now()))
	if err != nil {
		return nil, err
	}
	return ParseSuggestions(body), nil
}

// Detail 抓取并解析详情页。页面缺少必需节点时 ok=false（不是错误）。
func (c *Client) Detail(ctx context.Context, id int) (domain.Item, bool, error) {
	doc, err := c.document(ctx, "detail", site.Request{URL: c.Session.DetailURL(id), Referer: c.Session.HomeURL()})
	if err != nil {
		return domain.Item{}, false, err
	}
	it, ok := c.Parser.ParseDetail(doc, id)
	if !ok {
		c.Log.Info().Int("id", id).Msg("详情页缺少标题或缩略图节点")
	}
	return it, ok, nil
}

func (c *Client) Filter(ctx context.Context, q site.FilterQuery) ([]domain.Summary, error) {
	doc, err := c.document(ctx, "filter", c.Session.FilterRequest(q))
	if err != nil {
		return nil, err
	}
	return c.Parser.ParseFiltered(doc), nil
}
