package site

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/John-Robertt/yhdm/internal/domain"
)

// 单个文档的读取上限，防止异常响应占满内存。
const maxBodyBytes = 8 << 20

// Request 是一次文档抓取。Query 会合并到 URL 已有的查询串中。
type Request struct {
	URL     string
	Query   url.Values
	Referer string
}

// Fetcher 抓取一个文档并返回原始字节。失败统一为 domain.KindUpstream。
type Fetcher interface {
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

// HTTPFetcher 用 *http.Client 实现 Fetcher，并按 Session 附加 UA。
type HTTPFetcher struct {
	Client  *http.Client
	Session Session
}

func (f *HTTPFetcher) Fetch(ctx context.Context, r Request) ([]byte, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, &domain.Error{Kind: domain.KindUpstream, Op: "fetch", Err: err}
	}
	if len(r.Query) > 0 {
		q := u.Query()
		for k, vs := range r.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &domain.Error{Kind: domain.KindUpstream, Op: "fetch", Err: err}
	}
	if f.Session.UserAgent != "" {
		req.Header.Set("User-Agent", f.Session.UserAgent)
	}
	if r.Referer != "" {
		req.Header.Set("Referer", r.Referer)
	}

	c := f.Client
	if c == nil {
		c = http.DefaultClient
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, &domain.Error{Kind: domain.KindUpstream, Op: "fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.Error{Kind: domain.KindUpstream, Op: "fetch", Err: &HTTPStatusError{
			URL:        u.String(),
			StatusCode: resp.StatusCode,
			Location:   resp.Header.Get("Location"),
		}}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, &domain.Error{Kind: domain.KindUpstream, Op: "fetch", Err: err}
	}
	if len(body) > maxBodyBytes {
		return nil, &domain.Error{Kind: domain.KindUpstream, Op: "fetch", Err: fmt.Errorf("响应超过 %d 字节：%s", maxBodyBytes, u.String())}
	}
	return body, nil
}
