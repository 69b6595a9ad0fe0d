package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/yhdm/internal/domain"
	"github.com/John-Robertt/yhdm/internal/resolve"
	"github.com/John-Robertt/yhdm/internal/site"
)

type stubCatalog struct {
	err        error
	lastSearch site.SearchQuery
	lastFilter site.FilterQuery
	lastLimit  int
}

func (c *stubCatalog) HomePage(context.Context) (domain.HomePage, error) {
	if c.err != nil {
		return domain.HomePage{}, c.err
	}
	return domain.HomePage{Rankings: []domain.RankSection{{Name: "周榜", Items: []domain.RankItem{{Rank: 1, Title: "甲", ID: 7}}}}}, nil
}

func (c *stubCatalog) Search(_ context.Context, q site.SearchQuery) ([]domain.Summary, error) {
	c.lastSearch = q
	return []domain.Summary{{ID: 1, Name: "海贼王"}}, c.err
}

func (c *stubCatalog) Suggest(_ context.Context, _ string, limit int) ([]string, error) {
	c.lastLimit = limit
	return nil, c.err
}

func (c *stubCatalog) Detail(_ context.Context, id int) (domain.Item, bool, error) {
	if c.err != nil {
		return domain.Item{}, false, c.err
	}
	if id == 404 {
		return domain.Item{}, false, nil
	}
	return domain.Item{ID: id, Name: "详情"}, true, nil
}

func (c *stubCatalog) Filter(_ context.Context, q site.FilterQuery) ([]domain.Summary, error) {
	c.lastFilter = q
	return nil, c.err
}

type stubResolver struct {
	err error
}

func (r stubResolver) Resolve(_ context.Context, key domain.PlayKey) (domain.ResolvedStream, error) {
	if r.err != nil {
		return domain.ResolvedStream{}, r.err
	}
	return domain.ResolvedStream{
		Primary:    fmt.Sprintf("https://cdn.test/%s.m3u8", key),
		NextStatus: domain.NextFailed,
		NextErr:    errors.New("boom"),
	}, nil
}

func serve(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func TestRouter_Health(t *testing.T) {
	rr := serve(t, NewServer(zerolog.Nop(), &stubCatalog{}, stubResolver{}), "/api/v1/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", rr.Code)
	}
	if rr.Header().Get("Content-Type") != "application/json; charset=utf-8" {
		t.Fatalf("Content-Type 不符合预期：%q", rr.Header().Get("Content-Type"))
	}
}

func TestRouter_SearchPassesQuery(t *testing.T) {
	c := &stubCatalog{}
	s := NewServer(zerolog.Nop(), c, stubResolver{})

	rr := serve(t, s, "/api/v1/search?wd=%E6%B5%B7%E8%B4%BC&page=2&class=TV")
	if rr.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d body=%s", rr.Code, rr.Body.String())
	}
	if c.lastSearch.Keyword != "海贼" || c.lastSearch.Page != 2 || c.lastSearch.Class != "TV" {
		t.Fatalf("查询参数传递错误：%+v", c.lastSearch)
	}
	var got []domain.Summary
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil || len(got) != 1 {
		t.Fatalf("响应不符合预期：%s (err=%v)", rr.Body.String(), err)
	}

	if rr := serve(t, s, "/api/v1/search"); rr.Code != http.StatusBadRequest {
		t.Fatalf("缺少 wd 应返回 400，实际 %d", rr.Code)
	}
	if rr := serve(t, s, "/api/v1/search?wd=x&page=abc"); rr.Code != http.StatusBadRequest {
		t.Fatalf("page 非法应返回 400，实际 %d", rr.Code)
	}
}

func TestRouter_SuggestAndFilter(t *testing.T) {
	c := &stubCatalog{}
	s := NewServer(zerolog.Nop(), c, stubResolver{})

	rr := serve(t, s, "/api/v1/suggest?wd=a&limit=500")
	if rr.Code != http.StatusOK || rr.Body.String() != "[]\n" {
		t.Fatalf("联想词响应不符合预期：%d %q", rr.Code, rr.Body.String())
	}
	if c.lastLimit != maxSuggestLimit {
		t.Fatalf("limit 应截断为 %d，实际 %d", maxSuggestLimit, c.lastLimit)
	}

	rr = serve(t, s, "/api/v1/filter?type=4&year=2024&order=hits")
	if rr.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", rr.Code)
	}
	if c.lastFilter.TypeID != 4 || c.lastFilter.Year != "2024" || c.lastFilter.Order != "hits" {
		t.Fatalf("筛选参数传递错误：%+v", c.lastFilter)
	}
	if rr := serve(t, s, "/api/v1/filter"); rr.Code != http.StatusBadRequest {
		t.Fatalf("缺少 type 应返回 400，实际 %d", rr.Code)
	}
}

func TestRouter_Detail(t *testing.T) {
	s := NewServer(zerolog.Nop(), &stubCatalog{}, stubResolver{})

	if rr := serve(t, s, "/api/v1/detail/12"); rr.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", rr.Code)
	}
	if rr := serve(t, s, "/api/v1/detail/404"); rr.Code != http.StatusNotFound {
		t.Fatalf("缺少节点应返回 404，实际 %d", rr.Code)
	}
	if rr := serve(t, s, "/api/v1/detail/abc"); rr.Code != http.StatusBadRequest {
		t.Fatalf("非法 id 应返回 400，实际 %d", rr.Code)
	}
}

func TestRouter_RankFromHomePage(t *testing.T) {
	rr := serve(t, NewServer(zerolog.Nop(), &stubCatalog{}, stubResolver{}), "/api/v1/rank")
	var got []domain.RankSection
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("解析响应失败：%v", err)
	}
	if len(got) != 1 || got[0].Items[0].ID != 7 {
		t.Fatalf("排行榜不符合预期：%+v", got)
	}
}

func TestRouter_PlaySuccess(t *testing.T) {
	rr := serve(t, NewServer(zerolog.Nop(), &stubCatalog{}, stubResolver{}), "/api/v1/play/10/2/3")
	if rr.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d", rr.Code)
	}
	var got struct {
		Key        domain.PlayKey    `json:"key"`
		Primary    string            `json:"primary"`
		NextStatus domain.NextStatus `json:"next_status"`
		NextError  string            `json:"next_error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("解析响应失败：%v", err)
	}
	if got.Key.ItemID != 10 || got.Key.LineID != 2 || got.Key.Episode != 3 {
		t.Fatalf("key 不符合预期：%+v", got.Key)
	}
	if got.Primary != "https://cdn.test/10/2/3.m3u8" || got.NextStatus != domain.NextFailed || got.NextError != "boom" {
		t.Fatalf("响应不符合预期：%+v", got)
	}
}

func TestRouter_ErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", &resolve.Error{Stage: resolve.StageLocate, Err: domain.Errorf(domain.KindNotFound, "locate", "x")}, http.StatusNotFound},
		{"validation", domain.Errorf(domain.KindValidation, "decrypt", "x"), http.StatusNotFound},
		{"upstream", domain.Errorf(domain.KindUpstream, "fetch", "x"), http.StatusBadGateway},
		{"malformed", domain.Errorf(domain.KindMalformed, "exchange", "x"), http.StatusBadGateway},
		{"crypto", domain.Errorf(domain.KindCrypto, "decrypt", "x"), http.StatusBadGateway},
		{"timeout", &domain.Error{Kind: domain.KindUpstream, Op: "fetch", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout},
		{"unknown", errors.New("x"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewServer(zerolog.Nop(), &stubCatalog{}, stubResolver{err: tc.err})
			rr := serve(t, s, "/api/v1/play/1/1/1")
			if rr.Code != tc.want {
				t.Fatalf("期望 %d，实际 %d", tc.want, rr.Code)
			}
		})
	}

	s := NewServer(zerolog.Nop(), &stubCatalog{err: domain.Errorf(domain.KindUpstream, "fetch", "x")}, stubResolver{})
	rr := serve(t, s, "/api/v1/play/1/1/1")
	if rr.Code != http.StatusOK {
		t.Fatalf("目录错误不应影响解析，实际 %d", rr.Code)
	}
	rr = serve(t, s, "/api/v1/home")
	var body errorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || rr.Code != http.StatusBadGateway || body.Kind != "upstream" {
		t.Fatalf("错误响应不符合预期：%d %s", rr.Code, rr.Body.String())
	}

	rr = serve(t, NewServer(zerolog.Nop(), &stubCatalog{}, stubResolver{err: &resolve.Error{Stage: resolve.StageExchangePrimary, Err: domain.Errorf(domain.KindMalformed, "exchange", "x")}}), "/api/v1/play/1/1/1")
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body.Stage != string(resolve.StageExchangePrimary) {
		t.Fatalf("错误响应应带 stage：%s", rr.Body.String())
	}
}
