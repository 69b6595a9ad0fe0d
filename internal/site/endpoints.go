package site

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// PlaybackURL 返回播放页地址。
func (s Session) PlaybackURL(itemID, lineID, episode int) string {
	return fmt.Sprintf("%s/index.php/vod/play/id/%d/sid/%d/nid/%d/", s.base(), itemID, lineID, episode)
}

// DetailURL 返回详情页地址。
func (s Session) DetailURL(itemID int) string {
	return fmt.Sprintf("%s/index.php/vod/detail/id/%d/", s.base(), itemID)
}

// HomeURL 返回首页地址。
func (s Session) HomeURL() string {
	return s.base() + "/"
}

// SearchPageURL 是搜索请求的 Referer。
func (s Session) SearchPageURL() string {
	return s.base() + "/index.php/vod/search/"
}

// SearchQuery 是搜索参数；Page<=0 视为 1。
type SearchQuery struct {
	Keyword string
	Class   string
	Actor   string
	Page    int
}

// SearchRequest 构造搜索请求（关键词走 query 参数，Referer 为搜索页）。
func (s Session) SearchRequest(q SearchQuery) Request {
	page := q.Page
	if page <= 0 {
		page = 1
	}
	v := url.Values{}
	v.Set("wd", q.Keyword)
	if q.Class != "" {
		v.Set("class", q.Class)
	}
	if q.Actor != "" {
		v.Set("actor", q.Actor)
	}
	v.Set("page", strconv.Itoa(page))
	return Request{URL: s.SearchPageURL(), Query: v, Referer: s.SearchPageURL()}
}

// SuggestRequest 构造联想词请求。now 用于 timestamp 参数（毫秒）。
func (s Session) SuggestRequest(keyword string, limit int, now time.Time) Request {
	if limit <= 0 {
		limit = 10
	}
	v := url.Values{}
	v.Set("mid", "1")
	v.Set("wd", keyword)
	v.Set("limit", strconv.Itoa(limit))
	v.Set("timestamp", strconv.FormatInt(now.UnixMilli(), 10))
	return Request{URL: s.base() + "/index.php/ajax/suggest", Query: v, Referer: s.HomeURL()}
}

// FilterQuery 是分类筛选参数。空字段不出现在路径中；Order 为空时按 time，Page<=0 视为 1。
type FilterQuery struct {
	TypeID int
	Class  string
	Year   string
	Letter string
	Order  string
	Page   int
}

// FilterRequest 构造筛选页请求，Referer 为该分类的首页。
func (s Session) FilterRequest(q FilterQuery) Request {
	order := strings.TrimSpace(q.Order)
	if order == "" {
		order = "time"
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s/index.php/vod/show/id/%d", s.base(), q.TypeID)
	for _, seg := range []struct{ k, v string }{{"class", q.Class}, {"year", q.Year}, {"letter", q.Letter}} {
		if v := strings.TrimSpace(seg.v); v != "" {
			fmt.Fprintf(&b, "/%s/%s", seg.k, url.PathEscape(v))
		}
	}
	fmt.Fprintf(&b, "/order/%s/page/%d.html", url.PathEscape(order), page)
	return Request{
		URL:     b.String(),
		Referer: fmt.Sprintf("%s/index.php/vod/show/id/%d/", s.base(), q.TypeID),
	}
}

// ExchangeRequest 构造解码端点请求；Referer 指向同一引用的播放器页。
func (s Session) ExchangeRequest(ref string) Request {
	v := url.Values{}
	v.Set("code", "qw")
	v.Set("if", "1")
	v.Set("url", ref)
	return Request{
		URL:   s.player() + "/player/ec.php",
		Query: v,
		// 播放器页的 url 参数是引用原文，不做转义。
		Referer: s.player() + "/player/index.php?code=qw&if=1&url=" + ref,
	}
}
