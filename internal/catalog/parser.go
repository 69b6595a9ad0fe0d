package catalog

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/yhdm/internal/domain"
)

// Parser 是纯解析器：只读取文档，不做网络请求。
type Parser struct {
	// BaseURL 用于补全站内相对链接（缩略图等）。
	BaseURL string
	// Now 提供 Item.RefreshedAt；为 nil 时使用 time.Now。
	Now func() time.Time
}

func (p Parser) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(p.BaseURL)
	if err != nil || p.BaseURL == "" {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}

func (p Parser) thumbnail(s *goquery.Selection) string {
	return p.resolveURL(thumbnailChain.Extract(s))
}

var (
	anchorTitleChain = Chain{Attr("title")}
	descriptionChain = Chain{Text("p.vodlist_sub")}
	yearChain        = Chain{Text("span.vodlist_top em.voddate_year"), Text("em.voddate_year")}
	typeChain        = Chain{Text("span.vodlist_top em.voddate_type"), Text("em.voddate_type")}
)

// parseHomeItem 解析 li.vodlist_item。缺少锚点或 ID 时返回 false。
func (p Parser) parseHomeItem(li *goquery.Selection) (domain.HomeItem, bool) {
	a := li.Find("a.vodlist_thumb").First()
	if a.Length() == 0 {
		return domain.HomeItem{}, false
	}
	id, ok := extractItemID(a.AttrOr("href", ""))
	if !ok {
		return domain.HomeItem{}, false
	}
	name := anchorTitleChain.Extract(a)
	if name == "" {
		name = Chain{Text(".vodlist_title a")}.Extract(li)
	}
	return domain.HomeItem{
		Summary: domain.Summary{
			ID:        id,
			Name:      name,
			Thumbnail: p.thumbnail(a),
			Status:    Chain{Text("span.pic_text")}.Extract(li),
		},
		Year:        yearChain.Extract(li),
		Type:        typeChain.Extract(li),
		Description: descriptionChain.Extract(li),
	}, true
}

func (p Parser) parseHomeItems(sel *goquery.Selection) []domain.HomeItem {
	out := make([]domain.HomeItem, 0, sel.Length())
	sel.Each(func(_ int, li *goquery.Selection) {
		if it, ok := p.parseHomeItem(li); ok {
			out = append(out, it)
		}
	})
	return out
}
