package catalog

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/yhdm/internal/domain"
)

// ParseHome 返回页面上所有 li.vodlist_item 条目（页面顺序）。
func (p Parser) ParseHome(doc *goquery.Document) []domain.HomeItem {
	return p.parseHomeItems(doc.Find("li.vodlist_item"))
}

// ParseSearch 解析搜索结果页。
func (p Parser) ParseSearch(doc *goquery.Document) []domain.Summary {
	var out []domain.Summary
	doc.Find("li.searchlist_item").Each(func(_ int, li *goquery.Selection) {
		a := li.Find(".searchlist_img > a").First()
		if a.Length() == 0 {
			return
		}
		id, ok := extractItemID(a.AttrOr("href", ""))
		if !ok {
			return
		}
		name := anchorTitleChain.Extract(a)
		if name == "" {
			name = Chain{Text(".vodlist_title a"), Text("h4.vodlist_title")}.Extract(li)
		}
		if name == "" {
			return
		}
		out = append(out, domain.Summary{
			ID:        id,
			Name:      name,
			Thumbnail: p.thumbnail(a),
			Status:    Chain{Text("span.pic_text")}.Extract(li),
		})
	})
	return out
}

// ParseFiltered 解析分类筛选页。
func (p Parser) ParseFiltered(doc *goquery.Document) []domain.Summary {
	var out []domain.Summary
	doc.Find(".vodlist_wi > .vodlist_item").Each(func(_ int, li *goquery.Selection) {
		a := li.Find("a.vodlist_thumb").First()
		if a.Length() == 0 {
			a = li.Find("a").First()
		}
		if a.Length() == 0 {
			return
		}
		id, ok := extractItemID(a.AttrOr("href", ""))
		if !ok {
			return
		}
		name := anchorTitleChain.Extract(a)
		if name == "" {
			name = Chain{Text(".vodlist_title a")}.Extract(li)
		}
		out = append(out, domain.Summary{
			ID:        id,
			Name:      name,
			Thumbnail: p.thumbnail(a),
			Status:    Chain{Text("span.pic_text")}.Extract(li),
		})
	})
	return out
}
