package catalog

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/width"

	"github.com/John-Robertt/yhdm/internal/domain"
)

var (
	heatRe        = regexp.MustCompile(`(\d+)\D*$`)
	leadDigitsRe  = regexp.MustCompile(`^\d+\s*`)
	digitRunRe    = regexp.MustCompile(`\d+\s*`)
	spaceRunRe    = regexp.MustCompile(`\s+`)
	nonWordRe     = regexp.MustCompile(`[^\p{L}\p{N}_]`)
	rankThumbSel  = "div.ranklist_thumb.lazyload"
	rankInfoChain = Chain{Text("p.vodlist_sub")}
)

// ParseRankings 解析 div.list_info 榜单。Rank 为条目在榜单中的位置（从 1 开始），与形态无关。
func (p Parser) ParseRankings(doc *goquery.Document) []domain.RankSection {
	var out []domain.RankSection
	doc.Find("div.list_info").Each(func(_ int, section *goquery.Selection) {
		name := normSpace(section.Find("h3.title").First().Text())
		if name == "" {
			return
		}
		rs := domain.RankSection{Name: name, Items: []domain.RankItem{}}
		section.Find("li").Each(func(_ int, li *goquery.Selection) {
			var (
				it domain.RankItem
				ok bool
			)
			if li.HasClass("ranklist_item") {
				it, ok = p.parseIllustrated(li)
			} else {
				it, ok = parsePlain(li)
			}
			if !ok {
				return
			}
			it.Rank = len(rs.Items) + 1
			rs.Items = append(rs.Items, it)
		})
		if len(rs.Items) == 0 {
			return
		}
		out = append(out, rs)
	})
	return out
}

func (p Parser) parseIllustrated(li *goquery.Selection) (domain.RankItem, bool) {
	title := Chain{Text("h4.title")}.Extract(li)
	if title == "" {
		return domain.RankItem{}, false
	}
	id, _ := extractItemID(li.Find("a").First().AttrOr("href", ""))
	thumb := li.Find(rankThumbSel).First()
	return domain.RankItem{
		Shape:     domain.ShapeIllustrated,
		Title:     title,
		ID:        id,
		Heat:      extractHeat(li),
		Info:      rankInfoChain.Extract(li),
		Thumbnail: p.resolveURL(Chain{Attr("data-original"), StyleURL()}.Extract(thumb)),
	}, true
}

func parsePlain(li *goquery.Selection) (domain.RankItem, bool) {
	a := li.Find("a").First()
	if a.Length() == 0 {
		return domain.RankItem{}, false
	}
	id, _ := extractItemID(a.AttrOr("href", ""))
	return domain.RankItem{
		Shape: domain.ShapePlain,
		Title: cleanTitle(a.Text()),
		ID:    id,
		Heat:  extractHeat(li),
	}, true
}

// cleanTitle 去掉普通榜单链接文本中夹带的名次与点击数。
func cleanTitle(s string) string {
	s = width.Fold.String(strings.TrimSpace(s))
	s = leadDigitsRe.ReplaceAllString(s, "")
	s = digitRunRe.ReplaceAllString(s, "")
	s = spaceRunRe.ReplaceAllString(strings.TrimSpace(s), " ")
	return nonWordRe.ReplaceAllString(s, "")
}

// extractHeat 取热度 span 文本末尾的数字串；没有时为 0。
func extractHeat(li *goquery.Selection) int {
	for _, sel := range []string{"span.text_muted.pull_right", "span.text_muted.pull_right.renqi", ".renqi"} {
		text := strings.TrimSpace(li.Find(sel).First().Text())
		if text == "" {
			continue
		}
		if m := heatRe.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n
			}
		}
	}
	return 0
}
