package catalog

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/yhdm/internal/domain"
)

const (
	scheduleTitle = "番剧表"
	recentLimit   = 12
	updateInfoSel = "span.pic_text.text_right"
)

// 首页分类区块的标题关键字。
var categoryKeywords = []string{"动漫", "番剧", "排行榜"}

// ParseSchedule 解析首页的番剧表：每个 ul.vodlist 为一天。
// 只保留带更新标注的条目；没有条目的一天被跳过，Index 按保留下来的天数从 1 开始。
func (p Parser) ParseSchedule(doc *goquery.Document) []domain.ScheduleDay {
	var days []domain.ScheduleDay
	doc.Find("div.pannel").EachWithBreak(func(_ int, pannel *goquery.Selection) bool {
		if !strings.Contains(pannel.Find("h2.title").First().Text(), scheduleTitle) {
			return true
		}
		pannel.Find("ul.vodlist").Each(func(_ int, ul *goquery.Selection) {
			var items []domain.ScheduleEntry
			ul.Find("li.vodlist_item").Each(func(_ int, li *goquery.Selection) {
				it, ok := p.parseHomeItem(li)
				if !ok {
					return
				}
				upd := li.Find(updateInfoSel).First()
				if upd.Length() == 0 {
					return
				}
				items = append(items, domain.ScheduleEntry{HomeItem: it, UpdateInfo: normSpace(upd.Text())})
			})
			if len(items) == 0 {
				return
			}
			days = append(days, domain.ScheduleDay{Index: len(days) + 1, Items: items})
		})
		return false
	})
	return days
}

// ParseCategories 解析首页的分类区块（番剧表除外）；没有有效条目的区块被跳过。
func (p Parser) ParseCategories(doc *goquery.Document) []domain.Category {
	var out []domain.Category
	doc.Find("div.pannel").Each(func(_ int, pannel *goquery.Selection) {
		name := normSpace(pannel.Find("h2.title").First().Text())
		if name == "" || strings.Contains(name, scheduleTitle) || !containsAny(name, categoryKeywords) {
			return
		}
		items := p.parseHomeItems(pannel.Find("ul.vodlist li.vodlist_item"))
		if len(items) == 0 {
			return
		}
		cid, _ := firstInt(typeIDRe, pannel.Find("a.text_muted.pull_left").First().AttrOr("href", ""))
		out = append(out, domain.Category{Name: name, CategoryID: cid, Items: items})
	})
	return out
}

// ParseRecent 返回页面上前 12 个有效的 .vodlist_item。
func (p Parser) ParseRecent(doc *goquery.Document) []domain.HomeItem {
	out := make([]domain.HomeItem, 0, recentLimit)
	doc.Find(".vodlist_item").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		if it, ok := p.parseHomeItem(li); ok {
			out = append(out, it)
		}
		return len(out) < recentLimit
	})
	return out
}

// ParseHomePage 一次性解析首页的全部区块。
func (p Parser) ParseHomePage(doc *goquery.Document) domain.HomePage {
	return domain.HomePage{
		Schedule:   p.ParseSchedule(doc),
		Categories: p.ParseCategories(doc),
		Recent:     p.ParseRecent(doc),
		Rankings:   p.ParseRankings(doc),
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
