package catalog

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/yhdm/internal/domain"
)

var (
	detailYearRe = regexp.MustCompile(`年份[:：]?\s*(\d{4})`)
	// 下一个 “xx：” 标签的起点。
	nextLabelRe = regexp.MustCompile(`\p{Han}+[:：]`)
)

const statusLabel = "状态："

var (
	detailDescChain = Chain{Text(".content .full_text > span"), Text(".content .full_text")}
	detailTypeChain = Chain{Text("ul.top_nav > li.active")}
)

// ParseDetail 解析详情页。缩略图锚点与标题是必需节点，任一缺失时返回 false。
func (p Parser) ParseDetail(doc *goquery.Document, id int) (domain.Item, bool) {
	thumbA := doc.Find(".content_thumb > a").First()
	h2 := doc.Find(".content_detail h2").First()
	if thumbA.Length() == 0 || h2.Length() == 0 {
		return domain.Item{}, false
	}
	name := normSpace(h2.Text())
	if name == "" {
		return domain.Item{}, false
	}

	data := doc.Find(".content_detail li.data")
	first := data.Eq(0)

	year := ""
	if m := detailYearRe.FindStringSubmatch(normSpace(first.Text())); m != nil {
		year = m[1]
	}
	if year == "" {
		year = domain.UnknownValue
	}

	typ := detailTypeChain.Extract(doc.Selection)
	if typ == "" {
		typ = domain.UnknownValue
	}

	lines, latest := parseLines(doc, typ)

	return domain.Item{
		ID:            id,
		Name:          name,
		Thumbnail:     p.thumbnail(thumbA),
		Status:        detailStatus(data.Eq(1)),
		LatestEpisode: latest,
		Tags:          detailTags(first),
		Type:          typ,
		Year:          year,
		Description:   detailDescChain.Extract(doc.Selection),
		Lines:         lines,
		RefreshedAt:   p.now(),
	}, true
}

// detailTags：带 /vod/search/class 链接的锚点；没有时取 “类型” 标签之后、下一个标签之前的锚点。
func detailTags(li *goquery.Selection) []string {
	var tags []string
	li.Find("a").Each(func(_ int, a *goquery.Selection) {
		if strings.Contains(a.AttrOr("href", ""), "/vod/search/class") {
			tags = append(tags, normSpace(a.Text()))
		}
	})
	if len(tags) == 0 {
		li.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
			if !strings.Contains(span.Text(), "类型") {
				return true
			}
			for s := span.Next(); s.Length() > 0 && !s.Is("span"); s = s.Next() {
				if s.Is("a") {
					tags = append(tags, normSpace(s.Text()))
				}
			}
			return false
		})
	}
	return dedupe(tags)
}

// detailStatus：第二个 li.data 中的 span.data_style；没有时取 “状态：” 之后到下一个标签之前的文本。
func detailStatus(li *goquery.Selection) string {
	if li.Length() == 0 {
		return ""
	}
	if s := (Chain{Text("span.data_style")}).Extract(li); s != "" {
		return s
	}
	text := normSpace(li.Text())
	i := strings.Index(text, statusLabel)
	if i < 0 {
		return ""
	}
	rest := text[i+len(statusLabel):]
	if loc := nextLabelRe.FindStringIndex(rest); loc != nil && loc[0] > 0 {
		rest = rest[:loc[0]]
	}
	return strings.TrimSpace(rest)
}

// parseLines 解析播放线路并计算最新集数。
//
// 线路 ID 取第一个链接中的 /sid/<n>；无法提取或已出现过的线路整块丢弃（首次出现为准）。
// 块内只为文本非空的链接分配从 1 开始的顺序号。
func parseLines(doc *goquery.Document, typ string) ([]domain.StreamLine, int) {
	blocks := doc.Find("ul.content_playlist")
	if blocks.Length() == 0 {
		blocks = doc.Find("div.playlist_full")
	}

	var (
		lines  []domain.StreamLine
		latest int
		seen   = make(map[int]struct{})
	)
	blocks.Each(func(_ int, block *goquery.Selection) {
		links := block.Find("a")
		if links.Length() == 0 {
			return
		}
		sid, ok := firstInt(sidRe, links.First().AttrOr("href", ""))
		if !ok {
			return
		}
		if _, dup := seen[sid]; dup {
			return
		}
		line := domain.StreamLine{ID: sid}
		links.Each(func(_ int, a *goquery.Selection) {
			title := normSpace(a.Text())
			if title == "" {
				return
			}
			line.Episodes = append(line.Episodes, domain.Episode{ID: len(line.Episodes) + 1, Title: title})
		})
		// 空块不占用 sid，后面同 sid 的块仍可生效。
		if len(line.Episodes) == 0 {
			return
		}
		seen[sid] = struct{}{}
		lines = append(lines, line)
		if n := line.RegularCount(); n > latest {
			latest = n
		}
	})

	if typ == domain.MovieType && len(lines) > 0 {
		latest = 1
	}
	return lines, latest
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	m := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := m[s]; ok {
			continue
		}
		m[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
