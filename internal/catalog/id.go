package catalog

import (
	"net/url"
	"regexp"
	"strconv"
)

var (
	idTailRe = regexp.MustCompile(`/(\d+)(?:\.html|/?)$`)
	idPathRe = regexp.MustCompile(`/id/(\d+)`)
	sidRe    = regexp.MustCompile(`/sid/(\d+)`)
	typeIDRe = regexp.MustCompile(`/type/id/(\d+)`)
)

// ExtractIDFromURL 取链接路径末尾的数字段（允许 .html 或 / 结尾）。
//
//	"/vod/detail/id/16762/"     → 16762
//	"/vod/detail/id/16762.html" → 16762
//	"/vod/detail/id//"          → 无
func ExtractIDFromURL(raw string) (int, bool) {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	return firstInt(idTailRe, p)
}

// extractItemID 先按路径末尾取 ID，再退回 /id/<n>。
func extractItemID(href string) (int, bool) {
	if id, ok := ExtractIDFromURL(href); ok {
		return id, true
	}
	return firstInt(idPathRe, href)
}

func firstInt(re *regexp.Regexp, s string) (int, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
