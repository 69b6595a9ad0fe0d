// Package resolve 从播放页得到真实的视频地址：
// 定位混淆引用 → 向解码端点换取密文与 uid → AES-CBC 解密。
package resolve

import (
	"bytes"
	"net/url"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/yhdm/internal/domain"
)

var refsRe = regexp.MustCompile(`(?s)url"\s*:\s*"([^"]*)".*?"url_next"\s*:\s*"([^"]*)"`)

// Locate 从播放页第一个 .player_video script 中取出当前集与下一集的引用。
// Next 为空表示没有下一集引用。
func Locate(page []byte) (domain.StreamRefs, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return domain.StreamRefs{}, false
	}
	script := doc.Find(".player_video script").First()
	if script.Length() == 0 {
		return domain.StreamRefs{}, false
	}
	code := script.Text()
	if code == "" {
		return domain.StreamRefs{}, false
	}
	m := refsRe.FindStringSubmatch(code)
	if m == nil {
		return domain.StreamRefs{}, false
	}
	primary := unescapeRef(m[1])
	if primary == "" {
		return domain.StreamRefs{}, false
	}
	return domain.StreamRefs{Primary: primary, Next: unescapeRef(m[2])}, true
}

// unescapeRef 做 percent-decode；遇到非法转义时原样保留。
func unescapeRef(s string) string {
	if v, err := url.PathUnescape(s); err == nil {
		return v
	}
	return s
}
