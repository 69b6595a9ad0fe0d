// Package catalog 把站点渲染后的页面解析为目录实体。
//
// 每个字段都由一条有序的提取链（Chain）得到：第一个给出非空值的策略胜出，
// 全部失败时字段为空值。单个字段缺失不会让记录失败；缺少锚点/ID 的记录被跳过；
// 页面级解析从不返回错误。
package catalog

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy 从一个节点提取字段值；ok=false 或空串表示未命中。
type Strategy func(*goquery.Selection) (string, bool)

// Chain 是按顺序尝试的策略列表。
type Chain []Strategy

// Extract 返回第一个非空结果；全部失败时返回空串。
func (c Chain) Extract(s *goquery.Selection) string {
	if s == nil || s.Length() == 0 {
		return ""
	}
	for _, st := range c {
		if v, ok := st(s); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// Attr 读取节点自身的属性。
func Attr(name string) Strategy {
	return func(s *goquery.Selection) (string, bool) {
		return s.Attr(name)
	}
}

// Text 读取 selector 命中的第一个后代节点的规范化文本；selector 为空时读节点自身。
func Text(selector string) Strategy {
	return func(s *goquery.Selection) (string, bool) {
		if selector != "" {
			s = s.Find(selector).First()
		}
		if s.Length() == 0 {
			return "", false
		}
		return normSpace(s.Text()), true
	}
}

// AttrOf 读取 selector 命中的第一个后代节点的属性。
func AttrOf(selector, name string) Strategy {
	return func(s *goquery.Selection) (string, bool) {
		return s.Find(selector).First().Attr(name)
	}
}

var styleURLRe = regexp.MustCompile(`url\(\s*['"]?([^'")]+)['"]?\s*\)`)

// StyleURL 从 style 属性的 background url(...) 中取地址。
func StyleURL() Strategy {
	return func(s *goquery.Selection) (string, bool) {
		style, ok := s.Attr("style")
		if !ok {
			return "", false
		}
		m := styleURLRe.FindStringSubmatch(style)
		if m == nil {
			return "", false
		}
		return m[1], true
	}
}

// thumbnailChain：data-original（懒加载）→ src → style 背景图。
var thumbnailChain = Chain{Attr("data-original"), Attr("src"), StyleURL()}

func normSpace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}
