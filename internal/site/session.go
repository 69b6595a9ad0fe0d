// Package site 描述目标站点：请求头约定、端点 URL 与文档抓取。
package site

import "strings"

// Session 是所有请求共用的只读站点配置。
type Session struct {
	// BaseURL 是站点根地址（无尾部 /），例如 https://www.yhdm6.top。
	BaseURL string
	// PlayerBaseURL 是解码端点所在的根地址；为空时等于 BaseURL。
	PlayerBaseURL string
	UserAgent     string
}

func (s Session) base() string {
	return strings.TrimRight(s.BaseURL, "/")
}

func (s Session) player() string {
	if p := strings.TrimRight(s.PlayerBaseURL, "/"); p != "" {
		return p
	}
	return s.base()
}
