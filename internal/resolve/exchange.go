package resolve

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/John-Robertt/yhdm/internal/domain"
	"github.com/John-Robertt/yhdm/internal/site"
)

var (
	exchangeURLRe = regexp.MustCompile(`"url"\s*:\s*("[^"]*")`)
	exchangeUIDRe = regexp.MustCompile(`"uid"\s*:\s*("[^"]*")`)
)

// Exchange 是解码端点返回的密文与会话 uid。
type Exchange struct {
	Ciphertext string
	UID        string
}

// Exchanger 以混淆引用向解码端点换取 Exchange。
type Exchanger struct {
	Fetcher site.Fetcher
	Session site.Session
}

// Exchange 请求解码端点并提取 url/uid 两个字段。
//
// 字段缺失为 KindNotFound；字段不是合法 JSON 字符串为 KindMalformed；
// 传输失败原样返回（KindUpstream）。
func (e *Exchanger) Exchange(ctx context.Context, ref string) (Exchange, error) {
	body, err := e.Fetcher.Fetch(ctx, e.Session.ExchangeRequest(ref))
	if err != nil {
		return Exchange{}, err
	}
	ct, err := jsonField(body, exchangeURLRe, "url")
	if err != nil {
		return Exchange{}, err
	}
	uid, err := jsonField(body, exchangeUIDRe, "uid")
	if err != nil {
		return Exchange{}, err
	}
	return Exchange{Ciphertext: ct, UID: uid}, nil
}

func jsonField(body []byte, re *regexp.Regexp, name string) (string, error) {
	m := re.FindSubmatch(body)
	if m == nil {
		return "", domain.Errorf(domain.KindNotFound, "exchange", "响应中没有 %s 字段", name)
	}
	var s string
	if err := json.Unmarshal(m[1], &s); err != nil {
		return "", &domain.Error{Kind: domain.KindMalformed, Op: "exchange", Err: err}
	}
	return s, nil
}
