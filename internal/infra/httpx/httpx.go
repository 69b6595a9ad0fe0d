package httpx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

const (
	defaultTimeout  = 20 * time.Second
	defaultRetryMax = 2
)

// Options 是构造站点 client 所需的网络策略。
type Options struct {
	// ProxyURL 支持 http/https/socks5/socks5h；为空表示直连。
	ProxyURL string
	// UserAgent 是请求未显式设置 UA 时使用的默认值。
	UserAgent string
	// TLSFingerprint 为 "chrome" 时用 utls 模拟浏览器握手（不能与代理同时启用）。
	TLSFingerprint string
	// Timeout 是单次请求（含重试）的总超时；<=0 时使用默认值。
	Timeout time.Duration
}

// Transport 把“默认 UA + keep-alive 策略 + 有界重试”固化为统一策略。
//
// 站点解析只负责“拼请求 + 解析响应”，不关心网络策略细节。
type Transport struct {
	Base http.RoundTripper

	UserAgent string

	// RetryMax 表示最大重试次数（不含首次尝试）。例如 2 表示最多 3 次尝试。
	RetryMax int

	// DisableKeepAlives 为 true 时对每个请求设置 Close=true。
	DisableKeepAlives bool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// 只对可重放的请求做重试：GET/HEAD 且无 body。
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 || !canRetry {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		r := req.Clone(req.Context())
		if r.Header.Get("User-Agent") == "" && t.UserAgent != "" {
			r.Header.Set("User-Agent", t.UserAgent)
		}
		if t.DisableKeepAlives {
			r.Close = true
		}

		resp, err := t.Base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// New 构造用于站点页面与解码端点的 HTTP client。
//
// 规则：
// - ProxyURL 为 http(s)：走 http.ProxyURL，并禁用 keep-alive
// - ProxyURL 为 socks5：经 golang.org/x/net/proxy 拨号，并禁用 keep-alive
// - TLSFingerprint=chrome：改用 utls + http2 的 RoundTripper
// - 有界重试 + 总超时
func New(opts Options) (*http.Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base, disableKeepAlives, err := newBase(strings.TrimSpace(opts.ProxyURL), strings.ToLower(strings.TrimSpace(opts.TLSFingerprint)))
	if err != nil {
		return nil, err
	}
	return &http.Client{
		Transport: &Transport{
			Base:              base,
			UserAgent:         strings.TrimSpace(opts.UserAgent),
			RetryMax:          defaultRetryMax,
			DisableKeepAlives: disableKeepAlives,
		},
		Timeout: timeout,
	}, nil
}

func newBase(proxyURL, fingerprint string) (http.RoundTripper, bool, error) {
	switch fingerprint {
	case "":
	case "chrome":
		if proxyURL != "" {
			return nil, false, errors.New("tls_fingerprint 不能与 proxy.url 同时启用")
		}
		return newUTLSRoundTripper(), false, nil
	default:
		return nil, false, fmt.Errorf("不支持的 tls_fingerprint：%q", fingerprint)
	}

	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		MaxIdleConnsPerHost:   8,
	}
	if proxyURL == "" {
		return base, false, nil
	}

	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, false, err
	}
	switch u.Scheme {
	case "http", "https":
		base.Proxy = http.ProxyURL(u)
	case "socks5", "socks5h":
		d, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return nil, false, err
		}
		base.DialContext = contextDialer(d)
	default:
		return nil, false, fmt.Errorf("不支持的代理协议：%q", u.Scheme)
	}
	// 代理模式强制每请求新连接（代理池轮换依赖该行为）。
	base.DisableKeepAlives = true
	return base, true, nil
}

func contextDialer(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}
}
