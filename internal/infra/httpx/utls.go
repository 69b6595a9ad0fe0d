package httpx

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// utlsRoundTripper 用 Chrome 指纹完成 TLS 握手，按 ALPN 选择 h2 或 HTTP/1.1。
// 每个请求独占一条连接，响应体关闭时一并关闭连接。
type utlsRoundTripper struct {
	dialer *net.Dialer
	h2     *http2.Transport
	plain  http.RoundTripper
}

func newUTLSRoundTripper() *utlsRoundTripper {
	return &utlsRoundTripper{
		dialer: &net.Dialer{Timeout: 15 * time.Second, KeepAlive: 30 * time.Second},
		h2:     &http2.Transport{},
		plain:  &http.Transport{TLSHandshakeTimeout: 10 * time.Second, ResponseHeaderTimeout: 15 * time.Second},
	}
}

func (t *utlsRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return t.plain.RoundTrip(req)
	}

	host := req.URL.Hostname()
	port := req.URL.Port()
	if port == "" {
		port = "443"
	}
	conn, err := t.dialer.DialContext(req.Context(), "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, err
	}

	uc := utls.UClient(conn, &utls.Config{ServerName: host}, utls.HelloChrome_Auto)
	if err := uc.HandshakeContext(req.Context()); err != nil {
		conn.Close()
		return nil, err
	}

	if uc.ConnectionState().NegotiatedProtocol == "h2" {
		cc, err := t.h2.NewClientConn(uc)
		if err != nil {
			uc.Close()
			return nil, err
		}
		resp, err := cc.RoundTrip(req)
		if err != nil {
			cc.Close()
			return nil, err
		}
		resp.Body = &closeWith{ReadCloser: resp.Body, closer: cc}
		return resp, nil
	}

	if err := req.Write(uc); err != nil {
		uc.Close()
		return nil, err
	}
	resp, err := http.ReadResponse(bufio.NewReader(uc), req)
	if err != nil {
		uc.Close()
		return nil, err
	}
	resp.Body = &closeWith{ReadCloser: resp.Body, closer: uc}
	return resp, nil
}

type closeWith struct {
	io.ReadCloser
	closer io.Closer
}

func (c *closeWith) Close() error {
	err := c.ReadCloser.Close()
	if cerr := c.closer.Close(); err == nil {
		err = cerr
	}
	return err
}
