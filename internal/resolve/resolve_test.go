package resolve

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/yhdm/internal/domain"
	"github.com/John-Robertt/yhdm/internal/site"
)

const testUID = "a1b2c3"

func TestDeriveKey(t *testing.T) {
	if got := string(DeriveKey("uid123")); got != "2890uid123tB959C" {
		t.Fatalf("密钥拼接不符合预期：%q", got)
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	for _, uid := range []string{testUID, "0123456789abcd", "0123456789abcdef0123AB"} {
		for _, plain := range []string{"", "https://cdn.test/a.m3u8", "正好十六个字节吗不是的", strings.Repeat("x", 16)} {
			ct, err := Encrypt(plain, uid)
			if err != nil {
				t.Fatalf("Encrypt(uid=%q) 失败：%v", uid, err)
			}
			got, err := Decrypt(ct, uid)
			if err != nil {
				t.Fatalf("Decrypt(uid=%q) 失败：%v", uid, err)
			}
			if got != plain {
				t.Fatalf("往返不一致：期望 %q，实际 %q", plain, got)
			}
		}
	}
}

func TestDecrypt_RawBase64Accepted(t *testing.T) {
	ct, _ := Encrypt("https://cdn.test/raw", testUID)
	raw := strings.TrimRight(ct, "=")
	got, err := Decrypt(raw, testUID)
	if err != nil || got != "https://cdn.test/raw" {
		t.Fatalf("无填充 base64 应可解密：got=%q err=%v", got, err)
	}
}

func TestDecrypt_ErrorKinds(t *testing.T) {
	ct, _ := Encrypt("https://cdn.test/a", testUID)

	cases := []struct {
		name string
		ct   string
		uid  string
		kind domain.ErrorKind
	}{
		{"bad base64", "!!!not-base64!!!", testUID, domain.KindMalformed},
		{"bad key length", ct, "abc", domain.KindCrypto},
		{"bad ciphertext length", base64.StdEncoding.EncodeToString([]byte("12345")), testUID, domain.KindCrypto},
		{"empty ciphertext", "", testUID, domain.KindCrypto},
		{"bad padding", zeroPaddedBlock(t, testUID), testUID, domain.KindCrypto},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decrypt(tc.ct, tc.uid)
			if domain.KindOf(err) != tc.kind {
				t.Fatalf("期望 %s，实际 err=%v", tc.kind, err)
			}
		})
	}
}

// zeroPaddedBlock 构造一个解密后末字节为 0 的密文块。
func zeroPaddedBlock(t *testing.T, uid string) string {
	t.Helper()
	block, err := aes.NewCipher(DeriveKey(uid))
	if err != nil {
		t.Fatalf("构造 cipher 失败：%v", err)
	}
	buf := make([]byte, aes.BlockSize)
	copy(buf, "abcdefghijklmno")
	cipher.NewCBCEncrypter(block, []byte(ivString)).CryptBlocks(buf, buf)
	return base64.StdEncoding.EncodeToString(buf)
}

func playbackHTML(primary, next string) string {
	return `<html><body><div class="player_box"><div class="player_video">` +
		`<script type="text/javascript">var player_aaaa={"flag":"play","encrypt":0,"link_next":"/x/","url":"` + primary + `","url_next":"` + next + `","from":"qw"}</script>` +
		`<script>var other={"url":"zzz","url_next":"yyy"}</script>` +
		`</div></div></body></html>`
}

func TestLocate(t *testing.T) {
	refs, ok := Locate([]byte(playbackHTML("ref%2Fone+two", "ref%2Fnext")))
	if !ok {
		t.Fatalf("期望定位成功")
	}
	if refs.Primary != "ref/one+two" || refs.Next != "ref/next" {
		t.Fatalf("引用不符合预期（+ 应保留）：%+v", refs)
	}

	refs, ok = Locate([]byte(playbackHTML("only", "")))
	if !ok || refs.Next != "" {
		t.Fatalf("空 url_next 应视为没有下一集：ok=%v refs=%+v", ok, refs)
	}

	refs, ok = Locate([]byte(playbackHTML("goodref", "100%zz")))
	if !ok || refs.Primary != "goodref" || refs.Next != "100%zz" {
		t.Fatalf("url_next 转义非法不应影响当前集：ok=%v refs=%+v", ok, refs)
	}

	refs, ok = Locate([]byte(playbackHTML("%zz", "")))
	if !ok || refs.Primary != "%zz" {
		t.Fatalf("转义非法的引用应原样保留：ok=%v refs=%+v", ok, refs)
	}

	for name, page := range map[string]string{
		"no script":     `<div class="player_video"></div>`,
		"no block":      `<script>var player={"url":"a","url_next":"b"}</script>`,
		"no match":      `<div class="player_video"><script>var x=1</script></div>`,
		"empty primary": playbackHTML("", "next"),
	} {
		if _, ok := Locate([]byte(page)); ok {
			t.Fatalf("%s：期望定位失败", name)
		}
	}
}

// fakeSite 同时扮演播放页与解码端点。
type fakeSite struct {
	t *testing.T
	// 播放页：key 为 PlayKey.String()
	pages map[string]string
	// 解码端点：引用 → 明文；rawEC 优先，直接作为响应体返回
	plain map[string]string
	rawEC map[string]string
}

func (f *fakeSite) handler(base *string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/index.php/vod/play/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Referer") != *base {
			http.Error(w, "bad referer", http.StatusForbidden)
			return
		}
		var id, sid, nid int
		if _, err := fmt.Sscanf(r.URL.Path, "/index.php/vod/play/id/%d/sid/%d/nid/%d/", &id, &sid, &nid); err != nil {
			http.NotFound(w, r)
			return
		}
		body, ok := f.pages[domain.PlayKey{ItemID: id, LineID: sid, Episode: nid}.String()]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/player/ec.php", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("code") != "qw" || q.Get("if") != "1" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		if !strings.HasPrefix(r.Header.Get("Referer"), *base+"/player/index.php?") {
			http.Error(w, "bad referer", http.StatusForbidden)
			return
		}
		ref := q.Get("url")
		if raw, ok := f.rawEC[ref]; ok {
			_, _ = w.Write([]byte(raw))
			return
		}
		plain, ok := f.plain[ref]
		if !ok {
			http.NotFound(w, r)
			return
		}
		ct, err := Encrypt(plain, testUID)
		if err != nil {
			f.t.Errorf("Encrypt 失败：%v", err)
		}
		ctJSON, _ := json.Marshal(ct)
		fmt.Fprintf(w, `<script>var config = {"id":"1","url":%s,"uid":"%s","vkey":"k"};</script>`, ctJSON, testUID)
	})
	return mux
}

func newTestResolver(t *testing.T, f *fakeSite) *Resolver {
	t.Helper()
	var base string
	srv := httptest.NewServer(f.handler(&base))
	t.Cleanup(srv.Close)
	base = srv.URL

	sess := site.Session{BaseURL: srv.URL, UserAgent: "UA-test"}
	return NewResolver(&site.HTTPFetcher{Client: srv.Client(), Session: sess}, sess, zerolog.Nop())
}

func TestResolve_PrimaryAndNext(t *testing.T) {
	f := &fakeSite{t: t,
		pages: map[string]string{"1/1/1": playbackHTML("p%2F1", "p%2F2")},
		plain: map[string]string{"p/1": "https://cdn.test/1.m3u8", "p/2": "https://cdn.test/2.m3u8"},
	}
	rs, err := newTestResolver(t, f).Resolve(context.Background(), domain.PlayKey{ItemID: 1, LineID: 1, Episode: 1})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if rs.Primary != "https://cdn.test/1.m3u8" || rs.Next != "https://cdn.test/2.m3u8" || rs.NextStatus != domain.NextOK || !rs.HasNext() {
		t.Fatalf("结果不符合预期：%+v", rs)
	}
}

func TestResolve_NextStatuses(t *testing.T) {
	f := &fakeSite{t: t,
		pages: map[string]string{
			"1/1/1": playbackHTML("p", ""),
			"1/1/2": playbackHTML("p", "n-text"),
			"1/1/3": playbackHTML("p", "n-broken"),
			"1/1/4": playbackHTML("p", "n-bad-cipher"),
		},
		plain: map[string]string{"p": "https://cdn.test/p.m3u8", "n-text": "没有下一集"},
		rawEC: map[string]string{
			"n-broken":     `{"code":0}`,
			"n-bad-cipher": `{"url":"!!!!","uid":"` + testUID + `"}`,
		},
	}
	r := newTestResolver(t, f)

	cases := []struct {
		ep     int
		status domain.NextStatus
		stage  Stage
		kind   domain.ErrorKind
	}{
		{1, domain.NextNone, "", ""},
		{2, domain.NextNotURL, StageValidateNext, domain.KindValidation},
		{3, domain.NextFailed, StageExchangeNext, domain.KindNotFound},
		{4, domain.NextFailed, StageDecryptNext, domain.KindMalformed},
	}
	for _, tc := range cases {
		rs, err := r.Resolve(context.Background(), domain.PlayKey{ItemID: 1, LineID: 1, Episode: tc.ep})
		if err != nil {
			t.Fatalf("ep=%d：下一集失败不应让整体失败：%v", tc.ep, err)
		}
		if rs.Primary != "https://cdn.test/p.m3u8" {
			t.Fatalf("ep=%d：当前集地址不符合预期：%q", tc.ep, rs.Primary)
		}
		if rs.NextStatus != tc.status || rs.Next != "" || rs.HasNext() {
			t.Fatalf("ep=%d：期望 next_status=%s，实际 %+v", tc.ep, tc.status, rs)
		}
		if StageOf(rs.NextErr) != tc.stage || domain.KindOf(rs.NextErr) != tc.kind {
			t.Fatalf("ep=%d：期望 stage=%s kind=%s，实际 err=%v", tc.ep, tc.stage, tc.kind, rs.NextErr)
		}
	}
}

func TestResolve_PrimaryFailures(t *testing.T) {
	f := &fakeSite{t: t,
		pages: map[string]string{
			"1/1/1": `<html><body><div class="player_video"></div></body></html>`,
			"1/1/2": playbackHTML("missing", ""),
			"1/1/3": playbackHTML("bad-uid", ""),
			"1/1/4": playbackHTML("bad-literal", ""),
		},
		rawEC: map[string]string{
			"bad-uid":     `{"url":"abc"}`,
			"bad-literal": `{"url":"\q","uid":"x"}`,
		},
	}
	r := newTestResolver(t, f)

	cases := []struct {
		ep    int
		stage Stage
		kind  domain.ErrorKind
	}{
		{1, StageLocate, domain.KindNotFound},
		{2, StageExchangePrimary, domain.KindUpstream},
		{3, StageExchangePrimary, domain.KindNotFound},
		{4, StageExchangePrimary, domain.KindMalformed},
		{9, StageFetchPlayback, domain.KindUpstream},
	}
	for _, tc := range cases {
		_, err := r.Resolve(context.Background(), domain.PlayKey{ItemID: 1, LineID: 1, Episode: tc.ep})
		if err == nil {
			t.Fatalf("ep=%d：期望失败", tc.ep)
		}
		if StageOf(err) != tc.stage || domain.KindOf(err) != tc.kind {
			t.Fatalf("ep=%d：期望 stage=%s kind=%s，实际 err=%v", tc.ep, tc.stage, tc.kind, err)
		}
	}

	if _, err := r.Resolve(context.Background(), domain.PlayKey{ItemID: 1, LineID: 0, Episode: 1}); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("非法参数应为 validation，实际 err=%v", err)
	}
}

func TestResolveAny_FallsBackToNextLine(t *testing.T) {
	f := &fakeSite{t: t,
		pages: map[string]string{"7/2/1": playbackHTML("ok", "")},
		plain: map[string]string{"ok": "https://cdn.test/line2.m3u8"},
	}
	r := newTestResolver(t, f)

	rs, used, attempts, err := r.ResolveAny(context.Background(), 7, 1, []int{1, 2, 3})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if used != 2 || rs.Primary != "https://cdn.test/line2.m3u8" {
		t.Fatalf("期望使用线路 2，实际 used=%d rs=%+v", used, rs)
	}
	if len(attempts) != 2 || attempts[0].Stage != StageFetchPlayback || attempts[1].Stage != StageOK {
		t.Fatalf("尝试链路不符合预期：%+v", attempts)
	}

	_, _, attempts, err = r.ResolveAny(context.Background(), 7, 9, []int{1, 2})
	if err == nil || len(attempts) != 2 {
		t.Fatalf("全部失败时应返回错误与完整链路：err=%v attempts=%+v", err, attempts)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, attempts, err = r.ResolveAny(ctx, 7, 1, []int{1, 2})
	if err == nil || len(attempts) != 0 {
		t.Fatalf("ctx 已取消时不应尝试任何线路：err=%v attempts=%+v", err, attempts)
	}
}
