package domain

import "fmt"

// PlayKey 定位一次播放：作品 ID + 线路 ID（sid）+ 集序号（nid）。
type PlayKey struct {
	ItemID  int `json:"item_id"`
	LineID  int `json:"line_id"`
	Episode int `json:"episode"`
}

func (k PlayKey) String() string {
	return fmt.Sprintf("%d/%d/%d", k.ItemID, k.LineID, k.Episode)
}

// StreamRefs 是播放页脚本中嵌入的混淆引用（已做 percent-decode）。
// Next 为空表示页面没有给出下一集引用。
type StreamRefs struct {
	Primary string
	Next    string
}

// NextStatus 说明 ResolvedStream.Next 为什么存在或缺失。
type NextStatus string

const (
	// NextOK：下一集解密成功且形如 URL。
	NextOK NextStatus = "ok"
	// NextNone：播放页没有下一集引用。
	NextNone NextStatus = "none"
	// NextNotURL：解密成功但结果不含 http（站点用来表示“没有下一集”）。
	NextNotURL NextStatus = "not_url"
	// NextFailed：下一集的交换/解密失败，原因见 ResolvedStream.NextErr。
	NextFailed NextStatus = "failed"
)

// ResolvedStream 是一次解析的结果。Primary 必定非空；Next 只在 NextStatus==NextOK 时非空。
type ResolvedStream struct {
	Primary    string     `json:"primary"`
	Next       string     `json:"next,omitempty"`
	NextStatus NextStatus `json:"next_status"`
	NextErr    error      `json:"-"`
}

// HasNext 报告是否存在可用的下一集 URL。
func (r ResolvedStream) HasNext() bool {
	return r.NextStatus == NextOK && r.Next != ""
}
