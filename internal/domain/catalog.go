package domain

import (
	"strings"
	"time"
)

// MovieType 是站点对“动漫电影”分类的固定称呼。该分类的 LatestEpisode 固定为 1。
const MovieType = "动漫电影"

// UnknownValue 是详情页 type/year 全部提取失败时的占位值。
const UnknownValue = "未知"

// RegularEpisodeToken 是站点正片分集标题的固定前缀（例如 “第01集”）。
const RegularEpisodeToken = "第"

// Summary 是列表/搜索/筛选页中的条目摘要。
//
// 约束：Thumbnail 缺失时为空串，而不是让整条记录失败。
type Summary struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail"`
	Status    string `json:"status"`
}

// HomeItem 是首页/分类区块中的条目（比 Summary 多出年份/类型/简介）。
type HomeItem struct {
	Summary
	Year        string `json:"year"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ScheduleEntry 是番剧表中的一项，UpdateInfo 为站点给出的更新标注，没有标注的条目不会进入番剧表。
type ScheduleEntry struct {
	HomeItem
	UpdateInfo string `json:"update_info"`
}

// ScheduleDay 是番剧表中的一天（Index 从 1 开始，按页面顺序）。
type ScheduleDay struct {
	Index int             `json:"index"`
	Items []ScheduleEntry `json:"items"`
}

// Category 是首页的分类区块。CategoryID 为 0 表示页面未给出“更多”链接。
type Category struct {
	Name       string     `json:"name"`
	CategoryID int        `json:"category_id"`
	Items      []HomeItem `json:"items"`
}

// HomePage 是首页的完整结构化快照。
type HomePage struct {
	Schedule   []ScheduleDay `json:"schedule"`
	Categories []Category    `json:"categories"`
	Recent     []HomeItem    `json:"recent"`
	Rankings   []RankSection `json:"rankings"`
}

// Episode 是某条线路下的一集。ID 是线路内从 1 开始的顺序号，与站点自身编号无关。
type Episode struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// Regular 报告该集是否为正片（标题以 RegularEpisodeToken 开头）；否则视为特别篇。
func (e Episode) Regular() bool {
	return strings.HasPrefix(e.Title, RegularEpisodeToken)
}

// StreamLine 是同一作品的一条播放线路（sid）。
type StreamLine struct {
	ID       int       `json:"id"`
	Episodes []Episode `json:"episodes"`
}

// RegularCount 返回该线路中正片的数量。
func (l StreamLine) RegularCount() int {
	n := 0
	for _, e := range l.Episodes {
		if e.Regular() {
			n++
		}
	}
	return n
}

// Item 是详情页解析出的完整作品信息。
//
// 不变量：
// - Lines 中的 ID 唯一（重复线路以首次出现为准）
// - LatestEpisode 为各线路正片数量的最大值；Type==MovieType 且存在线路时固定为 1
type Item struct {
	ID            int          `json:"id"`
	Name          string       `json:"name"`
	Thumbnail     string       `json:"thumbnail"`
	Status        string       `json:"status"`
	LatestEpisode int          `json:"latest_episode"`
	Tags          []string     `json:"tags"`
	Type          string       `json:"type"`
	Year          string       `json:"year"`
	Description   string       `json:"description"`
	Lines         []StreamLine `json:"lines"`
	RefreshedAt   time.Time    `json:"refreshed_at"`
}

// Line 按 ID 查找线路。
func (it Item) Line(id int) (StreamLine, bool) {
	for _, l := range it.Lines {
		if l.ID == id {
			return l, true
		}
	}
	return StreamLine{}, false
}

// LineIDs 按页面顺序返回全部线路 ID。
func (it Item) LineIDs() []int {
	out := make([]int, 0, len(it.Lines))
	for _, l := range it.Lines {
		out = append(out, l.ID)
	}
	return out
}
