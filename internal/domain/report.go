package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusResolved = "resolved"
	StatusFailed   = "failed"
)

// BatchReport 是批量解析（一条线路的全部分集）的对外稳定输出。
type BatchReport struct {
	ItemID int `json:"item_id"`
	LineID int `json:"line_id"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary BatchSummary    `json:"summary"`
	Items   []EpisodeResult `json:"items"`
}

type BatchSummary struct {
	Resolved int `json:"resolved"`
	Failed   int `json:"failed"`
	WithNext int `json:"with_next"`
}

// EpisodeResult 是单集的解析结果。失败时 Stage/ErrorKind/ErrorMsg 非空。
type EpisodeResult struct {
	Episode int    `json:"episode"`
	Title   string `json:"title"`
	Status  string `json:"status"`

	URL        string     `json:"url"`
	NextURL    string     `json:"next_url"`
	NextStatus NextStatus `json:"next_status"`

	Stage     string    `json:"stage"`
	ErrorKind ErrorKind `json:"error_kind"`
	ErrorMsg  string    `json:"error_msg"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC
// 2) items 按 episode 升序稳定排序
// 3) summary 由 items 计算得出
func (r *BatchReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		return r.Items[i].Episode < r.Items[j].Episode
	})

	var s BatchSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusResolved:
			s.Resolved++
			if it.NextStatus == NextOK {
				s.WithNext++
			}
		case StatusFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性。
func (r BatchReport) MarshalJSON() ([]byte, error) {
	type Alias BatchReport
	return json.Marshal(Alias(r))
}
