package batch

import (
	"time"

	"github.com/John-Robertt/yhdm/internal/domain"
)

// Observer 接收批量解析的进度事件。batch 包只发事件，不做任何输出。
//
// 实现必须并发安全：OnEpisodeDone 可能来自多个 goroutine（当前实现串行回调，但不做保证）。
type Observer interface {
	// OnStart 在开始解析前调用一次；total 为本次要解析的分集数。
	OnStart(item domain.Item, line domain.StreamLine, total, workers int)
	// OnEpisodeDone 在每集完成后调用；idx 为已完成数量（从 1 开始）。
	OnEpisodeDone(idx, total int, res domain.EpisodeResult, dur time.Duration)
}
