// Package batch 以有界并发解析同一线路的全部分集，并汇总为 BatchReport。
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/John-Robertt/yhdm/internal/domain"
	"github.com/John-Robertt/yhdm/internal/resolve"
)

// Resolver 是单集解析能力；*resolve.Resolver 满足该接口。
type Resolver interface {
	Resolve(ctx context.Context, key domain.PlayKey) (domain.ResolvedStream, error)
}

// Options 控制批量解析。Episodes 为空表示线路中的全部分集。
type Options struct {
	Concurrency int
	Episodes    []int
}

// Execute 解析 item 中 lineID 线路的分集。
//
// 单集失败只记录在对应 EpisodeResult 中；只有线路不存在时返回错误。
// ctx 取消后尚未开始的分集记为失败。
func Execute(ctx context.Context, r Resolver, item domain.Item, lineID int, opts Options, obs Observer) (domain.BatchReport, error) {
	line, ok := item.Line(lineID)
	if !ok {
		return domain.BatchReport{}, domain.Errorf(domain.KindValidation, "batch", "作品 %d 没有线路 %d", item.ID, lineID)
	}
	episodes := selectEpisodes(line, opts.Episodes)

	workers := opts.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(episodes) && len(episodes) > 0 {
		workers = len(episodes)
	}

	rep := domain.BatchReport{
		ItemID:    item.ID,
		LineID:    lineID,
		StartedAt: time.Now(),
		Items:     make([]domain.EpisodeResult, 0, len(episodes)),
	}
	if obs != nil {
		obs.OnStart(item, line, len(episodes), workers)
	}

	type result struct {
		res domain.EpisodeResult
		dur time.Duration
	}
	jobs := make(chan domain.Episode)
	results := make(chan result, len(episodes))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ep := range jobs {
				started := time.Now()
				res := resolveOne(ctx, r, item.ID, lineID, ep)
				results <- result{res: res, dur: time.Since(started)}
			}
		}()
	}

	go func() {
		for _, ep := range episodes {
			jobs <- ep
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	done := 0
	for it := range results {
		done++
		rep.Items = append(rep.Items, it.res)
		if obs != nil {
			obs.OnEpisodeDone(done, len(episodes), it.res, it.dur)
		}
	}

	rep.FinishedAt = time.Now()
	rep.Finalize()
	return rep, nil
}

func resolveOne(ctx context.Context, r Resolver, itemID, lineID int, ep domain.Episode) domain.EpisodeResult {
	out := domain.EpisodeResult{Episode: ep.ID, Title: ep.Title}
	if err := ctx.Err(); err != nil {
		out.Status = domain.StatusFailed
		out.ErrorMsg = err.Error()
		return out
	}

	rs, err := r.Resolve(ctx, domain.PlayKey{ItemID: itemID, LineID: lineID, Episode: ep.ID})
	if err != nil {
		out.Status = domain.StatusFailed
		out.Stage = string(resolve.StageOf(err))
		out.ErrorKind = domain.KindOf(err)
		out.ErrorMsg = err.Error()
		return out
	}
	out.Status = domain.StatusResolved
	out.URL = rs.Primary
	out.NextURL = rs.Next
	out.NextStatus = rs.NextStatus
	return out
}

// selectEpisodes 按线路顺序返回要解析的分集；want 中不存在的序号被忽略。
func selectEpisodes(line domain.StreamLine, want []int) []domain.Episode {
	if len(want) == 0 {
		return line.Episodes
	}
	set := make(map[int]struct{}, len(want))
	for _, n := range want {
		set[n] = struct{}{}
	}
	out := make([]domain.Episode, 0, len(want))
	for _, ep := range line.Episodes {
		if _, ok := set[ep.ID]; ok {
			out = append(out, ep)
		}
	}
	return out
}
