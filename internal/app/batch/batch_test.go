package batch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/John-Robertt/yhdm/internal/domain"
	"github.com/John-Robertt/yhdm/internal/resolve"
)

type stubResolver struct {
	active  atomic.Int32
	maxSeen atomic.Int32
	fail    map[int]error
}

func (s *stubResolver) Resolve(_ context.Context, key domain.PlayKey) (domain.ResolvedStream, error) {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		m := s.maxSeen.Load()
		if n <= m || s.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	if err, ok := s.fail[key.Episode]; ok {
		return domain.ResolvedStream{}, err
	}
	rs := domain.ResolvedStream{Primary: fmt.Sprintf("https://cdn.test/%d.m3u8", key.Episode), NextStatus: domain.NextNone}
	if key.Episode%2 == 1 {
		rs.Next = fmt.Sprintf("https://cdn.test/%d.m3u8", key.Episode+1)
		rs.NextStatus = domain.NextOK
	}
	return rs, nil
}

type recordObserver struct {
	mu      sync.Mutex
	starts  int
	workers int
	idx     []int
}

func (o *recordObserver) OnStart(_ domain.Item, _ domain.StreamLine, _, workers int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.starts++
	o.workers = workers
}

func (o *recordObserver) OnEpisodeDone(idx, _ int, _ domain.EpisodeResult, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.idx = append(o.idx, idx)
}

func testItem(n int) domain.Item {
	line := domain.StreamLine{ID: 2}
	for i := 1; i <= n; i++ {
		line.Episodes = append(line.Episodes, domain.Episode{ID: i, Title: fmt.Sprintf("第%02d集", i)})
	}
	return domain.Item{ID: 100, Lines: []domain.StreamLine{line}}
}

func TestExecute_ReportSortedAndSummarized(t *testing.T) {
	r := &stubResolver{fail: map[int]error{
		3: &resolve.Error{Stage: resolve.StageLocate, Err: domain.Errorf(domain.KindNotFound, "locate", "无引用")},
	}}
	obs := &recordObserver{}

	rep, err := Execute(context.Background(), r, testItem(6), 2, Options{Concurrency: 3}, obs)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(rep.Items) != 6 {
		t.Fatalf("期望 6 条结果，实际 %d", len(rep.Items))
	}
	for i, it := range rep.Items {
		if it.Episode != i+1 {
			t.Fatalf("结果应按集数排序：%+v", rep.Items)
		}
	}
	if rep.Summary.Resolved != 5 || rep.Summary.Failed != 1 || rep.Summary.WithNext != 2 {
		t.Fatalf("汇总不符合预期：%+v", rep.Summary)
	}
	failed := rep.Items[2]
	if failed.Status != domain.StatusFailed || failed.Stage != string(resolve.StageLocate) || failed.ErrorKind != domain.KindNotFound {
		t.Fatalf("失败项不符合预期：%+v", failed)
	}
	if rep.Items[0].Title != "第01集" || rep.Items[0].NextStatus != domain.NextOK {
		t.Fatalf("成功项不符合预期：%+v", rep.Items[0])
	}
	if r.maxSeen.Load() > 3 {
		t.Fatalf("并发数超过上限：%d", r.maxSeen.Load())
	}
	if obs.starts != 1 || obs.workers != 3 || len(obs.idx) != 6 || obs.idx[5] != 6 {
		t.Fatalf("观察者事件不符合预期：%+v", obs)
	}
	if rep.StartedAt.Location() != time.UTC || rep.FinishedAt.Before(rep.StartedAt) {
		t.Fatalf("时间应为 UTC 且有序：%v %v", rep.StartedAt, rep.FinishedAt)
	}
}

func TestExecute_SelectedEpisodesAndMissingLine(t *testing.T) {
	rep, err := Execute(context.Background(), &stubResolver{}, testItem(5), 2, Options{Concurrency: 8, Episodes: []int{4, 2, 99}}, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(rep.Items) != 2 || rep.Items[0].Episode != 2 || rep.Items[1].Episode != 4 {
		t.Fatalf("只应解析选中的集：%+v", rep.Items)
	}

	if _, err := Execute(context.Background(), &stubResolver{}, testItem(1), 7, Options{}, nil); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("线路不存在应为 validation，实际 err=%v", err)
	}
}

func TestExecute_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := Execute(ctx, &stubResolver{}, testItem(3), 2, Options{Concurrency: 2}, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if rep.Summary.Failed != 3 {
		t.Fatalf("ctx 已取消时全部应失败：%+v", rep.Summary)
	}
}
