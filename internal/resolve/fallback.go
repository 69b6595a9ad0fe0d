package resolve

import (
	"context"
	"errors"

	"github.com/John-Robertt/yhdm/internal/domain"
)

// Attempt 记录一次线路尝试（用于解释换线原因）。
type Attempt struct {
	LineID int
	Stage  Stage // 成功时为 StageOK
	Err    error
}

// ResolveAny 按 lineIDs 顺序逐条线路尝试解析同一集，返回第一个成功的结果与使用的线路。
// ctx 取消后不再尝试后续线路。
func (r *Resolver) ResolveAny(ctx context.Context, itemID, episode int, lineIDs []int) (rs domain.ResolvedStream, lineUsed int, attempts []Attempt, err error) {
	if len(lineIDs) == 0 {
		return domain.ResolvedStream{}, 0, nil, &Error{
			Stage: StageFetchPlayback,
			Err:   domain.Errorf(domain.KindValidation, "resolve", "没有可尝试的线路"),
		}
	}

	var lastErr error
	for _, sid := range lineIDs {
		if cerr := ctx.Err(); cerr != nil {
			if lastErr == nil {
				lastErr = cerr
			}
			break
		}
		got, rerr := r.Resolve(ctx, domain.PlayKey{ItemID: itemID, LineID: sid, Episode: episode})
		if rerr != nil {
			attempts = append(attempts, Attempt{LineID: sid, Stage: StageOf(rerr), Err: rerr})
			lastErr = rerr
			continue
		}
		attempts = append(attempts, Attempt{LineID: sid, Stage: StageOK})
		return got, sid, attempts, nil
	}
	if lastErr == nil {
		lastErr = errors.New("所有线路均失败")
	}
	return domain.ResolvedStream{}, 0, attempts, lastErr
}
