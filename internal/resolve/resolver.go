package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/yhdm/internal/domain"
	"github.com/John-Robertt/yhdm/internal/site"
)

// Stage 是解析流程中的一步。
type Stage string

const (
	StageFetchPlayback   Stage = "fetch_playback"
	StageLocate          Stage = "locate"
	StageExchangePrimary Stage = "exchange_primary"
	StageDecryptPrimary  Stage = "decrypt_primary"
	StageExchangeNext    Stage = "exchange_next"
	StageDecryptNext     Stage = "decrypt_next"
	StageValidateNext    Stage = "validate_next"
	StageOK              Stage = "ok"
)

// Error 记录解析在哪一步失败。分类通过 domain.KindOf(err) 获取。
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("resolve stage=%s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// StageOf 取出 err 链中的解析阶段；不是 *Error 时返回空串。
func StageOf(err error) Stage {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}

// Resolver 串起播放页抓取、引用定位、密钥交换与解密。
type Resolver struct {
	Fetcher   site.Fetcher
	Session   site.Session
	Exchanger *Exchanger
	Log       zerolog.Logger
}

func NewResolver(f site.Fetcher, s site.Session, log zerolog.Logger) *Resolver {
	return &Resolver{
		Fetcher:   f,
		Session:   s,
		Exchanger: &Exchanger{Fetcher: f, Session: s},
		Log:       log,
	}
}

// Resolve 解析一集的真实地址。
//
// 当前集任何一步失败都返回 *Error；下一集失败只降级：
// NextStatus 说明原因，NextErr 保留底层错误。
func (r *Resolver) Resolve(ctx context.Context, key domain.PlayKey) (domain.ResolvedStream, error) {
	log := r.Log.With().Str("trace", uuid.NewString()).Str("key", key.String()).Logger()

	if key.ItemID <= 0 || key.LineID <= 0 || key.Episode <= 0 {
		return domain.ResolvedStream{}, &Error{
			Stage: StageFetchPlayback,
			Err:   domain.Errorf(domain.KindValidation, "resolve", "非法播放参数：%s", key),
		}
	}

	fail := func(stage Stage, err error) (domain.ResolvedStream, error) {
		log.Warn().Err(err).Str("stage", string(stage)).Str("kind", string(domain.KindOf(err))).Msg("解析失败")
		return domain.ResolvedStream{}, &Error{Stage: stage, Err: err}
	}

	log.Debug().Str("stage", string(StageFetchPlayback)).Msg("抓取播放页")
	page, err := r.Fetcher.Fetch(ctx, site.Request{
		URL:     r.Session.PlaybackURL(key.ItemID, key.LineID, key.Episode),
		Referer: r.Session.BaseURL,
	})
	if err != nil {
		return fail(StageFetchPlayback, err)
	}

	refs, ok := Locate(page)
	if !ok {
		return fail(StageLocate, domain.Errorf(domain.KindNotFound, "locate", "播放页中没有可用的视频引用"))
	}
	log.Debug().Str("stage", string(StageLocate)).Bool("has_next_ref", refs.Next != "").Msg("已定位引用")

	ex, err := r.Exchanger.Exchange(ctx, refs.Primary)
	if err != nil {
		return fail(StageExchangePrimary, err)
	}
	primary, err := Decrypt(ex.Ciphertext, ex.UID)
	if err != nil {
		return fail(StageDecryptPrimary, err)
	}

	out := domain.ResolvedStream{Primary: primary, NextStatus: domain.NextNone}
	if refs.Next == "" {
		log.Debug().Msg("没有下一集引用")
		return out, nil
	}

	next, stage, err := r.resolveNext(ctx, refs.Next)
	switch {
	case err == nil:
		out.Next = next
		out.NextStatus = domain.NextOK
	case stage == StageValidateNext:
		out.NextStatus = domain.NextNotURL
		out.NextErr = &Error{Stage: stage, Err: err}
		log.Info().Msg("下一集解密结果不是 URL，视为没有下一集")
	default:
		out.NextStatus = domain.NextFailed
		out.NextErr = &Error{Stage: stage, Err: err}
		log.Info().Err(err).Str("stage", string(stage)).Msg("下一集解析失败，已降级")
	}
	return out, nil
}

func (r *Resolver) resolveNext(ctx context.Context, ref string) (string, Stage, error) {
	ex, err := r.Exchanger.Exchange(ctx, ref)
	if err != nil {
		return "", StageExchangeNext, err
	}
	next, err := Decrypt(ex.Ciphertext, ex.UID)
	if err != nil {
		return "", StageDecryptNext, err
	}
	if !strings.Contains(next, "http") {
		return "", StageValidateNext, domain.Errorf(domain.KindValidation, "validate", "下一集结果不含 http：%q", next)
	}
	return next, StageOK, nil
}
