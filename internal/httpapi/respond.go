package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/John-Robertt/yhdm/internal/domain"
	"github.com/John-Robertt/yhdm/internal/resolve"
	"github.com/John-Robertt/yhdm/internal/site"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Stage string `json:"stage,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusOf 把错误分类映射为 HTTP 状态码。超时优先判断。
func statusOf(err error) int {
	if site.IsTimeout(err) {
		return http.StatusGatewayTimeout
	}
	switch domain.KindOf(err) {
	case domain.KindNotFound, domain.KindValidation:
		return http.StatusNotFound
	case domain.KindUpstream, domain.KindMalformed, domain.KindCrypto:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	hlog.FromRequest(r).Warn().Err(err).Int("status", status).Msg("请求失败")
	writeJSON(w, status, errorBody{
		Error: err.Error(),
		Kind:  string(domain.KindOf(err)),
		Stage: string(resolve.StageOf(err)),
	})
}
