package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/John-Robertt/yhdm/internal/domain"
	"github.com/John-Robertt/yhdm/internal/site"
)

const maxSuggestLimit = 50

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	hp, err := s.catalog.HomePage(r.Context())
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hp)
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	hp, err := s.catalog.HomePage(r.Context())
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	sections := hp.Rankings
	if sections == nil {
		sections = []domain.RankSection{}
	}
	writeJSON(w, http.StatusOK, sections)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kw := strings.TrimSpace(q.Get("wd"))
	if kw == "" {
		writeError(w, http.StatusBadRequest, "missing wd")
		return
	}
	page, ok := optionalInt(q.Get("page"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid page")
		return
	}
	items, err := s.catalog.Search(r.Context(), site.SearchQuery{
		Keyword: kw,
		Class:   strings.TrimSpace(q.Get("class")),
		Actor:   strings.TrimSpace(q.Get("actor")),
		Page:    page,
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries(items))
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kw := strings.TrimSpace(q.Get("wd"))
	if kw == "" {
		writeError(w, http.StatusBadRequest, "missing wd")
		return
	}
	limit, ok := optionalInt(q.Get("limit"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if limit > maxSuggestLimit {
		limit = maxSuggestLimit
	}
	words, err := s.catalog.Suggest(r.Context(), kw, limit)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if words == nil {
		words = []string{}
	}
	writeJSON(w, http.StatusOK, words)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typeID, err := strconv.Atoi(strings.TrimSpace(q.Get("type")))
	if err != nil || typeID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid type")
		return
	}
	page, ok := optionalInt(q.Get("page"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid page")
		return
	}
	items, err := s.catalog.Filter(r.Context(), site.FilterQuery{
		TypeID: typeID,
		Class:  q.Get("class"),
		Year:   q.Get("year"),
		Letter: q.Get("letter"),
		Order:  q.Get("order"),
		Page:   page,
	})
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries(items))
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	it, found, err := s.catalog.Detail(r.Context(), id)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, it)
}

type playResponse struct {
	Key domain.PlayKey `json:"key"`
	domain.ResolvedStream
	NextError string `json:"next_error,omitempty"`
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var key domain.PlayKey
	var ok bool
	if key.ItemID, ok = pathInt(r, "id"); !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if key.LineID, ok = pathInt(r, "sid"); !ok {
		writeError(w, http.StatusBadRequest, "invalid sid")
		return
	}
	if key.Episode, ok = pathInt(r, "nid"); !ok {
		writeError(w, http.StatusBadRequest, "invalid nid")
		return
	}

	rs, err := s.resolver.Resolve(r.Context(), key)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	resp := playResponse{Key: key, ResolvedStream: rs}
	if rs.NextErr != nil {
		resp.NextError = rs.NextErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func pathInt(r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// optionalInt 解析可选的正整数参数；空串返回 0。
func optionalInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func summaries(items []domain.Summary) []domain.Summary {
	if items == nil {
		return []domain.Summary{}
	}
	return items
}
