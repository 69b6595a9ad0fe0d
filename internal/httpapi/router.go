// Package httpapi 以 JSON 形式对外提供目录查询与播放地址解析。
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/John-Robertt/yhdm/internal/domain"
	"github.com/John-Robertt/yhdm/internal/site"
)

const defaultRequestTimeout = 30 * time.Second

// Catalog 是目录查询能力；*catalog.Client 满足该接口。
type Catalog interface {
	HomePage(ctx context.Context) (domain.HomePage, error)
	Search(ctx context.Context, q site.SearchQuery) ([]domain.Summary, error)
	Suggest(ctx context.Context, keyword string, limit int) ([]string, error)
	Detail(ctx context.Context, id int) (domain.Item, bool, error)
	Filter(ctx context.Context, q site.FilterQuery) ([]domain.Summary, error)
}

// Resolver 是单集解析能力；*resolve.Resolver 满足该接口。
type Resolver interface {
	Resolve(ctx context.Context, key domain.PlayKey) (domain.ResolvedStream, error)
}

type Server struct {
	logger   zerolog.Logger
	catalog  Catalog
	resolver Resolver
	// timeout 为 0 时使用 defaultRequestTimeout。
	timeout time.Duration
}

func NewServer(logger zerolog.Logger, c Catalog, r Resolver) *Server {
	return &Server{logger: logger, catalog: c, resolver: r}
}

func (s *Server) Router() http.Handler {
	timeout := s.timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.RequestIDHandler("request_id", "Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_ip"))
	r.Use(hlog.UserAgentHandler("user_agent"))
	r.Use(hlog.AccessHandler(accessLogFn))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/home", s.handleHome)
		r.Get("/rank", s.handleRank)
		r.Get("/search", s.handleSearch)
		r.Get("/suggest", s.handleSuggest)
		r.Get("/filter", s.handleFilter)
		r.Get("/detail/{id}", s.handleDetail)
		r.Get("/play/{id}/{sid}/{nid}", s.handlePlay)
	})

	return r
}

func accessLogFn(r *http.Request, status, size int, duration time.Duration) {
	logger := hlog.FromRequest(r)
	logger.Info().
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("http")
}
