package web

import (
	"context"
	"database/sql"
	"net/http"

	"go.uber.org/zap"

	"headless/internal/auth"
	"headless/internal/config"
	"headless/internal/draft"
	"headless/internal/page"
	"headless/internal/pagetype"
	"headless/internal/preview"
	"headless/internal/redirect"
	"headless/internal/resolve"
	"headless/internal/site"
	"headless/internal/web/middleware"
)

// Server holds the dependencies for the web server.
type Server struct {
	db           *sql.DB
	logger       *zap.Logger
	verifier     *draft.Verifier
	types        *pagetype.Registry
	authService  *auth.Service
	pageRepo     *page.Repository
	siteRepo     *site.Repository
	redirectRepo *redirect.Repository
	previewRepo  *preview.Repository
	resolver     *resolve.Resolver
	limiter      *middleware.IPRateLimiter
	handler      http.Handler
}

// NewServer creates a new server with the given dependencies. Editor
// endpoints are only mounted when cfg carries a session key.
func NewServer(db *sql.DB, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pageRepo := page.NewRepository(db)

	s := &Server{
		db:           db,
		logger:       logger,
		verifier:     draft.NewVerifier(cfg.DraftCode),
		types:        pagetype.NewRegistry(cfg.PageTypes...),
		pageRepo:     pageRepo,
		siteRepo:     site.NewRepository(db),
		redirectRepo: redirect.NewRepository(db),
		previewRepo:  preview.NewRepository(db),
		resolver:     resolve.New(pageRepo, logger.Named("resolve")),
		limiter:      middleware.NewIPRateLimiter(cfg.DraftPerMinute, cfg.DraftBurst),
	}

	trusted, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	if cfg.SessionKey != "" {
		store, err := auth.NewSessionStore(cfg.SessionKey)
		if err != nil {
			return nil, err
		}
		s.authService = auth.NewService(auth.NewRepository(db), store)
	}

	if !s.verifier.Enabled() {
		logger.Warn("draft code not configured, draft access is disabled")
	}

	s.handler = middleware.Logging(logger)(
		middleware.Recover(logger)(
			middleware.DraftRateLimit(s.limiter, trusted)(s.routes())))
	return s, nil
}

// Verifier exposes the draft verifier, for issuing codes outside HTTP.
func (s *Server) Verifier() *draft.Verifier {
	return s.verifier
}

// RunBackground runs housekeeping until ctx is done.
func (s *Server) RunBackground(ctx context.Context) {
	if s.limiter == nil {
		<-ctx.Done()
		return
	}
	s.limiter.Run(ctx.Done())
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
