package web

import (
	"net/http"

	"headless/internal/web/controller"
	"headless/internal/web/middleware"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	pagesController := controller.Pages{
		PageRepo: s.pageRepo,
		SiteRepo: s.siteRepo,
		Resolver: s.resolver,
		Verifier: s.verifier,
		Types:    s.types,
		Logger:   s.logger,
	}
	pagesController.Register(mux)

	previewController := controller.Preview{PreviewRepo: s.previewRepo, Types: s.types, Logger: s.logger}
	previewController.Register(mux)

	redirectsController := controller.Redirects{
		RedirectRepo: s.redirectRepo,
		PageRepo:     s.pageRepo,
		SiteRepo:     s.siteRepo,
		Logger:       s.logger,
	}
	redirectsController.Register(mux)

	sitemapController := controller.Sitemap{PageRepo: s.pageRepo, SiteRepo: s.siteRepo, Logger: s.logger}
	sitemapController.Register(mux)

	if s.authService == nil {
		return mux
	}

	authController := controller.Auth{AuthService: s.authService, Logger: s.logger}
	authController.Register(mux)

	authenticatedMux := http.NewServeMux()
	authController.RegisterAuthenticated(authenticatedMux)
	adminController := controller.Admin{
		PageRepo:    s.pageRepo,
		PreviewRepo: s.previewRepo,
		Verifier:    s.verifier,
		Types:       s.types,
		Logger:      s.logger,
	}
	adminController.Register(authenticatedMux)

	mux.Handle("/admin/", middleware.Auth(s.authService)(authenticatedMux))
	return mux
}
