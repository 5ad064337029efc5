// Package server assembles the console: config, crypto, local store,
// session, remote client, views and routes.
package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"incaweb/internal/localstore"
	"incaweb/internal/platform/config"
	"incaweb/internal/platform/crypto"
	"incaweb/internal/remote"
	"incaweb/internal/session"
	authhandler "incaweb/internal/transport/http/handlers/auth"
	dashboardhandler "incaweb/internal/transport/http/handlers/dashboard"
	financehandler "incaweb/internal/transport/http/handlers/finance"
	incapacityhandler "incaweb/internal/transport/http/handlers/incapacities"
	"incaweb/internal/transport/http/middleware"
	"incaweb/internal/transport/http/shared"
	"incaweb/internal/transport/http/views"
)

type App struct {
	Config   config.Config
	Router   chi.Router
	Sessions *session.Store
	API      *remote.Client
	storage  *localstore.Store
}

func New(cfg config.Config) (*App, error) {
	cryptoSvc, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("crypto init: %w", err)
	}

	storage, err := localstore.Open(cfg.StorePath, cryptoSvc)
	if err != nil {
		return nil, fmt.Errorf("local store init: %w", err)
	}

	api := remote.New(cfg.APIBaseURL, cfg.RequestTimeout)
	sessions := session.New(api, storage)

	renderer, err := views.New()
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("view templates: %w", err)
	}

	guard := shared.NewInflightGuard()
	authH := authhandler.NewHandler(sessions, renderer)
	dashboardH := dashboardhandler.NewHandler(api, sessions, renderer)
	incapacityH := incapacityhandler.NewHandler(api, sessions, renderer, guard)
	financeH := financehandler.NewHandler(api, sessions, renderer, guard)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/login", authH.HandleLoginForm)
	router.Post("/login", authH.HandleLogin)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(sessions))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		})
		r.Post("/logout", authH.HandleLogout)
		r.Get("/dashboard", dashboardH.HandleDashboard)
		r.Route("/incapacities", func(r chi.Router) {
			incapacityH.RegisterRoutes(r)
			financeH.RegisterRoutes(r)
		})
	})

	return &App{
		Config:   cfg,
		Router:   router,
		Sessions: sessions,
		API:      api,
		storage:  storage,
	}, nil
}

func (a *App) Close() {
	if a.storage != nil {
		_ = a.storage.Close()
	}
}
