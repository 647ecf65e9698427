package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	api "github.com/bloomday/bloomday-homework/internal/api/http"
	auth "github.com/bloomday/bloomday-homework/internal/auth/middleware"
	"github.com/bloomday/bloomday-homework/internal/config"
	"github.com/bloomday/bloomday-homework/internal/db"
	"github.com/bloomday/bloomday-homework/internal/homework"
	"github.com/bloomday/bloomday-homework/internal/rbac"
	"github.com/bloomday/bloomday-homework/internal/storage"
	"github.com/bloomday/bloomday-homework/internal/submit"
	syncx "github.com/bloomday/bloomday-homework/internal/sync"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := homework.NewSQLStore(dbh, cfg.DBDriver)
	events := syncx.NewEventRepo(dbh)

	// --- Submission coordinator + auto-save ---
	co := submit.New(store, events, nil,
		submit.WithQueueSize(cfg.AutoSaveQueueSize),
		submit.WithRetry(cfg.AutoSaveRetries, 2*time.Second),
	)
	defer co.Close()

	hub := api.NewHub(store, co)

	// --- Auth ---
	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.EnableLocalAuth {
		r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))
	}

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	// Protected API (JWT → subject+role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.With(rbac.Require("upload:create")).Route("/uploads", func(ur chi.Router) {
			api.MountUploads(ur, bs)
		})

		// Teacher: author homework and children
		pr.With(rbac.Require("homework:create")).
			Post("/homeworks", api.UpsertHomeworkHandler(store))
		pr.With(rbac.Require("children:create")).
			Post("/children", api.PutChildHandler(store))

		// Parent flow
		pr.With(rbac.Require("homework:view")).
			Get("/homeworks/for-parent/{parentID}", api.ForParentHandler(store))
		pr.With(rbac.Require("session:create")).
			Post("/children/{childID}/select", api.SelectChildHandler(hub))
		pr.With(rbac.Require("homework:view")).
			Get("/homeworks/stats", api.StatsHandler(hub))
		pr.With(rbac.Require("homework:view")).
			Post("/homeworks/refresh", api.RefreshHandler(hub))

		pr.With(rbac.Require("session:view")).
			Get("/homeworks/{homeworkID}/session", api.SessionStateHandler(hub))
		pr.With(rbac.Require("session:move")).
			Post("/homeworks/{homeworkID}/moves", api.MoveHandler(hub))
		pr.With(rbac.Require("session:check")).
			Post("/homeworks/{homeworkID}/check", api.CheckHandler(hub))
		pr.With(rbac.Require("session:retry")).
			Post("/homeworks/{homeworkID}/retry", api.RetryHandler(hub))
		pr.With(rbac.Require("session:reopen")).
			Post("/homeworks/{homeworkID}/reopen", api.ReopenHandler(hub))
		pr.With(rbac.Require("homework:complete")).
			Post("/homeworks/{homeworkID}/answer", api.AnswerHandler(hub))

		pr.With(rbac.Require("homework:complete")).
			Post("/homeworks/{homeworkID}/complete", api.CompleteHomeworkHandler(co))
		pr.With(rbac.Require("homework:submit")).
			Post("/homeworks/submit", api.SubmitHomeworkHandler(co, hub))

		pr.With(rbac.Require("homework:view")).
			Get("/sync/status", api.SyncStatusHandler(co))
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Printf("gateway listening on %s (mode=%s, db=%s)", cfg.HTTPAddr, cfg.Mode, cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
