package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"todo-copilot-backend/internal/analytics"
	"todo-copilot-backend/internal/auth"
	"todo-copilot-backend/internal/chat"
	"todo-copilot-backend/internal/config"
	"todo-copilot-backend/internal/db"
	"todo-copilot-backend/internal/middleware"
	"todo-copilot-backend/internal/realtime"
	"todo-copilot-backend/internal/tasks"
	"todo-copilot-backend/internal/webhook"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "API server configuration file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	logger := mustMakeLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Connect(cfg.ConnString())
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Migrate(conn); err != nil {
		return err
	}
	log.Info("connected to PostgreSQL")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	hub := realtime.NewHub()
	listener := realtime.NewListener(cfg.ConnString(), hub, log)
	go func() {
		if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("realtime listener stopped", zap.Error(err))
		}
	}()

	notifier := webhook.NewNotifier(cfg.TaskWebhookURL, cfg.ChatWebhookURL, log)
	store := tasks.NewStore(conn)

	secret := []byte(cfg.JWTSecret)
	mw := auth.New(secret)

	authLimit := middleware.RateLimiter(rate.Every(time.Second), 5)
	chatLimit := middleware.NewDistributedRateLimiter(rdb).Middleware("chat", middleware.RateLimit{
		Rate:    20,
		Window:  time.Minute,
		KeyFunc: middleware.UserKeyFunc,
	})

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// ----- AUTH -----
	mux.HandleFunc("POST /auth/register", authLimit(auth.RegisterHandler(conn, secret)))
	mux.HandleFunc("POST /auth/login", authLimit(auth.LoginHandler(conn, secret)))
	mux.HandleFunc("GET /auth/me", mw.Wrap(auth.MeHandler(conn)))
	mux.HandleFunc("POST /auth/logout", mw.Wrap(auth.LogoutHandler()))
	mux.HandleFunc("DELETE /auth/account", mw.Wrap(auth.DeleteAccountHandler(conn)))

	// ----- TASKS -----
	mux.HandleFunc("GET /tasks", mw.Wrap(tasks.GetTasksHandler(store)))
	mux.HandleFunc("POST /tasks", mw.Wrap(tasks.CreateTaskHandler(store, notifier, conn, log)))
	mux.HandleFunc("PATCH /tasks/{id}/completed", mw.Wrap(tasks.SetCompletedHandler(store, conn)))
	mux.HandleFunc("PATCH /tasks/{id}/title", mw.Wrap(tasks.SetTitleHandler(store)))
	mux.HandleFunc("PATCH /tasks/{id}/description", mw.Wrap(tasks.SetDescriptionHandler(store)))
	mux.HandleFunc("DELETE /tasks/{id}", mw.Wrap(tasks.DeleteTaskHandler(store, conn)))
	mux.HandleFunc("GET /tasks/stream", mw.Wrap(realtime.StreamHandler(hub)))

	// ----- CHAT -----
	mux.HandleFunc("POST /chat", mw.Wrap(chatLimit(chat.ProxyHandler(notifier, log))))
	mux.HandleFunc("POST /chat/agent", mw.Wrap(chatLimit(chat.AgentHandler(notifier, conn, log))))

	// ----- ANALYTICS -----
	mux.HandleFunc("POST /analytics/app-opened", mw.Wrap(analytics.AppOpenedHandler(conn)))

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Content-Type", "Authorization",
			"X-Platform", "X-App-Version", "X-Session-Id", "Idempotency-Key",
		},
		AllowCredentials: true,
	})

	handler := middleware.Recovery(log)(c.Handler(mux))

	srv := &http.Server{
		Addr:    cfg.Address,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("API server is running", zap.String("address", cfg.Address))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func mustMakeLogger(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()

	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
