package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/homiefindr/internal/changes"
	"github.com/homiefindr/internal/config"
	"github.com/homiefindr/internal/handler"
	"github.com/homiefindr/internal/logger"
	"github.com/homiefindr/internal/middleware"
	"github.com/homiefindr/internal/repository"
	"github.com/homiefindr/internal/startup"
	"github.com/homiefindr/internal/ws"
	"github.com/homiefindr/migrations"
)

func main() {
	logger.SetPrefix("api")
	migrate := flag.Bool("migrate", false, "run database migrations")
	dev := flag.Bool("dev", false, "start with embedded PostgreSQL (no external DB or Redis required)")
	flag.Parse()

	logger.Info("starting API service")
	cfg := config.Load()

	var embeddedDB *embeddedpostgres.EmbeddedPostgres
	if *dev {
		var err error
		embeddedDB, err = startEmbeddedPostgres(cfg)
		if err != nil {
			logger.Errorf("embedded postgres: %v", err)
			os.Exit(1)
		}
		defer func() {
			logger.Info("stopping embedded postgres...")
			if err := embeddedDB.Stop(); err != nil {
				logger.Errorf("embedded postgres stop: %v", err)
			}
		}()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		logger.Errorf("parse db config: %v", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConnections())
	poolCfg.MinConns = 4

	pool := startup.ConnectDBWithRetry(poolCfg, 60*time.Second, "")
	defer pool.Close()

	runMigrations(pool)
	if *migrate && !*dev {
		return
	}
	logger.Info("database connected, migrations applied")

	apartmentRepo := repository.NewApartmentRepository(pool)
	postRepo := repository.NewPostRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	convRepo := repository.NewConversationRepository(pool)
	msgRepo := repository.NewMessageRepository(pool)
	favRepo := repository.NewFavoriteRepository(pool)

	// Шина изменений: внутри процесса — брокер; при нескольких API-нодах
	// события разносит Redis pub/sub, чтобы подписки на соседних нодах
	// тоже перечитали свои коллекции.
	broker := changes.NewBroker()
	var notifier changes.Notifier = broker
	bridgeCtx, bridgeCancel := context.WithCancel(context.Background())
	defer bridgeCancel()
	if !*dev && cfg.Redis.URL != "" {
		redisClient := startup.ConnectRedisWithRetry(cfg.Redis.URL, 60*time.Second, "")
		defer redisClient.Close()
		bridge := changes.NewBridge(broker, redisClient)
		go bridge.Run(bridgeCtx)
		notifier = bridge
	} else {
		logger.Info("change events stay in-process (single node)")
	}

	hubCtx, hubCancel := context.WithCancel(context.Background())
	hub := ws.NewHub(apartmentRepo, postRepo, profileRepo, convRepo, msgRepo, favRepo, broker, notifier, cfg.MaxWSConnections)

	var hubWg sync.WaitGroup
	hubWg.Add(1)
	go func() {
		defer hubWg.Done()
		hub.Run(hubCtx)
	}()

	fileH := handler.NewFileHandler(cfg)
	blob := fileH.Blob()
	apartmentH := handler.NewApartmentHandler(apartmentRepo, blob, notifier, cfg.MaxUploadSize)
	personH := handler.NewPersonHandler(postRepo, blob, notifier, cfg.MaxUploadSize)
	profileH := handler.NewProfileHandler(profileRepo, blob, notifier, cfg.MaxUploadSize)
	favoriteH := handler.NewFavoriteHandler(favRepo, apartmentRepo, postRepo, notifier)
	convH := handler.NewConversationHandler(convRepo, notifier)
	msgH := handler.NewMessageHandler(convRepo, msgRepo, notifier)
	wsH := handler.NewWSHandler(hub, cfg.CORSAllowedOrigins)
	configH := handler.NewConfigHandler(cfg)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(middleware.RecoverJSON)
	// Не сжимать WebSocket — иначе ResponseWriter не реализует http.Hijacker и upgrade даёт 500.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, req)
				return
			}
			chimw.Compress(5)(next).ServeHTTP(w, req)
		})
	})
	r.Use(middleware.RequestLog)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.RateLimitAPI)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Session-Id", "X-Timestamp", "X-Signature"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); w.Write([]byte("ok")) })
	r.Get("/api/files/*", fileH.Serve)
	r.Get("/api/config/cache", configH.GetCacheConfig)

	if cfg.AuthServiceURL != "" {
		authProxy := authProxyHandler(cfg.AuthServiceURL)
		r.Post("/api/auth/login", authProxy)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthServiceValidate(cfg.AuthServiceURL, nil))
		r.Get("/api/apartments", apartmentH.List)
		r.Post("/api/apartments", apartmentH.Create)
		r.Get("/api/apartments/{id}", apartmentH.Get)
		r.Delete("/api/apartments/{id}", apartmentH.Delete)
		r.Get("/api/posts", personH.List)
		r.Post("/api/posts", personH.Create)
		r.Get("/api/posts/{id}", personH.Get)
		r.Delete("/api/posts/{id}", personH.Delete)
		r.Get("/api/profiles", profileH.List)
		r.Put("/api/profiles/me", profileH.Update)
		r.Post("/api/profiles/me/avatar", profileH.UploadAvatar)
		r.Get("/api/profiles/{uid}", profileH.Get)
		r.Get("/api/favorites", favoriteH.List)
		r.Post("/api/favorites/{kind}/{id}", favoriteH.Add)
		r.Delete("/api/favorites/{kind}/{id}", favoriteH.Remove)
		r.Get("/api/conversations", convH.List)
		r.Post("/api/conversations", convH.Start)
		r.Get("/api/conversations/{id}", convH.Get)
		r.Get("/api/conversations/{id}/messages", msgH.List)
		r.Post("/api/conversations/{id}/messages", msgH.Send)
		r.Post("/api/files/upload", fileH.Upload)
		r.Get("/ws", wsH.ServeWS)
	})

	webDist := "./web/dist"
	if info, err := os.Stat(webDist); err == nil && info.IsDir() {
		r.Get("/*", spaHandler(webDist))
	}

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var srvWg sync.WaitGroup
	errCh := make(chan error, 1)
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("server listening on %s", cfg.ServerAddr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Errorf("server error: %v", err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	logger.Info("server stopped accepting connections")
	hubCancel()
	hubWg.Wait()
	logger.Info("hub stopped")
	srvWg.Wait()
	logger.Info("server goroutine exited")
}

func authProxyHandler(authBaseURL string) http.HandlerFunc {
	client := &http.Client{Timeout: 15 * time.Second}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
			return
		}
		targetURL := strings.TrimSuffix(authBaseURL, "/") + r.URL.Path
		proxyReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, targetURL, bytes.NewReader(body))
		if err != nil {
			http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
			return
		}
		proxyReq.Header.Set("Content-Type", r.Header.Get("Content-Type"))
		if proxyReq.Header.Get("Content-Type") == "" {
			proxyReq.Header.Set("Content-Type", "application/json")
		}
		resp, err := client.Do(proxyReq)
		if err != nil {
			logger.Errorf("auth proxy: %v", err)
			http.Error(w, `{"error":"auth service unavailable"}`, http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()
		w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
		w.WriteHeader(resp.StatusCode)
		io.Copy(w, resp.Body)
	}
}

func spaHandler(dir string) http.HandlerFunc {
	fs := http.Dir(dir)
	fileServer := http.FileServer(fs)
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(filepath.Clean(r.URL.Path), "/")
		if path == "" {
			path = "index.html"
		}
		if f, err := fs.Open(path); err != nil {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
		} else {
			f.Close()
			fileServer.ServeHTTP(w, r)
		}
	}
}

func runMigrations(pool *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	files := []string{
		"001_init.sql", "002_listings.sql", "003_conversations.sql", "004_favorites.sql",
	}
	for _, f := range files {
		data, err := migrations.Files.ReadFile(f)
		if err != nil {
			logger.Errorf("read migration %s: %v", f, err)
			os.Exit(1)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			logger.Errorf("run migration %s: %v", f, err)
			os.Exit(1)
		}
	}
	logger.Info("migrations applied")
}

func startEmbeddedPostgres(cfg *config.Config) (*embeddedpostgres.EmbeddedPostgres, error) {
	const (
		port     = 5432
		user     = "homiefindr"
		password = "homiefindr_secret"
		database = "homiefindr"
	)

	dataDir := filepath.Join(".", ".pgdata")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pgdata dir: %w", err)
	}

	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(port).
			Username(user).
			Password(password).
			Database(database).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "embedded-pg-runtime")),
	)

	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	cfg.Database.URL = fmt.Sprintf(
		"postgres://%s:%s@localhost:%d/%s?sslmode=disable",
		user, password, port, database,
	)
	logger.Infof("embedded PostgreSQL running on port %d", port)
	return db, nil
}
