package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/Scoutersq/campus-connect-sub001/internal/auth"
	"github.com/Scoutersq/campus-connect-sub001/internal/config"
	"github.com/Scoutersq/campus-connect-sub001/internal/handler"
	"github.com/Scoutersq/campus-connect-sub001/internal/logger"
	"github.com/Scoutersq/campus-connect-sub001/internal/middleware"
	"github.com/Scoutersq/campus-connect-sub001/internal/model"
	"github.com/Scoutersq/campus-connect-sub001/internal/repository"
	"github.com/Scoutersq/campus-connect-sub001/internal/startup"
	"github.com/Scoutersq/campus-connect-sub001/internal/storage"
	"github.com/Scoutersq/campus-connect-sub001/internal/storage/memory"
	"github.com/Scoutersq/campus-connect-sub001/internal/ws"
	"github.com/Scoutersq/campus-connect-sub001/migrations"
)

func main() {
	logger.SetPrefix("api")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	dev := flag.Bool("dev", false, "start with embedded PostgreSQL and in-memory volatile store")
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

	pool := startup.ConnectDBWithRetry(poolCfg, 60*time.Second)
	defer pool.Close()

	runMigrations(pool)
	if *migrate && !*dev {
		return
	}
	logger.Info("database connected, migrations applied")

	var volatile storage.VolatileStore
	if *dev {
		volatile = memory.New()
	} else {
		volatile = startup.ConnectRedisWithRetry(cfg.Redis.URL, 60*time.Second)
	}
	defer volatile.Close()

	memberRepo := repository.NewMemberRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	reportRepo := repository.NewReportRepository(pool)
	noticeRepo := repository.NewNoticeRepository(pool)
	postRepo := repository.NewPostRepository(pool)
	listingRepo := repository.NewListingRepository(pool)

	bootstrapAdmin(adminRepo)

	codec := auth.NewTokenCodec(
		[]byte(cfg.Auth.MemberTokenSecret),
		[]byte(cfg.Auth.AdminTokenSecret),
	)
	cache := auth.NewVerificationCache(auth.CacheTTL)
	sessions := auth.NewSessionManager(codec, memberRepo, adminRepo, cache)
	bridge := auth.NewRealtimeAuthBridge([]byte(cfg.Auth.RealtimeTicketSecret), sessions, volatile)

	hubCtx, hubCancel := context.WithCancel(context.Background())
	hub := ws.NewHub(cfg.MaxWSConnections)

	var hubWg sync.WaitGroup
	hubWg.Add(1)
	go func() {
		defer hubWg.Done()
		hub.Run(hubCtx)
	}()

	authH := handler.NewAuthHandler(memberRepo, adminRepo, sessions, bridge, volatile, cfg.Auth.CookieSecure)
	accountH := handler.NewAccountHandler(memberRepo)
	reportH := handler.NewReportHandler(reportRepo, hub)
	noticeH := handler.NewNoticeHandler(noticeRepo, hub)
	postH := handler.NewPostHandler(postRepo)
	listingH := handler.NewListingHandler(listingRepo)
	wsH := handler.NewWSHandler(hub, bridge, cfg.CORSAllowedOrigins)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(middleware.RecoverJSON)
	// Never compress WebSocket requests: the wrapped ResponseWriter loses
	// http.Hijacker and the upgrade fails with a 500.
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
	r.Use(middleware.RateLimitAPI)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Client-Role"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); w.Write([]byte("ok")) })

	r.Post("/api/auth/member/sign-in", authH.MemberSignIn)
	r.Post("/api/auth/admin/sign-in", authH.AdminSignIn)
	r.Post("/api/auth/register", handler.AuthLegacyGone)
	r.Post("/api/auth/login", handler.AuthLegacyGone)
	r.Post("/api/auth/refresh", handler.AuthLegacyGone)

	// Either principal kind.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(sessions, ""))
		r.Post("/api/auth/sign-out", authH.SignOut)
		r.Get("/api/auth/me", authH.Me)
		r.Post("/api/auth/realtime-ticket", authH.RealtimeTicket)
		r.Get("/api/notices", noticeH.List)
		r.Get("/api/posts", postH.List)
		r.Delete("/api/posts/{id}", postH.Delete)
		r.Get("/api/listings", listingH.List)
		r.Delete("/api/listings/{id}", listingH.Delete)
		r.Get("/ws", wsH.ServeWS)
	})

	// Members only.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(sessions, model.RoleMember))
		r.Post("/api/reports", reportH.Create)
		r.Get("/api/reports/mine", reportH.ListMine)
		r.Post("/api/posts", postH.Create)
		r.Post("/api/listings", listingH.Create)
		r.Post("/api/listings/{id}/sold", listingH.MarkSold)
	})

	// Administrators only.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(sessions, model.RoleAdmin))
		r.Get("/api/reports", reportH.ListAll)
		r.Put("/api/reports/{id}/review", reportH.Review)
		r.Post("/api/notices", noticeH.Create)
		r.Delete("/api/notices/{id}", noticeH.Delete)
		r.Post("/api/members", accountH.CreateMember)
		r.Get("/api/members", accountH.ListMembers)
	})

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

func runMigrations(pool *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := migrations.Files.ReadDir(".")
	if err != nil {
		logger.Errorf("read migrations: %v", err)
		os.Exit(1)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := migrations.Files.ReadFile(name)
		if err != nil {
			logger.Errorf("read migration %s: %v", name, err)
			os.Exit(1)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			logger.Errorf("run migration %s: %v", name, err)
			os.Exit(1)
		}
	}
	logger.Info("migrations applied")
}

// bootstrapAdmin seeds the first administrator from ADMIN_LOGIN_ID and
// ADMIN_PASSWORD when the admins table is empty. Password hashes cannot be
// precomputed in a migration, so this runs at startup.
func bootstrapAdmin(admins *repository.AdminRepository) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n, err := admins.Count(ctx)
	if err != nil {
		logger.Errorf("count admins: %v", err)
		os.Exit(1)
	}
	if n > 0 {
		return
	}
	loginID := os.Getenv("ADMIN_LOGIN_ID")
	password := os.Getenv("ADMIN_PASSWORD")
	if loginID == "" || password == "" {
		logger.Info("no administrators and ADMIN_LOGIN_ID/ADMIN_PASSWORD not set, skipping bootstrap")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Errorf("hash bootstrap admin password: %v", err)
		os.Exit(1)
	}
	a := &model.Admin{
		ID:           uuid.New().String(),
		LoginID:      loginID,
		PasswordHash: string(hash),
		Name:         "Administrator",
		CreatedAt:    time.Now().UTC(),
	}
	if err := admins.Create(ctx, a); err != nil {
		logger.Errorf("create bootstrap admin: %v", err)
		os.Exit(1)
	}
	logger.Infof("bootstrap administrator created login=%s", loginID)
}

func startEmbeddedPostgres(cfg *config.Config) (*embeddedpostgres.EmbeddedPostgres, error) {
	const (
		port     = 5432
		user     = "campus"
		password = "campus_secret"
		database = "campus"
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
