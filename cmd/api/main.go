package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/mcclellann/rabbitfunding/pkg/auth"
	"github.com/mcclellann/rabbitfunding/pkg/config"
	"github.com/mcclellann/rabbitfunding/pkg/feed"
	"github.com/mcclellann/rabbitfunding/pkg/ledger"
	"github.com/mcclellann/rabbitfunding/pkg/logger"
	"github.com/mcclellann/rabbitfunding/pkg/metrics"
	"github.com/mcclellann/rabbitfunding/pkg/store"
	"golang.org/x/time/rate"
)

// ServerConfig carries the settings the HTTP layer needs from config.
type ServerConfig struct {
	Metrics       metrics.Config
	Ledger        ledger.Config
	DealsPageSize int
	LoginRate     rate.Limit
	LoginBurst    int
}

// Server holds the engines and services behind the dashboard API.
type Server struct {
	storage       store.Storage
	auth          *auth.Service
	syncer        *feed.Syncer
	engine        *metrics.Engine
	projector     *ledger.Projector
	dealsPageSize int
	loginLimiter  *ipRateLimiter
	now           func() time.Time
}

func NewServer(s store.Storage, authService *auth.Service, syncer *feed.Syncer, cfg ServerConfig) *Server {
	if cfg.DealsPageSize <= 0 {
		cfg.DealsPageSize = 20
	}
	return &Server{
		storage:       s,
		auth:          authService,
		syncer:        syncer,
		engine:        metrics.NewEngine(cfg.Metrics),
		projector:     ledger.NewProjector(cfg.Ledger),
		dealsPageSize: cfg.DealsPageSize,
		loginLimiter:  newIPRateLimiter(cfg.LoginRate, cfg.LoginBurst),
		now:           time.Now,
	}
}

// Router wires every route and middleware.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(requestLoggerMiddleware)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	api.Handle("/auth/login", s.loginLimiter.Middleware(http.HandlerFunc(s.loginHandler))).Methods(http.MethodPost)
	api.HandleFunc("/auth/request-access", s.requestAccessHandler).Methods(http.MethodPost)
	api.Handle("/auth/verify", s.authMiddleware(http.HandlerFunc(s.verifyHandler))).Methods(http.MethodGet)

	authed := api.NewRoute().Subrouter()
	authed.Use(s.authMiddleware)
	authed.HandleFunc("/dashboard/stats", s.dashboardStatsHandler).Methods(http.MethodGet)
	authed.HandleFunc("/deals", s.listDealsHandler).Methods(http.MethodGet)
	authed.HandleFunc("/ledger", s.listLedgerHandler).Methods(http.MethodGet)
	authed.HandleFunc("/ledger/export", s.exportLedgerHandler).Methods(http.MethodGet)
	authed.HandleFunc("/ledger/{historyKey}", s.updateTransactionHandler).Methods(http.MethodPut)
	authed.HandleFunc("/reports", s.listReportsHandler).Methods(http.MethodGet)
	authed.HandleFunc("/reports", s.createReportHandler).Methods(http.MethodPost)
	authed.HandleFunc("/reports/{id}", s.deleteReportHandler).Methods(http.MethodDelete)
	authed.HandleFunc("/refresh", s.refreshHandler).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(s.authMiddleware, requireAdmin)
	admin.HandleFunc("/pending", s.listPendingHandler).Methods(http.MethodGet)
	admin.HandleFunc("/users", s.listUsersHandler).Methods(http.MethodGet)
	admin.HandleFunc("/users", s.addUserHandler).Methods(http.MethodPost)
	admin.HandleFunc("/users/{id}", s.deleteUserHandler).Methods(http.MethodDelete)
	admin.HandleFunc("/approve/{id}", s.approveUserHandler).Methods(http.MethodPost)
	admin.HandleFunc("/reject/{id}", s.rejectUserHandler).Methods(http.MethodPost)

	return router
}

func run() error {
	cfg, err := config.LoadConfig(".env")
	if err != nil {
		return err
	}
	logger.InitLogger(cfg.LogLevel)
	logger.L.Info("RabbitFunding API starting...", "source", cfg.SourceKind())

	sqliteStore, err := store.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer sqliteStore.Close()

	authService := auth.NewService(sqliteStore, cfg.AuthConfig())
	if err := authService.EnsureAdmin(cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncer := feed.NewSyncer(cfg.Source(), cfg.SnapshotTTL)
	if _, err := syncer.Refresh(ctx); err != nil {
		logger.L.Warn("Initial feed refresh failed, will retry on schedule", "error", err)
	}
	go syncer.Run(ctx, cfg.RefreshInterval)

	server := NewServer(sqliteStore, authService, syncer, ServerConfig{
		Metrics:       cfg.MetricsConfig(),
		Ledger:        cfg.LedgerConfig(),
		DealsPageSize: cfg.DealsPageSize,
		LoginRate:     rate.Limit(cfg.LoginRate),
		LoginBurst:    cfg.LoginBurst,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.L.Info("Server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.L.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.L.Info("Server stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		logger.L.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
