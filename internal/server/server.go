// Package server wires configuration, storage, services and handlers into
// one HTTP server and runs it until SIGINT/SIGTERM.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/event-registration/internal/auth"
	"github.com/sakif/event-registration/internal/config"
	"github.com/sakif/event-registration/internal/handler"
	"github.com/sakif/event-registration/internal/middleware"
	"github.com/sakif/event-registration/internal/repository/sqldb"
	"github.com/sakif/event-registration/internal/service"
	"github.com/sakif/event-registration/internal/storage"
	"github.com/sakif/event-registration/web"
)

const pageTitle = "Registration desk"

type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqldb.DB     // owned by the server, closed on shutdown
	redis  *redis.Client // nil unless REDIS_ADDR is set
}

// New opens every backing store and builds the router. Nothing listens yet.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.DB.Driver == sqldb.DriverSQLite {
		if err := ensureSQLiteDir(cfg.DB.DSN); err != nil {
			return nil, err
		}
	}

	db, err := sqldb.New(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if cfg.Redis.Addr != "" {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := s.redis.Ping(ctx).Err()
		cancel()
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Redis.Addr, err)
		}
	}

	if err := s.setupRoutes(); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func ensureSQLiteDir(dsn string) error {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating database directory %s: %w", dir, err)
	}
	return nil
}

func (s *Server) receiptStore() (storage.Store, error) {
	switch s.config.Receipts.Backend {
	case "s3":
		return storage.NewS3(storage.S3Config{
			Bucket:          s.config.S3.Bucket,
			Region:          s.config.S3.Region,
			Endpoint:        s.config.S3.Endpoint,
			AccessKeyID:     s.config.S3.AccessKeyID,
			SecretAccessKey: s.config.S3.SecretAccessKey,
			PathStyle:       s.config.S3.PathStyle,
			Prefix:          s.config.S3.Prefix,
		})
	default:
		return storage.NewDisk(s.config.Receipts.Dir)
	}
}

func (s *Server) setupRoutes() error {
	cfg := s.config

	// === STORES AND SERVICES ===
	receipts, err := s.receiptStore()
	if err != nil {
		return fmt.Errorf("opening receipt storage: %w", err)
	}

	var denylist auth.Denylist
	if s.redis != nil {
		denylist = auth.NewRedisDenylist(s.redis)
	}
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, denylist)
	if err != nil {
		return err
	}
	credentials, err := auth.NewCredentials(cfg.Auth.Login, cfg.Auth.Password, cfg.Auth.PasswordHash)
	if err != nil {
		return err
	}

	participantService := service.NewParticipantService(s.db, receipts, s.logger)
	receiptService := service.NewReceiptService(s.db, receipts, cfg.Receipts.MaxBytes, s.logger)
	intakeService := service.NewIntakeService(s.db, cfg.Intake.StaleAfter, s.logger)
	authService := service.NewAuthService(credentials, tokens, s.logger)

	participantHandler := handler.NewParticipantHandler(participantService, s.logger)
	receiptHandler := handler.NewReceiptHandler(receiptService, s.logger)
	intakeHandler := handler.NewIntakeHandler(intakeService, cfg.Intake.Key, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.logger)
	qrHandler := handler.NewQRHandler(participantService, cfg.Server.PublicBaseURL, s.logger)
	pageHandler, err := handler.NewPageHandler(web.FS, pageTitle, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}

	requireAuth := auth.RequireAuth(tokens)
	readAuth := func(next http.Handler) http.Handler { return next }
	if cfg.Server.ReadsRequireAuth {
		readAuth = requireAuth
	}

	// === MIDDLEWARE ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-Id"},
		MaxAge:         300,
	}))

	// === STATIC FILES AND PAGES ===
	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		return fmt.Errorf("opening static assets: %w", err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	s.router.Get("/", pageHandler.HandleIndex)
	s.router.Get("/participant/{id}", pageHandler.HandleParticipant)
	s.router.Get("/stats", pageHandler.HandleStats)
	s.router.Get("/healthz", s.handleHealth)

	// === API ROUTES ===
	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/validate", authHandler.HandleValidate)
			r.With(requireAuth).Post("/logout", authHandler.HandleLogout)
		})

		r.Post("/intake/tilda", intakeHandler.HandleTilda)

		r.Route("/participants", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(readAuth)
				r.Get("/", participantHandler.HandleList)
				r.Get("/stats", participantHandler.HandleStats)
				r.Get("/{id}", participantHandler.HandleGet)
				r.Get("/{id}/qr.png", qrHandler.HandleQR)
			})

			// Self-registration stays open like the public form.
			r.Post("/", participantHandler.HandleCreate)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Put("/{id}", participantHandler.HandleUpdate)
				r.Put("/{id}/payment", participantHandler.HandleSetPayment)
				r.Put("/{id}/admit", participantHandler.HandleAdmit)
				r.Delete("/{id}", participantHandler.HandleDelete)
				r.Post("/{id}/receipt", receiptHandler.HandleUpload)
				r.Get("/{id}/receipt", receiptHandler.HandleDownload)
			})
		})
	})

	return nil
}

// handleHealth reports whether the database (and Redis, if used) answer.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "database": "ok"}
	code := http.StatusOK

	if err := s.db.Ping(); err != nil {
		s.logger.Error("health check: database unreachable", slog.String("error", err.Error()))
		status["status"], status["database"] = "unavailable", "unreachable"
		code = http.StatusServiceUnavailable
	}
	if s.redis != nil {
		status["redis"] = "ok"
		if err := s.redis.Ping(r.Context()).Err(); err != nil {
			s.logger.Error("health check: redis unreachable", slog.String("error", err.Error()))
			status["status"], status["redis"] = "unavailable", "unreachable"
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

// Handler exposes the router, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database and Redis connections.
func (s *Server) Close() error {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	errs = append(errs, s.db.Close())
	return errors.Join(errs...)
}

// Start listens until a shutdown signal arrives, then drains in-flight
// requests for up to 30 seconds.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second, // receipt uploads on slow phones
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.Bool("tls", s.config.TLS()),
			slog.String("db_driver", s.config.DB.Driver),
			slog.String("receipts", s.config.Receipts.Backend),
		)
		if s.config.TLS() {
			serverErrors <- srv.ListenAndServeTLS(s.config.Server.TLSCertFile, s.config.Server.TLSKeyFile)
			return
		}
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
