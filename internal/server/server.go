package server

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"supplierhub/internal/blacklist"
	"supplierhub/internal/config"
	"supplierhub/internal/database"
	"supplierhub/internal/handlers"
	"supplierhub/internal/middlewares"
	"supplierhub/internal/notifier"
	"supplierhub/internal/ratelimit"
	"supplierhub/internal/repositories"
	"supplierhub/internal/services"
	"supplierhub/internal/utils"
)

// Dependencies are the stores and outbound channels the server runs on.
// Tests substitute in-memory versions.
type Dependencies struct {
	Health    handlers.HealthChecker
	Users     repositories.UserRepository
	OTPs      repositories.OTPRepository
	Suppliers repositories.SupplierRepository
	Blacklist blacklist.Store
	SMS       notifier.Notifier
	Email     notifier.Notifier
	// Registerer receives the HTTP metrics. Defaults to the global registry.
	Registerer prometheus.Registerer
	Now        func() time.Time
}

type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	health     handlers.HealthChecker

	otpService      services.OTPService
	sessionService  services.SessionService
	passwordService services.PasswordService
	supplierService services.SupplierService
	cleanupService  *services.CleanupService

	requestLimiter *ratelimit.Limiter
	verifyLimiter  *ratelimit.Limiter
	ips            *utils.IPResolver
	globalLimiter  *middlewares.GlobalLimiter
	prometheus     *middlewares.PrometheusMiddleware
	auth           *middlewares.AuthMiddleware
}

// NewServer connects to MongoDB and wires the production dependencies.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, database.Service, error) {
	db, err := database.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := database.EnsureIndexes(ctx, db.Database()); err != nil {
		_ = db.Close(context.Background())
		return nil, nil, err
	}

	var bl blacklist.Store = blacklist.NewMemoryStore()
	if cfg.Cleanup.BlacklistBackend == "mongo" {
		bl = repositories.NewRevokedTokenRepository(db)
	}

	deps := Dependencies{
		Health:    db,
		Users:     repositories.NewUserRepository(db),
		OTPs:      repositories.NewOTPRepository(db),
		Suppliers: repositories.NewSupplierRepository(db),
		Blacklist: bl,
		SMS:       newSMSNotifier(cfg),
		Email:     newEmailNotifier(cfg),
	}
	return New(cfg, deps), db, nil
}

func newSMSNotifier(cfg *config.Config) notifier.Notifier {
	if cfg.Notify.WhatsAppURL == "" {
		log.Warn().Msg("WHATSAPP_API_URL not set, OTP messages will only be logged")
		return notifier.Log{}
	}
	wa := notifier.NewWhatsApp(cfg.Notify.WhatsAppURL, cfg.Notify.WhatsAppAPIKey,
		notifier.WithRateLimit(cfg.Notify.WhatsAppRateLimit))
	if cfg.IsProduction() {
		return wa
	}
	return notifier.Multi{wa, notifier.Log{}}
}

func newEmailNotifier(cfg *config.Config) notifier.Notifier {
	if cfg.Notify.SMTPHost == "" {
		return nil
	}
	return notifier.NewEmail(cfg.Notify.SMTPHost, cfg.Notify.SMTPPort, cfg.Notify.SMTPUsername, cfg.Notify.SMTPPassword)
}

// New builds a server from explicit dependencies.
func New(cfg *config.Config, deps Dependencies) *Server {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	reg := deps.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	development := !cfg.IsProduction()
	if development {
		log.Warn().Str("environment", cfg.Environment).
			Msg("OTP codes and error details are echoed in API responses; set APP_ENV=production for deployments")
	}

	ips, err := utils.NewIPResolver(cfg.TrustedProxies)
	if err != nil {
		log.Error().Err(err).Msg("Ignoring invalid trusted proxies, rate limits key on the peer address")
		ips = nil
	}

	tokens := services.NewTokenService(cfg.Auth.JWTSecret, now)
	session := services.NewSessionService(tokens, deps.Users, deps.Blacklist,
		cfg.Auth.GetRevocationGrace(), cfg.Auth.GetTokenTTL(), now)

	requestLimiter := ratelimit.NewWithStore("otp_request", cfg.Limits.OTPRequestMax,
		cfg.Limits.GetOTPRequestWindow(), ratelimit.NewMemoryStore(), now)
	verifyLimiter := ratelimit.NewWithStore("otp_verify", cfg.Limits.OTPVerifyMax,
		cfg.Limits.GetOTPVerifyWindow(), ratelimit.NewMemoryStore(), now)

	s := &Server{
		cfg:    cfg,
		health: deps.Health,
		otpService: services.NewOTPService(deps.Users, deps.OTPs, deps.Suppliers, tokens, deps.SMS, deps.Email,
			services.OTPServiceConfig{CodeTTL: cfg.Auth.GetOTPTTL(), TokenTTL: cfg.Auth.GetTokenTTL()}, now),
		sessionService:  session,
		passwordService: services.NewPasswordService(deps.Users, deps.Suppliers, tokens, cfg.Auth.GetPasswordTokenTTL(), now),
		supplierService: services.NewSupplierService(deps.Suppliers),
		cleanupService: services.NewCleanupService(deps.OTPs, deps.Blacklist,
			[]*ratelimit.Limiter{requestLimiter, verifyLimiter}, cfg.Cleanup.GetInterval(), cfg.Cleanup.BlacklistMax, now),
		requestLimiter: requestLimiter,
		verifyLimiter:  verifyLimiter,
		ips:            ips,
		globalLimiter:  middlewares.NewGlobalLimiter(cfg.Limits.GlobalRPS, cfg.Limits.GlobalBurst, ips),
		prometheus:     middlewares.NewPrometheusMiddleware(reg),
		auth:           middlewares.NewAuthMiddleware(session, development),
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// RunBackground starts the cleanup sweep and limiter eviction. Both stop
// when ctx is cancelled.
func (s *Server) RunBackground(ctx context.Context) {
	go s.cleanupService.Run(ctx)
	go s.globalLimiter.CleanupVisitors(ctx)
}

func (s *Server) Start() error {
	log.Info().Int("port", s.cfg.Port).Str("environment", s.cfg.Environment).Msg("Starting server")
	return s.httpServer.ListenAndServe()
}

func (s *Server) GracefulShutdown(done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info().Msg("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown with error")
	}

	log.Info().Msg("Server exiting")
	done <- true
}
