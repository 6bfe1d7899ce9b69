package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"supplierhub/internal/handlers"
	"supplierhub/internal/middlewares"
	"supplierhub/internal/utils"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	r.Use(middlewares.CorsMiddleware(s.cfg.CORS.AllowedOrigins))
	r.Use(s.prometheus.Instrument)
	r.Use(s.globalLimiter.RateLimit)

	ch := handlers.NewCommonHandler(s.health)
	r.HandleFunc("/health", ch.HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	s.registerAuthRoutes(r)
	s.registerSupplierRoutes(r)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		utils.SendJSONError(w, "Not found", http.StatusNotFound, "")
	})

	var h http.Handler = r
	h = middlewares.Logging(h)
	h = middlewares.RequestID(h)
	h = middlewares.Recovery(h)
	return h
}

func (s *Server) registerAuthRoutes(r *mux.Router) {
	ah := handlers.NewAuthHandler(s.otpService, s.sessionService, s.passwordService, s.supplierService, !s.cfg.IsProduction())
	requestLimit := middlewares.WindowLimit(s.requestLimiter, s.ips)
	verifyLimit := middlewares.WindowLimit(s.verifyLimiter, s.ips)

	r.Handle("/api/auth/generate-otp", requestLimit(http.HandlerFunc(ah.GenerateOTP))).Methods("POST", "OPTIONS")
	r.Handle("/api/auth/verify-otp", verifyLimit(http.HandlerFunc(ah.VerifyOTP))).Methods("POST", "OPTIONS")
	r.Handle("/api/auth/login", verifyLimit(http.HandlerFunc(ah.Login))).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/auth/verify-token", ah.VerifyToken).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/auth/logout", ah.Logout).Methods("POST", "OPTIONS")
	r.Handle("/api/auth/password", s.auth.Require(http.HandlerFunc(ah.SetPassword))).Methods("PUT", "OPTIONS")
	r.Handle("/api/auth/me", s.auth.Require(http.HandlerFunc(ah.Me))).Methods("GET", "OPTIONS")
}

func (s *Server) registerSupplierRoutes(r *mux.Router) {
	sh := handlers.NewSupplierHandler(s.supplierService, !s.cfg.IsProduction())

	r.Handle("/api/suppliers/my-supplier", s.auth.Require(http.HandlerFunc(sh.MySupplier))).Methods("GET", "OPTIONS")
	r.Handle("/api/suppliers/debug/auth-test", s.auth.Require(http.HandlerFunc(sh.AuthTest))).Methods("GET", "OPTIONS")
	r.Handle("/api/suppliers/preview", s.auth.Optional(http.HandlerFunc(sh.Preview))).Methods("GET", "OPTIONS")
}
