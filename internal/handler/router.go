package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"user-service/internal/auth"
	"user-service/internal/util"
)

// requireHTTPS rejects any request that was not made over TLS.
func requireHTTPS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil {
			writeStatic(w, http.StatusUpgradeRequired, `{"error":"https required"}`)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RouterConfig collects the handlers mounted on the API router.
type RouterConfig struct {
	OTPHandler      *OTPHandler
	UserHandler     *UserHandler
	SettingsHandler *SettingsHandler
	AuthHandler     *AuthHandler
	Tokens          *auth.TokenManager
	EnforceTLS      bool
}

// NewRouter builds the Chi router with the full middleware stack. OTP
// routes are public; everything else requires a valid access token.
func NewRouter(cfg RouterConfig, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	if cfg.EnforceTLS {
		router.Use(requireHTTPS)
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggerMiddleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatic(w, http.StatusOK, `{"status":"healthy","service":"user-service"}`)
	})

	router.Route("/api/v1", func(r chi.Router) {
		cfg.OTPHandler.RegisterRoutes(r)

		r.Group(func(protected chi.Router) {
			protected.Use(AuthMiddleware(cfg.Tokens))
			cfg.UserHandler.RegisterRoutes(protected)
			cfg.SettingsHandler.RegisterRoutes(protected)
			cfg.AuthHandler.RegisterRoutes(protected)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeStatic(w, http.StatusNotFound, `{"error":"endpoint not found"}`)
	})

	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeStatic(w, http.StatusMethodNotAllowed, `{"error":"method not allowed"}`)
	})

	return router
}

func writeStatic(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

// LoggerMiddleware logs one line per HTTP request.
func LoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("HTTP request",
					util.String("method", r.Method),
					util.String("path", r.URL.Path),
					util.String("remote_addr", r.RemoteAddr),
					util.Int("status", ww.Status()),
					util.Duration("duration", time.Since(start)),
					util.String("user_agent", r.UserAgent()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
