package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/tmahajan/tripledger/internal/auth"
	"github.com/tmahajan/tripledger/internal/currency"
	"github.com/tmahajan/tripledger/internal/middleware"
	"github.com/tmahajan/tripledger/internal/service"
	"github.com/tmahajan/tripledger/internal/storage/sqlite"
	"github.com/tmahajan/tripledger/pkg/logging"
)

const tokenDuration = 24 * time.Hour

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	logging.Setup()

	dbPath := getEnv("DB_PATH", "./data/tripledger.db")
	port := getEnv("PORT", "8080")
	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	store, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", dbPath)

	jwtManager := auth.NewJWTManager(jwtSecret, tokenDuration)
	authenticator := auth.NewPasswordAuthenticator(store)

	// Single-currency by default; set a FixedRates table here to run
	// multi-currency trips.
	convert := currency.ConvertFunc(currency.Identity)

	authSvc := service.NewAuthService(authenticator, jwtManager)
	tripSvc := service.NewTripService(store, convert)

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger)
	r.Use(middleware.Metrics)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	r.Route("/api", func(api chi.Router) {
		authSvc.RegisterRoutes(api)

		api.Group(func(protected chi.Router) {
			protected.Use(middleware.RequireAuth(jwtManager))
			tripSvc.RegisterRoutes(protected)
		})
	})

	// h2c enables HTTP/2 without TLS for clients behind a trusted proxy.
	handler := h2c.NewHandler(r, &http2.Server{})

	addr := fmt.Sprintf(":%s", port)
	slog.Info("Server starting", "address", addr, "url", fmt.Sprintf("http://localhost%s", addr))
	if err := http.ListenAndServe(addr, handler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
