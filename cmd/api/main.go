package main

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/estoquecore/estoque-backend/internal/db"
	"github.com/estoquecore/estoque-backend/internal/env"
	"github.com/estoquecore/estoque-backend/internal/modules/allocation"
	"github.com/estoquecore/estoque-backend/internal/modules/auth"
	"github.com/estoquecore/estoque-backend/internal/modules/cancellation"
	"github.com/estoquecore/estoque-backend/internal/modules/catalog"
	"github.com/estoquecore/estoque-backend/internal/modules/request"
	"github.com/estoquecore/estoque-backend/internal/modules/stock"
	"github.com/estoquecore/estoque-backend/internal/modules/txlog"
	"github.com/estoquecore/estoque-backend/internal/rpc"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	if level, err := zerolog.ParseLevel(env.GetString("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file found, using process environment")
	}

	database, err := db.New(
		env.GetString("DATABASE_URL", "postgres://localhost/estoque?sslmode=disable"),
		env.GetInt("DB_MAX_OPEN_CONNS", 30),
		env.GetInt("DB_MAX_IDLE_CONNS", 30),
		env.GetString("DB_MAX_IDLE_TIME", "15m"),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer database.Close()
	log.Info().Msg("connected to the database")

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins: []string{env.GetString("CORS_ORIGIN", "*")},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)

	// ── Collaborator surfaces ───────────────────────────────
	authRepo := auth.NewPostgresRepository(database)
	authService := auth.NewService(authRepo, env.GetString("JWT_SECRET", "dev-secret"))
	catalogRepo := catalog.NewPostgresRepository(database)

	// ── Ledgers & transfer engine ───────────────────────────
	stockRepo := stock.NewPostgresRepository(database)
	stockService := stock.NewService(stockRepo, log.With().Str("module", "stock").Logger())
	txlogRepo := txlog.NewPostgresRepository(database)

	// ── Allocation & queue ──────────────────────────────────
	requestRepo := request.NewPostgresRepository(database)
	requestService := request.NewService(requestRepo, log.With().Str("module", "request").Logger())

	allocationRepo := allocation.NewPostgresRepository(database)
	allocationService := allocation.NewService(allocationRepo, stockService,
		log.With().Str("module", "allocation").Logger())

	// ── Cancellation & return ───────────────────────────────
	cancellationRepo := cancellation.NewPostgresRepository(database)
	cancellationService := cancellation.NewService(cancellationRepo, stockRepo,
		log.With().Str("module", "cancellation").Logger())

	// ── RPC boundary ────────────────────────────────────────
	rpc.NewHandler(
		authService,
		catalogRepo,
		requestService,
		allocationService,
		cancellationService,
		stockService,
		txlogRepo,
		log.With().Str("module", "rpc").Logger(),
	).RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler())

	// ── Start server ────────────────────────────────────────
	port := env.GetString("APP_PORT", "8080")
	log.Info().Str("port", port).Msg("estoque API server starting")
	log.Fatal().Err(http.ListenAndServe(":"+port, router)).Msg("server stopped")
}
