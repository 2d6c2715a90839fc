package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/potureddigowtham/Collab-rooms/internal/api"
	"github.com/potureddigowtham/Collab-rooms/internal/autolock"
	"github.com/potureddigowtham/Collab-rooms/internal/config"
	"github.com/potureddigowtham/Collab-rooms/internal/db"
	"github.com/potureddigowtham/Collab-rooms/internal/ws"
)

func main() {
	// Local .env is dev-only convenience
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	log := newLogger(cfg.LogLevel)

	database, err := db.New(cfg.DBPath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer database.Close()

	registry := ws.NewRegistry(log)
	router := ws.NewRouter(registry, database, log)
	gateway := ws.NewGateway(registry, router, database, log)

	sweeper := autolock.New(database, autolock.Config{
		Interval:      cfg.AutoLockInterval,
		ThresholdDays: cfg.AutoLockDays,
		SweepOnStart:  cfg.AutoLockOnStartup,
	}, log)
	sweeper.Start()
	defer sweeper.Stop()

	apiHandler := api.New(registry, database, cfg.RoomSecret, cfg.AutoLockDays, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/details", apiHandler.DetailsHandler)
	mux.HandleFunc("/ws/", gateway.ServeWs)
	mux.HandleFunc("/health", apiHandler.HealthHandler)
	mux.HandleFunc("/api/stats", apiHandler.StatsHandler)
	mux.HandleFunc("/create_room", apiHandler.CreateRoomHandler)
	mux.HandleFunc("/rooms", apiHandler.ListRoomsHandler)
	mux.HandleFunc("/delete_room/", apiHandler.DeleteRoomHandler)
	mux.HandleFunc("/room/", apiHandler.RoomRouter)
	mux.HandleFunc("/admin/content", apiHandler.AdminContentRouter)
	mux.HandleFunc("/admin/content/", apiHandler.AdminContentRouter)
	mux.HandleFunc("/interview-notes/", apiHandler.NotesRouter)

	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("port", cfg.Port).
		Str("db_path", cfg.DBPath).
		Msg("collab-rooms server starting")

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}
