package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"qrbar/backend"
	"qrbar/bot"
	"qrbar/config"
	"qrbar/db"
	"qrbar/services"
)

func setupLogging(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Format != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = log.With().Str("service", "qrbar").Logger()
}

func main() {
	var o config.Overrides
	flag.StringVar(&o.APIBaseURL, "api", "", "backend base URL, e.g. https://bar.example.com/api")
	flag.StringVar(&o.Token, "token", "", "Telegram bot token")
	flag.StringVar(&o.LogLevel, "log-level", "", "debug, info, warn or error")
	flag.Parse()

	cfg, err := config.Load(o)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	setupLogging(cfg.Log)

	// Check for migrate subcommand
	if flag.Arg(0) == "migrate" {
		runMigrate(cfg)
		return
	}

	if cfg.Telegram.Token == "" {
		log.Fatal().Msg("TOKEN not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cache services.IdentityCache = services.NewMemoryIdentityCache()
	if cfg.DB.Enabled() {
		if err := db.Init(ctx, cfg.DB); err != nil {
			log.Fatal().Err(err).Msg("database")
		}
		defer db.Close()

		// Optional auto-migration (useful in production and for fresh DBs).
		// Set AUTO_MIGRATE=1 (or "true") to enable.
		if v := strings.TrimSpace(os.Getenv("AUTO_MIGRATE")); v == "1" || strings.EqualFold(v, "true") {
			if err := applyMigrations(cfg.DB); err != nil {
				log.Fatal().Err(err).Msg("migrate")
			}
		}
		pg := services.NewPGIdentityCache(db.Pool)
		if err := pg.EnsureTable(ctx); err != nil {
			log.Fatal().Err(err).Msg("identity cache table")
		}
		cache = pg
	} else {
		log.Info().Msg("DB_HOST not set, identity cache kept in memory")
	}

	client := backend.New(cfg.API.BaseURL, cfg.API.Timeout)
	b, err := bot.New(cfg, client, cache)
	if err != nil {
		log.Fatal().Err(err).Msg("bot")
	}

	log.Info().Str("api", cfg.API.BaseURL).Msg("bot started")
	b.Start(ctx)
	log.Info().Msg("bot stopped")
}

func runMigrate(cfg *config.Config) {
	if !cfg.DB.Enabled() {
		log.Fatal().Msg("migrate: DB_HOST not set")
	}
	if err := applyMigrations(cfg.DB); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}
	fmt.Println("Migrations applied.")
}
