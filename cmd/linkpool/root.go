package main

import (
	"fmt"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"linkpool/config"
	"linkpool/internal/database"
	"linkpool/internal/monitor"
	"linkpool/internal/scraper"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "linkpool",
	Short:         "Pool de links monitorados compartilhado pelas wishlists",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Caminho do banco sqlite (sobrescreve LINKPOOL_DATABASE_PATH)")
	rootCmd.PersistentFlags().String("log-level", "", "Nível de log: debug, info, warn, error")
}

// initConfig carrega a configuração; sem banco configurado a execução é abortada
func initConfig(cmd *cobra.Command) error {
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		os.Setenv("LINKPOOL_DATABASE_PATH", v)
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("erro ao carregar configurações: %w", err)
	}

	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			log.Warn().Err(err).Msg("Erro ao inicializar Sentry")
		}
	}
	return nil
}

// openDB inicializa o banco de dados configurado
func openDB() (*database.DB, error) {
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("erro ao inicializar banco de dados: %w", err)
	}
	return db, nil
}

// newMonitor monta o monitor com o registro de scrapers
func newMonitor(db *database.DB, batchSize int) *monitor.Monitor {
	fetcher := scraper.NewFetcher(cfg.ScrapeTimeout, cfg.ScrapeRatePerSecond)
	registry := scraper.NewRegistry(fetcher)

	if batchSize <= 0 {
		batchSize = cfg.BatchSize
	}

	return monitor.New(db, registry, monitor.Options{
		BatchSize:        batchSize,
		AdvanceOnFailure: cfg.AdvanceOnFailure,
		FanOutWorkers:    cfg.FanOutWorkers,
		Interval:         cfg.CheckInterval,
		LinkDelay:        cfg.LinkDelay,
	})
}
