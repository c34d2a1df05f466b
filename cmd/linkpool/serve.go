package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"linkpool/internal/bot"
	"linkpool/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Verifica os links vencidos periodicamente até receber SIGINT/SIGTERM",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("metrics-addr", "", "Endereço do endpoint /metrics (sobrescreve METRICS_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	metrics.Init()

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cfg.MetricsAddr
	if v, _ := cmd.Flags().GetString("metrics-addr"); v != "" {
		addr = v
	}
	if addr != "" {
		srv := startMetricsServer(addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	m := newMonitor(db, 0)
	if r := newReporter(); r != nil {
		m.WithReporter(r)
	}

	m.Start(ctx)
	log.Info().Msg("Encerrando...")
	return nil
}

func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info().Str("addr", addr).Msg("Servidor de métricas iniciado")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Erro no servidor de métricas")
		}
	}()
	return srv
}

// newReporter cria o Reporter do Telegram quando token e chat estão configurados
func newReporter() *bot.Reporter {
	if cfg.TelegramBotToken == "" || cfg.TelegramChatID == 0 {
		return nil
	}
	api, err := bot.Init(cfg.TelegramBotToken)
	if err != nil {
		log.Warn().Err(err).Msg("Resumo pelo Telegram desativado")
		return nil
	}
	return bot.NewReporter(api, cfg.TelegramChatID)
}
