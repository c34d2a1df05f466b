package main

import (
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Carregar variáveis de ambiente
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("Arquivo .env não encontrado, usando variáveis de ambiente do sistema")
	}

	code := 0
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Execução encerrada com erro")
		code = 1
	}

	sentry.Flush(2 * time.Second)
	os.Exit(code)
}
