package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config contém as configurações da aplicação
type Config struct {
	DatabasePath string

	CheckIntervalMinutes int
	CheckInterval        time.Duration
	BatchSize            int
	AdvanceOnFailure     bool
	FanOutWorkers        int
	LinkDelay            time.Duration

	ScrapeTimeout       time.Duration
	ScrapeRatePerSecond float64

	SentryDSN   string
	MetricsAddr string
	LogLevel    string

	// Resumo dos ciclos para o operador (opcional)
	TelegramBotToken string
	TelegramChatID   int64
}

// Load carrega as configurações das variáveis de ambiente
func Load() (*Config, error) {
	dbPath := os.Getenv("LINKPOOL_DATABASE_PATH")
	if dbPath == "" {
		return nil, fmt.Errorf("LINKPOOL_DATABASE_PATH não configurado")
	}

	cfg := &Config{
		DatabasePath:         dbPath,
		CheckIntervalMinutes: 30,
		BatchSize:            5,
		FanOutWorkers:        1,
		LinkDelay:            2 * time.Second,
		ScrapeTimeout:        30 * time.Second,
		ScrapeRatePerSecond:  1,
		SentryDSN:            os.Getenv("SENTRY_DSN"),
		MetricsAddr:          os.Getenv("METRICS_ADDR"),
		LogLevel:             "info",
		TelegramBotToken:     os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	// Chat ID é opcional; sem ele o resumo não é enviado
	if chatIDStr := os.Getenv("TELEGRAM_CHAT_ID"); chatIDStr != "" {
		if chatID, err := strconv.ParseInt(chatIDStr, 10, 64); err == nil {
			cfg.TelegramChatID = chatID
		}
	}

	// Intervalo de verificação
	if envInterval := os.Getenv("CHECK_INTERVAL_MINUTES"); envInterval != "" {
		if parsed, err := strconv.Atoi(envInterval); err == nil && parsed > 0 {
			cfg.CheckIntervalMinutes = parsed
		}
	}
	cfg.CheckInterval = time.Duration(cfg.CheckIntervalMinutes) * time.Minute

	if v := os.Getenv("LINKPOOL_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BatchSize = n
		}
	}
	if v := os.Getenv("LINKPOOL_ADVANCE_ON_FAILURE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AdvanceOnFailure = b
		}
	}
	if v := os.Getenv("LINKPOOL_FANOUT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FanOutWorkers = n
		}
	}
	if v := os.Getenv("LINKPOOL_LINK_DELAY_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.LinkDelay = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("SCRAPE_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ScrapeTimeout = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("SCRAPE_RATE_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.ScrapeRatePerSecond = f
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}
