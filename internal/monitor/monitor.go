package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"

	"linkpool/internal/database"
	"linkpool/internal/models"
	"linkpool/internal/scraper"
)

// DefaultBatchSize é o número de links verificados por ciclo quando não configurado
const DefaultBatchSize = 5

// Scraper extrai os dados atuais de uma URL
type Scraper interface {
	Scrape(ctx context.Context, url string) scraper.Result
}

// Store é o acesso ao pool de links e aos produtos usado pelo monitor
type Store interface {
	GetDueLinks(ctx context.Context, limit int) ([]models.MonitoredLink, error)
	GetLinkProducts(ctx context.Context, hash string) ([]string, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	PendingAlertsForURL(ctx context.Context, url string) ([]models.PendingAlert, error)
	Commit(ctx context.Context, b *database.Batch) error
}

// Reporter recebe o resumo de cada ciclo
type Reporter interface {
	Report(ctx context.Context, report CycleReport) error
}

// Options controla o agendamento e a reconciliação
type Options struct {
	// BatchSize limita quantos links são verificados por ciclo
	BatchSize int
	// AdvanceOnFailure grava lastChecked mesmo quando o scrape falha.
	// Desligado, o link continua vencido e é tentado de novo no próximo ciclo.
	AdvanceOnFailure bool
	// FanOutWorkers é o número de produtos preparados em paralelo (1 = sequencial)
	FanOutWorkers int
	// Interval entre ciclos em Start
	Interval time.Duration
	// LinkDelay é a pausa entre dois links do mesmo ciclo
	LinkDelay time.Duration
}

// Monitor gerencia o monitoramento periódico do pool de links
type Monitor struct {
	store    Store
	scraper  Scraper
	reporter Reporter
	opts     Options
	now      func() time.Time
}

// New cria uma nova instância do monitor
func New(store Store, s Scraper, opts Options) *Monitor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.FanOutWorkers <= 0 {
		opts.FanOutWorkers = 1
	}
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Minute
	}

	return &Monitor{
		store:   store,
		scraper: s,
		opts:    opts,
		now:     time.Now,
	}
}

// WithReporter define quem recebe o resumo de cada ciclo
func (m *Monitor) WithReporter(r Reporter) *Monitor {
	m.reporter = r
	return m
}

// Start executa um ciclo imediatamente e depois a cada Interval, até ctx ser cancelado
func (m *Monitor) Start(ctx context.Context) {
	log.Info().
		Dur("interval", m.opts.Interval).
		Int("batch_size", m.opts.BatchSize).
		Msg("Monitor iniciado")

	m.RunCycle(ctx)

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Monitor encerrado")
			return
		case <-ticker.C:
			m.RunCycle(ctx)
		}
	}
}

// DueLinks retorna os links vencidos deste ciclo, os mais antigos primeiro
func (m *Monitor) DueLinks(ctx context.Context) ([]models.MonitoredLink, error) {
	return m.store.GetDueLinks(ctx, m.opts.BatchSize)
}

// RunCycle reconcilia os links vencidos, um de cada vez. Falhas de um link
// são registradas e não interrompem o ciclo.
func (m *Monitor) RunCycle(ctx context.Context) (report CycleReport) {
	report.Started = m.now()
	defer func() { report.Duration = m.now().Sub(report.Started) }()

	links, err := m.DueLinks(ctx)
	if err != nil {
		sentry.CaptureException(fmt.Errorf("buscar links vencidos: %w", err))
		log.Error().Err(err).Msg("Erro ao buscar links vencidos")
		return report
	}

	for i, link := range links {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && m.opts.LinkDelay > 0 {
			if !sleep(ctx, m.opts.LinkDelay) {
				break
			}
		}

		lr, err := m.ReconcileLink(ctx, link)
		if err != nil {
			log.Warn().Err(err).Str("hash", link.Hash).Str("url", link.URL).Msg("Link não reconciliado")
		}
		report.Links = append(report.Links, lr)
	}

	report.Duration = m.now().Sub(report.Started)
	log.Info().
		Int("links", len(report.Links)).
		Int("updated", report.Count(StatusUpdated)).
		Int("failed", len(report.Links)-report.Count(StatusUpdated)).
		Msg("Ciclo de verificação concluído")

	if m.reporter != nil && len(report.Links) > 0 {
		if err := m.reporter.Report(ctx, report); err != nil {
			log.Warn().Err(err).Msg("Erro ao enviar resumo do ciclo")
		}
	}
	return report
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
