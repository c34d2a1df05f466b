package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"linkpool/internal/database"
	"linkpool/internal/metrics"
	"linkpool/internal/models"
	"linkpool/internal/pricing"
	"linkpool/internal/scraper"
)

// ErrScrapeFailed indica que o scrape do link não trouxe dados utilizáveis
var ErrScrapeFailed = errors.New("scrape falhou")

// ReconcileLink verifica um link e propaga o resultado para todos os seus
// produtos. O link e os produtos são gravados juntos em um único lote.
func (m *Monitor) ReconcileLink(ctx context.Context, link models.MonitoredLink) (LinkReport, error) {
	report := LinkReport{Hash: link.Hash, URL: link.URL}
	now := m.now()

	start := time.Now()
	res := m.scrape(ctx, link.URL)
	if res.Failed() {
		metrics.ScrapeDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return m.scrapeFailed(ctx, link, res, now, report)
	}
	metrics.ScrapeDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	// Sem informação de estoque, o produto é considerado disponível
	inStock := true
	if res.InStock != nil {
		inStock = *res.InStock
	}

	fields := models.LinkFields{
		InStock:     models.Bool(inStock),
		LastChecked: models.Time(now),
	}
	if res.Title != "" {
		fields.Title = models.String(res.Title)
	}
	if res.Image != "" {
		fields.Image = models.String(res.Image)
	}
	if res.HasPrice() {
		fields.Price = models.Float(*res.Price)
		report.Price = *res.Price
	}
	if res.Currency != "" {
		fields.Currency = models.String(res.Currency)
	}

	productIDs, err := m.store.GetLinkProducts(ctx, link.Hash)
	if err != nil {
		report.Status = StatusCommitFailed
		metrics.LinksReconciled.WithLabelValues(metrics.OutcomeCommitFailed).Inc()
		return report, fmt.Errorf("buscar produtos do link %s: %w", link.Hash, err)
	}

	batch := database.NewBatch()
	batch.UpsertLink(link.Hash, fields)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(m.opts.FanOutWorkers)

	for _, id := range productIDs {
		g.Go(func() error {
			staged, err := m.stageProduct(ctx, batch, id, res, inStock, now)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.ProductsSkipped++
				metrics.ProductsSkipped.Inc()
				log.Warn().Err(err).Str("hash", link.Hash).Str("product_id", id).Msg("Produto ignorado na reconciliação")
				return nil
			}
			report.ProductsUpdated++
			if staged.history {
				report.HistoryAppended++
			}
			if staged.priceDrop {
				report.PriceDrops++
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := m.store.Commit(ctx, batch); err != nil {
		report.Status = StatusCommitFailed
		report.ProductsUpdated = 0
		report.HistoryAppended = 0
		report.PriceDrops = 0
		metrics.LinksReconciled.WithLabelValues(metrics.OutcomeCommitFailed).Inc()
		sentry.CaptureException(fmt.Errorf("gravar lote do link %s: %w", link.Hash, err))
		return report, fmt.Errorf("gravar lote do link %s: %w", link.Hash, err)
	}

	report.Status = StatusUpdated
	metrics.LinksReconciled.WithLabelValues(metrics.OutcomeUpdated).Inc()
	metrics.ProductsUpdated.Add(float64(report.ProductsUpdated))
	metrics.PriceHistoryAppended.Add(float64(report.HistoryAppended))

	if report.PriceDrops > 0 {
		alerts, err := m.store.PendingAlertsForURL(ctx, link.URL)
		if err != nil {
			log.Warn().Err(err).Str("hash", link.Hash).Msg("Erro ao consultar alertas pendentes")
		} else {
			report.PendingAlerts = len(alerts)
		}
	}

	log.Info().
		Str("hash", link.Hash).
		Float64("price", report.Price).
		Int("products", report.ProductsUpdated).
		Int("skipped", report.ProductsSkipped).
		Int("history", report.HistoryAppended).
		Msg("Link reconciliado")
	return report, nil
}

type stagedProduct struct {
	history   bool
	priceDrop bool
}

// stageProduct calcula o novo estado de um produto e o agenda no lote
func (m *Monitor) stageProduct(ctx context.Context, b *database.Batch, id string, res scraper.Result, inStock bool, now time.Time) (stagedProduct, error) {
	var staged stagedProduct

	p, err := m.store.GetProduct(ctx, id)
	if err != nil {
		return staged, fmt.Errorf("carregar produto: %w", err)
	}

	upd := database.ProductUpdate{
		InStock:        inStock,
		LastStockCheck: now,
	}

	if res.HasPrice() {
		newPrice := *res.Price
		u := pricing.Apply(pricing.Prices{Price: p.Price, HighestPrice: p.HighestPrice}, newPrice)

		upd.Price = models.Float(u.Price)
		if u.HighestChanged {
			upd.HighestPrice = models.Float(u.HighestPrice)
		}
		if u.DropChanged {
			drop := u.PriceDropPercentage
			upd.PriceDropPercentage = &drop
		}

		if u.AppendHistory {
			currency := res.Currency
			if currency == "" {
				currency = p.Currency
			}
			b.AppendPriceHistory(models.PriceHistoryEntry{
				ProductID: p.ID,
				Price:     newPrice,
				Date:      now.UTC().Format(time.RFC3339),
				Currency:  currency,
			})
			staged.history = true
		}
		staged.priceDrop = newPrice < p.Price && u.PriceDropPercentage > 0
	}

	b.UpdateProduct(p.ID, upd)
	return staged, nil
}

// scrapeFailed registra a falha e, se configurado, avança lastChecked do link
func (m *Monitor) scrapeFailed(ctx context.Context, link models.MonitoredLink, res scraper.Result, now time.Time, report LinkReport) (LinkReport, error) {
	report.Status = StatusScrapeFailed
	metrics.LinksReconciled.WithLabelValues(metrics.OutcomeScrapeFailed).Inc()

	reason := res.Error
	if reason == "" {
		reason = "página sem título e sem preço"
	}
	sentry.CaptureMessage(fmt.Sprintf("scrape falhou para %s: %s", link.URL, reason))

	if m.opts.AdvanceOnFailure {
		b := database.NewBatch()
		b.UpsertLink(link.Hash, models.LinkFields{LastChecked: models.Time(now)})
		if err := m.store.Commit(ctx, b); err != nil {
			log.Error().Err(err).Str("hash", link.Hash).Msg("Erro ao registrar tentativa do link")
		}
	}

	return report, fmt.Errorf("%w: %s", ErrScrapeFailed, reason)
}

// scrape chama o scraper tratando panic como falha de scrape
func (m *Monitor) scrape(ctx context.Context, url string) (res scraper.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = scraper.Result{Error: fmt.Sprintf("panic no scraper: %v", r)}
		}
	}()
	return m.scraper.Scrape(ctx, url)
}
