package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkpool/internal/database"
	"linkpool/internal/linkkey"
	"linkpool/internal/models"
	"linkpool/internal/scraper"
)

var fixedNow = time.Date(2024, 7, 10, 15, 0, 0, 0, time.UTC)

// fakeScraper devolve resultados fixos por URL e conta as chamadas
type fakeScraper struct {
	mu      sync.Mutex
	results map[string]scraper.Result
	calls   []string
}

func (f *fakeScraper) Scrape(ctx context.Context, url string) scraper.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	if r, ok := f.results[url]; ok {
		return r
	}
	return scraper.Result{Error: "timeout"}
}

// failingCommitStore falha em todo Commit
type failingCommitStore struct {
	*database.DB
}

func (s failingCommitStore) Commit(ctx context.Context, b *database.Batch) error {
	return errors.New("disk full")
}

func price(v float64) *float64 { return &v }

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "monitor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestMonitor(store Store, s Scraper, opts Options) *Monitor {
	m := New(store, s, opts)
	m.now = func() time.Time { return fixedNow }
	return m
}

// seedLink cria um link com os produtos informados já associados
func seedLink(t *testing.T, db *database.DB, url string, lastChecked time.Time, products ...models.Product) models.MonitoredLink {
	t.Helper()
	ctx := context.Background()

	var ids []string
	for _, p := range products {
		p.URL = url
		if p.UserID == "" {
			p.UserID = "user-" + p.ID
		}
		require.NoError(t, db.InsertProduct(ctx, p))
		ids = append(ids, p.ID)
	}

	fields := models.LinkFields{URL: models.String(url), Title: models.String("antigo")}
	if !lastChecked.IsZero() {
		fields.LastChecked = models.Time(lastChecked)
	}
	hash := linkkey.Derive(url)
	require.NoError(t, db.UpsertLink(ctx, hash, fields, ids...))

	link, err := db.GetLink(ctx, hash)
	require.NoError(t, err)
	return *link
}

func TestReconcileLink_FanOutExample(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	link := seedLink(t, db, "https://shop.example/x", time.Time{},
		models.Product{ID: "A", Price: 100, HighestPrice: 100, Currency: "BRL"},
		models.Product{ID: "B", Price: 150, HighestPrice: 150, Currency: "BRL"},
	)

	fs := &fakeScraper{results: map[string]scraper.Result{
		"https://shop.example/x": {Title: "Produto X", Price: price(90), Currency: "BRL"},
	}}
	m := newTestMonitor(db, fs, Options{})

	report, err := m.ReconcileLink(ctx, link)
	require.NoError(t, err)
	assert.Equal(t, StatusUpdated, report.Status)
	assert.Equal(t, 2, report.ProductsUpdated)
	assert.Equal(t, 2, report.HistoryAppended)

	a, err := db.GetProduct(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 90.0, a.Price)
	assert.Equal(t, 100.0, a.HighestPrice)
	assert.Equal(t, 10, a.PriceDropPercentage)
	assert.True(t, a.InStock)
	assert.True(t, a.LastStockCheck.Equal(fixedNow))

	b, err := db.GetProduct(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, 150.0, b.HighestPrice)
	assert.Equal(t, 40, b.PriceDropPercentage)

	for _, id := range []string{"A", "B"} {
		history, err := db.PriceHistory(ctx, id)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, 90.0, history[0].Price)
		assert.Equal(t, "BRL", history[0].Currency)
		assert.Equal(t, "2024-07-10T15:00:00Z", history[0].Date)
	}

	updated, err := db.GetLink(ctx, link.Hash)
	require.NoError(t, err)
	assert.Equal(t, "Produto X", updated.Title)
	assert.Equal(t, 90.0, updated.Price)
	assert.True(t, updated.InStock)
	assert.True(t, updated.LastChecked.Equal(fixedNow))
}

func TestReconcileLink_NewHighResetsDrop(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	link := seedLink(t, db, "https://shop.example/high", time.Time{},
		models.Product{ID: "A", Price: 80, HighestPrice: 100, PriceDropPercentage: 20},
	)

	fs := &fakeScraper{results: map[string]scraper.Result{
		"https://shop.example/high": {Title: "Produto", Price: price(130)},
	}}
	_, err := newTestMonitor(db, fs, Options{}).ReconcileLink(ctx, link)
	require.NoError(t, err)

	a, err := db.GetProduct(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 130.0, a.HighestPrice)
	assert.Equal(t, 0, a.PriceDropPercentage)
}

func TestReconcileLink_NoHistoryForJitter(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	link := seedLink(t, db, "https://shop.example/jitter", time.Time{},
		models.Product{ID: "A", Price: 50, HighestPrice: 60},
	)

	fs := &fakeScraper{results: map[string]scraper.Result{
		"https://shop.example/jitter": {Title: "Produto", Price: price(50.05)},
	}}
	report, err := newTestMonitor(db, fs, Options{}).ReconcileLink(ctx, link)
	require.NoError(t, err)
	assert.Equal(t, 0, report.HistoryAppended)

	history, err := db.PriceHistory(ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestReconcileLink_StockDefaultsAndExplicit(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	link := seedLink(t, db, "https://shop.example/stock", time.Time{},
		models.Product{ID: "A", Price: 10, HighestPrice: 10, InStock: false},
	)

	outOfStock := false
	fs := &fakeScraper{results: map[string]scraper.Result{
		"https://shop.example/stock": {Title: "Produto", InStock: &outOfStock},
	}}
	_, err := newTestMonitor(db, fs, Options{}).ReconcileLink(ctx, link)
	require.NoError(t, err)

	a, err := db.GetProduct(ctx, "A")
	require.NoError(t, err)
	assert.False(t, a.InStock)
	assert.Equal(t, 10.0, a.Price, "no price in the scrape keeps the stored price")

	fs.results["https://shop.example/stock"] = scraper.Result{Title: "Produto"}
	_, err = newTestMonitor(db, fs, Options{}).ReconcileLink(ctx, link)
	require.NoError(t, err)

	a, err = db.GetProduct(ctx, "A")
	require.NoError(t, err)
	assert.True(t, a.InStock)
}

func TestReconcileLink_ScrapeFailureMutatesNothing(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	lastChecked := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	link := seedLink(t, db, "https://shop.example/down", lastChecked,
		models.Product{ID: "A", Price: 100, HighestPrice: 100},
	)

	fs := &fakeScraper{results: map[string]scraper.Result{
		"https://shop.example/down": {Error: "timeout"},
	}}
	report, err := newTestMonitor(db, fs, Options{}).ReconcileLink(ctx, link)
	require.ErrorIs(t, err, ErrScrapeFailed)
	assert.Equal(t, StatusScrapeFailed, report.Status)

	a, err := db.GetProduct(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 100.0, a.Price)
	assert.True(t, a.LastStockCheck.IsZero())

	after, err := db.GetLink(ctx, link.Hash)
	require.NoError(t, err)
	assert.True(t, after.LastChecked.Equal(lastChecked))
	assert.Equal(t, "antigo", after.Title)
}

func TestReconcileLink_EmptyScrapeIsFailure(t *testing.T) {
	db := newTestDB(t)
	link := seedLink(t, db, "https://shop.example/empty", time.Time{})

	fs := &fakeScraper{results: map[string]scraper.Result{
		"https://shop.example/empty": {Image: "https://img.example/x.jpg"},
	}}
	_, err := newTestMonitor(db, fs, Options{}).ReconcileLink(context.Background(), link)
	assert.ErrorIs(t, err, ErrScrapeFailed)
}

func TestReconcileLink_AdvanceOnFailure(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	link := seedLink(t, db, "https://shop.example/down", time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		models.Product{ID: "A", Price: 100, HighestPrice: 100},
	)

	m := newTestMonitor(db, &fakeScraper{}, Options{AdvanceOnFailure: true})
	_, err := m.ReconcileLink(ctx, link)
	require.ErrorIs(t, err, ErrScrapeFailed)

	after, err := db.GetLink(ctx, link.Hash)
	require.NoError(t, err)
	assert.True(t, after.LastChecked.Equal(fixedNow))

	a, err := db.GetProduct(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 100.0, a.Price)
}

func TestReconcileLink_MissingProductIsSkipped(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	link := seedLink(t, db, "https://shop.example/partial", time.Time{},
		models.Product{ID: "A", Price: 100, HighestPrice: 100},
		models.Product{ID: "C", Price: 100, HighestPrice: 100},
	)
	require.NoError(t, db.UpsertLink(ctx, link.Hash, models.LinkFields{}, "B-deleted"))

	fs := &fakeScraper{results: map[string]scraper.Result{
		"https://shop.example/partial": {Title: "Produto", Price: price(75)},
	}}
	report, err := newTestMonitor(db, fs, Options{}).ReconcileLink(ctx, link)
	require.NoError(t, err)
	assert.Equal(t, 2, report.ProductsUpdated)
	assert.Equal(t, 1, report.ProductsSkipped)

	for _, id := range []string{"A", "C"} {
		p, err := db.GetProduct(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 75.0, p.Price)
		assert.Equal(t, 25, p.PriceDropPercentage)
	}

	after, err := db.GetLink(ctx, link.Hash)
	require.NoError(t, err)
	assert.Equal(t, 75.0, after.Price)
}

func TestReconcileLink_CommitFailureLeavesLinkDue(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	lastChecked := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	link := seedLink(t, db, "https://shop.example/commit", lastChecked,
		models.Product{ID: "A", Price: 100, HighestPrice: 100},
	)

	fs := &fakeScraper{results: map[string]scraper.Result{
		"https://shop.example/commit": {Title: "Produto", Price: price(60)},
	}}
	report, err := newTestMonitor(failingCommitStore{db}, fs, Options{}).ReconcileLink(ctx, link)
	require.Error(t, err)
	assert.Equal(t, StatusCommitFailed, report.Status)

	after, err := db.GetLink(ctx, link.Hash)
	require.NoError(t, err)
	assert.True(t, after.LastChecked.Equal(lastChecked))

	a, err := db.GetProduct(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 100.0, a.Price)
}

func TestReconcileLink_ParallelFanOutMatchesSequential(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	var products []models.Product
	for _, id := range []string{"p1", "p2", "p3", "p4", "p5", "p6"} {
		products = append(products, models.Product{ID: id, Price: 200, HighestPrice: 200})
	}
	link := seedLink(t, db, "https://shop.example/many", time.Time{}, products...)

	fs := &fakeScraper{results: map[string]scraper.Result{
		"https://shop.example/many": {Title: "Produto", Price: price(150)},
	}}
	report, err := newTestMonitor(db, fs, Options{FanOutWorkers: 4}).ReconcileLink(ctx, link)
	require.NoError(t, err)
	assert.Equal(t, 6, report.ProductsUpdated)
	assert.Equal(t, 6, report.PriceDrops)

	for _, p := range products {
		got, err := db.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 25, got.PriceDropPercentage)
	}
}

func TestReconcileLink_ConsultsPendingAlerts(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	link := seedLink(t, db, "https://shop.example/alert", time.Time{},
		models.Product{ID: "A", Price: 100, HighestPrice: 100},
	)
	require.NoError(t, db.AddPendingAlert(ctx, models.PendingAlert{ProductURL: link.URL, UserID: "user-A", Email: "a@example.com"}))

	fs := &fakeScraper{results: map[string]scraper.Result{
		link.URL: {Title: "Produto", Price: price(80)},
	}}
	report, err := newTestMonitor(db, fs, Options{}).ReconcileLink(ctx, link)
	require.NoError(t, err)
	assert.Equal(t, 1, report.PendingAlerts)

	alerts, err := db.PendingAlertsForURL(ctx, link.URL)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

type panicScraper struct{}

func (panicScraper) Scrape(ctx context.Context, url string) scraper.Result { panic("boom") }

func TestReconcileLink_ScraperPanicIsFailure(t *testing.T) {
	db := newTestDB(t)
	link := seedLink(t, db, "https://shop.example/panic", time.Time{})

	_, err := newTestMonitor(db, panicScraper{}, Options{}).ReconcileLink(context.Background(), link)
	assert.ErrorIs(t, err, ErrScrapeFailed)
}

type recordingReporter struct {
	reports []CycleReport
}

func (r *recordingReporter) Report(ctx context.Context, report CycleReport) error {
	r.reports = append(r.reports, report)
	return nil
}

func TestRunCycle_OldestFirstAndContinuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	base := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	seedLink(t, db, "https://shop.example/newest", base.Add(3*time.Hour), models.Product{ID: "N", Price: 10, HighestPrice: 10})
	seedLink(t, db, "https://shop.example/oldest", base, models.Product{ID: "O", Price: 10, HighestPrice: 10})
	seedLink(t, db, "https://shop.example/middle", base.Add(time.Hour), models.Product{ID: "M", Price: 10, HighestPrice: 10})

	fs := &fakeScraper{results: map[string]scraper.Result{
		"https://shop.example/oldest": {Title: "Velho", Price: price(8)},
		"https://shop.example/newest": {Title: "Novo", Price: price(12)},
	}}
	rec := &recordingReporter{}
	m := newTestMonitor(db, fs, Options{BatchSize: 5}).WithReporter(rec)

	report := m.RunCycle(ctx)

	assert.Equal(t, []string{
		"https://shop.example/oldest",
		"https://shop.example/middle",
		"https://shop.example/newest",
	}, fs.calls)
	require.Len(t, report.Links, 3)
	assert.Equal(t, 2, report.Count(StatusUpdated))
	assert.Equal(t, 1, report.Count(StatusScrapeFailed))
	require.Len(t, rec.reports, 1)

	// O link que falhou continua vencido e é o primeiro do próximo ciclo
	due, err := m.DueLinks(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, due)
	assert.Equal(t, "https://shop.example/middle", due[0].URL)
}

func TestRunCycle_RespectsBatchSize(t *testing.T) {
	db := newTestDB(t)
	for _, u := range []string{"https://a.example/1", "https://a.example/2", "https://a.example/3"} {
		seedLink(t, db, u, time.Time{})
	}

	fs := &fakeScraper{}
	report := newTestMonitor(db, fs, Options{BatchSize: 2}).RunCycle(context.Background())
	assert.Len(t, report.Links, 2)
	assert.Len(t, fs.calls, 2)
}
