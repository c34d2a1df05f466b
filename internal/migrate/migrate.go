// Package migrate monta o pool de links a partir dos produtos já existentes.
//
// O job pode ser executado mais de uma vez: a associação de produtos é uma
// união de conjunto e os demais campos são mesclados, de modo que uma nova
// execução não duplica produtos. Quando vários produtos têm a mesma URL,
// título e imagem do link ficam com os valores do último produto processado.
package migrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"linkpool/internal/database"
	"linkpool/internal/linkkey"
	"linkpool/internal/metrics"
	"linkpool/internal/models"
)

// BatchLimit é o máximo de operações por lote gravado
const BatchLimit = 500

// Store é o acesso ao banco usado pela migração
type Store interface {
	ForEachProduct(ctx context.Context, pageSize int, fn func(models.Product) error) error
	Commit(ctx context.Context, b *database.Batch) error
}

// Stats resume uma execução da migração
type Stats struct {
	Products int
	Skipped  int
	Staged   int
	Batches  int
}

// Run percorre todos os produtos e agenda, para cada um, o merge do link
// da sua URL com a adição do produto ao conjunto do link
func Run(ctx context.Context, store Store) (Stats, error) {
	var stats Stats
	batch := database.NewBatch()

	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := store.Commit(ctx, batch); err != nil {
			return fmt.Errorf("gravar lote %d: %w", stats.Batches+1, err)
		}
		stats.Batches++
		log.Info().Int("batch", stats.Batches).Int("ops", batch.Len()).Msg("Lote da migração gravado")
		batch = database.NewBatch()
		return nil
	}

	err := store.ForEachProduct(ctx, BatchLimit, func(p models.Product) error {
		stats.Products++

		if !linkkey.Valid(p.URL) {
			stats.Skipped++
			metrics.MigratedProducts.WithLabelValues("skipped").Inc()
			log.Debug().Str("product_id", p.ID).Msg("Produto sem URL ignorado")
			return nil
		}

		batch.UpsertLink(linkkey.Derive(p.URL), LinkFieldsFor(p), p.ID)
		stats.Staged++
		metrics.MigratedProducts.WithLabelValues("staged").Inc()

		if batch.Len() >= BatchLimit {
			return flush()
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	if err := flush(); err != nil {
		return stats, err
	}

	log.Info().
		Int("products", stats.Products).
		Int("skipped", stats.Skipped).
		Int("batches", stats.Batches).
		Msg("Migração do pool de links concluída")
	return stats, nil
}

// LinkFieldsFor monta os campos do link a partir dos dados em cache do produto.
// lastChecked vem da última verificação de estoque ou, na falta dela, da criação.
func LinkFieldsFor(p models.Product) models.LinkFields {
	lastChecked := p.LastStockCheck
	if lastChecked.IsZero() {
		lastChecked = p.CreatedAt
	}

	source := p.Source
	if source == "" {
		source = database.SourceOf(p.URL)
	}

	fields := models.LinkFields{
		URL:         models.String(strings.TrimSpace(p.URL)),
		Title:       models.String(p.Title),
		Image:       models.String(p.Image),
		Description: models.String(p.Description),
		Source:      models.String(source),
		Price:       models.Float(p.Price),
		Currency:    models.String(p.Currency),
		InStock:     models.Bool(p.InStock),
	}
	if !lastChecked.IsZero() {
		fields.LastChecked = models.Time(lastChecked)
	}
	return fields
}
