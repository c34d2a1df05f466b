package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"linkpool/internal/models"
)

// ProductUpdate são os campos de um produto alterados por uma reconciliação.
// HighestPrice e PriceDropPercentage só são gravados quando não nil.
type ProductUpdate struct {
	Price               *float64
	InStock             bool
	LastStockCheck      time.Time
	HighestPrice        *float64
	PriceDropPercentage *int
}

type opKind int

const (
	opUpsertLink opKind = iota
	opUpdateProduct
	opAppendHistory
)

type op struct {
	kind       opKind
	hash       string
	fields     models.LinkFields
	productIDs []string
	productID  string
	update     ProductUpdate
	entry      models.PriceHistoryEntry
}

// Batch acumula gravações que são aplicadas juntas por Commit.
// É seguro adicionar operações a partir de várias goroutines.
type Batch struct {
	mu  sync.Mutex
	ops []op
}

// NewBatch cria um lote vazio
func NewBatch() *Batch {
	return &Batch{}
}

// UpsertLink agenda um merge do link, com união dos productIDs
func (b *Batch) UpsertLink(hash string, fields models.LinkFields, productIDs ...string) {
	b.add(op{kind: opUpsertLink, hash: hash, fields: fields, productIDs: productIDs})
}

// UpdateProduct agenda a atualização de um produto
func (b *Batch) UpdateProduct(productID string, u ProductUpdate) {
	b.add(op{kind: opUpdateProduct, productID: productID, update: u})
}

// AppendPriceHistory agenda uma nova entrada no histórico de um produto
func (b *Batch) AppendPriceHistory(e models.PriceHistoryEntry) {
	b.add(op{kind: opAppendHistory, productID: e.ProductID, entry: e})
}

// Len retorna o número de operações agendadas
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ops)
}

func (b *Batch) add(o op) {
	b.mu.Lock()
	b.ops = append(b.ops, o)
	b.mu.Unlock()
}

// Commit aplica todas as operações do lote em uma única transação:
// ou todas são gravadas, ou nenhuma
func (db *DB) Commit(ctx context.Context, b *Batch) error {
	b.mu.Lock()
	ops := make([]op, len(b.ops))
	copy(ops, b.ops)
	b.mu.Unlock()

	if len(ops) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, o := range ops {
		var err error
		switch o.kind {
		case opUpsertLink:
			err = upsertLink(ctx, tx, o.hash, o.fields, o.productIDs)
		case opUpdateProduct:
			err = updateProduct(ctx, tx, o.productID, o.update)
		case opAppendHistory:
			_, err = tx.ExecContext(ctx,
				"INSERT INTO price_history (product_id, price, date, currency) VALUES (?, ?, ?, ?)",
				o.entry.ProductID, o.entry.Price, o.entry.Date, o.entry.Currency,
			)
			if err != nil {
				err = fmt.Errorf("erro ao gravar histórico do produto %s: %w", o.productID, err)
			}
		}
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("erro ao aplicar lote de %d operações: %w", len(ops), err)
	}
	return nil
}

func updateProduct(ctx context.Context, ex execer, id string, u ProductUpdate) error {
	_, err := ex.ExecContext(ctx, `
		UPDATE products SET
			price = COALESCE(?, price),
			in_stock = ?,
			last_stock_check = ?,
			highest_price = COALESCE(?, highest_price),
			price_drop_percentage = COALESCE(?, price_drop_percentage)
		WHERE id = ?`,
		nullFloat(u.Price), u.InStock, nullTime(u.LastStockCheck),
		nullFloat(u.HighestPrice), nullInt(u.PriceDropPercentage), id,
	)
	if err != nil {
		return fmt.Errorf("erro ao atualizar produto %s: %w", id, err)
	}
	return nil
}
