package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"linkpool/internal/models"
)

const linkColumns = "hash, url, title, image, description, source, price, currency, in_stock, last_checked"

// upsertLinkSQL faz merge dos campos: valores NULL mantêm o valor gravado
const upsertLinkSQL = `
	INSERT INTO monitored_links (hash, url, title, image, description, source, price, currency, in_stock, last_checked)
	VALUES (?, COALESCE(?, ''), ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (hash) DO UPDATE SET
		url = COALESCE(?, monitored_links.url),
		title = COALESCE(excluded.title, monitored_links.title),
		image = COALESCE(excluded.image, monitored_links.image),
		description = COALESCE(excluded.description, monitored_links.description),
		source = COALESCE(excluded.source, monitored_links.source),
		price = COALESCE(excluded.price, monitored_links.price),
		currency = COALESCE(excluded.currency, monitored_links.currency),
		in_stock = COALESCE(excluded.in_stock, monitored_links.in_stock),
		last_checked = COALESCE(excluded.last_checked, monitored_links.last_checked)
`

// UpsertLink faz merge dos campos no link da chave, criando-o se necessário,
// e adiciona os productIDs ao conjunto de produtos do link
func (db *DB) UpsertLink(ctx context.Context, hash string, fields models.LinkFields, productIDs ...string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := upsertLink(ctx, tx, hash, fields, productIDs); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertLink(ctx context.Context, ex execer, hash string, f models.LinkFields, productIDs []string) error {
	url := nullString(f.URL)
	_, err := ex.ExecContext(ctx, upsertLinkSQL,
		hash, url, nullString(f.Title), nullString(f.Image), nullString(f.Description),
		nullString(f.Source), nullFloat(f.Price), nullString(f.Currency), nullBool(f.InStock),
		nullTimePtr(f.LastChecked),
		url,
	)
	if err != nil {
		return fmt.Errorf("erro ao gravar link %s: %w", hash, err)
	}

	for _, id := range productIDs {
		if _, err := ex.ExecContext(ctx,
			"INSERT OR IGNORE INTO link_products (hash, product_id) VALUES (?, ?)",
			hash, id,
		); err != nil {
			return fmt.Errorf("erro ao associar produto %s ao link %s: %w", id, hash, err)
		}
	}
	return nil
}

// GetLink retorna o link da chave, com seus produtos
func (db *DB) GetLink(ctx context.Context, hash string) (*models.MonitoredLink, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+linkColumns+" FROM monitored_links WHERE hash = ?", hash)
	link, err := scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	link.ProductIDs, err = db.GetLinkProducts(ctx, hash)
	if err != nil {
		return nil, err
	}
	return link, nil
}

// GetDueLinks retorna até limit links, os verificados há mais tempo primeiro.
// Links nunca verificados vêm antes de todos; empates são resolvidos pela chave.
func (db *DB) GetDueLinks(ctx context.Context, limit int) ([]models.MonitoredLink, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+linkColumns+" FROM monitored_links ORDER BY last_checked ASC, hash ASC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []models.MonitoredLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *link)
	}
	return links, rows.Err()
}

// GetLinkProducts retorna os IDs dos produtos associados ao link.
// O resultado pode estar desatualizado em relação a uma associação concorrente.
func (db *DB) GetLinkProducts(ctx context.Context, hash string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT product_id FROM link_products WHERE hash = ? ORDER BY product_id",
		hash,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountLinks retorna o total de links no pool
func (db *DB) CountLinks(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM monitored_links").Scan(&n)
	return n, err
}

func scanLink(s scanner) (*models.MonitoredLink, error) {
	var l models.MonitoredLink
	var title, image, description, source, currency sql.NullString
	var price sql.NullFloat64
	var inStock sql.NullBool
	var lastChecked sql.NullTime

	err := s.Scan(&l.Hash, &l.URL, &title, &image, &description, &source, &price, &currency, &inStock, &lastChecked)
	if err != nil {
		return nil, err
	}

	l.Title = title.String
	l.Image = image.String
	l.Description = description.String
	l.Source = source.String
	l.Price = price.Float64
	l.Currency = currency.String
	l.InStock = !inStock.Valid || inStock.Bool
	if lastChecked.Valid {
		l.LastChecked = lastChecked.Time
	}
	return &l, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return nullTime(*t)
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}
