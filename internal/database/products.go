package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"linkpool/internal/linkkey"
	"linkpool/internal/models"
)

const productColumns = "id, url, user_id, collection_name, title, image, description, source, price, currency, highest_price, price_drop_percentage, in_stock, last_stock_check, created_at"

// NewProduct são os dados informados pelo usuário ao salvar um produto
type NewProduct struct {
	URL            string
	UserID         string
	CollectionName string
	Title          string
	Image          string
	Price          float64
	Currency       string
}

// AddProduct salva um novo produto e o associa ao link da sua URL,
// criando o link na primeira vez que a URL aparece
func (db *DB) AddProduct(ctx context.Context, np NewProduct) (*models.Product, error) {
	if !linkkey.Valid(np.URL) {
		return nil, fmt.Errorf("URL inválida: %q", np.URL)
	}
	if np.UserID == "" {
		return nil, fmt.Errorf("usuário não informado")
	}

	now := db.now()
	p := models.Product{
		ID:             uuid.NewString(),
		URL:            strings.TrimSpace(np.URL),
		UserID:         np.UserID,
		CollectionName: np.CollectionName,
		Title:          np.Title,
		Image:          np.Image,
		Source:         SourceOf(np.URL),
		Price:          np.Price,
		Currency:       np.Currency,
		HighestPrice:   np.Price,
		InStock:        true,
		CreatedAt:      now,
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := insertProduct(ctx, tx, p); err != nil {
		return nil, err
	}

	fields := models.LinkFields{
		URL:    models.String(p.URL),
		Source: models.String(p.Source),
	}
	if p.Title != "" {
		fields.Title = models.String(p.Title)
	}
	if p.Image != "" {
		fields.Image = models.String(p.Image)
	}
	if err := upsertLink(ctx, tx, linkkey.Derive(p.URL), fields, []string{p.ID}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &p, nil
}

// InsertProduct grava um produto exatamente como informado, sem tocar no pool.
// Usado para importar registros antigos, anteriores ao pool de links.
func (db *DB) InsertProduct(ctx context.Context, p models.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = db.now()
	}
	return insertProduct(ctx, db.conn, p)
}

func insertProduct(ctx context.Context, ex execer, p models.Product) error {
	_, err := ex.ExecContext(ctx,
		"INSERT INTO products ("+productColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.URL, p.UserID, p.CollectionName, p.Title, p.Image, p.Description, p.Source,
		p.Price, p.Currency, p.HighestPrice, p.PriceDropPercentage, p.InStock,
		nullTime(p.LastStockCheck), nullTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("erro ao inserir produto %s: %w", p.ID, err)
	}
	return nil
}

// GetProduct retorna um produto pelo ID
func (db *DB) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// DeleteProduct remove um produto (ação do usuário). O ID continua no
// conjunto do link até a próxima limpeza.
func (db *DB) DeleteProduct(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	return err
}

// ForEachProduct percorre todos os produtos em ordem de criação.
// Os produtos são lidos em páginas para não manter um cursor aberto
// enquanto fn grava no banco.
func (db *DB) ForEachProduct(ctx context.Context, pageSize int, fn func(models.Product) error) error {
	if pageSize <= 0 {
		pageSize = 500
	}

	offset := 0
	for {
		page, err := db.listProducts(ctx, pageSize, offset)
		if err != nil {
			return err
		}
		for _, p := range page {
			if err := fn(p); err != nil {
				return err
			}
		}
		if len(page) < pageSize {
			return nil
		}
		offset += len(page)
	}
}

// ListProducts retorna todos os produtos
func (db *DB) ListProducts(ctx context.Context) ([]models.Product, error) {
	return db.listProducts(ctx, -1, 0)
}

func (db *DB) listProducts(ctx context.Context, limit, offset int) ([]models.Product, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// PriceHistory retorna o histórico de preços de um produto, do mais antigo ao mais recente
func (db *DB) PriceHistory(ctx context.Context, productID string) ([]models.PriceHistoryEntry, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT product_id, price, date, currency FROM price_history WHERE product_id = ? ORDER BY id",
		productID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.PriceHistoryEntry
	for rows.Next() {
		var e models.PriceHistoryEntry
		var currency sql.NullString
		if err := rows.Scan(&e.ProductID, &e.Price, &e.Date, &currency); err != nil {
			return nil, err
		}
		e.Currency = currency.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AddPendingAlert registra um alerta pendente. A entrega é feita por outro serviço.
func (db *DB) AddPendingAlert(ctx context.Context, a models.PendingAlert) error {
	if a.Status == "" {
		a.Status = models.AlertStatusPending
	}
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO pending_alerts (product_url, user_id, email, status) VALUES (?, ?, ?, ?)",
		a.ProductURL, a.UserID, a.Email, a.Status,
	)
	return err
}

// PendingAlertsForURL retorna os alertas pendentes de uma URL
func (db *DB) PendingAlertsForURL(ctx context.Context, productURL string) ([]models.PendingAlert, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, product_url, user_id, email, status FROM pending_alerts WHERE product_url = ? AND status = ? ORDER BY id",
		productURL, models.AlertStatusPending,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.PendingAlert
	for rows.Next() {
		var a models.PendingAlert
		var email sql.NullString
		if err := rows.Scan(&a.ID, &a.ProductURL, &a.UserID, &email, &a.Status); err != nil {
			return nil, err
		}
		a.Email = email.String
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// SourceOf retorna o identificador da loja a partir da URL
func SourceOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func scanProduct(s scanner) (*models.Product, error) {
	var p models.Product
	var rawURL, collection, title, image, description, source, currency sql.NullString
	var price, highest sql.NullFloat64
	var drop sql.NullInt64
	var inStock sql.NullBool
	var lastStockCheck, createdAt sql.NullTime

	err := s.Scan(&p.ID, &rawURL, &p.UserID, &collection, &title, &image, &description, &source,
		&price, &currency, &highest, &drop, &inStock, &lastStockCheck, &createdAt)
	if err != nil {
		return nil, err
	}

	p.URL = rawURL.String
	p.CollectionName = collection.String
	p.Title = title.String
	p.Image = image.String
	p.Description = description.String
	p.Source = source.String
	p.Price = price.Float64
	p.Currency = currency.String
	p.HighestPrice = highest.Float64
	p.PriceDropPercentage = int(drop.Int64)
	p.InStock = !inStock.Valid || inStock.Bool
	if lastStockCheck.Valid {
		p.LastStockCheck = lastStockCheck.Time
	}
	if createdAt.Valid {
		p.CreatedAt = createdAt.Time
	}
	return &p, nil
}
