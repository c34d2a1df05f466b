package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound é retornado quando o registro pedido não existe
var ErrNotFound = errors.New("registro não encontrado")

// DB encapsula a conexão com o banco de dados
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// New cria uma nova instância do banco de dados
func New(dbPath string) (*DB, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("caminho do banco de dados não informado")
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", dbPath)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn, now: time.Now}

	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}

	log.Debug().Str("path", dbPath).Msg("Banco de dados inicializado com sucesso")
	return db, nil
}

// Close fecha a conexão com o banco de dados
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifica se o banco responde
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// init cria as tabelas necessárias
func (db *DB) init() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS monitored_links (
			hash TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			title TEXT,
			image TEXT,
			description TEXT,
			source TEXT,
			price REAL,
			currency TEXT,
			in_stock BOOLEAN,
			last_checked DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_monitored_links_last_checked ON monitored_links (last_checked, hash)`,
		`CREATE TABLE IF NOT EXISTS link_products (
			hash TEXT NOT NULL REFERENCES monitored_links (hash),
			product_id TEXT NOT NULL,
			PRIMARY KEY (hash, product_id)
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			url TEXT,
			user_id TEXT NOT NULL,
			collection_name TEXT,
			title TEXT,
			image TEXT,
			description TEXT,
			source TEXT,
			price REAL DEFAULT 0,
			currency TEXT,
			highest_price REAL DEFAULT 0,
			price_drop_percentage INTEGER DEFAULT 0,
			in_stock BOOLEAN DEFAULT 1,
			last_stock_check DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS price_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			product_id TEXT NOT NULL REFERENCES products (id) ON DELETE CASCADE,
			price REAL NOT NULL,
			date TEXT NOT NULL,
			currency TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_price_history_product ON price_history (product_id, id)`,
		`CREATE TABLE IF NOT EXISTS pending_alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			product_url TEXT NOT NULL,
			user_id TEXT NOT NULL,
			email TEXT,
			status TEXT NOT NULL DEFAULT 'pending'
		)`,
	}

	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("erro ao criar schema: %w", err)
		}
	}
	return nil
}

// scanner é satisfeito por *sql.Row e *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// execer é satisfeito por *sql.DB e *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}
