package models

import "time"

// Product representa um item salvo por um usuário em uma coleção (wishlist)
type Product struct {
	ID                  string
	URL                 string
	UserID              string
	CollectionName      string
	Title               string
	Image               string
	Description         string
	Source              string // Identificador da loja (ex: "mercadolivre.com.br")
	Price               float64
	Currency            string
	HighestPrice        float64 // Maior preço já observado para este produto
	PriceDropPercentage int     // Queda em relação ao HighestPrice (0-100)
	InStock             bool
	LastStockCheck      time.Time
	CreatedAt           time.Time
}

// PriceHistoryEntry é um registro imutável de mudança de preço de um produto
type PriceHistoryEntry struct {
	ProductID string
	Price     float64
	Date      string // RFC3339
	Currency  string
}

// PendingAlert é um alerta aguardando entrega; apenas consultado aqui
type PendingAlert struct {
	ID         int64
	ProductURL string
	UserID     string
	Email      string
	Status     string
}

// AlertStatusPending é o status de um alerta ainda não entregue
const AlertStatusPending = "pending"
