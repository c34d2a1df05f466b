package models

import "time"

// MonitoredLink é o registro único, por chave canônica, compartilhado por
// todos os produtos que apontam para a mesma URL
type MonitoredLink struct {
	Hash        string
	URL         string
	Title       string
	Image       string
	Description string
	Source      string
	Price       float64
	Currency    string
	InStock     bool
	LastChecked time.Time // Zero se o link nunca foi verificado
	ProductIDs  []string
}

// LinkFields descreve um merge parcial de um MonitoredLink.
// Campos nil não são alterados no registro existente.
type LinkFields struct {
	URL         *string
	Title       *string
	Image       *string
	Description *string
	Source      *string
	Price       *float64
	Currency    *string
	InStock     *bool
	LastChecked *time.Time
}

// String, Float, Bool e Time devolvem ponteiros para uso em LinkFields
func String(s string) *string { return &s }
func Float(f float64) *float64 { return &f }
func Bool(b bool) *bool { return &b }
func Time(t time.Time) *time.Time { return &t }
