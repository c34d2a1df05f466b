package scraper

import (
	"context"
	"strings"
)

// Result são os dados extraídos de uma página de produto.
// Falhas comuns de scraping são informadas em Error, nunca por panic.
type Result struct {
	Title    string
	Price    *float64
	Currency string
	Image    string
	InStock  *bool // nil quando a página não informa estoque
	Error    string
}

// HasPrice informa se o resultado traz um preço utilizável
func (r Result) HasPrice() bool {
	return r.Price != nil && *r.Price > 0
}

// Failed informa se o resultado não pode ser usado para reconciliar um link
func (r Result) Failed() bool {
	return r.Error != "" || (strings.TrimSpace(r.Title) == "" && !r.HasPrice())
}

// Failure cria um Result de falha
func Failure(format string, err error) Result {
	if err == nil {
		return Result{Error: format}
	}
	return Result{Error: format + ": " + err.Error()}
}

// Scraper define a interface para scrapers de diferentes lojas
type Scraper interface {
	Scrape(ctx context.Context, url string) Result
	CanHandle(url string) bool
}

// Registry mantém um registro de todos os scrapers disponíveis
type Registry struct {
	scrapers []Scraper
	fallback Scraper
}

// NewRegistry cria um novo registro de scrapers. Lojas sem scraper
// específico usam o PageScraper genérico.
func NewRegistry(fetcher *Fetcher) *Registry {
	return &Registry{
		scrapers: []Scraper{
			NewMercadoLivreScraper(fetcher),
		},
		fallback: NewPageScraper(fetcher),
	}
}

// FindScraper encontra o scraper apropriado para uma URL
func (r *Registry) FindScraper(url string) Scraper {
	for _, scraper := range r.scrapers {
		if scraper.CanHandle(url) {
			return scraper
		}
	}
	return r.fallback
}

// Scrape extrai os dados da URL usando o scraper apropriado
func (r *Registry) Scrape(ctx context.Context, url string) Result {
	s := r.FindScraper(url)
	if s == nil {
		return Result{Error: "nenhum scraper encontrado para URL: " + url}
	}
	return s.Scrape(ctx, url)
}
