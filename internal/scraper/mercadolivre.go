package scraper

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MercadoLivreScraper implementa o scraper para Mercado Livre
type MercadoLivreScraper struct {
	fetcher *Fetcher
}

// NewMercadoLivreScraper cria uma nova instância do scraper do Mercado Livre
func NewMercadoLivreScraper(fetcher *Fetcher) *MercadoLivreScraper {
	return &MercadoLivreScraper{fetcher: fetcher}
}

// CanHandle verifica se o scraper pode lidar com a URL fornecida
func (m *MercadoLivreScraper) CanHandle(url string) bool {
	return strings.Contains(strings.ToLower(url), "mercadolivre.com.br")
}

// Scrape extrai os dados de um produto do Mercado Livre
func (m *MercadoLivreScraper) Scrape(ctx context.Context, url string) Result {
	doc, err := m.fetcher.Fetch(ctx, url)
	if err != nil {
		return Failure("erro ao buscar página", err)
	}
	return ExtractMercadoLivre(doc)
}

// ExtractMercadoLivre usa os seletores da página do Mercado Livre e
// completa com as meta tags quando algum campo não aparece
func ExtractMercadoLivre(doc *goquery.Document) Result {
	r := ExtractPage(doc)

	// O preço promocional aparece na segunda linha; sem promoção, na primeira
	promotionalSelectors := []string{
		".ui-pdp-price__second-line .andes-money-amount__fraction",
		".ui-pdp-price--size-large .andes-money-amount__fraction",
		".ui-pdp-price__first-line .andes-money-amount__fraction",
		"[data-testid='price'] .andes-money-amount__fraction",
	}
	for _, selector := range promotionalSelectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text == "" {
			continue
		}
		if price, ok := parseBRL(text, centsNear(doc, selector)); ok {
			r.Price = &price
			break
		}
	}

	nameSelectors := []string{
		"h1.ui-pdp-title",
		"h1[data-testid='title']",
		".ui-pdp-title",
	}
	for _, selector := range nameSelectors {
		if name := strings.TrimSpace(doc.Find(selector).First().Text()); name != "" {
			r.Title = name
			break
		}
	}

	if img := doc.Find(".ui-pdp-gallery__figure img").First().AttrOr("src", ""); img != "" && r.Image == "" {
		r.Image = img
	}

	if r.Currency == "" {
		r.Currency = "BRL"
	}

	if stock := strings.ToLower(doc.Find(".ui-pdp-stock-information, .ui-pdp-buybox__quantity").First().Text()); stock != "" {
		inStock := !strings.Contains(stock, "esgotado") && !strings.Contains(stock, "indisponível")
		r.InStock = &inStock
	}

	return r
}

// centsNear retorna os centavos exibidos ao lado da fração do preço
func centsNear(doc *goquery.Document, fractionSelector string) string {
	parent := strings.TrimSuffix(fractionSelector, " .andes-money-amount__fraction")
	return strings.TrimSpace(doc.Find(parent + " .andes-money-amount__cents").First().Text())
}

// parseBRL converte "3.299" + "90" em 3299.90
func parseBRL(fraction, cents string) (float64, bool) {
	fraction = strings.ReplaceAll(fraction, ".", "")
	fraction = strings.ReplaceAll(fraction, ",", ".")
	if cents != "" && !strings.Contains(fraction, ".") {
		fraction += "." + cents
	}
	return parseDecimal(fraction)
}
