package scraper

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageScraper extrai dados de qualquer loja a partir das meta tags
// (OpenGraph / product:*) e do JSON-LD schema.org da página
type PageScraper struct {
	fetcher *Fetcher
}

// NewPageScraper cria uma nova instância do scraper genérico
func NewPageScraper(fetcher *Fetcher) *PageScraper {
	return &PageScraper{fetcher: fetcher}
}

// CanHandle aceita qualquer URL http(s)
func (p *PageScraper) CanHandle(url string) bool {
	u := strings.ToLower(strings.TrimSpace(url))
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// Scrape baixa a página e extrai título, preço, moeda, imagem e estoque
func (p *PageScraper) Scrape(ctx context.Context, url string) Result {
	doc, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return Failure("erro ao buscar página", err)
	}
	return ExtractPage(doc)
}

// ExtractPage extrai os dados de produto de um documento já carregado
func ExtractPage(doc *goquery.Document) Result {
	var r Result
	ld := findProductLD(doc)

	r.Title = firstNonEmpty(
		metaContent(doc, "og:title"),
		ld.Name,
		strings.TrimSpace(doc.Find("h1").First().Text()),
		strings.TrimSpace(doc.Find("title").First().Text()),
	)
	r.Image = firstNonEmpty(
		metaContent(doc, "og:image"),
		ld.image(),
	)

	priceText := firstNonEmpty(
		metaContent(doc, "product:price:amount"),
		metaContent(doc, "og:price:amount"),
		ld.offer().priceString(),
		itemprop(doc, "price"),
	)
	if price, ok := parseDecimal(priceText); ok {
		r.Price = &price
	}

	r.Currency = strings.ToUpper(firstNonEmpty(
		metaContent(doc, "product:price:currency"),
		metaContent(doc, "og:price:currency"),
		ld.offer().PriceCurrency,
		itemprop(doc, "priceCurrency"),
	))

	availability := firstNonEmpty(
		metaContent(doc, "product:availability"),
		metaContent(doc, "og:availability"),
		ld.offer().Availability,
		itemprop(doc, "availability"),
	)
	r.InStock = parseAvailability(availability)

	return r
}

func metaContent(doc *goquery.Document, name string) string {
	sel := doc.Find("meta[property='" + name + "'], meta[name='" + name + "']").First()
	return strings.TrimSpace(sel.AttrOr("content", ""))
}

func itemprop(doc *goquery.Document, name string) string {
	sel := doc.Find("[itemprop='" + name + "']").First()
	if v := sel.AttrOr("content", ""); v != "" {
		return strings.TrimSpace(v)
	}
	if v := sel.AttrOr("href", ""); v != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(sel.Text())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// productLD é o subconjunto do schema.org/Product usado aqui
type productLD struct {
	Type   any             `json:"@type"`
	Name   string          `json:"name"`
	Image  json.RawMessage `json:"image"`
	Offers json.RawMessage `json:"offers"`
}

type offerLD struct {
	Price         any    `json:"price"`
	LowPrice      any    `json:"lowPrice"`
	PriceCurrency string `json:"priceCurrency"`
	Availability  string `json:"availability"`
}

func (p productLD) image() string {
	var s string
	if json.Unmarshal(p.Image, &s) == nil {
		return s
	}
	var list []string
	if json.Unmarshal(p.Image, &list) == nil && len(list) > 0 {
		return list[0]
	}
	var obj struct {
		URL string `json:"url"`
	}
	if json.Unmarshal(p.Image, &obj) == nil {
		return obj.URL
	}
	return ""
}

func (p productLD) offer() offerLD {
	var o offerLD
	if json.Unmarshal(p.Offers, &o) == nil && (o.Price != nil || o.LowPrice != nil) {
		return o
	}
	var list []offerLD
	if json.Unmarshal(p.Offers, &list) == nil && len(list) > 0 {
		return list[0]
	}
	return o
}

func (o offerLD) priceString() string {
	for _, v := range []any{o.Price, o.LowPrice} {
		switch p := v.(type) {
		case string:
			if p != "" {
				return p
			}
		case float64:
			return strconv.FormatFloat(p, 'f', -1, 64)
		}
	}
	return ""
}

func (p productLD) isProduct() bool {
	switch t := p.Type.(type) {
	case string:
		return strings.EqualFold(t, "Product")
	case []any:
		for _, v := range t {
			if s, ok := v.(string); ok && strings.EqualFold(s, "Product") {
				return true
			}
		}
	}
	return false
}

// findProductLD procura um schema.org/Product nos scripts JSON-LD,
// inclusive dentro de arrays e de @graph
func findProductLD(doc *goquery.Document) productLD {
	var found productLD
	doc.Find("script[type='application/ld+json']").EachWithBreak(func(i int, s *goquery.Selection) bool {
		raw := []byte(strings.TrimSpace(s.Text()))

		var candidates []productLD
		var single productLD
		if json.Unmarshal(raw, &single) == nil {
			candidates = append(candidates, single)
		}
		var list []productLD
		if json.Unmarshal(raw, &list) == nil {
			candidates = append(candidates, list...)
		}
		var graph struct {
			Graph []productLD `json:"@graph"`
		}
		if json.Unmarshal(raw, &graph) == nil {
			candidates = append(candidates, graph.Graph...)
		}

		for _, c := range candidates {
			if c.isProduct() {
				found = c
				return false
			}
		}
		return true
	})
	return found
}

var nonNumeric = regexp.MustCompile(`[^0-9.,]`)

// parseDecimal interpreta preços como "1299.90", "1.299,90" ou "1,299.90".
// O último separador seguido de até dois dígitos é o decimal.
func parseDecimal(text string) (float64, bool) {
	clean := nonNumeric.ReplaceAllString(text, "")
	if clean == "" {
		return 0, false
	}

	lastDot := strings.LastIndex(clean, ".")
	lastComma := strings.LastIndex(clean, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			clean = strings.ReplaceAll(clean, ".", "")
			clean = strings.Replace(clean, ",", ".", 1)
		} else {
			clean = strings.ReplaceAll(clean, ",", "")
		}
	case lastComma >= 0:
		if len(clean)-lastComma-1 <= 2 && strings.Count(clean, ",") == 1 {
			clean = strings.Replace(clean, ",", ".", 1)
		} else {
			clean = strings.ReplaceAll(clean, ",", "")
		}
	case strings.Count(clean, ".") > 1:
		clean = strings.ReplaceAll(clean, ".", "")
	}

	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// parseAvailability converte valores schema.org (InStock, OutOfStock, ...)
func parseAvailability(text string) *bool {
	t := strings.ToLower(text)
	if t == "" {
		return nil
	}
	for _, s := range []string{"outofstock", "out of stock", "soldout", "sold out", "discontinued"} {
		if strings.Contains(t, s) {
			v := false
			return &v
		}
	}
	for _, s := range []string{"instock", "in stock", "limitedavailability", "preorder", "onlineonly"} {
		if strings.Contains(t, s) {
			v := true
			return &v
		}
	}
	return nil
}
