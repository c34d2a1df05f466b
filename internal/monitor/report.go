package monitor

import "time"

// LinkStatus é o resultado da reconciliação de um link
type LinkStatus string

const (
	StatusUpdated      LinkStatus = "updated"
	StatusScrapeFailed LinkStatus = "scrape_failed"
	StatusCommitFailed LinkStatus = "commit_failed"
)

// LinkReport resume a reconciliação de um link
type LinkReport struct {
	Hash            string
	URL             string
	Status          LinkStatus
	Price           float64
	ProductsUpdated int
	ProductsSkipped int
	HistoryAppended int
	PriceDrops      int
	PendingAlerts   int
}

// CycleReport resume um ciclo do agendador
type CycleReport struct {
	Started  time.Time
	Duration time.Duration
	Links    []LinkReport
}

// Count retorna quantos links terminaram com o status informado
func (c CycleReport) Count(status LinkStatus) int {
	n := 0
	for _, l := range c.Links {
		if l.Status == status {
			n++
		}
	}
	return n
}

// ProductsUpdated retorna o total de produtos atualizados no ciclo
func (c CycleReport) ProductsUpdated() int {
	n := 0
	for _, l := range c.Links {
		n += l.ProductsUpdated
	}
	return n
}

// PriceDrops retorna o total de quedas de preço observadas no ciclo
func (c CycleReport) PriceDrops() int {
	n := 0
	for _, l := range c.Links {
		n += l.PriceDrops
	}
	return n
}
