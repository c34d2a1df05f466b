// Package pricing calcula o estado derivado de um produto (maior preço,
// percentual de queda e histórico) a partir de um novo preço observado.
package pricing

import "math"

// HistoryThreshold é a variação mínima de preço, em unidades da moeda,
// para registrar uma nova entrada no histórico
const HistoryThreshold = 0.1

// Prices é o estado de preço atualmente gravado em um produto
type Prices struct {
	Price        float64
	HighestPrice float64
}

// Update é o resultado da aplicação de um novo preço
type Update struct {
	Price               float64
	HighestPrice        float64
	PriceDropPercentage int
	HighestChanged      bool
	DropChanged         bool
	AppendHistory       bool
}

// Apply calcula o novo estado de um produto para o preço observado.
// Um novo máximo zera a queda; um preço abaixo do máximo recalcula a queda
// sem alterar o máximo.
func Apply(current Prices, newPrice float64) Update {
	u := Update{
		Price:        newPrice,
		HighestPrice: current.HighestPrice,
	}

	switch {
	case newPrice > current.HighestPrice:
		u.HighestPrice = newPrice
		u.HighestChanged = true
		u.PriceDropPercentage = 0
		u.DropChanged = true
	case newPrice > 0 && newPrice < current.HighestPrice:
		u.PriceDropPercentage = DropPercentage(current.HighestPrice, newPrice)
		u.DropChanged = true
	case newPrice == current.HighestPrice:
		u.PriceDropPercentage = 0
		u.DropChanged = true
	}

	u.AppendHistory = math.Abs(current.Price-newPrice) > HistoryThreshold
	return u
}

// DropPercentage retorna a queda inteira (0-100) de price em relação a highest
func DropPercentage(highest, price float64) int {
	if highest <= 0 || price >= highest {
		return 0
	}
	return int(math.Round(100 * (highest - price) / highest))
}
