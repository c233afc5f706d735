package domain

import (
	"time"
)

// Warehouse representa um armazém físico no sistema.
// Latitude/Longitude (graus decimais) e Capacity são entradas imutáveis para
// os algoritmos de balanceamento: eles leem, nunca alteram esses campos.
type Warehouse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Capacity  int       `json:"capacity"` // Quantidade máxima total de unidades (todos os produtos)
	Stocks    []Stock   `json:"stocks"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TotalQuantity retorna a quantidade total mantida pelo armazém,
// somando todos os produtos. É a base da checagem de capacidade.
func (w Warehouse) TotalQuantity() int {
	total := 0
	for _, s := range w.Stocks {
		total += s.Quantity
	}
	return total
}

// StockOf retorna o registro de estoque do produto informado, se existir.
// Um armazém mantém no máximo um registro de Stock por produto.
func (w Warehouse) StockOf(productID string) (Stock, bool) {
	for _, s := range w.Stocks {
		if s.ProductID == productID {
			return s, true
		}
	}
	return Stock{}, false
}

// WarehouseDistance é a projeção de um armazém com a distância calculada
// até um armazém de origem (usada na listagem de armazéns mais próximos).
type WarehouseDistance struct {
	WarehouseID string  `json:"warehouse_id"`
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Capacity    int     `json:"capacity"`
	DistanceKm  float64 `json:"distance_km"`
}
