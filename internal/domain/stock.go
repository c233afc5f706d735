package domain

import "time"

// Stock representa o estoque de um produto em um armazém específico.
// Inclui uma coluna 'version' para controle de concorrência otimista (OCC):
// duas transferências concorrentes sobre o mesmo registro nunca podem
// intercalar seus ciclos de leitura-modificação-escrita.
type Stock struct {
	ID          string    `json:"id"`
	WarehouseID string    `json:"warehouse_id"`
	ProductID   string    `json:"product_id"`
	Quantity    int       `json:"quantity"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BalanceStockRequest é o payload da transferência ponto a ponto entre
// dois armazéns nomeados.
type BalanceStockRequest struct {
	SourceWarehouseID string `json:"source_warehouse_id" validate:"required,uuid"`
	TargetWarehouseID string `json:"target_warehouse_id" validate:"required,uuid"`
	ProductID         string `json:"product_id" validate:"required,uuid"`
	Quantity          int    `json:"quantity" validate:"required,gt=0"`
}

// AutoBalanceRequest é o payload da redistribuição automática: todo o
// estoque do produto no armazém de origem é dividido igualmente entre os
// demais armazéns.
type AutoBalanceRequest struct {
	ProductID         string `json:"product_id" validate:"required,uuid"`
	SourceWarehouseID string `json:"source_warehouse_id" validate:"required,uuid"`
}

// DistributeStockRequest é o payload da distribuição ponderada pelo armazém
// geograficamente mais próximo. NearestWarehousePercentage fica em [0, 100].
type DistributeStockRequest struct {
	SourceWarehouseID          string  `json:"source_warehouse_id" validate:"required,uuid"`
	ProductID                  string  `json:"product_id" validate:"required,uuid"`
	Quantity                   int     `json:"quantity" validate:"required,gt=0"`
	NearestWarehousePercentage float64 `json:"nearest_warehouse_percentage" validate:"gte=0,lte=100"`
}

// AddStockRequest é o payload administrativo de entrada de estoque
// (find-or-create por par armazém/produto).
type AddStockRequest struct {
	WarehouseID string `json:"warehouse_id" validate:"required,uuid"`
	ProductID   string `json:"product_id" validate:"required,uuid"`
	Quantity    int    `json:"quantity" validate:"required,gt=0"`
}
