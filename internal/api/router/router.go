package router

import (
	"net/http"
	"time"

	"gobalance/internal/api/balance"
	"gobalance/internal/api/stock"
	"gobalance/internal/api/warehouse"
	"gobalance/internal/pkg/cache"
	"gobalance/internal/pkg/middleware"
)

// NewRouter configura e retorna o roteador HTTP principal.
// Recebe os Handlers já inicializados por injeção de dependências.
func NewRouter(
	warehouseHandler *warehouse.Handler,
	stockHandler *stock.Handler,
	balanceHandler *balance.Handler,
	cacheClient cache.Client,
	rateLimit int,
	rateWindow time.Duration,
) http.Handler {

	// Usamos o ServeMux padrão do net/http para roteamento
	// Em projetos maiores, pode-se usar um mux de terceiros (e.g., gorilla/mux, chi)
	mux := http.NewServeMux()

	// --- 1. Rotas de Health Check ---
	mux.HandleFunc("/ping", PingHandler)

	// --- 2. Rotas do Módulo de Armazéns (v1) ---
	mux.HandleFunc("/v1/warehouses", warehouseHandler.WarehousesHandler)
	mux.HandleFunc("/v1/warehouses/", warehouseHandler.WarehouseByIDHandler)

	// --- 3. Rotas de Balanceamento (v1) ---
	// Os caminhos exatos têm precedência sobre o prefixo /v1/warehouses/.
	mux.HandleFunc("/v1/warehouses/balance", balanceHandler.BalanceHandler)
	mux.HandleFunc("/v1/warehouses/auto-balance", balanceHandler.AutoBalanceHandler)
	mux.HandleFunc("/v1/warehouses/distribute", balanceHandler.DistributeHandler)
	mux.HandleFunc("/v1/warehouses/distance", balanceHandler.DistanceHandler)

	// --- 4. Rotas do Módulo de Estoque (v1) ---
	mux.HandleFunc("/v1/stocks", stockHandler.StocksHandler)
	mux.HandleFunc("/v1/stocks/", stockHandler.StockByIDHandler)

	// --- 5. Middlewares globais ---
	return middleware.RateLimiter(cacheClient, rateLimit, rateWindow)(mux)
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
