package stock

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"gobalance/internal/domain"
	apperror "gobalance/internal/errors"
	"gobalance/internal/pkg/logger"
)

// StockService define o contrato que o Handler espera da camada de Serviço.
type StockService interface {
	GetStockByID(ctx domain.Context, id string) (domain.Stock, error)
	GetStock(ctx domain.Context, warehouseID, productID string) (domain.Stock, error)
	AddStock(ctx domain.Context, req domain.AddStockRequest) (domain.Stock, error)
	UpdateStock(ctx domain.Context, id string, quantity int) (domain.Stock, error)
}

// Handler agrupa todos os métodos de Handler de estoque.
type Handler struct {
	Service StockService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc StockService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// handleServiceResponse processa erros de serviço e envia respostas padronizadas ao cliente.
func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, data interface{}, err error, successStatus int) {
	if err == nil {
		// Sucesso
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(successStatus)
		if data != nil {
			if jsonErr := json.NewEncoder(w).Encode(data); jsonErr != nil {
				h.Logger.Error("Falha ao codificar JSON de resposta", jsonErr)
				http.Error(w, "Erro ao codificar resposta", http.StatusInternalServerError)
			}
		}
		return
	}

	// TRATAMENTO DE ERROS
	status, category, message := apperror.MapToHTTPStatus(err)

	if status >= 500 {
		h.Logger.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
	} else {
		h.Logger.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category), map[string]interface{}{"path": r.URL.Path})
	}

	errorResponse := map[string]interface{}{
		"code":     status,
		"category": category,
		"message":  message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse)
}

// StocksHandler lida com as requisições de coleção em /v1/stocks:
// POST dá entrada de estoque, GET busca por par armazém/produto via query params.
func (h *Handler) StocksHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.addStock(w, r)
	case http.MethodGet:
		h.getStock(w, r)
	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

// StockByIDHandler lida com as requisições de item em /v1/stocks/{id}:
// GET busca o registro, PUT redefine a quantidade.
func (h *Handler) StockByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/stocks/")

	switch r.Method {
	case http.MethodGet:
		h.getStockByID(w, r, id)
	case http.MethodPut:
		h.updateStock(w, r, id)
	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

// addStock lida com POST /v1/stocks.
// @Summary Dá entrada de estoque em um armazém
// @Description Incrementa (ou cria) o registro de estoque do produto no armazém.
// @Tags stocks
// @Accept json
// @Produce json
// @Param request body domain.AddStockRequest true "Entrada de estoque"
// @Success 201 {object} domain.Stock "Estoque gravado"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 409 {object} domain.ErrorResponse "Capacidade excedida"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Router /stocks [post]
func (h *Handler) addStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req domain.AddStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	stock, err := h.Service.AddStock(ctx, req)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, stock, nil, http.StatusCreated)
}

// getStock lida com GET /v1/stocks?warehouse_id={id}&product_id={id}.
// @Summary Busca o estoque de um produto em um armazém
// @Tags stocks
// @Produce json
// @Param warehouse_id query string true "ID do Armazém"
// @Param product_id query string true "ID do Produto"
// @Success 200 {object} domain.Stock "Estoque encontrado"
// @Failure 404 {object} domain.ErrorResponse "Estoque não encontrado"
// @Router /stocks [get]
func (h *Handler) getStock(w http.ResponseWriter, r *http.Request) {
	warehouseID := r.URL.Query().Get("warehouse_id")
	productID := r.URL.Query().Get("product_id")

	stock, err := h.Service.GetStock(r.Context(), warehouseID, productID)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, stock, nil, http.StatusOK)
}

// getStockByID lida com GET /v1/stocks/{id}.
// @Summary Obtém um registro de estoque por ID
// @Tags stocks
// @Produce json
// @Param id path string true "ID do Estoque"
// @Success 200 {object} domain.Stock "Estoque encontrado"
// @Failure 404 {object} domain.ErrorResponse "Estoque não encontrado"
// @Router /stocks/{id} [get]
func (h *Handler) getStockByID(w http.ResponseWriter, r *http.Request, id string) {
	stock, err := h.Service.GetStockByID(r.Context(), id)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, stock, nil, http.StatusOK)
}

// updateStockRequest é o corpo aceito pelo PUT de estoque.
type updateStockRequest struct {
	Quantity int `json:"quantity"`
}

// updateStock lida com PUT /v1/stocks/{id}.
// @Summary Redefine a quantidade de um registro de estoque
// @Tags stocks
// @Accept json
// @Produce json
// @Param id path string true "ID do Estoque"
// @Param request body updateStockRequest true "Nova quantidade"
// @Success 200 {object} domain.Stock "Estoque atualizado"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 409 {object} domain.ErrorResponse "Conflito de concorrência ou capacidade excedida"
// @Router /stocks/{id} [put]
func (h *Handler) updateStock(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	var req updateStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	stock, err := h.Service.UpdateStock(ctx, id, req.Quantity)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, stock, nil, http.StatusOK)
}
