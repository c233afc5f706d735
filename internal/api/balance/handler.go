package balance

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"gobalance/internal/domain"
	apperror "gobalance/internal/errors"
	"gobalance/internal/pkg/logger"
)

// BalanceService define o contrato que o Handler espera da camada de Serviço.
type BalanceService interface {
	Balance(ctx domain.Context, req domain.BalanceStockRequest) error
	AutoBalance(ctx domain.Context, req domain.AutoBalanceRequest) error
	Distribute(ctx domain.Context, req domain.DistributeStockRequest) error
	DistanceBetween(lat1, lon1, lat2, lon2 float64) float64
}

// Handler agrupa os métodos de Handler das operações de balanceamento.
type Handler struct {
	Service BalanceService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc BalanceService, log logger.Logger) *Handler {
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

// BalanceHandler lida com POST /v1/warehouses/balance.
// @Summary Transfere estoque entre dois armazéns
// @Description Move uma quantidade de um produto do armazém de origem para o de destino.
// @Tags balance
// @Accept json
// @Produce json
// @Param request body domain.BalanceStockRequest true "Transferência a executar"
// @Success 200 {object} map[string]string "Transferência concluída"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 409 {object} domain.ErrorResponse "Estoque insuficiente ou capacidade excedida"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Router /warehouses/balance [post]
func (h *Handler) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	var req domain.BalanceStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	if err := h.Service.Balance(ctx, req); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, map[string]string{"message": "Transferência concluída com sucesso."}, nil, http.StatusOK)
}

// AutoBalanceHandler lida com POST /v1/warehouses/auto-balance.
// @Summary Redistribui o estoque de um produto
// @Description Divide igualmente o estoque do produto no armazém de origem entre os demais armazéns.
// @Tags balance
// @Accept json
// @Produce json
// @Param request body domain.AutoBalanceRequest true "Redistribuição a executar"
// @Success 200 {object} map[string]string "Redistribuição concluída"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 409 {object} domain.ErrorResponse "Estoque insuficiente ou capacidade excedida"
// @Failure 422 {object} domain.ErrorResponse "Nenhum armazém de destino elegível"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Router /warehouses/auto-balance [post]
func (h *Handler) AutoBalanceHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	var req domain.AutoBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	if err := h.Service.AutoBalance(ctx, req); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, map[string]string{"message": "Redistribuição automática concluída com sucesso."}, nil, http.StatusOK)
}

// DistributeHandler lida com POST /v1/warehouses/distribute.
// @Summary Distribui estoque ponderando o armazém mais próximo
// @Description Envia um percentual da quantidade ao armazém mais próximo e divide o restante entre os demais.
// @Tags balance
// @Accept json
// @Produce json
// @Param request body domain.DistributeStockRequest true "Distribuição a executar"
// @Success 200 {object} map[string]string "Distribuição concluída"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 409 {object} domain.ErrorResponse "Estoque insuficiente ou capacidade excedida"
// @Failure 422 {object} domain.ErrorResponse "Nenhum armazém de destino elegível"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Router /warehouses/distribute [post]
func (h *Handler) DistributeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	var req domain.DistributeStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	if err := h.Service.Distribute(ctx, req); err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, map[string]string{"message": "Distribuição concluída com sucesso."}, nil, http.StatusOK)
}

// DistanceHandler lida com GET /v1/warehouses/distance.
// Recebe as coordenadas como query params (lat1, lon1, lat2, lon2) e retorna
// a distância de círculo máximo em quilômetros.
// @Summary Calcula a distância entre duas coordenadas
// @Tags balance
// @Produce json
// @Param lat1 query number true "Latitude do ponto 1"
// @Param lon1 query number true "Longitude do ponto 1"
// @Param lat2 query number true "Latitude do ponto 2"
// @Param lon2 query number true "Longitude do ponto 2"
// @Success 200 {object} map[string]float64 "Distância em km"
// @Failure 400 {object} domain.ErrorResponse "Coordenadas inválidas"
// @Router /warehouses/distance [get]
func (h *Handler) DistanceHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	coords := make([]float64, 4)
	for i, name := range []string{"lat1", "lon1", "lat2", "lon2"} {
		value, err := strconv.ParseFloat(r.URL.Query().Get(name), 64)
		if err != nil {
			h.handleServiceResponse(w, r, nil, apperror.NewValidationError(
				fmt.Sprintf("O parâmetro %q deve ser um número válido.", name)), http.StatusBadRequest)
			return
		}
		coords[i] = value
	}

	distance := h.Service.DistanceBetween(coords[0], coords[1], coords[2], coords[3])
	h.handleServiceResponse(w, r, map[string]float64{"distance_km": distance}, nil, http.StatusOK)
}
