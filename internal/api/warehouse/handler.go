package warehouse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"gobalance/internal/domain"
	apperror "gobalance/internal/errors"
	"gobalance/internal/pkg/logger"
)

// WarehouseService define o contrato que o Handler espera da camada de Serviço.
type WarehouseService interface {
	CreateWarehouse(ctx domain.Context, warehouse domain.Warehouse) (domain.Warehouse, error)
	GetWarehouseByID(ctx domain.Context, id string) (domain.Warehouse, error)
	GetAllWarehouses(ctx domain.Context) ([]domain.Warehouse, error)
	UpdateWarehouse(ctx domain.Context, warehouse domain.Warehouse) (domain.Warehouse, error)
	DeleteWarehouse(ctx domain.Context, id string) error
	NearestWarehouses(ctx domain.Context, sourceID string) ([]domain.WarehouseDistance, error)
}

// Handler agrupa todos os métodos de Handler de armazéns.
type Handler struct {
	Service WarehouseService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc WarehouseService, log logger.Logger) *Handler {
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

// WarehousesHandler lida com as requisições de coleção em /v1/warehouses:
// POST cria um armazém, GET lista todos.
func (h *Handler) WarehousesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createWarehouse(w, r)
	case http.MethodGet:
		h.getAllWarehouses(w, r)
	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

// WarehouseByIDHandler lida com as requisições de item em /v1/warehouses/{id}:
// GET busca, PUT atualiza, DELETE remove. O sufixo /nearest é encaminhado
// para a listagem por proximidade.
func (h *Handler) WarehouseByIDHandler(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/warehouses/")

	if id, ok := strings.CutSuffix(path, "/nearest"); ok {
		h.nearestWarehouses(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getWarehouseByID(w, r, path)
	case http.MethodPut:
		h.updateWarehouse(w, r, path)
	case http.MethodDelete:
		h.deleteWarehouse(w, r, path)
	default:
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
	}
}

// createWarehouse lida com POST /v1/warehouses.
// @Summary Cria um novo armazém
// @Description Cria um novo armazém com nome, coordenadas e capacidade.
// @Tags warehouses
// @Accept json
// @Produce json
// @Param warehouse body domain.Warehouse true "Dados do armazém para criação"
// @Success 201 {object} domain.Warehouse "Armazém criado com sucesso"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Router /warehouses [post]
func (h *Handler) createWarehouse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var warehouse domain.Warehouse
	if err := json.NewDecoder(r.Body).Decode(&warehouse); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}

	createdWarehouse, err := h.Service.CreateWarehouse(ctx, warehouse)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, createdWarehouse, nil, http.StatusCreated)
}

// getAllWarehouses lida com GET /v1/warehouses.
// @Summary Lista todos os armazéns
// @Description Retorna todos os armazéns cadastrados, com seus estoques.
// @Tags warehouses
// @Produce json
// @Success 200 {array} domain.Warehouse "Lista de armazéns"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Router /warehouses [get]
func (h *Handler) getAllWarehouses(w http.ResponseWriter, r *http.Request) {
	warehouses, err := h.Service.GetAllWarehouses(r.Context())
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, warehouses, nil, http.StatusOK)
}

// getWarehouseByID lida com GET /v1/warehouses/{id}.
// @Summary Obtém um armazém por ID
// @Description Busca um armazém específico pelo seu ID, incluindo estoques.
// @Tags warehouses
// @Produce json
// @Param id path string true "ID do Armazém"
// @Success 200 {object} domain.Warehouse "Armazém encontrado"
// @Failure 404 {object} domain.ErrorResponse "Armazém não encontrado"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Router /warehouses/{id} [get]
func (h *Handler) getWarehouseByID(w http.ResponseWriter, r *http.Request, id string) {
	warehouse, err := h.Service.GetWarehouseByID(r.Context(), id)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, warehouse, nil, http.StatusOK)
}

// updateWarehouse lida com PUT /v1/warehouses/{id}.
// @Summary Atualiza um armazém
// @Description Atualiza os dados de um armazém existente.
// @Tags warehouses
// @Accept json
// @Produce json
// @Param id path string true "ID do Armazém"
// @Param warehouse body domain.Warehouse true "Dados do armazém para atualização"
// @Success 200 {object} domain.Warehouse "Armazém atualizado com sucesso"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 404 {object} domain.ErrorResponse "Armazém não encontrado"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Router /warehouses/{id} [put]
func (h *Handler) updateWarehouse(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	var warehouse domain.Warehouse
	if err := json.NewDecoder(r.Body).Decode(&warehouse); err != nil {
		h.handleServiceResponse(w, r, nil, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusBadRequest)
		return
	}
	warehouse.ID = id // O ID da URL prevalece sobre o do corpo

	updatedWarehouse, err := h.Service.UpdateWarehouse(ctx, warehouse)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, updatedWarehouse, nil, http.StatusOK)
}

// deleteWarehouse lida com DELETE /v1/warehouses/{id}.
// @Summary Deleta um armazém
// @Description Remove um armazém do sistema pelo seu ID.
// @Tags warehouses
// @Param id path string true "ID do Armazém"
// @Success 204 "Nenhum conteúdo"
// @Failure 404 {object} domain.ErrorResponse "Armazém não encontrado"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Router /warehouses/{id} [delete]
func (h *Handler) deleteWarehouse(w http.ResponseWriter, r *http.Request, id string) {
	err := h.Service.DeleteWarehouse(r.Context(), id)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, nil, nil, http.StatusNoContent)
}

// nearestWarehouses lida com GET /v1/warehouses/{id}/nearest.
// @Summary Lista armazéns por proximidade
// @Description Retorna os demais armazéns ordenados pela distância até o armazém informado.
// @Tags warehouses
// @Produce json
// @Param id path string true "ID do Armazém de origem"
// @Success 200 {array} domain.WarehouseDistance "Armazéns ordenados por distância"
// @Failure 404 {object} domain.ErrorResponse "Armazém não encontrado"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Router /warehouses/{id}/nearest [get]
func (h *Handler) nearestWarehouses(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	distances, err := h.Service.NearestWarehouses(r.Context(), id)
	if err != nil {
		h.handleServiceResponse(w, r, nil, err, http.StatusOK)
		return
	}

	h.handleServiceResponse(w, r, distances, nil, http.StatusOK)
}
