package stockservice

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"gobalance/internal/domain"
	apperror "gobalance/internal/errors"
	"gobalance/internal/pkg/logger"
)

// StockRepository define o contrato que o Serviço de Estoque espera da camada
// de Persistência. As escritas são condicionadas à versão lida (OCC).
type StockRepository interface {
	GetStock(ctx context.Context, warehouseID, productID string) (domain.Stock, error)
	GetStockByID(ctx context.Context, id string) (domain.Stock, error)
	CreateStock(ctx context.Context, stock domain.Stock) (domain.Stock, error)
	UpdateStockQuantity(ctx context.Context, id string, quantity, expectedVersion int) (domain.Stock, error)
}

// WarehouseRepository dá ao serviço acesso ao armazém dono do estoque, com os
// estoques carregados, para as checagens de capacidade.
type WarehouseRepository interface {
	GetWarehouseByID(ctx context.Context, id string) (domain.Warehouse, error)
}

// Service é a estrutura que implementa as operações administrativas de estoque.
type Service struct {
	repo          StockRepository
	warehouseRepo WarehouseRepository
	logger        logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Estoque.
func NewService(repo StockRepository, warehouseRepo WarehouseRepository, logger logger.Logger) *Service {
	return &Service{repo: repo, warehouseRepo: warehouseRepo, logger: logger}
}

// GetStockByID busca um registro de estoque pelo ID após validação de formato.
func (s *Service) GetStockByID(ctx domain.Context, id string) (domain.Stock, error) {
	s.logger.Debug("Iniciando busca de estoque por ID no serviço.", map[string]interface{}{"id": id})

	if _, err := uuid.Parse(id); err != nil {
		return domain.Stock{}, apperror.NewValidationError("O ID do estoque deve ser um UUID válido.")
	}

	ctxGo, ok := ctx.(context.Context)
	if !ok {
		ctxGo = context.Background()
		s.logger.Warn("Contexto de domínio inválido, usando context.Background() para GetStockByID", nil)
	}

	stock, err := s.repo.GetStockByID(ctxGo, id)
	if err != nil {
		s.logger.Error("Falha ao buscar estoque no repositório.", err)
		return domain.Stock{}, err // Erros do repositório já são NotFoundError ou DBError
	}
	return stock, nil
}

// GetStock busca o estoque de um produto em um armazém específico.
func (s *Service) GetStock(ctx domain.Context, warehouseID, productID string) (domain.Stock, error) {
	s.logger.Debug("Iniciando busca de estoque por armazém/produto no serviço.", map[string]interface{}{
		"warehouse_id": warehouseID,
		"product_id":   productID,
	})

	if _, err := uuid.Parse(warehouseID); err != nil {
		return domain.Stock{}, apperror.NewValidationError("O ID do armazém deve ser um UUID válido.")
	}
	if _, err := uuid.Parse(productID); err != nil {
		return domain.Stock{}, apperror.NewValidationError("O ID do produto deve ser um UUID válido.")
	}

	ctxGo, ok := ctx.(context.Context)
	if !ok {
		ctxGo = context.Background()
		s.logger.Warn("Contexto de domínio inválido, usando context.Background() para GetStock", nil)
	}

	stock, err := s.repo.GetStock(ctxGo, warehouseID, productID)
	if err != nil {
		s.logger.Error("Falha ao buscar estoque no repositório.", err)
		return domain.Stock{}, err
	}
	return stock, nil
}

// AddStock dá entrada de unidades de um produto em um armazém, com a regra
// find-or-create por par (armazém, produto): incrementa o registro existente
// ou cria um novo. A entrada nunca pode deixar o total mantido pelo armazém
// acima da sua capacidade.
func (s *Service) AddStock(ctx domain.Context, req domain.AddStockRequest) (domain.Stock, error) {
	s.logger.Debug("Iniciando entrada de estoque no serviço.", map[string]interface{}{
		"warehouse_id": req.WarehouseID,
		"product_id":   req.ProductID,
		"quantity":     req.Quantity,
	})

	if req.Quantity <= 0 {
		return domain.Stock{}, apperror.NewValidationError("A quantidade de entrada deve ser maior que zero.")
	}
	if _, err := uuid.Parse(req.WarehouseID); err != nil {
		return domain.Stock{}, apperror.NewValidationError("O ID do armazém deve ser um UUID válido.")
	}
	if _, err := uuid.Parse(req.ProductID); err != nil {
		return domain.Stock{}, apperror.NewValidationError("O ID do produto deve ser um UUID válido.")
	}

	ctxGo, ok := ctx.(context.Context)
	if !ok {
		ctxGo = context.Background()
		s.logger.Warn("Contexto de domínio inválido, usando context.Background() para AddStock", nil)
	}

	warehouse, err := s.warehouseRepo.GetWarehouseByID(ctxGo, req.WarehouseID)
	if err != nil {
		s.logger.Error("Falha ao buscar armazém para entrada de estoque.", err)
		return domain.Stock{}, err
	}

	if warehouse.TotalQuantity()+req.Quantity > warehouse.Capacity {
		return domain.Stock{}, apperror.NewCapacityExceededError(warehouse.Name,
			fmt.Sprintf("total atual %d + %d excede a capacidade %d.",
				warehouse.TotalQuantity(), req.Quantity, warehouse.Capacity))
	}

	var stock domain.Stock
	if existing, ok := warehouse.StockOf(req.ProductID); ok {
		stock, err = s.repo.UpdateStockQuantity(ctxGo, existing.ID, existing.Quantity+req.Quantity, existing.Version)
	} else {
		stock, err = s.repo.CreateStock(ctxGo, domain.Stock{
			WarehouseID: req.WarehouseID,
			ProductID:   req.ProductID,
			Quantity:    req.Quantity,
		})
	}
	if err != nil {
		s.logger.Error("Falha ao gravar entrada de estoque no repositório.", err)
		return domain.Stock{}, err
	}

	s.logger.Info("Entrada de estoque concluída.", map[string]interface{}{
		"id":           stock.ID,
		"warehouse_id": stock.WarehouseID,
		"product_id":   stock.ProductID,
		"new_quantity": stock.Quantity,
	})
	return stock, nil
}

// UpdateStock redefine a quantidade de um registro de estoque existente,
// respeitando a capacidade do armazém dono do registro.
func (s *Service) UpdateStock(ctx domain.Context, id string, quantity int) (domain.Stock, error) {
	s.logger.Debug("Iniciando atualização de estoque no serviço.", map[string]interface{}{
		"id":       id,
		"quantity": quantity,
	})

	if quantity < 0 {
		return domain.Stock{}, apperror.NewValidationError("A quantidade de estoque não pode ser negativa.")
	}
	if _, err := uuid.Parse(id); err != nil {
		return domain.Stock{}, apperror.NewValidationError("O ID do estoque deve ser um UUID válido.")
	}

	ctxGo, ok := ctx.(context.Context)
	if !ok {
		ctxGo = context.Background()
		s.logger.Warn("Contexto de domínio inválido, usando context.Background() para UpdateStock", nil)
	}

	stock, err := s.repo.GetStockByID(ctxGo, id)
	if err != nil {
		s.logger.Error("Falha ao buscar estoque para atualização.", err)
		return domain.Stock{}, err
	}

	warehouse, err := s.warehouseRepo.GetWarehouseByID(ctxGo, stock.WarehouseID)
	if err != nil {
		s.logger.Error("Falha ao buscar armazém do estoque.", err)
		return domain.Stock{}, err
	}

	// O total projetado troca a quantidade corrente do registro pela nova.
	projected := warehouse.TotalQuantity() - stock.Quantity + quantity
	if projected > warehouse.Capacity {
		return domain.Stock{}, apperror.NewCapacityExceededError(warehouse.Name,
			fmt.Sprintf("total projetado %d excede a capacidade %d.", projected, warehouse.Capacity))
	}

	updated, err := s.repo.UpdateStockQuantity(ctxGo, stock.ID, quantity, stock.Version)
	if err != nil {
		s.logger.Error("Falha ao atualizar estoque no repositório.", err)
		return domain.Stock{}, err
	}

	s.logger.Info("Estoque atualizado com sucesso.", map[string]interface{}{
		"id":           updated.ID,
		"new_quantity": updated.Quantity,
		"new_version":  updated.Version,
	})
	return updated, nil
}
