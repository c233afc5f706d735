package warehouseservice

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"gobalance/internal/domain"
	apperror "gobalance/internal/errors"
	"gobalance/internal/pkg/geo"
	"gobalance/internal/pkg/logger"
)

// WarehouseRepository define o contrato que o Serviço de Armazéns espera da camada de Persistência.
type WarehouseRepository interface {
	CreateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error)
	GetWarehouseByID(ctx context.Context, id string) (domain.Warehouse, error)
	GetAllWarehouses(ctx context.Context) ([]domain.Warehouse, error)
	UpdateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error)
	DeleteWarehouse(ctx context.Context, id string) error
}

// Service é a estrutura que implementa as operações de cadastro de armazéns.
type Service struct {
	repo   WarehouseRepository
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Armazéns.
func NewService(repo WarehouseRepository, logger logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateWarehouse cria um novo armazém após validações de negócio.
func (s *Service) CreateWarehouse(ctx domain.Context, warehouse domain.Warehouse) (domain.Warehouse, error) {
	s.logger.Debug("Iniciando criação de armazém no serviço.", map[string]interface{}{"name": warehouse.Name})

	if err := s.validateWarehouse(warehouse); err != nil {
		s.logger.Warn("Falha na validação do armazém.", map[string]interface{}{"name": warehouse.Name, "error": err.Error()})
		return domain.Warehouse{}, err
	}

	ctxGo, ok := ctx.(context.Context)
	if !ok {
		ctxGo = context.Background()
		s.logger.Warn("Contexto de domínio inválido, usando context.Background() para CreateWarehouse", nil)
	}

	createdWarehouse, err := s.repo.CreateWarehouse(ctxGo, warehouse)
	if err != nil {
		s.logger.Error("Falha ao criar armazém no repositório.", err)
		return domain.Warehouse{}, apperror.NewInternalError("Falha interna ao criar armazém.", err)
	}

	s.logger.Info("Armazém criado com sucesso.", map[string]interface{}{"id": createdWarehouse.ID, "name": createdWarehouse.Name})
	return createdWarehouse, nil
}

// GetWarehouseByID busca um armazém pelo ID após validações de formato.
func (s *Service) GetWarehouseByID(ctx domain.Context, id string) (domain.Warehouse, error) {
	s.logger.Debug("Iniciando busca de armazém por ID no serviço.", map[string]interface{}{"id": id})

	if _, err := uuid.Parse(id); err != nil {
		s.logger.Warn("ID de armazém inválido fornecido.", map[string]interface{}{"id": id, "error": err.Error()})
		return domain.Warehouse{}, apperror.NewValidationError("O ID do armazém deve ser um UUID válido.")
	}

	ctxGo, ok := ctx.(context.Context)
	if !ok {
		ctxGo = context.Background()
		s.logger.Warn("Contexto de domínio inválido, usando context.Background() para GetWarehouseByID", nil)
	}

	warehouse, err := s.repo.GetWarehouseByID(ctxGo, id)
	if err != nil {
		s.logger.Error("Falha ao buscar armazém no repositório.", err)
		return domain.Warehouse{}, err // Erros do repositório já são NotFoundError ou DBError
	}

	return warehouse, nil
}

// GetAllWarehouses busca todos os armazéns, em ordem estável de ID.
func (s *Service) GetAllWarehouses(ctx domain.Context) ([]domain.Warehouse, error) {
	s.logger.Debug("Iniciando busca de todos os armazéns no serviço.", nil)

	ctxGo, ok := ctx.(context.Context)
	if !ok {
		ctxGo = context.Background()
		s.logger.Warn("Contexto de domínio inválido, usando context.Background() para GetAllWarehouses", nil)
	}

	warehouses, err := s.repo.GetAllWarehouses(ctxGo)
	if err != nil {
		s.logger.Error("Falha ao buscar todos os armazéns no repositório.", err)
		return nil, apperror.NewInternalError("Falha interna ao buscar armazéns.", err)
	}

	return warehouses, nil
}

// UpdateWarehouse atualiza um armazém existente.
func (s *Service) UpdateWarehouse(ctx domain.Context, warehouse domain.Warehouse) (domain.Warehouse, error) {
	s.logger.Debug("Iniciando atualização de armazém no serviço.", map[string]interface{}{"id": warehouse.ID, "name": warehouse.Name})

	if _, err := uuid.Parse(warehouse.ID); err != nil {
		s.logger.Warn("ID de armazém inválido fornecido para atualização.", map[string]interface{}{"id": warehouse.ID, "error": err.Error()})
		return domain.Warehouse{}, apperror.NewValidationError("O ID do armazém deve ser um UUID válido.")
	}

	if err := s.validateWarehouse(warehouse); err != nil {
		s.logger.Warn("Falha na validação do armazém para atualização.", map[string]interface{}{"name": warehouse.Name, "error": err.Error()})
		return domain.Warehouse{}, err
	}

	ctxGo, ok := ctx.(context.Context)
	if !ok {
		ctxGo = context.Background()
		s.logger.Warn("Contexto de domínio inválido, usando context.Background() para UpdateWarehouse", nil)
	}

	// A capacidade não pode ficar abaixo do total já mantido pelo armazém.
	current, err := s.repo.GetWarehouseByID(ctxGo, warehouse.ID)
	if err != nil {
		s.logger.Error("Falha ao buscar armazém para atualização.", err)
		return domain.Warehouse{}, err
	}
	if warehouse.Capacity < current.TotalQuantity() {
		return domain.Warehouse{}, apperror.NewValidationError(
			"A capacidade não pode ser menor que o total de estoque já mantido pelo armazém.")
	}

	updatedWarehouse, err := s.repo.UpdateWarehouse(ctxGo, warehouse)
	if err != nil {
		s.logger.Error("Falha ao atualizar armazém no repositório.", err)
		return domain.Warehouse{}, err
	}

	s.logger.Info("Armazém atualizado com sucesso.", map[string]interface{}{"id": updatedWarehouse.ID, "name": updatedWarehouse.Name})
	return updatedWarehouse, nil
}

// DeleteWarehouse remove um armazém.
func (s *Service) DeleteWarehouse(ctx domain.Context, id string) error {
	s.logger.Debug("Iniciando exclusão de armazém no serviço.", map[string]interface{}{"id": id})

	if _, err := uuid.Parse(id); err != nil {
		s.logger.Warn("ID de armazém inválido fornecido para exclusão.", map[string]interface{}{"id": id, "error": err.Error()})
		return apperror.NewValidationError("O ID do armazém deve ser um UUID válido.")
	}

	ctxGo, ok := ctx.(context.Context)
	if !ok {
		ctxGo = context.Background()
		s.logger.Warn("Contexto de domínio inválido, usando context.Background() para DeleteWarehouse", nil)
	}

	err := s.repo.DeleteWarehouse(ctxGo, id)
	if err != nil {
		s.logger.Error("Falha ao deletar armazém no repositório.", err)
		return err
	}

	s.logger.Info("Armazém deletado com sucesso.", map[string]interface{}{"id": id})
	return nil
}

// NearestWarehouses lista os demais armazéns ordenados pela distância de
// círculo máximo até o armazém de origem, do mais próximo ao mais distante.
func (s *Service) NearestWarehouses(ctx domain.Context, sourceID string) ([]domain.WarehouseDistance, error) {
	s.logger.Debug("Iniciando listagem de armazéns por proximidade.", map[string]interface{}{"source_id": sourceID})

	if _, err := uuid.Parse(sourceID); err != nil {
		return nil, apperror.NewValidationError("O ID do armazém deve ser um UUID válido.")
	}

	ctxGo, ok := ctx.(context.Context)
	if !ok {
		ctxGo = context.Background()
		s.logger.Warn("Contexto de domínio inválido, usando context.Background() para NearestWarehouses", nil)
	}

	source, err := s.repo.GetWarehouseByID(ctxGo, sourceID)
	if err != nil {
		s.logger.Error("Falha ao buscar armazém de origem.", err)
		return nil, err
	}

	all, err := s.repo.GetAllWarehouses(ctxGo)
	if err != nil {
		s.logger.Error("Falha ao buscar armazéns para ordenação por distância.", err)
		return nil, apperror.NewInternalError("Falha interna ao buscar armazéns.", err)
	}

	distances := make([]domain.WarehouseDistance, 0, len(all))
	for _, w := range all {
		if w.ID == source.ID {
			continue
		}
		distances = append(distances, domain.WarehouseDistance{
			WarehouseID: w.ID,
			Name:        w.Name,
			Latitude:    w.Latitude,
			Longitude:   w.Longitude,
			Capacity:    w.Capacity,
			DistanceKm:  geo.Distance(source.Latitude, source.Longitude, w.Latitude, w.Longitude),
		})
	}

	// Empates de distância preservam a ordem estável de ID da listagem.
	sort.SliceStable(distances, func(i, j int) bool {
		return distances[i].DistanceKm < distances[j].DistanceKm
	})
	return distances, nil
}

// validateWarehouse valida os campos de cadastro de um armazém.
func (s *Service) validateWarehouse(warehouse domain.Warehouse) error {
	if strings.TrimSpace(warehouse.Name) == "" {
		return apperror.NewValidationError("O nome do armazém não pode ser vazio.")
	}
	if len(warehouse.Name) < 3 || len(warehouse.Name) > 100 {
		return apperror.NewValidationError("O nome do armazém deve ter entre 3 e 100 caracteres.")
	}
	if warehouse.Latitude < -90 || warehouse.Latitude > 90 {
		return apperror.NewValidationError("A latitude deve estar entre -90 e 90 graus.")
	}
	if warehouse.Longitude < -180 || warehouse.Longitude > 180 {
		return apperror.NewValidationError("A longitude deve estar entre -180 e 180 graus.")
	}
	if warehouse.Capacity < 0 {
		return apperror.NewValidationError("A capacidade do armazém não pode ser negativa.")
	}
	return nil
}
