package balanceservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"gobalance/internal/domain"
	apperror "gobalance/internal/errors"
	"gobalance/internal/pkg/geo"
	"gobalance/internal/pkg/logger"
)

// WarehouseRepository define o contrato que o Serviço de Balanceamento espera
// da camada de Persistência de armazéns. As leituras incluem os estoques do
// armazém, para que o total mantido possa ser comparado com a capacidade.
type WarehouseRepository interface {
	GetWarehouseByID(ctx context.Context, id string) (domain.Warehouse, error)
	GetAllWarehouses(ctx context.Context) ([]domain.Warehouse, error)
}

// StockRepository define o contrato de leitura/escrita de estoques.
// UpdateStockQuantity é condicionado à versão lida (concorrência otimista);
// o serviço repete a operação inteira quando a escrita perde a corrida.
type StockRepository interface {
	GetStock(ctx context.Context, warehouseID, productID string) (domain.Stock, error)
	CreateStock(ctx context.Context, stock domain.Stock) (domain.Stock, error)
	UpdateStockQuantity(ctx context.Context, id string, quantity, expectedVersion int) (domain.Stock, error)
}

// Número máximo de tentativas de uma operação diante de conflitos OCC.
const maxAttempts = 3

// Service implementa as operações de balanceamento e distribuição de estoque:
// transferência ponto a ponto, redistribuição automática e distribuição
// ponderada pelo armazém mais próximo.
//
// Invariante de conservação: toda operação move unidades entre armazéns,
// nunca cria nem destrói. Invariante de capacidade: toda checagem compara o
// total projetado do armazém (todos os produtos) com sua capacidade, e roda
// para todos os destinos antes de qualquer escrita.
type Service struct {
	warehouseRepo WarehouseRepository
	stockRepo     StockRepository
	logger        logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Balanceamento.
func NewService(warehouseRepo WarehouseRepository, stockRepo StockRepository, logger logger.Logger) *Service {
	return &Service{warehouseRepo: warehouseRepo, stockRepo: stockRepo, logger: logger}
}

// DistanceBetween retorna a distância de círculo máximo, em quilômetros,
// entre duas coordenadas em graus decimais.
func (s *Service) DistanceBetween(lat1, lon1, lat2, lon2 float64) float64 {
	return geo.Distance(lat1, lon1, lat2, lon2)
}

// Balance transfere uma quantidade fixa de um produto entre dois armazéns
// nomeados, com checagem de capacidade no destino.
func (s *Service) Balance(ctx domain.Context, req domain.BalanceStockRequest) error {
	if req.Quantity <= 0 {
		return apperror.NewValidationError("A quantidade a transferir deve ser maior que zero.")
	}
	if err := validateUUIDs(req.SourceWarehouseID, req.TargetWarehouseID, req.ProductID); err != nil {
		return err
	}
	if req.SourceWarehouseID == req.TargetWarehouseID {
		return apperror.NewValidationError("Os armazéns de origem e destino devem ser diferentes.")
	}

	ctxGo := toGoContext(ctx, s.logger, "Balance")

	return s.withRetry(ctxGo, "Balance", func(c context.Context) (bool, error) {
		return s.balance(c, req)
	})
}

func (s *Service) balance(ctx context.Context, req domain.BalanceStockRequest) (committed bool, err error) {
	sourceWarehouse, err := s.warehouseRepo.GetWarehouseByID(ctx, req.SourceWarehouseID)
	if err != nil {
		return false, err
	}
	targetWarehouse, err := s.warehouseRepo.GetWarehouseByID(ctx, req.TargetWarehouseID)
	if err != nil {
		return false, err
	}

	sourceStock, err := s.stockRepo.GetStock(ctx, req.SourceWarehouseID, req.ProductID)
	if err != nil {
		var notFound *apperror.NotFoundError
		if errors.As(err, &notFound) {
			return false, apperror.NewInsufficientStockError(
				fmt.Sprintf("O armazém %s não possui estoque do produto %s.", sourceWarehouse.Name, req.ProductID))
		}
		return false, err
	}
	if sourceStock.Quantity < req.Quantity {
		return false, apperror.NewInsufficientStockError(
			fmt.Sprintf("O armazém %s possui %d unidades do produto %s; %d solicitadas.",
				sourceWarehouse.Name, sourceStock.Quantity, req.ProductID, req.Quantity))
	}

	// Checagem de capacidade contra o total projetado do destino, antes de
	// qualquer escrita.
	if targetWarehouse.TotalQuantity()+req.Quantity > targetWarehouse.Capacity {
		return false, apperror.NewCapacityExceededError(targetWarehouse.Name,
			fmt.Sprintf("total atual %d + %d excede a capacidade %d.",
				targetWarehouse.TotalQuantity(), req.Quantity, targetWarehouse.Capacity))
	}

	// Escritas: decremento na origem, depois incremento/criação no destino.
	if _, err := s.stockRepo.UpdateStockQuantity(ctx, sourceStock.ID, sourceStock.Quantity-req.Quantity, sourceStock.Version); err != nil {
		return false, err
	}
	committed = true
	if err := s.addToWarehouse(ctx, targetWarehouse, req.ProductID, req.Quantity); err != nil {
		return true, err
	}

	s.logger.Info("Transferência concluída.", map[string]interface{}{
		"source_warehouse_id": req.SourceWarehouseID,
		"target_warehouse_id": req.TargetWarehouseID,
		"product_id":          req.ProductID,
		"quantity":            req.Quantity,
	})
	return true, nil
}

// AutoBalance redistribui todo o estoque do produto no armazém de origem,
// em partes iguais, entre todos os demais armazéns.
//
// Política de resto: o resto da divisão inteira é somado ao PRIMEIRO armazém
// de destino na ordem estável de ID. A origem é sempre drenada da quantidade
// total, preservando a conservação.
func (s *Service) AutoBalance(ctx domain.Context, req domain.AutoBalanceRequest) error {
	if err := validateUUIDs(req.SourceWarehouseID, req.ProductID); err != nil {
		return err
	}

	ctxGo := toGoContext(ctx, s.logger, "AutoBalance")

	return s.withRetry(ctxGo, "AutoBalance", func(c context.Context) (bool, error) {
		return s.autoBalance(c, req)
	})
}

func (s *Service) autoBalance(ctx context.Context, req domain.AutoBalanceRequest) (committed bool, err error) {
	sourceWarehouse, others, err := s.loadSourceAndTargets(ctx, req.SourceWarehouseID)
	if err != nil {
		return false, err
	}
	if len(others) == 0 {
		return false, apperror.NewNoEligibleTargetError("não há outros armazéns para receber a redistribuição.")
	}

	sourceStock, ok := sourceWarehouse.StockOf(req.ProductID)
	if !ok || sourceStock.Quantity <= 0 {
		return false, apperror.NewInsufficientStockError(
			fmt.Sprintf("O armazém %s não possui estoque do produto %s para redistribuir.", sourceWarehouse.Name, req.ProductID))
	}

	totalQuantity := sourceStock.Quantity
	base := totalQuantity / len(others)
	remainder := totalQuantity % len(others)

	additions := make([]int, len(others))
	for i := range others {
		additions[i] = base
	}
	additions[0] += remainder

	// Todas as checagens de capacidade antes de qualquer escrita: uma falha
	// no meio da distribuição não pode deixar estado parcial visível.
	for i, target := range others {
		if target.TotalQuantity()+additions[i] > target.Capacity {
			return false, apperror.NewCapacityExceededError(target.Name,
				fmt.Sprintf("total atual %d + %d excede a capacidade %d.",
					target.TotalQuantity(), additions[i], target.Capacity))
		}
	}

	for i, target := range others {
		if additions[i] == 0 {
			continue
		}
		if err := s.addToWarehouse(ctx, target, req.ProductID, additions[i]); err != nil {
			return committed, err
		}
		committed = true
	}

	// A origem é decrementada pela quantidade total redistribuída (zero restante).
	if _, err := s.stockRepo.UpdateStockQuantity(ctx, sourceStock.ID, 0, sourceStock.Version); err != nil {
		return committed, err
	}

	s.logger.Info("Redistribuição automática concluída.", map[string]interface{}{
		"source_warehouse_id": req.SourceWarehouseID,
		"product_id":          req.ProductID,
		"total_quantity":      totalQuantity,
		"targets":             len(others),
	})
	return true, nil
}

// Distribute transfere parte do estoque da origem ponderando o armazém
// geograficamente mais próximo: nearbyQty = floor(quantity * pct / 100) vai
// para o mais próximo e o restante é dividido igualmente entre os demais.
//
// Empate de distância: os armazéns são percorridos em ordem estável de ID e
// só uma distância estritamente menor desloca o mais próximo corrente, então
// o menor ID vence. Quando nearbyQty é zero o mais próximo não foi creditado
// e participa normalmente da divisão igual do restante.
func (s *Service) Distribute(ctx domain.Context, req domain.DistributeStockRequest) error {
	if req.Quantity <= 0 {
		return apperror.NewValidationError("A quantidade a distribuir deve ser maior que zero.")
	}
	if req.NearestWarehousePercentage < 0 || req.NearestWarehousePercentage > 100 {
		return apperror.NewValidationError("O percentual do armazém mais próximo deve estar entre 0 e 100.")
	}
	if err := validateUUIDs(req.SourceWarehouseID, req.ProductID); err != nil {
		return err
	}

	ctxGo := toGoContext(ctx, s.logger, "Distribute")

	return s.withRetry(ctxGo, "Distribute", func(c context.Context) (bool, error) {
		return s.distribute(c, req)
	})
}

func (s *Service) distribute(ctx context.Context, req domain.DistributeStockRequest) (committed bool, err error) {
	sourceWarehouse, others, err := s.loadSourceAndTargets(ctx, req.SourceWarehouseID)
	if err != nil {
		return false, err
	}
	if len(others) == 0 {
		return false, apperror.NewNoEligibleTargetError("não há outros armazéns para receber a distribuição.")
	}

	sourceStock, ok := sourceWarehouse.StockOf(req.ProductID)
	if !ok || sourceStock.Quantity < req.Quantity {
		held := 0
		if ok {
			held = sourceStock.Quantity
		}
		return false, apperror.NewInsufficientStockError(
			fmt.Sprintf("O armazém %s possui %d unidades do produto %s; %d solicitadas.",
				sourceWarehouse.Name, held, req.ProductID, req.Quantity))
	}

	// Passo 1: armazém mais próximo da origem (haversine como chave de comparação).
	nearestIdx := 0
	nearestDist := geo.Distance(sourceWarehouse.Latitude, sourceWarehouse.Longitude, others[0].Latitude, others[0].Longitude)
	for i := 1; i < len(others); i++ {
		d := geo.Distance(sourceWarehouse.Latitude, sourceWarehouse.Longitude, others[i].Latitude, others[i].Longitude)
		if d < nearestDist {
			nearestDist = d
			nearestIdx = i
		}
	}

	// Passo 2: volumes.
	nearbyQty := int(float64(req.Quantity) * req.NearestWarehousePercentage / 100)
	remainingQty := req.Quantity - nearbyQty

	// Passos 3 e 4: alocações por destino. O mais próximo só é excluído da
	// divisão igual quando de fato recebeu a parcela "nearby".
	additions := make([]int, len(others))
	additions[nearestIdx] = nearbyQty

	if remainingQty > 0 {
		var eligible []int
		for i := range others {
			if nearbyQty > 0 && i == nearestIdx {
				continue
			}
			eligible = append(eligible, i)
		}
		if len(eligible) == 0 {
			return false, apperror.NewNoEligibleTargetError("não resta armazém para receber o restante da distribuição.")
		}

		per := remainingQty / len(eligible)
		rem := remainingQty % len(eligible)
		for _, i := range eligible {
			additions[i] += per
		}
		// Política de resto: primeiro destino elegível na ordem estável de ID.
		additions[eligible[0]] += rem
	}

	// Todas as checagens de capacidade antes de qualquer escrita.
	for i, target := range others {
		if target.TotalQuantity()+additions[i] > target.Capacity {
			return false, apperror.NewCapacityExceededError(target.Name,
				fmt.Sprintf("total atual %d + %d excede a capacidade %d.",
					target.TotalQuantity(), additions[i], target.Capacity))
		}
	}

	for i, target := range others {
		if additions[i] == 0 {
			continue
		}
		if err := s.addToWarehouse(ctx, target, req.ProductID, additions[i]); err != nil {
			return committed, err
		}
		committed = true
	}

	// Passo 5: decrementar a origem pela quantidade total alocada.
	if _, err := s.stockRepo.UpdateStockQuantity(ctx, sourceStock.ID, sourceStock.Quantity-req.Quantity, sourceStock.Version); err != nil {
		return committed, err
	}

	s.logger.Info("Distribuição por proximidade concluída.", map[string]interface{}{
		"source_warehouse_id":  req.SourceWarehouseID,
		"nearest_warehouse_id": others[nearestIdx].ID,
		"product_id":           req.ProductID,
		"quantity":             req.Quantity,
		"nearby_quantity":      nearbyQty,
	})
	return true, nil
}

// addToWarehouse aplica a regra find-or-create por par (armazém, produto):
// incrementa o registro existente ou cria um novo com a quantidade movida.
func (s *Service) addToWarehouse(ctx context.Context, warehouse domain.Warehouse, productID string, quantity int) error {
	if stock, ok := warehouse.StockOf(productID); ok {
		_, err := s.stockRepo.UpdateStockQuantity(ctx, stock.ID, stock.Quantity+quantity, stock.Version)
		return err
	}
	_, err := s.stockRepo.CreateStock(ctx, domain.Stock{
		WarehouseID: warehouse.ID,
		ProductID:   productID,
		Quantity:    quantity,
	})
	return err
}

// loadSourceAndTargets carrega o armazém de origem e os demais armazéns na
// ordem estável de ID do repositório.
func (s *Service) loadSourceAndTargets(ctx context.Context, sourceWarehouseID string) (domain.Warehouse, []domain.Warehouse, error) {
	all, err := s.warehouseRepo.GetAllWarehouses(ctx)
	if err != nil {
		return domain.Warehouse{}, nil, err
	}

	var source domain.Warehouse
	found := false
	others := make([]domain.Warehouse, 0, len(all))
	for _, w := range all {
		if w.ID == sourceWarehouseID {
			source = w
			found = true
			continue
		}
		others = append(others, w)
	}
	if !found {
		return domain.Warehouse{}, nil, apperror.NewNotFoundError(fmt.Sprintf("Armazém com ID %s não encontrado.", sourceWarehouseID))
	}
	return source, others, nil
}

// withRetry repete a operação inteira diante de conflitos de concorrência
// otimista, desde que nenhuma escrita da tentativa tenha sido confirmada:
// repetir após uma escrita parcial aplicaria o movimento duas vezes. Um
// conflito tardio é devolvido ao chamador como ConflictError. Cada nova
// tentativa relê o estado corrente; nenhum outro tipo de erro é repetido.
func (s *Service) withRetry(ctx context.Context, op string, fn func(context.Context) (bool, error)) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var committed bool
		committed, err = fn(ctx)
		var conflict *apperror.ConflictError
		if err == nil || !errors.As(err, &conflict) || committed {
			return err
		}
		s.logger.Warn("Conflito de concorrência; repetindo a operação.", map[string]interface{}{
			"operation": op,
			"attempt":   attempt,
		})
	}
	return err
}

// validateUUIDs valida o formato de cada identificador informado.
func validateUUIDs(ids ...string) error {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return apperror.NewValidationError(fmt.Sprintf("O identificador %q deve ser um UUID válido.", id))
		}
	}
	return nil
}

// toGoContext converte o domain.Context recebido pelas camadas superiores
// para o context.Context do Go, como nos demais serviços.
func toGoContext(ctx domain.Context, log logger.Logger, op string) context.Context {
	ctxGo, ok := ctx.(context.Context)
	if !ok {
		ctxGo = context.Background()
		log.Warn("Contexto de domínio inválido, usando context.Background()", map[string]interface{}{"operation": op})
	}
	return ctxGo
}
