package stockrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gobalance/internal/domain"
	"gobalance/internal/errors"
	"gobalance/internal/pkg/cache"
	"gobalance/internal/pkg/logger"
)

// StockRepository implementa as operações de persistência de estoques.
// As escritas usam controle de concorrência otimista (OCC): cada registro
// carrega uma versão, e a atualização só é aplicada se a versão esperada
// ainda for a corrente. Dois escritores concorrentes sobre o mesmo registro
// nunca intercalam leitura-modificação-escrita; o perdedor recebe
// ConflictError e o chamador decide se repete a operação inteira.
type StockRepository struct {
	DB        *sql.DB
	Cache     cache.Client
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewStockRepository cria e retorna uma nova instância do Repositório de Estoque.
func NewStockRepository(db *sql.DB, cacheClient cache.Client, dbTimeout time.Duration, logger logger.Logger) *StockRepository {
	return &StockRepository{
		DB:        db,
		Cache:     cacheClient,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// GetStock busca o estoque de um produto em um armazém (lookup por chave,
// nunca varredura: há no máximo um registro por par armazém/produto).
func (r *StockRepository) GetStock(ctx context.Context, warehouseID, productID string) (domain.Stock, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT id, warehouse_id, product_id, quantity, version, created_at, updated_at
        FROM stocks
        WHERE warehouse_id = $1 AND product_id = $2`

	var s domain.Stock
	err := r.DB.QueryRowContext(ctxTimeout, query, warehouseID, productID).Scan(
		&s.ID, &s.WarehouseID, &s.ProductID, &s.Quantity, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return domain.Stock{}, errors.NewNotFoundError(fmt.Sprintf("Estoque do produto %s no armazém %s não encontrado.", productID, warehouseID))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar estoque no DB.", err)
		return domain.Stock{}, errors.NewDBError("Falha ao buscar estoque", err)
	}
	return s, nil
}

// GetStockByID busca um registro de estoque pelo seu ID.
func (r *StockRepository) GetStockByID(ctx context.Context, id string) (domain.Stock, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT id, warehouse_id, product_id, quantity, version, created_at, updated_at
        FROM stocks
        WHERE id = $1`

	var s domain.Stock
	err := r.DB.QueryRowContext(ctxTimeout, query, id).Scan(
		&s.ID, &s.WarehouseID, &s.ProductID, &s.Quantity, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return domain.Stock{}, errors.NewNotFoundError(fmt.Sprintf("Estoque com ID %s não encontrado.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar estoque por ID no DB.", err)
		return domain.Stock{}, errors.NewDBError("Falha ao buscar estoque por ID", err)
	}
	return s, nil
}

// CreateStock insere um novo registro de estoque para um par armazém/produto.
// O índice único (warehouse_id, product_id) garante no nível do banco o
// invariante de no máximo um registro por par; uma corrida entre dois
// criadores vira ConflictError para o perdedor.
func (r *StockRepository) CreateStock(ctx context.Context, stock domain.Stock) (domain.Stock, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if stock.Quantity < 0 {
		return domain.Stock{}, errors.NewValidationError("Não é possível criar estoque com quantidade negativa.")
	}
	if stock.ID == "" {
		stock.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	stock.CreatedAt = now
	stock.UpdatedAt = now
	stock.Version = 1

	query := `
        INSERT INTO stocks (id, warehouse_id, product_id, quantity, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (warehouse_id, product_id) DO NOTHING
        RETURNING id, warehouse_id, product_id, quantity, version, created_at, updated_at`

	err := r.DB.QueryRowContext(ctxTimeout, query,
		stock.ID, stock.WarehouseID, stock.ProductID, stock.Quantity, stock.Version,
		stock.CreatedAt, stock.UpdatedAt,
	).Scan(
		&stock.ID, &stock.WarehouseID, &stock.ProductID, &stock.Quantity, &stock.Version,
		&stock.CreatedAt, &stock.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		// ON CONFLICT DO NOTHING não retorna linha: outro escritor criou o registro antes.
		return domain.Stock{}, errors.NewConflictError(fmt.Sprintf("Estoque do produto %s no armazém %s já existe. Tente novamente.", stock.ProductID, stock.WarehouseID))
	}
	if err != nil {
		r.logger.Error("Falha ao inserir estoque no DB.", err)
		return domain.Stock{}, errors.NewDBError("Falha ao criar estoque", err)
	}

	r.invalidateWarehouse(ctxTimeout, stock.WarehouseID)
	r.logger.Info("Estoque criado com sucesso.", map[string]interface{}{
		"id": stock.ID, "warehouse_id": stock.WarehouseID, "product_id": stock.ProductID, "quantity": stock.Quantity,
	})
	return stock, nil
}

// UpdateStockQuantity define a nova quantidade de um registro de estoque,
// condicionada à versão esperada (OCC). Retorna ConflictError se o registro
// foi modificado por outra operação entre a leitura e esta escrita.
func (r *StockRepository) UpdateStockQuantity(ctx context.Context, id string, quantity, expectedVersion int) (domain.Stock, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if quantity < 0 {
		return domain.Stock{}, errors.NewValidationError("A quantidade de estoque não pode ser negativa.")
	}

	query := `
        UPDATE stocks
        SET quantity = $1, version = version + 1, updated_at = $2
        WHERE id = $3 AND version = $4
        RETURNING id, warehouse_id, product_id, quantity, version, created_at, updated_at`

	var s domain.Stock
	err := r.DB.QueryRowContext(ctxTimeout, query,
		quantity, time.Now().UTC(), id, expectedVersion,
	).Scan(
		&s.ID, &s.WarehouseID, &s.ProductID, &s.Quantity, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		// Registro inexistente ou versão desatualizada: distinguir os dois casos.
		var exists bool
		checkErr := r.DB.QueryRowContext(ctxTimeout, `SELECT EXISTS(SELECT 1 FROM stocks WHERE id = $1)`, id).Scan(&exists)
		if checkErr != nil {
			return domain.Stock{}, errors.NewDBError("Falha ao verificar existência do estoque", checkErr)
		}
		if !exists {
			return domain.Stock{}, errors.NewNotFoundError(fmt.Sprintf("Estoque com ID %s não encontrado para atualização.", id))
		}
		r.logger.Warn("Falha no controle de concorrência otimista (OCC). Versão desatualizada.", map[string]interface{}{
			"id": id, "expected_version": expectedVersion,
		})
		return domain.Stock{}, errors.NewConflictError("O estoque foi modificado por outra operação. Tente novamente.")
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar quantidade de estoque.", err)
		return domain.Stock{}, errors.NewDBError("Falha ao atualizar estoque", err)
	}

	r.invalidateWarehouse(ctxTimeout, s.WarehouseID)
	r.logger.Debug("Quantidade de estoque atualizada.", map[string]interface{}{
		"id": s.ID, "new_quantity": s.Quantity, "new_version": s.Version,
	})
	return s, nil
}

// invalidateWarehouse remove do cache o armazém dono do estoque: o total
// mantido mudou e uma leitura cacheada poderia passar numa checagem de
// capacidade que o estado real reprova.
func (r *StockRepository) invalidateWarehouse(ctx context.Context, warehouseID string) {
	key := fmt.Sprintf("warehouse:%s", warehouseID)
	if err := r.Cache.Delete(ctx, key); err != nil {
		r.logger.Warn("Falha ao invalidar cache do armazém do estoque.", map[string]interface{}{"warehouse_id": warehouseID, "error": err.Error()})
	}
}
