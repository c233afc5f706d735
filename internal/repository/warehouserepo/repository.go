package warehouserepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gobalance/internal/domain"
	"gobalance/internal/errors"
	"gobalance/internal/pkg/cache"
	"gobalance/internal/pkg/logger"
)

// Chave de cache para armazéns (estratégia Cache-Aside).
const warehouseCacheKey = "warehouse:%s"

// Tempo de expiração do cache de armazéns.
const warehouseCacheTTL = 30 * time.Second

// WarehouseRepository implementa as operações de persistência de armazéns.
// Toda leitura de armazém carrega também seus registros de estoque, para que
// os serviços possam computar o total mantido contra a capacidade.
type WarehouseRepository struct {
	DB        *sql.DB
	Cache     cache.Client
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewWarehouseRepository cria e retorna uma nova instância do Repositório de Armazéns.
func NewWarehouseRepository(db *sql.DB, cacheClient cache.Client, dbTimeout time.Duration, logger logger.Logger) *WarehouseRepository {
	return &WarehouseRepository{
		DB:        db,
		Cache:     cacheClient,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// CreateWarehouse insere um novo armazém no banco de dados.
func (r *WarehouseRepository) CreateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if warehouse.ID == "" {
		warehouse.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	warehouse.CreatedAt = now
	warehouse.UpdatedAt = now

	query := `
        INSERT INTO warehouses (id, name, latitude, longitude, capacity, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, name, latitude, longitude, capacity, created_at, updated_at`

	err := r.DB.QueryRowContext(ctxTimeout, query,
		warehouse.ID, warehouse.Name, warehouse.Latitude, warehouse.Longitude,
		warehouse.Capacity, warehouse.CreatedAt, warehouse.UpdatedAt,
	).Scan(
		&warehouse.ID, &warehouse.Name, &warehouse.Latitude, &warehouse.Longitude,
		&warehouse.Capacity, &warehouse.CreatedAt, &warehouse.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Falha ao inserir armazém no DB.", err)
		return domain.Warehouse{}, errors.NewDBError("Falha ao criar armazém", err)
	}

	r.logger.Info("Armazém criado com sucesso.", map[string]interface{}{"id": warehouse.ID, "name": warehouse.Name})
	return warehouse, nil
}

// GetWarehouseByID busca um armazém pelo ID, incluindo seus estoques.
// Usa a estratégia Cache-Aside: tenta o Redis antes do PostgreSQL.
func (r *WarehouseRepository) GetWarehouseByID(ctx context.Context, id string) (domain.Warehouse, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	key := fmt.Sprintf(warehouseCacheKey, id)
	var warehouse domain.Warehouse

	// 1. Tentar obter do Cache (Redis)
	if cached, err := r.Cache.Get(ctxTimeout, key); err == nil {
		if json.Unmarshal([]byte(cached), &warehouse) == nil {
			r.logger.Debug("Cache HIT para armazém.", map[string]interface{}{"id": id})
			return warehouse, nil
		}
	}

	// 2. Cache MISS: buscar no DB
	query := `
        SELECT id, name, latitude, longitude, capacity, created_at, updated_at
        FROM warehouses
        WHERE id = $1`

	err := r.DB.QueryRowContext(ctxTimeout, query, id).Scan(
		&warehouse.ID, &warehouse.Name, &warehouse.Latitude, &warehouse.Longitude,
		&warehouse.Capacity, &warehouse.CreatedAt, &warehouse.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return domain.Warehouse{}, errors.NewNotFoundError(fmt.Sprintf("Armazém com ID %s não encontrado.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar armazém no DB.", err)
		return domain.Warehouse{}, errors.NewDBError("Falha ao buscar armazém", err)
	}

	stocks, err := r.loadStocks(ctxTimeout, id)
	if err != nil {
		return domain.Warehouse{}, err
	}
	warehouse.Stocks = stocks

	// 3. Popular o cache para as próximas leituras (falha de cache não é fatal)
	if data, jsonErr := json.Marshal(warehouse); jsonErr == nil {
		if cacheErr := r.Cache.Set(ctxTimeout, key, string(data), warehouseCacheTTL); cacheErr != nil {
			r.logger.Warn("Falha ao popular cache de armazém.", map[string]interface{}{"id": id, "error": cacheErr.Error()})
		}
	}

	return warehouse, nil
}

// GetAllWarehouses busca todos os armazéns com seus estoques, em ordem
// estável de ID. Os distribuidores dependem dessa ordem para desempate do
// armazém mais próximo e para a política de resto.
func (r *WarehouseRepository) GetAllWarehouses(ctx context.Context) ([]domain.Warehouse, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT id, name, latitude, longitude, capacity, created_at, updated_at
        FROM warehouses
        ORDER BY id`

	rows, err := r.DB.QueryContext(ctxTimeout, query)
	if err != nil {
		r.logger.Error("Falha ao executar GetAllWarehouses query.", err)
		return nil, errors.NewDBError("Falha ao buscar todos os armazéns", err)
	}
	defer rows.Close()

	var warehouses []domain.Warehouse
	for rows.Next() {
		var warehouse domain.Warehouse
		err := rows.Scan(
			&warehouse.ID, &warehouse.Name, &warehouse.Latitude, &warehouse.Longitude,
			&warehouse.Capacity, &warehouse.CreatedAt, &warehouse.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Falha ao mapear armazém na iteração de GetAllWarehouses.", err)
			return nil, errors.NewDBError("Falha ao mapear armazéns do DB", err)
		}
		warehouses = append(warehouses, warehouse)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de armazéns", err)
	}

	for i := range warehouses {
		stocks, err := r.loadStocks(ctxTimeout, warehouses[i].ID)
		if err != nil {
			return nil, err
		}
		warehouses[i].Stocks = stocks
	}

	r.logger.Debug("GetAllWarehouses concluído.", map[string]interface{}{"total_warehouses": len(warehouses)})
	return warehouses, nil
}

// UpdateWarehouse atualiza um armazém existente e invalida o cache.
func (r *WarehouseRepository) UpdateWarehouse(ctx context.Context, warehouse domain.Warehouse) (domain.Warehouse, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	warehouse.UpdatedAt = time.Now().UTC()

	query := `
        UPDATE warehouses
        SET name = $1, latitude = $2, longitude = $3, capacity = $4, updated_at = $5
        WHERE id = $6
        RETURNING id, name, latitude, longitude, capacity, created_at, updated_at`

	err := r.DB.QueryRowContext(ctxTimeout, query,
		warehouse.Name, warehouse.Latitude, warehouse.Longitude, warehouse.Capacity,
		warehouse.UpdatedAt, warehouse.ID,
	).Scan(
		&warehouse.ID, &warehouse.Name, &warehouse.Latitude, &warehouse.Longitude,
		&warehouse.Capacity, &warehouse.CreatedAt, &warehouse.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return domain.Warehouse{}, errors.NewNotFoundError(fmt.Sprintf("Armazém com ID %s não encontrado para atualização.", warehouse.ID))
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar armazém no DB.", err)
		return domain.Warehouse{}, errors.NewDBError("Falha ao atualizar armazém", err)
	}

	r.invalidate(ctxTimeout, warehouse.ID)
	r.logger.Info("Armazém atualizado com sucesso.", map[string]interface{}{"id": warehouse.ID, "name": warehouse.Name})
	return warehouse, nil
}

// DeleteWarehouse remove um armazém pelo ID e invalida o cache.
func (r *WarehouseRepository) DeleteWarehouse(ctx context.Context, id string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        DELETE FROM warehouses
        WHERE id = $1`

	result, err := r.DB.ExecContext(ctxTimeout, query, id)
	if err != nil {
		r.logger.Error("Falha ao deletar armazém do DB.", err)
		return errors.NewDBError("Falha ao deletar armazém", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewDBError("Falha ao verificar linhas afetadas", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("Armazém com ID %s não encontrado para exclusão.", id))
	}

	r.invalidate(ctxTimeout, id)
	r.logger.Info("Armazém deletado com sucesso.", map[string]interface{}{"id": id})
	return nil
}

// loadStocks carrega os registros de estoque de um armazém.
func (r *WarehouseRepository) loadStocks(ctx context.Context, warehouseID string) ([]domain.Stock, error) {
	query := `
        SELECT id, warehouse_id, product_id, quantity, version, created_at, updated_at
        FROM stocks
        WHERE warehouse_id = $1
        ORDER BY product_id`

	rows, err := r.DB.QueryContext(ctx, query, warehouseID)
	if err != nil {
		r.logger.Error("Falha ao buscar estoques do armazém.", err)
		return nil, errors.NewDBError("Falha ao buscar estoques do armazém", err)
	}
	defer rows.Close()

	var stocks []domain.Stock
	for rows.Next() {
		var s domain.Stock
		err := rows.Scan(&s.ID, &s.WarehouseID, &s.ProductID, &s.Quantity, &s.Version, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, errors.NewDBError("Falha ao mapear estoques do DB", err)
		}
		stocks = append(stocks, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("Erro após iteração de estoques", err)
	}
	return stocks, nil
}

// invalidate remove a entrada de cache de um armazém após uma escrita.
func (r *WarehouseRepository) invalidate(ctx context.Context, id string) {
	key := fmt.Sprintf(warehouseCacheKey, id)
	if err := r.Cache.Delete(ctx, key); err != nil {
		r.logger.Warn("Falha ao invalidar cache de armazém.", map[string]interface{}{"id": id, "error": err.Error()})
	}
}
