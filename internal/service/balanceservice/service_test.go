package balanceservice_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gobalance/internal/domain"
	apperror "gobalance/internal/errors"
	"gobalance/internal/pkg/logger"
	"gobalance/internal/service/balanceservice"
)

// IDs fixos em ordem lexicográfica: a ordem estável de iteração dos testes
// (e do repositório real, ORDER BY id) é w1 < w2 < w3 < w4.
const (
	w1ID = "11111111-1111-1111-1111-111111111111"
	w2ID = "22222222-2222-2222-2222-222222222222"
	w3ID = "33333333-3333-3333-3333-333333333333"
	w4ID = "44444444-4444-4444-4444-444444444444"
	p1ID = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	p2ID = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
)

// memStore é um repositório em memória que implementa WarehouseRepository e
// StockRepository com a mesma semântica do repositório real: listagem em
// ordem estável de ID, unicidade por par (armazém, produto) e atualização
// condicionada à versão (OCC).
type memStore struct {
	warehouses map[string]domain.Warehouse
	stocks     map[string]*domain.Stock

	// conflictsLeft injeta conflitos OCC nas próximas escritas, sem aplicá-las.
	conflictsLeft int
	updateCalls   int
}

func newMemStore() *memStore {
	return &memStore{
		warehouses: make(map[string]domain.Warehouse),
		stocks:     make(map[string]*domain.Stock),
	}
}

func (m *memStore) addWarehouse(id, name string, lat, lon float64, capacity int) {
	m.warehouses[id] = domain.Warehouse{
		ID: id, Name: name, Latitude: lat, Longitude: lon, Capacity: capacity,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
}

func (m *memStore) addStock(warehouseID, productID string, quantity int) string {
	id := uuid.New().String()
	m.stocks[id] = &domain.Stock{
		ID: id, WarehouseID: warehouseID, ProductID: productID,
		Quantity: quantity, Version: 1,
	}
	return id
}

func (m *memStore) quantity(warehouseID, productID string) int {
	for _, s := range m.stocks {
		if s.WarehouseID == warehouseID && s.ProductID == productID {
			return s.Quantity
		}
	}
	return 0
}

func (m *memStore) records(warehouseID, productID string) int {
	count := 0
	for _, s := range m.stocks {
		if s.WarehouseID == warehouseID && s.ProductID == productID {
			count++
		}
	}
	return count
}

func (m *memStore) totalOf(productID string) int {
	total := 0
	for _, s := range m.stocks {
		if s.ProductID == productID {
			total += s.Quantity
		}
	}
	return total
}

func (m *memStore) GetWarehouseByID(_ context.Context, id string) (domain.Warehouse, error) {
	w, ok := m.warehouses[id]
	if !ok {
		return domain.Warehouse{}, apperror.NewNotFoundError("Armazém com ID " + id + " não encontrado.")
	}
	w.Stocks = m.stocksOf(id)
	return w, nil
}

func (m *memStore) GetAllWarehouses(_ context.Context) ([]domain.Warehouse, error) {
	ids := make([]string, 0, len(m.warehouses))
	for id := range m.warehouses {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := make([]domain.Warehouse, 0, len(ids))
	for _, id := range ids {
		w := m.warehouses[id]
		w.Stocks = m.stocksOf(id)
		result = append(result, w)
	}
	return result, nil
}

func (m *memStore) stocksOf(warehouseID string) []domain.Stock {
	var stocks []domain.Stock
	for _, s := range m.stocks {
		if s.WarehouseID == warehouseID {
			stocks = append(stocks, *s)
		}
	}
	sort.Slice(stocks, func(i, j int) bool { return stocks[i].ProductID < stocks[j].ProductID })
	return stocks
}

func (m *memStore) GetStock(_ context.Context, warehouseID, productID string) (domain.Stock, error) {
	for _, s := range m.stocks {
		if s.WarehouseID == warehouseID && s.ProductID == productID {
			return *s, nil
		}
	}
	return domain.Stock{}, apperror.NewNotFoundError("Estoque não encontrado.")
}

func (m *memStore) CreateStock(_ context.Context, stock domain.Stock) (domain.Stock, error) {
	for _, s := range m.stocks {
		if s.WarehouseID == stock.WarehouseID && s.ProductID == stock.ProductID {
			return domain.Stock{}, apperror.NewConflictError("Estoque já existe. Tente novamente.")
		}
	}
	stock.ID = uuid.New().String()
	stock.Version = 1
	m.stocks[stock.ID] = &stock
	return stock, nil
}

func (m *memStore) UpdateStockQuantity(_ context.Context, id string, quantity, expectedVersion int) (domain.Stock, error) {
	m.updateCalls++
	if m.conflictsLeft > 0 {
		m.conflictsLeft--
		return domain.Stock{}, apperror.NewConflictError("O estoque foi modificado por outra operação. Tente novamente.")
	}

	s, ok := m.stocks[id]
	if !ok {
		return domain.Stock{}, apperror.NewNotFoundError("Estoque com ID " + id + " não encontrado.")
	}
	if s.Version != expectedVersion {
		return domain.Stock{}, apperror.NewConflictError("O estoque foi modificado por outra operação. Tente novamente.")
	}
	s.Quantity = quantity
	s.Version++
	return *s, nil
}

func newService(store *memStore) *balanceservice.Service {
	return balanceservice.NewService(store, store, logger.NewLogger("error"))
}

// --- Balance ---

func TestBalance_Success_MovesQuantity(t *testing.T) {
	store := newMemStore()
	store.addWarehouse(w1ID, "Central", -23.55, -46.63, 100)
	store.addWarehouse(w2ID, "Campinas", -22.90, -47.06, 100)
	store.addStock(w1ID, p1ID, 50)

	svc := newService(store)
	err := svc.Balance(context.Background(), domain.BalanceStockRequest{
		SourceWarehouseID: w1ID, TargetWarehouseID: w2ID, ProductID: p1ID, Quantity: 30,
	})

	require.NoError(t, err)
	assert.Equal(t, 20, store.quantity(w1ID, p1ID))
	assert.Equal(t, 30, store.quantity(w2ID, p1ID))
	assert.Equal(t, 50, store.totalOf(p1ID), "a transferência deve conservar o total do produto")
}

func TestBalance_RoundTrip_RestoresOriginal(t *testing.T) {
	store := newMemStore()
	store.addWarehouse(w1ID, "Central", -23.55, -46.63, 100)
	store.addWarehouse(w2ID, "Campinas", -22.90, -47.06, 100)
	store.addStock(w1ID, p1ID, 50)
	store.addStock(w2ID, p1ID, 10)

	svc := newService(store)
	ctx := context.Background()

	require.NoError(t, svc.Balance(ctx, domain.BalanceStockRequest{
		SourceWarehouseID: w1ID, TargetWarehouseID: w2ID, ProductID: p1ID, Quantity: 25,
	}))
	require.NoError(t, svc.Balance(ctx, domain.BalanceStockRequest{
		SourceWarehouseID: w2ID, TargetWarehouseID: w1ID, ProductID: p1ID, Quantity: 25,
	}))

	assert.Equal(t, 50, store.quantity(w1ID, p1ID))
	assert.Equal(t, 10, store.quantity(w2ID, p1ID))
}

func TestBalance_SecondTransferFails_InsufficientStock(t *testing.T) {
	store := newMemStore()
	store.addWarehouse(w1ID, "Central", -23.55, -46.63, 100)
	store.addWarehouse(w2ID, "Campinas", -22.90, -47.06, 100)
	store.addStock(w1ID, p1ID, 50)

	svc := newService(store)
	ctx := context.Background()

	require.NoError(t, svc.Balance(ctx, domain.BalanceStockRequest{
		SourceWarehouseID: w1ID, TargetWarehouseID: w2ID, ProductID: p1ID, Quantity: 30,
	}))

	err := svc.Balance(ctx, domain.BalanceStockRequest{
		SourceWarehouseID: w1ID, TargetWarehouseID: w2ID, ProductID: p1ID, Quantity: 30,
	})

	assert.IsType(t, &apperror.InsufficientStockError{}, err)
	assert.Equal(t, 20, store.quantity(w1ID, p1ID), "a origem só possui 20 unidades")
	assert.Equal(t, 30, store.quantity(w2ID, p1ID))
}

func TestBalance_Fail_CapacityExceeded_NoWrites(t *testing.T) {
	store := newMemStore()
	store.addWarehouse(w1ID, "Central", -23.55, -46.63, 100)
	store.addWarehouse(w2ID, "Campinas", -22.90, -47.06, 40)
	store.addStock(w1ID, p1ID, 50)
	store.addStock(w2ID, p1ID, 20)

	svc := newService(store)
	err := svc.Balance(context.Background(), domain.BalanceStockRequest{
		SourceWarehouseID: w1ID, TargetWarehouseID: w2ID, ProductID: p1ID, Quantity: 25,
	})

	require.Error(t, err)
	assert.IsType(t, &apperror.CapacityExceededError{}, err)
	assert.Contains(t, err.Error(), "Campinas", "a mensagem deve nomear o armazém ofensor")
	assert.Equal(t, 50, store.quantity(w1ID, p1ID), "nenhuma escrita deve ocorrer")
	assert.Equal(t, 20, store.quantity(w2ID, p1ID))
	assert.Zero(t, store.updateCalls)
}

func TestBalance_CapacityCountsAllProducts(t *testing.T) {
	// A capacidade limita o total mantido pelo armazém, não só o produto movido.
	store := newMemStore()
	store.addWarehouse(w1ID, "Central", -23.55, -46.63, 100)
	store.addWarehouse(w2ID, "Campinas", -22.90, -47.06, 50)
	store.addStock(w1ID, p1ID, 30)
	store.addStock(w2ID, p2ID, 40)

	svc := newService(store)
	err := svc.Balance(context.Background(), domain.BalanceStockRequest{
		SourceWarehouseID: w1ID, TargetWarehouseID: w2ID, ProductID: p1ID, Quantity: 20,
	})

	assert.IsType(t, &apperror.CapacityExceededError{}, err)
}

func TestBalance_Fail_SourceStockMissing(t *testing.T) {
	store := newMemStore()
	store.addWarehouse(w1ID, "Central", -23.55, -46.63, 100)
	store.addWarehouse(w2ID, "Campinas", -22.90, -47.06, 100)

	svc := newService(store)
	err := svc.Balance(context.Background(), domain.BalanceStockRequest{
		SourceWarehouseID: w1ID, TargetWarehouseID: w2ID, ProductID: p1ID, Quantity: 10,
	})

	assert.IsType(t, &apperror.InsufficientStockError{}, err)
}

func TestBalance_Fail_WarehouseNotFound(t *testing.T) {
	store := newMemStore()
	store.addWarehouse(w1ID, "Central", -23.55, -46.63, 100)
	store.addStock(w1ID, p1ID, 50)

	svc := newService(store)
	err := svc.Balance(context.Background(), domain.BalanceStockRequest{
		SourceWarehouseID: w1ID, TargetWarehouseID: w2ID, ProductID: p1ID, Quantity: 10,
	})

	assert.IsType(t, &apperror.NotFoundError{}, err)
}

func TestBalance_Fail_NonPositiveQuantity(t *testing.T) {
	svc := newService(newMemStore())

	for _, qty := range []int{0, -5} {
		err := svc.Balance(context.Background(), domain.BalanceStockRequest{
			SourceWarehouseID: w1ID, TargetWarehouseID: w2ID, ProductID: p1ID, Quantity: qty,
		})
		assert.IsType(t, &apperror.ValidationError{}, err)
	}
}

func TestBalance_Fail_SameSourceAndTarget(t *testing.T) {
	svc := newService(newMemStore())
	err := svc.Balance(context.Background(), domain.BalanceStockRequest{
		SourceWarehouseID: w1ID, TargetWarehouseID: w1ID, ProductID: p1ID, Quantity: 10,
	})
	assert.IsType(t, &apperror.ValidationError{}, err)
}

func TestBalance_Fail_InvalidUUID(t *testing.T) {
	svc := newService(newMemStore())
	err := svc.Balance(context.Background(), domain.BalanceStockRequest{
		SourceWarehouseID: "not-a-uuid", TargetWarehouseID: w2ID, ProductID: p1ID, Quantity: 10,
	})
	assert.IsType(t, &apperror.ValidationError{}, err)
}

func TestBalance_CreatesSingleTargetRecord(t *testing.T) {
	store := newMemStore()
	store.addWarehouse(w1ID, "Central", -23.55, -46.63, 100)
	store.addWarehouse(w2ID, "Campinas", -22.90, -47.06, 100)
	store.addStock(w1ID, p1ID, 50)

	svc := newService(store)
	ctx := context.Background()

	require.NoError(t, svc.Balance(ctx, domain.BalanceStockRequest{
		SourceWarehouseID: w1ID, TargetWarehouseID: w2ID, ProductID: p1ID, Quantity: 10,
	}))
	require.NoError(t, svc.Balance(ctx, domain.BalanceStockRequest{
		SourceWarehouseID: w1ID, TargetWarehouseID: w2ID, ProductID: p1ID, Quantity: 10,
	}))

	assert.Equal(t, 1, store.records(w2ID, p1ID), "no máximo um registro de estoque por par armazém/produto")
	assert.Equal(t, 20, store.quantity(w2ID, p1ID))
}

func TestBalance_RetriesOnConflict(t *testing.T) {
	store := newMemStore()
	store.addWarehouse(w1ID, "Central", -23.55, -46.63, 100)
	store.addWarehouse(w2ID, "Campinas", -22.90, -47.06, 100)
	store.addStock(w1ID, p1ID, 50)
	store.conflictsLeft = 1 // a primeira escrita perde a corrida

	svc := newService(store)
	err := svc.Balance(context.Background(), domain.BalanceStockRequest{
		SourceWarehouseID: w1ID, TargetWarehouseID: w2ID, ProductID: p1ID, Quantity: 30,
	})

	require.NoError(t, err, "a operação inteira deve ser repetida após o conflito")
	assert.Equal(t, 20, store.quantity(w1ID, p1ID))
	assert.Equal(t, 30, store.quantity(w2ID, p1ID))
}

func TestBalance_GivesUpAfterRepeatedConflicts(t *testing.T) {
	store := newMemStore()
	store.addWarehouse(w1ID, "Central", -23.55, -46.63, 100)
	store.addWarehouse(w2ID, "Campinas", -22.90, -47.06, 100)
	store.addStock(w1ID, p1ID, 50)
	store.conflictsLeft = 10 // mais conflitos do que tentativas

	svc := newService(store)
	err := svc.Balance(context.Background(), domain.BalanceStockRequest{
		SourceWarehouseID: w1ID, TargetWarehouseID: w2ID, ProductID: p1ID, Quantity: 30,
	})

	assert.IsType(t, &apperror.ConflictError{}, err)
}

// --- AutoBalance ---

func TestAutoBalance_EvenSplitWithRemainder(t *testing.T) {
	store := newMemStore()
	store.addWarehouse(w1ID, "Central", -23.55, -46.63, 100)
	store.addWarehouse(w2ID, "Campinas", -22.90, -47.06, 100)
	store.addWarehouse(w3ID, "Santos", -23.96, -46.33, 100)
	store.addWarehouse(w4ID, "Sorocaba", -23.50, -47.45, 100)
	store.addStock(w1ID, p1ID, 10)

	svc := newService(store)
	err := svc.AutoBalance(context.Background(), domain.AutoBalanceRequest{
		ProductID: p1ID, SourceWarehouseID: w1ID,
	})

	require.NoError(t, err)
	// 10 / 3 = 3 com resto 1; o resto vai para o primeiro destino na ordem de ID.
	assert.Equal(t, 0, store.quantity(w1ID, p1ID), "a origem deve ser drenada")
	assert.Equal(t, 4, store.quantity(w2ID, p1ID))
	assert.Equal(t, 3, store.quantity(w3ID, p1ID))
	assert.Equal(t, 3, store.quantity(w4ID, p1ID))
	assert.Equal(t, 10, store.totalOf(p1ID))
}

func TestAutoBalance_ExactSplit(t *testing.T) {
	store := newMemStore()
	store.addWarehouse(w1ID, "Central", -23.55, -46.63, 100)
	store.addWarehouse(w2ID, "Campinas", -22.90, -47.06, 100)
	store.addWarehouse(w3ID, "Santos", -23.96, -46.33, 100)
	store.addStock(w1ID, p1ID, 40)
	store.addStock(w2ID, p1ID, 5)

	svc := newService(store)
	err := svc.AutoBalance(context.Background(), domain.AutoBalanceRequest{
		ProductID: p1ID, SourceWarehouseID: w1ID,
	})

	require.NoError(t, err)
	assert.Equal(t, 0, store.quantity(w1ID, p1ID))
	assert.Equal(t, 25, store.quantity(w2ID, p1ID), "incrementa o registro existente")
	assert.Equal(t, 20, store.quantity(w3ID, p1ID))
	assert.Equal(t, 45, store.totalOf(p1ID))
}

func TestAutoBalance_SmallQuantity_AllToFirstTarget(t *testing.T) {
	// Q < N: divisão inteira dá zero por destino e o resto inteiro vai para
	// o primeiro, de forma determinística.
	store := newMemStore()
	store.addWarehouse(w1ID, "Central", -23.55, -46.63, 100)
	store.addWarehouse(w2ID, "Campinas", -22.90, -47.06, 100)
	store.addWarehouse(w3ID, "Santos", -23.96, -46.33, 100)
	store.addStock(w1ID, p1ID, 1)

	svc := newService(store)
	require.NoError(t, svc.AutoBalance(context.Background(), domain.AutoBalanceRequest{
		ProductID: p1ID, SourceWarehouseID: w1ID,
	}))

	assert.Equal(t, 0, store.quantity(w1ID, p1ID))
	assert.Equal(t, 1, store.quantity(w2ID, p1ID))
	assert.Equal(t, 0, store.quantity(w3ID, p1ID))
}

func TestAutoBalance_Fail_NoOtherWarehouses(t *testing.T) {
	store := newMemStore()
	store.addWarehouse(w1ID, "Central", -23.55, -46.63, 100)
	store.addStock(w1ID, p1ID, 10)

	svc := newService(store)
	err := svc.AutoBalance(context.Background(), domain.AutoBalanceRequest{
		ProductID: p1ID, SourceWarehouseID: w1ID,
	})

	assert.IsType(t, &apperror.NoEligibleTargetError{}, err)
}

func TestAutoBalance_Fail_NoStock(t *testing.T) {
	store := newMemStore()
	store.addWarehouse(w1ID, "Central", -23.55, -46.63, 100)
	store.addWarehouse(w2ID, "Campinas", -22.90, -47.06, 100)

	svc := newService(store)
	err := svc.AutoBalance(context.Background(), domain.AutoBalanceRequest{
		ProductID: p1ID, SourceWarehouseID: w1ID,
	})

	assert.IsType(t, &apperror.InsufficientStockError{}, err)
}

func TestAutoBalance_Fail_SourceNotFound(t *testing.T) {
	store := newMemStore()
	store.addWarehouse(w2ID, "Campinas", -22.90, -47.06, 100)

	svc := newService(store)
	err := svc.AutoBalance(context.Background(), domain.AutoBalanceRequest{
		ProductID: p1ID, SourceWarehouseID: w1ID,
	})

	assert.IsType(t, &apperror.NotFoundError{}, err)
}

func TestAutoBalance_Fail_CapacityExceeded_NoWrites(t *testing.T) {
	store := newMemStore()
	store.addWarehouse(w1ID, "Central", -23.55, -46.63, 100)
	store.addWarehouse(w2ID, "Campinas", -22.90, -47.06, 100)
	store.addWarehouse(w3ID, "Santos", -23.96, -46.33, 5)
	store.addStock(w1ID, p1ID, 40)

	svc := newService(store)
	err := svc.AutoBalance(context.Background(), domain.AutoBalanceRequest{
		ProductID: p1ID, SourceWarehouseID: w1ID,
	})

	require.Error(t, err)
	assert.IsType(t, &apperror.CapacityExceededError{}, err)
	assert.Contains(t, err.Error(), "Santos")
	assert.Equal(t, 40, store.quantity(w1ID, p1ID), "falha de capacidade em qualquer destino impede todas as escritas")
	assert.Equal(t, 0, store.quantity(w2ID, p1ID))
	assert.Zero(t, store.updateCalls)
}

// --- Distribute ---

// Geometria dos testes: a partir de Central (São Paulo), Santos é o armazém
// mais próximo; Campinas e Sorocaba ficam mais distantes.
func distributeStore() *memStore {
	store := newMemStore()
	store.addWarehouse(w1ID, "Central", -23.5505, -46.6333, 1000)
	store.addWarehouse(w2ID, "Campinas", -22.9056, -47.0608, 1000)
	store.addWarehouse(w3ID, "Santos", -23.9608, -46.3336, 1000)
	store.addWarehouse(w4ID, "Sorocaba", -23.5015, -47.4526, 1000)
	return store
}

func TestDistribute_NearestWeightedSplit(t *testing.T) {
	store := distributeStore()
	store.addStock(w1ID, p1ID, 100)

	svc := newService(store)
	err := svc.Distribute(context.Background(), domain.DistributeStockRequest{
		SourceWarehouseID: w1ID, ProductID: p1ID, Quantity: 100, NearestWarehousePercentage: 50,
	})

	require.NoError(t, err)
	assert.Equal(t, 0, store.quantity(w1ID, p1ID))
	assert.Equal(t, 50, store.quantity(w3ID, p1ID), "Santos é o mais próximo e recebe 50%")
	assert.Equal(t, 25, store.quantity(w2ID, p1ID))
	assert.Equal(t, 25, store.quantity(w4ID, p1ID))
	assert.Equal(t, 100, store.totalOf(p1ID))
}

func TestDistribute_FullPercentage_AllToNearest(t *testing.T) {
	store := distributeStore()
	store.addStock(w1ID, p1ID, 80)

	svc := newService(store)
	err := svc.Distribute(context.Background(), domain.DistributeStockRequest{
		SourceWarehouseID: w1ID, ProductID: p1ID, Quantity: 80, NearestWarehousePercentage: 100,
	})

	require.NoError(t, err)
	assert.Equal(t, 80, store.quantity(w3ID, p1ID), "100% vai inteiro para o mais próximo")
	assert.Equal(t, 0, store.quantity(w2ID, p1ID))
	assert.Equal(t, 0, store.quantity(w4ID, p1ID))
	assert.Equal(t, 0, store.quantity(w1ID, p1ID))
}

func TestDistribute_ZeroPercentage_EvenSplitIncludesNearest(t *testing.T) {
	// Com 0% nada chega ao mais próximo pela parcela "nearby"; como ele não
	// foi creditado, participa da divisão igual do restante.
	store := distributeStore()
	store.addStock(w1ID, p1ID, 90)

	svc := newService(store)
	err := svc.Distribute(context.Background(), domain.DistributeStockRequest{
		SourceWarehouseID: w1ID, ProductID: p1ID, Quantity: 90, NearestWarehousePercentage: 0,
	})

	require.NoError(t, err)
	assert.Equal(t, 30, store.quantity(w2ID, p1ID))
	assert.Equal(t, 30, store.quantity(w3ID, p1ID))
	assert.Equal(t, 30, store.quantity(w4ID, p1ID))
	assert.Equal(t, 0, store.quantity(w1ID, p1ID))
}

func TestDistribute_RemainderGoesToFirstEligible(t *testing.T) {
	store := distributeStore()
	store.addStock(w1ID, p1ID, 10)

	svc := newService(store)
	err := svc.Distribute(context.Background(), domain.DistributeStockRequest{
		SourceWarehouseID: w1ID, ProductID: p1ID, Quantity: 10, NearestWarehousePercentage: 50,
	})

	require.NoError(t, err)
	// nearby = 5 para Santos; restante 5 entre Campinas e Sorocaba: 2 cada,
	// resto 1 para o primeiro elegível na ordem de ID (Campinas).
	assert.Equal(t, 5, store.quantity(w3ID, p1ID))
	assert.Equal(t, 3, store.quantity(w2ID, p1ID))
	assert.Equal(t, 2, store.quantity(w4ID, p1ID))
	assert.Equal(t, 10, store.totalOf(p1ID))
}

func TestDistribute_TieBreak_SmallestIDWins(t *testing.T) {
	// Dois destinos equidistantes da origem: vence o primeiro na ordem
	// estável de ID.
	store := newMemStore()
	store.addWarehouse(w1ID, "Origem", 0, 0, 1000)
	store.addWarehouse(w2ID, "Leste", 0, 1, 1000)
	store.addWarehouse(w3ID, "Oeste", 0, -1, 1000)
	store.addStock(w1ID, p1ID, 10)

	svc := newService(store)
	err := svc.Distribute(context.Background(), domain.DistributeStockRequest{
		SourceWarehouseID: w1ID, ProductID: p1ID, Quantity: 10, NearestWarehousePercentage: 100,
	})

	require.NoError(t, err)
	assert.Equal(t, 10, store.quantity(w2ID, p1ID))
	assert.Equal(t, 0, store.quantity(w3ID, p1ID))
}

func TestDistribute_Fail_NoRemainingTargets(t *testing.T) {
	// Só existe um outro armazém (o mais próximo, já creditado): não resta
	// ninguém para o restante.
	store := newMemStore()
	store.addWarehouse(w1ID, "Central", -23.55, -46.63, 1000)
	store.addWarehouse(w2ID, "Campinas", -22.90, -47.06, 1000)
	store.addStock(w1ID, p1ID, 100)

	svc := newService(store)
	err := svc.Distribute(context.Background(), domain.DistributeStockRequest{
		SourceWarehouseID: w1ID, ProductID: p1ID, Quantity: 100, NearestWarehousePercentage: 50,
	})

	require.Error(t, err)
	assert.IsType(t, &apperror.NoEligibleTargetError{}, err)
	assert.Equal(t, 100, store.quantity(w1ID, p1ID), "nenhuma escrita deve ocorrer")
	assert.Zero(t, store.updateCalls)
}

func TestDistribute_Fail_NoOtherWarehouses(t *testing.T) {
	store := newMemStore()
	store.addWarehouse(w1ID, "Central", -23.55, -46.63, 1000)
	store.addStock(w1ID, p1ID, 100)

	svc := newService(store)
	err := svc.Distribute(context.Background(), domain.DistributeStockRequest{
		SourceWarehouseID: w1ID, ProductID: p1ID, Quantity: 10, NearestWarehousePercentage: 50,
	})

	assert.IsType(t, &apperror.NoEligibleTargetError{}, err)
}

func TestDistribute_Fail_InsufficientStock(t *testing.T) {
	store := distributeStore()
	store.addStock(w1ID, p1ID, 5)

	svc := newService(store)
	err := svc.Distribute(context.Background(), domain.DistributeStockRequest{
		SourceWarehouseID: w1ID, ProductID: p1ID, Quantity: 10, NearestWarehousePercentage: 50,
	})

	assert.IsType(t, &apperror.InsufficientStockError{}, err)
}

func TestDistribute_Fail_PercentageOutOfRange(t *testing.T) {
	svc := newService(newMemStore())

	for _, pct := range []float64{-1, 100.5} {
		err := svc.Distribute(context.Background(), domain.DistributeStockRequest{
			SourceWarehouseID: w1ID, ProductID: p1ID, Quantity: 10, NearestWarehousePercentage: pct,
		})
		assert.IsType(t, &apperror.ValidationError{}, err)
	}
}

func TestDistribute_Fail_CapacityExceeded_NoWrites(t *testing.T) {
	store := newMemStore()
	store.addWarehouse(w1ID, "Central", -23.5505, -46.6333, 1000)
	store.addWarehouse(w2ID, "Campinas", -22.9056, -47.0608, 10)
	store.addWarehouse(w3ID, "Santos", -23.9608, -46.3336, 1000)
	store.addStock(w1ID, p1ID, 100)

	svc := newService(store)
	err := svc.Distribute(context.Background(), domain.DistributeStockRequest{
		SourceWarehouseID: w1ID, ProductID: p1ID, Quantity: 100, NearestWarehousePercentage: 50,
	})

	require.Error(t, err)
	assert.IsType(t, &apperror.CapacityExceededError{}, err)
	assert.Contains(t, err.Error(), "Campinas")
	assert.Equal(t, 100, store.quantity(w1ID, p1ID))
	assert.Zero(t, store.updateCalls)
}

// --- Propriedades transversais ---

func TestConservation_AcrossSequenceOfOperations(t *testing.T) {
	store := distributeStore()
	store.addStock(w1ID, p1ID, 200)
	store.addStock(w2ID, p1ID, 40)

	svc := newService(store)
	ctx := context.Background()
	before := store.totalOf(p1ID)

	require.NoError(t, svc.Balance(ctx, domain.BalanceStockRequest{
		SourceWarehouseID: w1ID, TargetWarehouseID: w3ID, ProductID: p1ID, Quantity: 60,
	}))
	require.NoError(t, svc.Distribute(ctx, domain.DistributeStockRequest{
		SourceWarehouseID: w1ID, ProductID: p1ID, Quantity: 90, NearestWarehousePercentage: 40,
	}))
	require.NoError(t, svc.AutoBalance(ctx, domain.AutoBalanceRequest{
		ProductID: p1ID, SourceWarehouseID: w2ID,
	}))

	assert.Equal(t, before, store.totalOf(p1ID), "nenhuma sequência de operações cria ou destrói unidades")

	// Nenhum armazém acima da capacidade após a sequência.
	warehouses, err := store.GetAllWarehouses(ctx)
	require.NoError(t, err)
	for _, w := range warehouses {
		assert.LessOrEqual(t, w.TotalQuantity(), w.Capacity, "armazém %s acima da capacidade", w.Name)
	}
}

func TestDistanceBetween_DelegatesToHaversine(t *testing.T) {
	svc := newService(newMemStore())
	d := svc.DistanceBetween(-23.5505, -46.6333, -22.9068, -43.1729)
	assert.InDelta(t, 360, d, 10)
}
