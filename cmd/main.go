package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// Nossos pacotes de infraestrutura e utilitários
	"gobalance/config"
	"gobalance/internal/pkg/cache"
	"gobalance/internal/pkg/database"
	"gobalance/internal/pkg/logger"

	// Camadas da aplicação para Injeção de Dependências
	"gobalance/internal/api/balance"
	"gobalance/internal/api/router"
	"gobalance/internal/api/stock"
	"gobalance/internal/api/warehouse"
	"gobalance/internal/repository/stockrepo"
	"gobalance/internal/repository/warehouserepo"
	"gobalance/internal/service/balanceservice"
	"gobalance/internal/service/stockservice"
	"gobalance/internal/service/warehouseservice"
)

func main() {
	// 1. Configuração e Inicialização
	stdlog.Println("⚡ Inicializando serviço GoBalance...")

	// 0. CARREGAR VARIÁVEIS DE AMBIENTE (.env)
	// O godotenv.Load() procura por um arquivo chamado .env na raiz.
	if err := godotenv.Load(); err != nil {
		// Se o arquivo .env não for encontrado, avisamos, mas continuamos,
		// pois as variáveis essenciais podem estar no ambiente do sistema (ex: Docker).
		stdlog.Println("⚠️ Aviso: Arquivo .env não encontrado ou erro de leitura. Carregando configs apenas do ambiente do sistema.")
	}

	cfg := config.LoadConfig() // Carrega as configurações (URLs, Timeouts, etc.)
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("Configurações carregadas.", nil)

	// 2. Conexão com Recursos de Infraestrutura

	// A. Banco de Dados (PostgreSQL)
	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close() // Fecha a conexão de DB ao sair
	log.Info("Conexão PostgreSQL estabelecida.", nil)

	// B. Cache (Redis)
	cacheClient := cache.NewRedisClient(cfg.RedisAddr)
	log.Info("Conexão Redis estabelecida.", nil)

	// 3. INJEÇÃO DE DEPENDÊNCIAS (Montagem da Clean Architecture)
	// Ordem: Repository -> Service -> Handler

	// A. Repositórios (Camada de Acesso a Dados)
	warehouseRepo := warehouserepo.NewWarehouseRepository(db, cacheClient, cfg.DBTimeout, log)
	stockRepo := stockrepo.NewStockRepository(db, cacheClient, cfg.DBTimeout, log)
	log.Debug("Repositórios inicializados.", nil)

	// B. Serviços (Camada de Lógica de Negócio)
	warehouseSvc := warehouseservice.NewService(warehouseRepo, log)
	stockSvc := stockservice.NewService(stockRepo, warehouseRepo, log)
	balanceSvc := balanceservice.NewService(warehouseRepo, stockRepo, log)
	log.Debug("Serviços inicializados.", nil)

	// C. Handlers (Camada de Apresentação)
	warehouseHandler := warehouse.NewHandler(warehouseSvc, log)
	stockHandler := stock.NewHandler(stockSvc, log)
	balanceHandler := balance.NewHandler(balanceSvc, log)
	log.Debug("Handlers inicializados.", nil)

	// 4. Configuração e Início do Roteador/Servidor
	r := router.NewRouter(warehouseHandler, stockHandler, balanceHandler,
		cacheClient, cfg.RateLimitMaxRequests, cfg.RateLimitPeriod)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r, // O roteador final
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 5. Execução e Graceful Shutdown
	go func() {
		log.Info("Servidor GoBalance ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Servidor falhou.", err)
		}
	}()

	// Lógica do Graceful Shutdown (captura de sinal)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	// Timeout para desligamento (usa o contexto)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Desligamento do servidor forçado.", err)
	}

	log.Info("Servidor encerrado com sucesso.", nil)
}
