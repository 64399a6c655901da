package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	lhttp "github.com/radieske/esports-points-ledger/internal/ledger-service/http"
	"github.com/radieske/esports-points-ledger/internal/ledger-service/producer"
	"github.com/radieske/esports-points-ledger/internal/ledger-service/pubsub"
	"github.com/radieske/esports-points-ledger/internal/ledger-service/repo"
	"github.com/radieske/esports-points-ledger/internal/ledger-service/ws"
	"github.com/radieske/esports-points-ledger/internal/ledger/domain"
	"github.com/radieske/esports-points-ledger/internal/ledger/eligibility"
	"github.com/radieske/esports-points-ledger/internal/ledger/lifecycle"
	mcache "github.com/radieske/esports-points-ledger/internal/matches/cache"
	mrepo "github.com/radieske/esports-points-ledger/internal/matches/repo"
	sharedcache "github.com/radieske/esports-points-ledger/internal/shared/cache"
	"github.com/radieske/esports-points-ledger/internal/shared/config"
	"github.com/radieske/esports-points-ledger/internal/shared/db"
	"github.com/radieske/esports-points-ledger/internal/shared/kafka"
	"github.com/radieske/esports-points-ledger/internal/shared/logger"
	"github.com/radieske/esports-points-ledger/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "ledger-service"
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("store", cfg.LedgerStore))

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Postgres: partidas (sempre) e ledger (LEDGER_STORE=postgres)
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	var store domain.Store
	switch cfg.LedgerStore {
	case "memory":
		log.Warn("ledger running in memory, balances are lost on restart")
		store = repo.NewMemory()
	default:
		p := repo.NewPostgres(pg)
		if err := p.Migrate(ctx); err != nil {
			log.Fatal("ledger migrate", zap.Error(err))
		}
		store = p
	}

	// Partidas: Postgres é a fonte de registro; o cache Redis só atende leitura pública
	source := mrepo.NewReadRepo(pg)
	matches := mcache.New(redisClient, source, cfg.MatchCacheTTL)

	// Eventos: Kafka para consumidores externos e Redis Pub/Sub para o WebSocket
	placedWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced)
	defer placedWriter.Close()
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer settledWriter.Close()
	publ := producer.Fanout{
		producer.NewKafkaPublisher(placedWriter, settledWriter),
		pubsub.NewRedisBroadcaster(redisClient, cfg.RedisPubSubChannel),
	}

	// WebSocket: cada réplica assina o canal e entrega ao dono da aposta
	hub := ws.NewHub(log, func(*http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, redisClient, cfg.RedisPubSubChannel, hub, log)

	api := newAPI(cfg, log, store, source, matches, publ, hub)
	ledgerMetrics := metrics.NewLedger(prometheus.DefaultRegisterer)
	api.Ledger.OnResult = ledgerMetrics.OnResult
	api.Ledger.OnConflict = ledgerMetrics.OnConflict

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, health(pg.PingContext, redisClient))
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("api listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api srv", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("ledger-service stopped")
}

// newAPI monta o ledger e a API. O ledger lê partidas direto da fonte de registro
// para que MatchClosed nunca dependa de uma entrada de cache vencida; listagem e
// elegibilidade usam o cache.
func newAPI(cfg config.Config, log *zap.Logger, store domain.Store, source, cached domain.MatchSource,
	publ lifecycle.Publisher, hub *ws.Hub) *lhttp.API {
	mgr := lifecycle.NewManager(log, store, source, publ)
	mgr.MaxAttempts = cfg.ConflictMaxAttempts
	mgr.Backoff = cfg.ConflictBackoff
	mgr.Concurrency = cfg.SettleConcurrency
	mgr.StartingPoints = cfg.StartingPoints

	return &lhttp.API{
		Log:         log,
		Ledger:      mgr,
		Eligibility: eligibility.NewChecker(store, cached),
		Store:       store,
		Matches:     cached,
		Hub:         hub,
	}
}

func health(pgPing func(context.Context) error, r *redis.Client) metrics.HealthFunc {
	return func(ctx context.Context) error {
		if err := pgPing(ctx); err != nil {
			return errors.New("pg")
		}
		if err := r.Ping(ctx).Err(); err != nil {
			return errors.New("redis")
		}
		return nil
	}
}
