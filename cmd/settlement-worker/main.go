package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/esports-points-ledger/internal/ledger-service/producer"
	"github.com/radieske/esports-points-ledger/internal/ledger-service/pubsub"
	"github.com/radieske/esports-points-ledger/internal/ledger-service/repo"
	"github.com/radieske/esports-points-ledger/internal/ledger/lifecycle"
	mcache "github.com/radieske/esports-points-ledger/internal/matches/cache"
	mrepo "github.com/radieske/esports-points-ledger/internal/matches/repo"
	"github.com/radieske/esports-points-ledger/internal/settlement-worker/consumer"
	"github.com/radieske/esports-points-ledger/internal/settlement-worker/sweeper"
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
		cfg.ServiceName = "settlement-worker"
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.LedgerStore == "memory" {
		log.Fatal("settlement-worker requires LEDGER_STORE=postgres (memory ledger is per process)")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

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

	store := repo.NewPostgres(pg)
	if err := store.Migrate(ctx); err != nil {
		log.Fatal("ledger migrate", zap.Error(err))
	}

	// a liquidação lê a partida direto do banco; o cache só é invalidado
	// para o ledger-service parar de aceitar apostas na partida encerrada
	source := mrepo.NewReadRepo(pg)
	matchCache := mcache.New(redisClient, source, cfg.MatchCacheTTL)

	placedWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced)
	defer placedWriter.Close()
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer settledWriter.Close()
	dlqWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMatchFinishedDLQ)
	defer dlqWriter.Close()

	publ := producer.Fanout{
		producer.NewKafkaPublisher(placedWriter, settledWriter),
		pubsub.NewRedisBroadcaster(redisClient, cfg.RedisPubSubChannel),
	}

	// Métricas Prometheus do worker
	ledgerMetrics := metrics.NewLedger(prometheus.DefaultRegisterer)
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_messages_consumed_total", Help: "mensagens match_finished consumidas"})
	settledBets := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_bets_total", Help: "apostas liquidadas por resultado"}, []string{"result"})
	paidOut := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_points_paid_total", Help: "pontos creditados em apostas ganhas"})
	dlq := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_dlq_total", Help: "mensagens enviadas para a DLQ"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_errors_total", Help: "erros por estágio"}, []string{"stage"})
	swept := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_sweep_matches_total", Help: "partidas liquidadas pela varredura"})
	prometheus.MustRegister(consumed, settledBets, paidOut, dlq, errorsBy, swept)

	mgr := lifecycle.NewManager(log, store, source, publ)
	mgr.MaxAttempts = cfg.ConflictMaxAttempts
	mgr.Backoff = cfg.ConflictBackoff
	mgr.Concurrency = cfg.SettleConcurrency
	mgr.StartingPoints = cfg.StartingPoints
	mgr.OnResult = ledgerMetrics.OnResult
	mgr.OnConflict = ledgerMetrics.OnConflict

	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicMatchFinished, "settlement-worker")
	defer reader.Close()

	proc := &consumer.Processor{
		Log:        log,
		Reader:     reader,
		Matches:    source,
		Cache:      matchCache,
		Ledger:     mgr,
		DLQ:        dlqWriter,
		Retries:    3,
		Backoff:    300 * time.Millisecond,
		OnConsumed: func() { consumed.Inc() },
		OnSettled: func(s lifecycle.Summary) {
			settledBets.WithLabelValues("won").Add(float64(s.Won))
			settledBets.WithLabelValues("lost").Add(float64(s.Lost))
			settledBets.WithLabelValues("failed").Add(float64(s.Failed))
			paidOut.Add(float64(s.PaidOut))
		},
		OnDLQ:   func() { dlq.Inc() },
		OnError: func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	// Varredura periódica: partidas encerradas que ainda têm apostas pending
	sw := &sweeper.Sweeper{
		Log:     log,
		Store:   store,
		Matches: source,
		Cache:   matchCache,
		Ledger:  mgr,
		OnSwept: func(n int) { swept.Add(float64(n)) },
	}
	cronSvc, err := sw.Start(ctx, cfg.SweepSchedule)
	if err != nil {
		log.Fatal("sweeper", zap.Error(err))
	}
	defer cronSvc.Stop()

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	})
	defer metricsSrv.Close()

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicMatchFinished),
		zap.String("dlq", cfg.TopicMatchFinishedDLQ),
		zap.String("sweep", cfg.SweepSchedule),
	)
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("settlement-worker stopped")
}
