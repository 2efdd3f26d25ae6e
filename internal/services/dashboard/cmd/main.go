package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/LeonardoBeccarini/hydroponics/internal/advisor"
	"github.com/LeonardoBeccarini/hydroponics/internal/cache"
	"github.com/LeonardoBeccarini/hydroponics/internal/config"
	"github.com/LeonardoBeccarini/hydroponics/internal/logging"
	"github.com/LeonardoBeccarini/hydroponics/internal/services/advisory"
	"github.com/LeonardoBeccarini/hydroponics/internal/services/analysis"
	"github.com/LeonardoBeccarini/hydroponics/internal/services/broadcast"
	"github.com/LeonardoBeccarini/hydroponics/internal/services/dashboard"
	"github.com/LeonardoBeccarini/hydroponics/internal/services/telemetry"
	"github.com/LeonardoBeccarini/hydroponics/internal/simulator"
	"github.com/LeonardoBeccarini/hydroponics/internal/tracing"
	"github.com/LeonardoBeccarini/hydroponics/internal/zonestore"
	"github.com/LeonardoBeccarini/hydroponics/pkg/dedup"
	"github.com/LeonardoBeccarini/hydroponics/pkg/rabbitmq"
)

func main() {
	cfg, err := config.Load(".env")
	log := logging.New(cfg.ServiceName)
	if err != nil {
		log.Fatal().Err(err).Msg("hydroponics: invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		log.Warn().Err(err).Msg("hydroponics: tracing disabled")
		shutdownTracing = func(context.Context) error { return nil }
	}

	// === Zone store + scheduler ===
	store, err := newStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("hydroponics: cannot build zone store")
	}
	history := telemetry.NewHistory(cfg.HistoryBucket, cfg.HistoryKeep)
	store.Subscribe(history.Handle)

	agg := advisor.New(advisor.Config{
		CallTimeout: cfg.RefreshTimeout,
		Concurrency: cfg.RefreshConcurrency,
	}, log)

	app := &dashboard.App{
		Zones:   store,
		Advisor: agg,
		History: history,
		Log:     log,
	}

	// === Analysis source (+cache) ===
	resultCache, err := cache.New(cache.Options{
		Driver:   cfg.Cache.Driver,
		Addrs:    cfg.Cache.Addrs,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("hydroponics: cache setup failed")
	}
	defer resultCache.Close()

	if cfg.AIEnabled() {
		client, err := analysis.NewClient(analysis.Config{
			BaseURL:         cfg.GenAI.BaseURL,
			APIKey:          cfg.GenAI.APIKey,
			Model:           cfg.GenAI.Model,
			Timeout:         cfg.GenAI.Timeout,
			MaxRetries:      cfg.GenAI.MaxRetries,
			BreakerFailures: cfg.GenAI.BreakerFailures,
			BreakerOpenFor:  cfg.GenAI.BreakerOpenFor,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("hydroponics: analysis client")
		}
		cached := analysis.NewCachedAnalyzer(client, resultCache, cfg.Cache.TTL, log)
		app.Analyze = cached.AnalyzeZone
		app.Plants = client
		app.Yield = client
		app.Probes = append(app.Probes, dashboard.Probe{Name: "genai", Check: func(context.Context) error {
			if st := client.BreakerState(); st == "open" {
				return fmt.Errorf("circuit breaker %s", st)
			}
			return nil
		}})
		if resultCache.Driver() != "none" {
			app.Probes = append(app.Probes, dashboard.Probe{Name: "cache", Check: resultCache.Ping})
		}
	} else {
		log.Warn().Msg("hydroponics: GENAI_API_KEY not set, analysis endpoints disabled")
	}

	// === Broadcast sinks ===
	var sinks []broadcast.Sink
	var mqttClient mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = rabbitmq.NewRabbitMQConn(ctx, &rabbitmq.RabbitMQConfig{
			Host:     cfg.MQTT.Host,
			Port:     cfg.MQTT.Port,
			User:     cfg.MQTT.User,
			Password: cfg.MQTT.Password,
			ClientID: cfg.MQTT.ClientID,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("hydroponics: mqtt connection error")
		}
		defer rabbitmq.CloseRabbitMQConn(mqttClient, log)

		snapshots := rabbitmq.NewPublisher(mqttClient, cfg.MQTT.SnapshotTopic)
		sinks = append(sinks, broadcast.NewMQTTSink(snapshots, cfg.MQTT.SnapshotTopic))

		decided := rabbitmq.NewPublisher(mqttClient, cfg.MQTT.DecidedTopic)
		agg.OnDecision(advisory.NewEventPublisher(decided, cfg.MQTT.DecidedTopic, log).OnDecision)

		// i comandi arrivano a QoS 1: dedup sul payload per le redelivery
		handler := advisory.NewDecisionHandler(agg, dedup.New(10*time.Minute, 20000), log)
		consumer := rabbitmq.NewConsumer(mqttClient, cfg.MQTT.DecisionTopic, handler.Handle, log)
		go func() {
			if err := consumer.ConsumeMessage(ctx); err != nil {
				log.Error().Err(err).Msg("hydroponics: decision consumer stopped")
			}
		}()

		app.Probes = append(app.Probes, dashboard.Probe{Name: "mqtt", Required: true, Check: func(context.Context) error {
			if !mqttClient.IsConnectionOpen() {
				return errors.New("not connected")
			}
			return nil
		}})
	}
	if len(cfg.Kafka.Brokers) > 0 {
		sinks = append(sinks, broadcast.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic))
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("hydroponics: kafka sink enabled")
	}
	var broadcaster *broadcast.Broadcaster
	if len(sinks) > 0 {
		broadcaster = broadcast.New(log, 2*time.Second, sinks...)
		store.Subscribe(broadcaster.Handle)
	}

	// === InfluxDB ===
	var exporter *telemetry.Exporter
	if cfg.Influx.Enabled() {
		influx := influxdb2.NewClientWithOptions(cfg.Influx.URL, cfg.Influx.Token,
			influxdb2.DefaultOptions().SetBatchSize(50).SetFlushInterval(1000))
		defer influx.Close()

		exporter = telemetry.NewExporter(influx.WriteAPI(cfg.Influx.Org, cfg.Influx.Bucket), cfg.Influx.Measurement, log)
		store.Subscribe(exporter.Handle)

		span := cfg.HistoryBucket * time.Duration(cfg.HistoryKeep)
		app.History = telemetry.Fallback{
			Primary:   telemetry.NewInfluxHistory(influx.QueryAPI(cfg.Influx.Org), cfg.Influx.Bucket, cfg.Influx.Measurement, span, cfg.HistoryBucket),
			Secondary: history,
		}
		app.Probes = append(app.Probes, dashboard.Probe{Name: "influx", Check: func(ctx context.Context) error {
			if ok, err := influx.Ping(ctx); err != nil || !ok {
				return fmt.Errorf("ping failed: %v", err)
			}
			if age := exporter.LastErrorAge(); age < 30*time.Second {
				return fmt.Errorf("write error %s ago", age.Round(time.Second))
			}
			return nil
		}})
	}

	// === HTTP ===
	hs := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           dashboard.NewRouter(app),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", hs.Addr).Msg("hydroponics: HTTP listening")
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("hydroponics: http server error")
		}
	}()

	// === gRPC ===
	gs := grpc.NewServer()
	advisory.RegisterAdvisoryServer(gs, advisory.NewGrpcHandler(agg, log))
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		log.Fatal().Err(err).Str("port", cfg.GRPCPort).Msg("hydroponics: grpc listen failed")
	}
	go func() {
		log.Info().Str("addr", lis.Addr().String()).Msg("hydroponics: gRPC listening")
		if err := gs.Serve(lis); err != nil {
			log.Error().Err(err).Msg("hydroponics: grpc server stopped")
		}
	}()

	go simulator.NewScheduler(store, cfg.TickInterval, log).Run(ctx)

	if cfg.RefreshOnStartup && app.Analyze != nil {
		go startupRefresh(ctx, agg, store, app.Analyze, log)
	}

	// === Wait for signal ===
	<-ctx.Done()
	log.Info().Msg("hydroponics: shutting down...")

	shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shCancel()
	_ = hs.Shutdown(shCtx)
	gs.GracefulStop()
	if broadcaster != nil {
		broadcaster.Close()
	}
	if exporter != nil {
		exporter.Flush()
	}
	if err := shutdownTracing(shCtx); err != nil {
		log.Warn().Err(err).Msg("hydroponics: tracing shutdown")
	}
}

func newStore(cfg config.Config, log zerolog.Logger) (*zonestore.Store, error) {
	now := time.Now()
	seed := simulator.DefaultZones(now)
	if cfg.SeedPath != "" {
		zones, err := simulator.LoadZones(cfg.SeedPath, now)
		if err != nil {
			return nil, err
		}
		seed = zones
		log.Info().Str("path", cfg.SeedPath).Int("zones", len(seed)).Msg("hydroponics: zones loaded")
	}

	rngSeed := cfg.RandomSeed
	if rngSeed == 0 {
		rngSeed = now.UnixNano()
	}
	drift := simulator.Drift{}
	if cfg.TempBounded {
		drift.TempBounds = &simulator.Bounds{Min: cfg.TempMin, Max: cfg.TempMax}
	}
	return zonestore.New(seed,
		zonestore.WithRandomSource(simulator.NewSeededSource(rngSeed)),
		zonestore.WithDrift(drift),
		zonestore.WithLogger(log),
	)
}

func startupRefresh(ctx context.Context, agg *advisor.Aggregator, store *zonestore.Store, analyze advisor.AnalyzeFunc, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	report, err := agg.Refresh(ctx, store.Snapshot(), analyze)
	if err != nil {
		log.Warn().Err(err).Str("run_id", report.RunID).Msg("hydroponics: startup refresh failed")
		return
	}
	log.Info().
		Str("run_id", report.RunID).
		Int("added", len(report.Added)).
		Int("pending", len(agg.Pending())).
		Msg("hydroponics: startup refresh done")
}
