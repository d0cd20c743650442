package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/IBM/sarama"
	redis "github.com/redis/go-redis/v9"
	"github.com/zamyatin-zkex/swapdash/config"
	"github.com/zamyatin-zkex/swapdash/internal/entity"
	"github.com/zamyatin-zkex/swapdash/internal/event"
	"github.com/zamyatin-zkex/swapdash/internal/oneinch"
	"github.com/zamyatin-zkex/swapdash/internal/repository"
	"github.com/zamyatin-zkex/swapdash/internal/service/consumer"
	"github.com/zamyatin-zkex/swapdash/internal/service/demo"
	"github.com/zamyatin-zkex/swapdash/internal/service/interrupter"
	"github.com/zamyatin-zkex/swapdash/internal/service/tracker"
	"github.com/zamyatin-zkex/swapdash/internal/service/volume"
	"github.com/zamyatin-zkex/swapdash/internal/service/wallet"
	"github.com/zamyatin-zkex/swapdash/internal/service/web"
	"github.com/zamyatin-zkex/swapdash/internal/web3"
	"github.com/zamyatin-zkex/swapdash/pkg/app"
	"github.com/zamyatin-zkex/swapdash/pkg/ebus"
	"github.com/zamyatin-zkex/swapdash/pkg/throttle"
)

func main() {
	cfg, err := config.Build()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log)

	err = run(cfg, log)
	if err == nil || errors.Is(err, interrupter.ErrInterrupted) {
		log.Info("shutdown", "reason", err)
		return
	}
	log.Error("stopped", "err", err)
	os.Exit(1)
}

func run(cfg *config.Config, log *slog.Logger) error {
	eBus := ebus.New()

	apiLimiter, err := throttle.New(throttle.Options{
		Name:    "api",
		Delay:   cfg.Limits.APIDelay,
		Rate:    cfg.Limits.Rate,
		Timeout: cfg.Limits.Timeout,
	})
	if err != nil {
		return err
	}
	web3Limiter, err := throttle.New(throttle.Options{
		Name:    "web3",
		Delay:   cfg.Limits.Web3Delay,
		Timeout: cfg.Limits.Timeout,
	})
	if err != nil {
		return err
	}
	limits := throttle.NewRegistry().Add(apiLimiter).Add(web3Limiter).WithGrace(cfg.Limits.Grace)

	httpClient := &http.Client{Timeout: cfg.API.Timeout}
	agg := oneinch.New(cfg.API.BaseURL, cfg.API.Key, apiLimiter, oneinch.WithHTTPClient(httpClient))
	node := web3.New(cfg.API.Web3URL, cfg.API.Key, web3Limiter, httpClient)

	kafkaCl, err := sarama.NewClient(cfg.Kafka.Brokers, cfg.Kafka.SaramaConfig())
	if err != nil {
		return fmt.Errorf("kafka client: %w", err)
	}
	defer kafkaCl.Close()
	prod, err := sarama.NewSyncProducerFromClient(kafkaCl)
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	defer prod.Close()

	swapRepo := repository.NewSwap(prod, cfg.Kafka.SwapTopic)
	snapshots := repository.NewSnapshot(kafkaCl, prod, cfg.Kafka.StateTopic)

	tokens, closeCache, err := tokenCache(cfg.Redis, log)
	if err != nil {
		return err
	}
	defer closeCache()

	periods, err := cfg.Tracker.VolumePeriods()
	if err != nil {
		return err
	}

	wal := wallet.New(agg, tokens, swapRepo, log)
	vol := volume.New(snapshots, eBus, periods)
	cons, err := consumer.NewConsumer(kafkaCl, cfg.Kafka.SwapTopic, cfg.Kafka.SwapGroup, eBus, log)
	if err != nil {
		return err
	}
	prices := tracker.NewPrices(agg, cfg.Tracker.ChainID, oneinch.DefaultCurrency, cfg.Tracker.History, cfg.Tracker.Tokens...)
	srv := web.New(cfg.Web.Addr, web.Deps{
		Wallet:  wal,
		Network: node,
		Prices:  agg,
		History: prices,
		Limits:  limits,
	}, log)
	track := tracker.New(eBus, log).
		EmitEvery("volumes", time.Second, func(ctx context.Context) (any, error) {
			return event.VolumeUpdated{Volumes: vol.Stats()}, nil
		}).
		EmitEvery("prices", cfg.Tracker.Interval, prices.Poll)

	logEvents := tracker.LogEvents(log)
	eBus.
		Subscribe(event.StateSaved{}, logEvents).
		Subscribe(event.StateRestored{}, logEvents).
		Subscribe(event.SwapSkipped{}, logEvents).
		Subscribe(event.StateSaved{}, ebus.Typed(cons.Commit)).
		Subscribe(event.SwapRecorded{}, ebus.Typed(vol.HandleSwap)).
		Subscribe(event.VolumeUpdated{}, ebus.Typed(srv.UpdateVolumes)).
		Subscribe(event.PricesUpdated{}, ebus.Typed(srv.UpdatePrices))

	application := app.NewApp(log).
		WithService("volume", vol).
		WithService("consumer", cons).
		WithService("tracker", track).
		WithService("web", srv).
		WithService("limits", limits).
		WithService("interrupter", interrupter.New())

	if cfg.Demo {
		log.Warn("demo swaps enabled")
		application.WithService("demo", demo.NewGenerator(swapRepo, cfg.Tracker.ChainID,
			entity.Token{Address: entity.NativeToken, Symbol: "ETH", Decimals: 18},
			entity.Token{Address: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", Symbol: "USDC", Decimals: 6},
		))
	}

	return application.Run(context.Background())
}

func newLogger(cfg config.Log) *slog.Logger {
	level, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// tokenCache uses Redis when REDIS_ADDR is set and process memory otherwise.
func tokenCache(cfg config.Redis, log *slog.Logger) (wallet.TokenCache, func(), error) {
	if cfg.Addr == "" {
		return repository.NewMemoryTokens(cfg.TTL), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return repository.NewRedisTokens(client, cfg.TTL), func() {
		if err := client.Close(); err != nil {
			log.Warn("close redis", "err", err)
		}
	}, nil
}
