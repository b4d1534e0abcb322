package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"licensecheck/internal/check"
	"licensecheck/internal/check/store"
	"licensecheck/internal/notify"
	"licensecheck/internal/platform/config"
	"licensecheck/internal/platform/redis"
)

// deps are the process-wide clients, each created once and handed to the
// components that need them.
type deps struct {
	agents   check.AgentStore
	history  check.HistoryStore
	notifier check.Notifier
	locker   check.Locker
	health   map[string]healthFunc
	closers  []func() error
	log      *slog.Logger
}

func buildDeps(ctx context.Context, cfg config.Server, log *slog.Logger) (*deps, error) {
	d := &deps{log: log, health: map[string]healthFunc{}}

	if err := d.buildStores(ctx, cfg); err != nil {
		d.close()
		return nil, err
	}
	if err := d.buildLocker(ctx, cfg); err != nil {
		d.close()
		return nil, err
	}
	d.buildNotifier(ctx, cfg)
	return d, nil
}

func (d *deps) buildStores(ctx context.Context, cfg config.Server) error {
	if cfg.DatabaseURL == "" {
		d.log.Warn("DATABASE_URL not set, using in-memory stores")
		mem := store.NewInMemory()
		d.agents, d.history = mem, mem
		return nil
	}

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	d.closers = append(d.closers, db.Close)
	if err := store.Migrate(ctx, db); err != nil {
		return err
	}
	pg := store.NewPostgres(db)
	d.agents, d.history = pg, pg
	d.health["postgres"] = pingDB(db)
	return nil
}

func (d *deps) buildLocker(ctx context.Context, cfg config.Server) error {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if client == nil {
		d.log.Info("REDIS_URL not set, sweep lock disabled")
		return nil
	}
	d.closers = append(d.closers, client.Close)
	d.locker = redis.NewLocker(client.Client)
	d.health["redis"] = client.Health
	return nil
}

// buildNotifier always logs alerts and additionally publishes them when
// brokers are configured. A broker that is down at startup is not fatal:
// kgo reconnects and failed publishes are logged per alert.
func (d *deps) buildNotifier(ctx context.Context, cfg config.Server) {
	notifiers := notify.Multi{notify.NewLogNotifier(d.log)}
	if len(cfg.Kafka.Brokers) > 0 {
		client, err := notify.NewKafkaClient(cfg.Kafka.Brokers, "licensecheck")
		if err != nil {
			d.log.Error("kafka client setup failed, alerts are log-only", "error", err)
		} else {
			d.closers = append(d.closers, closeKafka(client))
			if err := notify.EnsureTopic(ctx, client, cfg.Kafka.Topic, 3, 1); err != nil {
				d.log.Warn("could not ensure alert topic", "topic", cfg.Kafka.Topic, "error", err)
			}
			notifiers = append(notifiers, notify.NewKafkaNotifier(client, cfg.Kafka.Topic, d.log))
		}
	}
	d.notifier = notifiers
}

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.log.Warn("close failed", "error", err)
		}
	}
}

func pingDB(db *sql.DB) healthFunc {
	return db.PingContext
}

func closeKafka(client *kgo.Client) func() error {
	return func() error {
		client.Close()
		return nil
	}
}
