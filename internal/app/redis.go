package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"busticket/internal/config"
	"busticket/pkg/logger"
)

const slowRedisCommand = 100 * time.Millisecond

// NewRedisClient connects to Redis and installs the command hook that traces
// commands in New Relic (when nrApp is set) and logs failing or slow ones.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, nrApp *newrelic.Application, log logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	client.AddHook(&commandHook{app: nrApp, log: log, slow: slowRedisCommand})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// commandHook implements redis.Hook.
type commandHook struct {
	app  *newrelic.Application
	log  logger.Logger
	slow time.Duration
}

func (h *commandHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *commandHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		collection := keyCollection(cmd)
		defer h.segment(ctx, cmd.Name(), collection)()

		start := time.Now()
		err := next(ctx, cmd)
		h.observe(cmd.Name(), collection, time.Since(start), err)
		return err
	}
}

func (h *commandHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		defer h.segment(ctx, "pipeline", "redis")()

		start := time.Now()
		err := next(ctx, cmds)
		h.observe(fmt.Sprintf("pipeline(%d)", len(cmds)), "redis", time.Since(start), err)
		return err
	}
}

// segment starts a New Relic datastore segment and returns its end func.
func (h *commandHook) segment(ctx context.Context, operation, collection string) func() {
	if h.app == nil {
		return func() {}
	}
	txn := newrelic.FromContext(ctx)
	if txn == nil {
		return func() {}
	}
	s := newrelic.DatastoreSegment{
		StartTime:  txn.StartSegmentNow(),
		Product:    newrelic.DatastoreRedis,
		Operation:  operation,
		Collection: collection,
	}
	return s.End
}

func (h *commandHook) observe(operation, collection string, elapsed time.Duration, err error) {
	switch {
	case err != nil && !errors.Is(err, redis.Nil):
		h.log.Warn("redis command failed", "operation", operation, "collection", collection, "error", err)
	case elapsed > h.slow:
		h.log.Warn("slow redis command", "operation", operation, "collection", collection, "elapsed", elapsed)
	}
}

// keyCollection names the key family a command touches: "cache:bus:7" is
// "bus", "lock:idempotency:..." is "lock" and "idempotency:..." is
// "idempotency".
func keyCollection(cmd redis.Cmder) string {
	args := cmd.Args()
	if len(args) < 2 {
		return "redis"
	}
	key, ok := args[1].(string)
	if !ok || key == "" {
		return "redis"
	}
	parts := strings.SplitN(key, ":", 3)
	if parts[0] == "cache" && len(parts) > 2 {
		return parts[1]
	}
	if len(parts) == 1 {
		return "redis"
	}
	return parts[0]
}
