package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/nicholasjackson/env"
	"github.com/redis/go-redis/v9"

	"go-event-hub/internal/eventbus"
	"go-event-hub/internal/hub"
	"go-event-hub/internal/journal"
)

// Environment variables
var (
	redisAddr = env.String("REDIS_ADDR", false,
		"localhost:6379", "Address of the Redis server")
	redisPrefix = env.String("REDIS_PREFIX", false,
		eventbus.DefaultPrefix, "Prefix of the pub/sub channels")
	journalPrefix = env.String("JOURNAL_PREFIX", false,
		journal.DefaultPrefix, "Prefix of the journal keys")
	journalTTL = env.Duration("JOURNAL_TTL", false,
		0, "Expiry of journal entries (0 keeps them)")
	relayEvents = env.String("RELAY_EVENTS", true,
		"", "Comma-separated list of events to relay")
	logLevel = env.String("LOG_LEVEL", false,
		"info", "Log output level [trace, debug, info, warn, error]")
)

func main() {
	if err := env.Parse(); err != nil {
		hclog.Default().Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "eventhub-relay",
		Level: hclog.LevelFromString(*logLevel),
	})

	events := parseEvents(*relayEvents)
	if len(events) == 0 {
		logger.Error("RELAY_EVENTS names no events")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := &redis.Options{Addr: *redisAddr}
	bus := eventbus.NewRedisBus(opts, *redisPrefix, logger.Named("bus"))
	defer bus.Close()
	store := journal.NewRedisStore(opts, *journalPrefix, logger.Named("journal"))
	defer store.Close()

	h := hub.New(hub.WithLogger(logger.Named("hub")))
	for _, event := range events {
		journal.Track(ctx, h, store, event, *journalTTL)
		h.OnFunc(event, logEvent(logger, event))
	}

	relay := eventbus.NewRelay(h, bus, logger.Named("relay"))
	if err := relay.Listen(ctx, events...); err != nil {
		logger.Error("Unable to listen", "addr", *redisAddr, "error", err)
		os.Exit(1)
	}
	logger.Info("Relaying events", "addr", *redisAddr, "events", events, "relay", relay.ID())

	err := relay.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Relay stopped", "error", err)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := relay.Close(closeCtx); err != nil {
		logger.Error("Unable to close relay", "error", err)
	}
	logger.Info("Shutting down")
}

func parseEvents(s string) []string {
	var events []string
	for _, e := range strings.Split(s, ",") {
		if e = strings.TrimSpace(e); e != "" {
			events = append(events, e)
		}
	}
	return events
}

func logEvent(logger hclog.Logger, event string) hub.Handler {
	return func(_ *hub.Hub, args ...any) error {
		logger.Info("Event received", "event", event, "args", args)
		return nil
	}
}
