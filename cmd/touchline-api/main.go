package main

import (
	"context"
	"log/slog"
	mathrand "math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"touchline/internal/api"
	"touchline/internal/config"
	"touchline/internal/events"
	"touchline/internal/league"
	"touchline/internal/market"
	"touchline/internal/notify"
	"touchline/internal/savefile"
	"touchline/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()
	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	rules, seeds, err := config.LoadMarket(cfg.RulesFile)
	if err != nil {
		logger.Error("load market rules", "path", cfg.RulesFile, "err", err)
		os.Exit(1)
	}

	var (
		persister market.Persister
		archive   api.TransferArchive
		pg        *store.Postgres
		state     market.State
		loaded    bool
	)
	if cfg.DatabaseURL != "" {
		pool, err := store.Connect(ctx, cfg.DatabaseURL, cfg.Pool)
		if err != nil {
			logger.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()
		pg = store.NewPostgres(pool, logger)
		if err := pg.RunMigrations(ctx); err != nil {
			logger.Error("migrations failed", "err", err)
			os.Exit(1)
		}
		if cfg.Reset {
			logger.Info("reset requested, seeding a new world over the stored snapshot")
		} else if state, loaded, err = pg.Load(ctx); err != nil {
			logger.Error("load state", "err", err)
			os.Exit(1)
		}
		persister, archive = pg, pg
	} else {
		var file *savefile.File
		if file, state, loaded, err = savefile.Open(cfg.SaveFile, cfg.Reset); err != nil {
			logger.Error("load save file", "path", cfg.SaveFile, "err", err)
			os.Exit(1)
		}
		persister = file
		logger.Info("using save file", "path", file.Path(), "reset", cfg.Reset)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	src := mathrand.New(mathrand.NewSource(seed))
	gen := market.NewGenerator(src)
	if !loaded {
		state = market.State{Week: 1, World: gen.SeedWorld(seeds, cfg.UserTeam, cfg.FreeAgents)}
		logger.Info("seeded new world", "teams", len(seeds), "user_team", cfg.UserTeam, "free_agents", cfg.FreeAgents)
	}

	calendar := league.NewCalendar(state.Week)
	svc := market.NewService(state, rules, calendar, logger)
	svc.SetRand(src)
	svc.SetGenerator(gen)
	svc.SetSeason(calendar.Season())
	svc.SetPersister(persister)

	feed := notify.NewFanout(logger, 100)
	if cfg.Notify.DiscordToken != "" {
		d, err := notify.NewDiscord(cfg.Notify.DiscordToken, cfg.Notify.DiscordChannelID)
		if err != nil {
			logger.Error("discord notifier", "err", err)
			os.Exit(1)
		}
		feed.Add(d)
	}
	if cfg.Notify.RedisAddr != "" {
		r, err := notify.NewRedis(ctx, cfg.Notify.RedisAddr, cfg.Notify.RedisPassword, cfg.Notify.RedisChannel)
		if err != nil {
			logger.Error("redis notifier", "err", err)
			os.Exit(1)
		}
		defer r.Close()
		feed.Add(r)
	}
	svc.SetNotifier(feed)

	if pg != nil {
		svc.AddHistorySink(pg)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		k, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			logger.Error("kafka publisher", "err", err)
			os.Exit(1)
		}
		defer k.Close()
		svc.AddHistorySink(k)
	}

	if !loaded {
		snap, err := svc.Snapshot()
		if err == nil {
			err = persister.Persist(ctx, snap)
		}
		if err != nil {
			logger.Error("persist seeded world", "err", err)
			os.Exit(1)
		}
	}

	server := api.New(cfg, logger, svc, calendar, feed, archive)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("touchline api listening", "addr", cfg.Addr, "week", calendar.CurrentWeek(), "user_team", svc.UserTeam())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
