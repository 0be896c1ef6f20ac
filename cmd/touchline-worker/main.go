package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"touchline/internal/cli"
	"touchline/internal/config"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()
	cfg, err := config.LoadWorkerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	client := cli.NewClient(cfg.APIBaseURL)

	if cfg.RunOnce {
		if err := advance(ctx, client, logger); err != nil {
			logger.Error("advance failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		logger.Error("create scheduler", "err", err)
		os.Exit(1)
	}
	_, err = s.NewJob(
		gocron.DurationJob(cfg.WeekEvery),
		gocron.NewTask(func() {
			if err := advance(ctx, client, logger); err != nil {
				logger.Error("advance failed", "err", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		logger.Error("schedule weekly advance", "err", err)
		os.Exit(1)
	}

	s.Start()
	logger.Info("worker started", "week_every", cfg.WeekEvery.String(), "api", cfg.APIBaseURL)
	<-ctx.Done()
	if err := s.Shutdown(); err != nil {
		logger.Error("scheduler shutdown", "err", err)
	}
	logger.Info("worker shutdown")
}

// advance moves the league one week forward through the API, which owns the
// market state.
func advance(ctx context.Context, client *cli.Client, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	reqID := uuid.NewString()
	out, err := client.AdvanceWeek(ctx, reqID)
	if err != nil {
		return fmt.Errorf("advance week (request %s): %w", reqID, err)
	}
	accepted := 0
	for _, res := range out.Report.Resolutions {
		if res.Accepted {
			accepted++
		}
	}
	logger.Info("week advanced",
		"request_id", reqID,
		"week", out.Calendar.Week,
		"season", out.Calendar.Season,
		"generated", out.Report.Generated,
		"resolved", len(out.Report.Resolutions),
		"transfers", accepted,
		"expired", len(out.Report.Expired),
	)
	return nil
}
