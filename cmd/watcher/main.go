package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/SoWrongImRight/solarweather-watcher/internal/adapter/http"
	kafkaadapter "github.com/SoWrongImRight/solarweather-watcher/internal/adapter/kafka"
	"github.com/SoWrongImRight/solarweather-watcher/internal/adapter/swpc"
	"github.com/SoWrongImRight/solarweather-watcher/internal/alert"
	"github.com/SoWrongImRight/solarweather-watcher/internal/config"
	"github.com/SoWrongImRight/solarweather-watcher/internal/domain"
	"github.com/SoWrongImRight/solarweather-watcher/internal/notify"
	"github.com/SoWrongImRight/solarweather-watcher/internal/observability"
	"github.com/SoWrongImRight/solarweather-watcher/internal/scheduler"
	"github.com/SoWrongImRight/solarweather-watcher/internal/score"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	client := swpc.NewClient(cfg, clock, logger)

	engine := score.NewEngine(score.Options{
		LatitudeFactor:     cfg.LatitudeFactor,
		ShortFuseBz:        cfg.ShortFuseBz,
		ShortFuseSpeed:     cfg.ShortFuseSpeed,
		SolarWindInterval:  cfg.SolarWindInterval,
		AlertFeedInterval:  cfg.AlertFeedInterval,
		KpForecastInterval: cfg.KpForecastInterval,
	}, clock, logger, metrics)

	machine := alert.NewMachine(alert.Options{
		Threshold:       cfg.LISThreshold,
		WarningCooldown: cfg.WarningCooldown,
		DailyReportHour: cfg.DailyReportHour,
		Location:        cfg.LocalTZ,
	}, clock, logger, metrics)

	var channels []notify.Channel
	if cfg.EmailEnabled() {
		channels = append(channels, notify.NewEmailChannel(
			cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom, cfg.EmailTo, cfg.SMTPTimeout))
		logger.Info("email channel enabled", "host", cfg.SMTPHost, "to", cfg.EmailTo)
	}
	if cfg.SMSEnabled() {
		channels = append(channels, notify.NewTwilioChannel(
			cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom, cfg.SMSTo, cfg.FetchTimeout))
		logger.Info("sms channel enabled", "to", cfg.SMSTo)
	}

	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled() {
		publisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaAlertTopic, logger)
		channels = append(channels, publisher)
		logger.Info("kafka alert export enabled", "topic", cfg.KafkaAlertTopic)
	}

	renderer := &notify.Renderer{
		Threshold:      cfg.LISThreshold,
		ShortFuseBz:    cfg.ShortFuseBz,
		ShortFuseSpeed: cfg.ShortFuseSpeed,
		Location:       cfg.LocalTZ,
	}
	dispatcher := notify.NewDispatcher(channels, renderer, clock, logger, metrics)

	sched := scheduler.New(scheduler.Options{
		Sources: []scheduler.Source{
			{Kind: domain.SourceSolarWind, Cadence: cfg.SolarWindInterval, Fetch: client.FetchSolarWind},
			{Kind: domain.SourceAlertFeed, Cadence: cfg.AlertFeedInterval, Fetch: client.FetchAlerts},
			{Kind: domain.SourceKpForecast, Cadence: cfg.KpForecastInterval, Fetch: client.FetchKpForecast},
		},
		DailyReportHour: cfg.DailyReportHour,
		Location:        cfg.LocalTZ,
	}, engine, machine, dispatcher, clock, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, engine, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	logger.Info("watcher starting",
		"latitude", cfg.Latitude,
		"latitude_factor", cfg.LatitudeFactor,
		"lis_threshold", cfg.LISThreshold,
		"tz", cfg.TZName,
	)
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
