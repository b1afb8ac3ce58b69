// cmd/replicator/main.go
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/tamzrod/opcua-replicator/internal/api"
	"github.com/tamzrod/opcua-replicator/internal/config"
	"github.com/tamzrod/opcua-replicator/internal/logging"
	"github.com/tamzrod/opcua-replicator/internal/metrics"
	"github.com/tamzrod/opcua-replicator/internal/poller"
	"github.com/tamzrod/opcua-replicator/internal/writer"
	"github.com/tamzrod/opcua-replicator/internal/writer/mqtt"
)

func main() {
	cfgPath := flag.String("config", "", "path to config.yaml")
	envFile := flag.String("env", ".env.local", "dotenv file with overrides (optional)")
	flag.Parse()

	boot := logging.New("info", "console", os.Stderr)

	if *cfgPath == "" {
		boot.Fatal().Msg("usage: replicator -config <config.yaml> [-env <file>]")
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		boot.Fatal().Err(err).Msg("config load failed")
	}

	if err := config.LoadEnvFiles(*envFile); err != nil {
		boot.Fatal().Err(err).Msg("env file load failed")
	}
	if err := config.ApplyEnv(cfg, os.Getenv); err != nil {
		boot.Fatal().Err(err).Msg("env override failed")
	}

	config.Normalize(cfg)

	if err := config.Validate(cfg); err != nil {
		boot.Fatal().Err(err).Msg("config validation failed")
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)

	// --------------------
	// Metrics
	// --------------------

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.New(reg)

	// --------------------
	// Engine
	// --------------------

	reports := make(chan poller.CycleReport, 16)

	eng, mgr, err := poller.Build(cfg, log,
		poller.WithObserver(collector),
		poller.WithReports(reports),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("poller build failed")
	}

	// --------------------
	// Sinks (Modbus mirror, MQTT) + status
	// --------------------

	plan, err := writer.BuildPlan(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("writer plan failed")
	}

	clients, closeWriters, err := writer.BuildEndpointClients(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("writer clients failed")
	}
	defer closeWriters()

	var sinks []writer.Sink
	if len(plan.Targets) > 0 {
		sinks = append(sinks, writer.New(plan, clients))
	}

	if m := cfg.MQTT; m != nil {
		pub, err := mqtt.Connect(mqtt.Config{
			Broker:      m.Broker,
			ClientID:    m.ClientID,
			Username:    m.Username,
			Password:    m.Password,
			TopicPrefix: m.TopicPrefix,
			Format:      m.Format,
			QoS:         m.QoS,
			Retained:    m.Retained,
		}, logging.Component(log, "mqtt"))
		if err != nil {
			log.Fatal().Err(err).Msg("mqtt connect failed")
		}
		defer pub.Close()
		sinks = append(sinks, pub)
	}

	var statusWriter writer.StatusWriter
	if sw, enabled := writer.NewDeviceStatusWriter(plan, clients); enabled {
		statusWriter = sw
	}

	dispatcher := writer.NewDispatcher(logging.Component(log, "dispatcher"), statusWriter, sinks...)

	// --------------------
	// Run
	// --------------------

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := eng.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("engine start failed")
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx, reports)
	}()

	if cfg.HTTP.Listen != "" {
		srv := api.NewServer(cfg.HTTP.Listen, api.Deps{
			Values:   eng.Cache(),
			Engine:   eng,
			Device:   dispatcher,
			Gatherer: reg,
		}, logging.Component(log, "api"))

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx); err != nil {
				log.Error().Err(err).Msg("http api stopped")
				stop()
			}
		}()
	}

	log.Info().
		Str("endpoint", cfg.Source.Endpoint).
		Int("tags", len(cfg.Tags)).
		Int("sinks", len(sinks)).
		Msg("replicator running")

	<-ctx.Done()
	shutdown(log, eng, &wg)

	if n := mgr.Open(); n != 0 {
		log.Warn().Int("open_sessions", n).Msg("sessions left open at exit")
	}
}

func shutdown(log zerolog.Logger, eng *poller.Engine, wg *sync.WaitGroup) {
	log.Info().Msg("shutting down")
	eng.Stop()
	wg.Wait()
	log.Info().Msg("stopped")
}
