package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kilianp07/fleetmaint/api/maintenance"
	"github.com/kilianp07/fleetmaint/app/plugins"
	"github.com/kilianp07/fleetmaint/config"
	coremetrics "github.com/kilianp07/fleetmaint/core/metrics"
	coremon "github.com/kilianp07/fleetmaint/core/monitoring"
	"github.com/kilianp07/fleetmaint/core/prediction"
	"github.com/kilianp07/fleetmaint/core/prediction/audit"
	"github.com/kilianp07/fleetmaint/core/scheduler"
	"github.com/kilianp07/fleetmaint/infra/logger"
	"github.com/kilianp07/fleetmaint/infra/metrics"
	inframon "github.com/kilianp07/fleetmaint/infra/monitoring"
	"github.com/kilianp07/fleetmaint/infra/mqtt"
	"github.com/kilianp07/fleetmaint/infra/store"
	"github.com/kilianp07/fleetmaint/internal/eventbus"
)

// busBuffer is sized so that a batch prediction over a large fleet reaches
// the audit recorder without drops.
const busBuffer = 1024

// Service hosts the maintenance API, the MQTT telemetry ingestion and the
// metrics pipeline around one Fleet.
type Service struct {
	Fleet  *Fleet
	Engine *prediction.Engine
	// Retrain is nil unless periodic retraining is configured.
	Retrain *scheduler.Scheduler

	cfg   *config.Config
	store store.Store
	audit audit.Store
	sink  coremetrics.MetricsSink
	bus   *eventbus.Bus
	// audited is closed once the audit recorder has drained the bus.
	audited <-chan struct{}
	client  *mqtt.PahoClient
	server  *http.Server
	log     logger.Logger
}

// New builds a Service from the configuration. Nothing is started until Run.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	st, err := store.New(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	svc := &Service{cfg: cfg, store: st, log: logg, bus: eventbus.NewWithBuffer(busBuffer)}

	auditStore, err := plugins.NewAuditStore(cfg.Audit)
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("audit store: %w", err)
	}
	svc.audit = auditStore
	if auditStore != nil {
		svc.audited = audit.StartRecorder(context.Background(), svc.bus, auditStore, logger.New("audit"))
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	svc.sink = sink

	engine := prediction.NewEngineFromConfig(cfg.Engine, logger.New("prediction"))
	engine.SetEventBus(svc.bus)
	svc.Engine = engine

	svc.Fleet = NewFleet(st, engine, logger.New("fleet"))
	svc.Fleet.SetEventBus(svc.bus)

	if cfg.Retrain.Enabled() {
		svc.Retrain = scheduler.New(cfg.Retrain, svc.Fleet, logger.New("retrain"))
	}

	opts := []maintenance.Option{
		maintenance.WithToken(cfg.HTTP.Token),
		maintenance.WithLogger(logger.New("api")),
	}
	if auditStore != nil {
		opts = append(opts, maintenance.WithAuditStore(auditStore))
	}
	if cfg.HTTP.Metrics {
		opts = append(opts, maintenance.WithMetricsHandler(promhttp.Handler()))
	}
	svc.server = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           maintenance.NewServer(svc.Fleet, opts...),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return svc, nil
}

// Handler returns the HTTP handler of the maintenance API.
func (s *Service) Handler() http.Handler { return s.server.Handler }

// Run seeds the store, starts ingestion and serves HTTP until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	defer coremon.Recover()

	if s.cfg.SeedFile != "" {
		n, err := s.seed(ctx, s.cfg.SeedFile)
		if err != nil {
			return err
		}
		s.log.Infof("seeded %d vehicles from %s", n, s.cfg.SeedFile)
	}

	collected := metrics.StartEventCollector(ctx, s.bus, s.sink, logger.New("metrics"))

	if s.cfg.MQTT.Enabled() {
		if err := s.startMQTT(); err != nil {
			s.bus.Close()
			<-collected
			return err
		}
	}

	if s.Retrain != nil {
		go s.Retrain.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		runErr = fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.HTTP.ShutdownSeconds)*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log.Warnf("http shutdown: %v", err)
	}
	if s.client != nil {
		s.client.Disconnect()
	}
	s.bus.Close()
	<-collected
	return runErr
}

func (s *Service) seed(ctx context.Context, path string) (int, error) {
	snaps, err := store.LoadSnapshots(path)
	if err != nil {
		return 0, fmt.Errorf("load seed file: %w", err)
	}
	for _, snap := range snaps {
		if err := s.Fleet.Upsert(ctx, snap, SourceFile); err != nil {
			return 0, fmt.Errorf("seed %s: %w", snap.VehicleID, err)
		}
	}
	return len(snaps), nil
}

func (s *Service) startMQTT() error {
	client, err := mqtt.NewPahoClient(s.cfg.MQTT)
	if err != nil {
		return fmt.Errorf("mqtt client: %w", err)
	}
	s.client = client
	if s.cfg.MQTT.PredictionTopic != "" {
		s.Fleet.SetPublisher(client)
	}
	if err := client.SubscribeTelemetry(s.Fleet.HandleTelemetry); err != nil {
		return fmt.Errorf("subscribe telemetry: %w", err)
	}
	s.log.Infof("ingesting telemetry from %s", s.cfg.MQTT.TelemetryTopic)
	return nil
}

// Close releases the stores and flushes error reports. Pending audit records
// are written before the audit store is closed.
func (s *Service) Close() error {
	var errs []error
	s.bus.Close()
	if s.audited != nil {
		<-s.audited
	}
	if s.audit != nil {
		errs = append(errs, s.audit.Close())
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}
