package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/globeview/internal/czml"
	"github.com/signalsfoundry/globeview/internal/dynamic"
	"github.com/signalsfoundry/globeview/internal/logging"
	"github.com/signalsfoundry/globeview/internal/observability"
	"github.com/signalsfoundry/globeview/internal/orbit"
	"github.com/signalsfoundry/globeview/internal/sceneapi"
	"github.com/signalsfoundry/globeview/internal/viewer"
)

// Config holds the scene server settings.
type Config struct {
	GRPCAddress    string
	HTTPAddress    string
	MetricsAddress string
	ViewerConfig   string
	DocumentPath   string
	TLEPath        string

	// TrackStart is the first sample time of TLE tracks; now when zero.
	TrackStart  time.Time
	ServiceName string
}

func main() {
	var cfg Config
	flag.StringVar(&cfg.GRPCAddress, "grpc-addr", ":50051", "TCP address the SceneService gRPC server listens on")
	flag.StringVar(&cfg.HTTPAddress, "http-addr", ":8080", "TCP address of the HTTP ingest API")
	flag.StringVar(&cfg.MetricsAddress, "metrics-addr", ":9090", "HTTP address for Prometheus /metrics")
	flag.StringVar(&cfg.ViewerConfig, "config", "", "Path to a YAML viewer configuration")
	flag.StringVar(&cfg.DocumentPath, "document", "", "Scene document loaded at startup (.czml, .msgpack, optionally .zst)")
	flag.StringVar(&cfg.TLEPath, "tle", "", "Two-line element file whose satellites are added at startup")
	flag.StringVar(&cfg.ServiceName, "service-name", "globeview-scene-server", "Service name used in traces")
	trackStart := flag.String("track-start", "", "RFC 3339 start of TLE tracks (default now)")
	flag.Parse()

	log := logging.NewFromEnv()
	if *trackStart != "" {
		t, err := time.Parse(time.RFC3339, *trackStart)
		if err != nil {
			log.Error(context.Background(), "invalid -track-start", logging.Err(err))
			os.Exit(2)
		}
		cfg.TrackStart = t.UTC()
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddress)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.GRPCAddress), logging.Err(err))
		os.Exit(1)
	}
	httpLis, err := net.Listen("tcp", cfg.HTTPAddress)
	if err != nil {
		log.Error(ctx, "failed to listen for HTTP", logging.String("addr", cfg.HTTPAddress), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, grpcLis, httpLis); err != nil {
		log.Error(ctx, "scene server exited", logging.Err(err))
		os.Exit(1)
	}
}

// run serves until ctx is done.
func run(ctx context.Context, cfg Config, log logging.Logger, grpcLis, httpLis net.Listener) error {
	reg := prometheus.NewRegistry()
	apiMetrics, err := observability.NewAPICollector(reg)
	if err != nil {
		return fmt.Errorf("api metrics: %w", err)
	}
	sceneMetrics, err := observability.NewSceneCollector(reg)
	if err != nil {
		return fmt.Errorf("scene metrics: %w", err)
	}
	metricsSrv := serveMetrics(cfg.MetricsAddress, apiMetrics, log)

	vcfg := viewer.DefaultConfig()
	if cfg.ViewerConfig != "" {
		if vcfg, err = viewer.LoadConfigFile(cfg.ViewerConfig); err != nil {
			return err
		}
	}
	v, err := viewer.New(vcfg, viewer.WithLogger(log), viewer.WithMetrics(sceneMetrics))
	if err != nil {
		return err
	}
	defer v.Destroy()

	start := cfg.TrackStart
	if start.IsZero() {
		start = time.Now().UTC()
	}
	packets, err := startupPackets(cfg, start)
	if err != nil {
		return err
	}
	if len(packets) > 0 {
		if _, err := v.LoadDocument(ctx, packets); err != nil {
			log.Warn(ctx, "startup document loaded with errors", logging.Err(err))
		}
	}

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			sceneapi.RequestIDUnaryServerInterceptor(log),
			sceneapi.TracingUnaryServerInterceptor(),
			apiMetrics.UnaryServerInterceptor(),
		),
	)
	sceneapi.RegisterSceneServiceServer(server, sceneapi.NewSceneService(v, log))

	httpSrv := &http.Server{
		Handler: sceneapi.NewRouter(cfg.ServiceName, v,
			sceneapi.WithHTTPLogger(log),
			sceneapi.WithHTTPMetrics(apiMetrics),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	log.Info(ctx, "starting SceneService gRPC server", logging.String("addr", grpcLis.Addr().String()))
	go func() {
		if err := server.Serve(grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc: %w", err)
		}
	}()
	log.Info(ctx, "starting HTTP ingest API", logging.String("addr", httpLis.Addr().String()))
	go func() {
		if err := httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	runCtx, cancelRun := context.WithCancel(ctx)
	frames := make(chan struct{})
	go func() {
		_ = v.Run(runCtx)
		close(frames)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	log.Info(context.Background(), "shutting down scene server")
	cancelRun()
	<-frames
	server.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return serveErr
}

// startupPackets reads the configured document and TLE file.
func startupPackets(cfg Config, now time.Time) ([]dynamic.Packet, error) {
	var packets []dynamic.Packet
	if cfg.DocumentPath != "" {
		doc, err := czml.DecodeFile(cfg.DocumentPath)
		if err != nil {
			return nil, err
		}
		packets = append(packets, doc...)
	}
	if cfg.TLEPath != "" {
		sats, err := orbit.ParseTLEFile(cfg.TLEPath)
		if err != nil {
			return nil, err
		}
		tracks, err := orbit.Packets(sats, orbit.DefaultOptions(now))
		if err != nil {
			return nil, err
		}
		packets = append(packets, tracks...)
	}
	return packets, nil
}

func serveMetrics(addr string, collector *observability.APICollector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
