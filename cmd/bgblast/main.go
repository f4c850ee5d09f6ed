package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ekisa-team/bgblast/internal/backend"
	"github.com/ekisa-team/bgblast/internal/backend/onnx"
	"github.com/ekisa-team/bgblast/internal/cache"
	"github.com/ekisa-team/bgblast/internal/config"
	"github.com/ekisa-team/bgblast/internal/env"
	"github.com/ekisa-team/bgblast/internal/envvar"
	"github.com/ekisa-team/bgblast/internal/logger"
	"github.com/ekisa-team/bgblast/internal/matting"
	"github.com/ekisa-team/bgblast/internal/model"
	grpcserver "github.com/ekisa-team/bgblast/internal/server/grpc"
	httpserver "github.com/ekisa-team/bgblast/internal/server/http"
	"github.com/ekisa-team/bgblast/internal/service"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("bgblast exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		flagHTTPPort   = flag.Int("http-port", 0, "HTTP port to listen on (overrides config)")
		flagGRPCPort   = flag.Int("grpc-port", 0, "GRPC port to listen on (overrides config)")
		flagConfigPath = flag.String("config", path.Join(config.DefaultConfigPath(), "config.yaml"), "Path to config file")
		flagSchemaPath = flag.String("schema", "", "Path to schema file (empty uses the embedded schema)")
		flagNoInit     = flag.Bool("no-init", false, "Do not load a model at startup")
	)
	flag.Parse()

	environment := env.FromEnv()

	slog.SetDefault(
		logger.New(environment,
			logger.WithLogToFile(environment.IsProduction()),
			logger.WithLogFile("logs/bgblast.log"),
		),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var current atomic.Pointer[model.Manager]

	watcher, err := config.NewWatcher(*flagConfigPath, *flagSchemaPath, func(cfg *config.Config, err error) {
		manager := current.Load()
		if err != nil || manager == nil {
			return
		}

		if err := manager.Reconfigure(ctx, cfg); err != nil {
			slog.Error("Failed to apply reloaded config", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Close()

	cfg := watcher.Snapshot()
	slog.Info("Config loaded successfully", "config", *flagConfigPath, "schema", *flagSchemaPath)

	backends := backend.NewRegistry()
	if err := backends.Register(onnx.New(onnxRuntimeLib(cfg))); err != nil {
		return err
	}
	defer backends.Close()

	health := grpcserver.NewServer()

	manager := model.NewManager(cfg, model.NewSourceLoader(backends), model.WithOnReady(health.SetReady))
	defer manager.Close()
	current.Store(manager)

	results := cache.Connect(ctx, cfg.Cache)
	defer results.Close()

	svc := service.NewMatting(manager, matting.NewEngine(cfg.Inference.Timeout, matting.WithMaxPixels(cfg.Inference.MaxPixels)), results)

	serverCfg := cfg.Server
	if *flagHTTPPort > 0 {
		serverCfg.HTTPPort = *flagHTTPPort
	}
	if *flagGRPCPort > 0 {
		serverCfg.GRPCPort = *flagGRPCPort
	}

	httpSrv := httpserver.NewServer(environment, serverCfg, svc)

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		errCh <- httpSrv.ListenAndServe()
	}()
	go func() {
		defer wg.Done()
		errCh <- health.ListenAndServe(fmt.Sprintf(":%d", serverCfg.GRPCPort))
	}()

	if !*flagNoInit {
		go func() {
			if _, err := svc.InitializeModel(ctx, cfg.Inference.PreferredModel); err != nil {
				slog.Error("Startup model initialization failed", "error", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutting down")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, err)
	}
	health.GracefulStop()
	wg.Wait()

	return runErr
}

func onnxRuntimeLib(cfg *config.Config) string {
	if v := os.Getenv(envvar.BgblastOnnxRuntimeLib); v != "" {
		return v
	}
	return cfg.Inference.OnnxRuntimeLib
}
