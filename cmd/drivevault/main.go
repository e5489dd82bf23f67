package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/drivevault/drivevault/internal/logger"
	httpadapter "github.com/drivevault/drivevault/pkg/adapter/http"
	"github.com/drivevault/drivevault/pkg/config"
	"github.com/drivevault/drivevault/pkg/drive"
	"github.com/drivevault/drivevault/pkg/gc"
	"github.com/drivevault/drivevault/pkg/metrics"
	"github.com/drivevault/drivevault/pkg/quota"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "drivevault: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := config.SetupLogging(&cfg.Logging); err != nil {
		return err
	}
	config.SetupMetrics(&cfg.Metrics)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("DriveVault starting")

	cat, err := config.CreateCatalog(ctx, &cfg.Catalog)
	if err != nil {
		return err
	}
	defer func() {
		if err := cat.Close(); err != nil {
			logger.Error("Failed to close catalog: %v", err)
		}
	}()

	blobs, err := config.CreateBlobStore(ctx, &cfg.Blob)
	if err != nil {
		return err
	}

	// One metrics instance shared across components: the instruments
	// register once against the write-once registry.
	driveMetrics := metrics.NewDriveMetrics()

	service := drive.NewService(drive.ServiceConfig{
		Catalog:           cat,
		Blobs:             blobs,
		Quota:             quota.NewAccountant(cat, cfg.Drive.QuotaBytes),
		Metrics:           driveMetrics,
		MaxUploadBytes:    cfg.Drive.MaxUploadBytes,
		BlockedExtensions: cfg.Drive.BlockedExtensions,
	})

	collector := gc.NewCollector(cat, blobs, driveMetrics, cfg.GC)
	collector.Start()

	server := httpadapter.NewServer(service, cat, cfg.HTTP)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel()
		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error: %v", err)
		}
	case err := <-serverDone:
		if err != nil {
			logger.Error("Server error: %v", err)
		}
		cancel()
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stopCancel()
	if err := collector.Stop(stopCtx); err != nil {
		logger.Warn("Garbage collector did not stop cleanly: %v", err)
	}

	logger.Info("DriveVault stopped")
	return nil
}
