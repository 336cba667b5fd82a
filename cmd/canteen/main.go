package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"canteen-backend/internal/config"
	httpapi "canteen-backend/internal/order/api/http"
	"canteen-backend/pkg/logger"
)

func main() {
	mylog := logger.New("canteen-backend")

	if err := run(mylog); err != nil {
		mylog.Action("startup_failed").Error("Service failed", err)
		os.Exit(1)
	}
}

func run(mylog *logger.Logger) error {
	fs := flag.NewFlagSet("canteen", flag.ContinueOnError)
	configPath := fs.String("config-path", "config.yaml", "path to the yaml config")
	port := fs.Int("port", 0, "override the configured HTTP port")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return errors.New("cannot parse arguments")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port >= 65536 {
		return fmt.Errorf("port must be in [1, 65535]: %d", cfg.Server.Port)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := httpapi.NewServer(ctx, cfg, mylog)

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- server.Run()
	}()

	select {
	case <-ctx.Done():
		mylog.Action("shutdown_signal").Info("Shutdown signal received")
		return server.Stop(context.Background())
	case err := <-runErrCh:
		if err != nil {
			return err
		}
		mylog.Action("server_stopped").Info("Server exited normally")
		return nil
	}
}
