package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/webhost/internal/domain/lifecycle"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/infrastructure/server"
	"github.com/GriffinCanCode/AgentOS/webhost/internal/providers/headless"
)

func main() {
	mode := flag.String("mode", "headless", "Run mode: headless or gateway")
	configPath := flag.String("config", "", "Host profile (.toml, .yaml)")
	port := flag.String("port", "", "Gateway port (overrides config)")
	contentURL := flag.String("url", "", "Content URL (overrides config)")
	dev := flag.Bool("dev", false, "Development logging")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *contentURL != "" {
		cfg.Content.URL = *contentURL
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewFor(cfg.Logging.Level, cfg.Logging.Development)
	defer func() { _ = logger.Sync() }()

	metrics := monitoring.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "headless":
		err = runHeadless(ctx, *cfg, logger, metrics)
	case "gateway":
		err = server.NewServer(*cfg, logger, metrics).Run(ctx)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		logger.Error("Host stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func runHeadless(ctx context.Context, cfg config.Config, logger *logging.Logger, metrics *monitoring.Metrics) error {
	log := logger.Component("host")

	loop := lifecycle.NewLoop(logger.Component("loop"))
	shell := headless.New(headless.Options{
		Fetcher: headless.NewFetcher(headless.DefaultUserAgent, metrics),
		Logger:  logger.Component("shell"),
		Metrics: metrics,
	})
	defer shell.Close()
	splash := headless.NewSplash(logger.Component("loading"))

	ctrl, err := lifecycle.New(cfg, lifecycle.Deps{
		Shell:      shell,
		Surface:    splash,
		Dispatcher: loop,
		Logger:     logger.Component("lifecycle"),
		Metrics:    metrics,
	})
	if err != nil {
		return err
	}
	defer ctrl.Close()
	shell.Attach(ctrl)

	loopDone := make(chan error, 1)
	go func() { loopDone <- loop.Run(ctx) }()

	if err := ctrl.Start(); err != nil {
		return err
	}
	log.Info("Content host started", zap.String("url", cfg.Content.URL), zap.String("loading_mode", cfg.Presentation.Mode))

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGCONT, syscall.SIGUSR1, syscall.SIGHUP)
	defer signal.Stop(sigs)

	for {
		select {
		case sig := <-sigs:
			switch sig {
			case syscall.SIGCONT:
				ctrl.ApplicationBecameActive()
			case syscall.SIGUSR1:
				ctrl.AudioInterruptionEnded()
			case syscall.SIGHUP:
				ctrl.Reconnect()
			}
		case <-ctx.Done():
			log.Info("Content host stopping", zap.Any("state", ctrl.Snapshot()))
			<-loopDone
			return nil
		}
	}
}
