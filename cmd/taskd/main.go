package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/taskd-io/taskd/internal/api"
	"github.com/taskd-io/taskd/internal/classify"
	"github.com/taskd-io/taskd/internal/config"
	"github.com/taskd-io/taskd/internal/logbuf"
	"github.com/taskd-io/taskd/internal/provider"
	"github.com/taskd-io/taskd/internal/task"
)

func main() {
	configPath := flag.String("config", "", "Path to config JSON file")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	// Set up logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logBuf := logbuf.New(logbuf.DefaultSize)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logbuf.NewHandler(jsonHandler, logBuf))

	if err := config.LoadDotEnv(); err != nil {
		logger.Warn("ignoring .env", "error", err)
	}

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("taskd starting", "model", cfg.Provider.Model, "base_url", cfg.Provider.BaseURL)
	if cfg.Provider.APIKey == "" {
		logger.Warn("AIPROXY_TOKEN is not set; classification calls will be rejected")
	}

	// 1. Classification provider and media client share base URL and token.
	prov := provider.NewOpenAI(cfg.Provider.APIKey,
		provider.WithBaseURL(cfg.Provider.BaseURL),
		provider.WithModel(cfg.Provider.Model),
		provider.WithTimeout(cfg.ClassifyTimeout()),
	)
	media := provider.NewMediaClient(cfg.Provider.APIKey,
		provider.WithMediaBaseURL(cfg.Provider.BaseURL),
		provider.WithMediaModel(cfg.Provider.Model),
		provider.WithEmbeddingModel(cfg.Provider.EmbeddingModel),
		provider.WithMediaTimeout(cfg.MediaTimeout()),
	)

	// 2. Task catalog
	tasks := task.NewRegistry(logger.With("component", "tasks"), task.Builtin(task.Deps{
		Commands: &task.ExecRunner{
			WorkDir: cfg.Tasks.WorkDir,
			Timeout: cfg.CommandTimeout(),
		},
		Vision:        media,
		Embedder:      media,
		DatagenScript: cfg.Tasks.DatagenScript,
	})...)
	logger.Info("tasks registered", "count", tasks.Len(), "names", tasks.List())

	// 3. Classifier
	classifier := &classify.Classifier{
		Provider: prov,
		Catalog:  tasks,
		Model:    cfg.Provider.Model,
		Timeout:  cfg.ClassifyTimeout(),
		Logger:   logger.With("component", "classify"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. API server
	apiSrv := api.NewServer(classifier, tasks, api.Config{
		Host: cfg.API.Host,
		Port: cfg.API.Port,
	}, logger.With("component", "api"), logBuf)

	var srvErr error
	srvDone := make(chan struct{})
	go func() {
		defer close(srvDone)
		safeGo(logger, "api-server", func() { srvErr = apiSrv.Start(ctx) })
	}()

	// 5. Graceful shutdown: Start returns once in-flight requests drain.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
		<-srvDone
	case <-srvDone:
	}
	if srvErr != nil {
		logger.Error("api server stopped", "error", srvErr)
		os.Exit(1)
	}
	logger.Info("taskd stopped")
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}
