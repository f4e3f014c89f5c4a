package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/satriahrh/persona-chat/adapters/hasher"
	httpadapter "github.com/satriahrh/persona-chat/adapters/http"
	"github.com/satriahrh/persona-chat/adapters/llm"
	"github.com/satriahrh/persona-chat/adapters/metrics"
	"github.com/satriahrh/persona-chat/adapters/websocket"
	"github.com/satriahrh/persona-chat/config"
	"github.com/satriahrh/persona-chat/usecase"
	"github.com/satriahrh/persona-chat/utils/log"
)

func main() {
	root := &cobra.Command{
		Use:           "personachat",
		Short:         "Persona chat backend in front of a hosted LLM",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var configPath string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and websocket chat server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	serve.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	root.AddCommand(serve, newAskCommand())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "personachat:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	// .env is optional.
	_ = gotenv.Load()

	cfg, v, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log.SetLogger(logger)

	if f := v.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded", zap.String("source", f))
	}

	completer, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("creating completion client: %w", err)
	}

	svc := usecase.NewChatService(completer, hasher.New(), usecase.Options{
		Model:            cfg.LLM.Model,
		Persona:          cfg.Persona.Text,
		MaxContinuations: cfg.LLM.MaxContinuations,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(reg)

	// The websocket server and the HTTP handler share the reply path; the
	// handler in turn reports the hub's client count.
	var handler *httpadapter.ChatHandler
	wsServer := websocket.NewServer(ctx, func(ctx context.Context, message string) string {
		return handler.Reply(ctx, message)
	})
	handler = httpadapter.NewChatHandler(svc, httpadapter.HandlerOptions{
		Metrics:        recorder,
		Clients:        wsServer.GetHub(),
		RequestTimeout: cfg.LLM.RequestTimeout,
		Provider:       cfg.LLM.Provider,
		Model:          cfg.LLM.Model,
	})
	go wsServer.RunWebsocketHub()

	e := httpadapter.NewRouter(handler, httpadapter.RouterConfig{
		RateLimit: cfg.Server.RateLimit,
		BodyLimit: cfg.Server.BodyLimit,
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		WebSocket: wsServer.Handler,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", cfg.Server.Addr()),
			zap.String("provider", cfg.LLM.Provider),
			zap.String("model", cfg.LLM.Model),
		)
		errCh <- e.Start(cfg.Server.Addr())
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
