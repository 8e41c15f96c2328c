package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/capitalize-ai/localchat/internal/handler"
	"github.com/capitalize-ai/localchat/internal/middleware"
	"github.com/capitalize-ai/localchat/internal/server"
	"github.com/capitalize-ai/localchat/internal/service"
	"github.com/capitalize-ai/localchat/pkg/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runServe(serveCmd, args)
	}

	flags := serveCmd.Flags()
	flags.StringP("port", "p", "", "server port (overrides PORT)")
	flags.Bool("migrate", true, "apply database migrations before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.ServerPort = port
	}
	migrate, _ := cmd.Flags().GetBool("migrate")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting API server", zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "localchat", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	st, err := openStore(ctx, cfg, log, migrate)
	if err != nil {
		return err
	}
	defer st.Close()

	backend, closeBackend, err := newBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeBackend()

	checks := map[string]handler.Pinger{"store": st}
	var events service.EventPublisher
	natsClient, streams, err := connectEvents(ctx, cfg, log)
	if err != nil {
		return err
	}
	if natsClient != nil {
		defer natsClient.Close()
		events = streams
		checks["nats"] = natsClient
	}

	tokens := middleware.NewTokens(cfg.JWTSecret, cfg.JWTExpiration)
	router := server.NewRouter(server.Deps{
		Logger:             log,
		Tokens:             tokens,
		Users:              service.NewUserService(st, tokens, log),
		Conversations:      service.NewConversationService(st, events, log),
		Exchange:           service.NewExchangeService(st, backend, events, cfg.LLMTimeout, log),
		Models:             backend,
		DefaultModel:       cfg.DefaultModel,
		Checks:             checks,
		AuthRequired:       cfg.AuthRequired,
		RateLimitRequests:  cfg.RateLimitRequests,
		RateLimitWindow:    cfg.RateLimitWindow,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	// In-flight exchanges finish their backend call before the store closes.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.LLMTimeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}
