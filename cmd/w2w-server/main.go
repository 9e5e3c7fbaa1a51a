package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"w2w-assistant-backend/internal/config"
	"w2w-assistant-backend/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:          "w2w-server",
		Short:        "W2W Eco-Assistant chat API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), v)
		},
	}

	flags := cmd.Flags()
	flags.StringP("port", "p", "", "listen port (env: PORT, default 5000)")
	flags.String("model", "", "model id (env: GEMINI_MODEL)")
	flags.String("prompt-file", "", "YAML prompt override (env: PROMPT_FILE)")
	flags.String("log-level", "", "log level trace|debug|info|warn|error (env: LOG_LEVEL)")
	flags.String("log-format", "", "log format console|json (env: LOG_FORMAT)")

	_ = v.BindPFlag("port", flags.Lookup("port"))
	_ = v.BindPFlag("gemini_model", flags.Lookup("model"))
	_ = v.BindPFlag("prompt_file", flags.Lookup("prompt-file"))
	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = v.BindPFlag("log_format", flags.Lookup("log-format"))
	return cmd
}

func run(ctx context.Context, v *viper.Viper) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Load(v)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	app, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().
		Str("addr", srv.Addr).
		Str("model", cfg.Model).
		Str("prompt", app.promptName).
		Bool("api_key_configured", cfg.GeminiAPIKey != "").
		Bool("fallback_enabled", cfg.FallbackEnabled).
		Str("cache", app.cacheKind).
		Msg("starting W2W Eco-Assistant server")

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
