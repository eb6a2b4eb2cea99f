package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/songzhibin97/prospector/internal/configs"
	"github.com/songzhibin97/prospector/internal/server"
)

var (
	flagconf string

	level = new(slog.LevelVar)

	// 日志写到 stderr, stdout 留给 score/report 的 JSON 输出
	log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
	}))
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "prospector",
		Short:         "Crypto wallet mortgage prospecting service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flagconf, "conf", "", "config path, eg: --conf config.yaml")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	scoreCmd := &cobra.Command{
		Use:   "score <address>",
		Short: "Score one wallet and print the result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runScore,
	}

	reportCmd := &cobra.Command{
		Use:   "report <address>",
		Short: "Generate a prospect report for one wallet",
		Args:  cobra.ExactArgs(1),
		RunE:  runReport,
	}
	reportCmd.Flags().Bool("draft", false, "Attach an AI outreach draft (requires ai_config.api_key)")

	rootCmd.AddCommand(serveCmd, scoreCmd, reportCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error("command failed", "err", err)
		os.Exit(1)
	}
}

// loadConfig 加载配置并应用日志级别和代理
func loadConfig() (*configs.Config, error) {
	config, err := configs.Load(flagconf)
	if err != nil {
		return nil, err
	}

	if err := level.UnmarshalText([]byte(strings.ToLower(config.Server.LogLevel))); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	if config.Proxy != "" {
		_ = os.Setenv("HTTP_PROXY", config.Proxy)
		_ = os.Setenv("HTTPS_PROXY", config.Proxy)
		log.Debug("set proxy ok", "proxy", config.Proxy)
	}

	return config, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, config, log)
	if err != nil {
		return err
	}
	defer a.Close()

	router := server.NewRouter(a.service, log, server.Options{
		Metrics:  a.metrics.Handler(),
		Observer: a.metrics,
	})

	srv := &http.Server{
		Addr:         config.Server.Addr,
		Handler:      router,
		ReadTimeout:  config.Server.ReadTimeout(),
		WriteTimeout: config.Server.WriteTimeout(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", config.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

func runScore(cmd *cobra.Command, args []string) error {
	address, err := addressArg(args)
	if err != nil {
		return err
	}

	config, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := buildApp(cmd.Context(), config, log)
	if err != nil {
		return err
	}
	defer a.Close()

	score, err := a.service.ScoreForMortgage(cmd.Context(), address)
	if err != nil {
		return err
	}
	return printJSON(cmd, score)
}

func runReport(cmd *cobra.Command, args []string) error {
	address, err := addressArg(args)
	if err != nil {
		return err
	}
	draft, _ := cmd.Flags().GetBool("draft")

	config, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := buildApp(cmd.Context(), config, log)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.service.GenerateProspectReport(cmd.Context(), address, draft)
	if err != nil {
		return err
	}
	return printJSON(cmd, report)
}

func addressArg(args []string) (string, error) {
	address := strings.TrimSpace(args[0])
	if !server.ValidAddress(address) {
		return "", fmt.Errorf("invalid Ethereum address format: %s", address)
	}
	return address, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
