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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	chiTransport "github.com/kailas-cloud/jobmatch/internal/transport/chi"
	corpusuc "github.com/kailas-cloud/jobmatch/internal/usecase/corpus"
	healthuc "github.com/kailas-cloud/jobmatch/internal/usecase/health"
	"github.com/kailas-cloud/jobmatch/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the recommendation HTTP API",
	RunE: func(_ *cobra.Command, _ []string) error {
		return serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() error {
	cfg, logger, env, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting jobmatch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("index_backend", cfg.Index.Backend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	p, err := d.buildPipeline()
	if err != nil {
		return err
	}

	// The API starts even when the first load fails; the refresher retries
	// and /health reports the corpus as not loaded meanwhile.
	if _, err := p.refresher.Refresh(ctx); err != nil {
		logger.Error("Initial corpus load failed", zap.Error(err))
	}
	go p.refresher.Run(ctx, cfg.Index.RefreshInterval())

	var classifierCheck healthuc.Checker
	if p.classifierCheck != nil {
		classifierCheck = p.classifierCheck
	}
	healthSvc := healthuc.New(d.store, p.holder, d.provider, classifierCheck)
	corpusSvc := corpusuc.New(d.corpus, d.docEmbedder, nil, corpusuc.Options{Backend: cfg.Index.Backend}, logger)

	server := chiTransport.NewServer(
		p.recommend, p.holder, p.refresher, corpusSvc, healthSvc,
		chiTransport.Options{
			APIKeys:      cfg.Auth.APIKeys,
			Backend:      cfg.Index.Backend,
			MaxBodyBytes: 2*int64(cfg.Ranking.MaxResumeBytes) + 4096,
		},
		logger,
	)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Routes(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}
