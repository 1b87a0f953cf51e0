package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cookiesolver/cookiesolver/internal/classifier/lmclient"
	"github.com/cookiesolver/cookiesolver/internal/classifier/pipeline"
	"github.com/cookiesolver/cookiesolver/internal/classifier/store"
	"github.com/cookiesolver/cookiesolver/internal/httpapi"
	"github.com/cookiesolver/cookiesolver/internal/logger"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the classifier pipeline's worker pool with an HTTP API front end",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.New(logger.Config{Level: cfg.Log.Level, Writer: cfg.Log.Writer, Path: cfg.Log.Path})

		st, err := store.Open(cfg.Store.Path, log)
		if err != nil {
			return err
		}
		defer st.Close()

		client := lmclient.New(cfg.AI.Provider, cfg.AI.Endpoint, cfg.AI.APIKey, cfg.AI.Model)
		p := pipeline.New(st, client, cfg.Classifier.WorkerThreads, cfg.Classifier.QueueCapacity, cfg.Classifier.QueriesPerMinute, log)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p.Start(ctx)
		defer p.Stop()

		server := &http.Server{Addr: listenAddr, Handler: httpapi.NewApp(p).WithLogger(log).Router()}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), pipeline.ShutdownGrace)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()

		log.Info("cookiesolver http api listening", "addr", listenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", ":8088", "HTTP listen address")
}
