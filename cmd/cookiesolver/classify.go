package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cookiesolver/cookiesolver/internal/classifier/lmclient"
	"github.com/cookiesolver/cookiesolver/internal/classifier/store"
	"github.com/cookiesolver/cookiesolver/internal/logger"
)

var forceRefresh bool

var classifyCmd = &cobra.Command{
	Use:   "classify [name] [domain]",
	Short: "Classify a single cookie name via the AI query cache, blocking on a cache miss",
	Args:  cobra.ExactArgs(2),
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

		name, domain := args[0], args[1]

		if !forceRefresh {
			if d, ok, err := st.Resolve(name); err != nil {
				return err
			} else if ok {
				fmt.Printf("cache hit: %+v\n", d)
				return nil
			}
		}

		client := lmclient.New(cfg.AI.Provider, cfg.AI.Endpoint, cfg.AI.APIKey, cfg.AI.Model)
		d, raw, err := client.Classify(context.Background(), name, domain)
		if err != nil {
			return err
		}
		if err := st.UpsertDescriptor(d); err != nil {
			return err
		}
		if err := st.CacheAIResponse(name, domain, raw); err != nil {
			log.Warn("failed to cache raw LM response", "error", err.Error())
		}
		fmt.Printf("classified: %+v\n", d)
		return nil
	},
}

var testConnCmd = &cobra.Command{
	Use:   "test-connection",
	Short: "Verify the configured LM endpoint is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client := lmclient.New(cfg.AI.Provider, cfg.AI.Endpoint, cfg.AI.APIKey, cfg.AI.Model)
		if err := client.TestConnection(context.Background()); err != nil {
			return fmt.Errorf("connection test failed: %w", err)
		}
		fmt.Println("ok")
		return nil
	},
}

func init() {
	classifyCmd.Flags().BoolVar(&forceRefresh, "force-refresh", false, "bypass the store cache check")
	classifyCmd.AddCommand(testConnCmd)
}
