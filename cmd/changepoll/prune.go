package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/njbennett/changepoll/internal/config"
	"github.com/njbennett/changepoll/internal/database"
	"github.com/njbennett/changepoll/internal/state"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Prune old seen-set entries for a tenant",
	Long: `Prune seen-set entries first recorded before the retention window.

The seen-set otherwise grows without bound over a subscription's lifetime.
Pruning trades memory for dedup accuracy: an entity whose identifier is
pruned and which then reappears with a recent creation timestamp will be
classified as new again. Choose a window comfortably longer than the
remote API's own retention of entity history.`,
	RunE: runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)
	pruneCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	pruneCmd.Flags().StringP("tenant", "t", "", "tenant key (required)")
	pruneCmd.Flags().String("endpoint", "", "endpoint to prune (default: all configured endpoints)")
	pruneCmd.Flags().Duration("window", 90*24*time.Hour, "retention window")
	_ = pruneCmd.MarkFlagRequired("config")
	_ = pruneCmd.MarkFlagRequired("tenant")
}

func runPrune(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	tenantKey, _ := cmd.Flags().GetString("tenant")
	endpoint, _ := cmd.Flags().GetString("endpoint")
	window, _ := cmd.Flags().GetDuration("window")

	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	store := state.NewPostgresStore(pool)

	sub, err := store.GetSubscription(ctx, tenantKey)
	if err != nil {
		return fmt.Errorf("load subscription %s: %w", tenantKey, err)
	}

	endpoints := sub.Endpoints
	if endpoint != "" {
		endpoints = []string{endpoint}
	}

	cutoff := time.Now().UTC().Add(-window)
	var total int64
	for _, ep := range endpoints {
		removed, err := store.PruneSeen(ctx, tenantKey, ep, cutoff)
		if err != nil {
			return fmt.Errorf("prune %s/%s: %w", tenantKey, ep, err)
		}
		fmt.Printf("%s/%s: removed %d seen entries\n", tenantKey, ep, removed)
		total += removed
	}

	fmt.Printf("pruned %d entries older than %s\n", total, cutoff.Format(time.RFC3339))
	return nil
}
