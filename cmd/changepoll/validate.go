package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/njbennett/changepoll/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")

		cfg, err := config.LoadAndValidate(configPath)
		if err != nil {
			return err
		}

		fmt.Printf("config ok: instance=%s api=%s sink=%s budget=%d/day\n",
			cfg.Instance.ID,
			cfg.API.BaseURL,
			cfg.Dispatch.Sink,
			cfg.Budget.DailyCalls,
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}
