package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ghalamif/aegis-sensor/pkg/aegissensor"
)

var runFlags struct {
	config     string
	sensors    []int32
	count      int
	firstID    int32
	passphrase string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start publishing until SIGINT or SIGTERM",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(runFlags.config)
		if err != nil {
			return err
		}

		rt, err := aegissensor.NewRuntime(cfg, aegissensor.WithPassphrase(cfg.Passphrase(runFlags.passphrase)))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return rt.Run(ctx)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate a config file without publishing",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(runFlags.config)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "config %s looks good: %d sensor(s) over %s\n",
			runFlags.config, len(cfg.SensorIDs()), cfg.Transport.Kind)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{runCmd, validateCmd} {
		c.Flags().StringVarP(&runFlags.config, "config", "c", "./config.yaml", "Path to configuration file")
		c.Flags().Int32SliceVar(&runFlags.sensors, "sensors", nil, "Explicit sensor ids, e.g. 1,2,3")
		c.Flags().IntVar(&runFlags.count, "count", 0, "Number of sensors with consecutive ids")
		c.Flags().Int32Var(&runFlags.firstID, "first-id", 1, "First sensor id when --count is used")
		c.MarkFlagsMutuallyExclusive("sensors", "count")
	}
	runCmd.Flags().StringVar(&runFlags.passphrase, "key-passphrase", "", "Passphrase for an encrypted key (default: $AEGIS_KEY_PASSPHRASE)")
}

func loadConfig(path string) (*aegissensor.Config, error) {
	cfg, err := aegissensor.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.OverrideSensors(runFlags.sensors, runFlags.count, runFlags.firstID); err != nil {
		return nil, err
	}
	return cfg, nil
}
