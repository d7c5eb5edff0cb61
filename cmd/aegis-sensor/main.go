package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "aegis-sensor",
	Short: "Signed telemetry publisher for simulated sensor fleets",
	Long: `aegis-sensor simulates a fleet of sensors and publishes each reading as a
signed binary frame to an OPC UA server, an MQTT broker or an in-memory store.

Examples:
  aegis-sensor run -c ./config.yaml --count 4 --first-id 100
  aegis-sensor validate -c ./config.yaml
  aegis-sensor stats --url http://localhost:9100/metrics --interval 1s
  aegis-sensor keygen --kind ecdsa --dir ./keys --name edge`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "aegis-sensor: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(keygenCmd)
}
