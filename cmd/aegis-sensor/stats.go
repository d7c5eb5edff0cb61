package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
)

var statsFlags struct {
	url      string
	interval time.Duration
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Poll the Prometheus endpoint and print live counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		if statsFlags.interval <= 0 {
			return fmt.Errorf("--interval must be positive, got %s", statsFlags.interval)
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		ticker := time.NewTicker(statsFlags.interval)
		defer ticker.Stop()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Streaming metrics from %s (Ctrl+C to stop)\n", statsFlags.url)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := printMetricsSnapshot(ctx, out, statsFlags.url); err != nil {
					fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
				}
			}
		}
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsFlags.url, "url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	statsCmd.Flags().DurationVar(&statsFlags.interval, "interval", 2*time.Second, "Refresh interval")
}

var statsTargets = []struct {
	metric string
	label  string
}{
	{"aegis_publishers_running", "running"},
	{"aegis_frames_published_total", "published"},
	{"aegis_sign_failures_total", "sign_fail"},
	{"aegis_write_failures_total", "write_fail"},
	{"aegis_reconnects_total", "reconnects"},
	{"aegis_journal_queue_length", "journal_q"},
}

func printMetricsSnapshot(ctx context.Context, w io.Writer, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	values, err := scrapeValues(resp.Body)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "[%s]", time.Now().Format(time.RFC3339))
	for _, t := range statsTargets {
		fmt.Fprintf(w, " %s=%g", t.label, values[t.metric])
	}
	fmt.Fprintln(w)
	return nil
}

// scrapeValues sums counter and gauge samples per family from a text exposition.
func scrapeValues(r io.Reader) (map[string]float64, error) {
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return nil, fmt.Errorf("parse metrics: %w", err)
	}

	out := make(map[string]float64, len(statsTargets))
	for _, t := range statsTargets {
		mf, ok := families[t.metric]
		if !ok {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue() + m.GetGauge().GetValue()
		}
		out[t.metric] = sum
	}
	return out, nil
}
