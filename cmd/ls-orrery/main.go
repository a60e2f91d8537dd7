// Command ls-orrery runs the scale-spanning orrery simulation with a
// terminal view, a headless loop, or a WebSocket bridge for browser
// renderers.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/litescript/ls-orrery/internal/config"
	"github.com/litescript/ls-orrery/internal/version"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := newRootCmd(config.NewViper()).ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"quality":          "quality",
	"profile":          "profile",
	"seed":             "seed",
	"seed-preset":      "seed_preset",
	"static":           "static_frame",
	"no-autorotate":    "", // inverted below
	"worker-clouds":    "worker_clouds",
	"position-mode":    "position_mode",
	"data-mode":        "data_mode",
	"ephemeris-source": "ephemeris.source",
	"ephemeris-url":    "ephemeris.url",
	"ephemeris-path":   "ephemeris.path",
	"bench":            "benchmark.enabled",
	"bench-duration":   "benchmark.duration",
	"serve":            "bridge.addr",
	"metrics-addr":     "metrics.addr",
	"log-level":        "log_level",
	"layers":           "layers_file",
	"telemetry-db":     "telemetry.sqlite_path",
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	var (
		cfgPath string
		opts    runOptions
	)

	cmd := &cobra.Command{
		Use:          "ls-orrery",
		Short:        "Solar system, galaxy and universe orrery",
		Version:      version.Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if noSpin, _ := cmd.Flags().GetBool("no-autorotate"); noSpin {
				v.Set("autorotate", false)
			}
			cfg, err := config.Load(v, cfgPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfgPath, "config", "", "config file (yaml)")
	f.String("quality", "auto", "quality tier: auto, ultraLow, low, medium, high")
	f.String("profile", "optimized", "render profile: optimized or legacy")
	f.Int64("seed", 0, "scene seed (0 = unseeded)")
	f.String("seed-preset", "", "named scene seed preset")
	f.Bool("static", false, "freeze all motion")
	f.Bool("no-autorotate", false, "disable idle camera rotation")
	f.Bool("worker-clouds", true, "build point clouds on a background worker")
	f.String("position-mode", "sim", "initial position mode: sim or live")
	f.String("data-mode", "educational", "initial data mode: educational or accurate")
	f.String("ephemeris-source", config.SourceFile, "accurate snapshot source: file, http or horizons")
	f.String("ephemeris-url", "", "snapshot URL for the http source")
	f.String("ephemeris-path", "data/ephemeris/latest.json", "snapshot path for the file source")
	f.Bool("bench", false, "run the benchmark and report the result")
	f.Duration("bench-duration", 0, "benchmark sampling window")
	f.String("serve", "", "serve the WebSocket bridge on this address (e.g. :8080)")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address")
	f.String("log-level", "info", "log level (debug, info, warn, error)")
	f.String("layers", "", "scale layers file (yaml)")
	f.String("telemetry-db", "", "append telemetry events to this SQLite file")
	f.BoolVar(&opts.headless, "headless", false, "run without the terminal view")
	f.DurationVar(&opts.runFor, "run-for", 0, "stop after this long (headless)")
	f.StringVar(&opts.logFile, "log-file", "", "write logs here while the terminal view is up")

	bindFlags(v, cmd)
	cmd.AddCommand(newFetchCmd(v))
	return cmd
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	for name, key := range flagKeys {
		if key == "" {
			continue
		}
		// Only explicitly set flags override file and environment values.
		fl := cmd.Flags().Lookup(name)
		if err := v.BindPFlag(key, fl); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}
