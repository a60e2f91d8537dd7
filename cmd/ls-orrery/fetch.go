package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/litescript/ls-orrery/internal/ephem"
)

// newFetchCmd builds the fetch-ephemeris command, which queries Horizons
// once and writes the snapshot that the file source serves.
func newFetchCmd(v *viper.Viper) *cobra.Command {
	var (
		out     string
		baseURL string
		at      string
	)
	cmd := &cobra.Command{
		Use:   "fetch-ephemeris",
		Short: "Build an accurate-mode snapshot from JPL Horizons",
		RunE: func(cmd *cobra.Command, args []string) error {
			date := time.Now().UTC()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("parse --at: %w", err)
				}
				date = t.UTC()
			}
			if out == "" {
				out = v.GetString("ephemeris.path")
			}

			opts := []ephem.HorizonsOption{
				ephem.WithHorizonsHTTPClient(&http.Client{Timeout: v.GetDuration("ephemeris.timeout")}),
			}
			if baseURL != "" {
				opts = append(opts, ephem.WithBaseURL(baseURL))
			}
			started := time.Now()
			snap, err := ephem.NewHorizonsClient(opts...).Build(cmd.Context(), date)
			if err != nil {
				return err
			}
			if err := writeSnapshot(snap, out, cmd.OutOrStdout()); err != nil {
				return err
			}
			if out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bodies to %s in %s (valid %s)\n",
					len(snap.Bodies), out, time.Since(started).Round(time.Millisecond),
					humanize.Time(snap.ValidAt))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "", "output path, - for stdout (default: ephemeris.path)")
	f.StringVar(&baseURL, "horizons-url", "", "override the Horizons API endpoint")
	f.StringVar(&at, "at", "", "snapshot epoch (RFC 3339, default now)")
	return cmd
}

func writeSnapshot(snap *ephem.Snapshot, path string, stdout io.Writer) error {
	if path == "-" {
		return snap.Encode(stdout)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	// Write then rename so readers never see a partial file.
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	if err := snap.Encode(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
