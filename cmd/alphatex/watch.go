package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/bep/debounce"
	"github.com/spf13/cobra"
)

func init() {
	watchCmd.Flags().StringP("format", "f", "json", "Output format: json|midi")
	watchCmd.Flags().StringP("output", "o", "", "Output file (default <input>.json or <input>.mid)")
	watchCmd.Flags().Bool("indent", false, "Indent JSON output")
	watchCmd.Flags().Duration("interval", 250*time.Millisecond, "Polling interval")
	watchCmd.Flags().Duration("debounce", 200*time.Millisecond, "Quiet period before re-translating")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Re-translate a file whenever it changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		indent, _ := cmd.Flags().GetBool("indent")
		interval, _ := cmd.Flags().GetDuration("interval")
		quiet, _ := cmd.Flags().GetDuration("debounce")
		if format != "json" && format != "midi" {
			return fmt.Errorf("invalid --format %q (expected json|midi)", format)
		}
		if interval <= 0 {
			return errors.New("--interval must be positive")
		}
		if output == "" {
			ext := ".json"
			if format == "midi" {
				ext = ".mid"
			}
			output = outputPath(args[0], ext)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		w := &watcher{
			path:     args[0],
			interval: interval,
			rebuild: func() {
				if err := rebuild(args[0], output, format, indent); err != nil {
					logger.Error("translation failed", slog.String("path", args[0]), slog.Any("error", err))
					reportError(err)
				}
			},
		}
		return w.run(ctx, debounce.New(quiet))
	},
}

// watcher polls path and calls rebuild, through the debouncer, after
// every change of size or modification time.
type watcher struct {
	path     string
	interval time.Duration
	rebuild  func()
}

func (w *watcher) run(ctx context.Context, debounced func(func())) error {
	last, err := os.Stat(w.path)
	if err != nil {
		return err
	}
	logger.Info("watching", slog.String("path", w.path))
	debounced(w.rebuild)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fi, err := os.Stat(w.path)
			if err != nil {
				logger.Warn("stat failed", slog.String("path", w.path), slog.Any("error", err))
				continue
			}
			if fi.ModTime().Equal(last.ModTime()) && fi.Size() == last.Size() {
				continue
			}
			last = fi
			logger.Debug("change detected", slog.String("path", w.path))
			debounced(w.rebuild)
		}
	}
}

func rebuild(in, out, format string, indent bool) error {
	src, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	res, err := newTranslator().Translate(src)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := writeResult(&buf, res, format, indent); err != nil {
		return err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return err
	}
	logger.Info("translated",
		slog.String("path", out),
		slog.Int("events", len(res.Events)))
	return nil
}
