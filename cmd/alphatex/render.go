package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cbegin/alphatex-go"
)

func init() {
	renderCmd.Flags().StringP("output", "o", "", "Output WAV file (default <input>.wav)")
	renderCmd.Flags().String("text", "", "Inline AlphaTex text")
	renderCmd.Flags().Bool("events", false, "Input is a JSON event list written by translate")
	renderCmd.Flags().Int("sample-rate", 48000, "Output sample rate")
	renderCmd.Flags().Float64("max-seconds", 0, "Stop rendering after this many seconds (0 = whole score)")
	rootCmd.AddCommand(renderCmd)
}

var renderCmd = &cobra.Command{
	Use:   "render [file|-]",
	Short: "Render a preview of the score to a WAV file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		inline, _ := cmd.Flags().GetString("text")
		sampleRate, _ := cmd.Flags().GetInt("sample-rate")
		maxSeconds, _ := cmd.Flags().GetFloat64("max-seconds")
		asJSON, _ := cmd.Flags().GetBool("events")
		if sampleRate <= 0 {
			return fmt.Errorf("invalid --sample-rate %d", sampleRate)
		}

		src, err := readInput(firstArg(args), inline, cmd.InOrStdin())
		if err != nil {
			return err
		}
		events, err := loadEvents(src, asJSON)
		if err != nil {
			return err
		}
		if output == "" {
			output = outputPath(firstArg(args), ".wav")
		}

		samples := alphatex.RenderSamples(events, sampleRate, maxSeconds)
		wav := alphatex.EncodeWAVFloat32LE(samples, sampleRate, 2)
		if err := os.WriteFile(output, wav, 0o644); err != nil {
			return fmt.Errorf("writing wav: %w", err)
		}
		logger.Info("rendered wav",
			slog.String("path", output),
			slog.String("size", humanize.Bytes(uint64(len(wav)))),
			slog.String("length", formatDuration(framesDuration(len(samples)/2, sampleRate))))
		return nil
	},
}
