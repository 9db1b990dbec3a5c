package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/cbegin/alphatex-go"
)

func init() {
	playCmd.Flags().String("text", "", "Inline AlphaTex text")
	playCmd.Flags().Bool("events", false, "Input is a JSON event list written by translate")
	playCmd.Flags().Int("sample-rate", 48000, "Output sample rate")
	playCmd.Flags().Bool("loop", false, "Loop playback; use with --loops to count then stop")
	playCmd.Flags().Int("loops", 3, "With --loop, stop after N loops (0 = loop forever)")
	playCmd.Flags().Float64("volume", 1.0, "Master volume scalar")
	rootCmd.AddCommand(playCmd)
}

var playCmd = &cobra.Command{
	Use:   "play [file|-]",
	Short: "Play a preview of the score on the default audio device",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inline, _ := cmd.Flags().GetString("text")
		sampleRate, _ := cmd.Flags().GetInt("sample-rate")
		loop, _ := cmd.Flags().GetBool("loop")
		loops, _ := cmd.Flags().GetInt("loops")
		volume, _ := cmd.Flags().GetFloat64("volume")
		asJSON, _ := cmd.Flags().GetBool("events")

		src, err := readInput(firstArg(args), inline, cmd.InOrStdin())
		if err != nil {
			return err
		}
		events, err := loadEvents(src, asJSON)
		if err != nil {
			return err
		}

		pl, err := alphatex.NewPlayer(sampleRate, alphatex.WithLoopPlayback(loop))
		if err != nil {
			return err
		}
		pl.SetMasterVolume(volume)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		ch := pl.Watch()
		if err := pl.Play(events); err != nil {
			return err
		}
		logger.Info("playing",
			slog.Int("events", len(events)),
			slog.String("length", formatDuration(alphatex.EventsDuration(events))))

		err = followPlayback(ctx, cmd, pl, ch, loop, loops)
		logger.Debug("playback stopped",
			slog.String("rendered", formatDuration(framesDuration(int(pl.RenderedFrames()), sampleRate))))
		return err
	},
}

func followPlayback(ctx context.Context, cmd *cobra.Command, pl *alphatex.Player, ch <-chan alphatex.PlaybackEvent, loop bool, loops int) error {
	out := cmd.OutOrStdout()
	loopCount := 0
	for {
		select {
		case <-ctx.Done():
			return pl.Stop()
		case ev := <-ch:
			switch ev.Kind {
			case alphatex.EventPlaybackEnded:
				fmt.Fprintln(out, "playback completed")
				pl.Wait()
				return nil
			case alphatex.EventLoopCompleted:
				loopCount++
				fmt.Fprintf(out, "loop %d completed\n", loopCount)
				if loop && loops > 0 && loopCount >= loops {
					return pl.Stop()
				}
			}
		}
	}
}

func framesDuration(frames int, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(frames) / float64(sampleRate) * float64(time.Second))
}
