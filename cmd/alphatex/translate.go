package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cbegin/alphatex-go"
)

func init() {
	translateCmd.Flags().StringP("format", "f", "json", "Output format: json|midi")
	translateCmd.Flags().StringP("output", "o", "", "Output file (default stdout for json, <input>.mid for midi)")
	translateCmd.Flags().String("text", "", "Inline AlphaTex text")
	translateCmd.Flags().Bool("indent", false, "Indent JSON output")
	rootCmd.AddCommand(translateCmd)
}

var translateCmd = &cobra.Command{
	Use:   "translate [file|-]",
	Short: "Translate AlphaTex into JSON events or a MIDI file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTranslate,
}

func runTranslate(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	inline, _ := cmd.Flags().GetString("text")
	indent, _ := cmd.Flags().GetBool("indent")

	format = strings.ToLower(strings.TrimSpace(format))
	if format != "json" && format != "midi" {
		return fmt.Errorf("invalid --format %q (expected json|midi)", format)
	}

	src, err := readInput(firstArg(args), inline, cmd.InOrStdin())
	if err != nil {
		return err
	}
	res, err := newTranslator().Translate(src)
	if err != nil {
		return err
	}

	if format == "midi" && output == "" {
		output = outputPath(firstArg(args), ".mid")
	}

	toFile := output != "" && output != "-"
	if !toFile {
		return writeResult(cmd.OutOrStdout(), res, format, indent)
	}
	if err := writeFile(output, res, format, indent); err != nil {
		return err
	}
	logger.Info("wrote output",
		slog.String("path", output),
		slog.String("format", format),
		slog.Int("events", len(res.Events)))
	return nil
}

// writeFile encodes res into path, reporting close errors too.
func writeFile(path string, res *alphatex.Result, format string, indent bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	if err := writeResult(f, res, format, indent); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}
	return nil
}

// writeResult encodes res in format to w.
func writeResult(w io.Writer, res *alphatex.Result, format string, indent bool) error {
	if format == "midi" {
		return res.WriteMIDI(w)
	}
	return res.WriteJSON(w, indent)
}
