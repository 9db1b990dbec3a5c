package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cbegin/alphatex-go"
)

// logger is replaced by initLogger once flags are parsed.
var logger = slog.Default()

var sentryEnabled bool

var rootCmd = &cobra.Command{
	Use:   "alphatex",
	Short: "AlphaTex score translator",
	Long: "alphatex translates AlphaTex score notation into pitch/duration events " +
		"and writes them as JSON or MIDI, renders or plays a preview, or serves translations over HTTP.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().Bool("debug", false, "Debug logging")
	rootCmd.PersistentFlags().Int("fallback-tempo", alphatex.FallbackTempo, "Tempo used when the document declares none")
	rootCmd.PersistentFlags().Int("parallelism", 1, "Number of staves flattened concurrently")
	rootCmd.PersistentFlags().String("sentry-dsn", "", "Sentry DSN for error reporting (disabled if empty)")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("fallback_tempo", rootCmd.PersistentFlags().Lookup("fallback-tempo"))
	_ = viper.BindPFlag("parallelism", rootCmd.PersistentFlags().Lookup("parallelism"))
	_ = viper.BindPFlag("sentry_dsn", rootCmd.PersistentFlags().Lookup("sentry-dsn"))
}

func initConfig() {
	// A missing .env is fine.
	_ = godotenv.Load()
	viper.SetEnvPrefix("ALPHATEX")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func setup(cmd *cobra.Command, args []string) error {
	initLogger(viper.GetBool("debug"))

	dsn := viper.GetString("sentry_dsn")
	if dsn == "" {
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		return fmt.Errorf("initializing sentry: %w", err)
	}
	sentryEnabled = true
	logger.Debug("sentry enabled")
	return nil
}

// initLogger installs a text slog handler on stderr at info or debug level.
func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

func newTranslator() *alphatex.Translator {
	return alphatex.NewTranslator(
		alphatex.WithFallbackTempo(viper.GetInt("fallback_tempo")),
		alphatex.WithParallelism(viper.GetInt("parallelism")),
		alphatex.WithLogger(logger.With(slog.String("component", "translator"))),
	)
}

// reportError forwards err to sentry when it is configured.
func reportError(err error) {
	if !sentryEnabled {
		return
	}
	sentry.CaptureException(err)
	sentry.Flush(2 * time.Second)
}

func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", slog.Any("error", err))
		reportError(err)
		return 1
	}
	return 0
}
