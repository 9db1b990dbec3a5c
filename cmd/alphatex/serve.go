package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cbegin/alphatex-go"
)

const maxRequestBytes = 4 << 20

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	serveCmd.Flags().StringSlice("allowed-origins", []string{"*"}, "CORS allowed origins")
	_ = viper.BindPFlag("addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("allowed_origins", serveCmd.Flags().Lookup("allowed-origins"))
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve translations over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := viper.GetString("addr")
		srv := &http.Server{
			Addr:              addr,
			Handler:           newHandler(newTranslator(), viper.GetStringSlice("allowed_origins")),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		logger.Info("listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

type server struct {
	translator *alphatex.Translator
}

type errorResponse struct {
	Error  string `json:"error"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

func newHandler(t *alphatex.Translator, origins []string) http.Handler {
	s := &server{translator: t}
	router := mux.NewRouter().StrictSlash(true)
	router.Use(requestID)
	router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	router.HandleFunc("/translate", s.handleTranslate).Methods("POST")

	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
	})
	return c.Handler(router)
}

type ctxKey struct{}

// requestID tags every request with a uuid and a logger carrying it.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		l := logger.With(slog.String("request_id", id))
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, l)))
	})
}

func requestLogger(r *http.Request) *slog.Logger {
	if l, ok := r.Context().Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return logger
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	start := time.Now()

	transaction := sentry.StartTransaction(r.Context(), "alphatex.translate")
	defer transaction.Finish()

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	transaction.SetTag("format", format)
	if format != "json" && format != "midi" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid format %q (expected json|midi)", format))
		return
	}

	src, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}

	res, err := s.translator.Translate(src)
	if err != nil {
		transaction.SetTag("success", "false")
		log.Info("translation rejected", slog.Any("error", err))
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var buf bytes.Buffer
	if err := writeResult(&buf, res, format, false); err != nil {
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		log.Error("encoding failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	transaction.SetTag("success", "true")
	transaction.SetData("events", len(res.Events))

	if format == "midi" {
		w.Header().Set("Content-Type", "audio/midi")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	_, _ = w.Write(buf.Bytes())

	log.Info("translated",
		slog.String("format", format),
		slog.Int("events", len(res.Events)),
		slog.Duration("elapsed", time.Since(start)))
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := errorResponse{Error: err.Error()}
	resp.Line, resp.Column = errorPosition(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// errorPosition returns the source line and column carried by a
// translation error, or zeros.
func errorPosition(err error) (line, col int) {
	var (
		lexErr    *alphatex.LexError
		syntaxErr *alphatex.SyntaxError
		durErr    *alphatex.UnresolvedDurationError
		pitchErr  *alphatex.InvalidPitchError
	)
	switch {
	case errors.As(err, &lexErr):
		return lexErr.Pos.Line, lexErr.Pos.Column
	case errors.As(err, &syntaxErr):
		return syntaxErr.Pos.Line, syntaxErr.Pos.Column
	case errors.As(err, &durErr):
		return durErr.Pos.Line, durErr.Pos.Column
	case errors.As(err, &pitchErr):
		return pitchErr.Pos.Line, pitchErr.Pos.Column
	}
	return 0, 0
}
