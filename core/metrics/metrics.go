// Package metrics exposes Prometheus collectors for the bot runtime and an
// optional HTTP listener serving them.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/arcanumbot/core/logger"
)

var (
	// UpdatesTotal counts inbound Telegram updates by kind (message, callback, other).
	UpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcanumbot_updates_total",
			Help: "Inbound updates",
		},
		[]string{"kind"},
	)

	// TransitionsTotal counts dialogue state transitions.
	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcanumbot_dialogue_transitions_total",
			Help: "Dialogue state transitions",
		},
		[]string{"from", "to"},
	)

	// ValidationFailuresTotal counts rejected user input by field.
	ValidationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcanumbot_validation_failures_total",
			Help: "Rejected user input",
		},
		[]string{"field"},
	)

	// DocumentsTotal counts document deliveries by lookup result.
	DocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcanumbot_documents_total",
			Help: "Document lookups and deliveries",
		},
		[]string{"result"},
	)

	// SendFailuresTotal counts outbound calls that failed after all attempts.
	SendFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcanumbot_send_failures_total",
			Help: "Failed outbound Telegram calls",
		},
		[]string{"error_kind"},
	)
)

func init() {
	prometheus.MustRegister(
		UpdatesTotal,
		TransitionsTotal,
		ValidationFailuresTotal,
		DocumentsTotal,
		SendFailuresTotal,
	)
}

// Serve exposes /metrics on listen until ctx is done. An empty listen address disables it.
func Serve(ctx context.Context, listen string) error {
	if listen == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info(ctx, "metrics", "listen",
		slog.String("status", "ok"),
		slog.String("listen", listen),
	)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics: shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics: listen %s: %w", listen, err)
	}
}
