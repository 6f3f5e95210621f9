package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/9triver/zmqclient"
	"github.com/9triver/zmqclient/internal/metrics"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	var (
		configFile  string
		address     string
		heartbeat   bool
		flushOnExit bool
		metricsAddr string
	)

	rootCmd := &cobra.Command{
		Use:           "zmqclient-demo",
		Short:         "Interactive runner for a zmqclient Exporter or Heartbeat connection",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if address != "" {
				cfg.Address = address
			}
			if cmd.Flags().Changed("heartbeat") {
				cfg.Heartbeat = heartbeat
			}
			if cmd.Flags().Changed("flush-on-exit") {
				cfg.FlushOnExit = flushOnExit
			}
			if metricsAddr != "" {
				cfg.MetricsAddr = metricsAddr
			}
			return run(cfg)
		},
	}

	rootCmd.Flags().StringVar(&configFile, "config", "", "path to a YAML config file (optional)")
	rootCmd.Flags().StringVar(&address, "address", "", "server address, e.g. tcp://127.0.0.1:5555")
	rootCmd.Flags().BoolVar(&heartbeat, "heartbeat", false, "connect as a Heartbeat client instead of an Exporter")
	rootCmd.Flags().BoolVar(&flushOnExit, "flush-on-exit", false, "flush the outbound queue on shutdown instead of discarding it")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve /metrics on")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config) error {
	console := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo}))

	role := "exporter"
	if cfg.Heartbeat {
		role = "heartbeat"
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg, role)

	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
	go func() {
		console.Info("serving metrics", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			console.Error("metrics server stopped", "error", err)
		}
	}()

	client := zmqclient.New(cfg.Heartbeat,
		zmqclient.WithLogger(logrus.StandardLogger()),
		zmqclient.WithMetrics(collector),
	)
	client.SetFlushOnExit(cfg.FlushOnExit)
	client.SetCallback(func(payload []byte) {
		console.Info("received payload", "bytes", len(payload), "preview", previewPayload(payload))
	})

	console.Info("connecting", "address", cfg.Address, "role", role)
	client.Connect(cfg.Address)

	go readStdinAndSend(console, client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			console.Info("shutting down")
			client.SyncStop()
			_ = metricsServer.Close()
			return nil
		case <-ticker.C:
			if !client.Good() {
				console.Warn("worker stopped serving", "error", client.LastError())
				client.SyncStop()
				_ = metricsServer.Close()
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// readStdinAndSend turns each line typed at the console into an outbound
// payload, so the demo is interactively drivable without a second process.
func readStdinAndSend(console *slog.Logger, client *zmqclient.Client) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		client.Send([]byte(line))
		console.Info("queued payload", "bytes", len(line))
	}
}

func previewPayload(payload []byte) string {
	const max = 64
	if len(payload) <= max {
		return string(payload)
	}
	return string(payload[:max]) + "..."
}
