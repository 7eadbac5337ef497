package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/merabytes/acido/pkg/metrics"
	"github.com/merabytes/acido/pkg/remote"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON remote request endpoint and metrics/health server",
	Long: `Starts the Remote Request Handler as an HTTP endpoint so another
process can drive acido (fleet, run, ls, rm, ip_create, ip_ls, ip_rm) over
JSON instead of the CLI, alongside a Prometheus metrics server and
health/readiness/liveness probes. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := loadDeps()
		if err != nil {
			return withExitCode(1, err)
		}

		remoteAddr, _ := cmd.Flags().GetString("remote-addr")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		requestTimeout, _ := cmd.Flags().GetDuration("request-timeout")

		handler := remote.New(d.controller, d.network, d.cfg.DefaultRegion)
		router := remote.NewRouter(handler, requestTimeout)

		var remoteReady atomic.Bool
		health := &healthServer{deps: d, startTime: time.Now(), ready: remoteReady.Load}

		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metrics.Handler())
		metricsMux.HandleFunc("/health", health.healthHandler())
		metricsMux.HandleFunc("/ready", health.readyHandler())
		metricsMux.HandleFunc("/live", health.liveHandler())
		metricsSrv := &http.Server{Addr: metricsAddr, Handler: metricsMux}
		remoteSrv := &http.Server{Addr: remoteAddr, Handler: router}

		errCh := make(chan error, 2)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
		go func() {
			if err := remoteSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("remote server: %w", err)
			}
		}()

		time.Sleep(200 * time.Millisecond)
		remoteReady.Store(true)

		fmt.Printf("✓ Remote request endpoint: http://%s\n", remoteAddr)
		fmt.Printf("✓ Metrics endpoint:        http://%s/metrics\n", metricsAddr)
		fmt.Printf("✓ Health endpoints:        http://%s/health, /ready, /live\n", metricsAddr)
		fmt.Println("Serving. Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
		case err := <-errCh:
			fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = remoteSrv.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)

		fmt.Println("✓ Shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("remote-addr", "127.0.0.1:8088", "Listen address for the JSON remote request endpoint")
	serveCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Listen address for the metrics and health endpoints")
	serveCmd.Flags().Duration("request-timeout", 30*time.Second, "Per-request timeout for the remote endpoint")
	rootCmd.AddCommand(serveCmd)
}
