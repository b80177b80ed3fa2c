// Command shmrpc-server is the server process of spec.md §6: it
// parses -t and --shutdown, installs signal handlers, and runs the
// dispatcher until asked to stop.
package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/localipc/shmrpc/internal/singleton"
	"github.com/localipc/shmrpc/internal/workerpool"
	"github.com/localipc/shmrpc/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	threads := flag.Int("t", 0, "threads per pool (default: auto, from host core count)")
	shutdownMode := flag.String("shutdown", "drain", "shutdown mode: drain|immediate")
	listenAddr := flag.String("listen", "", "address to serve /metrics and /live on (default: disabled)")
	flag.Parse()

	mode, err := parseShutdownMode(*shutdownMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "shmrpc-server:", err)
		return 1
	}

	cfg := server.DefaultConfig()
	cfg.ShutdownMode = mode
	if *threads > 0 {
		cfg.MathThreads = *threads
		cfg.StringThreads = *threads
	}
	registry := prometheus.NewRegistry()
	cfg.MetricsRegisterer = registry

	d, err := server.New(cfg)
	if err != nil {
		if errors.Is(err, singleton.ErrAlreadyRunning) {
			fmt.Fprintln(os.Stderr, "shmrpc-server: another instance is already running")
		} else {
			fmt.Fprintln(os.Stderr, "shmrpc-server: startup failed:", err)
		}
		return 1
	}

	var httpServer *http.Server
	if *listenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		mux.Handle("/live", d.HealthHandler())
		httpServer = &http.Server{Addr: *listenAddr, Handler: mux}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fmt.Fprintln(os.Stderr, "shmrpc-server: http server:", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)

	runErr := make(chan error, 1)
	go func() { runErr <- d.Run() }()

	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGUSR1:
				fmt.Println(d.StatusLine())
				continue
			default:
				if httpServer != nil {
					_ = httpServer.Close()
				}
				if err := d.Shutdown(mode); err != nil {
					fmt.Fprintln(os.Stderr, "shmrpc-server: shutdown:", err)
					return 1
				}
				return 0
			}
		case err := <-runErr:
			if err != nil {
				fmt.Fprintln(os.Stderr, "shmrpc-server: dispatch loop:", err)
				return 1
			}
			return 0
		}
	}
}

func parseShutdownMode(s string) (workerpool.ShutdownMode, error) {
	switch s {
	case "drain":
		return workerpool.Drain, nil
	case "immediate":
		return workerpool.Immediate, nil
	default:
		return 0, fmt.Errorf("invalid --shutdown value %q (want drain|immediate)", s)
	}
}
