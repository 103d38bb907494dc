// Command meshd runs an MLE mesh node as a standalone service.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/kardianos/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nodecore/mle/internal/meshd"
)

func main() {
	var (
		configPath  = flag.String("config", "/etc/meshd/meshd.yaml", "path to the meshd configuration file")
		metricsAddr = flag.String("metrics", "", "address to serve Prometheus metrics on, empty disables it")
		action      = flag.String("service", "", "service control action: install, uninstall, start, stop, or empty to run in the foreground")
	)
	flag.Parse()

	prog, err := meshd.New(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "meshd:", err)
		os.Exit(1)
	}

	svcConfig := &service.Config{
		Name:        "meshd",
		DisplayName: "MLE mesh node",
		Description: "Runs an 802.15.4 Mesh Link Establishment node.",
		Arguments:   []string{"-config", *configPath},
	}

	svc, err := service.New(prog, svcConfig)
	if err != nil {
		fmt.Fprintln(os.Stderr, "meshd: creating service:", err)
		os.Exit(1)
	}

	if *action != "" {
		if err = service.Control(svc, *action); err != nil {
			fmt.Fprintln(os.Stderr, "meshd:", err)
			os.Exit(1)
		}
		return
	}

	if *metricsAddr != "" {
		go serveMetrics(prog, *metricsAddr)
	}

	if err = svc.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "meshd:", err)
		os.Exit(1)
	}
}

func serveMetrics(prog *meshd.Program, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(prog.Registry(), promhttp.HandlerOpts{}))

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("metrics server stopped", "error", err)
	}
}
