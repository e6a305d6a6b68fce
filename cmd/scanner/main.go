package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sdm-scanner/internal/tasks"
)

func main() {
	var opts tasks.Options
	var interval string
	flag.StringVar(&opts.ConfigPath, "config", "", "path to YAML config (optional)")
	flag.StringVar(&opts.Resource, "resource", "", "VISA resource, e.g. TCPIP::192.168.1.100::5025::SOCKET")
	flag.BoolVar(&opts.Simulate, "sim", false, "use the built-in simulator instead of hardware")
	flag.StringVar(&interval, "interval", "", "scan interval override (e.g. 2s)")
	flag.BoolVar(&opts.Single, "once", false, "run a single scan and exit")
	flag.BoolVar(&opts.StorageEnabled, "store", false, "persist readings to the history database")
	flag.StringVar(&opts.StoragePath, "db", "", "history database path (implies -store)")
	flag.StringVar(&opts.ReportPath, "report", "", "CSV report path")
	flag.Parse()

	if interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			log.Fatalf("bad interval %q: %v", interval, err)
		}
		opts.Interval = d
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigCh
		log.Printf("received signal: %v, shutting down...", s)
		cancel()
	}()

	if err := tasks.InitAndRunScanner(ctx, opts); err != nil {
		log.Fatalf("scanner exited with error: %v", err)
	}
}
