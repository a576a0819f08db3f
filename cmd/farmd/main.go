package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/renderfarm/framefarm/internal/config"
	"github.com/renderfarm/framefarm/internal/daemon"
)

func main() {
	configPath := flag.String("config", "/etc/framefarm/config.yaml", "path to farmd config file")
	pidPath := flag.String("pid-file", "/var/run/framefarm/farmd.pid", "path to farmd pid file")
	flag.Parse()

	if err := run(*configPath, *pidPath); err != nil {
		fmt.Fprintf(os.Stderr, "farmd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, pidPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	d, err := daemon.New(cfg, pidPath)
	if err != nil {
		return fmt.Errorf("initialize daemon: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("farmd: received %s, shutting down", sig)
		d.Shutdown()
	}()

	return d.Start(ctx)
}
