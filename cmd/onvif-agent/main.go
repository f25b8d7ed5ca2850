package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	onvif "github.com/SridarDhandapani/onvif-media"
	"github.com/SridarDhandapani/onvif-media/internal/api"
	"github.com/SridarDhandapani/onvif-media/internal/config"
	"github.com/SridarDhandapani/onvif-media/store"
)

func main() {
	var path string
	flag.StringVar(&path, "config", "", "Path to the YAML config")
	flag.Parse()

	cfg, err := config.Load(path)
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("[agent] config")
	}

	log := config.NewLogger(cfg.Log)
	onvif.SetLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("[agent] exit")
	}
	log.Info().Msg("[agent] stopped")
}

// run serves the API described by cfg until ctx is done
func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	client := onvif.NewClientWithTimeout(cfg.SOAP.Timeout)
	client.InsecureTLS = cfg.SOAP.InsecureTLS
	client.HTTPDigest = cfg.SOAP.HTTPDigest

	var st onvif.Store = store.NewMemoryStore()
	if cfg.Store.Path != "" {
		st = store.NewFileStore(cfg.Store.Path)
	}

	server := api.NewServer(client, st, onvif.DiscoveryOptions{
		Timeout:        cfg.Discovery.Timeout,
		MulticastAddr:  cfg.Discovery.MulticastAddr,
		ReceiveTimeout: cfg.Discovery.ReceiveTimeout,
	}, log)

	return server.Run(ctx, cfg.API.Listen)
}
