// Package main is the entry point for a streamrpc server process: it loads
// config, registers the demo services, and listens for QUIC connections
// until interrupted.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/streamrpc/streamrpc/internal/config"
	"github.com/streamrpc/streamrpc/internal/debughttp"
	"github.com/streamrpc/streamrpc/internal/examples/authsvc"
	"github.com/streamrpc/streamrpc/internal/examples/hellosvc"
	"github.com/streamrpc/streamrpc/internal/rpcserver"
	"github.com/streamrpc/streamrpc/internal/service"
	"github.com/streamrpc/streamrpc/internal/transport/quictransport"
	"github.com/streamrpc/streamrpc/internal/wire/jsoncodec"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	tlsConfig, err := serverTLSConfig(cfg.Server.CertFile, cfg.Server.KeyFile)
	if err != nil {
		log.Fatalf("failed to build TLS config: %v", err)
	}

	listener, err := quictransport.Listen(cfg.Server.ListenAddr, tlsConfig, nil)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	codec := jsoncodec.New()
	builder := rpcserver.NewBuilder(codec)
	rpcserver.WithService(builder, hellosvc.Descriptor, hellosvc.New(helloImpl{}))
	rpcserver.WithService(builder, authsvc.Descriptor, authsvc.New(authImpl{}))

	srv := builder.Build(listener)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Debug.Enabled {
		go serveDebugHTTP(cfg.Debug.ListenAddr, srv.Stats())
	}

	log.Printf("streamrpc server listening on %s", cfg.Server.ListenAddr)
	if err := srv.Listen(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func serveDebugHTTP(addr string, stats *debughttp.Stats) {
	handler := debughttp.New(stats)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Printf("debug http server error: %v", err)
	}
}

// helloImpl is the demo Hello service registered at server build time.
type helloImpl struct{}

func (helloImpl) Greeting(ctx context.Context) string { return "Hello from streamrpc" }

// authImpl is the demo Auth service: a single hardcoded credential pair,
// granting the caller a private Hello capability on success.
type authImpl struct{}

const (
	demoUsername = "admin"
	demoPassword = "admin"
)

func (authImpl) Auth(ctx context.Context, username, password string) service.Service {
	if username != demoUsername || password != demoPassword {
		return nil
	}
	return hellosvc.New(helloImpl{})
}
