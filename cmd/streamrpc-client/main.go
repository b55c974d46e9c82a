// Package main is a demonstration client: it authenticates against the
// Auth service and, on success, calls the private Hello capability it gets
// back a few times as a healthcheck — mirroring the reference client's
// auth-then-healthcheck flow.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/streamrpc/streamrpc/internal/examples/authsvc"
	"github.com/streamrpc/streamrpc/internal/rpcclient"
	"github.com/streamrpc/streamrpc/internal/transport/quictransport"
	"github.com/streamrpc/streamrpc/internal/wire/jsoncodec"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:8443", "server address")
	username := flag.String("username", "admin", "username")
	password := flag.String("password", "admin", "password")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tlsConfig := quictransport.NewDevClientTLSConfig(true)
	conn, err := quictransport.Dial(ctx, *addr, tlsConfig, nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}

	codec := jsoncodec.New()
	client := rpcclient.New(conn, codec, 8)
	defer client.Close()

	auth, err := rpcclient.NewServiceClient[authsvc.Client](ctx, client, authsvc.Name, authsvc.Checksum)
	if err != nil {
		log.Fatalf("failed to get auth service client: %v", err)
	}

	capability, hello, ok, err := auth.Auth(ctx, *username, *password)
	if err != nil {
		log.Fatalf("auth call failed: %v", err)
	}
	if !ok {
		log.Fatal("authentication rejected: invalid username or password")
	}
	defer func() {
		if err := capability.Release(context.Background()); err != nil {
			log.Printf("failed to release capability: %v", err)
		}
	}()

	log.Print("authenticated successfully")
	runHealthcheck(ctx, hello)
}

func runHealthcheck(ctx context.Context, hello interface {
	Greeting(ctx context.Context) (string, error)
}) {
	for i := 0; i < 3; i++ {
		greeting, err := hello.Greeting(ctx)
		if err != nil {
			log.Printf("healthcheck attempt failed: %v", err)
		} else {
			log.Printf("healthcheck attempt succeeded: %s", greeting)
		}
		time.Sleep(time.Second)
	}
}
