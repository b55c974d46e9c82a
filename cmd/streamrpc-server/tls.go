package main

import (
	"crypto/tls"
	"fmt"

	"github.com/streamrpc/streamrpc/internal/transport/quictransport"
)

func serverTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	if certFile == "" && keyFile == "" {
		return quictransport.NewDevServerTLSConfig("localhost")
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load cert/key pair: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"streamrpc"},
	}, nil
}
