// Package valkeytest runs a throwaway ValKey server for tests.
package valkeytest

import (
	"context"
	"fmt"
	"net"

	"github.com/docker/go-connections/nat"
	"github.com/valkey-io/valkey-go"

	valkeycontainer "github.com/testcontainers/testcontainers-go/modules/valkey"
	slogctx "github.com/veqryn/slog-context"

	sessionvalkey "github.com/medreserve/medreserve-client/pkg/session/valkey"
)

const image = "valkey/valkey:8-alpine"

// Server is a running ValKey container with a connected client.
// Every failure while starting it panics, since no test can run without it.
type Server struct {
	Client valkey.Client
	Port   nat.Port

	container *valkeycontainer.ValkeyContainer
}

// Start runs a ValKey container and connects a client to it.
func Start(ctx context.Context) *Server {
	container, err := valkeycontainer.Run(ctx, image)
	if err != nil {
		slogctx.Error(ctx, "Failed to start ValKey container", "error", err)
		panic(err)
	}

	port, err := container.MappedPort(ctx, nat.Port("6379"))
	if err != nil {
		slogctx.Error(ctx, "Failed to map a port for the ValKey container", "error", err)
		_ = container.Terminate(ctx)
		panic(err)
	}

	return &Server{
		Client:    mustConnect(ctx, net.JoinHostPort("localhost", port.Port())),
		Port:      port,
		container: container,
	}
}

// Addr is the host:port the server listens on.
func (s *Server) Addr() string {
	return net.JoinHostPort("localhost", s.Port.Port())
}

// Repository returns a session repository storing its keys under prefix.
func (s *Server) Repository(prefix string) *sessionvalkey.Repository {
	return sessionvalkey.NewRepository(s.Client, prefix)
}

// Terminate closes the client and removes the container.
func (s *Server) Terminate(ctx context.Context) {
	s.Client.Close()

	err := s.container.Terminate(ctx)
	if err != nil {
		slogctx.Error(ctx, "Failed to terminate ValKey container", "error", err)
		panic(err)
	}
}

func mustConnect(ctx context.Context, addrs ...string) valkey.Client {
	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: addrs})
	if err != nil {
		slogctx.Error(ctx, "Failed to initialise a ValKey client", "error", err)
		panic(fmt.Errorf("connecting to valkey at %v: %w", addrs, err))
	}

	return client
}
