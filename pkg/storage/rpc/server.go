// Package rpc exposes a wallet storage provider over JSON-RPC and provides
// the matching client, so a wallet can use a remote storage server through
// the same WalletStorageProvider contract as a local one.
package rpc

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/filecoin-project/go-jsonrpc"

	"github.com/icellan/wallet-toolbox/pkg/internal/logging"
	"github.com/icellan/wallet-toolbox/pkg/wdk"
)

// Namespace is the JSON-RPC namespace shared by the server and the client.
const Namespace = "wallet_storage"

// Server exposes a local storage provider as a JSON-RPC endpoint.
type Server struct {
	handler *jsonrpc.RPCServer
	logger  *slog.Logger
	port    int
}

// NewServer wraps the provider in an identity-resolving shim and registers
// it on a JSON-RPC server.
func NewServer(logger *slog.Logger, provider wdk.WalletStorageProvider, port int) *Server {
	log := logging.Child(logger, "storageRPCServer")

	rpcServer := jsonrpc.NewServer(
		jsonrpc.WithServerMethodNameFormatter(jsonrpc.NewMethodNameFormatter(false, jsonrpc.LowerFirstCharCase)),
		jsonrpc.WithTracer(newTracer(log)),
	)
	rpcServer.Register(Namespace, newAuthResolver(log, provider))

	return &Server{
		handler: rpcServer,
		logger:  log,
		port:    port,
	}
}

// Register mounts the RPC handler on the mux. The JSON-RPC protocol is
// path-agnostic, so "POST /" lets the endpoint be embedded under any prefix.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /", s.handler.ServeHTTP)
}

// Start runs a blocking HTTP server on the configured port.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	s.Register(mux)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: 3 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      2 * time.Minute,
	}

	s.logger.Info("Listening...", slog.Int("port", s.port))
	if err := httpServer.ListenAndServe(); err != nil {
		return fmt.Errorf("storage RPC server failed: %w", err)
	}
	return nil
}
