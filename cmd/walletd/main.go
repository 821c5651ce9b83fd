// Command walletd runs a wallet storage server: a GORM-backed storage
// provider with chain services and the background monitor, exposed over
// JSON-RPC for remote wallets.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"

	"github.com/icellan/wallet-toolbox/pkg/defs"
	"github.com/icellan/wallet-toolbox/pkg/monitor"
	"github.com/icellan/wallet-toolbox/pkg/services"
	"github.com/icellan/wallet-toolbox/pkg/storage"
	"github.com/icellan/wallet-toolbox/pkg/storage/rpc"
	"github.com/icellan/wallet-toolbox/pkg/wallet"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "walletd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	network, err := cfg.Validate()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootKey, err := ec.PrivateKeyFromHex(cfg.RootKeyHex)
	if err != nil {
		return fmt.Errorf("invalid root key: %w", err)
	}
	identityKey := rootKey.PubKey().ToDERHex()

	cfg.Services.Chain = network
	walletServices := services.New(logger, cfg.Services)

	provider, err := storage.NewGORMProvider(network, walletServices,
		storage.WithLogger(logger),
		storage.WithDatabaseConfig(cfg.Database),
		storage.WithFeeModel(cfg.FeeModel),
		storage.WithCommission(cfg.Commission),
	)
	if err != nil {
		return fmt.Errorf("cannot create storage provider: %w", err)
	}

	if _, err := provider.Migrate(ctx, cfg.Name, identityKey); err != nil {
		return fmt.Errorf("cannot migrate storage: %w", err)
	}

	w, err := wallet.New(network, cfg.RootKeyHex, provider,
		wallet.WithLogger(logger),
		wallet.WithServices(walletServices),
	)
	if err != nil {
		return fmt.Errorf("cannot create wallet: %w", err)
	}
	defer w.Close()

	if cfg.Monitor.Enabled {
		daemon, err := monitor.NewDaemon(logger, provider,
			monitor.WithPurgeParams(cfg.Monitor.Purge),
		)
		if err != nil {
			return fmt.Errorf("cannot create monitor daemon: %w", err)
		}
		if err := daemon.Start(cfg.Monitor.Tasks); err != nil {
			return fmt.Errorf("cannot start monitor daemon: %w", err)
		}
		defer func() {
			if err := daemon.Stop(); err != nil {
				logger.Warn("monitor daemon did not stop cleanly", slog.String("error", err.Error()))
			}
		}()
	}

	server := rpc.NewServer(logger, provider, cfg.RPCPort)
	mux := http.NewServeMux()
	server.Register(mux)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.RPCPort),
		Handler:           mux,
		ReadHeaderTimeout: 3 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      2 * time.Minute,
	}

	var certPath, keyPath string
	if cfg.TLS.Enabled {
		if certPath, keyPath, err = ensureSelfSignedCert(cfg.TLS.CertDir); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("storage RPC listening",
			slog.Int("port", cfg.RPCPort),
			slog.Bool("tls", cfg.TLS.Enabled),
			slog.String("network", string(network)),
			slog.String("identityKey", identityKey))

		var serveErr error
		if cfg.TLS.Enabled {
			serveErr = httpServer.ListenAndServeTLS(certPath, keyPath)
		} else {
			serveErr = httpServer.ListenAndServe()
		}
		if !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("rpc server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("rpc server shutdown failed: %w", err)
	}
	return nil
}

func newLogger(cfg Config) (*slog.Logger, error) {
	level, err := defs.ParseLogLevelStr(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	handlerType, err := defs.ParseLogHandlerStr(cfg.Logging.Handler)
	if err != nil {
		return nil, err
	}

	slogLevel := map[defs.LogLevel]slog.Level{
		defs.LogLevelDebug: slog.LevelDebug,
		defs.LogLevelInfo:  slog.LevelInfo,
		defs.LogLevelWarn:  slog.LevelWarn,
		defs.LogLevelError: slog.LevelError,
	}[level]
	opts := &slog.HandlerOptions{Level: slogLevel}

	var handler slog.Handler
	if handlerType == defs.TextHandler {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler), nil
}
